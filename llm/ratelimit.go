package llm

import (
	"context"

	"github.com/BaSui01/agentcore/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitedProvider 令牌桶限流包装器，等待令牌时尊重 ctx 取消
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewRateLimitedProvider 创建限流 Provider。rps <= 0 时不限流。
func NewRateLimitedProvider(provider Provider, rps float64, burst int, logger *zap.Logger) *RateLimitedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.With(zap.String("component", "rate_limiter"), zap.String("provider", provider.Name())),
	}
}

// Completion 实现 Provider.Completion
func (p *RateLimitedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		p.logger.Debug("rate limiter wait aborted", zap.Error(err))
		return nil, types.NewError(types.ErrRateLimited, "local rate limit wait aborted").
			WithCause(err).
			WithProvider(p.provider.Name())
	}
	return p.provider.Completion(ctx, req)
}

// Name 实现 Provider.Name
func (p *RateLimitedProvider) Name() string {
	return p.provider.Name()
}
