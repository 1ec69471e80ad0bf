package llm

import (
	"context"
	"errors"

	"github.com/BaSui01/agentcore/llm/circuitbreaker"
	"github.com/BaSui01/agentcore/llm/retry"
	"github.com/BaSui01/agentcore/types"
	"go.uber.org/zap"
)

// ResilientProvider 具有弹性能力的 Provider 包装器
// 提供重试与熔断：熔断器在外层，重试在熔断器内部执行，
// 因此一次完整的重试序列只计为一次熔断判定。
type ResilientProvider struct {
	provider       Provider
	retryer        *retry.Retryer
	circuitBreaker *circuitbreaker.Breaker
	logger         *zap.Logger
}

// ResilientProviderConfig 弹性 Provider 配置
type ResilientProviderConfig struct {
	// EnableRetry 是否启用重试
	EnableRetry bool
	// RetryPolicy 重试策略，ShouldRetry 为空时只重试可重试的 types.Error
	RetryPolicy *retry.RetryPolicy

	// EnableCircuitBreaker 是否启用熔断器
	EnableCircuitBreaker bool
	// CircuitBreakerConfig 熔断器配置
	CircuitBreakerConfig *circuitbreaker.Config
}

// DefaultResilientProviderConfig 返回默认配置
func DefaultResilientProviderConfig() *ResilientProviderConfig {
	return &ResilientProviderConfig{
		EnableRetry:          true,
		RetryPolicy:          retry.DefaultRetryPolicy(),
		EnableCircuitBreaker: true,
		CircuitBreakerConfig: circuitbreaker.DefaultConfig(),
	}
}

// NewResilientProvider 创建具有弹性能力的 Provider
func NewResilientProvider(provider Provider, config *ResilientProviderConfig, logger *zap.Logger) *ResilientProvider {
	if config == nil {
		config = DefaultResilientProviderConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "resilient_provider"), zap.String("provider", provider.Name()))

	rp := &ResilientProvider{provider: provider, logger: logger}
	if config.EnableRetry {
		policy := retry.DefaultRetryPolicy()
		if config.RetryPolicy != nil {
			*policy = *config.RetryPolicy
		}
		if policy.ShouldRetry == nil {
			policy.ShouldRetry = retry.RetryTransient
		}
		rp.retryer = retry.NewRetryer(policy, logger)
	}
	if config.EnableCircuitBreaker {
		cbCfg := circuitbreaker.DefaultConfig()
		if config.CircuitBreakerConfig != nil {
			*cbCfg = *config.CircuitBreakerConfig
		}
		if cbCfg.Name == "" {
			cbCfg.Name = "llm:" + provider.Name()
		}
		rp.circuitBreaker = circuitbreaker.New(cbCfg, logger)
	}
	return rp
}

// Completion 实现 Provider.Completion
func (rp *ResilientProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	call := func(ctx context.Context) (*ChatResponse, error) {
		if rp.retryer == nil {
			return rp.provider.Completion(ctx, req)
		}
		return retry.Do(ctx, rp.retryer, func(ctx context.Context) (*ChatResponse, error) {
			return rp.provider.Completion(ctx, req)
		})
	}

	if rp.circuitBreaker == nil {
		return call(ctx)
	}
	resp, err := circuitbreaker.Execute(ctx, rp.circuitBreaker, call)
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyCallsInHalfOpen) {
		rp.logger.Warn("provider circuit open, request rejected")
		return nil, types.NewError(types.ErrProviderUnavailable, "provider circuit open").
			WithCause(err).
			WithProvider(rp.provider.Name())
	}
	return resp, err
}

// Name 实现 Provider.Name
func (rp *ResilientProvider) Name() string {
	return rp.provider.Name()
}

// BreakerState 返回熔断器当前状态，未启用时视为关闭
func (rp *ResilientProvider) BreakerState() circuitbreaker.State {
	if rp.circuitBreaker == nil {
		return circuitbreaker.StateClosed
	}
	return rp.circuitBreaker.State()
}
