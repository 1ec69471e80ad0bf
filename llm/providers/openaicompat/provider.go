package openaicompat

import (
	"context"
	"net/http"
	"time"

	"github.com/BaSui01/agentcore/llm"
	"github.com/BaSui01/agentcore/llm/providers"
	"github.com/BaSui01/agentcore/types"
	"go.uber.org/zap"
)

type Config struct {
	// ProviderName 出现在错误与日志中，例如 openai、groq
	ProviderName string
	// APIKey Ollama 可以为空
	APIKey  string
	BaseURL string

	// DefaultModel 请求未指定模型时使用，再为空时使用 FallbackModel
	DefaultModel  string
	FallbackModel string

	// Timeout 默认 60s
	Timeout time.Duration
	// EndpointPath 默认 /v1/chat/completions
	EndpointPath string

	// Auth 替换默认的 Bearer 认证头
	Auth func(h http.Header)
}

// Provider 通过 Chat Completions 协议实现 llm.Provider
type Provider struct {
	cfg    Config
	client *providers.Client
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	auth := cfg.Auth
	if auth == nil {
		auth = providers.Bearer(cfg.APIKey)
	}
	return &Provider{
		cfg:    cfg,
		client: providers.NewClient(cfg.ProviderName, cfg.BaseURL, cfg.Timeout, auth),
		logger: logger.With(zap.String("component", "llm_provider"), zap.String("provider", cfg.ProviderName)),
	}
}

func (p *Provider) Name() string { return p.cfg.ProviderName }

func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, types.NewError(types.ErrInvalidInput, "chat request has no messages").WithProvider(p.Name())
	}

	body := chatRequest{
		Model:            providers.ModelOr(req.Model, p.cfg.DefaultModel, p.cfg.FallbackModel),
		Messages:         toWireMessages(req.Messages),
		Tools:            toWireTools(req.Tools),
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Stop:             req.Stop,
	}
	// 部分服务拒绝没有 tools 的 tool_choice
	if len(body.Tools) > 0 {
		body.ToolChoice = req.ToolChoice
	}
	if req.ResponseFormat != "" {
		body.ResponseFormat = &responseFormat{Type: req.ResponseFormat}
	}

	start := time.Now()
	var out chatResponse
	if err := p.client.PostJSON(ctx, p.cfg.EndpointPath, body, &out); err != nil {
		p.logger.Warn("completion failed", zap.String("model", body.Model), zap.Error(err))
		return nil, err
	}

	resp := out.toChatResponse(p.Name())
	p.logger.Debug("completion finished",
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)))
	return resp, nil
}

// HealthCheck 发送一个 max_tokens=1 的请求
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Completion(ctx, &llm.ChatRequest{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	return err
}

// FromSettings 按模型表构造 provider，baseURL 为空时使用表中的端点
func FromSettings(name types.ModelProviderName, apiKey, baseURL string, logger *zap.Logger) (*Provider, error) {
	if baseURL == "" {
		baseURL = llm.GetEndpoint(name)
	}
	if baseURL == "" {
		return nil, types.Errorf(types.ErrConfiguration, "no endpoint configured for provider %q", name)
	}
	small, _ := llm.GetModelSettings(name, types.ModelClassSmall)
	return New(Config{
		ProviderName:  string(name),
		APIKey:        apiKey,
		BaseURL:       baseURL,
		FallbackModel: small.Name,
	}, logger), nil
}
