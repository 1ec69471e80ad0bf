package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/llm"
	"github.com/BaSui01/agentcore/llm/providers"
	"github.com/BaSui01/agentcore/types"
)

const (
	// APIVersion anthropic-version 请求头
	APIVersion = "2023-06-01"
	// DefaultMaxTokens Messages API 要求必须提供 max_tokens
	DefaultMaxTokens = 4096
)

// Config Anthropic Messages API 配置
type Config struct {
	APIKey  string
	BaseURL string
	// Model 请求未指定模型时使用，为空时取模型表中的 small 模型
	Model   string
	Timeout time.Duration
}

// Provider 通过原生 Messages API 实现 llm.Provider。
// 与 OpenAI 格式的差异：
//  1. 认证使用 x-api-key 请求头
//  2. system 消息单独传递
//  3. content 为数组，工具调用与结果分别是 tool_use / tool_result 块
type Provider struct {
	cfg    Config
	client *providers.Client
	logger *zap.Logger
}

// New 创建 Provider。BaseURL 为空时使用模型表中的端点。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = llm.GetEndpoint(types.ProviderAnthropic)
	}
	if cfg.Model == "" {
		small, _ := llm.GetModelSettings(types.ProviderAnthropic, types.ModelClassSmall)
		cfg.Model = small.Name
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: providers.NewClient(string(types.ProviderAnthropic), cfg.BaseURL, cfg.Timeout, apiKeyAuth(cfg.APIKey)),
		logger: logger.With(zap.String("component", "llm_provider"), zap.String("provider", string(types.ProviderAnthropic))),
	}
}

func (p *Provider) Name() string { return string(types.ProviderAnthropic) }

type message struct {
	Role    string    `json:"role"` // user 或 assistant
	Content []content `json:"content"`
}

type content struct {
	Type      string          `json:"type"` // text, tool_use, tool_result
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"` // tool_result
}

type tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"` // auto, any, tool, none
	Name string `json:"name,omitempty"`
}

type request struct {
	Model       string      `json:"model"`
	Messages    []message   `json:"messages"`
	System      string      `json:"system,omitempty"`
	MaxTokens   int         `json:"max_tokens"`
	Temperature float32     `json:"temperature,omitempty"`
	StopSeq     []string    `json:"stop_sequences,omitempty"`
	Tools       []tool      `json:"tools,omitempty"`
	ToolChoice  *toolChoice `json:"tool_choice,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type response struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	Content    []content `json:"content"`
	Model      string    `json:"model"`
	StopReason string    `json:"stop_reason"`
	Usage      *usage    `json:"usage,omitempty"`
}

func apiKeyAuth(key string) func(http.Header) {
	return func(h http.Header) {
		h.Set("x-api-key", key)
		h.Set("anthropic-version", APIVersion)
	}
}

// convertMessages 提取 system 消息，tool 角色包装为 user 消息中的 tool_result。
// 多条 system 消息按顺序以空行拼接。
func convertMessages(msgs []llm.Message) (string, []message) {
	var system []string
	out := make([]message, 0, len(msgs))

	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
			continue
		case llm.RoleTool:
			out = append(out, message{
				Role: "user",
				Content: []content{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   m.Content,
				}},
			})
			continue
		}

		cm := message{Role: string(m.Role)}
		if m.Content != "" {
			cm.Content = append(cm.Content, content{Type: "text", Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			input := tc.Arguments
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			cm.Content = append(cm.Content, content{
				Type:  "tool_use",
				ID:    tc.ID,
				Name:  tc.Name,
				Input: input,
			})
		}
		if len(cm.Content) > 0 {
			out = append(out, cm)
		}
	}
	return strings.Join(system, "\n\n"), out
}

func convertTools(tools []llm.ToolSchema) []tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}
	return out
}

func convertToolChoice(choice string) *toolChoice {
	switch choice {
	case "":
		return nil
	case "auto", "none":
		return &toolChoice{Type: choice}
	case "required":
		return &toolChoice{Type: "any"}
	default:
		return &toolChoice{Type: "tool", Name: choice}
	}
}

// Completion 发起一次 Messages API 请求
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, types.NewError(types.ErrInvalidInput, "chat request has no messages").WithProvider(p.Name())
	}
	system, messages := convertMessages(req.Messages)
	if len(messages) == 0 {
		return nil, types.NewError(types.ErrInvalidInput, "chat request has no user or assistant messages").WithProvider(p.Name())
	}

	body := request{
		Model:       providers.ModelOr(req.Model, p.cfg.Model),
		Messages:    messages,
		System:      system,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		StopSeq:     req.Stop,
		Tools:       convertTools(req.Tools),
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = DefaultMaxTokens
	}
	if len(body.Tools) > 0 {
		body.ToolChoice = convertToolChoice(req.ToolChoice)
	}

	start := time.Now()
	var r response
	if err := p.client.PostJSON(ctx, "/v1/messages", body, &r); err != nil {
		p.logger.Warn("messages request failed", zap.String("model", body.Model), zap.Error(err))
		return nil, err
	}
	result := toChatResponse(r, p.Name())
	p.logger.Debug("completion finished",
		zap.String("model", result.Model),
		zap.Int("total_tokens", result.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)))
	return result, nil
}

func toChatResponse(r response, provider string) *llm.ChatResponse {
	msg := llm.Message{Role: llm.RoleAssistant}
	for _, c := range r.Content {
		switch c.Type {
		case "text":
			msg.Content += c.Text
		case "tool_use":
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
				ID:        c.ID,
				Name:      c.Name,
				Arguments: c.Input,
			})
		}
	}

	out := &llm.ChatResponse{
		ID:       r.ID,
		Provider: provider,
		Model:    r.Model,
		Choices: []llm.ChatChoice{{
			FinishReason: r.StopReason,
			Message:      msg,
		}},
		CreatedAt: time.Now(),
	}
	if r.Usage != nil {
		out.Usage = llm.ChatUsage{
			PromptTokens:     r.Usage.InputTokens,
			CompletionTokens: r.Usage.OutputTokens,
			TotalTokens:      r.Usage.InputTokens + r.Usage.OutputTokens,
		}
	}
	return out
}
