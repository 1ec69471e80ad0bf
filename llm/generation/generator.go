package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BaSui01/agentcore/internal/metrics"
	"github.com/BaSui01/agentcore/llm"
	"github.com/BaSui01/agentcore/llm/retry"
	"github.com/BaSui01/agentcore/llm/tokenizer"
	"github.com/BaSui01/agentcore/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/agentcore/llm/generation"

// Tool 生成过程中可供模型调用的工具
type Tool struct {
	Name        string
	Description string
	Parameters  *Schema
	Execute     func(ctx context.Context, args json.RawMessage) (string, error)
}

// ToolResult 单次工具调用的结果
type ToolResult struct {
	CallID string `json:"callId"`
	Name   string `json:"name"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// StepResult 工具循环中每一步的结果
type StepResult struct {
	Step        int            `json:"step"`
	Text        string         `json:"text"`
	ToolCalls   []llm.ToolCall `json:"toolCalls,omitempty"`
	ToolResults []ToolResult   `json:"toolResults,omitempty"`
	Usage       llm.ChatUsage  `json:"usage"`
}

// TextRequest GenerateText 的参数
type TextRequest struct {
	Context      string
	ModelClass   types.ModelClass
	Tools        []Tool
	MaxSteps     int
	Stop         []string
	SystemPrompt string
	Verifiable   bool
	OnStepFinish func(StepResult)
}

// TextResult 生成结果，Proof 仅在请求可验证推理时填充
type TextResult struct {
	Text  string
	Steps []StepResult
	Usage llm.ChatUsage
	Proof *VerifiableResult
}

// ObjectRequest GenerateObject 的参数
type ObjectRequest struct {
	Context           string
	ModelClass        types.ModelClass
	Schema            *Schema
	SchemaName        string
	SchemaDescription string
	Stop              []string
}

// Generator 按模型等级路由的生成层，调用方从不指定具体模型
type Generator struct {
	provider     llm.Provider
	providerName types.ModelProviderName
	tokenizer    tokenizer.Tokenizer
	verifier     Verifier
	retryPolicy  *retry.RetryPolicy
	metrics      *metrics.Collector
	tracer       trace.Tracer
	meter        metric.Meter
	instruments  *instruments
	logger       *zap.Logger

	rateLimit *rateLimit
}

type rateLimit struct {
	rps   float64
	burst int
}

// Option 生成器选项
type Option func(*Generator)

// WithTokenizer 指定用于 TrimTokens 的分词器，默认按模型名查找，找不到时使用估算器
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(g *Generator) { g.tokenizer = t }
}

// WithVerifier 启用可验证推理
func WithVerifier(v Verifier) Option {
	return func(g *Generator) { g.verifier = v }
}

// WithRetryPolicy 设置解析失败时的重试策略
func WithRetryPolicy(p *retry.RetryPolicy) Option {
	return func(g *Generator) { g.retryPolicy = p }
}

// WithRateLimit 在 Provider 外层加令牌桶限流
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Generator) { g.rateLimit = &rateLimit{rps: rps, burst: burst} }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(g *Generator) { g.metrics = c }
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Generator) { g.tracer = t }
}

// WithMeter 指定 OTel Meter，默认使用全局 MeterProvider
func WithMeter(m metric.Meter) Option {
	return func(g *Generator) { g.meter = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l.With(zap.String("component", "generation"))
		}
	}
}

// NewGenerator 创建生成器。providerName 用于查询模型等级设置表。
func NewGenerator(provider llm.Provider, providerName types.ModelProviderName, opts ...Option) *Generator {
	g := &Generator{
		provider:     provider,
		providerName: providerName,
		retryPolicy: &retry.RetryPolicy{
			MaxRetries:   3,
			InitialDelay: time.Second,
			MaxDelay:     8 * time.Second,
			Multiplier:   2.0,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rateLimit != nil {
		g.provider = llm.NewRateLimitedProvider(g.provider, g.rateLimit.rps, g.rateLimit.burst, g.logger)
	}
	if g.tracer == nil {
		g.tracer = otel.Tracer(instrumentationName)
	}
	if g.meter == nil {
		g.meter = otel.Meter(instrumentationName)
	}
	g.instruments = newInstruments(g.meter, g.logger)
	return g
}

// ProviderName 返回模型提供商名称
func (g *Generator) ProviderName() types.ModelProviderName {
	return g.providerName
}

// Verifier 返回可验证推理适配器，未配置时为 nil
func (g *Generator) Verifier() Verifier {
	return g.verifier
}

func (g *Generator) settings(class types.ModelClass) (llm.ModelSettings, error) {
	if class == "" {
		class = types.ModelClassSmall
	}
	s, ok := llm.GetModelSettings(g.providerName, class)
	if !ok {
		return llm.ModelSettings{}, types.Errorf(types.ErrConfiguration,
			"no %s model configured for provider %s", class, g.providerName)
	}
	return s, nil
}

// tokenizerFor 未显式配置分词器时按模型名选择
func (g *Generator) tokenizerFor(settings llm.ModelSettings) tokenizer.Tokenizer {
	if g.tokenizer != nil {
		return g.tokenizer
	}
	return tokenizer.ForModel(settings.Name, settings.MaxInputTokens)
}

// complete 发起一次补全并记录指标与追踪
func (g *Generator) complete(ctx context.Context, class types.ModelClass, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	ctx, span := g.tracer.Start(ctx, "generation.completion", trace.WithAttributes(
		attribute.String("llm.provider", string(g.providerName)),
		attribute.String("llm.model_class", string(class)),
		attribute.String("llm.model", req.Model),
	))
	defer span.End()

	if traceID, ok := types.TraceID(ctx); ok {
		req.TraceID = traceID
	}

	start := time.Now()
	resp, err := g.provider.Completion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.metrics.RecordGeneration(string(g.providerName), string(class), "error", duration, 0, 0)
		g.instruments.record(ctx, string(g.providerName), string(class), "error", duration, 0, 0)
		g.logger.Warn("completion failed",
			zap.String("model_class", string(class)),
			zap.Duration("duration", duration),
			zap.Error(err))
		if _, ok := types.AsError(err); ok {
			return nil, err
		}
		return nil, types.NewError(types.ErrGenerationFailed, "completion failed").
			WithCause(err).
			WithProvider(g.provider.Name())
	}

	span.SetAttributes(
		attribute.Int("llm.tokens.prompt", resp.Usage.PromptTokens),
		attribute.Int("llm.tokens.completion", resp.Usage.CompletionTokens),
	)
	g.metrics.RecordGeneration(string(g.providerName), string(class), "success", duration,
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	g.instruments.record(ctx, string(g.providerName), string(class), "success", duration,
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}

// buildRequest 按模型等级设置构造请求，上下文先按输入预算裁剪（保留尾部）
func (g *Generator) buildRequest(ctx context.Context, class types.ModelClass, system, prompt string, stop []string) (*llm.ChatRequest, llm.ModelSettings, error) {
	settings, err := g.settings(class)
	if err != nil {
		return nil, settings, err
	}
	trimmed, err := tokenizer.TrimTokens(ctx, prompt, settings.MaxInputTokens, g.tokenizerFor(settings))
	if err != nil {
		return nil, settings, err
	}

	var messages []llm.Message
	if system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: trimmed})

	if len(stop) == 0 {
		stop = settings.Stop
	}
	return &llm.ChatRequest{
		Model:            settings.Name,
		Messages:         messages,
		MaxTokens:        settings.MaxOutputTokens,
		Temperature:      settings.Temperature,
		FrequencyPenalty: settings.FrequencyPenalty,
		PresencePenalty:  settings.PresencePenalty,
		Stop:             stop,
	}, settings, nil
}

// GenerateText 生成文本，返回去除首尾空白的结果
func (g *Generator) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	res, err := g.GenerateTextResult(ctx, req)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// GenerateTextResult 生成文本并返回每一步的详情。
// 模型请求工具调用且 step < MaxSteps 时执行工具并继续对话。
func (g *Generator) GenerateTextResult(ctx context.Context, req TextRequest) (*TextResult, error) {
	if strings.TrimSpace(req.Context) == "" {
		return nil, types.NewError(types.ErrInvalidInput, "generation context is empty")
	}
	chatReq, _, err := g.buildRequest(ctx, req.ModelClass, req.SystemPrompt, req.Context, req.Stop)
	if err != nil {
		return nil, err
	}

	tools := make(map[string]Tool, len(req.Tools))
	for _, t := range req.Tools {
		tools[t.Name] = t
		schema := []byte(`{"type":"object"}`)
		if t.Parameters != nil {
			if b, err := json.Marshal(t.Parameters); err == nil {
				schema = b
			}
		}
		chatReq.Tools = append(chatReq.Tools, llm.ToolSchema{Name: t.Name, Description: t.Description, Parameters: schema})
	}
	if len(chatReq.Tools) > 0 {
		chatReq.ToolChoice = "auto"
	}

	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 1
	}

	result := &TextResult{}
	for step := 0; ; step++ {
		resp, err := g.complete(ctx, req.ModelClass, chatReq)
		if err != nil {
			return nil, err
		}
		choice, err := resp.Choice()
		if err != nil {
			return nil, err
		}
		if choice.Truncated() {
			g.logger.Warn("completion truncated by max tokens",
				zap.String("model", resp.Model), zap.Int("step", step))
		}

		sr := StepResult{
			Step:      step,
			Text:      strings.TrimSpace(choice.Message.Content),
			ToolCalls: choice.Message.ToolCalls,
			Usage:     resp.Usage,
		}
		result.Usage.PromptTokens += resp.Usage.PromptTokens
		result.Usage.CompletionTokens += resp.Usage.CompletionTokens
		result.Usage.TotalTokens += resp.Usage.TotalTokens

		more := len(choice.Message.ToolCalls) > 0 && step+1 < maxSteps
		if more {
			chatReq.Messages = append(chatReq.Messages, llm.Message{
				Role:      llm.RoleAssistant,
				Content:   choice.Message.Content,
				ToolCalls: choice.Message.ToolCalls,
			})
			for _, call := range choice.Message.ToolCalls {
				tr := g.runTool(ctx, tools, call)
				sr.ToolResults = append(sr.ToolResults, tr)
				content := tr.Output
				if tr.Error != "" {
					content = "error: " + tr.Error
				}
				chatReq.Messages = append(chatReq.Messages, llm.Message{
					Role:       llm.RoleTool,
					Name:       call.Name,
					Content:    content,
					ToolCallID: call.ID,
				})
			}
		}

		result.Steps = append(result.Steps, sr)
		if req.OnStepFinish != nil {
			req.OnStepFinish(sr)
		}
		if !more {
			result.Text = sr.Text
			break
		}
	}

	if req.Verifiable {
		if g.verifier == nil {
			return nil, types.NewError(types.ErrConfiguration, "verifiable inference requested but no verifier configured")
		}
		proof, err := g.verifier.Attest(ctx, req.ModelClass, req.Context, result.Text)
		if err != nil {
			return nil, types.NewError(types.ErrGenerationFailed, "attest inference").WithCause(err)
		}
		result.Proof = &VerifiableResult{
			Text:       result.Text,
			Proof:      proof,
			ModelClass: req.ModelClass,
			Context:    req.Context,
			Timestamp:  time.Now().UnixMilli(),
		}
	}

	g.logger.Debug("text generated",
		zap.String("model_class", string(req.ModelClass)),
		zap.Int("steps", len(result.Steps)),
		zap.Int("length", len(result.Text)))
	return result, nil
}

func (g *Generator) runTool(ctx context.Context, tools map[string]Tool, call llm.ToolCall) ToolResult {
	tr := ToolResult{CallID: call.ID, Name: call.Name}
	tool, ok := tools[call.Name]
	if !ok || tool.Execute == nil {
		tr.Error = fmt.Sprintf("unknown tool %q", call.Name)
		g.logger.Warn("model requested unknown tool", zap.String("tool", call.Name))
		return tr
	}
	out, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		tr.Error = err.Error()
		g.logger.Warn("tool execution failed", zap.String("tool", call.Name), zap.Error(err))
		return tr
	}
	tr.Output = out
	return tr
}

// withParseRetry 反复生成直到 parse 成功；解析失败按可重试的 GENERATION_FAILED 处理
func withParseRetry[T any](ctx context.Context, g *Generator, class types.ModelClass, prompt string, stop []string, parse func(string) (T, bool)) (T, error) {
	policy := *g.retryPolicy
	policy.ShouldRetry = retry.RetryTransient
	retryer := retry.NewRetryer(&policy, g.logger)

	return retry.Do(ctx, retryer, func(ctx context.Context) (T, error) {
		var zero T
		text, err := g.GenerateText(ctx, TextRequest{Context: prompt, ModelClass: class, Stop: stop})
		if err != nil {
			return zero, err
		}
		v, ok := parse(text)
		if !ok {
			g.logger.Debug("unparsable model output, retrying", zap.String("output", truncate(text, 200)))
			return zero, types.NewError(types.ErrGenerationFailed, "model output could not be parsed").WithRetryable(true)
		}
		return v, nil
	})
}

// GenerateShouldRespond 让模型在 RESPOND / IGNORE / STOP 中选择
func (g *Generator) GenerateShouldRespond(ctx context.Context, prompt string, class types.ModelClass) (ShouldRespond, error) {
	return withParseRetry(ctx, g, class, prompt, nil, ParseShouldRespondFromText)
}

// GenerateTrueOrFalse 让模型回答是或否
func (g *Generator) GenerateTrueOrFalse(ctx context.Context, prompt string, class types.ModelClass) (bool, error) {
	return withParseRetry(ctx, g, class, prompt, nil, func(text string) (bool, bool) {
		v, err := ParseBooleanFromText(text)
		return v, err == nil
	})
}

// GenerateTextArray 生成字符串数组
func (g *Generator) GenerateTextArray(ctx context.Context, prompt string, class types.ModelClass) ([]string, error) {
	return withParseRetry(ctx, g, class, prompt, nil, func(text string) ([]string, bool) {
		arr := ParseStringArrayFromText(text)
		return arr, arr != nil
	})
}

// GenerateObjectArray 生成对象数组
func (g *Generator) GenerateObjectArray(ctx context.Context, prompt string, class types.ModelClass) ([]any, error) {
	return withParseRetry(ctx, g, class, prompt, nil, func(text string) ([]any, bool) {
		arr := ParseJSONArrayFromText(text)
		return arr, arr != nil
	})
}

// GenerateMessageResponse 生成一条消息回复（MessageCompletionFooter 约定的 JSON），解析失败时退避重试
func (g *Generator) GenerateMessageResponse(ctx context.Context, prompt string, class types.ModelClass) (types.Content, error) {
	return withParseRetry(ctx, g, class, prompt, nil, func(text string) (types.Content, bool) {
		obj := ParseJSONObjectFromText(text)
		if obj == nil {
			return types.Content{}, false
		}
		return ContentFromObject(obj), true
	})
}

// GenerateObject 按 schema 生成结构化对象。无法解析为 GENERATION_FAILED，
// 不符合 schema 为 GENERATION_VALIDATION，结果不做任何强制转换。
func (g *Generator) GenerateObject(ctx context.Context, req ObjectRequest) (map[string]any, error) {
	if req.Schema == nil {
		return nil, types.NewError(types.ErrInvalidInput, "schema is required")
	}
	schemaJSON, err := req.Schema.ToJSON()
	if err != nil {
		return nil, types.NewError(types.ErrInvalidInput, "marshal schema").WithCause(err)
	}

	chatReq, _, err := g.buildRequest(ctx, req.ModelClass, objectSystemPrompt(req, string(schemaJSON)), req.Context, req.Stop)
	if err != nil {
		return nil, err
	}
	chatReq.ResponseFormat = "json_object"

	resp, err := g.complete(ctx, req.ModelClass, chatReq)
	if err != nil {
		return nil, err
	}
	text, err := resp.Text()
	if err != nil {
		return nil, err
	}

	obj := ParseJSONObjectFromText(text)
	if obj == nil {
		return nil, types.NewError(types.ErrGenerationFailed, "model output is not a JSON object")
	}
	if err := ValidateValue(obj, req.Schema); err != nil {
		g.logger.Warn("generated object does not match schema",
			zap.String("schema", req.SchemaName), zap.Error(err))
		return nil, types.NewError(types.ErrGenerationValidation, "generated object does not match schema").WithCause(err)
	}
	return obj, nil
}

// GenerateObjectInto 生成结构化对象并解码到 T
func GenerateObjectInto[T any](ctx context.Context, g *Generator, req ObjectRequest) (T, error) {
	var out T
	obj, err := g.GenerateObject(ctx, req)
	if err != nil {
		return out, err
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return out, types.NewError(types.ErrGenerationFailed, "re-encode object").WithCause(err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, types.NewError(types.ErrGenerationValidation, "decode object").WithCause(err)
	}
	return out, nil
}

func objectSystemPrompt(req ObjectRequest, schemaJSON string) string {
	var sb strings.Builder
	sb.WriteString("You generate structured JSON output.\n\n")
	if req.SchemaName != "" {
		fmt.Fprintf(&sb, "Object: %s\n", req.SchemaName)
	}
	if req.SchemaDescription != "" {
		fmt.Fprintf(&sb, "Description: %s\n", req.SchemaDescription)
	}
	sb.WriteString("Respond with a single JSON object that conforms to this JSON Schema:\n")
	sb.WriteString("```json\n")
	sb.WriteString(schemaJSON)
	sb.WriteString("\n```\n")
	sb.WriteString("Do not include any text before or after the JSON.")
	return sb.String()
}

// ContentFromObject 把解析出的对象映射为 Content，未知字段放入 Extra
func ContentFromObject(obj map[string]any) types.Content {
	var c types.Content
	for k, v := range obj {
		s, isString := v.(string)
		switch {
		case k == "text" && isString:
			c.Text = s
		case k == "action" && isString:
			c.Action = s
		case k == "source" && isString:
			c.Source = s
		case k == "url" && isString:
			c.URL = s
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]any)
			}
			c.Extra[k] = v
		}
	}
	return c
}

// truncate 按字符截断日志中的长文本
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
