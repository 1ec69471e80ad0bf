package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/agentcore/llm"
)

// Reply 一次脚本化的模型回复；Err 非空时该次调用失败
type Reply struct {
	Text      string
	ToolCalls []llm.ToolCall
	Err       error
}

// Provider 按脚本依次回复的 llm.Provider，脚本用完后返回兜底回复。
// 每次调用固定消耗 10 个 prompt token 与 20 个 completion token。
type Provider struct {
	mu       sync.Mutex
	script   []Reply
	fallback Reply
	requests []*llm.ChatRequest
}

func NewProvider(script ...Reply) *Provider {
	return &Provider{script: script, fallback: Reply{Text: "Mock response"}}
}

// Scripted 依次回复给定文本
func Scripted(texts ...string) *Provider {
	p := NewProvider()
	for _, t := range texts {
		p.script = append(p.script, Reply{Text: t})
	}
	return p
}

// Always 每次都回复同一文本
func Always(text string) *Provider {
	return NewProvider().Say(text)
}

// Failing 每次调用都返回 err
func Failing(err error) *Provider {
	p := NewProvider()
	p.fallback = Reply{Err: err}
	return p
}

// Say 替换兜底回复，已排队的脚本不受影响
func (p *Provider) Say(text string) *Provider {
	p.mu.Lock()
	p.fallback = Reply{Text: text}
	p.mu.Unlock()
	return p
}

func (p *Provider) Name() string { return "mock" }

func (p *Provider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, snapshot(req))
	r := p.fallback
	if len(p.script) > 0 {
		r, p.script = p.script[0], p.script[1:]
	}
	if r.Err != nil {
		return nil, r.Err
	}

	finish := "stop"
	if len(r.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return &llm.ChatResponse{
		ID:       "mock-response-id",
		Provider: "mock",
		Model:    req.Model,
		Choices: []llm.ChatChoice{{
			FinishReason: finish,
			Message:      llm.Message{Role: llm.RoleAssistant, Content: r.Text, ToolCalls: r.ToolCalls},
		}},
		Usage:     llm.ChatUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		CreatedAt: time.Now(),
	}, nil
}

// snapshot 调用方之后追加消息不影响记录
func snapshot(req *llm.ChatRequest) *llm.ChatRequest {
	if req == nil {
		return nil
	}
	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	cp.Tools = append([]llm.ToolSchema(nil), req.Tools...)
	return &cp
}

// Requests 按调用顺序返回收到的请求
func (p *Provider) Requests() []*llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*llm.ChatRequest(nil), p.requests...)
}

func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// LastRequest 尚未调用时返回 nil
func (p *Provider) LastRequest() *llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	return p.requests[len(p.requests)-1]
}
