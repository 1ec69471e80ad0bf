package openaicompat

import (
	"encoding/json"
	"time"

	"github.com/BaSui01/agentcore/llm"
)

// Chat Completions 请求与响应的线上格式

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	Name       string         `json:"name,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Parameters  json.RawMessage `json:"parameters,omitempty"`
	} `json:"function"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model            string          `json:"model"`
	Messages         []wireMessage   `json:"messages"`
	Tools            []wireTool      `json:"tools,omitempty"`
	ToolChoice       string          `json:"tool_choice,omitempty"`
	MaxTokens        int             `json:"max_tokens,omitempty"`
	Temperature      float32         `json:"temperature"`
	FrequencyPenalty float32         `json:"frequency_penalty,omitempty"`
	PresencePenalty  float32         `json:"presence_penalty,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	ResponseFormat   *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created,omitempty"`
	Choices []struct {
		Index        int         `json:"index"`
		FinishReason string      `json:"finish_reason"`
		Message      wireMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

func toWireMessages(msgs []llm.Message) []wireMessage {
	out := make([]wireMessage, len(msgs))
	for i, m := range msgs {
		out[i] = wireMessage{
			Role:       string(m.Role),
			Name:       m.Name,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			var w wireToolCall
			w.ID, w.Type = tc.ID, "function"
			w.Function.Name, w.Function.Arguments = tc.Name, string(tc.Arguments)
			out[i].ToolCalls = append(out[i].ToolCalls, w)
		}
	}
	return out
}

func toWireTools(tools []llm.ToolSchema) []wireTool {
	var out []wireTool
	for _, t := range tools {
		var w wireTool
		w.Type = "function"
		w.Function.Name, w.Function.Description, w.Function.Parameters = t.Name, t.Description, t.Parameters
		out = append(out, w)
	}
	return out
}

// toChatResponse 空的工具参数补成 {}，便于下游直接 json.Unmarshal
func (r chatResponse) toChatResponse(provider string) *llm.ChatResponse {
	out := &llm.ChatResponse{ID: r.ID, Provider: provider, Model: r.Model}
	if r.Created != 0 {
		out.CreatedAt = time.Unix(r.Created, 0)
	}
	for _, c := range r.Choices {
		msg := llm.Message{Role: llm.RoleAssistant, Content: c.Message.Content, Name: c.Message.Name}
		for _, tc := range c.Message.ToolCalls {
			args := json.RawMessage(tc.Function.Arguments)
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
		}
		out.Choices = append(out.Choices, llm.ChatChoice{Index: c.Index, FinishReason: c.FinishReason, Message: msg})
	}
	if r.Usage != nil {
		out.Usage = llm.ChatUsage{
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			TotalTokens:      r.Usage.TotalTokens,
		}
	}
	return out
}
