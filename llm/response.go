package llm

import (
	"strings"

	"github.com/BaSui01/agentcore/types"
)

// Choice 返回第一个候选，响应为空或没有候选时返回 ErrGenerationFailed
func (r *ChatResponse) Choice() (ChatChoice, error) {
	switch {
	case r == nil:
		return ChatChoice{}, types.NewError(types.ErrGenerationFailed, "no response from provider")
	case len(r.Choices) == 0:
		return ChatChoice{}, types.NewError(types.ErrGenerationFailed, "provider returned no choices").
			WithProvider(r.Provider)
	}
	return r.Choices[0], nil
}

// Text 第一个候选的文本，去除首尾空白
func (r *ChatResponse) Text() (string, error) {
	c, err := r.Choice()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(c.Message.Content), nil
}

// Truncated 模型因 max_tokens 截断时为 true
func (c ChatChoice) Truncated() bool {
	return c.FinishReason == "length"
}
