// =============================================================================
// 📦 测试数据工厂 - LLM 响应测试数据
// =============================================================================
// 提供工具调用与模型输出文本样例，用于测试
// =============================================================================
package fixtures

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/agentcore/llm"
)

// =============================================================================
// 🔧 工具调用
// =============================================================================

// ToolCall 构造工具调用，args 会被序列化为 JSON
func ToolCall(id, name string, args any) llm.ToolCall {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return llm.ToolCall{ID: id, Name: name, Arguments: raw}
}

// =============================================================================
// 💬 模型输出文本
// =============================================================================

// MessageResponseJSON 返回 messageCompletionFooter 格式的模型输出
func MessageResponseJSON(user, text, action string) string {
	return fmt.Sprintf("```json\n{ \"user\": %q, \"text\": %q, \"action\": %q }\n```", user, text, action)
}

// FencedJSON 将任意值包裹为 ```json 代码块
func FencedJSON(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	return "```json\n" + string(raw) + "\n```"
}
