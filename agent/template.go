package agent

import (
	"regexp"

	"github.com/BaSui01/agentcore/llm/generation"
	"github.com/BaSui01/agentcore/types"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// ComposeContext 用 State 渲染模板中的 {{key}} 占位符，State 中不存在的键渲染为空字符串。
// 替换结果不会被再次展开。
func ComposeContext(state *types.State, tmpl types.Template) string {
	if state == nil {
		state = &types.State{}
	}
	source := tmpl.Source(*state)
	values := state.Values()
	return placeholderPattern.ReplaceAllStringFunc(source, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		return values[key]
	})
}

// 默认提示模板，角色可在 templates 中覆盖
var (
	MessageHandlerTemplate = types.Literal(`# Task: Generate dialog and actions for the character {{agentName}}.
About {{agentName}}:
{{bio}}
{{lore}}

{{knowledge}}

{{providers}}

{{attachments}}

# Capabilities
Note that {{agentName}} is capable of reading/seeing/hearing various forms of media, including images, videos, audio, plaintext and PDFs. Recent attachments have been included above under the "Attachments" section.

{{messageDirections}}

{{characterMessageExamples}}

{{actors}}

{{goals}}

# Available Actions
{{actionNames}}
{{actions}}

{{recentMessages}}

# Instructions: Write the next message for {{agentName}}.
` + generation.MessageCompletionFooter)

	ShouldRespondTemplate = types.Literal(`# Task: Decide if {{agentName}} should respond.
About {{agentName}}:
{{bio}}

# INSTRUCTIONS: Determine if {{agentName}} should respond to the message and participate in the conversation. Do not comment. Just respond with "RESPOND" or "IGNORE" or "STOP".

# RESPONSE EXAMPLES
{{user1}}: I just saw a really great movie
{{user2}}: Oh? Which movie?
Result: [IGNORE]

{{agentName}}: Oh, this is my favorite scene
{{user1}}: sick
{{user2}}: wait, why is it your favorite scene
Result: [RESPOND]

{{user1}}: stfu bot
Result: [STOP]

Response options are [RESPOND], [IGNORE] and [STOP].

{{agentName}} is in a room with other users and is very worried about being annoying and saying too much.
Respond with [RESPOND] to messages that are directed at {{agentName}}, or participate in conversations that are interesting or relevant to their background.
If a message is not interesting or relevant, respond with [IGNORE]
If a user asks {{agentName}} to be quiet, respond with [STOP]

{{recentMessages}}

# INSTRUCTIONS: Respond with [RESPOND] if {{agentName}} should respond, or [IGNORE] if {{agentName}} should not respond to the last message and [STOP] if {{agentName}} should stop participating in the conversation.
` + generation.ShouldRespondFooter)
)

// messageHandlerTemplate 角色覆盖优先
func (rt *Runtime) messageHandlerTemplate() types.Template {
	return rt.character.Templates.MessageHandlerTemplate.Or(MessageHandlerTemplate)
}

func (rt *Runtime) shouldRespondTemplate() types.Template {
	return rt.character.Templates.ShouldRespondTemplate.Or(ShouldRespondTemplate)
}
