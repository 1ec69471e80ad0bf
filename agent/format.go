package agent

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
)

// exampleNames 替换示例中 {{user1}}..{{user5}} 占位符的固定名字，保证提示词可复现
var exampleNames = []string{"Alex", "Jordan", "Sam", "Riley", "Morgan"}

const unknownUser = "Unknown User"

// AddHeader body 非空时返回 "header\nbody\n"，否则返回空字符串
func AddHeader(header, body string) string {
	if body == "" {
		return ""
	}
	if header == "" {
		return body + "\n"
	}
	return header + "\n" + body + "\n"
}

// ReplaceExampleUsers 把 {{userN}} 占位符替换为固定示例名
func ReplaceExampleUsers(text string) string {
	for i, name := range exampleNames {
		text = strings.ReplaceAll(text, fmt.Sprintf("{{user%d}}", i+1), name)
	}
	return text
}

func shortID(id uuid.UUID) string {
	s := id.String()
	return s[len(s)-5:]
}

func actorByID(actors []types.Actor, id uuid.UUID) (types.Actor, bool) {
	i := slices.IndexFunc(actors, func(a types.Actor) bool { return a.ID == id })
	if i < 0 {
		return types.Actor{}, false
	}
	return actors[i], true
}

// FormatActors 每个参与者一行名字（含 tagline），summary 另起一行
func FormatActors(actors []types.Actor) string {
	lines := make([]string, 0, len(actors))
	for _, a := range actors {
		var sb strings.Builder
		sb.WriteString(a.Name)
		if a.Details.Tagline != "" {
			sb.WriteString(": ")
			sb.WriteString(a.Details.Tagline)
		}
		if a.Details.Summary != "" {
			sb.WriteString("\n")
			sb.WriteString(a.Details.Summary)
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// FormatTimestamp 把毫秒时间戳格式化为相对 now 的描述
func FormatTimestamp(createdAt int64, now time.Time) string {
	diff := now.Sub(time.UnixMilli(createdAt))
	if diff < 0 {
		diff = 0
	}
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff/time.Minute), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff/time.Hour), "hour")
	default:
		return plural(int(diff/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// FormatMessages 按时间正序格式化消息。messages 为 GetMemories 返回的最新在前顺序。
func FormatMessages(messages []types.Memory, actors []types.Actor, now time.Time) string {
	lines := make([]string, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.UserID == uuid.Nil {
			continue
		}
		name := unknownUser
		if a, ok := actorByID(actors, m.UserID); ok {
			name = a.Name
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "(%s) [%s] %s: %s", FormatTimestamp(m.CreatedAt, now), shortID(m.UserID), name, m.Content.Text)
		if len(m.Content.Attachments) > 0 {
			refs := make([]string, 0, len(m.Content.Attachments))
			for _, media := range m.Content.Attachments {
				refs = append(refs, fmt.Sprintf("[%s - %s (%s)]", media.ID, media.Title, media.URL))
			}
			fmt.Fprintf(&sb, " (Attachments: %s)", strings.Join(refs, ", "))
		}
		if m.Content.Action != "" && m.Content.Action != "null" {
			fmt.Fprintf(&sb, " (%s)", m.Content.Action)
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// FormatPosts 按房间分组格式化帖子，组内按时间正序；conversationHeader 为 true 时每组带房间标识
func FormatPosts(messages []types.Memory, actors []types.Actor, conversationHeader bool, now time.Time) string {
	var rooms []uuid.UUID
	groups := make(map[uuid.UUID][]types.Memory)
	for _, m := range messages {
		if m.RoomID == uuid.Nil {
			continue
		}
		if _, seen := groups[m.RoomID]; !seen {
			rooms = append(rooms, m.RoomID)
		}
		groups[m.RoomID] = append(groups[m.RoomID], m)
	}

	out := make([]string, 0, len(rooms))
	for _, roomID := range rooms {
		posts := slices.Clone(groups[roomID])
		slices.SortStableFunc(posts, func(a, b types.Memory) int {
			switch {
			case a.CreatedAt < b.CreatedAt:
				return -1
			case a.CreatedAt > b.CreatedAt:
				return 1
			}
			return 0
		})
		formatted := make([]string, 0, len(posts))
		for _, m := range posts {
			name, username := unknownUser, "unknown"
			if a, ok := actorByID(actors, m.UserID); ok {
				name = a.Name
				if a.Username != "" {
					username = a.Username
				}
			}
			var sb strings.Builder
			fmt.Fprintf(&sb, "Name: %s (@%s)\nID: %s", name, username, m.ID)
			if m.Content.InReplyTo != uuid.Nil {
				fmt.Fprintf(&sb, "\nIn reply to: %s", m.Content.InReplyTo)
			}
			fmt.Fprintf(&sb, "\nDate: %s\nText:\n%s", FormatTimestamp(m.CreatedAt, now), m.Content.Text)
			formatted = append(formatted, sb.String())
		}
		block := strings.Join(formatted, "\n\n")
		if conversationHeader {
			block = "Conversation: " + shortID(roomID) + "\n" + block
		}
		out = append(out, block)
	}
	return strings.Join(out, "\n\n")
}

// FormatAttachments 列出消息中的附件
func FormatAttachments(messages []types.Memory) string {
	var blocks []string
	for i := len(messages) - 1; i >= 0; i-- {
		for _, media := range messages[i].Content.Attachments {
			blocks = append(blocks, fmt.Sprintf("ID: %s\nName: %s\nURL: %s\nType: %s\nDescription: %s\nText: %s",
				media.ID, media.Title, media.URL, media.Source, media.Description, media.Text))
		}
	}
	return strings.Join(blocks, "\n\n")
}

// FormatActionNames 动作名以逗号分隔
func FormatActionNames(actions []Action) string {
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, a.Name())
	}
	return strings.Join(names, ", ")
}

// FormatActions 每行 "名称: 描述"
func FormatActions(actions []Action) string {
	lines := make([]string, 0, len(actions))
	for _, a := range actions {
		lines = append(lines, a.Name()+": "+a.Description())
	}
	return strings.Join(lines, ",\n")
}

// ComposeActionExamples 按注册顺序取最多 count 个示例对话
func ComposeActionExamples(actions []Action, count int) string {
	var examples [][]types.ActionExample
	for _, a := range actions {
		for _, ex := range a.Examples() {
			if len(examples) >= count {
				break
			}
			examples = append(examples, ex)
		}
	}
	blocks := make([]string, 0, len(examples))
	for _, ex := range examples {
		lines := make([]string, 0, len(ex))
		for _, msg := range ex {
			line := msg.User + ": " + msg.Content.Text
			if msg.Content.Action != "" {
				line += " (action: " + msg.Content.Action + ")"
			}
			lines = append(lines, ReplaceExampleUsers(line))
		}
		blocks = append(blocks, "\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n")
}

// FormatEvaluatorNames 评估器名加引号，逐行列出
func FormatEvaluatorNames(evaluators []Evaluator) string {
	names := make([]string, 0, len(evaluators))
	for _, e := range evaluators {
		names = append(names, "'"+e.Name()+"'")
	}
	return strings.Join(names, ",\n")
}

// FormatEvaluators 每行 "'名称: 描述'"
func FormatEvaluators(evaluators []Evaluator) string {
	lines := make([]string, 0, len(evaluators))
	for _, e := range evaluators {
		lines = append(lines, "'"+e.Name()+": "+e.Description()+"'")
	}
	return strings.Join(lines, ",\n")
}

// FormatEvaluatorExamples 每个示例展开为上下文、消息与结果三段
func FormatEvaluatorExamples(evaluators []Evaluator) string {
	var blocks []string
	for _, e := range evaluators {
		for _, ex := range e.Examples() {
			msgs := make([]string, 0, len(ex.Messages))
			for _, m := range ex.Messages {
				line := m.User + ": " + m.Content.Text
				if m.Content.Action != "" {
					line += " (" + m.Content.Action + ")"
				}
				msgs = append(msgs, ReplaceExampleUsers(line))
			}
			blocks = append(blocks, fmt.Sprintf("Context:\n%s\n\nMessages:\n%s\n\nOutcome:\n%s",
				ReplaceExampleUsers(ex.Context), strings.Join(msgs, "\n"), ReplaceExampleUsers(ex.Outcome)))
		}
	}
	return strings.Join(blocks, "\n\n")
}

// FormatKnowledge 知识条目逐条列出
func FormatKnowledge(items []types.KnowledgeItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+strings.TrimSpace(item.Content.Text))
	}
	return strings.Join(lines, "\n")
}

// formatCharacterMessageExamples 格式化角色示例对话
func formatCharacterMessageExamples(examples [][]types.MessageExample) string {
	blocks := make([]string, 0, len(examples))
	for _, ex := range examples {
		lines := make([]string, 0, len(ex))
		for _, msg := range ex {
			line := msg.User + ": " + msg.Content.Text
			if msg.Content.Action != "" {
				line += " (" + msg.Content.Action + ")"
			}
			lines = append(lines, ReplaceExampleUsers(line))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// formatList "a, b and c"
func formatList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
