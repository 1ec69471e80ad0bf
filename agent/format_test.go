package agent

import (
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAddHeader(t *testing.T) {
	assert.Equal(t, "", AddHeader("# Goals", ""))
	assert.Equal(t, "# Goals\nbody\n", AddHeader("# Goals", "body"))
	assert.Equal(t, "body\n", AddHeader("", "body"))
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{-time.Minute, "just now"},
		{time.Minute, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{time.Hour, "1 hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{72 * time.Hour, "3 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimestamp(now.Add(-tt.ago).UnixMilli(), now))
		})
	}
}

func TestFormatMessages(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	alice := types.Actor{ID: uuid.MustParse("00000000-0000-0000-0000-0000000aaaaa"), Name: "Alice"}
	agent := types.Actor{ID: uuid.MustParse("00000000-0000-0000-0000-0000000bbbbb"), Name: "Ada"}

	// GetMemories 返回最新在前
	messages := []types.Memory{
		{UserID: agent.ID, CreatedAt: now.UnixMilli(), Content: types.Content{Text: "It is 42 SEI.", Action: "GET_BALANCE"}},
		{UserID: uuid.Nil, CreatedAt: now.UnixMilli(), Content: types.Content{Text: "system note"}},
		{UserID: alice.ID, CreatedAt: now.Add(-3 * time.Minute).UnixMilli(), Content: types.Content{
			Text:        "What's my balance?",
			Attachments: []types.Media{{ID: "img1", Title: "screenshot", URL: "https://example.com/a.png"}},
		}},
		{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000ccccc"), CreatedAt: now.Add(-time.Hour).UnixMilli(), Content: types.Content{Text: "hi", Action: "null"}},
	}

	want := "(1 hour ago) [ccccc] Unknown User: hi\n" +
		"(3 minutes ago) [aaaaa] Alice: What's my balance? (Attachments: [img1 - screenshot (https://example.com/a.png)])\n" +
		"(just now) [bbbbb] Ada: It is 42 SEI. (GET_BALANCE)"
	assert.Equal(t, want, FormatMessages(messages, []types.Actor{alice, agent}, now))
	assert.Equal(t, "", FormatMessages(nil, nil, now))
}

func TestFormatPosts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	alice := types.Actor{ID: uuid.New(), Name: "Alice", Username: "alice"}
	room := uuid.MustParse("00000000-0000-0000-0000-000000012345")
	reply := uuid.New()

	messages := []types.Memory{
		{ID: reply, UserID: alice.ID, RoomID: room, CreatedAt: now.UnixMilli(), Content: types.Content{Text: "second", InReplyTo: uuid.MustParse("00000000-0000-0000-0000-000000000001")}},
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), UserID: alice.ID, RoomID: room, CreatedAt: now.Add(-time.Minute).UnixMilli(), Content: types.Content{Text: "first"}},
	}
	got := FormatPosts(messages, []types.Actor{alice}, true, now)

	assert.Contains(t, got, "Conversation: 12345\n")
	assert.Contains(t, got, "Name: Alice (@alice)\nID: 00000000-0000-0000-0000-000000000001\nDate: 1 minute ago\nText:\nfirst")
	assert.Contains(t, got, "In reply to: 00000000-0000-0000-0000-000000000001")
	assert.Less(t, strings.Index(got, "Text:\nfirst"), strings.Index(got, "Text:\nsecond"))
}

func TestFormatActors(t *testing.T) {
	actors := []types.Actor{
		{Name: "Alice", Details: types.ActorDetails{Tagline: "Validator operator", Summary: "Runs three nodes."}},
		{Name: "Bob"},
	}
	assert.Equal(t, "Alice: Validator operator\nRuns three nodes.\nBob", FormatActors(actors))
}

func TestActionFormatting(t *testing.T) {
	actions := []Action{
		&ActionFunc{ActionName: "GET_BALANCE", ActionDescription: "Read a wallet balance", ActionExamples: [][]types.ActionExample{
			{
				{User: "{{user1}}", Content: types.Content{Text: "balance of sei1abc?"}},
				{User: "{{user2}}", Content: types.Content{Text: "checking", Action: "GET_BALANCE"}},
			},
			{
				{User: "{{user1}}", Content: types.Content{Text: "how much usei?"}},
			},
		}},
		&ActionFunc{ActionName: "NONE", ActionDescription: "Do nothing"},
	}

	assert.Equal(t, "GET_BALANCE, NONE", FormatActionNames(actions))
	assert.Equal(t, "GET_BALANCE: Read a wallet balance,\nNONE: Do nothing", FormatActions(actions))
	assert.Equal(t, "\nAlex: balance of sei1abc?\nJordan: checking (action: GET_BALANCE)", ComposeActionExamples(actions, 1))
	assert.Equal(t,
		"\nAlex: balance of sei1abc?\nJordan: checking (action: GET_BALANCE)\n\nAlex: how much usei?",
		ComposeActionExamples(actions, 10))
}

func TestEvaluatorFormatting(t *testing.T) {
	evaluators := []Evaluator{
		&EvaluatorFunc{EvaluatorName: "FACTS", EvaluatorDescription: "Extract facts", EvaluatorExamples: []types.EvaluationExample{{
			Context:  "{{user1}} talks about staking",
			Messages: []types.ActionExample{{User: "{{user1}}", Content: types.Content{Text: "I stake 10 SEI"}}},
			Outcome:  "{{user1}} stakes SEI",
		}}},
		&EvaluatorFunc{EvaluatorName: "GOALS", EvaluatorDescription: "Update goals"},
	}

	assert.Equal(t, "'FACTS',\n'GOALS'", FormatEvaluatorNames(evaluators))
	assert.Equal(t, "'FACTS: Extract facts',\n'GOALS: Update goals'", FormatEvaluators(evaluators))
	assert.Equal(t, "Context:\nAlex talks about staking\n\nMessages:\nAlex: I stake 10 SEI\n\nOutcome:\nAlex stakes SEI", FormatEvaluatorExamples(evaluators))
}

func TestFormatKnowledge(t *testing.T) {
	items := []types.KnowledgeItem{
		{Content: types.Content{Text: " Sei is fast. "}},
		{Content: types.Content{Text: "Gas is paid in usei."}},
	}
	assert.Equal(t, "- Sei is fast.\n- Gas is paid in usei.", FormatKnowledge(items))
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "", formatList(nil))
	assert.Equal(t, "tea", formatList([]string{"tea"}))
	assert.Equal(t, "a and b", formatList([]string{"a", "b"}))
	assert.Equal(t, "a, b and c", formatList([]string{"a", "b", "c"}))
}

func TestReplaceExampleUsers(t *testing.T) {
	assert.Equal(t, "Alex asks Jordan, Morgan listens", ReplaceExampleUsers("{{user1}} asks {{user2}}, {{user5}} listens"))
	assert.Equal(t, "{{user6}}", ReplaceExampleUsers("{{user6}}"))
}
