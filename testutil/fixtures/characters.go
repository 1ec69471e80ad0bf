package fixtures

import (
	"fmt"
	"time"

	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
)

// DefaultCharacter 返回一个字段齐全的测试角色卡
func DefaultCharacter() *types.Character {
	return &types.Character{
		ID:            types.StringToUUID("Ada"),
		Name:          "Ada",
		Username:      "ada",
		ModelProvider: types.ProviderOpenAI,
		System:        "You are Ada, a careful research assistant.",
		Bio: []string{
			"Ada studies distributed systems.",
			"Ada keeps meticulous notes.",
			"Ada answers with concise explanations.",
		},
		Lore: []string{
			"Ada once debugged a consensus bug at 3am.",
			"Ada prefers tea over coffee.",
		},
		MessageExamples: [][]types.MessageExample{
			{
				{User: "{{user1}}", Content: types.Content{Text: "What is a quorum?"}},
				{User: "Ada", Content: types.Content{Text: "A majority of replicas that must agree."}},
			},
		},
		PostExamples: []string{"Consensus is just agreement with paperwork."},
		Topics:       []string{"distributed systems", "databases", "tea"},
		Adjectives:   []string{"precise", "curious"},
		Style: types.CharacterStyle{
			All:  []string{"be concise"},
			Chat: []string{"ask clarifying questions"},
			Post: []string{"use lowercase"},
		},
	}
}

// MinimalCharacter 返回只包含必要字段的角色卡
func MinimalCharacter(name string) *types.Character {
	return &types.Character{
		ID:            types.StringToUUID(name),
		Name:          name,
		ModelProvider: types.ProviderOpenAI,
	}
}

// MessageMemory 构造消息记忆
func MessageMemory(userID, agentID, roomID uuid.UUID, text string) types.Memory {
	return types.Memory{
		ID:        uuid.New(),
		UserID:    userID,
		AgentID:   agentID,
		RoomID:    roomID,
		Content:   types.Content{Text: text},
		CreatedAt: time.Now().UnixMilli(),
	}
}

// Conversation 构造按时间递增的记忆序列，奇数条由 agent 发出
func Conversation(userID, agentID, roomID uuid.UUID, turns int) []types.Memory {
	base := time.Now().Add(-time.Duration(turns) * time.Minute).UnixMilli()
	out := make([]types.Memory, 0, turns)
	for i := 0; i < turns; i++ {
		sender := userID
		if i%2 == 1 {
			sender = agentID
		}
		m := MessageMemory(sender, agentID, roomID, fmt.Sprintf("message %d", i))
		m.CreatedAt = base + int64(i)*60_000
		out = append(out, m)
	}
	return out
}
