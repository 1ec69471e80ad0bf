package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BaSui01/agentcore/testutil/fixtures"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeState(t *testing.T) {
	ctx := context.Background()
	walletProvider := &ProviderFunc{ProviderName: "wallet", GetFn: func(context.Context, *Runtime, *types.Memory, *types.State) (string, error) {
		return "Wallet balance: 42 SEI", nil
	}}
	brokenProvider := &ProviderFunc{ProviderName: "broken", GetFn: func(context.Context, *Runtime, *types.Memory, *types.State) (string, error) {
		return "", errors.New("rpc unavailable")
	}}
	echo := &ActionFunc{
		ActionName:        "ECHO",
		ActionDescription: "Repeat the user's message",
		ActionExamples: [][]types.ActionExample{{
			{User: "{{user1}}", Content: types.Content{Text: "repeat after me"}},
			{User: "{{user2}}", Content: types.Content{Text: "repeat after me", Action: "ECHO"}},
		}},
	}
	hidden := &ActionFunc{ActionName: "HIDDEN", ValidateFn: func(context.Context, *Runtime, *types.Memory, *types.State) (bool, error) {
		return false, nil
	}}
	rt, _ := newTestRuntime(t, nil, Options{
		Actions:    []Action{echo, hidden},
		Evaluators: []Evaluator{&EvaluatorFunc{EvaluatorName: "FACTS", EvaluatorDescription: "Extract facts"}},
		Providers:  []Provider{walletProvider, brokenProvider},
	})

	user, room := uuid.New(), uuid.New()
	require.NoError(t, rt.EnsureConnection(ctx, user, room, "bob", "Bob"))
	for _, m := range fixtures.Conversation(user, rt.AgentID(), room, 3) {
		_, err := rt.MessageManager().CreateMemory(ctx, m, false)
		require.NoError(t, err)
	}
	_, err := CreateGoal(ctx, rt.Store(), types.Goal{
		RoomID: room,
		UserID: user,
		Name:   "Check wallet",
		Objectives: []types.Objective{
			{Description: "Find the address", Completed: true},
			{Description: "Read the balance"},
		},
	})
	require.NoError(t, err)

	msg := fixtures.MessageMemory(user, rt.AgentID(), room, "how much sei do I have?")
	state, err := rt.ComposeState(ctx, msg, map[string]any{"network": "pacific-1"})
	require.NoError(t, err)

	assert.Len(t, state.RecentMessagesData, 3)
	assert.Len(t, state.GoalsData, 1)
	assert.Len(t, state.RecentInteractionsData, 3)
	assert.Len(t, state.ActorsData, 2)

	assert.Equal(t, "Ada", state.AgentName)
	assert.Equal(t, "Bob", state.SenderName)
	assert.Equal(t, "precise", state.Adjective)
	assert.Equal(t, "Ada is interested in distributed systems, databases and tea", state.Topics)
	assert.Contains(t, state.Bio, "Ada studies distributed systems.")
	assert.Contains(t, state.Goals, "- [x] Find the address (DONE)")
	assert.Contains(t, state.Goals, "- [ ] Read the balance (IN PROGRESS)")
	assert.Contains(t, state.RecentMessages, "# Conversation Messages")
	assert.Contains(t, state.RecentMessages, "Bob: message 0")
	assert.Contains(t, state.CharacterMessageExamples, "Alex: What is a quorum?")
	assert.Contains(t, state.MessageDirections, "ask clarifying questions")
	assert.NotContains(t, state.MessageDirections, "use lowercase")

	assert.Equal(t, "# Additional Information About Ada and The World\nWallet balance: 42 SEI\n", state.Providers)

	assert.Equal(t, []string{"ECHO"}, state.ActionsData)
	assert.Equal(t, "Possible response actions: ECHO", state.ActionNames)
	assert.Contains(t, state.ActionExamples, "Jordan: repeat after me (action: ECHO)")
	assert.Equal(t, []string{"FACTS"}, state.EvaluatorsData)
	assert.Contains(t, state.Evaluators, "'FACTS: Extract facts'")

	assert.Equal(t, "pacific-1", state.Values()["network"])
}

func TestComposeState_CapabilityPanicsAreIsolated(t *testing.T) {
	panicky := func(context.Context, *Runtime, *types.Memory, *types.State) (bool, error) {
		panic("validate boom")
	}
	rt, _ := newTestRuntime(t, nil, Options{
		Actions: []Action{
			&ActionFunc{ActionName: "BROKEN", ValidateFn: panicky},
			&ActionFunc{ActionName: "ECHO"},
		},
		Evaluators: []Evaluator{
			&EvaluatorFunc{EvaluatorName: "BROKEN_EVAL", ValidateFn: panicky},
			&EvaluatorFunc{EvaluatorName: "FACTS"},
		},
		Providers: []Provider{
			&ProviderFunc{ProviderName: "crash", GetFn: func(context.Context, *Runtime, *types.Memory, *types.State) (string, error) {
				panic("provider boom")
			}},
			&ProviderFunc{ProviderName: "time", GetFn: func(context.Context, *Runtime, *types.Memory, *types.State) (string, error) {
				return "It is noon.", nil
			}},
		},
	})
	msg := fixtures.MessageMemory(uuid.New(), rt.AgentID(), uuid.New(), "hello")

	var state *types.State
	var err error
	require.NotPanics(t, func() { state, err = rt.ComposeState(context.Background(), msg, nil) })
	require.NoError(t, err)
	assert.Equal(t, []string{"ECHO"}, state.ActionsData)
	assert.Equal(t, []string{"FACTS"}, state.EvaluatorsData)
	assert.Contains(t, state.Providers, "It is noon.")
}

func TestComposeState_EmptyRoom(t *testing.T) {
	rt, _ := newTestRuntime(t, nil, Options{Character: fixtures.MinimalCharacter("Solo")})
	msg := types.Memory{ID: uuid.New(), UserID: uuid.New(), RoomID: uuid.New(), Content: types.Content{Text: "hello"}}

	state, err := rt.ComposeState(context.Background(), msg, nil)
	require.NoError(t, err)
	assert.Empty(t, state.RecentMessagesData)
	assert.Empty(t, state.RecentMessages)
	assert.Empty(t, state.Goals)
	assert.Empty(t, state.Knowledge)
	assert.Empty(t, state.ActionNames)
	assert.Equal(t, unknownUser, state.SenderName)
}

func TestComposeState_LegacyKnowledge(t *testing.T) {
	ctx := context.Background()
	c := fixtures.DefaultCharacter()
	c.Knowledge = []types.KnowledgeSource{{Text: "Sei is a layer one blockchain optimized for trading."}}
	rt, _ := newTestRuntime(t, nil, Options{Character: c})
	require.NoError(t, rt.Initialize(ctx))

	msg := fixtures.MessageMemory(uuid.New(), rt.AgentID(), uuid.New(), "Sei is a layer one blockchain optimized for trading.")
	state, err := rt.ComposeState(ctx, msg, nil)
	require.NoError(t, err)
	require.Len(t, state.KnowledgeData, 1)
	assert.Equal(t, "# Knowledge\n- Sei is a layer one blockchain optimized for trading.\n", state.Knowledge)
}

func TestUpdateRecentMessageState(t *testing.T) {
	ctx := context.Background()
	rt, _ := newTestRuntime(t, nil, Options{})
	user, room := uuid.New(), uuid.New()
	require.NoError(t, rt.EnsureConnection(ctx, user, room, "bob", "Bob"))

	state, err := rt.ComposeState(ctx, types.Memory{UserID: user, RoomID: room, Content: types.Content{Text: "first"}}, nil)
	require.NoError(t, err)
	require.Empty(t, state.RecentMessagesData)

	m := fixtures.MessageMemory(user, rt.AgentID(), room, "hello again")
	m.CreatedAt = time.Now().Add(-2 * time.Minute).UnixMilli()
	_, err = rt.MessageManager().CreateMemory(ctx, m, false)
	require.NoError(t, err)

	next, err := rt.UpdateRecentMessageState(ctx, state)
	require.NoError(t, err)
	assert.Len(t, next.RecentMessagesData, 1)
	assert.Contains(t, next.RecentMessages, "(2 minutes ago)")
	assert.Contains(t, next.RecentMessages, "Bob: hello again")
	assert.Empty(t, state.RecentMessagesData)
}
