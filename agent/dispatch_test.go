package agent

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/agentcore/llm/generation"
	"github.com/BaSui01/agentcore/memory"
	"github.com/BaSui01/agentcore/testutil"
	"github.com/BaSui01/agentcore/testutil/fixtures"
	"github.com/BaSui01/agentcore/testutil/mocks"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(action string) types.Memory {
	return types.Memory{ID: uuid.New(), Content: types.Content{Text: "ok", Action: action}}
}

func TestProcessActions_FailureIsolation(t *testing.T) {
	ctx := context.Background()
	var recorded atomic.Int32
	actions := []Action{
		&ActionFunc{ActionName: "FAIL", HandleFn: func(context.Context, *Runtime, *types.Memory, *types.State, HandlerCallback) error {
			return errors.New("handler exploded")
		}},
		&ActionFunc{ActionName: "PANIC", HandleFn: func(context.Context, *Runtime, *types.Memory, *types.State, HandlerCallback) error {
			panic("boom")
		}},
		&ActionFunc{ActionName: "GUARDED", ValidateFn: func(context.Context, *Runtime, *types.Memory, *types.State) (bool, error) {
			return false, nil
		}, HandleFn: func(context.Context, *Runtime, *types.Memory, *types.State, HandlerCallback) error {
			t.Error("rejected action must not run")
			return nil
		}},
		&ActionFunc{ActionName: "RECORD", ActionSimiles: []string{"NOTE"}, HandleFn: func(ctx context.Context, _ *Runtime, _ *types.Memory, _ *types.State, cb HandlerCallback) error {
			recorded.Add(1)
			_, err := cb(ctx, types.Content{Text: "noted"})
			return err
		}},
	}
	rt, _ := newTestRuntime(t, nil, Options{Actions: actions})

	cb := func(_ context.Context, c types.Content) ([]types.Memory, error) {
		return []types.Memory{{ID: uuid.New(), Content: c}}, nil
	}
	responses := []types.Memory{
		response("FAIL"), response("PANIC"), response("GUARDED"), response("note"),
		response("MISSING"), response("NONE"), response(""),
	}
	reports, err := rt.ProcessActions(ctx, &types.Memory{ID: uuid.New()}, responses, &types.State{}, cb)
	require.NoError(t, err)
	require.Len(t, reports, 5)

	want := []struct {
		action string
		status ActionStatus
	}{
		{"FAIL", ActionFailed},
		{"PANIC", ActionFailed},
		{"GUARDED", ActionRejected},
		{"RECORD", ActionCompleted},
		{"MISSING", ActionUnknown},
	}
	for i, w := range want {
		assert.Equal(t, w.action, reports[i].Action)
		assert.Equal(t, w.status, reports[i].Status, w.action)
	}
	assert.ErrorContains(t, reports[1].Err, "boom")
	assert.Equal(t, int32(1), recorded.Load())
	require.Len(t, reports[3].Emitted, 1)
	assert.Equal(t, "noted", reports[3].Emitted[0].Content.Text)
}

func TestProcessActions_CancelledContext(t *testing.T) {
	rt, _ := newTestRuntime(t, nil, Options{Actions: []Action{&ActionFunc{ActionName: "ECHO"}}})

	reports, err := rt.ProcessActions(testutil.Canceled(), &types.Memory{}, []types.Memory{response("ECHO")}, &types.State{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reports)
}

func TestEvaluate_Gating(t *testing.T) {
	ctx := context.Background()
	evaluators := []Evaluator{
		&EvaluatorFunc{EvaluatorName: "ALWAYS", Always: true},
		&EvaluatorFunc{EvaluatorName: "ON_RESPONSE"},
		&EvaluatorFunc{EvaluatorName: "INVALID", Always: true, ValidateFn: func(context.Context, *Runtime, *types.Memory, *types.State) (bool, error) {
			return false, nil
		}},
		&EvaluatorFunc{EvaluatorName: "BROKEN", HandleFn: func(context.Context, *Runtime, *types.Memory, *types.State, HandlerCallback) error {
			return errors.New("evaluator failed")
		}},
	}
	rt, _ := newTestRuntime(t, nil, Options{Evaluators: evaluators})

	tests := []struct {
		name       string
		didRespond bool
		want       []string
	}{
		{"no response", false, []string{"ALWAYS"}},
		{"responded", true, []string{"ALWAYS", "ON_RESPONSE", "BROKEN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ran, err := rt.Evaluate(ctx, &types.Memory{}, &types.State{}, tt.didRespond, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ran)
		})
	}
}

func TestHandleMessage_RespondsAndRunsActions(t *testing.T) {
	ctx := context.Background()
	provider := mocks.Scripted(fixtures.MessageResponseJSON("Ada", "Echoing that back.", "ECHO"))

	var seen atomic.Int32
	echo := &ActionFunc{
		ActionName:        "ECHO",
		ActionDescription: "Repeat the user's message",
		HandleFn: func(ctx context.Context, _ *Runtime, msg *types.Memory, _ *types.State, cb HandlerCallback) error {
			_, err := cb(ctx, types.Content{Text: "echo: " + msg.Content.Text})
			return err
		},
	}
	tracker := &EvaluatorFunc{EvaluatorName: "TRACKER", HandleFn: func(context.Context, *Runtime, *types.Memory, *types.State, HandlerCallback) error {
		seen.Add(1)
		return nil
	}}
	rt, _ := newTestRuntime(t, provider, Options{Actions: []Action{echo}, Evaluators: []Evaluator{tracker}})

	user, room := uuid.New(), uuid.New()
	require.NoError(t, rt.EnsureConnection(ctx, user, room, "bob", "Bob"))

	var emitted []types.Content
	turn, err := rt.HandleMessage(ctx, types.Memory{
		UserID:  user,
		RoomID:  room,
		Content: types.Content{Text: "say it back"},
	}, MessageOptions{Callback: func(_ context.Context, c types.Content) ([]types.Memory, error) {
		emitted = append(emitted, c)
		return nil, nil
	}})
	require.NoError(t, err)

	require.NotNil(t, turn.Response)
	assert.Equal(t, generation.ShouldRespondRespond, turn.ShouldRespond)
	assert.Equal(t, "Echoing that back.", turn.Response.Content.Text)
	assert.Equal(t, rt.AgentID(), turn.Response.UserID)
	assert.NotEqual(t, uuid.Nil, turn.Response.Content.InReplyTo)

	require.Len(t, turn.Actions, 1)
	assert.Equal(t, ActionCompleted, turn.Actions[0].Status)
	require.Len(t, emitted, 1)
	assert.Equal(t, "echo: say it back", emitted[0].Text)
	assert.Equal(t, []string{"TRACKER"}, turn.Evaluators)
	assert.Equal(t, int32(1), seen.Load())

	stored, err := rt.MessageManager().GetMemories(ctx, memory.GetOptions{RoomID: room})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Len(t, turn.State.RecentMessagesData, 2)

	prompt := provider.LastRequest().Messages
	require.NotEmpty(t, prompt)
	last := prompt[len(prompt)-1].Content
	assert.Contains(t, last, "# Task: Generate dialog and actions for the character Ada.")
	assert.Contains(t, last, "ECHO: Repeat the user's message")
	assert.Contains(t, last, "Bob: say it back")
	assert.NotContains(t, last, "{{")
}

func TestHandleMessage_ShouldRespondIgnore(t *testing.T) {
	ctx := context.Background()
	provider := mocks.Scripted("[IGNORE]")
	evaluators := []Evaluator{
		&EvaluatorFunc{EvaluatorName: "ALWAYS", Always: true},
		&EvaluatorFunc{EvaluatorName: "ON_RESPONSE"},
	}
	rt, _ := newTestRuntime(t, provider, Options{Evaluators: evaluators})
	user, room := uuid.New(), uuid.New()
	require.NoError(t, rt.EnsureConnection(ctx, user, room, "bob", "Bob"))

	turn, err := rt.HandleMessage(ctx, types.Memory{UserID: user, RoomID: room, Content: types.Content{Text: "talking to someone else"}},
		MessageOptions{CheckShouldRespond: true})
	require.NoError(t, err)

	assert.Nil(t, turn.Response)
	assert.Equal(t, generation.ShouldRespondIgnore, turn.ShouldRespond)
	assert.Equal(t, []string{"ALWAYS"}, turn.Evaluators)
	assert.Equal(t, 1, provider.Calls())

	prompt := provider.LastRequest().Messages
	last := prompt[len(prompt)-1].Content
	assert.Contains(t, last, "Alex: I just saw a really great movie")
	assert.False(t, strings.Contains(last, "{{user1}}"))

	stored, err := rt.MessageManager().GetMemories(ctx, memory.GetOptions{RoomID: room})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestHandleMessage_RequiresGenerator(t *testing.T) {
	rt, _ := newTestRuntime(t, nil, Options{})
	_, err := rt.HandleMessage(context.Background(), types.Memory{Content: types.Content{Text: "hi"}}, MessageOptions{})
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
}

func TestHandleMessage_GenerationFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	provider := mocks.Failing(errors.New("upstream down"))
	rt, _ := newTestRuntime(t, provider, Options{})

	_, err := rt.HandleMessage(ctx, types.Memory{UserID: uuid.New(), RoomID: uuid.New(), Content: types.Content{Text: "hello"}}, MessageOptions{})
	assert.Error(t, err)
}
