package agent

import (
	"context"

	"github.com/BaSui01/agentcore/types"
)

// HandlerCallback 动作或评估器发出后续消息的回调，返回本次写入的记忆，
// 调用方据此观察处理器产生的效果。
type HandlerCallback func(ctx context.Context, content types.Content) ([]types.Memory, error)

// Action 由模型回复中的 action 名称触发的能力单元
type Action interface {
	Name() string
	// Similes 动作别名，匹配时与 Name 同等对待
	Similes() []string
	Description() string
	Examples() [][]types.ActionExample
	// Validate 判断当前消息是否满足执行条件
	Validate(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State) (bool, error)
	Handle(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State, cb HandlerCallback) error
}

// Evaluator 每轮对话结束后运行的评估器，可修改记忆与目标
type Evaluator interface {
	Name() string
	Similes() []string
	Description() string
	Examples() []types.EvaluationExample
	// AlwaysRun 为 true 时即使 agent 本轮未回复也会运行
	AlwaysRun() bool
	Validate(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State) (bool, error)
	Handle(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State, cb HandlerCallback) error
}

// Provider 为 State 提供额外上下文文本
type Provider interface {
	Name() string
	Get(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State) (string, error)
}

// Plugin 一组动作、评估器与提供者
type Plugin struct {
	Name        string
	Description string
	Actions     []Action
	Evaluators  []Evaluator
	Providers   []Provider
}

// ActionStatus 单个动作的处理结果
type ActionStatus string

const (
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
	ActionRejected  ActionStatus = "rejected"
	ActionUnknown   ActionStatus = "unknown"
)

// ActionReport ProcessActions 中每个回复的处理记录
type ActionReport struct {
	Action string
	Status ActionStatus
	// Emitted 处理器通过回调写入的记忆
	Emitted []types.Memory
	Err     error
}

// =============================================================================
// 函数式实现
// =============================================================================

// ActionFunc 以字段描述的 Action，ValidateFn 为 nil 时视为总是通过
type ActionFunc struct {
	ActionName        string
	ActionSimiles     []string
	ActionDescription string
	ActionExamples    [][]types.ActionExample
	ValidateFn        func(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State) (bool, error)
	HandleFn          func(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State, cb HandlerCallback) error
}

var _ Action = (*ActionFunc)(nil)

func (a *ActionFunc) Name() string                      { return a.ActionName }
func (a *ActionFunc) Similes() []string                 { return a.ActionSimiles }
func (a *ActionFunc) Description() string               { return a.ActionDescription }
func (a *ActionFunc) Examples() [][]types.ActionExample { return a.ActionExamples }

func (a *ActionFunc) Validate(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State) (bool, error) {
	if a.ValidateFn == nil {
		return true, nil
	}
	return a.ValidateFn(ctx, rt, msg, state)
}

func (a *ActionFunc) Handle(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State, cb HandlerCallback) error {
	if a.HandleFn == nil {
		return nil
	}
	return a.HandleFn(ctx, rt, msg, state, cb)
}

// EvaluatorFunc 以字段描述的 Evaluator
type EvaluatorFunc struct {
	EvaluatorName        string
	EvaluatorSimiles     []string
	EvaluatorDescription string
	EvaluatorExamples    []types.EvaluationExample
	Always               bool
	ValidateFn           func(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State) (bool, error)
	HandleFn             func(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State, cb HandlerCallback) error
}

var _ Evaluator = (*EvaluatorFunc)(nil)

func (e *EvaluatorFunc) Name() string                        { return e.EvaluatorName }
func (e *EvaluatorFunc) Similes() []string                   { return e.EvaluatorSimiles }
func (e *EvaluatorFunc) Description() string                 { return e.EvaluatorDescription }
func (e *EvaluatorFunc) Examples() []types.EvaluationExample { return e.EvaluatorExamples }
func (e *EvaluatorFunc) AlwaysRun() bool                     { return e.Always }

func (e *EvaluatorFunc) Validate(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State) (bool, error) {
	if e.ValidateFn == nil {
		return true, nil
	}
	return e.ValidateFn(ctx, rt, msg, state)
}

func (e *EvaluatorFunc) Handle(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State, cb HandlerCallback) error {
	if e.HandleFn == nil {
		return nil
	}
	return e.HandleFn(ctx, rt, msg, state, cb)
}

// ProviderFunc 以函数实现的 Provider
type ProviderFunc struct {
	ProviderName string
	GetFn        func(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State) (string, error)
}

var _ Provider = (*ProviderFunc)(nil)

func (p *ProviderFunc) Name() string { return p.ProviderName }

func (p *ProviderFunc) Get(ctx context.Context, rt *Runtime, msg *types.Memory, state *types.State) (string, error) {
	return p.GetFn(ctx, rt, msg, state)
}
