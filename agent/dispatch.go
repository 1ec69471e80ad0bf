package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/agentcore/llm/generation"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProcessActions 按回复顺序依次执行其中声明的动作。找不到的动作只记录日志；
// 校验不通过的动作不执行；处理器失败（包括 panic）被捕获，不影响后续动作。
// 只有 ctx 被取消时才返回错误，此时返回已处理部分的报告。
func (rt *Runtime) ProcessActions(ctx context.Context, msg *types.Memory, responses []types.Memory, state *types.State, cb HandlerCallback) ([]ActionReport, error) {
	ctx, span := rt.tracer.Start(ctx, "agent.ProcessActions")
	defer span.End()

	var reports []ActionReport
	for _, resp := range responses {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		name := strings.TrimSpace(resp.Content.Action)
		if name == "" {
			continue
		}
		action, ok := rt.registry.FindAction(name)
		if !ok {
			if strings.EqualFold(name, "NONE") || strings.EqualFold(name, "null") {
				continue
			}
			rt.logger.Warn("no action registered for response", zap.String("action", name))
			rt.metrics.RecordAction(name, string(ActionUnknown))
			reports = append(reports, ActionReport{Action: name, Status: ActionUnknown})
			continue
		}

		report := rt.runAction(ctx, action, msg, state, cb)
		rt.metrics.RecordAction(action.Name(), string(report.Status))
		reports = append(reports, report)
	}
	span.SetAttributes(attribute.Int("actions", len(reports)))
	return reports, nil
}

func (rt *Runtime) runAction(ctx context.Context, action Action, msg *types.Memory, state *types.State, cb HandlerCallback) ActionReport {
	report := ActionReport{Action: action.Name()}
	logger := rt.logger.With(zap.String("action", action.Name()))

	valid, err := safeValidate(func() (bool, error) { return action.Validate(ctx, rt, msg, state) })
	if err != nil || !valid {
		report.Status = ActionRejected
		report.Err = err
		logger.Debug("action validation rejected", zap.Error(err))
		return report
	}

	collect := func(ctx context.Context, content types.Content) ([]types.Memory, error) {
		if cb == nil {
			return nil, nil
		}
		emitted, err := cb(ctx, content)
		report.Emitted = append(report.Emitted, emitted...)
		return emitted, err
	}
	if err := safeCall(func() error { return action.Handle(ctx, rt, msg, state, collect) }); err != nil {
		report.Status = ActionFailed
		report.Err = err
		logger.Error("action handler failed", zap.Error(err))
		return report
	}
	report.Status = ActionCompleted
	logger.Debug("action completed", zap.Int("emitted", len(report.Emitted)))
	return report
}

// Evaluate 运行校验通过的评估器，AlwaysRun 的评估器不受 didRespond 限制。
// 返回被执行的评估器名称；单个评估器失败只记录日志。
func (rt *Runtime) Evaluate(ctx context.Context, msg *types.Memory, state *types.State, didRespond bool, cb HandlerCallback) ([]string, error) {
	ctx, span := rt.tracer.Start(ctx, "agent.Evaluate")
	defer span.End()

	var ran []string
	for _, e := range rt.registry.Evaluators() {
		if err := ctx.Err(); err != nil {
			return ran, err
		}
		if !e.AlwaysRun() && !didRespond {
			continue
		}
		logger := rt.logger.With(zap.String("evaluator", e.Name()))
		ok, err := safeValidate(func() (bool, error) { return e.Validate(ctx, rt, msg, state) })
		if err != nil {
			logger.Debug("evaluator validation failed", zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		ran = append(ran, e.Name())
		if err := safeCall(func() error { return e.Handle(ctx, rt, msg, state, cb) }); err != nil {
			logger.Error("evaluator failed", zap.Error(err))
			rt.metrics.RecordEvaluator(e.Name(), "failed")
			continue
		}
		rt.metrics.RecordEvaluator(e.Name(), "completed")
	}
	span.SetAttributes(attribute.StringSlice("evaluators", ran))
	return ran, nil
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func safeValidate(fn func() (bool, error)) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// =============================================================================
// 单轮对话
// =============================================================================

// MessageOptions HandleMessage 参数
type MessageOptions struct {
	// CheckShouldRespond 为 true 时先让模型判断是否回复
	CheckShouldRespond bool
	Callback           HandlerCallback
}

// Turn 一轮对话的结果
type Turn struct {
	State *types.State
	// Response agent 的回复，未回复时为 nil
	Response      *types.Memory
	ShouldRespond generation.ShouldRespond
	Actions       []ActionReport
	Evaluators    []string
}

// HandleMessage 处理一条用户消息：保存消息、组装状态、判断并生成回复、
// 执行回复中的动作，最后运行评估器。
func (rt *Runtime) HandleMessage(ctx context.Context, msg types.Memory, opts MessageOptions) (*Turn, error) {
	if rt.generator == nil {
		return nil, types.NewError(types.ErrConfiguration, "runtime has no generator")
	}
	ctx, span := rt.tracer.Start(ctx, "agent.HandleMessage")
	defer span.End()
	start := rt.now()

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.AgentID = rt.agentID
	if _, err := rt.messages.CreateMemory(ctx, msg, false); err != nil {
		return nil, rt.spanError(span, err)
	}

	state, err := rt.ComposeState(ctx, msg, nil)
	if err != nil {
		return nil, rt.spanError(span, err)
	}
	turn := &Turn{State: state, ShouldRespond: generation.ShouldRespondRespond}

	if opts.CheckShouldRespond {
		decision, err := rt.generator.GenerateShouldRespond(ctx, rt.render(state, rt.shouldRespondTemplate()), types.ModelClassSmall)
		if err != nil {
			return nil, rt.spanError(span, err)
		}
		turn.ShouldRespond = decision
		if decision != generation.ShouldRespondRespond {
			rt.logger.Debug("agent chose not to respond", zap.String("decision", string(decision)))
			turn.Evaluators, err = rt.Evaluate(ctx, &msg, state, false, opts.Callback)
			return turn, err
		}
	}

	content, err := rt.generator.GenerateMessageResponse(ctx, rt.render(state, rt.messageHandlerTemplate()), types.ModelClassLarge)
	if err != nil {
		return nil, rt.spanError(span, err)
	}
	content.InReplyTo = msg.ID
	response := types.Memory{
		ID:      types.StringToUUID(msg.ID.String() + "-" + rt.agentID.String()),
		UserID:  rt.agentID,
		AgentID: rt.agentID,
		RoomID:  msg.RoomID,
		Content: content,
	}
	if _, err := rt.messages.CreateMemory(ctx, response, false); err != nil {
		return nil, rt.spanError(span, err)
	}
	turn.Response = &response

	if turn.State, err = rt.UpdateRecentMessageState(ctx, state); err != nil {
		return nil, rt.spanError(span, err)
	}
	if turn.Actions, err = rt.ProcessActions(ctx, &msg, []types.Memory{response}, turn.State, opts.Callback); err != nil {
		return turn, err
	}
	if turn.Evaluators, err = rt.Evaluate(ctx, &msg, turn.State, true, opts.Callback); err != nil {
		return turn, err
	}
	rt.metrics.RecordStage("turn", rt.now().Sub(start))
	return turn, nil
}

// render 先替换示例占位符再渲染模板
func (rt *Runtime) render(state *types.State, tmpl types.Template) string {
	return ComposeContext(state, types.Literal(ReplaceExampleUsers(tmpl.Source(*state))))
}

func (rt *Runtime) spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
