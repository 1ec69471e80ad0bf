package agent

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/BaSui01/agentcore/memory"
	"github.com/BaSui01/agentcore/rag"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	recentInteractionsLimit = 20
	// knowledgeContextMessages 参与知识检索的最近消息条数
	knowledgeContextMessages = 3
	maxLoreLines             = 10
	actionExampleCount       = 10
)

// ComposeState 并发读取参与者、最近消息、目标、近期互动、知识与提供者输出，
// 全部完成后一次性合并为 State。任一读取失败时返回错误，不会返回部分状态。
// 提供者失败只记录日志。additional 中的键写入 State.Extra。
func (rt *Runtime) ComposeState(ctx context.Context, msg types.Memory, additional map[string]any) (*types.State, error) {
	ctx, span := rt.tracer.Start(ctx, "agent.ComposeState")
	defer span.End()
	span.SetAttributes(attribute.String("room_id", msg.RoomID.String()))
	start := rt.now()

	var (
		actors       []types.Actor
		recent       []types.Memory
		goals        []types.Goal
		interactions []types.Memory
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		actors, err = rt.store.GetActorDetails(gctx, msg.RoomID)
		if err != nil {
			return fmt.Errorf("get actor details: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		recent, err = rt.messages.GetMemories(gctx, memory.GetOptions{RoomID: msg.RoomID, Count: rt.conversationLength})
		return err
	})
	g.Go(func() error {
		var err error
		goals, err = GetGoals(gctx, rt.store, rt.agentID, msg.RoomID, nil, true, DefaultGoalCount)
		return err
	})
	g.Go(func() error {
		var err error
		interactions, err = rt.recentInteractions(gctx, msg.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	state := rt.baseState(msg, actors, recent, goals, interactions)
	for k, v := range additional {
		state.Set(k, v)
	}

	// 知识与提供者依赖上面的结果，第二轮并发
	var (
		knowledgeItems []types.KnowledgeItem
		ragItems       []types.RAGKnowledgeItem
		providers      string
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		knowledgeItems, ragItems, err = rt.fetchKnowledge(gctx, msg, recent)
		return err
	})
	g.Go(func() error {
		providers = rt.collectProviders(gctx, msg, state)
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	state.KnowledgeData = knowledgeItems
	state.RAGKnowledgeData = ragItems
	state.Knowledge = AddHeader("# Knowledge", FormatKnowledge(knowledgeItems))
	state.Providers = AddHeader(fmt.Sprintf("# Additional Information About %s and The World", state.AgentName), providers)

	rt.applyCapabilities(ctx, &msg, state)

	rt.metrics.RecordStage("compose_state", rt.now().Sub(start))
	span.SetAttributes(
		attribute.Int("recent_messages", len(recent)),
		attribute.Int("goals", len(goals)),
		attribute.Int("knowledge", len(knowledgeItems)),
	)
	return state, nil
}

// baseState 由已读取的数据与角色定义构造 State
func (rt *Runtime) baseState(msg types.Memory, actors []types.Actor, recent []types.Memory, goals []types.Goal, interactions []types.Memory) *types.State {
	c := rt.character
	now := rt.now()

	senderName := unknownUser
	if a, ok := actorByID(actors, msg.UserID); ok {
		senderName = a.Name
	}

	state := &types.State{
		UserID:     msg.UserID,
		AgentID:    rt.agentID,
		RoomID:     msg.RoomID,
		AgentName:  c.Name,
		SenderName: senderName,
		System:     c.System,
		Bio:        strings.Join(c.Bio, " "),
		Lore:       strings.Join(firstN(c.Lore, maxLoreLines), "\n"),

		Actors:     AddHeader("# Actors", FormatActors(actors)),
		ActorsData: actors,

		Goals:     AddHeader("# Goals\n"+rt.character.Name+" should prioritize accomplishing the objectives that are in progress.", FormatGoalsAsString(goals)),
		GoalsData: goals,

		RecentMessages:     AddHeader("# Conversation Messages", FormatMessages(recent, actors, now)),
		RecentMessagesData: recent,
		RecentPosts:        AddHeader("# Posts in Thread", FormatPosts(recent, actors, false, now)),

		RecentInteractions:     AddHeader("# Recent interactions between "+c.Name+" and "+senderName, FormatMessages(interactions, actors, now)),
		RecentInteractionsData: interactions,

		AttachmentsText: AddHeader("# Attachments", FormatAttachments(recent)),
	}

	if len(c.Adjectives) > 0 {
		state.Adjective = c.Adjectives[0]
	}
	if len(c.Topics) > 0 {
		state.Topic = c.Topics[0]
		state.Topics = c.Name + " is interested in " + formatList(c.Topics)
	}
	state.CharacterPostExamples = AddHeader("# Example Posts for "+c.Name, strings.Join(c.PostExamples, "\n"))
	state.CharacterMessageExamples = AddHeader("# Example Conversations for "+c.Name, formatCharacterMessageExamples(c.MessageExamples))
	state.MessageDirections = AddHeader("# Message Directions for "+c.Name, strings.Join(append(slices.Clone(c.Style.All), c.Style.Chat...), "\n"))
	state.PostDirections = AddHeader("# Post Directions for "+c.Name, strings.Join(append(slices.Clone(c.Style.All), c.Style.Post...), "\n"))
	return state
}

// recentInteractions 读取用户与 agent 共同所在房间的消息
func (rt *Runtime) recentInteractions(ctx context.Context, userID uuid.UUID) ([]types.Memory, error) {
	if userID == uuid.Nil || userID == rt.agentID {
		return nil, nil
	}
	rooms, err := rt.store.GetRoomsForParticipants(ctx, []uuid.UUID{userID, rt.agentID})
	if err != nil {
		return nil, fmt.Errorf("get shared rooms: %w", err)
	}
	return rt.messages.GetMemoriesByRoomIDs(ctx, rooms, recentInteractionsLimit)
}

// fetchKnowledge RAG 模式下以最近几条消息为对话上下文检索知识库，否则读取非 RAG 知识
func (rt *Runtime) fetchKnowledge(ctx context.Context, msg types.Memory, recent []types.Memory) ([]types.KnowledgeItem, []types.RAGKnowledgeItem, error) {
	if strings.TrimSpace(msg.Content.Text) == "" {
		return nil, nil, nil
	}
	if !rt.RAGEnabled() {
		items, err := rt.legacy.Get(ctx, msg)
		return items, nil, err
	}

	var convo []string
	for _, m := range firstN(recent, knowledgeContextMessages) {
		if m.ID == msg.ID || m.Content.Text == "" {
			continue
		}
		convo = append(convo, m.Content.Text)
	}
	ragItems, err := rt.knowledge.GetKnowledge(ctx, rag.Query{
		Query:               msg.Content.Text,
		ConversationContext: strings.Join(convo, " "),
		Limit:               rt.knowledgeLimit,
	})
	if err != nil {
		return nil, nil, err
	}
	items := make([]types.KnowledgeItem, 0, len(ragItems))
	for _, r := range ragItems {
		items = append(items, types.KnowledgeItem{ID: r.ID, Content: types.Content{Text: r.Content.Text}})
	}
	return items, ragItems, nil
}

// collectProviders 并发调用所有提供者，按注册顺序拼接非空输出
func (rt *Runtime) collectProviders(ctx context.Context, msg types.Memory, state *types.State) string {
	providers := rt.registry.Providers()
	if len(providers) == 0 {
		return ""
	}
	results := make([]string, len(providers))
	var g errgroup.Group
	for i, p := range providers {
		// 每个提供者拿到独立的消息与状态副本
		m, s := msg, *state
		s.Extra = maps.Clone(state.Extra)
		g.Go(func() error {
			var out string
			err := safeCall(func() (err error) {
				out, err = p.Get(ctx, rt, &m, &s)
				return err
			})
			if err != nil {
				rt.logger.Warn("provider failed", zap.String("provider", p.Name()), zap.Error(err))
				return nil
			}
			results[i] = strings.TrimSpace(out)
			return nil
		})
	}
	_ = g.Wait()

	var parts []string
	for _, r := range results {
		if r != "" {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, "\n")
}

// applyCapabilities 只列出对当前消息校验通过的动作与评估器
func (rt *Runtime) applyCapabilities(ctx context.Context, msg *types.Memory, state *types.State) {
	var actions []Action
	for _, a := range rt.registry.Actions() {
		ok, err := safeValidate(func() (bool, error) { return a.Validate(ctx, rt, msg, state) })
		if err != nil {
			rt.logger.Debug("action validation failed", zap.String("action", a.Name()), zap.Error(err))
			continue
		}
		if ok {
			actions = append(actions, a)
		}
	}
	var evaluators []Evaluator
	for _, e := range rt.registry.Evaluators() {
		ok, err := safeValidate(func() (bool, error) { return e.Validate(ctx, rt, msg, state) })
		if err != nil {
			rt.logger.Debug("evaluator validation failed", zap.String("evaluator", e.Name()), zap.Error(err))
			continue
		}
		if ok {
			evaluators = append(evaluators, e)
		}
	}

	state.ActionsData = make([]string, 0, len(actions))
	for _, a := range actions {
		state.ActionsData = append(state.ActionsData, a.Name())
	}
	state.ActionNames = "Possible response actions: " + FormatActionNames(actions)
	if len(actions) == 0 {
		state.ActionNames = ""
	}
	state.Actions = AddHeader("# Available Actions", FormatActions(actions))
	state.ActionExamples = AddHeader("# Action Examples", ComposeActionExamples(actions, actionExampleCount))

	state.EvaluatorsData = make([]string, 0, len(evaluators))
	for _, e := range evaluators {
		state.EvaluatorsData = append(state.EvaluatorsData, e.Name())
	}
	state.EvaluatorNames = FormatEvaluatorNames(evaluators)
	state.Evaluators = AddHeader("# Available Evaluators", FormatEvaluators(evaluators))
	state.EvaluatorExamples = AddHeader("# Evaluator Examples", FormatEvaluatorExamples(evaluators))
}

// UpdateRecentMessageState 重新读取最近消息与附件，返回更新后的状态副本
func (rt *Runtime) UpdateRecentMessageState(ctx context.Context, state *types.State) (*types.State, error) {
	recent, err := rt.messages.GetMemories(ctx, memory.GetOptions{RoomID: state.RoomID, Count: rt.conversationLength})
	if err != nil {
		return nil, err
	}
	now := rt.now()
	next := *state
	next.RecentMessagesData = recent
	next.RecentMessages = AddHeader("# Conversation Messages", FormatMessages(recent, state.ActorsData, now))
	next.RecentPosts = AddHeader("# Posts in Thread", FormatPosts(recent, state.ActorsData, false, now))
	next.AttachmentsText = AddHeader("# Attachments", FormatAttachments(recent))
	return &next, nil
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
