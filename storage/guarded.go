package storage

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/agentcore/internal/metrics"
	"github.com/BaSui01/agentcore/llm/circuitbreaker"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Guarded 用熔断器包装 Adapter 的每个操作。
// 熔断打开时直接返回 STORE_UNAVAILABLE，不会调用底层存储。
type Guarded struct {
	inner   Adapter
	breaker *circuitbreaker.Breaker
	metrics *metrics.Collector
	logger  *zap.Logger
}

var _ Adapter = (*Guarded)(nil)

// NewGuarded 创建受熔断保护的适配器。cfg 为 nil 时使用默认熔断配置。
func NewGuarded(inner Adapter, cfg *circuitbreaker.Config, m *metrics.Collector, logger *zap.Logger) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "guarded_store"))

	if cfg == nil {
		cfg = circuitbreaker.DefaultConfig()
	}
	c := *cfg
	if c.Name == "" {
		c.Name = "store"
	}
	userHook := c.OnStateChange
	c.OnStateChange = func(from, to circuitbreaker.State) {
		m.RecordBreakerTransition(c.Name, from.String(), to.String())
		logger.Warn("store circuit state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()))
		if userHook != nil {
			userHook(from, to)
		}
	}

	return &Guarded{
		inner:   inner,
		breaker: circuitbreaker.New(&c, logger),
		metrics: m,
		logger:  logger,
	}
}

// BreakerState 返回熔断器当前状态
func (g *Guarded) BreakerState() circuitbreaker.State {
	return g.breaker.State()
}

// Unwrap 返回底层适配器
func (g *Guarded) Unwrap() Adapter {
	return g.inner
}

func guard[T any](g *Guarded, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := circuitbreaker.Execute(ctx, g.breaker, fn)
	g.metrics.RecordStoreCall(op, err, time.Since(start))
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyCallsInHalfOpen) {
		var zero T
		return zero, types.Errorf(types.ErrStoreUnavailable, "store unavailable during %s", op).
			WithCause(err).
			WithRetryable(true)
	}
	return v, err
}

func guardErr(g *Guarded, ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := guard(g, ctx, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// --- lifecycle ---

func (g *Guarded) Init(ctx context.Context) error {
	return guardErr(g, ctx, "init", g.inner.Init)
}

func (g *Guarded) Close() error {
	return g.inner.Close()
}

// --- AccountStore ---

func (g *Guarded) GetAccountByID(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	return guard(g, ctx, "get_account", func(ctx context.Context) (*types.Account, error) {
		return g.inner.GetAccountByID(ctx, id)
	})
}

func (g *Guarded) CreateAccount(ctx context.Context, account types.Account) (bool, error) {
	return guard(g, ctx, "create_account", func(ctx context.Context) (bool, error) {
		return g.inner.CreateAccount(ctx, account)
	})
}

func (g *Guarded) GetActorDetails(ctx context.Context, roomID uuid.UUID) ([]types.Actor, error) {
	return guard(g, ctx, "get_actor_details", func(ctx context.Context) ([]types.Actor, error) {
		return g.inner.GetActorDetails(ctx, roomID)
	})
}

// --- MemoryStore ---

func (g *Guarded) GetMemories(ctx context.Context, q MemoryQuery) ([]types.Memory, error) {
	return guard(g, ctx, "get_memories", func(ctx context.Context) ([]types.Memory, error) {
		return g.inner.GetMemories(ctx, q)
	})
}

func (g *Guarded) GetMemoryByID(ctx context.Context, id uuid.UUID) (*types.Memory, error) {
	return guard(g, ctx, "get_memory", func(ctx context.Context) (*types.Memory, error) {
		return g.inner.GetMemoryByID(ctx, id)
	})
}

func (g *Guarded) GetMemoriesByIDs(ctx context.Context, ids []uuid.UUID, tableName string) ([]types.Memory, error) {
	return guard(g, ctx, "get_memories_by_ids", func(ctx context.Context) ([]types.Memory, error) {
		return g.inner.GetMemoriesByIDs(ctx, ids, tableName)
	})
}

func (g *Guarded) GetMemoriesByRoomIDs(ctx context.Context, tableName string, agentID uuid.UUID, roomIDs []uuid.UUID, limit int) ([]types.Memory, error) {
	return guard(g, ctx, "get_memories_by_rooms", func(ctx context.Context) ([]types.Memory, error) {
		return g.inner.GetMemoriesByRoomIDs(ctx, tableName, agentID, roomIDs, limit)
	})
}

func (g *Guarded) GetCachedEmbeddings(ctx context.Context, q CachedEmbeddingQuery) ([]CachedEmbedding, error) {
	return guard(g, ctx, "get_cached_embeddings", func(ctx context.Context) ([]CachedEmbedding, error) {
		return g.inner.GetCachedEmbeddings(ctx, q)
	})
}

func (g *Guarded) SearchMemories(ctx context.Context, q MemorySearch) ([]types.Memory, error) {
	return guard(g, ctx, "search_memories", func(ctx context.Context) ([]types.Memory, error) {
		return g.inner.SearchMemories(ctx, q)
	})
}

func (g *Guarded) CreateMemory(ctx context.Context, memory types.Memory, tableName string, unique bool) error {
	return guardErr(g, ctx, "create_memory", func(ctx context.Context) error {
		return g.inner.CreateMemory(ctx, memory, tableName, unique)
	})
}

func (g *Guarded) RemoveMemory(ctx context.Context, id uuid.UUID, tableName string) error {
	return guardErr(g, ctx, "remove_memory", func(ctx context.Context) error {
		return g.inner.RemoveMemory(ctx, id, tableName)
	})
}

func (g *Guarded) RemoveAllMemories(ctx context.Context, roomID uuid.UUID, tableName string) error {
	return guardErr(g, ctx, "remove_all_memories", func(ctx context.Context) error {
		return g.inner.RemoveAllMemories(ctx, roomID, tableName)
	})
}

func (g *Guarded) CountMemories(ctx context.Context, roomID uuid.UUID, unique bool, tableName string) (int, error) {
	return guard(g, ctx, "count_memories", func(ctx context.Context) (int, error) {
		return g.inner.CountMemories(ctx, roomID, unique, tableName)
	})
}

// --- GoalStore ---

func (g *Guarded) GetGoals(ctx context.Context, q GoalQuery) ([]types.Goal, error) {
	return guard(g, ctx, "get_goals", func(ctx context.Context) ([]types.Goal, error) {
		return g.inner.GetGoals(ctx, q)
	})
}

func (g *Guarded) CreateGoal(ctx context.Context, goal types.Goal) error {
	return guardErr(g, ctx, "create_goal", func(ctx context.Context) error {
		return g.inner.CreateGoal(ctx, goal)
	})
}

func (g *Guarded) UpdateGoal(ctx context.Context, goal types.Goal) error {
	return guardErr(g, ctx, "update_goal", func(ctx context.Context) error {
		return g.inner.UpdateGoal(ctx, goal)
	})
}

func (g *Guarded) UpdateGoalStatus(ctx context.Context, goalID uuid.UUID, status types.GoalStatus) error {
	return guardErr(g, ctx, "update_goal_status", func(ctx context.Context) error {
		return g.inner.UpdateGoalStatus(ctx, goalID, status)
	})
}

func (g *Guarded) RemoveGoal(ctx context.Context, goalID uuid.UUID) error {
	return guardErr(g, ctx, "remove_goal", func(ctx context.Context) error {
		return g.inner.RemoveGoal(ctx, goalID)
	})
}

func (g *Guarded) RemoveAllGoals(ctx context.Context, roomID uuid.UUID) error {
	return guardErr(g, ctx, "remove_all_goals", func(ctx context.Context) error {
		return g.inner.RemoveAllGoals(ctx, roomID)
	})
}

// --- RoomStore ---

func (g *Guarded) GetRoom(ctx context.Context, roomID uuid.UUID) (uuid.UUID, error) {
	return guard(g, ctx, "get_room", func(ctx context.Context) (uuid.UUID, error) {
		return g.inner.GetRoom(ctx, roomID)
	})
}

func (g *Guarded) CreateRoom(ctx context.Context, roomID uuid.UUID) (uuid.UUID, error) {
	return guard(g, ctx, "create_room", func(ctx context.Context) (uuid.UUID, error) {
		return g.inner.CreateRoom(ctx, roomID)
	})
}

func (g *Guarded) RemoveRoom(ctx context.Context, roomID uuid.UUID) error {
	return guardErr(g, ctx, "remove_room", func(ctx context.Context) error {
		return g.inner.RemoveRoom(ctx, roomID)
	})
}

func (g *Guarded) GetRoomsForParticipant(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return guard(g, ctx, "get_rooms_for_participant", func(ctx context.Context) ([]uuid.UUID, error) {
		return g.inner.GetRoomsForParticipant(ctx, userID)
	})
}

func (g *Guarded) GetRoomsForParticipants(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	return guard(g, ctx, "get_rooms_for_participants", func(ctx context.Context) ([]uuid.UUID, error) {
		return g.inner.GetRoomsForParticipants(ctx, userIDs)
	})
}

// --- ParticipantStore ---

func (g *Guarded) AddParticipant(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	return guard(g, ctx, "add_participant", func(ctx context.Context) (bool, error) {
		return g.inner.AddParticipant(ctx, userID, roomID)
	})
}

func (g *Guarded) RemoveParticipant(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	return guard(g, ctx, "remove_participant", func(ctx context.Context) (bool, error) {
		return g.inner.RemoveParticipant(ctx, userID, roomID)
	})
}

func (g *Guarded) GetParticipantsForAccount(ctx context.Context, userID uuid.UUID) ([]types.Participant, error) {
	return guard(g, ctx, "get_participants_for_account", func(ctx context.Context) ([]types.Participant, error) {
		return g.inner.GetParticipantsForAccount(ctx, userID)
	})
}

func (g *Guarded) GetParticipantsForRoom(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	return guard(g, ctx, "get_participants_for_room", func(ctx context.Context) ([]uuid.UUID, error) {
		return g.inner.GetParticipantsForRoom(ctx, roomID)
	})
}

func (g *Guarded) GetParticipantUserState(ctx context.Context, roomID, userID uuid.UUID) (types.ParticipantUserState, error) {
	return guard(g, ctx, "get_participant_state", func(ctx context.Context) (types.ParticipantUserState, error) {
		return g.inner.GetParticipantUserState(ctx, roomID, userID)
	})
}

func (g *Guarded) SetParticipantUserState(ctx context.Context, roomID, userID uuid.UUID, state types.ParticipantUserState) error {
	return guardErr(g, ctx, "set_participant_state", func(ctx context.Context) error {
		return g.inner.SetParticipantUserState(ctx, roomID, userID, state)
	})
}

// --- RelationshipStore ---

func (g *Guarded) CreateRelationship(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	return guard(g, ctx, "create_relationship", func(ctx context.Context) (bool, error) {
		return g.inner.CreateRelationship(ctx, userA, userB)
	})
}

func (g *Guarded) GetRelationship(ctx context.Context, userA, userB uuid.UUID) (*types.Relationship, error) {
	return guard(g, ctx, "get_relationship", func(ctx context.Context) (*types.Relationship, error) {
		return g.inner.GetRelationship(ctx, userA, userB)
	})
}

func (g *Guarded) GetRelationships(ctx context.Context, userID uuid.UUID) ([]types.Relationship, error) {
	return guard(g, ctx, "get_relationships", func(ctx context.Context) ([]types.Relationship, error) {
		return g.inner.GetRelationships(ctx, userID)
	})
}

// --- KnowledgeStore ---

func (g *Guarded) GetKnowledge(ctx context.Context, q KnowledgeQuery) ([]types.RAGKnowledgeItem, error) {
	return guard(g, ctx, "get_knowledge", func(ctx context.Context) ([]types.RAGKnowledgeItem, error) {
		return g.inner.GetKnowledge(ctx, q)
	})
}

func (g *Guarded) SearchKnowledge(ctx context.Context, q KnowledgeSearch) ([]types.RAGKnowledgeItem, error) {
	return guard(g, ctx, "search_knowledge", func(ctx context.Context) ([]types.RAGKnowledgeItem, error) {
		return g.inner.SearchKnowledge(ctx, q)
	})
}

func (g *Guarded) CreateKnowledge(ctx context.Context, item types.RAGKnowledgeItem) error {
	return guardErr(g, ctx, "create_knowledge", func(ctx context.Context) error {
		return g.inner.CreateKnowledge(ctx, item)
	})
}

func (g *Guarded) RemoveKnowledge(ctx context.Context, id uuid.UUID) error {
	return guardErr(g, ctx, "remove_knowledge", func(ctx context.Context) error {
		return g.inner.RemoveKnowledge(ctx, id)
	})
}

func (g *Guarded) ClearKnowledge(ctx context.Context, agentID uuid.UUID, includeShared bool) error {
	return guardErr(g, ctx, "clear_knowledge", func(ctx context.Context) error {
		return g.inner.ClearKnowledge(ctx, agentID, includeShared)
	})
}

// --- CacheStore ---

type cacheResult struct {
	value string
	ok    bool
}

func (g *Guarded) GetCache(ctx context.Context, agentID uuid.UUID, key string) (string, bool, error) {
	res, err := guard(g, ctx, "get_cache", func(ctx context.Context) (cacheResult, error) {
		v, ok, err := g.inner.GetCache(ctx, agentID, key)
		return cacheResult{value: v, ok: ok}, err
	})
	return res.value, res.ok, err
}

func (g *Guarded) SetCache(ctx context.Context, agentID uuid.UUID, key, value string) error {
	return guardErr(g, ctx, "set_cache", func(ctx context.Context) error {
		return g.inner.SetCache(ctx, agentID, key, value)
	})
}

func (g *Guarded) DeleteCache(ctx context.Context, agentID uuid.UUID, key string) error {
	return guardErr(g, ctx, "delete_cache", func(ctx context.Context) error {
		return g.inner.DeleteCache(ctx, agentID, key)
	})
}

// --- LogStore ---

func (g *Guarded) Log(ctx context.Context, entry LogEntry) error {
	return guardErr(g, ctx, "log", func(ctx context.Context) error {
		return g.inner.Log(ctx, entry)
	})
}
