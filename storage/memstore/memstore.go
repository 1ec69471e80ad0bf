// Package memstore 提供 storage.Adapter 的内存实现，用于测试与临时运行。
// 向量检索为线性扫描。
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/agentcore/storage"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
)

type memoryRow struct {
	table  string
	memory types.Memory
}

type participantRow struct {
	id     uuid.UUID
	userID uuid.UUID
	roomID uuid.UUID
	state  types.ParticipantUserState
}

// Store 内存适配器，所有方法并发安全
type Store struct {
	mu sync.RWMutex

	accounts      map[uuid.UUID]types.Account
	memories      []memoryRow
	goals         []types.Goal
	rooms         map[uuid.UUID]struct{}
	participants  []participantRow
	relationships []types.Relationship
	knowledge     []types.RAGKnowledgeItem
	cache         map[string]string
	logs          []storage.LogEntry

	now func() time.Time
}

var _ storage.Adapter = (*Store)(nil)

// New 创建空的内存适配器
func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]types.Account),
		rooms:    make(map[uuid.UUID]struct{}),
		cache:    make(map[string]string),
		now:      time.Now,
	}
}

func (s *Store) Init(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// Logs 返回写入的日志副本
func (s *Store) Logs() []storage.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.logs)
}

// =============================================================================
// AccountStore
// =============================================================================

func (s *Store) GetAccountByID(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, account types.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if _, exists := s.accounts[account.ID]; exists {
		return false, nil
	}
	s.accounts[account.ID] = account
	return true, nil
}

func (s *Store) GetActorDetails(ctx context.Context, roomID uuid.UUID) ([]types.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var actors []types.Actor
	for _, p := range s.participants {
		if p.roomID != roomID {
			continue
		}
		a, ok := s.accounts[p.userID]
		if !ok {
			continue
		}
		actors = append(actors, storage.ActorFromAccount(a))
	}
	return actors, nil
}

// =============================================================================
// MemoryStore
// =============================================================================

func (s *Store) GetMemories(ctx context.Context, q storage.MemoryQuery) ([]types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Memory
	// 倒序遍历，CreatedAt 相同时后写入的排在前面
	for _, row := range slices.Backward(s.memories) {
		m := row.memory
		if row.table != q.TableName || m.RoomID != q.RoomID {
			continue
		}
		if q.AgentID != uuid.Nil && m.AgentID != q.AgentID {
			continue
		}
		if q.Unique && !m.Unique {
			continue
		}
		if q.Start > 0 && m.CreatedAt < q.Start {
			continue
		}
		if q.End > 0 && m.CreatedAt > q.End {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if q.Count > 0 && len(out) > q.Count {
		out = out[:q.Count]
	}
	return out, nil
}

func (s *Store) GetMemoryByID(ctx context.Context, id uuid.UUID) (*types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.memories {
		if row.memory.ID == id {
			m := row.memory
			return &m, nil
		}
	}
	return nil, nil
}

func (s *Store) GetMemoriesByIDs(ctx context.Context, ids []uuid.UUID, tableName string) ([]types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Memory
	for _, row := range s.memories {
		if tableName != "" && row.table != tableName {
			continue
		}
		if slices.Contains(ids, row.memory.ID) {
			out = append(out, row.memory)
		}
	}
	return out, nil
}

func (s *Store) GetMemoriesByRoomIDs(ctx context.Context, tableName string, agentID uuid.UUID, roomIDs []uuid.UUID, limit int) ([]types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Memory
	for _, row := range slices.Backward(s.memories) {
		m := row.memory
		if row.table != tableName || !slices.Contains(roomIDs, m.RoomID) {
			continue
		}
		if agentID != uuid.Nil && m.AgentID != agentID {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetCachedEmbeddings(ctx context.Context, q storage.CachedEmbeddingQuery) ([]storage.CachedEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.CachedEmbedding
	for _, row := range s.memories {
		if row.table != q.TableName || len(row.memory.Embedding) == 0 {
			continue
		}
		score := storage.Levenshtein(q.Input, row.memory.Content.Text)
		if score > q.Threshold {
			continue
		}
		out = append(out, storage.CachedEmbedding{Embedding: row.memory.Embedding, LevenshteinScore: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LevenshteinScore < out[j].LevenshteinScore })
	if q.MatchCount > 0 && len(out) > q.MatchCount {
		out = out[:q.MatchCount]
	}
	return out, nil
}

func (s *Store) SearchMemories(ctx context.Context, q storage.MemorySearch) ([]types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var candidates []types.Memory
	for _, row := range s.memories {
		m := row.memory
		if row.table != q.TableName {
			continue
		}
		if q.AgentID != uuid.Nil && m.AgentID != q.AgentID {
			continue
		}
		if q.RoomID != uuid.Nil && m.RoomID != q.RoomID {
			continue
		}
		if q.Unique && !m.Unique {
			continue
		}
		candidates = append(candidates, m)
	}
	return storage.ScoreMemories(candidates, q.Embedding, q.MatchThreshold, q.Count), nil
}

func (s *Store) CreateMemory(ctx context.Context, memory types.Memory, tableName string, unique bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if memory.ID == uuid.Nil {
		memory.ID = uuid.New()
	}
	for _, row := range s.memories {
		if row.memory.ID == memory.ID {
			return types.Errorf(types.ErrAlreadyExists, "memory %s already exists", memory.ID)
		}
	}
	if memory.CreatedAt == 0 {
		memory.CreatedAt = s.now().UnixMilli()
	}
	memory.Unique = unique
	memory.Similarity = 0
	memory.Embedding = slices.Clone(memory.Embedding)
	s.memories = append(s.memories, memoryRow{table: tableName, memory: memory})
	return nil
}

func (s *Store) RemoveMemory(ctx context.Context, id uuid.UUID, tableName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories = slices.DeleteFunc(s.memories, func(row memoryRow) bool {
		return row.table == tableName && row.memory.ID == id
	})
	return nil
}

func (s *Store) RemoveAllMemories(ctx context.Context, roomID uuid.UUID, tableName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories = slices.DeleteFunc(s.memories, func(row memoryRow) bool {
		return row.table == tableName && row.memory.RoomID == roomID
	})
	return nil
}

func (s *Store) CountMemories(ctx context.Context, roomID uuid.UUID, unique bool, tableName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, row := range s.memories {
		if row.table != tableName || row.memory.RoomID != roomID {
			continue
		}
		if unique && !row.memory.Unique {
			continue
		}
		n++
	}
	return n, nil
}

// =============================================================================
// GoalStore
// =============================================================================

func (s *Store) GetGoals(ctx context.Context, q storage.GoalQuery) ([]types.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Goal
	for _, g := range s.goals {
		if g.RoomID != q.RoomID {
			continue
		}
		if q.UserID != nil && g.UserID != *q.UserID {
			continue
		}
		if q.OnlyInProgress && g.Status != types.GoalInProgress {
			continue
		}
		g.Objectives = slices.Clone(g.Objectives)
		out = append(out, g)
		if q.Count > 0 && len(out) == q.Count {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateGoal(ctx context.Context, goal types.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	if s.goalIndex(goal.ID) >= 0 {
		return types.Errorf(types.ErrAlreadyExists, "goal %s already exists", goal.ID)
	}
	goal.Objectives = slices.Clone(goal.Objectives)
	s.goals = append(s.goals, goal)
	return nil
}

func (s *Store) UpdateGoal(ctx context.Context, goal types.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.goalIndex(goal.ID)
	if i < 0 {
		return types.Errorf(types.ErrNotFound, "goal %s not found", goal.ID)
	}
	goal.Objectives = slices.Clone(goal.Objectives)
	s.goals[i] = goal
	return nil
}

func (s *Store) UpdateGoalStatus(ctx context.Context, goalID uuid.UUID, status types.GoalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.goalIndex(goalID)
	if i < 0 {
		return types.Errorf(types.ErrNotFound, "goal %s not found", goalID)
	}
	s.goals[i].Status = status
	return nil
}

func (s *Store) RemoveGoal(ctx context.Context, goalID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = slices.DeleteFunc(s.goals, func(g types.Goal) bool { return g.ID == goalID })
	return nil
}

func (s *Store) RemoveAllGoals(ctx context.Context, roomID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = slices.DeleteFunc(s.goals, func(g types.Goal) bool { return g.RoomID == roomID })
	return nil
}

func (s *Store) goalIndex(id uuid.UUID) int {
	return slices.IndexFunc(s.goals, func(g types.Goal) bool { return g.ID == id })
}

// =============================================================================
// RoomStore / ParticipantStore
// =============================================================================

func (s *Store) GetRoom(ctx context.Context, roomID uuid.UUID) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.rooms[roomID]; ok {
		return roomID, nil
	}
	return uuid.Nil, nil
}

func (s *Store) CreateRoom(ctx context.Context, roomID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if roomID == uuid.Nil {
		roomID = uuid.New()
	}
	s.rooms[roomID] = struct{}{}
	return roomID, nil
}

func (s *Store) RemoveRoom(ctx context.Context, roomID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	s.participants = slices.DeleteFunc(s.participants, func(p participantRow) bool { return p.roomID == roomID })
	return nil
}

func (s *Store) GetRoomsForParticipant(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.GetRoomsForParticipants(ctx, []uuid.UUID{userID})
}

func (s *Store) GetRoomsForParticipants(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for _, p := range s.participants {
		if slices.Contains(userIDs, p.userID) && !slices.Contains(out, p.roomID) {
			out = append(out, p.roomID)
		}
	}
	return out, nil
}

func (s *Store) AddParticipant(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participantIndex(userID, roomID) >= 0 {
		return false, nil
	}
	s.participants = append(s.participants, participantRow{id: uuid.New(), userID: userID, roomID: roomID})
	return true, nil
}

func (s *Store) RemoveParticipant(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.participantIndex(userID, roomID)
	if i < 0 {
		return false, nil
	}
	s.participants = slices.Delete(s.participants, i, i+1)
	return true, nil
}

func (s *Store) GetParticipantsForAccount(ctx context.Context, userID uuid.UUID) ([]types.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Participant
	for _, p := range s.participants {
		if p.userID != userID {
			continue
		}
		out = append(out, types.Participant{ID: p.id, Account: s.accounts[userID]})
	}
	return out, nil
}

func (s *Store) GetParticipantsForRoom(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for _, p := range s.participants {
		if p.roomID == roomID {
			out = append(out, p.userID)
		}
	}
	return out, nil
}

func (s *Store) GetParticipantUserState(ctx context.Context, roomID, userID uuid.UUID) (types.ParticipantUserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.participantIndex(userID, roomID)
	if i < 0 {
		return types.ParticipantNone, nil
	}
	return s.participants[i].state, nil
}

func (s *Store) SetParticipantUserState(ctx context.Context, roomID, userID uuid.UUID, state types.ParticipantUserState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.participantIndex(userID, roomID)
	if i < 0 {
		return types.Errorf(types.ErrNotFound, "participant %s not in room %s", userID, roomID)
	}
	s.participants[i].state = state
	return nil
}

func (s *Store) participantIndex(userID, roomID uuid.UUID) int {
	return slices.IndexFunc(s.participants, func(p participantRow) bool {
		return p.userID == userID && p.roomID == roomID
	})
}

// =============================================================================
// RelationshipStore
// =============================================================================

func (s *Store) CreateRelationship(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.relationshipIndex(userA, userB) >= 0 {
		return false, nil
	}
	s.relationships = append(s.relationships, types.Relationship{
		ID:        uuid.New(),
		UserA:     userA,
		UserB:     userB,
		UserID:    userA,
		Status:    storage.DefaultRelationshipStatus,
		CreatedAt: s.now().UnixMilli(),
	})
	return true, nil
}

func (s *Store) GetRelationship(ctx context.Context, userA, userB uuid.UUID) (*types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.relationshipIndex(userA, userB)
	if i < 0 {
		return nil, nil
	}
	r := s.relationships[i]
	return &r, nil
}

func (s *Store) GetRelationships(ctx context.Context, userID uuid.UUID) ([]types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Relationship
	for _, r := range s.relationships {
		if r.UserA == userID || r.UserB == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) relationshipIndex(userA, userB uuid.UUID) int {
	a, b := storage.SortPair(userA, userB)
	return slices.IndexFunc(s.relationships, func(r types.Relationship) bool {
		ra, rb := storage.SortPair(r.UserA, r.UserB)
		return ra == a && rb == b
	})
}

// =============================================================================
// KnowledgeStore
// =============================================================================

func (s *Store) GetKnowledge(ctx context.Context, q storage.KnowledgeQuery) ([]types.RAGKnowledgeItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.RAGKnowledgeItem
	for _, item := range s.knowledge {
		if q.ID != uuid.Nil {
			if item.ID == q.ID {
				out = append(out, item)
			}
			continue
		}
		if item.AgentID == q.AgentID || item.Content.Metadata.IsShared {
			out = append(out, item)
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) SearchKnowledge(ctx context.Context, q storage.KnowledgeSearch) ([]types.RAGKnowledgeItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var candidates []types.RAGKnowledgeItem
	for _, item := range s.knowledge {
		if item.AgentID == q.AgentID || item.Content.Metadata.IsShared {
			candidates = append(candidates, item)
		}
	}
	return storage.ScoreKnowledge(candidates, q.Embedding, q.MatchThreshold, q.MatchCount), nil
}

func (s *Store) CreateKnowledge(ctx context.Context, item types.RAGKnowledgeItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.ContainsFunc(s.knowledge, func(k types.RAGKnowledgeItem) bool { return k.ID == item.ID }) {
		return types.Errorf(types.ErrAlreadyExists, "knowledge %s already exists", item.ID)
	}
	if item.CreatedAt == 0 {
		item.CreatedAt = s.now().UnixMilli()
	}
	item.Embedding = slices.Clone(item.Embedding)
	item.Similarity, item.Score = 0, 0
	s.knowledge = append(s.knowledge, item)
	return nil
}

func (s *Store) RemoveKnowledge(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knowledge = slices.DeleteFunc(s.knowledge, func(k types.RAGKnowledgeItem) bool {
		return k.ID == id || k.Content.Metadata.OriginalID == id
	})
	return nil
}

func (s *Store) ClearKnowledge(ctx context.Context, agentID uuid.UUID, includeShared bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knowledge = slices.DeleteFunc(s.knowledge, func(k types.RAGKnowledgeItem) bool {
		return k.AgentID == agentID || (includeShared && k.Content.Metadata.IsShared)
	})
	return nil
}

// =============================================================================
// CacheStore / LogStore
// =============================================================================

func cacheKey(agentID uuid.UUID, key string) string {
	return agentID.String() + ":" + key
}

func (s *Store) GetCache(ctx context.Context, agentID uuid.UUID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cache[cacheKey(agentID, key)]
	return v, ok, nil
}

func (s *Store) SetCache(ctx context.Context, agentID uuid.UUID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[cacheKey(agentID, key)] = value
	return nil
}

func (s *Store) DeleteCache(ctx context.Context, agentID uuid.UUID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, cacheKey(agentID, key))
	return nil
}

func (s *Store) Log(ctx context.Context, entry storage.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return nil
}
