package storage

import (
	"context"

	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
)

// =============================================================================
// 🗄️ 存储接口（按职责拆分）
// =============================================================================

// MemoryQuery GetMemories 参数。Start/End 为毫秒时间戳，0 表示不限。
type MemoryQuery struct {
	TableName string
	AgentID   uuid.UUID
	RoomID    uuid.UUID
	Count     int
	Unique    bool
	Start     int64
	End       int64
}

// MemorySearch 按向量相似度检索记忆。RoomID / AgentID 为零值时不过滤。
type MemorySearch struct {
	TableName      string
	AgentID        uuid.UUID
	RoomID         uuid.UUID
	Embedding      []float32
	MatchThreshold float64
	Count          int
	Unique         bool
}

// CachedEmbeddingQuery 按文本编辑距离查找已计算过的嵌入
type CachedEmbeddingQuery struct {
	TableName string
	Input     string
	// Threshold 允许的最大编辑距离
	Threshold  int
	MatchCount int
}

// CachedEmbedding 命中的嵌入及其编辑距离
type CachedEmbedding struct {
	Embedding        []float32
	LevenshteinScore int
}

// GoalQuery GetGoals 参数。UserID 为 nil 时不按用户过滤。
type GoalQuery struct {
	AgentID        uuid.UUID
	RoomID         uuid.UUID
	UserID         *uuid.UUID
	OnlyInProgress bool
	Count          int
}

// KnowledgeQuery 按 id 或 agent 列出知识条目（包含共享条目）
type KnowledgeQuery struct {
	ID      uuid.UUID
	AgentID uuid.UUID
	Limit   int
}

// KnowledgeSearch 向量检索知识条目，结果按相似度降序
type KnowledgeSearch struct {
	AgentID        uuid.UUID
	Embedding      []float32
	MatchThreshold float64
	MatchCount     int
	SearchText     string
}

// LogEntry 运行日志记录
type LogEntry struct {
	Body   map[string]any
	UserID uuid.UUID
	RoomID uuid.UUID
	Type   string
}

// AccountStore 账户
type AccountStore interface {
	// GetAccountByID 未找到时返回 nil, nil
	GetAccountByID(ctx context.Context, id uuid.UUID) (*types.Account, error)
	CreateAccount(ctx context.Context, account types.Account) (bool, error)
	GetActorDetails(ctx context.Context, roomID uuid.UUID) ([]types.Actor, error)
}

// MemoryStore 记忆（按 TableName 分表）
type MemoryStore interface {
	GetMemories(ctx context.Context, q MemoryQuery) ([]types.Memory, error)
	// GetMemoryByID 未找到时返回 nil, nil
	GetMemoryByID(ctx context.Context, id uuid.UUID) (*types.Memory, error)
	GetMemoriesByIDs(ctx context.Context, ids []uuid.UUID, tableName string) ([]types.Memory, error)
	GetMemoriesByRoomIDs(ctx context.Context, tableName string, agentID uuid.UUID, roomIDs []uuid.UUID, limit int) ([]types.Memory, error)
	GetCachedEmbeddings(ctx context.Context, q CachedEmbeddingQuery) ([]CachedEmbedding, error)
	SearchMemories(ctx context.Context, q MemorySearch) ([]types.Memory, error)
	CreateMemory(ctx context.Context, memory types.Memory, tableName string, unique bool) error
	RemoveMemory(ctx context.Context, id uuid.UUID, tableName string) error
	RemoveAllMemories(ctx context.Context, roomID uuid.UUID, tableName string) error
	CountMemories(ctx context.Context, roomID uuid.UUID, unique bool, tableName string) (int, error)
}

// GoalStore 目标
type GoalStore interface {
	GetGoals(ctx context.Context, q GoalQuery) ([]types.Goal, error)
	CreateGoal(ctx context.Context, goal types.Goal) error
	UpdateGoal(ctx context.Context, goal types.Goal) error
	UpdateGoalStatus(ctx context.Context, goalID uuid.UUID, status types.GoalStatus) error
	RemoveGoal(ctx context.Context, goalID uuid.UUID) error
	RemoveAllGoals(ctx context.Context, roomID uuid.UUID) error
}

// RoomStore 房间
type RoomStore interface {
	// GetRoom 房间不存在时返回 uuid.Nil
	GetRoom(ctx context.Context, roomID uuid.UUID) (uuid.UUID, error)
	// CreateRoom roomID 为零值时生成新 id
	CreateRoom(ctx context.Context, roomID uuid.UUID) (uuid.UUID, error)
	RemoveRoom(ctx context.Context, roomID uuid.UUID) error
	GetRoomsForParticipant(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	GetRoomsForParticipants(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error)
}

// ParticipantStore 房间成员
type ParticipantStore interface {
	AddParticipant(ctx context.Context, userID, roomID uuid.UUID) (bool, error)
	RemoveParticipant(ctx context.Context, userID, roomID uuid.UUID) (bool, error)
	GetParticipantsForAccount(ctx context.Context, userID uuid.UUID) ([]types.Participant, error)
	GetParticipantsForRoom(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error)
	GetParticipantUserState(ctx context.Context, roomID, userID uuid.UUID) (types.ParticipantUserState, error)
	SetParticipantUserState(ctx context.Context, roomID, userID uuid.UUID, state types.ParticipantUserState) error
}

// RelationshipStore 用户关系，每个无序用户对只创建一次
type RelationshipStore interface {
	CreateRelationship(ctx context.Context, userA, userB uuid.UUID) (bool, error)
	// GetRelationship 未找到时返回 nil, nil
	GetRelationship(ctx context.Context, userA, userB uuid.UUID) (*types.Relationship, error)
	GetRelationships(ctx context.Context, userID uuid.UUID) ([]types.Relationship, error)
}

// KnowledgeStore RAG 知识条目
type KnowledgeStore interface {
	GetKnowledge(ctx context.Context, q KnowledgeQuery) ([]types.RAGKnowledgeItem, error)
	SearchKnowledge(ctx context.Context, q KnowledgeSearch) ([]types.RAGKnowledgeItem, error)
	CreateKnowledge(ctx context.Context, item types.RAGKnowledgeItem) error
	// RemoveKnowledge 同时删除 OriginalID 指向该条目的分块
	RemoveKnowledge(ctx context.Context, id uuid.UUID) error
	// ClearKnowledge 删除 agent 拥有的全部条目，includeShared 为 true 时一并删除所有共享条目
	ClearKnowledge(ctx context.Context, agentID uuid.UUID, includeShared bool) error
}

// CacheStore 数据库委托缓存，按 agent 隔离
type CacheStore interface {
	// GetCache 未命中时 ok 为 false
	GetCache(ctx context.Context, agentID uuid.UUID, key string) (value string, ok bool, err error)
	SetCache(ctx context.Context, agentID uuid.UUID, key, value string) error
	DeleteCache(ctx context.Context, agentID uuid.UUID, key string) error
}

// DefaultRelationshipStatus 新建关系的状态
const DefaultRelationshipStatus = "ACTIVE"

// LogStore 运行日志
type LogStore interface {
	Log(ctx context.Context, entry LogEntry) error
}

// Adapter 完整的数据库适配器，单个实例由同一运行时的所有管理器共享
type Adapter interface {
	AccountStore
	MemoryStore
	GoalStore
	RoomStore
	ParticipantStore
	RelationshipStore
	KnowledgeStore
	CacheStore
	LogStore

	Init(ctx context.Context) error
	Close() error
}
