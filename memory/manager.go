package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/agentcore/storage"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultUniqueThreshold unique 写入时视为近重复的最低相似度
	DefaultUniqueThreshold = 0.95
	// DefaultCount GetMemories 未指定数量时返回的条数
	DefaultCount = 10

	cachedEmbeddingThreshold  = 2
	cachedEmbeddingMatchCount = 10
)

// Embedder 计算文本嵌入，失败时应返回零向量而不是错误。
// *embedding.Service 满足该接口。
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Options Manager 配置
type Options struct {
	// AgentID 记忆所属的 agent
	AgentID uuid.UUID
	// UniqueThreshold 近重复判定阈值，<= 0 时使用 DefaultUniqueThreshold
	UniqueThreshold float64
	// DefaultCount GetMemories 的默认条数，<= 0 时使用 DefaultCount
	DefaultCount int
	Logger       *zap.Logger
}

// GetOptions GetMemories 参数，Start/End 为毫秒时间戳
type GetOptions struct {
	RoomID uuid.UUID
	Count  int
	Unique bool
	Start  int64
	End    int64
}

// SearchOptions SearchMemoriesByEmbedding 参数。RoomID 为零值时检索该 agent 的全部房间。
type SearchOptions struct {
	MatchThreshold float64
	Count          int
	RoomID         uuid.UUID
	Unique         bool
}

// Manager 单个记忆表的管理器，可被多个 goroutine 并发使用
type Manager struct {
	tableName string
	store     storage.MemoryStore
	embedder  Embedder
	opts      Options
	now       func() time.Time
	logger    *zap.Logger
}

// New 创建记忆管理器
func New(tableName string, store storage.MemoryStore, embedder Embedder, opts Options) *Manager {
	if opts.UniqueThreshold <= 0 {
		opts.UniqueThreshold = DefaultUniqueThreshold
	}
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = DefaultCount
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		tableName: tableName,
		store:     store,
		embedder:  embedder,
		opts:      opts,
		now:       time.Now,
		logger:    logger.With(zap.String("component", "memory_manager"), zap.String("table", tableName)),
	}
}

// TableName 返回管理器绑定的表名
func (m *Manager) TableName() string { return m.tableName }

// AgentID 返回管理器绑定的 agent
func (m *Manager) AgentID() uuid.UUID { return m.opts.AgentID }

// AddEmbeddingToMemory 为记忆补全向量，已有向量时原样返回
func (m *Manager) AddEmbeddingToMemory(ctx context.Context, mem types.Memory) (types.Memory, error) {
	if mem.HasEmbedding() {
		return mem, nil
	}
	text := strings.TrimSpace(mem.Content.Text)
	if text == "" {
		return mem, types.NewError(types.ErrEmptyContent, "cannot embed memory with empty text")
	}
	mem.Embedding = m.embedder.Embed(ctx, text)
	return mem, nil
}

// GetMemories 读取房间内最近的记忆，结果从新到旧
func (m *Manager) GetMemories(ctx context.Context, opts GetOptions) ([]types.Memory, error) {
	count := opts.Count
	if count <= 0 {
		count = m.opts.DefaultCount
	}
	mems, err := m.store.GetMemories(ctx, storage.MemoryQuery{
		TableName: m.tableName,
		AgentID:   m.opts.AgentID,
		RoomID:    opts.RoomID,
		Count:     count,
		Unique:    opts.Unique,
		Start:     opts.Start,
		End:       opts.End,
	})
	if err != nil {
		return nil, m.wrap("get memories", err)
	}
	return mems, nil
}

// GetCachedEmbeddings 查找内容与 content 编辑距离不超过 2 的已有嵌入
func (m *Manager) GetCachedEmbeddings(ctx context.Context, content string) ([]storage.CachedEmbedding, error) {
	out, err := m.store.GetCachedEmbeddings(ctx, storage.CachedEmbeddingQuery{
		TableName:  m.tableName,
		Input:      content,
		Threshold:  cachedEmbeddingThreshold,
		MatchCount: cachedEmbeddingMatchCount,
	})
	if err != nil {
		return nil, m.wrap("get cached embeddings", err)
	}
	return out, nil
}

// SearchMemoriesByEmbedding 按相似度降序返回不低于 MatchThreshold 的记忆
func (m *Manager) SearchMemoriesByEmbedding(ctx context.Context, emb []float32, opts SearchOptions) ([]types.Memory, error) {
	count := opts.Count
	if count <= 0 {
		count = m.opts.DefaultCount
	}
	out, err := m.store.SearchMemories(ctx, storage.MemorySearch{
		TableName:      m.tableName,
		AgentID:        m.opts.AgentID,
		RoomID:         opts.RoomID,
		Embedding:      emb,
		MatchThreshold: opts.MatchThreshold,
		Count:          count,
		Unique:         opts.Unique,
	})
	if err != nil {
		return nil, m.wrap("search memories", err)
	}
	return out, nil
}

// CreateMemory 写入记忆并返回是否真正写入。
// id 已存在或 unique 写入命中近重复时跳过，返回 false。
func (m *Manager) CreateMemory(ctx context.Context, mem types.Memory, unique bool) (bool, error) {
	if mem.ID != uuid.Nil {
		existing, err := m.store.GetMemoryByID(ctx, mem.ID)
		if err != nil {
			return false, m.wrap("check memory", err)
		}
		if existing != nil {
			m.logger.Debug("memory already exists, skipping", zap.String("memory_id", mem.ID.String()))
			return false, nil
		}
	} else {
		mem.ID = uuid.New()
	}
	if mem.CreatedAt == 0 {
		mem.CreatedAt = m.now().UnixMilli()
	}
	if mem.AgentID == uuid.Nil {
		mem.AgentID = m.opts.AgentID
	}

	if !mem.HasEmbedding() && strings.TrimSpace(mem.Content.Text) != "" {
		mem.Embedding = m.embedder.Embed(ctx, mem.Content.Text)
	}

	if unique && mem.HasEmbedding() {
		similar, err := m.store.SearchMemories(ctx, storage.MemorySearch{
			TableName:      m.tableName,
			AgentID:        mem.AgentID,
			RoomID:         mem.RoomID,
			Embedding:      mem.Embedding,
			MatchThreshold: m.opts.UniqueThreshold,
			Count:          1,
		})
		if err != nil {
			return false, m.wrap("check near duplicates", err)
		}
		if len(similar) > 0 {
			m.logger.Debug("near-duplicate memory in room, skipping",
				zap.String("room_id", mem.RoomID.String()),
				zap.Float64("similarity", similar[0].Similarity),
			)
			return false, nil
		}
	}

	if err := m.store.CreateMemory(ctx, mem, m.tableName, unique); err != nil {
		if types.IsErrorCode(err, types.ErrAlreadyExists) {
			return false, nil
		}
		return false, m.wrap("create memory", err)
	}
	return true, nil
}

// GetMemoriesByRoomIDs 读取多个房间的记忆，limit <= 0 时不限
func (m *Manager) GetMemoriesByRoomIDs(ctx context.Context, roomIDs []uuid.UUID, limit int) ([]types.Memory, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	out, err := m.store.GetMemoriesByRoomIDs(ctx, m.tableName, m.opts.AgentID, roomIDs, limit)
	if err != nil {
		return nil, m.wrap("get memories by rooms", err)
	}
	return out, nil
}

// GetMemoryByID 未找到时返回 nil, nil
func (m *Manager) GetMemoryByID(ctx context.Context, id uuid.UUID) (*types.Memory, error) {
	mem, err := m.store.GetMemoryByID(ctx, id)
	if err != nil {
		if types.IsErrorCode(err, types.ErrNotFound) {
			return nil, nil
		}
		return nil, m.wrap("get memory", err)
	}
	return mem, nil
}

// RemoveMemory 删除单条记忆
func (m *Manager) RemoveMemory(ctx context.Context, id uuid.UUID) error {
	if err := m.store.RemoveMemory(ctx, id, m.tableName); err != nil {
		return m.wrap("remove memory", err)
	}
	return nil
}

// RemoveAllMemories 删除房间内本表的全部记忆
func (m *Manager) RemoveAllMemories(ctx context.Context, roomID uuid.UUID) error {
	if err := m.store.RemoveAllMemories(ctx, roomID, m.tableName); err != nil {
		return m.wrap("remove all memories", err)
	}
	return nil
}

// CountMemories 统计房间内本表的记忆数
func (m *Manager) CountMemories(ctx context.Context, roomID uuid.UUID, unique bool) (int, error) {
	n, err := m.store.CountMemories(ctx, roomID, unique, m.tableName)
	if err != nil {
		return 0, m.wrap("count memories", err)
	}
	return n, nil
}

func (m *Manager) wrap(op string, err error) error {
	return fmt.Errorf("memory %s: %s: %w", m.tableName, op, err)
}
