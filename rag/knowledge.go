package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/agentcore/internal/metrics"
	"github.com/BaSui01/agentcore/llm/generation"
	"github.com/BaSui01/agentcore/storage"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 知识检索默认参数
const (
	DefaultMatchThreshold = 0.85
	DefaultMatchCount     = 8
	DefaultChunkSize      = 512
	DefaultBleed          = 20

	// bm25Weight BM25 归一化分数对综合分数的加成权重
	bm25Weight = 0.5
	// noMatchPenalty 没有任何查询词命中且没有对话上下文时的降权系数
	noMatchPenalty = 0.3
	// proximityBoost 查询词邻近出现时的加成系数
	proximityBoost = 1.5
)

// Embedder 知识入库与检索所需的嵌入能力，*embedding.Service 满足该接口
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
	EmbedBatch(ctx context.Context, texts []string) [][]float32
}

// Options KnowledgeManager 配置
type Options struct {
	AgentID uuid.UUID
	// KnowledgeRoot 知识文件根目录，CleanupDeletedKnowledgeFiles 据此判断文件是否存在
	KnowledgeRoot  string
	MatchThreshold float64
	MatchCount     int
	ChunkSize      int
	// Bleed 相邻分块重叠字符数，0 使用 DefaultBleed，负数表示不重叠
	Bleed   int
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// Query GetKnowledge 参数
type Query struct {
	Query               string
	ID                  uuid.UUID
	ConversationContext string
	Limit               int
	AgentID             uuid.UUID
}

// SearchParams SearchKnowledge 参数，阈值与数量为零值时使用默认值
type SearchParams struct {
	AgentID        uuid.UUID
	Embedding      []float32
	MatchThreshold float64
	MatchCount     int
	SearchText     string
}

// KnowledgeManager RAG 知识库管理器：分块入库、混合检索（向量 + 词法）与生命周期管理
type KnowledgeManager struct {
	store    storage.KnowledgeStore
	embedder Embedder
	opts     Options
	now      func() time.Time
	logger   *zap.Logger
}

// NewKnowledgeManager 创建知识库管理器
func NewKnowledgeManager(store storage.KnowledgeStore, embedder Embedder, opts Options) *KnowledgeManager {
	if opts.MatchThreshold <= 0 {
		opts.MatchThreshold = DefaultMatchThreshold
	}
	if opts.MatchCount <= 0 {
		opts.MatchCount = DefaultMatchCount
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Bleed < 0 {
		opts.Bleed = 0
	} else if opts.Bleed == 0 {
		opts.Bleed = DefaultBleed
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeManager{
		store:    store,
		embedder: embedder,
		opts:     opts,
		now:      time.Now,
		logger:   logger.With(zap.String("component", "rag_knowledge")),
	}
}

// KnowledgeRoot 返回知识文件根目录
func (m *KnowledgeManager) KnowledgeRoot() string { return m.opts.KnowledgeRoot }

// GenerateScopedID 由路径与作用域派生确定性的知识 id
func GenerateScopedID(filePath string, isShared bool) uuid.UUID {
	return types.StringToUUID(fmt.Sprintf("knowledge-%s-%s", types.ScopeOf(isShared), normalizePath(filePath)))
}

func chunkID(mainID uuid.UUID, index int) uuid.UUID {
	return types.StringToUUID(fmt.Sprintf("%s-chunk-%d", mainID, index))
}

func normalizePath(p string) string {
	p = path.Clean(filepath.ToSlash(strings.TrimSpace(p)))
	return strings.TrimPrefix(p, "./")
}

func (m *KnowledgeManager) agent(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return m.opts.AgentID
	}
	return id
}

// ProcessFile 入库一个知识文件。相同路径与作用域的旧条目（含分块）先被删除，
// 因此重复入库得到相同的 id 集合。
func (m *KnowledgeManager) ProcessFile(ctx context.Context, file File) error {
	if !file.Type.Valid() {
		return types.Errorf(types.ErrInvalidInput, "unsupported knowledge file type %q", file.Type)
	}
	if strings.TrimSpace(file.Content) == "" {
		return types.Errorf(types.ErrEmptyContent, "knowledge file %q is empty", file.Path)
	}
	start := m.now()
	source := normalizePath(file.Path)
	scopedID := GenerateScopedID(source, file.IsShared)

	if err := m.store.RemoveKnowledge(ctx, scopedID); err != nil {
		return fmt.Errorf("remove previous knowledge for %s: %w", source, err)
	}

	text := file.Content
	if file.Type == FileTypeHTML {
		text = ExtractHTMLText(text)
	}
	item := types.RAGKnowledgeItem{
		ID:      scopedID,
		AgentID: m.opts.AgentID,
		Content: types.KnowledgeContent{
			Text: file.Content,
			Metadata: types.KnowledgeMetadata{
				Source:   source,
				Type:     string(file.Type),
				IsShared: file.IsShared,
			},
		},
	}
	chunks, err := m.ingest(ctx, item, Preprocess(text))
	if err != nil {
		return err
	}
	m.logger.Info("knowledge file processed",
		zap.String("path", source),
		zap.String("scope", string(types.ScopeOf(file.IsShared))),
		zap.Int("chunks", chunks),
		zap.Duration("duration", m.now().Sub(start)),
	)
	return nil
}

// CreateKnowledge 写入一条知识。非分块条目会被预处理、嵌入并切分为分块。
func (m *KnowledgeManager) CreateKnowledge(ctx context.Context, item types.RAGKnowledgeItem) error {
	if strings.TrimSpace(item.Content.Text) == "" {
		return types.NewError(types.ErrEmptyContent, "knowledge item has no text")
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.AgentID = m.agent(item.AgentID)
	if item.Content.Metadata.IsChunk {
		if item.Content.Metadata.OriginalID == uuid.Nil {
			return types.NewError(types.ErrInvalidInput, "knowledge chunk requires an original id")
		}
		if len(item.Embedding) == 0 {
			item.Embedding = m.embedder.Embed(ctx, Preprocess(item.Content.Text))
		}
		if item.CreatedAt == 0 {
			item.CreatedAt = m.now().UnixMilli()
		}
		if err := m.store.CreateKnowledge(ctx, item); err != nil {
			return fmt.Errorf("create knowledge chunk %s: %w", item.ID, err)
		}
		return nil
	}
	_, err := m.ingest(ctx, item, Preprocess(item.Content.Text))
	return err
}

// ingest 写入主条目及其分块，返回分块数
func (m *KnowledgeManager) ingest(ctx context.Context, item types.RAGKnowledgeItem, processed string) (int, error) {
	now := m.now().UnixMilli()
	item.Content.Metadata.IsMain = true
	item.Content.Metadata.IsChunk = false
	if item.CreatedAt == 0 {
		item.CreatedAt = now
	}
	if len(item.Embedding) == 0 && processed != "" {
		item.Embedding = m.embedder.Embed(ctx, processed)
	}
	if err := m.store.CreateKnowledge(ctx, item); err != nil {
		return 0, fmt.Errorf("create knowledge %s: %w", item.ID, err)
	}

	scope := string(types.ScopeOf(item.Content.Metadata.IsShared))
	m.opts.Metrics.RecordKnowledgeIngested(scope, "main", 1)

	chunks := generation.SplitChunks(processed, m.opts.ChunkSize, m.opts.Bleed)
	if len(chunks) == 0 {
		return 0, nil
	}
	vectors := m.embedder.EmbedBatch(ctx, chunks)
	for i, text := range chunks {
		meta := item.Content.Metadata
		meta.IsMain = false
		meta.IsChunk = true
		meta.OriginalID = item.ID
		meta.ChunkIndex = i
		chunk := types.RAGKnowledgeItem{
			ID:        chunkID(item.ID, i),
			AgentID:   item.AgentID,
			Content:   types.KnowledgeContent{Text: text, Metadata: meta},
			Embedding: vectors[i],
			CreatedAt: now,
		}
		if err := m.store.CreateKnowledge(ctx, chunk); err != nil {
			return i, fmt.Errorf("create knowledge chunk %d of %s: %w", i, item.ID, err)
		}
	}
	m.opts.Metrics.RecordKnowledgeIngested(scope, "chunk", len(chunks))
	return len(chunks), nil
}

// GetKnowledge 无查询时按 id 或 agent 列出条目；有查询时做向量检索并按词法、
// 邻近度与 BM25 重排，按主条目去重后返回。
func (m *KnowledgeManager) GetKnowledge(ctx context.Context, q Query) ([]types.RAGKnowledgeItem, error) {
	agentID := m.agent(q.AgentID)
	limit := q.Limit
	if limit <= 0 {
		limit = m.opts.MatchCount
	}

	if strings.TrimSpace(q.Query) == "" {
		items, err := m.store.GetKnowledge(ctx, storage.KnowledgeQuery{ID: q.ID, AgentID: agentID, Limit: q.Limit})
		if err != nil {
			return nil, fmt.Errorf("get knowledge: %w", err)
		}
		return items, nil
	}

	processedQuery := Preprocess(q.Query)
	searchText := processedQuery
	if q.ConversationContext != "" {
		searchText = strings.TrimSpace(Preprocess(q.ConversationContext) + " " + processedQuery)
	}
	if searchText == "" {
		return nil, nil
	}

	results, err := m.store.SearchKnowledge(ctx, storage.KnowledgeSearch{
		AgentID:        agentID,
		Embedding:      m.embedder.Embed(ctx, searchText),
		MatchThreshold: m.opts.MatchThreshold,
		MatchCount:     limit * 2,
		SearchText:     processedQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("search knowledge: %w", err)
	}

	candidates := results[:0]
	for _, r := range results {
		if !r.Content.Metadata.IsMain {
			candidates = append(candidates, r)
		}
	}
	ranked := m.rerank(candidates, GetQueryTerms(q.Query+" "+q.ConversationContext), q.ConversationContext != "")
	return dedupeByOriginal(ranked, m.opts.MatchThreshold, limit), nil
}

func (m *KnowledgeManager) rerank(items []types.RAGKnowledgeItem, terms []string, hasContext bool) []types.RAGKnowledgeItem {
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Content.Text
	}
	lexical := bm25Scores(terms, texts)

	for i := range items {
		score := items[i].Similarity
		matched := matchingTerms(items[i].Content.Text, terms)
		switch {
		case len(matched) > 0:
			score *= 1 + float64(len(matched))/float64(len(terms))*2
			if hasProximityMatch(items[i].Content.Text, matched) {
				score *= proximityBoost
			}
		case !hasContext:
			score *= noMatchPenalty
		}
		score *= 1 + bm25Weight*lexical[i]
		items[i].Score = score
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	return items
}

// dedupeByOriginal 每个主条目只保留得分最高的分块
func dedupeByOriginal(items []types.RAGKnowledgeItem, threshold float64, limit int) []types.RAGKnowledgeItem {
	seen := make(map[uuid.UUID]struct{}, len(items))
	out := make([]types.RAGKnowledgeItem, 0, limit)
	for _, it := range items {
		if it.Score < threshold {
			continue
		}
		key := it.ID
		if it.Content.Metadata.OriginalID != uuid.Nil {
			key = it.Content.Metadata.OriginalID
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}

// SearchKnowledge 直接以向量检索知识条目
func (m *KnowledgeManager) SearchKnowledge(ctx context.Context, p SearchParams) ([]types.RAGKnowledgeItem, error) {
	threshold := p.MatchThreshold
	if threshold <= 0 {
		threshold = m.opts.MatchThreshold
	}
	count := p.MatchCount
	if count <= 0 {
		count = m.opts.MatchCount
	}
	out, err := m.store.SearchKnowledge(ctx, storage.KnowledgeSearch{
		AgentID:        m.agent(p.AgentID),
		Embedding:      p.Embedding,
		MatchThreshold: threshold,
		MatchCount:     count,
		SearchText:     p.SearchText,
	})
	if err != nil {
		return nil, fmt.Errorf("search knowledge: %w", err)
	}
	return out, nil
}

// RemoveKnowledge 删除条目及其分块
func (m *KnowledgeManager) RemoveKnowledge(ctx context.Context, id uuid.UUID) error {
	if err := m.store.RemoveKnowledge(ctx, id); err != nil {
		return fmt.Errorf("remove knowledge %s: %w", id, err)
	}
	return nil
}

// ClearKnowledge 删除 agent 的全部知识；shared 为 true 时一并删除所有共享条目
func (m *KnowledgeManager) ClearKnowledge(ctx context.Context, shared *bool) error {
	includeShared := shared != nil && *shared
	if err := m.store.ClearKnowledge(ctx, m.opts.AgentID, includeShared); err != nil {
		return fmt.Errorf("clear knowledge: %w", err)
	}
	return nil
}

// ListAllKnowledge 列出 agent 可见的全部条目，不做检索与重排
func (m *KnowledgeManager) ListAllKnowledge(ctx context.Context, agentID uuid.UUID) ([]types.RAGKnowledgeItem, error) {
	items, err := m.store.GetKnowledge(ctx, storage.KnowledgeQuery{AgentID: m.agent(agentID)})
	if err != nil {
		return nil, fmt.Errorf("list knowledge: %w", err)
	}
	return items, nil
}

// CleanupDeletedKnowledgeFiles 删除来源文件已不存在的主条目（连同分块），返回删除数
func (m *KnowledgeManager) CleanupDeletedKnowledgeFiles(ctx context.Context) (int, error) {
	items, err := m.ListAllKnowledge(ctx, m.opts.AgentID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, it := range items {
		meta := it.Content.Metadata
		if meta.IsChunk || meta.Source == "" {
			continue
		}
		p := filepath.FromSlash(meta.Source)
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.opts.KnowledgeRoot, p)
		}
		if _, statErr := os.Stat(p); !errors.Is(statErr, os.ErrNotExist) {
			continue
		}
		if err := m.RemoveKnowledge(ctx, it.ID); err != nil {
			return removed, err
		}
		removed++
		m.logger.Info("removed knowledge for deleted file", zap.String("path", meta.Source))
	}
	return removed, nil
}
