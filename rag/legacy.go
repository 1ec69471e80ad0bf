package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/agentcore/llm/generation"
	"github.com/BaSui01/agentcore/memory"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
)

const (
	legacyMatchThreshold = 0.1
	legacyMatchCount     = 5
)

// ZeroEmbedder 能提供零向量的嵌入器，*embedding.Service 满足该接口
type ZeroEmbedder interface {
	memory.Embedder
	ZeroVector() []float32
}

// LegacyKnowledge 非 RAG 知识：整篇文档写入 documents 表，
// 预处理后的分片写入 knowledge（fragments）表，检索时按分片来源取回文档。
// 用于未开启 ragKnowledge 的角色。
type LegacyKnowledge struct {
	agentID   uuid.UUID
	documents *memory.Manager
	fragments *memory.Manager
	embedder  ZeroEmbedder
	chunkSize int
	bleed     int
	now       func() time.Time
}

// NewLegacyKnowledge 基于 documents 与 fragments 两个记忆管理器创建
func NewLegacyKnowledge(agentID uuid.UUID, documents, fragments *memory.Manager, embedder ZeroEmbedder) *LegacyKnowledge {
	return &LegacyKnowledge{
		agentID:   agentID,
		documents: documents,
		fragments: fragments,
		embedder:  embedder,
		chunkSize: DefaultChunkSize,
		bleed:     DefaultBleed,
		now:       time.Now,
	}
}

// Get 返回与消息相关的知识文档
func (k *LegacyKnowledge) Get(ctx context.Context, msg types.Memory) ([]types.KnowledgeItem, error) {
	processed := Preprocess(msg.Content.Text)
	if processed == "" {
		return nil, nil
	}
	frags, err := k.fragments.SearchMemoriesByEmbedding(ctx, k.embedder.Embed(ctx, processed), memory.SearchOptions{
		RoomID:         k.agentID,
		Count:          legacyMatchCount,
		MatchThreshold: legacyMatchThreshold,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(frags))
	var out []types.KnowledgeItem
	for _, f := range frags {
		id, ok := types.ValidateUUID(f.Content.Source)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		doc, err := k.documents.GetMemoryByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		out = append(out, types.KnowledgeItem{ID: doc.ID, Content: doc.Content})
	}
	return out, nil
}

// Set 写入文档及其分片。文档以零向量存储，只有分片参与检索。
func (k *LegacyKnowledge) Set(ctx context.Context, item types.KnowledgeItem) error {
	if strings.TrimSpace(item.Content.Text) == "" {
		return types.NewError(types.ErrEmptyContent, "knowledge item has no text")
	}
	if item.ID == uuid.Nil {
		item.ID = types.StringToUUID(item.Content.Text)
	}
	now := k.now().UnixMilli()
	doc := types.Memory{
		ID:        item.ID,
		AgentID:   k.agentID,
		RoomID:    k.agentID,
		UserID:    k.agentID,
		CreatedAt: now,
		Content:   item.Content,
		Embedding: k.embedder.ZeroVector(),
	}
	if _, err := k.documents.CreateMemory(ctx, doc, false); err != nil {
		return fmt.Errorf("store knowledge document: %w", err)
	}

	for _, fragment := range generation.SplitChunks(Preprocess(item.Content.Text), k.chunkSize, k.bleed) {
		mem := types.Memory{
			ID:        types.StringToUUID(item.ID.String() + fragment),
			AgentID:   k.agentID,
			RoomID:    k.agentID,
			UserID:    k.agentID,
			CreatedAt: now,
			Content:   types.Content{Source: item.ID.String(), Text: fragment},
			Embedding: k.embedder.Embed(ctx, fragment),
		}
		if _, err := k.fragments.CreateMemory(ctx, mem, false); err != nil {
			return fmt.Errorf("store knowledge fragment: %w", err)
		}
	}
	return nil
}
