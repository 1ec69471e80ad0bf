package types

import "github.com/google/uuid"

// KnowledgeScope 知识作用域
type KnowledgeScope string

const (
	ScopeShared  KnowledgeScope = "shared"
	ScopePrivate KnowledgeScope = "private"
)

// ScopeOf 根据共享标记返回作用域
func ScopeOf(shared bool) KnowledgeScope {
	if shared {
		return ScopeShared
	}
	return ScopePrivate
}

// KnowledgeMetadata 知识条目的强类型元数据
type KnowledgeMetadata struct {
	IsMain     bool           `json:"isMain,omitempty"`
	IsChunk    bool           `json:"isChunk,omitempty"`
	OriginalID uuid.UUID      `json:"originalId,omitempty"`
	ChunkIndex int            `json:"chunkIndex,omitempty"`
	Source     string         `json:"source,omitempty"`
	Type       string         `json:"type,omitempty"`
	IsShared   bool           `json:"isShared,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// KnowledgeContent 知识条目内容
type KnowledgeContent struct {
	Text     string            `json:"text"`
	Metadata KnowledgeMetadata `json:"metadata"`
}

// RAGKnowledgeItem 知识库中的主文档或分块
type RAGKnowledgeItem struct {
	ID        uuid.UUID        `json:"id"`
	AgentID   uuid.UUID        `json:"agentId"`
	Content   KnowledgeContent `json:"content"`
	Embedding []float32        `json:"embedding,omitempty"`
	// CreatedAt 创建时间（毫秒）
	CreatedAt  int64   `json:"createdAt,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// KnowledgeItem 旧版（非 RAG）知识条目，存放于 documents / knowledge 记忆表
type KnowledgeItem struct {
	ID      uuid.UUID `json:"id"`
	Content Content   `json:"content"`
}
