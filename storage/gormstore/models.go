package gormstore

import (
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// =============================================================================
// 🗃️ 表模型
// =============================================================================

type accountModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string
	Username  string `gorm:"index"`
	Email     string
	AvatarURL string
	Details   datatypes.JSONMap
	CreatedAt int64 `gorm:"autoCreateTime:milli"`
}

func (accountModel) TableName() string { return "accounts" }

type memoryModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	Type      string `gorm:"index:idx_memories_type_room;size:64"`
	UserID    string `gorm:"size:36"`
	AgentID   string `gorm:"index;size:36"`
	RoomID    string `gorm:"index:idx_memories_type_room;size:36"`
	Content   datatypes.JSONType[types.Content]
	Embedding datatypes.JSONSlice[float32]
	IsUnique  bool  `gorm:"column:is_unique"`
	CreatedAt int64 `gorm:"index"`
	// Seq 写入序号，CreatedAt 相同的记忆按 Seq 区分先后
	Seq int64 `gorm:"column:seq;index;not null;default:0"`
}

func (memoryModel) TableName() string { return "memories" }

type goalModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	RoomID     string `gorm:"index;size:36"`
	UserID     string `gorm:"index;size:36"`
	Name       string
	Status     string `gorm:"size:32"`
	Objectives datatypes.JSONSlice[types.Objective]
	CreatedAt  int64 `gorm:"autoCreateTime:milli"`
}

func (goalModel) TableName() string { return "goals" }

type roomModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}

func (roomModel) TableName() string { return "rooms" }

type participantModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"uniqueIndex:idx_participant_user_room;size:36"`
	RoomID    string `gorm:"uniqueIndex:idx_participant_user_room;size:36"`
	UserState string `gorm:"size:16"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}

func (participantModel) TableName() string { return "participants" }

type relationshipModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserA     string `gorm:"index;size:36"`
	UserB     string `gorm:"index;size:36"`
	UserID    string `gorm:"size:36"`
	RoomID    string `gorm:"size:36"`
	Status    string `gorm:"size:32"`
	CreatedAt int64
}

func (relationshipModel) TableName() string { return "relationships" }

type knowledgeModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	AgentID    string `gorm:"index;size:36"`
	Content    datatypes.JSONType[types.KnowledgeContent]
	Embedding  datatypes.JSONSlice[float32]
	IsMain     bool
	IsChunk    bool
	OriginalID string `gorm:"index;size:36"`
	ChunkIndex int
	IsShared   bool `gorm:"index"`
	CreatedAt  int64
}

func (knowledgeModel) TableName() string { return "knowledge" }

type cacheModel struct {
	Key       string `gorm:"primaryKey;size:255"`
	AgentID   string `gorm:"primaryKey;size:36"`
	Value     string
	CreatedAt int64 `gorm:"autoCreateTime:milli"`
}

func (cacheModel) TableName() string { return "cache" }

type logModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	Body      datatypes.JSONMap
	UserID    string `gorm:"size:36"`
	RoomID    string `gorm:"index;size:36"`
	Type      string `gorm:"size:64"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}

func (logModel) TableName() string { return "logs" }

// allModels AutoMigrate 的表集合
func allModels() []any {
	return []any{
		&accountModel{},
		&memoryModel{},
		&goalModel{},
		&roomModel{},
		&participantModel{},
		&relationshipModel{},
		&knowledgeModel{},
		&cacheModel{},
		&logModel{},
	}
}

// =============================================================================
// 🔄 模型转换
// =============================================================================

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func toAccountModel(a types.Account) accountModel {
	return accountModel{
		ID:        a.ID.String(),
		Name:      a.Name,
		Username:  a.Username,
		Email:     a.Email,
		AvatarURL: a.AvatarURL,
		Details:   datatypes.JSONMap(a.Details),
	}
}

func (m accountModel) toAccount() types.Account {
	return types.Account{
		ID:        parseID(m.ID),
		Name:      m.Name,
		Username:  m.Username,
		Email:     m.Email,
		AvatarURL: m.AvatarURL,
		Details:   map[string]any(m.Details),
	}
}

func toMemoryModel(mem types.Memory, table string, unique bool) memoryModel {
	return memoryModel{
		ID:        mem.ID.String(),
		Type:      table,
		UserID:    idString(mem.UserID),
		AgentID:   idString(mem.AgentID),
		RoomID:    idString(mem.RoomID),
		Content:   datatypes.NewJSONType(mem.Content),
		Embedding: datatypes.JSONSlice[float32](mem.Embedding),
		IsUnique:  unique,
		CreatedAt: mem.CreatedAt,
	}
}

func (m memoryModel) toMemory() types.Memory {
	return types.Memory{
		ID:        parseID(m.ID),
		UserID:    parseID(m.UserID),
		AgentID:   parseID(m.AgentID),
		RoomID:    parseID(m.RoomID),
		Content:   m.Content.Data(),
		Embedding: []float32(m.Embedding),
		CreatedAt: m.CreatedAt,
		Unique:    m.IsUnique,
	}
}

func toGoalModel(g types.Goal) goalModel {
	return goalModel{
		ID:         g.ID.String(),
		RoomID:     idString(g.RoomID),
		UserID:     idString(g.UserID),
		Name:       g.Name,
		Status:     string(g.Status),
		Objectives: datatypes.JSONSlice[types.Objective](g.Objectives),
	}
}

func (m goalModel) toGoal() types.Goal {
	return types.Goal{
		ID:         parseID(m.ID),
		RoomID:     parseID(m.RoomID),
		UserID:     parseID(m.UserID),
		Name:       m.Name,
		Status:     types.GoalStatus(m.Status),
		Objectives: []types.Objective(m.Objectives),
	}
}

func (m relationshipModel) toRelationship() types.Relationship {
	return types.Relationship{
		ID:        parseID(m.ID),
		UserA:     parseID(m.UserA),
		UserB:     parseID(m.UserB),
		UserID:    parseID(m.UserID),
		RoomID:    parseID(m.RoomID),
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}

func toKnowledgeModel(item types.RAGKnowledgeItem) knowledgeModel {
	md := item.Content.Metadata
	return knowledgeModel{
		ID:         item.ID.String(),
		AgentID:    idString(item.AgentID),
		Content:    datatypes.NewJSONType(item.Content),
		Embedding:  datatypes.JSONSlice[float32](item.Embedding),
		IsMain:     md.IsMain,
		IsChunk:    md.IsChunk,
		OriginalID: idString(md.OriginalID),
		ChunkIndex: md.ChunkIndex,
		IsShared:   md.IsShared,
		CreatedAt:  item.CreatedAt,
	}
}

func (m knowledgeModel) toItem() types.RAGKnowledgeItem {
	return types.RAGKnowledgeItem{
		ID:        parseID(m.ID),
		AgentID:   parseID(m.AgentID),
		Content:   m.Content.Data(),
		Embedding: []float32(m.Embedding),
		CreatedAt: m.CreatedAt,
	}
}
