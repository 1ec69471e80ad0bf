// Package gormstore 基于 GORM 的 storage.Adapter 实现，支持 sqlite / postgres / mysql。
// 向量相似度在进程内计算，数据库只负责过滤。
package gormstore

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/BaSui01/agentcore/internal/database"
	"github.com/BaSui01/agentcore/storage"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options 存储选项
type Options struct {
	// AutoMigrate Init 时自动建表
	AutoMigrate bool
	// SearchLimit 向量检索时最多加载的候选行数，<= 0 表示不限
	SearchLimit int
}

// Store GORM 适配器
type Store struct {
	db     *gorm.DB
	opts   Options
	logger *zap.Logger
	now    func() time.Time
	seq    atomic.Int64
}

// memoryOrder 最新在前，同一毫秒内按写入顺序
const memoryOrder = "created_at DESC, seq DESC"

var _ storage.Adapter = (*Store)(nil)

// New 使用已打开的 *gorm.DB 创建适配器
func New(db *gorm.DB, opts Options, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:     db,
		opts:   opts,
		logger: logger.With(zap.String("component", "gorm_store")),
		now:    time.Now,
	}
}

// Init 校验连接并按需迁移表结构
func (s *Store) Init(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrap("init", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return wrap("ping", err)
	}
	if s.opts.AutoMigrate {
		if err := s.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
			return wrap("auto_migrate", err)
		}
		s.logger.Info("schema migrated", zap.String("dialect", s.db.Dialector.Name()))
	}
	return nil
}

// Close 关闭底层连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB 返回底层 *gorm.DB
func (s *Store) DB() *gorm.DB {
	return s.db
}

// wrap 将数据库错误转换为 types.Error，连接类错误标记为可重试
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return types.Errorf(types.ErrAlreadyExists, "%s: duplicate key", op).WithCause(err)
	}
	return types.Errorf(types.ErrStoreFailure, "%s failed", op).
		WithCause(err).
		WithRetryable(database.IsRetryableError(err))
}

func (s *Store) exists(ctx context.Context, model any, id string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// =============================================================================
// AccountStore
// =============================================================================

func (s *Store) GetAccountByID(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	var m accountModel
	err := s.db.WithContext(ctx).Where("id = ?", id.String()).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get_account", err)
	}
	a := m.toAccount()
	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, account types.Account) (bool, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	m := toAccountModel(account)
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return false, wrap("create_account", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) GetActorDetails(ctx context.Context, roomID uuid.UUID) ([]types.Actor, error) {
	var rows []accountModel
	err := s.db.WithContext(ctx).
		Select("accounts.*").
		Joins("JOIN participants ON participants.user_id = accounts.id").
		Where("participants.room_id = ?", roomID.String()).
		Order("participants.created_at").
		Find(&rows).Error
	if err != nil {
		return nil, wrap("get_actor_details", err)
	}
	actors := make([]types.Actor, 0, len(rows))
	for _, r := range rows {
		actors = append(actors, storage.ActorFromAccount(r.toAccount()))
	}
	return actors, nil
}

// =============================================================================
// MemoryStore
// =============================================================================

func toMemories(rows []memoryModel) []types.Memory {
	out := make([]types.Memory, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toMemory())
	}
	return out
}

func (s *Store) GetMemories(ctx context.Context, q storage.MemoryQuery) ([]types.Memory, error) {
	tx := s.db.WithContext(ctx).Where("type = ? AND room_id = ?", q.TableName, q.RoomID.String())
	if q.AgentID != uuid.Nil {
		tx = tx.Where("agent_id = ?", q.AgentID.String())
	}
	if q.Unique {
		tx = tx.Where("is_unique = ?", true)
	}
	if q.Start > 0 {
		tx = tx.Where("created_at >= ?", q.Start)
	}
	if q.End > 0 {
		tx = tx.Where("created_at <= ?", q.End)
	}
	if q.Count > 0 {
		tx = tx.Limit(q.Count)
	}
	var rows []memoryModel
	if err := tx.Order(memoryOrder).Find(&rows).Error; err != nil {
		return nil, wrap("get_memories", err)
	}
	return toMemories(rows), nil
}

func (s *Store) GetMemoryByID(ctx context.Context, id uuid.UUID) (*types.Memory, error) {
	var m memoryModel
	err := s.db.WithContext(ctx).Where("id = ?", id.String()).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get_memory", err)
	}
	mem := m.toMemory()
	return &mem, nil
}

func (s *Store) GetMemoriesByIDs(ctx context.Context, ids []uuid.UUID, tableName string) ([]types.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	tx := s.db.WithContext(ctx).Where("id IN ?", keys)
	if tableName != "" {
		tx = tx.Where("type = ?", tableName)
	}
	var rows []memoryModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, wrap("get_memories_by_ids", err)
	}
	return toMemories(rows), nil
}

func (s *Store) GetMemoriesByRoomIDs(ctx context.Context, tableName string, agentID uuid.UUID, roomIDs []uuid.UUID, limit int) ([]types.Memory, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	rooms := make([]string, len(roomIDs))
	for i, id := range roomIDs {
		rooms[i] = id.String()
	}
	tx := s.db.WithContext(ctx).Where("type = ? AND room_id IN ?", tableName, rooms)
	if agentID != uuid.Nil {
		tx = tx.Where("agent_id = ?", agentID.String())
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []memoryModel
	if err := tx.Order(memoryOrder).Find(&rows).Error; err != nil {
		return nil, wrap("get_memories_by_room_ids", err)
	}
	return toMemories(rows), nil
}

func (s *Store) GetCachedEmbeddings(ctx context.Context, q storage.CachedEmbeddingQuery) ([]storage.CachedEmbedding, error) {
	var rows []memoryModel
	tx := s.db.WithContext(ctx).Select("content", "embedding").Where("type = ?", q.TableName)
	if s.opts.SearchLimit > 0 {
		tx = tx.Order(memoryOrder).Limit(s.opts.SearchLimit)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, wrap("get_cached_embeddings", err)
	}
	var out []storage.CachedEmbedding
	for _, r := range rows {
		if len(r.Embedding) == 0 {
			continue
		}
		score := storage.Levenshtein(q.Input, r.Content.Data().Text)
		if score > q.Threshold {
			continue
		}
		out = append(out, storage.CachedEmbedding{Embedding: []float32(r.Embedding), LevenshteinScore: score})
	}
	sortCached(out)
	if q.MatchCount > 0 && len(out) > q.MatchCount {
		out = out[:q.MatchCount]
	}
	return out, nil
}

func sortCached(items []storage.CachedEmbedding) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].LevenshteinScore < items[j].LevenshteinScore })
}

func (s *Store) SearchMemories(ctx context.Context, q storage.MemorySearch) ([]types.Memory, error) {
	tx := s.db.WithContext(ctx).Where("type = ?", q.TableName)
	if q.AgentID != uuid.Nil {
		tx = tx.Where("agent_id = ?", q.AgentID.String())
	}
	if q.RoomID != uuid.Nil {
		tx = tx.Where("room_id = ?", q.RoomID.String())
	}
	if q.Unique {
		tx = tx.Where("is_unique = ?", true)
	}
	if s.opts.SearchLimit > 0 {
		tx = tx.Order(memoryOrder).Limit(s.opts.SearchLimit)
	}
	var rows []memoryModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, wrap("search_memories", err)
	}
	return storage.ScoreMemories(toMemories(rows), q.Embedding, q.MatchThreshold, q.Count), nil
}

func (s *Store) CreateMemory(ctx context.Context, memory types.Memory, tableName string, unique bool) error {
	if memory.ID == uuid.Nil {
		memory.ID = uuid.New()
	}
	if memory.CreatedAt == 0 {
		memory.CreatedAt = s.now().UnixMilli()
	}
	m := toMemoryModel(memory, tableName, unique)
	m.Seq = s.nextSeq()
	return database.Transact(ctx, s.db, s.logger, func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&memoryModel{}).Where("id = ?", m.ID).Count(&n).Error; err != nil {
			return wrap("create_memory", err)
		}
		if n > 0 {
			return types.Errorf(types.ErrAlreadyExists, "memory %s already exists", memory.ID)
		}
		return wrap("create_memory", tx.Create(&m).Error)
	})
}

// nextSeq 单调递增，以纳秒时间为基准，重启后仍大于已写入的序号
func (s *Store) nextSeq() int64 {
	for {
		last := s.seq.Load()
		next := max(s.now().UnixNano(), last+1)
		if s.seq.CompareAndSwap(last, next) {
			return next
		}
	}
}

func (s *Store) RemoveMemory(ctx context.Context, id uuid.UUID, tableName string) error {
	err := s.db.WithContext(ctx).Where("id = ? AND type = ?", id.String(), tableName).Delete(&memoryModel{}).Error
	return wrap("remove_memory", err)
}

func (s *Store) RemoveAllMemories(ctx context.Context, roomID uuid.UUID, tableName string) error {
	err := s.db.WithContext(ctx).Where("room_id = ? AND type = ?", roomID.String(), tableName).Delete(&memoryModel{}).Error
	return wrap("remove_all_memories", err)
}

func (s *Store) CountMemories(ctx context.Context, roomID uuid.UUID, unique bool, tableName string) (int, error) {
	tx := s.db.WithContext(ctx).Model(&memoryModel{}).Where("room_id = ? AND type = ?", roomID.String(), tableName)
	if unique {
		tx = tx.Where("is_unique = ?", true)
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, wrap("count_memories", err)
	}
	return int(n), nil
}

// =============================================================================
// GoalStore
// =============================================================================

func (s *Store) GetGoals(ctx context.Context, q storage.GoalQuery) ([]types.Goal, error) {
	tx := s.db.WithContext(ctx).Where("room_id = ?", q.RoomID.String())
	if q.UserID != nil {
		tx = tx.Where("user_id = ?", q.UserID.String())
	}
	if q.OnlyInProgress {
		tx = tx.Where("status = ?", string(types.GoalInProgress))
	}
	if q.Count > 0 {
		tx = tx.Limit(q.Count)
	}
	var rows []goalModel
	if err := tx.Order("created_at").Find(&rows).Error; err != nil {
		return nil, wrap("get_goals", err)
	}
	out := make([]types.Goal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toGoal())
	}
	return out, nil
}

func (s *Store) CreateGoal(ctx context.Context, goal types.Goal) error {
	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	found, err := s.exists(ctx, &goalModel{}, goal.ID.String())
	if err != nil {
		return wrap("create_goal", err)
	}
	if found {
		return types.Errorf(types.ErrAlreadyExists, "goal %s already exists", goal.ID)
	}
	m := toGoalModel(goal)
	return wrap("create_goal", s.db.WithContext(ctx).Create(&m).Error)
}

func (s *Store) UpdateGoal(ctx context.Context, goal types.Goal) error {
	m := toGoalModel(goal)
	res := s.db.WithContext(ctx).Model(&goalModel{}).Where("id = ?", m.ID).
		Updates(map[string]any{
			"name":       m.Name,
			"status":     m.Status,
			"objectives": m.Objectives,
			"room_id":    m.RoomID,
			"user_id":    m.UserID,
		})
	if res.Error != nil {
		return wrap("update_goal", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.requireGoal(ctx, "update_goal", goal.ID)
	}
	return nil
}

// requireGoal 区分"未找到"与"值未变化"（mysql 对未变化的行返回 0）
func (s *Store) requireGoal(ctx context.Context, op string, id uuid.UUID) error {
	found, err := s.exists(ctx, &goalModel{}, id.String())
	if err != nil {
		return wrap(op, err)
	}
	if !found {
		return types.Errorf(types.ErrNotFound, "goal %s not found", id)
	}
	return nil
}

func (s *Store) UpdateGoalStatus(ctx context.Context, goalID uuid.UUID, status types.GoalStatus) error {
	res := s.db.WithContext(ctx).Model(&goalModel{}).Where("id = ?", goalID.String()).Update("status", string(status))
	if res.Error != nil {
		return wrap("update_goal_status", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.requireGoal(ctx, "update_goal_status", goalID)
	}
	return nil
}

func (s *Store) RemoveGoal(ctx context.Context, goalID uuid.UUID) error {
	return wrap("remove_goal", s.db.WithContext(ctx).Where("id = ?", goalID.String()).Delete(&goalModel{}).Error)
}

func (s *Store) RemoveAllGoals(ctx context.Context, roomID uuid.UUID) error {
	return wrap("remove_all_goals", s.db.WithContext(ctx).Where("room_id = ?", roomID.String()).Delete(&goalModel{}).Error)
}

// =============================================================================
// RoomStore / ParticipantStore
// =============================================================================

func (s *Store) GetRoom(ctx context.Context, roomID uuid.UUID) (uuid.UUID, error) {
	found, err := s.exists(ctx, &roomModel{}, roomID.String())
	if err != nil {
		return uuid.Nil, wrap("get_room", err)
	}
	if !found {
		return uuid.Nil, nil
	}
	return roomID, nil
}

func (s *Store) CreateRoom(ctx context.Context, roomID uuid.UUID) (uuid.UUID, error) {
	if roomID == uuid.Nil {
		roomID = uuid.New()
	}
	m := roomModel{ID: roomID.String()}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
		return uuid.Nil, wrap("create_room", err)
	}
	return roomID, nil
}

func (s *Store) RemoveRoom(ctx context.Context, roomID uuid.UUID) error {
	return database.Transact(ctx, s.db, s.logger, func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID.String()).Delete(&participantModel{}).Error; err != nil {
			return wrap("remove_room", err)
		}
		return wrap("remove_room", tx.Where("id = ?", roomID.String()).Delete(&roomModel{}).Error)
	})
}

func (s *Store) GetRoomsForParticipant(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.GetRoomsForParticipants(ctx, []uuid.UUID{userID})
}

func (s *Store) GetRoomsForParticipants(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	users := make([]string, len(userIDs))
	for i, id := range userIDs {
		users[i] = id.String()
	}
	var rooms []string
	err := s.db.WithContext(ctx).Model(&participantModel{}).
		Distinct("room_id").
		Where("user_id IN ?", users).
		Pluck("room_id", &rooms).Error
	if err != nil {
		return nil, wrap("get_rooms_for_participants", err)
	}
	out := make([]uuid.UUID, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, parseID(r))
	}
	return out, nil
}

func (s *Store) AddParticipant(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	m := participantModel{ID: uuid.NewString(), UserID: userID.String(), RoomID: roomID.String()}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return false, wrap("add_participant", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) RemoveParticipant(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Where("user_id = ? AND room_id = ?", userID.String(), roomID.String()).Delete(&participantModel{})
	if res.Error != nil {
		return false, wrap("remove_participant", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) GetParticipantsForAccount(ctx context.Context, userID uuid.UUID) ([]types.Participant, error) {
	var rows []participantModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID.String()).Find(&rows).Error; err != nil {
		return nil, wrap("get_participants_for_account", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	account, err := s.GetAccountByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Participant, 0, len(rows))
	for _, r := range rows {
		p := types.Participant{ID: parseID(r.ID)}
		if account != nil {
			p.Account = *account
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) GetParticipantsForRoom(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	var users []string
	err := s.db.WithContext(ctx).Model(&participantModel{}).
		Where("room_id = ?", roomID.String()).
		Order("created_at").
		Pluck("user_id", &users).Error
	if err != nil {
		return nil, wrap("get_participants_for_room", err)
	}
	out := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		out = append(out, parseID(u))
	}
	return out, nil
}

func (s *Store) GetParticipantUserState(ctx context.Context, roomID, userID uuid.UUID) (types.ParticipantUserState, error) {
	var m participantModel
	err := s.db.WithContext(ctx).Where("user_id = ? AND room_id = ?", userID.String(), roomID.String()).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ParticipantNone, nil
	}
	if err != nil {
		return types.ParticipantNone, wrap("get_participant_user_state", err)
	}
	return types.ParticipantUserState(m.UserState), nil
}

func (s *Store) SetParticipantUserState(ctx context.Context, roomID, userID uuid.UUID, state types.ParticipantUserState) error {
	res := s.db.WithContext(ctx).Model(&participantModel{}).
		Where("user_id = ? AND room_id = ?", userID.String(), roomID.String()).
		Update("user_state", string(state))
	if res.Error != nil {
		return wrap("set_participant_user_state", res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&participantModel{}).
			Where("user_id = ? AND room_id = ?", userID.String(), roomID.String()).
			Count(&n).Error; err != nil {
			return wrap("set_participant_user_state", err)
		}
		if n == 0 {
			return types.Errorf(types.ErrNotFound, "participant %s not in room %s", userID, roomID)
		}
	}
	return nil
}

// =============================================================================
// RelationshipStore
// =============================================================================

func pairQuery(tx *gorm.DB, userA, userB uuid.UUID) *gorm.DB {
	a, b := userA.String(), userB.String()
	return tx.Where("(user_a = ? AND user_b = ?) OR (user_a = ? AND user_b = ?)", a, b, b, a)
}

func (s *Store) CreateRelationship(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	created := false
	err := database.Transact(ctx, s.db, s.logger, func(tx *gorm.DB) error {
		var n int64
		if err := pairQuery(tx.Model(&relationshipModel{}), userA, userB).Count(&n).Error; err != nil {
			return wrap("create_relationship", err)
		}
		if n > 0 {
			return nil
		}
		m := relationshipModel{
			ID:        uuid.NewString(),
			UserA:     userA.String(),
			UserB:     userB.String(),
			UserID:    userA.String(),
			Status:    storage.DefaultRelationshipStatus,
			CreatedAt: s.now().UnixMilli(),
		}
		if err := tx.Create(&m).Error; err != nil {
			return wrap("create_relationship", err)
		}
		created = true
		return nil
	})
	return created, err
}

func (s *Store) GetRelationship(ctx context.Context, userA, userB uuid.UUID) (*types.Relationship, error) {
	var m relationshipModel
	err := pairQuery(s.db.WithContext(ctx), userA, userB).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get_relationship", err)
	}
	r := m.toRelationship()
	return &r, nil
}

func (s *Store) GetRelationships(ctx context.Context, userID uuid.UUID) ([]types.Relationship, error) {
	var rows []relationshipModel
	id := userID.String()
	if err := s.db.WithContext(ctx).Where("user_a = ? OR user_b = ?", id, id).Order("created_at").Find(&rows).Error; err != nil {
		return nil, wrap("get_relationships", err)
	}
	out := make([]types.Relationship, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRelationship())
	}
	return out, nil
}

// =============================================================================
// KnowledgeStore
// =============================================================================

func toItems(rows []knowledgeModel) []types.RAGKnowledgeItem {
	out := make([]types.RAGKnowledgeItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toItem())
	}
	return out
}

func (s *Store) GetKnowledge(ctx context.Context, q storage.KnowledgeQuery) ([]types.RAGKnowledgeItem, error) {
	tx := s.db.WithContext(ctx)
	if q.ID != uuid.Nil {
		tx = tx.Where("id = ?", q.ID.String())
	} else {
		tx = tx.Where("agent_id = ? OR is_shared = ?", q.AgentID.String(), true)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var rows []knowledgeModel
	if err := tx.Order("created_at").Find(&rows).Error; err != nil {
		return nil, wrap("get_knowledge", err)
	}
	return toItems(rows), nil
}

func (s *Store) SearchKnowledge(ctx context.Context, q storage.KnowledgeSearch) ([]types.RAGKnowledgeItem, error) {
	tx := s.db.WithContext(ctx).Where("agent_id = ? OR is_shared = ?", q.AgentID.String(), true)
	if s.opts.SearchLimit > 0 {
		tx = tx.Order("created_at DESC").Limit(s.opts.SearchLimit)
	}
	var rows []knowledgeModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, wrap("search_knowledge", err)
	}
	return storage.ScoreKnowledge(toItems(rows), q.Embedding, q.MatchThreshold, q.MatchCount), nil
}

func (s *Store) CreateKnowledge(ctx context.Context, item types.RAGKnowledgeItem) error {
	if item.CreatedAt == 0 {
		item.CreatedAt = s.now().UnixMilli()
	}
	m := toKnowledgeModel(item)
	found, err := s.exists(ctx, &knowledgeModel{}, m.ID)
	if err != nil {
		return wrap("create_knowledge", err)
	}
	if found {
		return types.Errorf(types.ErrAlreadyExists, "knowledge %s already exists", item.ID)
	}
	return wrap("create_knowledge", s.db.WithContext(ctx).Create(&m).Error)
}

func (s *Store) RemoveKnowledge(ctx context.Context, id uuid.UUID) error {
	key := id.String()
	err := s.db.WithContext(ctx).Where("id = ? OR original_id = ?", key, key).Delete(&knowledgeModel{}).Error
	return wrap("remove_knowledge", err)
}

func (s *Store) ClearKnowledge(ctx context.Context, agentID uuid.UUID, includeShared bool) error {
	tx := s.db.WithContext(ctx)
	if includeShared {
		tx = tx.Where("agent_id = ? OR is_shared = ?", agentID.String(), true)
	} else {
		tx = tx.Where("agent_id = ?", agentID.String())
	}
	return wrap("clear_knowledge", tx.Delete(&knowledgeModel{}).Error)
}

// =============================================================================
// CacheStore / LogStore
// =============================================================================

func (s *Store) GetCache(ctx context.Context, agentID uuid.UUID, key string) (string, bool, error) {
	var m cacheModel
	err := s.db.WithContext(ctx).Where(map[string]any{"key": key, "agent_id": agentID.String()}).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("get_cache", err)
	}
	return m.Value, true, nil
}

func (s *Store) SetCache(ctx context.Context, agentID uuid.UUID, key, value string) error {
	m := cacheModel{Key: key, AgentID: agentID.String(), Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}, {Name: "agent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&m).Error
	return wrap("set_cache", err)
}

func (s *Store) DeleteCache(ctx context.Context, agentID uuid.UUID, key string) error {
	err := s.db.WithContext(ctx).Where(map[string]any{"key": key, "agent_id": agentID.String()}).Delete(&cacheModel{}).Error
	return wrap("delete_cache", err)
}

func (s *Store) Log(ctx context.Context, entry storage.LogEntry) error {
	m := logModel{
		ID:     uuid.NewString(),
		Body:   datatypes.JSONMap(entry.Body),
		UserID: idString(entry.UserID),
		RoomID: idString(entry.RoomID),
		Type:   entry.Type,
	}
	return wrap("log", s.db.WithContext(ctx).Create(&m).Error)
}
