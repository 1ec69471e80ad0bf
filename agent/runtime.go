package agent

import (
	"context"
	"time"

	"github.com/BaSui01/agentcore/cache"
	"github.com/BaSui01/agentcore/internal/metrics"
	"github.com/BaSui01/agentcore/llm/circuitbreaker"
	"github.com/BaSui01/agentcore/llm/embedding"
	"github.com/BaSui01/agentcore/llm/generation"
	"github.com/BaSui01/agentcore/memory"
	"github.com/BaSui01/agentcore/rag"
	"github.com/BaSui01/agentcore/storage"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/agentcore/agent"

// DefaultConversationLength 组装状态时读取的最近消息条数
const DefaultConversationLength = 32

// Embedder 运行时需要的嵌入能力，*embedding.Service 满足该接口
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
	EmbedBatch(ctx context.Context, texts []string) [][]float32
	ZeroVector() []float32
}

// KnowledgeOptions RAG 检索与分块参数，零值使用 rag 包默认值
type KnowledgeOptions struct {
	MatchThreshold float64
	MatchCount     int
	ChunkSize      int
	Bleed          int
	// Limit 每轮注入 State 的知识条数
	Limit int
}

// Options 运行时配置。Character 与 Store 必填，其余为空时使用默认实现。
type Options struct {
	AgentID   uuid.UUID
	Character *types.Character
	Store     storage.Adapter
	Cache     *cache.Manager
	Generator *generation.Generator
	Embedder  Embedder

	Actions    []Action
	Evaluators []Evaluator
	Providers  []Provider
	Plugins    []Plugin

	ConversationLength int
	// UniqueThreshold 记忆去重的相似度阈值，0 使用 memory.DefaultUniqueThreshold
	UniqueThreshold float64
	KnowledgeRoot   string
	Knowledge       KnowledgeOptions
	// Settings 角色设置之外的运行时设置，GetSetting 最后查找
	Settings map[string]string
	// Breaker 存储熔断配置，Store 已是 *storage.Guarded 时忽略
	Breaker *circuitbreaker.Config

	Logger  *zap.Logger
	Metrics *metrics.Collector
	Tracer  trace.Tracer
}

// Runtime 单个 agent 的运行时：组装状态、分发动作与评估器、维护房间与参与者。
// 同一运行时的所有记忆管理器共享一个受熔断保护的存储适配器。
type Runtime struct {
	agentID   uuid.UUID
	character *types.Character
	store     storage.Adapter
	cache     *cache.Manager
	generator *generation.Generator
	embedder  Embedder
	registry  *Registry

	messages     *memory.Manager
	descriptions *memory.Manager
	lore         *memory.Manager
	documents    *memory.Manager
	fragments    *memory.Manager
	knowledge    *rag.KnowledgeManager
	legacy       *rag.LegacyKnowledge

	conversationLength int
	knowledgeLimit     int
	knowledgeRoot      string
	settings           map[string]string

	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
	now     func() time.Time
}

// New 创建运行时并注册选项中的能力
func New(opts Options) (*Runtime, error) {
	if opts.Character == nil {
		return nil, types.NewError(types.ErrConfiguration, "character is required")
	}
	if opts.Store == nil {
		return nil, types.NewError(types.ErrConfiguration, "database adapter is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	agentID := opts.AgentID
	if agentID == uuid.Nil {
		agentID = opts.Character.ID
	}
	if agentID == uuid.Nil {
		agentID = types.StringToUUID(opts.Character.Name)
	}
	logger = logger.With(zap.String("component", "agent_runtime"),
		zap.String("agent", opts.Character.Name),
		zap.String("agent_id", agentID.String()))

	store := opts.Store
	if _, guarded := store.(*storage.Guarded); !guarded {
		store = storage.NewGuarded(store, opts.Breaker, opts.Metrics, logger)
	}

	cacheManager := opts.Cache
	if cacheManager == nil {
		cacheManager = cache.NewManager(cache.NewMemoryAdapter(), cache.Options{}, opts.Metrics, logger)
	}

	var embedder Embedder = opts.Embedder
	if embedder == nil {
		embedder = embedding.NewService(embedding.NewLocalProvider(0), embedding.WithLogger(logger))
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	convLen := opts.ConversationLength
	if convLen <= 0 {
		convLen = DefaultConversationLength
	}
	knowledgeLimit := opts.Knowledge.Limit
	if knowledgeLimit <= 0 {
		knowledgeLimit = rag.DefaultMatchCount
	}

	rt := &Runtime{
		agentID:            agentID,
		character:          opts.Character,
		store:              store,
		cache:              cacheManager,
		generator:          opts.Generator,
		embedder:           embedder,
		registry:           NewRegistry(logger),
		conversationLength: convLen,
		knowledgeLimit:     knowledgeLimit,
		knowledgeRoot:      opts.KnowledgeRoot,
		settings:           opts.Settings,
		logger:             logger,
		metrics:            opts.Metrics,
		tracer:             tracer,
		now:                time.Now,
	}

	memOpts := memory.Options{
		AgentID:         agentID,
		UniqueThreshold: opts.UniqueThreshold,
		Logger:          logger,
	}
	rt.messages = memory.New(types.TableMessages, store, embedder, memOpts)
	rt.descriptions = memory.New(types.TableDescriptions, store, embedder, memOpts)
	rt.lore = memory.New(types.TableLore, store, embedder, memOpts)
	rt.documents = memory.New(types.TableDocuments, store, embedder, memOpts)
	rt.fragments = memory.New(types.TableFragments, store, embedder, memOpts)
	for _, m := range []*memory.Manager{rt.messages, rt.descriptions, rt.lore, rt.documents, rt.fragments} {
		if err := rt.registry.RegisterMemoryManager(m); err != nil {
			return nil, err
		}
	}

	rt.knowledge = rag.NewKnowledgeManager(store, embedder, rag.Options{
		AgentID:        agentID,
		KnowledgeRoot:  opts.KnowledgeRoot,
		MatchThreshold: opts.Knowledge.MatchThreshold,
		MatchCount:     opts.Knowledge.MatchCount,
		ChunkSize:      opts.Knowledge.ChunkSize,
		Bleed:          opts.Knowledge.Bleed,
		Metrics:        opts.Metrics,
		Logger:         logger,
	})
	rt.legacy = rag.NewLegacyKnowledge(agentID, rt.documents, rt.fragments, embedder)

	for _, a := range opts.Actions {
		if err := rt.registry.RegisterAction(a); err != nil {
			return nil, err
		}
	}
	for _, e := range opts.Evaluators {
		if err := rt.registry.RegisterEvaluator(e); err != nil {
			return nil, err
		}
	}
	for _, p := range opts.Providers {
		if err := rt.registry.RegisterProvider(p); err != nil {
			return nil, err
		}
	}
	for _, p := range opts.Plugins {
		if err := rt.registry.RegisterPlugin(p); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

func (rt *Runtime) AgentID() uuid.UUID               { return rt.agentID }
func (rt *Runtime) Character() *types.Character      { return rt.character }
func (rt *Runtime) Store() storage.Adapter           { return rt.store }
func (rt *Runtime) Cache() *cache.Manager            { return rt.cache }
func (rt *Runtime) Generator() *generation.Generator { return rt.generator }
func (rt *Runtime) Embedder() Embedder               { return rt.embedder }
func (rt *Runtime) Logger() *zap.Logger              { return rt.logger }
func (rt *Runtime) Registry() *Registry              { return rt.registry }

// MessageManager 消息表
func (rt *Runtime) MessageManager() *memory.Manager { return rt.messages }

// DescriptionManager 用户描述表
func (rt *Runtime) DescriptionManager() *memory.Manager { return rt.descriptions }

// LoreManager 角色背景表
func (rt *Runtime) LoreManager() *memory.Manager { return rt.lore }

// DocumentsManager 非 RAG 知识的整篇文档表
func (rt *Runtime) DocumentsManager() *memory.Manager { return rt.documents }

// FragmentsManager 非 RAG 知识的片段表
func (rt *Runtime) FragmentsManager() *memory.Manager { return rt.fragments }

// KnowledgeManager RAG 知识库
func (rt *Runtime) KnowledgeManager() *rag.KnowledgeManager { return rt.knowledge }

// LegacyKnowledge 非 RAG 知识
func (rt *Runtime) LegacyKnowledge() *rag.LegacyKnowledge { return rt.legacy }

// ConversationLength 组装状态时读取的最近消息条数
func (rt *Runtime) ConversationLength() int { return rt.conversationLength }

// RAGEnabled 角色是否使用 RAG 知识库
func (rt *Runtime) RAGEnabled() bool { return rt.character.Settings.RAGKnowledge }

func (rt *Runtime) RegisterAction(a Action) error       { return rt.registry.RegisterAction(a) }
func (rt *Runtime) RegisterEvaluator(e Evaluator) error { return rt.registry.RegisterEvaluator(e) }
func (rt *Runtime) RegisterProvider(p Provider) error   { return rt.registry.RegisterProvider(p) }
func (rt *Runtime) RegisterMemoryManager(m *memory.Manager) error {
	return rt.registry.RegisterMemoryManager(m)
}

// GetMemoryManager 按表名查找记忆管理器，不存在时返回 nil
func (rt *Runtime) GetMemoryManager(tableName string) *memory.Manager {
	return rt.registry.GetMemoryManager(tableName)
}

// GetSetting 依次查找角色 secrets、角色扩展设置与运行时设置，未找到时返回空字符串
func (rt *Runtime) GetSetting(key string) string {
	if v, ok := rt.character.Settings.Secrets[key]; ok {
		return v
	}
	if v, ok := rt.character.Settings.Extra[key]; ok {
		return v
	}
	return rt.settings[key]
}

// Initialize 确保 agent 的账户、房间与参与关系存在，然后导入角色知识。
// 重复调用是安全的：已存在的知识条目会被跳过。
func (rt *Runtime) Initialize(ctx context.Context) error {
	start := rt.now()
	if err := rt.EnsureRoomExists(ctx, rt.agentID); err != nil {
		return err
	}
	if err := rt.EnsureUserExists(ctx, rt.agentID, rt.character.Username, rt.character.Name, rt.character.Email); err != nil {
		return err
	}
	if err := rt.EnsureParticipantInRoom(ctx, rt.agentID, rt.agentID); err != nil {
		return err
	}

	if len(rt.character.Knowledge) > 0 {
		var err error
		if rt.RAGEnabled() {
			err = rt.processCharacterRAGKnowledge(ctx, rt.character.Knowledge)
		} else {
			err = rt.processCharacterKnowledge(ctx, rt.character.Knowledge)
		}
		if err != nil {
			return err
		}
	}
	rt.metrics.RecordStage("initialize", rt.now().Sub(start))
	rt.logger.Info("agent runtime initialized",
		zap.Int("actions", len(rt.registry.Actions())),
		zap.Int("evaluators", len(rt.registry.Evaluators())),
		zap.Int("providers", len(rt.registry.Providers())),
		zap.Bool("rag", rt.RAGEnabled()),
	)
	return nil
}
