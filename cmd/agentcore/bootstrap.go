package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/cache"
	"github.com/BaSui01/agentcore/config"
	"github.com/BaSui01/agentcore/internal/database"
	"github.com/BaSui01/agentcore/internal/metrics"
	"github.com/BaSui01/agentcore/internal/telemetry"
	"github.com/BaSui01/agentcore/llm"
	"github.com/BaSui01/agentcore/llm/circuitbreaker"
	"github.com/BaSui01/agentcore/llm/embedding"
	"github.com/BaSui01/agentcore/llm/generation"
	"github.com/BaSui01/agentcore/llm/providers/anthropic"
	"github.com/BaSui01/agentcore/llm/providers/openaicompat"
	"github.com/BaSui01/agentcore/llm/retry"
	"github.com/BaSui01/agentcore/plugins/sei"
	"github.com/BaSui01/agentcore/storage"
	"github.com/BaSui01/agentcore/storage/gormstore"
	"github.com/BaSui01/agentcore/storage/memstore"
	"github.com/BaSui01/agentcore/types"
)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// app 一次命令执行所需的全部组件。close 按创建的逆序释放资源。
type app struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	level      zap.AtomicLevel
	metrics    *metrics.Collector
	telemetry  *telemetry.Providers
	store      storage.Adapter
	pool       *database.PoolManager
	cache      *cache.Manager
	runtime    *agent.Runtime

	closers []func()
}

// loadConfig 解析 --config 并加载配置
func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, string, error) {
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, "", err
	}
	return cfg, *configPath, nil
}

// newApp 按配置装配运行时。withGenerator 为 false 时不要求模型凭据（ingest/health）。
func newApp(ctx context.Context, cfg *config.Config, configPath string, withGenerator bool) (_ *app, err error) {
	logger, level, cleanup, err := initLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg, configPath: configPath, logger: logger, level: level}
	a.closers = append(a.closers, cleanup)
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	logger.Info("starting agentcore",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
	)

	character, err := loadCharacter(cfg.Agent.CharacterPath)
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}

	a.telemetry, err = telemetry.Init(ctx, cfg.Telemetry, telemetry.Identity{
		AgentName:     character.Name,
		ModelProvider: cfg.Model.Provider,
		Version:       Version,
	}, logger)
	if err != nil {
		// 遥测不可用不影响对话
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	a.closers = append(a.closers, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.telemetry.Shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	})

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	a.cache, err = cache.New(ctx, cacheConfig(cfg), cache.Deps{
		Store:   a.store,
		AgentID: character.ID,
		Metrics: a.metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	a.closers = append(a.closers, func() { _ = a.cache.Close() })

	embedder, err := embedding.NewServiceFromConfig(cfg.Embedding,
		embedding.WithLogger(logger),
		embedding.WithCache(a.cache, cfg.Embedding.CacheTTL),
		embedding.WithObserver(func(fallback bool) {
			a.metrics.RecordEmbedding(string(cfg.Embedding.Provider), fallback)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	var generator *generation.Generator
	if withGenerator {
		generator, err = newGenerator(cfg, character, a.metrics, a.telemetry, logger)
		if err != nil {
			return nil, err
		}
	}

	var plugins []agent.Plugin
	if cfg.Chain.Enabled() {
		plugins = append(plugins, sei.NewPlugin(sei.Options{
			Tokens:   cfg.Chain.Tokens,
			CacheTTL: cfg.Chain.CacheTTL,
			Logger:   logger,
		}))
	}

	a.runtime, err = agent.New(agent.Options{
		AgentID:            character.ID,
		Character:          character,
		Store:              a.store,
		Cache:              a.cache,
		Generator:          generator,
		Embedder:           embedder,
		Plugins:            plugins,
		ConversationLength: cfg.Agent.ConversationLength,
		UniqueThreshold:    cfg.Agent.UniqueThreshold,
		KnowledgeRoot:      cfg.Knowledge.Root,
		Knowledge: agent.KnowledgeOptions{
			MatchThreshold: cfg.Knowledge.MatchThreshold,
			MatchCount:     cfg.Knowledge.MatchCount,
			ChunkSize:      cfg.Knowledge.ChunkSize,
			Bleed:          cfg.Knowledge.Bleed,
		},
		Settings: runtimeSettings(cfg),
		Breaker:  breakerConfig(cfg.Breaker, "store"),
		Logger:   logger,
		Metrics:  a.metrics,
		Tracer:   a.telemetry.Tracer(),
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// openStore memory 驱动使用内存存储，其余驱动经连接池打开 GORM 存储
func (a *app) openStore(ctx context.Context) error {
	cfg := a.cfg.Database
	if cfg.Driver == "memory" {
		a.store = memstore.New()
		a.logger.Info("using in-memory store")
		return nil
	}

	db, err := database.Open(database.OpenConfig{
		Driver:   cfg.Driver,
		DSN:      cfg.DSN(),
		LogLevel: cfg.LogLevel,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.pool, err = database.NewPoolManager(db, database.PoolConfig{
		MaxOpenConns:        cfg.MaxOpenConns,
		MaxIdleConns:        cfg.MaxIdleConns,
		ConnMaxLifetime:     cfg.ConnMaxLifetime,
		ConnMaxIdleTime:     10 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
	}, a.logger, database.WithPoolMetrics(a.metrics, cfg.Driver))
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return fmt.Errorf("configure database pool: %w", err)
	}
	a.closers = append(a.closers, func() { _ = a.pool.Close() })

	store := gormstore.New(a.pool.DB(), gormstore.Options{AutoMigrate: cfg.AutoMigrate}, a.logger)
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	a.store = store
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// =============================================================================
// 🔧 构造辅助
// =============================================================================

func loadCharacter(path string) (*types.Character, error) {
	if path == "" {
		return nil, types.NewError(types.ErrConfiguration, "agent.character_path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "read character file").WithCause(err)
	}
	return types.LoadCharacter(data)
}

// newGenerator 组装 模型提供者 → 重试与熔断 → 生成器（限流、分词、验证、指标、追踪）
func newGenerator(cfg *config.Config, character *types.Character, m *metrics.Collector, tp *telemetry.Providers, logger *zap.Logger) (*generation.Generator, error) {
	providerName := types.ModelProviderName(strings.ToLower(cfg.Model.Provider))
	if character.ModelProvider != "" && cfg.Model.Provider == "" {
		providerName = character.ModelProvider
	}
	if _, ok := llm.Models[providerName]; !ok {
		return nil, types.Errorf(types.ErrConfiguration, "unsupported model provider %q", providerName)
	}
	apiKey := cfg.Model.APIKey
	if apiKey == "" && providerName != types.ProviderOllama {
		return nil, types.NewError(types.ErrConfiguration, "model.api_key is required")
	}
	baseURL := cfg.Model.BaseURL
	if baseURL == "" {
		baseURL = llm.GetEndpoint(providerName)
	}

	var provider llm.Provider
	if providerName == types.ProviderAnthropic {
		provider = anthropic.New(anthropic.Config{
			APIKey:  apiKey,
			BaseURL: baseURL,
			Timeout: cfg.Model.Timeout,
		}, logger)
	} else {
		provider = openaicompat.New(openaicompat.Config{
			ProviderName: string(providerName),
			APIKey:       apiKey,
			BaseURL:      baseURL,
			Timeout:      cfg.Model.Timeout,
		}, logger)
	}

	provider = llm.NewResilientProvider(provider, &llm.ResilientProviderConfig{
		EnableRetry:          cfg.Model.MaxRetries > 0,
		RetryPolicy:          retryPolicy(cfg.Model.MaxRetries),
		EnableCircuitBreaker: true,
		CircuitBreakerConfig: breakerConfig(cfg.Breaker, "model:"+string(providerName)),
	}, logger)

	opts := []generation.Option{
		generation.WithLogger(logger),
		generation.WithMetrics(m),
		generation.WithTracer(tp.Tracer()),
		generation.WithRetryPolicy(retryPolicy(cfg.Model.MaxRetries)),
	}
	if cfg.Model.RateLimitRPS > 0 {
		opts = append(opts, generation.WithRateLimit(cfg.Model.RateLimitRPS, cfg.Model.RateLimitBurst))
	}
	if cfg.Model.VerifierSecret != "" {
		verifier, err := generation.NewHMACVerifier([]byte(cfg.Model.VerifierSecret), character.Name, cfg.Model.VerifierTTL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, generation.WithVerifier(verifier))
	}
	return generation.NewGenerator(provider, providerName, opts...), nil
}

func retryPolicy(maxRetries int) *retry.RetryPolicy {
	return &retry.RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Second,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		ShouldRetry:  types.IsRetryable,
	}
}

func breakerConfig(cfg config.BreakerConfig, name string) *circuitbreaker.Config {
	return &circuitbreaker.Config{
		Name:             name,
		Threshold:        cfg.Threshold,
		Timeout:          cfg.Timeout,
		ResetTimeout:     cfg.ResetTimeout,
		HalfOpenMaxCalls: cfg.HalfOpenMaxCalls,
	}
}

func cacheConfig(cfg *config.Config) cache.Config {
	return cache.Config{
		Backend: cfg.Cache.Backend,
		Dir:     cfg.Cache.Dir,
		Redis: cache.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		},
		Mongo: cache.MongoConfig{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		},
		Options: cache.Options{
			DefaultTTL: cfg.Cache.DefaultTTL,
			KeyPrefix:  cfg.Cache.KeyPrefix,
		},
	}
}

// runtimeSettings 合并 agent.settings 与链配置，链配置不覆盖显式设置
func runtimeSettings(cfg *config.Config) map[string]string {
	settings := make(map[string]string, len(cfg.Agent.Settings)+4)
	for k, v := range cfg.Agent.Settings {
		settings[k] = v
	}
	setDefault := func(key, value string) {
		if value == "" {
			return
		}
		if _, ok := settings[key]; !ok {
			settings[key] = value
		}
	}
	setDefault(sei.SettingAddress, cfg.Chain.Address)
	setDefault(sei.SettingPrivateKey, cfg.Chain.PrivateKey)
	setDefault(sei.SettingNetwork, cfg.Chain.Network)
	setDefault(sei.SettingRPCURL, cfg.Chain.RPCURL)
	return settings
}
