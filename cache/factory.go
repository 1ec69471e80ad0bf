package cache

import (
	"context"
	"fmt"

	"github.com/BaSui01/agentcore/internal/metrics"
	"github.com/BaSui01/agentcore/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 后端名称
const (
	BackendMemory   = "memory"
	BackendFs       = "fs"
	BackendDatabase = "database"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
)

// Config 缓存配置
type Config struct {
	// Backend memory / fs / database / redis / mongo
	Backend string      `yaml:"backend" json:"backend"`
	Dir     string      `yaml:"dir" json:"dir"`
	Redis   RedisConfig `yaml:"redis" json:"redis"`
	Mongo   MongoConfig `yaml:"mongo" json:"mongo"`
	Options Options     `yaml:",inline" json:"options"`
}

// Deps 构造后端需要的外部依赖
type Deps struct {
	// Store database 后端使用
	Store   storage.CacheStore
	AgentID uuid.UUID
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// New 按配置创建缓存管理器
func New(ctx context.Context, cfg Config, deps Deps) (*Manager, error) {
	adapter, err := newAdapter(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	return NewManager(adapter, cfg.Options, deps.Metrics, deps.Logger), nil
}

func newAdapter(ctx context.Context, cfg Config, deps Deps) (Adapter, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryAdapter(), nil
	case BackendFs:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("fs cache requires dir")
		}
		return NewFsAdapter(cfg.Dir)
	case BackendDatabase:
		if deps.Store == nil {
			return nil, fmt.Errorf("database cache requires a store")
		}
		return NewDbAdapter(deps.Store, deps.AgentID), nil
	case BackendRedis:
		return NewRedisAdapter(cfg.Redis, deps.Logger)
	case BackendMongo:
		return NewMongoAdapter(ctx, cfg.Mongo, deps.Logger)
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}
