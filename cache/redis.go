package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig Redis 后端配置
type RedisConfig struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// 健康检查间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:                "localhost:6379",
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// RedisAdapter Redis 缓存后端，写入时同时设置原生过期时间
type RedisAdapter struct {
	client *redis.Client
	config RedisConfig
	logger *zap.Logger
	done   chan struct{}
	once   sync.Once
}

// NewRedisAdapter 连接 Redis 并启动健康检查
func NewRedisAdapter(config RedisConfig, logger *zap.Logger) (*RedisAdapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	a := &RedisAdapter{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "redis_cache")),
		done:   make(chan struct{}),
	}

	if config.HealthCheckInterval > 0 {
		go a.healthCheckLoop()
	}

	logger.Info("redis cache connected",
		zap.String("addr", config.Addr),
		zap.Int("pool_size", config.PoolSize),
	)
	return a, nil
}

func (a *RedisAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := a.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (a *RedisAdapter) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return a.client.Set(ctx, key, value, ttl).Err()
}

func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	return a.client.Del(ctx, key).Err()
}

// Ping 检查 Redis 连接
func (a *RedisAdapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

func (a *RedisAdapter) Name() string { return "redis" }

func (a *RedisAdapter) Close() error {
	var err error
	a.once.Do(func() {
		close(a.done)
		err = a.client.Close()
	})
	return err
}

// healthCheckLoop 健康检查循环
func (a *RedisAdapter) healthCheckLoop() {
	ticker := time.NewTicker(a.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.Ping(ctx); err != nil {
				a.logger.Error("cache health check failed", zap.Error(err))
			} else {
				a.logger.Debug("cache health check passed")
			}
			cancel()
		}
	}
}
