package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/agentcore/internal/metrics"
	"go.uber.org/zap"
)

// =============================================================================
// 💾 缓存管理器
// =============================================================================

// Options Manager 配置
type Options struct {
	// DefaultTTL Set 传入 0 时使用，<= 0 表示永不过期
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`
	// KeyPrefix 所有键的前缀
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// Manager 缓存管理器
type Manager struct {
	adapter Adapter
	opts    Options
	metrics *metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
	mu      sync.RWMutex
	closed  bool
}

// entry 写入后端的信封，Expires 为毫秒时间戳，0 表示永不过期
type entry struct {
	Value   string `json:"value"`
	Expires int64  `json:"expires,omitempty"`
}

// NewManager 创建缓存管理器
func NewManager(adapter Adapter, opts Options, m *metrics.Collector, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		adapter: adapter,
		opts:    opts,
		metrics: m,
		logger:  logger.With(zap.String("component", "cache"), zap.String("backend", adapter.Name())),
		now:     time.Now,
	}
}

func (m *Manager) key(k string) string {
	return m.opts.KeyPrefix + k
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Get 获取缓存值，未命中或已过期返回 ErrCacheMiss
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", fmt.Errorf("cache manager is closed")
	}

	raw, ok, err := m.adapter.Get(ctx, m.key(key))
	if err != nil {
		m.logger.Error("cache get failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("cache get failed: %w", err)
	}
	if !ok {
		m.metrics.RecordCacheMiss(m.adapter.Name())
		return "", ErrCacheMiss
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		m.logger.Warn("dropping malformed cache entry", zap.String("key", key), zap.Error(err))
		_ = m.adapter.Delete(ctx, m.key(key))
		m.metrics.RecordCacheMiss(m.adapter.Name())
		return "", ErrCacheMiss
	}
	if e.Expires > 0 && m.now().UnixMilli() >= e.Expires {
		_ = m.adapter.Delete(ctx, m.key(key))
		m.metrics.RecordCacheMiss(m.adapter.Name())
		return "", ErrCacheMiss
	}

	m.metrics.RecordCacheHit(m.adapter.Name())
	return e.Value, nil
}

// Set 设置缓存值，ttl 为 0 时使用 DefaultTTL
func (m *Manager) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("cache manager is closed")
	}

	if ttl == 0 {
		ttl = m.opts.DefaultTTL
	}
	e := entry{Value: value}
	if ttl > 0 {
		e.Expires = m.now().Add(ttl).UnixMilli()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := m.adapter.Set(ctx, m.key(key), string(data), ttl); err != nil {
		m.logger.Error("cache set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// GetJSON 获取 JSON 缓存值
func (m *Manager) GetJSON(ctx context.Context, key string, dest any) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// SetJSON 设置 JSON 缓存值
func (m *Manager) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return m.Set(ctx, key, string(data), ttl)
}

// Delete 删除缓存值
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("cache manager is closed")
	}

	for _, k := range keys {
		if err := m.adapter.Delete(ctx, m.key(k)); err != nil {
			m.logger.Error("cache delete failed", zap.String("key", k), zap.Error(err))
			return fmt.Errorf("cache delete failed: %w", err)
		}
	}
	return nil
}

// Backend 返回后端名称
func (m *Manager) Backend() string {
	return m.adapter.Name()
}

// Close 关闭缓存管理器及其后端
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.logger.Info("closing cache manager")
	return m.adapter.Close()
}
