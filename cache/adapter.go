package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 缓存未命中（包括已过期）
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// Adapter 缓存后端。ttl 仅作为提示，过期判断由 Manager 完成。
type Adapter interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Name 后端名称，用于日志和指标
	Name() string
	Close() error
}
