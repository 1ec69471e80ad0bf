package cache

import (
	"context"
	"time"

	"github.com/BaSui01/agentcore/storage"
	"github.com/google/uuid"
)

// DbAdapter 委托给数据库适配器的 cache 表，键按 agent 隔离
type DbAdapter struct {
	store   storage.CacheStore
	agentID uuid.UUID
}

// NewDbAdapter 创建数据库后端
func NewDbAdapter(store storage.CacheStore, agentID uuid.UUID) *DbAdapter {
	return &DbAdapter{store: store, agentID: agentID}
}

func (a *DbAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	return a.store.GetCache(ctx, a.agentID, key)
}

func (a *DbAdapter) Set(ctx context.Context, key, value string, _ time.Duration) error {
	return a.store.SetCache(ctx, a.agentID, key, value)
}

func (a *DbAdapter) Delete(ctx context.Context, key string) error {
	return a.store.DeleteCache(ctx, a.agentID, key)
}

func (a *DbAdapter) Name() string { return "database" }
func (a *DbAdapter) Close() error { return nil }
