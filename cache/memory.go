package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryAdapter 进程内缓存后端
type MemoryAdapter struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryAdapter 创建内存后端
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{data: make(map[string]string)}
}

func (a *MemoryAdapter) Get(_ context.Context, key string) (string, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.data[key]
	return v, ok, nil
}

func (a *MemoryAdapter) Set(_ context.Context, key, value string, _ time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[key] = value
	return nil
}

func (a *MemoryAdapter) Delete(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.data, key)
	return nil
}

func (a *MemoryAdapter) Name() string { return "memory" }
func (a *MemoryAdapter) Close() error { return nil }
