package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FsAdapter 文件缓存后端。文件名为键的 sha256，避免路径穿越。
type FsAdapter struct {
	dir string
}

// NewFsAdapter 创建文件后端，目录不存在时自动创建
func NewFsAdapter(dir string) (*FsAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FsAdapter{dir: dir}, nil
}

func (a *FsAdapter) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(a.dir, hex.EncodeToString(sum[:])+".json")
}

func (a *FsAdapter) Get(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(a.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (a *FsAdapter) Set(_ context.Context, key, value string, _ time.Duration) error {
	tmp, err := os.CreateTemp(a.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), a.path(key))
}

func (a *FsAdapter) Delete(_ context.Context, key string) error {
	err := os.Remove(a.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (a *FsAdapter) Name() string { return "fs" }
func (a *FsAdapter) Close() error { return nil }
