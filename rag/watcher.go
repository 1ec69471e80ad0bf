package rag

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatcherOptions 知识目录监听配置
type WatcherOptions struct {
	// Shared 监听到的文件以共享作用域入库
	Shared bool
	Logger *zap.Logger
}

// Watcher 监听知识根目录：文件写入或创建时重新入库，删除或重命名时执行清理。
type Watcher struct {
	manager *KnowledgeManager
	root    string
	shared  bool
	fsw     *fsnotify.Watcher
	logger  *zap.Logger

	closeOnce sync.Once
}

// NewWatcher 递归注册 root 下的所有目录。root 为空时使用 manager 的知识根目录。
func NewWatcher(manager *KnowledgeManager, root string, opts WatcherOptions) (*Watcher, error) {
	if root == "" {
		root = manager.KnowledgeRoot()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		manager: manager,
		root:    root,
		shared:  opts.Shared,
		fsw:     fsw,
		logger:  logger.With(zap.String("component", "knowledge_watcher"), zap.String("root", root)),
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Run 处理文件事件直到 ctx 取消或 Close 被调用
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("knowledge watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		n, err := w.manager.CleanupDeletedKnowledgeFiles(ctx)
		if err != nil {
			w.logger.Error("knowledge cleanup failed", zap.String("path", event.Name), zap.Error(err))
			return
		}
		w.logger.Debug("knowledge cleanup after removal", zap.String("path", event.Name), zap.Int("removed", n))

	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
		if _, ok := FileTypeFromPath(event.Name); !ok {
			return
		}
		rel, err := filepath.Rel(w.root, event.Name)
		if err != nil {
			return
		}
		file, err := ReadFile(w.root, rel, w.shared)
		if err != nil {
			w.logger.Warn("failed to read knowledge file", zap.String("path", rel), zap.Error(err))
			return
		}
		if err := w.manager.ProcessFile(ctx, file); err != nil {
			if !errors.Is(err, context.Canceled) {
				w.logger.Error("failed to ingest knowledge file", zap.String("path", rel), zap.Error(err))
			}
		}
	}
}

// Close 停止监听
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() { err = w.fsw.Close() })
	return err
}
