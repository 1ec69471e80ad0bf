// 配置文件变更监听。
//
// 监听配置文件所在目录，文件写入、创建或被替换后经防抖重新加载，
// 加载成功时把新的 *Config 交给回调。
package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounceDelay 连续文件事件合并为一次重载的等待时间
const DefaultDebounceDelay = 200 * time.Millisecond

// WatcherOption 配置 Watch
type WatcherOption func(*watchOptions)

type watchOptions struct {
	debounceDelay time.Duration
	logger        *zap.Logger
}

// WithDebounceDelay sets the debounce delay for file events
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounceDelay = d
		}
	}
}

// WithWatcherLogger sets the logger for the watcher
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(o *watchOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Watch 阻塞监听 loader 的配置文件，直到 ctx 取消。
//
// 每次重载都生成一份全新的 Config，已交付的配置不会被修改。
// 重载失败（YAML 错误、校验失败）只记录日志，保留上一份配置。
func Watch(ctx context.Context, loader *Loader, onChange func(*Config), opts ...WatcherOption) error {
	if loader == nil || loader.path == "" {
		return errors.New("config watch requires a loader with a config path")
	}
	if onChange == nil {
		return errors.New("config watch requires an onChange callback")
	}

	o := watchOptions{debounceDelay: DefaultDebounceDelay, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	path, err := filepath.Abs(loader.path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer fsw.Close()

	// 监听目录：编辑器常以 rename 方式替换文件，直接监听文件会丢失后续事件
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	logger := o.logger.With(zap.String("component", "config_watcher"), zap.String("path", path))
	logger.Info("config watcher started", zap.Duration("debounce_delay", o.debounceDelay))

	timer := time.NewTimer(o.debounceDelay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("config watcher stopped")
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("config file event", zap.String("op", event.Op.String()))
			timer.Reset(o.debounceDelay)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", zap.Error(err))

		case <-timer.C:
			cfg, err := loader.Load()
			if err != nil {
				logger.Warn("config reload failed, keeping previous config", zap.Error(err))
				continue
			}
			logger.Info("config reloaded")
			onChange(cfg)
		}
	}
}
