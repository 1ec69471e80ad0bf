package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/config"
	"github.com/BaSui01/agentcore/internal/metrics"
	"github.com/BaSui01/agentcore/rag"
	"github.com/BaSui01/agentcore/types"
)

// =============================================================================
// 💬 chat 命令
// =============================================================================

func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	userName := fs.String("user", "user", "Display name of the local user")
	cfg, configPath, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, configPath, true)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.runtime.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize runtime: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	a.startBackground(gctx, g)

	g.Go(func() error {
		// stdin 结束或出错时取消后台任务
		defer stop()
		return chatLoop(gctx, a.runtime, os.Stdin, os.Stdout, *userName, cfg.Agent.CheckShouldRespond)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("agentcore stopped")
	return nil
}

// startBackground 启动知识目录监听、定期清理、配置热加载与指标文件导出
func (a *app) startBackground(ctx context.Context, g *errgroup.Group) {
	rt := a.runtime
	if km := rt.KnowledgeManager(); km != nil && rt.RAGEnabled() {
		if a.cfg.Knowledge.Watch {
			watcher, err := rag.NewWatcher(km, "", rag.WatcherOptions{Logger: a.logger})
			if err != nil {
				a.logger.Warn("knowledge watcher disabled", zap.Error(err))
			} else {
				g.Go(func() error { return ignoreCanceled(watcher.Run(ctx)) })
			}
		}
		if a.cfg.Knowledge.CleanupSchedule != "" {
			scheduler, err := rag.NewCleanupScheduler(km, a.cfg.Knowledge.CleanupSchedule, a.logger)
			if err != nil {
				a.logger.Warn("knowledge cleanup disabled", zap.Error(err))
			} else {
				g.Go(func() error { return ignoreCanceled(scheduler.Run(ctx)) })
			}
		}
	}

	if a.configPath != "" {
		loader := config.NewLoader().WithConfigPath(a.configPath)
		g.Go(func() error {
			return ignoreCanceled(config.Watch(ctx, loader, a.applyConfig, config.WithWatcherLogger(a.logger)))
		})
	}

	if a.metrics != nil && a.cfg.Metrics.TextfilePath != "" {
		exporter := metrics.NewTextfileExporter(a.cfg.Metrics.TextfilePath, nil, 0, a.logger)
		g.Go(func() error { return ignoreCanceled(exporter.Run(ctx)) })
	}
}

// applyConfig 运行中只应用日志级别，其余配置需要重启生效
func (a *app) applyConfig(next *config.Config) {
	level := parseLevel(next.Log.Level)
	if level != a.level.Level() {
		a.level.SetLevel(level)
		a.logger.Info("log level changed", zap.String("level", level.String()))
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// chatLoop 逐行读取输入，每行作为一条消息交给运行时处理
func chatLoop(ctx context.Context, rt *agent.Runtime, in io.Reader, out io.Writer, userName string, checkShouldRespond bool) error {
	userID := types.StringToUUID("cli:" + userName)
	roomID := types.StringToUUID("cli:" + rt.AgentID().String() + ":" + userID.String())
	if err := rt.EnsureConnection(ctx, userID, roomID, userName, userName); err != nil {
		return err
	}
	agentName := rt.Character().Name

	callback := func(_ context.Context, content types.Content) ([]types.Memory, error) {
		fmt.Fprintf(out, "%s: %s\n", agentName, content.Text)
		return nil, nil
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, "> ")
		var text string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			text = strings.TrimSpace(line)
		}
		if text == "" {
			continue
		}
		if text == "/exit" || text == "/quit" {
			return nil
		}

		turn, err := rt.HandleMessage(ctx, types.Memory{
			UserID:  userID,
			RoomID:  roomID,
			Content: types.Content{Text: text, Source: "cli"},
		}, agent.MessageOptions{CheckShouldRespond: checkShouldRespond, Callback: callback})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// 单轮失败不结束会话
			rt.Logger().Error("message handling failed", zap.Error(err))
			fmt.Fprintf(out, "[error] %v\n", err)
			continue
		}
		if turn.Response == nil {
			fmt.Fprintf(out, "(%s chose to %s)\n", agentName, strings.ToLower(string(turn.ShouldRespond)))
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", agentName, turn.Response.Content.Text)
	}
}
