package rag

import (
	"context"
	"time"

	"github.com/BaSui01/agentcore/types"
	"github.com/adhocore/gronx"
	"go.uber.org/zap"
)

// DefaultCleanupSchedule 默认清理计划
const DefaultCleanupSchedule = "@hourly"

// Job 计划任务
type Job func(ctx context.Context) error

// Scheduler 按 cron 表达式周期执行任务，同一时刻只运行一个实例
type Scheduler struct {
	expr   string
	job    Job
	now    func() time.Time
	logger *zap.Logger
}

// NewScheduler 校验表达式并创建调度器，expr 为空时使用 DefaultCleanupSchedule
func NewScheduler(expr string, job Job, logger *zap.Logger) (*Scheduler, error) {
	if expr == "" {
		expr = DefaultCleanupSchedule
	}
	if !gronx.New().IsValid(expr) {
		return nil, types.Errorf(types.ErrConfiguration, "invalid cron expression %q", expr)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		expr:   expr,
		job:    job,
		now:    time.Now,
		logger: logger.With(zap.String("component", "scheduler"), zap.String("schedule", expr)),
	}, nil
}

// NewCleanupScheduler 周期执行 CleanupDeletedKnowledgeFiles
func NewCleanupScheduler(manager *KnowledgeManager, expr string, logger *zap.Logger) (*Scheduler, error) {
	return NewScheduler(expr, func(ctx context.Context) error {
		n, err := manager.CleanupDeletedKnowledgeFiles(ctx)
		if err == nil && n > 0 {
			manager.logger.Info("scheduled knowledge cleanup", zap.Int("removed", n))
		}
		return err
	}, logger)
}

// Next 返回 after 之后的下一次执行时间
func (s *Scheduler) Next(after time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.expr, after, false)
}

// Run 阻塞运行直到 ctx 取消，任务失败只记录日志
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.now()
		next, err := s.Next(now)
		if err != nil {
			return err
		}
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		start := s.now()
		if err := s.job(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.Error(err))
			continue
		}
		s.logger.Debug("scheduled job finished", zap.Duration("duration", s.now().Sub(start)))
	}
}
