package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/BaSui01/agentcore/types"
	"go.uber.org/zap"
)

// RetryPolicy 重试策略。零值字段在 NewRetryer 中补默认值。
type RetryPolicy struct {
	MaxRetries   int // 0 表示只执行一次
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool                 // 在退避时间上叠加 ±25% 抖动
	ShouldRetry  func(err error) bool // 为空时所有错误都重试
	OnRetry      func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy 模型调用的默认策略：最多重试 3 次，1s 起步翻倍，上限 30s
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// Backoff 第 attempt 次重试（从 1 开始）前的等待时间，不含抖动
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	return time.Duration(min(d, float64(p.MaxDelay)))
}

// RetryTransient 只重试标记为 Retryable 的 types.Error，用作 ShouldRetry
func RetryTransient(err error) bool {
	return types.IsRetryable(err)
}

// Retryer 按策略执行函数，可在多个 goroutine 间共享
type Retryer struct {
	policy RetryPolicy
	logger *zap.Logger
}

// NewRetryer 复制一份 policy，调用方之后的修改不会影响 Retryer
func NewRetryer(policy *RetryPolicy, logger *zap.Logger) *Retryer {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	p := *policy
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = max(30*time.Second, p.InitialDelay)
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retryer{policy: p, logger: logger.With(zap.String("component", "retry"))}
}

// Policy 返回补全默认值后的策略
func (r *Retryer) Policy() RetryPolicy { return r.policy }

func (r *Retryer) Do(ctx context.Context, fn func(context.Context) error) error {
	_, err := Do(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do 执行 fn，失败且可重试时按退避等待后再次执行。
// 不可重试的错误原样返回；重试耗尽时返回包装了最后一次错误的错误。
func Do[T any](ctx context.Context, r *Retryer, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := r.delay(attempt)
			r.logger.Debug("retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.policy.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}
			if err := sleep(ctx, delay); err != nil {
				return zero, fmt.Errorf("retry canceled after %d attempt(s): %w", attempt, err)
			}
		}

		v, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Debug("retry succeeded", zap.Int("attempt", attempt))
			}
			return v, nil
		}
		lastErr = err

		if r.policy.ShouldRetry != nil && !r.policy.ShouldRetry(err) {
			return zero, err
		}
		if attempt >= r.policy.MaxRetries {
			break
		}
	}

	if r.policy.MaxRetries == 0 {
		return zero, lastErr
	}
	r.logger.Warn("retries exhausted",
		zap.Int("attempts", r.policy.MaxRetries+1),
		zap.Error(lastErr))
	return zero, fmt.Errorf("giving up after %d attempts: %w", r.policy.MaxRetries+1, lastErr)
}

func (r *Retryer) delay(attempt int) time.Duration {
	d := r.policy.Backoff(attempt)
	if r.policy.Jitter {
		spread := float64(d) / 4
		d += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	return max(d, r.policy.InitialDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
