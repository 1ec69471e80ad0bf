package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/agentcore/types"
	"go.uber.org/zap"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String 小写形式，直接用作指标标签
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen 熔断打开期间的快速失败，不会执行调用
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyCallsInHalfOpen 半开状态的探测名额已满
	ErrTooManyCallsInHalfOpen = errors.New("too many calls while circuit breaker is half-open")
)

type Config struct {
	// Name 出现在日志与指标中
	Name string

	// Threshold 连续失败多少次后打开
	Threshold int

	// Timeout 单次调用超时，超时计为失败
	Timeout time.Duration

	// ResetTimeout 打开后多久允许半开探测
	ResetTimeout time.Duration

	// HalfOpenMaxCalls 半开状态下关闭所需的连续成功次数，同时限制并发探测数
	HalfOpenMaxCalls int

	// IsFailure 为空时使用 DefaultIsFailure
	IsFailure func(err error) bool

	// OnStateChange 在独立 goroutine 中调用
	OnStateChange func(from, to State)
}

func DefaultConfig() *Config {
	return &Config{
		Threshold:        5,
		Timeout:          30 * time.Second,
		ResetTimeout:     60 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = def.Threshold
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = def.ResetTimeout
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	if c.IsFailure == nil {
		c.IsFailure = DefaultIsFailure
	}
	return c
}

// DefaultIsFailure 调用方取消和客户端错误不计入失败
func DefaultIsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch types.GetErrorCode(err) {
	case types.ErrInvalidInput, types.ErrNotFound, types.ErrAlreadyExists,
		types.ErrDuplicateName, types.ErrGoalImmutable, types.ErrEmptyContent,
		types.ErrGenerationValidation, types.ErrContextTooLong:
		return false
	}
	return true
}

// counts 只在当前代内有效，状态切换时清零
type counts struct {
	failures  int
	successes int
	probes    int
}

// Breaker 按连续失败计数的熔断器。
// 每次状态切换开启新的一代，上一代发起的调用结果到达时直接丢弃。
type Breaker struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	counts     counts
	openedAt   time.Time
}

func New(cfg *Config, logger *zap.Logger) *Breaker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cfg.withDefaults()
	return &Breaker{
		cfg:    c,
		logger: logger.With(zap.String("breaker", c.Name)),
		now:    time.Now,
	}
}

// State ResetTimeout 到期后仍报告 open，直到下一次调用进入半开
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset 手动关闭熔断器
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed, b.now())
}

// Do 执行 fn；熔断打开时返回 ErrCircuitOpen 且不调用 fn
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	_, err := Execute(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Execute 在熔断器保护下执行 fn 并返回其结果。
// fn 收到的 ctx 带有 Config.Timeout；超时后不再等待 fn 返回。
func Execute[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	gen, probe, err := b.admit()
	if err != nil {
		return zero, err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		b.record(gen, probe, r.err == nil || !b.cfg.IsFailure(r.err))
		if r.err != nil {
			return zero, r.err
		}
		return r.v, nil
	case <-callCtx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			b.release(gen, probe)
			return zero, ctx.Err()
		}
		b.record(gen, probe, false)
		return zero, fmt.Errorf("call timed out after %s: %w", b.cfg.Timeout, callCtx.Err())
	}
}

func (b *Breaker) admit() (gen uint64, probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpen(b.now())
	switch b.state {
	case StateOpen:
		return 0, false, ErrCircuitOpen
	case StateHalfOpen:
		if b.counts.probes >= b.cfg.HalfOpenMaxCalls {
			return 0, false, ErrTooManyCallsInHalfOpen
		}
		b.counts.probes++
		return b.generation, true, nil
	}
	return b.generation, false, nil
}

func (b *Breaker) record(gen uint64, probe, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		return
	}
	if probe {
		b.counts.probes--
	}

	now := b.now()
	switch b.state {
	case StateClosed:
		if ok {
			b.counts.failures = 0
			return
		}
		b.counts.failures++
		if b.counts.failures >= b.cfg.Threshold {
			b.transition(StateOpen, now)
		}
	case StateHalfOpen:
		if !ok {
			b.transition(StateOpen, now)
			return
		}
		b.counts.successes++
		if b.counts.successes >= b.cfg.HalfOpenMaxCalls {
			b.transition(StateClosed, now)
		}
	}
}

// release 调用方取消时归还探测名额，不影响计数
func (b *Breaker) release(gen uint64, probe bool) {
	if !probe {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen == b.generation && b.counts.probes > 0 {
		b.counts.probes--
	}
}

func (b *Breaker) maybeHalfOpen(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cfg.ResetTimeout {
		b.transition(StateHalfOpen, now)
	}
}

// transition 调用方持有 mu
func (b *Breaker) transition(to State, now time.Time) {
	from := b.state
	b.generation++
	b.counts = counts{}
	if from == to {
		return
	}
	b.state = to
	if to == StateOpen {
		b.openedAt = now
	}

	fields := []zap.Field{zap.Stringer("from", from), zap.Stringer("to", to)}
	if to == StateOpen {
		b.logger.Warn("circuit opened", append(fields, zap.Duration("retry_after", b.cfg.ResetTimeout))...)
	} else {
		b.logger.Info("circuit state changed", fields...)
	}
	if hook := b.cfg.OnStateChange; hook != nil {
		go hook(from, to)
	}
}
