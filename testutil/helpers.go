package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/agentcore/types"
)

// Context 在测试 deadline 前一秒取消，没有 deadline 时 30 秒超时
func Context(t testing.TB) context.Context {
	t.Helper()
	deadline, ok := t.(interface{ Deadline() (time.Time, bool) })
	timeout := 30 * time.Second
	if ok {
		if d, has := deadline.Deadline(); has {
			timeout = max(time.Until(d)-time.Second, time.Second)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

func Canceled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// Receive 超时返回零值与 false
func Receive[T any](ch <-chan T, timeout time.Duration) (T, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-ch:
		return v, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// Texts 按顺序取出记忆文本，便于整体比较
func Texts(memories []types.Memory) []string {
	out := make([]string, len(memories))
	for i, m := range memories {
		out[i] = m.Content.Text
	}
	return out
}
