package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BaSui01/agentcore/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatcher_IngestsAndCleansUp(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "existing"), 0o755))
	m, _ := newKnowledgeManager(t, Options{KnowledgeRoot: root})

	w, err := NewWatcher(m, "", WatcherOptions{Logger: zap.NewNop()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	count := func() int {
		items, err := m.ListAllKnowledge(context.Background(), agentA)
		if err != nil {
			return -1
		}
		return len(items)
	}

	path := filepath.Join(root, "existing", "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("Governance proposals need a quorum."), 0o644))
	mainID := GenerateScopedID("existing/notes.md", false)
	assert.Eventually(t, func() bool {
		items, err := m.GetKnowledge(context.Background(), Query{ID: mainID})
		return err == nil && len(items) == 1 && items[0].Content.Metadata.Source == "existing/notes.md" && count() == 2
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.bin"), []byte("zzz"), 0o644))
	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool { return count() == 0 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.NoError(t, w.Close())
}

func TestNewWatcher_MissingRoot(t *testing.T) {
	m, _ := newKnowledgeManager(t, Options{KnowledgeRoot: filepath.Join(t.TempDir(), "missing")})
	_, err := NewWatcher(m, "", WatcherOptions{})
	assert.Error(t, err)
}

func TestScheduler_Next(t *testing.T) {
	ref := time.Date(2026, 3, 14, 10, 15, 30, 0, time.UTC)
	tests := []struct {
		expr string
		want time.Time
	}{
		{"", time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)},
		{"@hourly", time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)},
		{"*/5 * * * *", time.Date(2026, 3, 14, 10, 20, 0, 0, time.UTC)},
		{"0 0 * * *", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			s, err := NewScheduler(tt.expr, func(context.Context) error { return nil }, nil)
			require.NoError(t, err)
			next, err := s.Next(ref)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(next), "got %s want %s", next, tt.want)
		})
	}
}

func TestScheduler_InvalidExpression(t *testing.T) {
	_, err := NewScheduler("every tuesday", func(context.Context) error { return nil }, zap.NewNop())
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	m, _ := newKnowledgeManager(t, Options{KnowledgeRoot: t.TempDir()})
	s, err := NewCleanupScheduler(m, "@hourly", zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
}
