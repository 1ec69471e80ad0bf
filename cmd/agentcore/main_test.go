package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/config"
	"github.com/BaSui01/agentcore/llm/embedding"
	"github.com/BaSui01/agentcore/llm/generation"
	"github.com/BaSui01/agentcore/llm/retry"
	"github.com/BaSui01/agentcore/llm/tokenizer"
	"github.com/BaSui01/agentcore/plugins/sei"
	"github.com/BaSui01/agentcore/storage/memstore"
	"github.com/BaSui01/agentcore/testutil/fixtures"
	"github.com/BaSui01/agentcore/testutil/mocks"
	"github.com/BaSui01/agentcore/types"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

// gormstore 使用纯 Go 的 "sqlite"，迁移使用 mattn 的 "sqlite3"，两者同时链接进二进制
func TestSQLDrivers(t *testing.T) {
	drivers := sql.Drivers()
	for _, name := range []string{"sqlite", "sqlite3", "postgres", "mysql", "pgx"} {
		assert.Contains(t, drivers, name)
	}
}

func TestInitLogger_File(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultLogConfig()
	cfg.Level = "warn"
	cfg.OutputPaths = []string{filepath.Join(dir, "stdout.log")}
	cfg.File.Path = filepath.Join(dir, "agent.log")

	logger, level, cleanup, err := initLogger(cfg)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", zap.String("k", "v"))
	level.SetLevel(zapcore.InfoLevel)
	logger.Info("after level change")
	cleanup()

	data, err := os.ReadFile(cfg.File.Path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, "after level change")

	stdout, err := os.ReadFile(cfg.OutputPaths[0])
	require.NoError(t, err)
	assert.Contains(t, string(stdout), "kept")
}

func TestRuntimeSettings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Agent.Settings = map[string]string{
		sei.SettingNetwork: "seiTestnet",
		"CUSTOM":           "x",
	}
	cfg.Chain.Network = "sei"
	cfg.Chain.Address = "0x000000000000000000000000000000000000dEaD"

	got := runtimeSettings(cfg)
	assert.Equal(t, "seiTestnet", got[sei.SettingNetwork])
	assert.Equal(t, cfg.Chain.Address, got[sei.SettingAddress])
	assert.Equal(t, "x", got["CUSTOM"])
	_, ok := got[sei.SettingPrivateKey]
	assert.False(t, ok)

	// 不修改原配置
	assert.Len(t, cfg.Agent.Settings, 2)
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantCmd   []string
		wantFlags []string
	}{
		{"command only", []string{"up"}, []string{"up"}, nil},
		{"flags after command", []string{"steps", "2", "--config", "a.yaml"}, []string{"steps", "2"}, []string{"--config", "a.yaml"}},
		{"negative steps", []string{"steps", "-1", "--db-type=sqlite"}, []string{"steps", "-1"}, []string{"--db-type=sqlite"}},
		{"flags first", []string{"--db-url", "file:x.db", "status"}, []string{"status"}, []string{"--db-url", "file:x.db"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, flags := splitCommand(tt.args)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantFlags, flags)
		})
	}
}

func newChatRuntime(t *testing.T, provider *mocks.Provider) *agent.Runtime {
	t.Helper()
	gen := generation.NewGenerator(provider, types.ProviderOpenAI,
		generation.WithTokenizer(tokenizer.NewEstimatorTokenizer("test", 0)),
		generation.WithRetryPolicy(&retry.RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}),
		generation.WithLogger(zap.NewNop()),
	)
	rt, err := agent.New(agent.Options{
		Character: fixtures.DefaultCharacter(),
		Store:     memstore.New(),
		Embedder:  embedding.NewService(mocks.NewMockEmbedder(8)),
		Generator: gen,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, rt.Initialize(context.Background()))
	return rt
}

func TestChatLoop(t *testing.T) {
	provider := mocks.Scripted(fixtures.MessageResponseJSON("Ada", "Quorum means a majority of nodes.", ""))
	rt := newChatRuntime(t, provider)

	var out bytes.Buffer
	in := strings.NewReader("\nwhat is a quorum?\n/exit\nnever read\n")
	require.NoError(t, chatLoop(context.Background(), rt, in, &out, "tester", false))

	assert.Contains(t, out.String(), "Ada: Quorum means a majority of nodes.")
}

func TestChatLoop_EOFAndErrors(t *testing.T) {
	provider := mocks.Failing(assert.AnError)
	rt := newChatRuntime(t, provider)

	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), rt, strings.NewReader("hello"), &out, "tester", false))
	assert.Contains(t, out.String(), "[error]")
}

func TestChatLoop_Canceled(t *testing.T) {
	rt := newChatRuntime(t, mocks.NewProvider())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	err = chatLoop(ctx, rt, r, &bytes.Buffer{}, "tester", false)
	assert.ErrorIs(t, err, context.Canceled)
}
