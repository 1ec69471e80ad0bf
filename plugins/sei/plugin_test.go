package sei

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/cache"
	"github.com/BaSui01/agentcore/llm/generation"
	"github.com/BaSui01/agentcore/llm/retry"
	"github.com/BaSui01/agentcore/llm/tokenizer"
	"github.com/BaSui01/agentcore/storage/memstore"
	"github.com/BaSui01/agentcore/testutil/fixtures"
	"github.com/BaSui01/agentcore/testutil/mocks"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pluginEnv struct {
	rt       *agent.Runtime
	backend  *fakeBackend
	provider *mocks.Provider
	sent     []types.Content
}

func (e *pluginEnv) callback(_ context.Context, c types.Content) ([]types.Memory, error) {
	e.sent = append(e.sent, c)
	return nil, nil
}

func newPluginEnv(t *testing.T, settings map[string]string, c *cache.Manager) *pluginEnv {
	t.Helper()
	env := &pluginEnv{backend: newFakeBackend(), provider: mocks.NewProvider()}
	rec := &dialRecorder{backend: env.backend}

	gen := generation.NewGenerator(env.provider, types.ProviderOpenAI,
		generation.WithTokenizer(tokenizer.NewEstimatorTokenizer("test", 0)),
		generation.WithRetryPolicy(&retry.RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}),
		generation.WithLogger(zap.NewNop()),
	)
	rt, err := agent.New(agent.Options{
		Character: fixtures.DefaultCharacter(),
		Store:     memstore.New(),
		Cache:     c,
		Generator: gen,
		Settings:  settings,
		Logger:    zap.NewNop(),
		Plugins: []agent.Plugin{NewPlugin(Options{
			Tokens: map[string]map[string]string{
				ChainMainnet: {"usdc": usdcAddr.Hex(), "BAD": "not-an-address"},
			},
			Dial: rec.dial,
		})},
	})
	require.NoError(t, err)
	env.rt = rt
	return env
}

func (e *pluginEnv) run(t *testing.T, text string) []agent.ActionReport {
	t.Helper()
	ctx := context.Background()
	user, room := uuid.New(), uuid.New()
	require.NoError(t, e.rt.EnsureConnection(ctx, user, room, "bob", "Bob"))

	msg := fixtures.MessageMemory(user, e.rt.AgentID(), room, text)
	_, err := e.rt.MessageManager().CreateMemory(ctx, msg, false)
	require.NoError(t, err)

	resp := types.Memory{
		ID:      uuid.New(),
		UserID:  e.rt.AgentID(),
		AgentID: e.rt.AgentID(),
		RoomID:  room,
		Content: types.Content{Text: "Let me check.", Action: "CHECK_BALANCE"},
	}
	reports, err := e.rt.ProcessActions(ctx, &msg, []types.Memory{resp}, nil, e.callback)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	return reports
}

func TestNewPlugin_Registration(t *testing.T) {
	env := newPluginEnv(t, map[string]string{SettingAddress: walletAddr.Hex()}, nil)

	action, ok := env.rt.Registry().FindAction("check_balance")
	require.True(t, ok)
	assert.Equal(t, "GET_BALANCE", action.Name())
	assert.Len(t, action.Examples(), 5)
}

func TestGetBalanceAction_TokenBySymbol(t *testing.T) {
	env := newPluginEnv(t, map[string]string{SettingAddress: walletAddr.Hex()}, nil)
	env.provider.Say("```json\n{\"chain\": \"sei\", \"address\": null, \"token\": \"USDC\"}\n```")

	reports := env.run(t, "Check my balance of USDC")
	assert.Equal(t, agent.ActionCompleted, reports[0].Status)
	require.Len(t, env.sent, 1)
	assert.Equal(t, "Balance of "+walletAddr.Hex()+" on sei:\nUSDC: 12.345", env.sent[0].Text)
	assert.Equal(t, "12.345", env.sent[0].Extra["amount"])

	prompt := env.provider.LastRequest().Messages
	last := prompt[len(prompt)-1].Content
	assert.Contains(t, last, "Ada's Sei Wallet Address: "+walletAddr.Hex())
	assert.Contains(t, last, "Bob: Check my balance of USDC")
	assert.NotContains(t, last, "{{walletInfo}}")
}

func TestGetBalanceAction_NativeFromPrivateKey(t *testing.T) {
	env := newPluginEnv(t, map[string]string{
		SettingPrivateKey: "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		SettingNetwork:    ChainTestnet,
	}, nil)
	env.provider.Say(`{"chain": "seiTestnet", "address": null, "token": "SEI"}`)

	reports := env.run(t, "Check my wallet balance on Sei Testnet")
	assert.Equal(t, agent.ActionCompleted, reports[0].Status)
	require.Len(t, env.sent, 1)
	assert.Equal(t, "Balance of "+walletAddr.Hex()+" on seiTestnet:\nSEI: 1.5", env.sent[0].Text)
}

func TestGetBalanceAction_NoBalanceFound(t *testing.T) {
	env := newPluginEnv(t, map[string]string{SettingAddress: walletAddr.Hex()}, nil)
	env.provider.Say(`{"chain": "sei", "address": null, "token": "` + otherAddr.Hex() + `"}`)

	reports := env.run(t, "Check my balance of token " + otherAddr.Hex())
	assert.Equal(t, agent.ActionCompleted, reports[0].Status)
	require.Len(t, env.sent, 1)
	assert.Equal(t, "No balance found for "+walletAddr.Hex()+" on sei", env.sent[0].Text)
}

func TestGetBalanceAction_Failures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantCode types.ErrorCode
	}{
		{"chain outside enum", `{"chain": "ethereum", "address": null, "token": "SEI"}`, types.ErrGenerationValidation},
		{"unconfigured symbol", `{"chain": "sei", "address": null, "token": "BAD"}`, types.ErrInvalidInput},
		{"bad address", `{"chain": "sei", "address": "vitalik.eth", "token": "SEI"}`, types.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newPluginEnv(t, map[string]string{SettingAddress: walletAddr.Hex()}, nil)
			env.provider.Say(tt.response)

			reports := env.run(t, "what's my balance?")
			assert.Equal(t, agent.ActionFailed, reports[0].Status)
			assert.True(t, types.IsErrorCode(reports[0].Err, tt.wantCode), "got %v", reports[0].Err)
			require.Len(t, env.sent, 1)
			assert.Equal(t, failureText, env.sent[0].Text)
			assert.NotContains(t, env.sent[0].Text, reports[0].Err.Error())
			assert.Equal(t, reports[0].Err.Error(), env.sent[0].Extra["error"])
		})
	}
}

func TestGetBalanceAction_RejectedWithoutWallet(t *testing.T) {
	env := newPluginEnv(t, nil, nil)

	reports := env.run(t, "what's my balance?")
	assert.Equal(t, agent.ActionRejected, reports[0].Status)
	assert.Empty(t, env.sent)
	assert.Zero(t, env.provider.Calls())
}

func TestWalletProvider_Cache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewManager(cache.NewMemoryAdapter(), cache.Options{}, nil, zap.NewNop())
	env := newPluginEnv(t, map[string]string{SettingAddress: walletAddr.Hex()}, c)

	msg := fixtures.MessageMemory(uuid.New(), env.rt.AgentID(), uuid.New(), "hi")
	var want string
	for range 3 {
		state, err := env.rt.ComposeState(ctx, msg, nil)
		require.NoError(t, err)
		assert.Contains(t, state.Providers, "Balance: 1.5 SEI")
		if want == "" {
			want = state.Providers
		}
		assert.Equal(t, want, state.Providers)
	}
	assert.Equal(t, 1, env.backend.balances)
}

func TestWalletProvider_Unconfigured(t *testing.T) {
	env := newPluginEnv(t, map[string]string{SettingAddress: "sei1notevm"}, nil)
	msg := fixtures.MessageMemory(uuid.New(), env.rt.AgentID(), uuid.New(), "hi")

	state, err := env.rt.ComposeState(context.Background(), msg, nil)
	require.NoError(t, err)
	assert.Empty(t, state.Providers)
}
