package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BaSui01/agentcore/llm/embedding"
	"github.com/BaSui01/agentcore/llm/generation"
	"github.com/BaSui01/agentcore/llm/retry"
	"github.com/BaSui01/agentcore/llm/tokenizer"
	"github.com/BaSui01/agentcore/memory"
	"github.com/BaSui01/agentcore/rag"
	"github.com/BaSui01/agentcore/storage/memstore"
	"github.com/BaSui01/agentcore/testutil/fixtures"
	"github.com/BaSui01/agentcore/testutil/mocks"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGenerator(p *mocks.Provider) *generation.Generator {
	return generation.NewGenerator(p, types.ProviderOpenAI,
		generation.WithTokenizer(tokenizer.NewEstimatorTokenizer("test", 0)),
		generation.WithRetryPolicy(&retry.RetryPolicy{
			MaxRetries:   2,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2,
		}),
		generation.WithLogger(zap.NewNop()),
	)
}

// newTestRuntime 使用内存存储与模拟嵌入器创建运行时，provider 为 nil 时不配置生成器
func newTestRuntime(t *testing.T, provider *mocks.Provider, opts Options) (*Runtime, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	if opts.Character == nil {
		opts.Character = fixtures.DefaultCharacter()
	}
	opts.Store = store
	opts.Embedder = embedding.NewService(mocks.NewMockEmbedder(8))
	opts.Logger = zap.NewNop()
	if provider != nil {
		opts.Generator = newTestGenerator(provider)
	}
	rt, err := New(opts)
	require.NoError(t, err)
	return rt, store
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Store: memstore.New()})
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))

	_, err = New(Options{Character: fixtures.DefaultCharacter()})
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
}

func TestNew_AgentID(t *testing.T) {
	tests := []struct {
		name      string
		agentID   uuid.UUID
		character *types.Character
		want      uuid.UUID
	}{
		{"explicit", types.StringToUUID("explicit"), fixtures.DefaultCharacter(), types.StringToUUID("explicit")},
		{"character id", uuid.Nil, fixtures.MinimalCharacter("Zed"), types.StringToUUID("Zed")},
		{"derived from name", uuid.Nil, &types.Character{Name: "Nameless"}, types.StringToUUID("Nameless")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, _ := newTestRuntime(t, nil, Options{AgentID: tt.agentID, Character: tt.character})
			assert.Equal(t, tt.want, rt.AgentID())
		})
	}
}

func TestNew_MemoryManagers(t *testing.T) {
	rt, _ := newTestRuntime(t, nil, Options{})
	for _, table := range []string{types.TableMessages, types.TableDescriptions, types.TableLore, types.TableDocuments, types.TableFragments} {
		m := rt.GetMemoryManager(table)
		require.NotNil(t, m, table)
		assert.Equal(t, table, m.TableName())
	}
	assert.Nil(t, rt.GetMemoryManager("unknown"))

	dup := memory.New(types.TableMessages, rt.Store(), rt.Embedder(), memory.Options{AgentID: rt.AgentID()})
	assert.True(t, types.IsErrorCode(rt.RegisterMemoryManager(dup), types.ErrDuplicateName))
}

func TestGetSetting(t *testing.T) {
	c := fixtures.DefaultCharacter()
	c.Settings.Secrets = map[string]string{"SEI_PRIVATE_KEY": "secret-key", "SHARED": "from-secrets"}
	c.Settings.Extra = map[string]string{"SEI_NETWORK": "testnet", "SHARED": "from-extra"}
	rt, _ := newTestRuntime(t, nil, Options{
		Character: c,
		Settings:  map[string]string{"SEI_RPC_URL": "http://localhost:8545", "SHARED": "from-runtime"},
	})

	assert.Equal(t, "secret-key", rt.GetSetting("SEI_PRIVATE_KEY"))
	assert.Equal(t, "testnet", rt.GetSetting("SEI_NETWORK"))
	assert.Equal(t, "http://localhost:8545", rt.GetSetting("SEI_RPC_URL"))
	assert.Equal(t, "from-secrets", rt.GetSetting("SHARED"))
	assert.Equal(t, "", rt.GetSetting("MISSING"))
}

func TestEnsureConnection_Idempotent(t *testing.T) {
	ctx := context.Background()
	rt, store := newTestRuntime(t, nil, Options{})
	user, room := uuid.New(), uuid.New()

	for i := 0; i < 2; i++ {
		require.NoError(t, rt.EnsureConnection(ctx, user, room, "bob", "Bob"))
	}

	participants, err := store.GetParticipantsForRoom(ctx, room)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{user, rt.AgentID()}, participants)

	account, err := store.GetAccountByID(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "Bob", account.Name)

	agentAccount, err := store.GetAccountByID(ctx, rt.AgentID())
	require.NoError(t, err)
	require.NotNil(t, agentAccount)
	assert.Equal(t, "Ada", agentAccount.Name)
}

func TestEnsureUserExists_DefaultNames(t *testing.T) {
	ctx := context.Background()
	rt, store := newTestRuntime(t, nil, Options{})
	user := uuid.New()

	require.NoError(t, rt.EnsureUserExists(ctx, user, "", "", ""))
	require.NoError(t, rt.EnsureUserExists(ctx, user, "later", "Later", ""))

	account, err := store.GetAccountByID(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "User"+user.String(), account.Name)
	assert.Equal(t, "User"+user.String(), account.Username)
}

func TestEnsureParticipantExists(t *testing.T) {
	ctx := context.Background()
	rt, store := newTestRuntime(t, nil, Options{})
	user, first, second := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, rt.EnsureParticipantExists(ctx, user, first))
	require.NoError(t, rt.EnsureParticipantExists(ctx, user, second))

	rooms, err := store.GetRoomsForParticipant(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first}, rooms)
}

func TestInitialize_LegacyKnowledge(t *testing.T) {
	ctx := context.Background()
	c := fixtures.DefaultCharacter()
	c.Knowledge = []types.KnowledgeSource{
		{Text: "Sei blocks finalize in under half a second."},
		{Path: "docs/ignored.md"},
	}
	rt, store := newTestRuntime(t, nil, Options{Character: c})

	require.NoError(t, rt.Initialize(ctx))
	fragments, err := rt.FragmentsManager().CountMemories(ctx, rt.AgentID(), false)
	require.NoError(t, err)
	require.Positive(t, fragments)

	require.NoError(t, rt.Initialize(ctx))
	again, err := rt.FragmentsManager().CountMemories(ctx, rt.AgentID(), false)
	require.NoError(t, err)
	assert.Equal(t, fragments, again)

	doc, err := rt.DocumentsManager().GetMemoryByID(ctx, types.StringToUUID(c.Knowledge[0].Text))
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.True(t, embedding.IsZeroVector(doc.Embedding))

	participants, err := store.GetParticipantsForRoom(ctx, rt.AgentID())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{rt.AgentID()}, participants)
}

func TestInitialize_RAGKnowledge(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "staking.md"), []byte("Staking SEI secures the network."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "nested", "fees.txt"), []byte("Gas fees on Sei are paid in usei."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "image.png"), []byte{0x89, 0x50}, 0o644))

	c := fixtures.DefaultCharacter()
	c.Settings.RAGKnowledge = true
	c.Knowledge = []types.KnowledgeSource{
		{Directory: "docs"},
		{Path: "missing.md"},
		{Directory: "absent"},
		{Text: "Ada answers wallet questions."},
	}
	rt, _ := newTestRuntime(t, nil, Options{Character: c, KnowledgeRoot: root})

	require.NoError(t, rt.Initialize(ctx))
	items, err := rt.KnowledgeManager().ListAllKnowledge(ctx, uuid.Nil)
	require.NoError(t, err)

	ids := make(map[uuid.UUID]bool)
	for _, it := range items {
		ids[it.ID] = true
	}
	assert.True(t, ids[rag.GenerateScopedID("docs/staking.md", false)])
	assert.True(t, ids[rag.GenerateScopedID("docs/nested/fees.txt", false)])
	assert.True(t, ids[types.StringToUUID("Ada answers wallet questions.")])

	require.NoError(t, rt.Initialize(ctx))
	again, err := rt.KnowledgeManager().ListAllKnowledge(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, again, len(items))
}
