package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BaSui01/agentcore/llm/embedding"
	"github.com/BaSui01/agentcore/storage"
	"github.com/BaSui01/agentcore/storage/memstore"
	"github.com/BaSui01/agentcore/testutil"
	"github.com/BaSui01/agentcore/testutil/mocks"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

var (
	testAgent = types.StringToUUID("memory-test-agent")
	testRoom  = types.StringToUUID("memory-test-room")
	otherRoom = types.StringToUUID("memory-test-other-room")
)

func newTestManager(t *testing.T) (*Manager, *memstore.Store, *mocks.MockEmbedder) {
	t.Helper()
	store := memstore.New()
	emb := mocks.NewMockEmbedder(4).
		WithVector("hello there", []float32{1, 0, 0, 0}).
		WithVector("hello there!", []float32{0.99, 0.01, 0, 0}).
		WithVector("the weather is nice", []float32{0, 1, 0, 0}).
		WithVector("something else", []float32{0, 0, 1, 0})
	m := New(types.TableMessages, store, embedding.NewService(emb), Options{AgentID: testAgent, Logger: zap.NewNop()})
	return m, store, emb
}

func message(text string, room uuid.UUID, createdAt int64) types.Memory {
	return types.Memory{
		UserID:    testAgent,
		RoomID:    room,
		Content:   types.Content{Text: text},
		CreatedAt: createdAt,
	}
}

func TestNew_Defaults(t *testing.T) {
	m := New(types.TableLore, memstore.New(), embedding.NewService(mocks.NewMockEmbedder(4)), Options{})
	assert.Equal(t, types.TableLore, m.TableName())
	assert.Equal(t, DefaultUniqueThreshold, m.opts.UniqueThreshold)
	assert.Equal(t, DefaultCount, m.opts.DefaultCount)
	assert.NotNil(t, m.logger)
}

func TestAddEmbeddingToMemory(t *testing.T) {
	ctx := context.Background()
	m, _, emb := newTestManager(t)

	t.Run("computes missing embedding", func(t *testing.T) {
		got, err := m.AddEmbeddingToMemory(ctx, message("hello there", testRoom, 0))
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0, 0}, got.Embedding)
	})

	t.Run("keeps existing embedding", func(t *testing.T) {
		before := emb.CallCount()
		mem := message("hello there", testRoom, 0)
		mem.Embedding = []float32{0, 0, 0, 1}
		got, err := m.AddEmbeddingToMemory(ctx, mem)
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 0, 0, 1}, got.Embedding)
		assert.Equal(t, before, emb.CallCount())
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := m.AddEmbeddingToMemory(ctx, message("   ", testRoom, 0))
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrEmptyContent))
	})
}

func TestCreateMemory(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)
	m.now = func() time.Time { return time.UnixMilli(5_000) }

	created, err := m.CreateMemory(ctx, message("hello there", testRoom, 0), true)
	require.NoError(t, err)
	assert.True(t, created)

	mems, err := m.GetMemories(ctx, GetOptions{RoomID: testRoom})
	require.NoError(t, err)
	require.Len(t, mems, 1)
	first := mems[0]
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, int64(5_000), first.CreatedAt)
	assert.Equal(t, testAgent, first.AgentID)
	assert.True(t, first.Unique)
	assert.Equal(t, []float32{1, 0, 0, 0}, first.Embedding)

	t.Run("existing id is skipped", func(t *testing.T) {
		again := message("the weather is nice", testRoom, 0)
		again.ID = first.ID
		created, err := m.CreateMemory(ctx, again, false)
		require.NoError(t, err)
		assert.False(t, created)

		got, err := m.GetMemoryByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello there", got.Content.Text)
	})

	t.Run("near duplicate in same room is skipped", func(t *testing.T) {
		created, err := m.CreateMemory(ctx, message("hello there!", testRoom, 0), true)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("near duplicate in another room is stored", func(t *testing.T) {
		created, err := m.CreateMemory(ctx, message("hello there!", otherRoom, 0), true)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("non unique write skips duplicate check", func(t *testing.T) {
		created, err := m.CreateMemory(ctx, message("hello there", testRoom, 0), false)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("dissimilar memory is stored", func(t *testing.T) {
		created, err := m.CreateMemory(ctx, message("the weather is nice", testRoom, 0), true)
		require.NoError(t, err)
		assert.True(t, created)
	})

	n, err := m.CountMemories(ctx, testRoom, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = m.CountMemories(ctx, testRoom, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := store.CountMemories(ctx, otherRoom, false, types.TableMessages)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestGetMemories_NewestFirst(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)
	for i, ts := range []int64{300, 100, 500, 200, 400} {
		mem := message("something else", testRoom, ts)
		mem.Embedding = []float32{float32(i), 1, 0, 0}
		_, err := m.CreateMemory(ctx, mem, false)
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		opts GetOptions
		want []int64
	}{
		{"all", GetOptions{RoomID: testRoom}, []int64{500, 400, 300, 200, 100}},
		{"count", GetOptions{RoomID: testRoom, Count: 2}, []int64{500, 400}},
		{"range", GetOptions{RoomID: testRoom, Start: 200, End: 400}, []int64{400, 300, 200}},
		{"other room", GetOptions{RoomID: otherRoom}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mems, err := m.GetMemories(ctx, tt.opts)
			require.NoError(t, err)
			var got []int64
			for _, mem := range mems {
				got = append(got, mem.CreatedAt)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetMemories_SameTimestampNewestFirst(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)
	for _, text := range []string{"hello there", "the weather is nice", "something else"} {
		_, err := m.CreateMemory(ctx, message(text, testRoom, 1000), false)
		require.NoError(t, err)
	}

	got, err := m.GetMemories(ctx, GetOptions{RoomID: testRoom})
	require.NoError(t, err)
	assert.Equal(t, []string{"something else", "the weather is nice", "hello there"}, testutil.Texts(got))
}

func TestSearchMemoriesByEmbedding(t *testing.T) {
	ctx := testutil.Context(t)
	m, _, _ := newTestManager(t)
	for _, text := range []string{"hello there", "the weather is nice", "something else"} {
		_, err := m.CreateMemory(ctx, message(text, testRoom, 0), false)
		require.NoError(t, err)
	}

	got, err := m.SearchMemoriesByEmbedding(ctx, []float32{0.9, 0.1, 0, 0}, SearchOptions{MatchThreshold: 0.5, RoomID: testRoom})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello there"}, testutil.Texts(got))
	require.Len(t, got, 1)
	assert.Greater(t, got[0].Similarity, 0.9)

	got, err = m.SearchMemoriesByEmbedding(ctx, []float32{1, 1, 1, 0}, SearchOptions{MatchThreshold: 0.1, Count: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.GreaterOrEqual(t, got[0].Similarity, got[1].Similarity)
}

func TestGetCachedEmbeddings(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)
	_, err := m.CreateMemory(ctx, message("hello there", testRoom, 0), false)
	require.NoError(t, err)

	hits, err := m.GetCachedEmbeddings(ctx, "hello there!")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].LevenshteinScore)
	assert.Equal(t, []float32{1, 0, 0, 0}, hits[0].Embedding)

	hits, err = m.GetCachedEmbeddings(ctx, "completely different")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRoomsAndRemoval(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)
	a := message("hello there", testRoom, 10)
	a.ID = uuid.New()
	_, err := m.CreateMemory(ctx, a, false)
	require.NoError(t, err)
	_, err = m.CreateMemory(ctx, message("something else", otherRoom, 20), false)
	require.NoError(t, err)

	empty, err := m.GetMemoriesByRoomIDs(ctx, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	both, err := m.GetMemoriesByRoomIDs(ctx, []uuid.UUID{testRoom, otherRoom}, 0)
	require.NoError(t, err)
	assert.Len(t, both, 2)

	require.NoError(t, m.RemoveMemory(ctx, a.ID))
	got, err := m.GetMemoryByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, m.RemoveAllMemories(ctx, otherRoom))
	n, err := m.CountMemories(ctx, otherRoom, false)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type failingStore struct {
	storage.MemoryStore
	err error
}

func (f failingStore) GetMemories(context.Context, storage.MemoryQuery) ([]types.Memory, error) {
	return nil, f.err
}

func (f failingStore) GetMemoryByID(context.Context, uuid.UUID) (*types.Memory, error) {
	return nil, f.err
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	storeErr := types.NewError(types.ErrStoreUnavailable, "circuit open").WithRetryable(true)
	m := New(types.TableDescriptions, failingStore{MemoryStore: memstore.New(), err: storeErr},
		embedding.NewService(mocks.NewMockEmbedder(4)), Options{AgentID: testAgent})

	_, err := m.GetMemories(ctx, GetOptions{RoomID: testRoom})
	require.Error(t, err)
	assert.Contains(t, err.Error(), types.TableDescriptions)
	assert.True(t, types.IsErrorCode(err, types.ErrStoreUnavailable))
	assert.True(t, errors.Is(err, storeErr))

	_, err = m.CreateMemory(ctx, types.Memory{ID: uuid.New(), Content: types.Content{Text: "x"}}, false)
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))

	notFound := New(types.TableDescriptions, failingStore{MemoryStore: memstore.New(), err: types.NewError(types.ErrNotFound, "gone")},
		embedding.NewService(mocks.NewMockEmbedder(4)), Options{})
	got, err := notFound.GetMemoryByID(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetMemories_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		m := New(types.TableMessages, memstore.New(), embedding.NewService(mocks.NewMockEmbedder(4)), Options{AgentID: testAgent})

		stamps := rapid.SliceOfN(rapid.Int64Range(1, 1_000_000), 0, 30).Draw(t, "stamps")
		rooms := rapid.SliceOfN(rapid.Bool(), len(stamps), len(stamps)).Draw(t, "inRoom")
		count := rapid.IntRange(1, 40).Draw(t, "count")

		inRoom := 0
		for i, ts := range stamps {
			room := otherRoom
			if rooms[i] {
				room = testRoom
				inRoom++
			}
			mem := message("something else", room, ts)
			mem.Embedding = []float32{1, 0, 0, 0}
			if _, err := m.CreateMemory(ctx, mem, false); err != nil {
				t.Fatalf("create: %v", err)
			}
		}

		got, err := m.GetMemories(ctx, GetOptions{RoomID: testRoom, Count: count})
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		want := inRoom
		if want > count {
			want = count
		}
		if len(got) != want {
			t.Fatalf("got %d memories, want %d", len(got), want)
		}
		for i, mem := range got {
			if mem.RoomID != testRoom {
				t.Fatalf("memory from room %s leaked", mem.RoomID)
			}
			if i > 0 && got[i-1].CreatedAt < mem.CreatedAt {
				t.Fatalf("not newest first at %d: %d < %d", i, got[i-1].CreatedAt, mem.CreatedAt)
			}
		}
	})
}

func TestCreateMemory_UniqueIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		m := New(types.TableMessages, memstore.New(), embedding.NewService(mocks.NewMockEmbedder(16)), Options{AgentID: testAgent})
		word := rapid.StringMatching(`[a-z]{3,10}`).Draw(t, "word")
		repeats := rapid.IntRange(1, 5).Draw(t, "repeats")

		stored := 0
		for i := 0; i < repeats; i++ {
			created, err := m.CreateMemory(ctx, message("say "+word, testRoom, 0), true)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if created {
				stored++
			}
		}
		if stored != 1 {
			t.Fatalf("stored %d copies of the same unique memory", stored)
		}
	})
}
