package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/agentcore/storage"
	"github.com/BaSui01/agentcore/testutil"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(room, agent uuid.UUID, text string, at int64, emb []float32) types.Memory {
	return types.Memory{
		ID:        uuid.New(),
		UserID:    agent,
		AgentID:   agent,
		RoomID:    room,
		Content:   types.Content{Text: text},
		Embedding: emb,
		CreatedAt: at,
	}
}

func TestMemories_GetNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	room, agent := uuid.New(), uuid.New()

	for i, text := range []string{"first", "second", "third"} {
		require.NoError(t, s.CreateMemory(ctx, newMemory(room, agent, text, int64(1000+i), nil), types.TableMessages, true))
	}
	require.NoError(t, s.CreateMemory(ctx, newMemory(uuid.New(), agent, "other room", 5000, nil), types.TableMessages, true))
	require.NoError(t, s.CreateMemory(ctx, newMemory(room, agent, "a fact", 6000, nil), types.TableDescriptions, false))

	got, err := s.GetMemories(ctx, storage.MemoryQuery{TableName: types.TableMessages, RoomID: room, Count: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Content.Text)
	assert.Equal(t, "second", got[1].Content.Text)

	ranged, err := s.GetMemories(ctx, storage.MemoryQuery{TableName: types.TableMessages, RoomID: room, Start: 1001, End: 1001})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "second", ranged[0].Content.Text)

	n, err := s.CountMemories(ctx, room, true, types.TableMessages)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.CountMemories(ctx, room, true, types.TableDescriptions)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "non unique rows are not counted")
}

func TestMemories_SameMillisecondKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	room, agent := uuid.New(), uuid.New()

	for _, text := range []string{"hello there", "the weather is nice", "something else"} {
		require.NoError(t, s.CreateMemory(ctx, newMemory(room, agent, text, 1000, nil), types.TableMessages, true))
	}

	got, err := s.GetMemories(ctx, storage.MemoryQuery{TableName: types.TableMessages, RoomID: room})
	require.NoError(t, err)
	assert.Equal(t, []string{"something else", "the weather is nice", "hello there"}, testutil.Texts(got))

	limited, err := s.GetMemories(ctx, storage.MemoryQuery{TableName: types.TableMessages, RoomID: room, Count: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"something else"}, testutil.Texts(limited))

	byRooms, err := s.GetMemoriesByRoomIDs(ctx, types.TableMessages, agent, []uuid.UUID{room}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"something else", "the weather is nice", "hello there"}, testutil.Texts(byRooms))
}

func TestMemories_CreateRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := newMemory(uuid.New(), uuid.New(), "hi", 1, nil)
	require.NoError(t, s.CreateMemory(ctx, m, types.TableMessages, true))

	err := s.CreateMemory(ctx, m, types.TableMessages, true)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrAlreadyExists))
}

func TestMemories_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	s := New()
	fixed := time.UnixMilli(42_000)
	s.now = func() time.Time { return fixed }

	room := uuid.New()
	require.NoError(t, s.CreateMemory(ctx, types.Memory{RoomID: room, Content: types.Content{Text: "x"}}, types.TableMessages, false))

	got, err := s.GetMemories(ctx, storage.MemoryQuery{TableName: types.TableMessages, RoomID: room})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEqual(t, uuid.Nil, got[0].ID)
	assert.Equal(t, int64(42_000), got[0].CreatedAt)
	assert.False(t, got[0].Unique)
}

func TestMemories_Search(t *testing.T) {
	ctx := context.Background()
	s := New()
	room, agent := uuid.New(), uuid.New()

	require.NoError(t, s.CreateMemory(ctx, newMemory(room, agent, "close", 1, []float32{1, 0}), types.TableMessages, true))
	require.NoError(t, s.CreateMemory(ctx, newMemory(room, agent, "closer", 2, []float32{0.9, 0.1}), types.TableMessages, true))
	require.NoError(t, s.CreateMemory(ctx, newMemory(room, agent, "far", 3, []float32{0, 1}), types.TableMessages, true))
	require.NoError(t, s.CreateMemory(ctx, newMemory(room, agent, "no vector", 4, nil), types.TableMessages, true))

	got, err := s.SearchMemories(ctx, storage.MemorySearch{
		TableName:      types.TableMessages,
		RoomID:         room,
		Embedding:      []float32{1, 0},
		MatchThreshold: 0.5,
		Count:          10,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "close", got[0].Content.Text)
	assert.Equal(t, "closer", got[1].Content.Text)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-6)
	assert.GreaterOrEqual(t, got[0].Similarity, got[1].Similarity)
}

func TestMemories_CachedEmbeddings(t *testing.T) {
	ctx := context.Background()
	s := New()
	room, agent := uuid.New(), uuid.New()

	require.NoError(t, s.CreateMemory(ctx, newMemory(room, agent, "hello world", 1, []float32{1, 2}), types.TableMessages, true))
	require.NoError(t, s.CreateMemory(ctx, newMemory(room, agent, "hello word", 2, []float32{3, 4}), types.TableMessages, true))
	require.NoError(t, s.CreateMemory(ctx, newMemory(room, agent, "goodbye", 3, []float32{5, 6}), types.TableMessages, true))

	got, err := s.GetCachedEmbeddings(ctx, storage.CachedEmbeddingQuery{
		TableName:  types.TableMessages,
		Input:      "hello world",
		Threshold:  2,
		MatchCount: 5,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].LevenshteinScore)
	assert.Equal(t, []float32{1, 2}, got[0].Embedding)
	assert.Equal(t, 1, got[1].LevenshteinScore)
}

func TestMemories_Remove(t *testing.T) {
	ctx := context.Background()
	s := New()
	room, agent := uuid.New(), uuid.New()
	a := newMemory(room, agent, "a", 1, nil)
	b := newMemory(room, agent, "b", 2, nil)
	require.NoError(t, s.CreateMemory(ctx, a, types.TableMessages, true))
	require.NoError(t, s.CreateMemory(ctx, b, types.TableMessages, true))

	require.NoError(t, s.RemoveMemory(ctx, a.ID, types.TableMessages))
	got, err := s.GetMemoryByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	byIDs, err := s.GetMemoriesByIDs(ctx, []uuid.UUID{a.ID, b.ID}, types.TableMessages)
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.Equal(t, b.ID, byIDs[0].ID)

	require.NoError(t, s.RemoveAllMemories(ctx, room, types.TableMessages))
	n, err := s.CountMemories(ctx, room, false, types.TableMessages)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGoals(t *testing.T) {
	ctx := context.Background()
	s := New()
	room, user := uuid.New(), uuid.New()

	active := types.Goal{ID: uuid.New(), RoomID: room, UserID: user, Name: "ship", Status: types.GoalInProgress}
	done := types.Goal{ID: uuid.New(), RoomID: room, UserID: uuid.New(), Name: "plan", Status: types.GoalDone}
	require.NoError(t, s.CreateGoal(ctx, active))
	require.NoError(t, s.CreateGoal(ctx, done))

	all, err := s.GetGoals(ctx, storage.GoalQuery{RoomID: room})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inProgress, err := s.GetGoals(ctx, storage.GoalQuery{RoomID: room, OnlyInProgress: true})
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, "ship", inProgress[0].Name)

	mine, err := s.GetGoals(ctx, storage.GoalQuery{RoomID: room, UserID: &user})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, s.UpdateGoalStatus(ctx, active.ID, types.GoalDone))
	inProgress, err = s.GetGoals(ctx, storage.GoalQuery{RoomID: room, OnlyInProgress: true})
	require.NoError(t, err)
	assert.Empty(t, inProgress)

	err = s.UpdateGoal(ctx, types.Goal{ID: uuid.New()})
	assert.True(t, types.IsErrorCode(err, types.ErrNotFound))

	require.NoError(t, s.RemoveAllGoals(ctx, room))
	all, err = s.GetGoals(ctx, storage.GoalQuery{RoomID: room})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRoomsAndParticipants(t *testing.T) {
	ctx := context.Background()
	s := New()
	user := uuid.New()

	_, err := s.CreateAccount(ctx, types.Account{
		ID:       user,
		Name:     "Grace",
		Username: "grace",
		Details:  map[string]any{"tagline": "compiler pioneer", "summary": "wrote the first compiler"},
	})
	require.NoError(t, err)

	missing, err := s.GetRoom(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, missing)

	room, err := s.CreateRoom(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, room)

	added, err := s.AddParticipant(ctx, user, room)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.AddParticipant(ctx, user, room)
	require.NoError(t, err)
	assert.False(t, added)

	rooms, err := s.GetRoomsForParticipant(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{room}, rooms)

	actors, err := s.GetActorDetails(ctx, room)
	require.NoError(t, err)
	require.Len(t, actors, 1)
	assert.Equal(t, "Grace", actors[0].Name)
	assert.Equal(t, "compiler pioneer", actors[0].Details.Tagline)

	parts, err := s.GetParticipantsForAccount(ctx, user)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "grace", parts[0].Account.Username)

	require.NoError(t, s.SetParticipantUserState(ctx, room, user, types.ParticipantMuted))
	state, err := s.GetParticipantUserState(ctx, room, user)
	require.NoError(t, err)
	assert.Equal(t, types.ParticipantMuted, state)

	err = s.SetParticipantUserState(ctx, room, uuid.New(), types.ParticipantFollowed)
	assert.True(t, types.IsErrorCode(err, types.ErrNotFound))

	removed, err := s.RemoveParticipant(ctx, user, room)
	require.NoError(t, err)
	assert.True(t, removed)
	ids, err := s.GetParticipantsForRoom(ctx, room)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRelationships(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := uuid.New(), uuid.New()

	created, err := s.CreateRelationship(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateRelationship(ctx, b, a)
	require.NoError(t, err)
	assert.False(t, created, "pair order does not matter")

	rel, err := s.GetRelationship(ctx, b, a)
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, a, rel.UserA)
	assert.Equal(t, storage.DefaultRelationshipStatus, rel.Status)

	rels, err := s.GetRelationships(ctx, b)
	require.NoError(t, err)
	assert.Len(t, rels, 1)

	none, err := s.GetRelationship(ctx, a, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func knowledgeItem(agent uuid.UUID, text string, shared bool, original uuid.UUID, emb []float32) types.RAGKnowledgeItem {
	return types.RAGKnowledgeItem{
		ID:      uuid.New(),
		AgentID: agent,
		Content: types.KnowledgeContent{
			Text: text,
			Metadata: types.KnowledgeMetadata{
				IsShared:   shared,
				IsChunk:    original != uuid.Nil,
				OriginalID: original,
			},
		},
		Embedding: emb,
	}
}

func TestKnowledge_VisibilityAndCascade(t *testing.T) {
	ctx := context.Background()
	s := New()
	agent, other := uuid.New(), uuid.New()

	main := knowledgeItem(agent, "main", false, uuid.Nil, []float32{1, 0})
	chunk := knowledgeItem(agent, "chunk", false, main.ID, []float32{1, 0})
	shared := knowledgeItem(other, "shared", true, uuid.Nil, []float32{0.8, 0.2})
	private := knowledgeItem(other, "private", false, uuid.Nil, []float32{1, 0})
	for _, item := range []types.RAGKnowledgeItem{main, chunk, shared, private} {
		require.NoError(t, s.CreateKnowledge(ctx, item))
	}
	assert.True(t, types.IsErrorCode(s.CreateKnowledge(ctx, main), types.ErrAlreadyExists))

	visible, err := s.GetKnowledge(ctx, storage.KnowledgeQuery{AgentID: agent})
	require.NoError(t, err)
	assert.Len(t, visible, 3)

	byID, err := s.GetKnowledge(ctx, storage.KnowledgeQuery{ID: private.ID})
	require.NoError(t, err)
	require.Len(t, byID, 1)

	hits, err := s.SearchKnowledge(ctx, storage.KnowledgeSearch{AgentID: agent, Embedding: []float32{1, 0}, MatchThreshold: 0.5, MatchCount: 10})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "shared", hits[2].Content.Text)

	require.NoError(t, s.RemoveKnowledge(ctx, main.ID))
	visible, err = s.GetKnowledge(ctx, storage.KnowledgeQuery{AgentID: agent})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "shared", visible[0].Content.Text)
}

func TestKnowledge_Clear(t *testing.T) {
	ctx := context.Background()
	agent, other := uuid.New(), uuid.New()

	seed := func(s *Store) {
		require.NoError(t, s.CreateKnowledge(ctx, knowledgeItem(agent, "mine", false, uuid.Nil, nil)))
		require.NoError(t, s.CreateKnowledge(ctx, knowledgeItem(agent, "mine shared", true, uuid.Nil, nil)))
		require.NoError(t, s.CreateKnowledge(ctx, knowledgeItem(other, "theirs shared", true, uuid.Nil, nil)))
		require.NoError(t, s.CreateKnowledge(ctx, knowledgeItem(other, "theirs", false, uuid.Nil, nil)))
	}

	tests := []struct {
		name          string
		includeShared bool
		wantLeft      int
	}{
		{"owned only", false, 2},
		{"owned and shared", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			seed(s)
			require.NoError(t, s.ClearKnowledge(ctx, agent, tt.includeShared))
			left, err := s.GetKnowledge(ctx, storage.KnowledgeQuery{AgentID: other})
			require.NoError(t, err)
			assert.Len(t, left, tt.wantLeft)
		})
	}
}

func TestCacheAndLog(t *testing.T) {
	ctx := context.Background()
	s := New()
	agent := uuid.New()

	_, ok, err := s.GetCache(ctx, agent, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetCache(ctx, agent, "k", "v"))
	v, ok, err := s.GetCache(ctx, agent, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok, _ = s.GetCache(ctx, uuid.New(), "k")
	assert.False(t, ok, "cache is scoped per agent")

	require.NoError(t, s.DeleteCache(ctx, agent, "k"))
	_, ok, _ = s.GetCache(ctx, agent, "k")
	assert.False(t, ok)

	require.NoError(t, s.Log(ctx, storage.LogEntry{Type: "action", Body: map[string]any{"name": "NONE"}}))
	assert.Len(t, s.Logs(), 1)
}
