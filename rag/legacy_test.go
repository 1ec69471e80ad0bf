package rag

import (
	"context"
	"testing"

	"github.com/BaSui01/agentcore/llm/embedding"
	"github.com/BaSui01/agentcore/memory"
	"github.com/BaSui01/agentcore/storage/memstore"
	"github.com/BaSui01/agentcore/testutil/mocks"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyKnowledge_SetAndGet(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := embedding.NewService(mocks.NewMockEmbedder(8))
	docs := memory.New(types.TableDocuments, store, svc, memory.Options{AgentID: agentA})
	frags := memory.New(types.TableFragments, store, svc, memory.Options{AgentID: agentA})
	k := NewLegacyKnowledge(agentA, docs, frags, svc)

	item := types.KnowledgeItem{
		ID:      uuid.New(),
		Content: types.Content{Text: "Sei is a layer one blockchain optimized for trading."},
	}
	require.NoError(t, k.Set(ctx, item))

	doc, err := docs.GetMemoryByID(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.True(t, embedding.IsZeroVector(doc.Embedding))

	n, err := frags.CountMemories(ctx, agentA, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := k.Get(ctx, types.Memory{Content: types.Content{Text: "Sei is a layer one blockchain optimized for trading."}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, item.ID, got[0].ID)
	assert.Equal(t, item.Content.Text, got[0].Content.Text)

	empty, err := k.Get(ctx, types.Memory{Content: types.Content{Text: "   "}})
	require.NoError(t, err)
	assert.Empty(t, empty)

	err = k.Set(ctx, types.KnowledgeItem{})
	assert.True(t, types.IsErrorCode(err, types.ErrEmptyContent))
}
