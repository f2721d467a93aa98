package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

func TestInMemoryStore_MirrorsSQLiteSemantics(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertSource(ctx, entities.Source{ID: "v1", ContentHash: "h"}, sourceChunks("v1",
		[]float32{1, 0, 0}, []float32{0, 1, 0},
	)))
	require.NoError(t, store.UpsertSource(ctx, entities.Source{ID: "v2", ContentHash: "h"}, sourceChunks("v2",
		[]float32{0, 0, 1},
	)))

	results, err := store.Search(ctx, []float32{0, 0, 1}, 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v2", results[0].Chunk.SourceID)

	results, err = store.Search(ctx, []float32{0, 0, 1}, 5, "v1")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "v1", r.Chunk.SourceID)
	}

	_, err = store.Search(ctx, []float32{0, 0, 1}, 0, "")
	assert.True(t, entities.IsConfiguration(err))
	_, err = store.Search(ctx, []float32{0, 0, 1}, 5, "nope")
	assert.True(t, entities.IsNotFound(err))
}

func TestInMemoryStore_ReplaceAndDelete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertSource(ctx, entities.Source{ID: "v1", ContentHash: "h1"}, sourceChunks("v1",
		[]float32{1, 0, 0}, []float32{0, 1, 0},
	)))
	require.NoError(t, store.UpsertSource(ctx, entities.Source{ID: "v1", ContentHash: "h2"}, sourceChunks("v1",
		[]float32{0, 1, 0},
	)))

	src, chunks, err := store.GetSource(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "h2", src.ContentHash)
	assert.Len(t, chunks, 1)

	sources, err := store.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1, "replace must not duplicate the source")

	require.NoError(t, store.DeleteSource(ctx, "v1"))
	assert.True(t, entities.IsNotFound(store.DeleteSource(ctx, "v1")))
	_, err = store.FindSource(ctx, "v1")
	assert.True(t, entities.IsNotFound(err))
}

func TestInMemoryStore_InsertionOrder(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"z", "m", "a"} {
		require.NoError(t, store.UpsertSource(ctx, entities.Source{ID: id, ContentHash: "h"}, nil))
	}

	sources, err := store.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, "z", sources[0].ID)
	assert.Equal(t, "m", sources[1].ID)
	assert.Equal(t, "a", sources[2].ID)
}
