package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreUpsertGetCountDelete(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "vectors.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	err = store.Upsert(ctx, CollectionKnowledge,
		[]string{"doc one", "doc two"},
		[]map[string]any{{"tag": "a"}, {"tag": "b"}},
		[]string{"id1", "id2"})
	require.NoError(t, err)

	count, err := store.Count(ctx, CollectionKnowledge)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	hits, err := store.Get(ctx, CollectionKnowledge, []string{"id1"}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc one", hits[0].Document)
	assert.Equal(t, "a", hits[0].Metadata["tag"])

	require.NoError(t, store.Delete(ctx, CollectionKnowledge, []string{"id1"}))
	count, err = store.Count(ctx, CollectionKnowledge)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStoreQueryFallsBackToFTSWithoutEmbedder(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "vectors.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Upsert(ctx, CollectionObservations,
		[]string{"connection refused while dialing the gateway", "unrelated note about formatting"},
		[]map[string]any{{}, {}},
		[]string{"obs1", "obs2"}))

	hits, err := store.Query(ctx, CollectionObservations, []string{"connection refused"}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "obs1", hits[0].ID)
}

func TestSQLiteStoreUpsertOverwritesExistingID(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "vectors.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Upsert(ctx, CollectionKnowledge, []string{"v1"}, []map[string]any{{}}, []string{"id1"}))
	require.NoError(t, store.Upsert(ctx, CollectionKnowledge, []string{"v2"}, []map[string]any{{}}, []string{"id1"}))

	count, err := store.Count(ctx, CollectionKnowledge)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	hits, err := store.Get(ctx, CollectionKnowledge, []string{"id1"}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v2", hits[0].Document)
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = []float32{float32(len(t)), 1}
	}
	return vecs, nil
}

func TestSQLiteStoreBackupProducesQueryableCopy(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "vectors.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Upsert(ctx, CollectionKnowledge,
		[]string{"doc one"}, []map[string]any{{}}, []string{"id1"}))

	destPath := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, store.Backup(ctx, destPath))

	restored, err := Open(destPath, nil)
	require.NoError(t, err)
	defer restored.Close()

	count, err := restored.Count(ctx, CollectionKnowledge)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStoreQueryUsesCosineIndexWithEmbedder(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "vectors.db"), fakeEmbedder{})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Upsert(ctx, CollectionKnowledge,
		[]string{"short", "a much longer piece of text here"},
		[]map[string]any{{}, {}},
		[]string{"short1", "long1"}))

	hits, err := store.Query(ctx, CollectionKnowledge, []string{"short"}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "short1", hits[0].ID)
}
