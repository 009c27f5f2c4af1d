package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhollis/twinrag/internal/store"
	"github.com/dhollis/twinrag/pkg/types"
)

func setupLocalIndex(t *testing.T) (*LocalIndex, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewLocalIndex(s), s
}

func seedFragment(t *testing.T, s store.Store, id string, kind types.Kind) {
	t.Helper()
	require.NoError(t, s.UpsertFragment(context.Background(), &types.Fragment{
		ID:              id,
		Kind:            kind,
		Title:           "title " + id,
		Body:            "body",
		Tags:            []string{"tag"},
		Importance:      types.ImportanceMedium,
		RelevanceWeight: 0.5,
	}))
}

func TestLocalIndexUpsertAndQuery(t *testing.T) {
	idx, s := setupLocalIndex(t)
	ctx := context.Background()

	seedFragment(t, s, "a", types.KindExperience)
	seedFragment(t, s, "b", types.KindProject)

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}, Metadata{Kind: types.KindExperience}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 1}, Metadata{Kind: types.KindProject}))

	hits, err := idx.Query(ctx, []float32{1, 0}, 10, "", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].FragmentID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	// Kind filter
	hits, err = idx.Query(ctx, []float32{1, 0}, 10, types.KindProject, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].FragmentID)

	// Threshold
	hits, err = idx.Query(ctx, []float32{1, 0}, 10, "", 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].FragmentID)
}

func TestLocalIndexInfo(t *testing.T) {
	idx, s := setupLocalIndex(t)
	ctx := context.Background()

	info, err := idx.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.VectorCount)

	seedFragment(t, s, "a", types.KindSkill)
	require.NoError(t, idx.Upsert(ctx, "a", []float32{1}, Metadata{}))

	info, err = idx.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.VectorCount)
}
