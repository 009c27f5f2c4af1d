package vectorindex

import (
	"context"

	"github.com/dhollis/twinrag/internal/store"
	"github.com/dhollis/twinrag/pkg/types"
)

// LocalIndex ranks embeddings stored in the fragment database. Kind
// filtering joins against the fragments table directly, so the local
// index can never disagree with the store about metadata. Suitable for
// single-profile corpora, where a full scan is a few hundred vectors.
type LocalIndex struct {
	store store.Store
}

// NewLocalIndex creates a local index over the given store.
func NewLocalIndex(s store.Store) *LocalIndex {
	return &LocalIndex{store: s}
}

// Upsert stores the vector in the local vectors table. Metadata is
// ignored: the authoritative copy already lives on the fragment row.
func (l *LocalIndex) Upsert(ctx context.Context, id string, vector []float32, _ Metadata) error {
	return l.store.UpsertVector(ctx, id, vector)
}

// Query ranks stored vectors by cosine similarity.
func (l *LocalIndex) Query(ctx context.Context, vector []float32, topK int, kind types.Kind, minScore float64) ([]Hit, error) {
	matches, err := l.store.SearchVectors(ctx, vector, kind, topK, minScore)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(matches))
	for i, m := range matches {
		hits[i] = Hit{FragmentID: m.FragmentID, Score: m.Score}
	}
	return hits, nil
}

// Info reports the number of stored vectors. Dimension is not tracked
// per index locally; it is whatever the configured embedder produces.
func (l *LocalIndex) Info(ctx context.Context) (*Info, error) {
	count, err := l.store.CountVectors(ctx)
	if err != nil {
		return nil, err
	}
	return &Info{VectorCount: count}, nil
}

// Close is a no-op; the underlying store is owned by the caller.
func (l *LocalIndex) Close() error {
	return nil
}
