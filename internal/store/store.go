package store

import (
	"context"
	"errors"

	"github.com/dhollis/twinrag/pkg/types"
)

var (
	// ErrNotFound is returned when a requested fragment doesn't exist.
	ErrNotFound = errors.New("not found")
)

// VectorMatch is one hit from the local vector scan.
type VectorMatch struct {
	FragmentID string
	Score      float64
}

// Store is the fragment store adapter: uniform read access to fragments
// and their metadata, plus the write operations used by the ingestion
// job and the session recorder. The retrieval path only ever calls the
// read methods and AppendSessionRecord.
type Store interface {
	// Fragment operations. Upsert and Delete exist for the ingestion job;
	// retrieval is read-only over fragments.
	UpsertFragment(ctx context.Context, f *types.Fragment) error
	GetFragment(ctx context.Context, id string) (*types.Fragment, error)
	GetByIDs(ctx context.Context, ids []string) ([]*types.Fragment, error)
	SearchByKeywords(ctx context.Context, keywords []string, kind types.Kind, limit int) ([]*types.Fragment, error)
	DeleteFragment(ctx context.Context, id string) error
	CountFragments(ctx context.Context) (int, error)

	// Vector operations backing the local index.
	UpsertVector(ctx context.Context, fragmentID string, vector []float32) error
	SearchVectors(ctx context.Context, query []float32, kind types.Kind, limit int, minScore float64) ([]VectorMatch, error)
	CountVectors(ctx context.Context) (int, error)

	// Session log.
	AppendSessionRecord(ctx context.Context, rec *types.SessionRecord) error

	Close() error
}
