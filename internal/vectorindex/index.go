// Package vectorindex is the vector search adapter: nearest-neighbor
// lookup over fragment embeddings with metadata filter pass-through.
//
// Two implementations exist. RESTIndex talks to a hosted
// Upstash-compatible index over HTTP; LocalIndex ranks embeddings
// stored alongside the fragments in SQLite. Both key vectors by
// fragment ID, the shared identity between the relational store and
// the index. No transaction spans the two, so the retriever reconciles
// disagreements (stale IDs, missing embeddings) instead of assuming
// consistency.
package vectorindex

import (
	"context"

	"github.com/dhollis/twinrag/pkg/types"
)

// Hit is one nearest-neighbor match, scored in [0,1] where higher is
// more similar.
type Hit struct {
	FragmentID string
	Score      float64
}

// Metadata is the filterable subset of fragment fields duplicated into
// the index at upsert time.
type Metadata struct {
	Kind       types.Kind       `json:"kind"`
	Tags       []string         `json:"tags,omitempty"`
	Importance types.Importance `json:"importance,omitempty"`
}

// Info describes the state of an index.
type Info struct {
	VectorCount int
	Dimension   int
}

// Index is the vector search adapter interface.
type Index interface {
	// Upsert stores (or replaces) a vector under the fragment ID.
	Upsert(ctx context.Context, id string, vector []float32, meta Metadata) error

	// Query returns up to topK nearest neighbors of the given vector.
	// An empty kind means no metadata filter. Hits scoring below
	// minScore are excluded.
	Query(ctx context.Context, vector []float32, topK int, kind types.Kind, minScore float64) ([]Hit, error)

	// Info reports index statistics.
	Info(ctx context.Context) (*Info, error)

	Close() error
}
