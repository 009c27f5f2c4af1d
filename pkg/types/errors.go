package types

import "errors"

// Pipeline error taxonomy. Adapter failures are converted at the
// retriever boundary into degraded or partial results; only
// ErrInvalidQuery and ErrInvalidConfiguration reach callers as hard
// failures.
var (
	// ErrInvalidQuery means the query normalized to nothing (only
	// punctuation or whitespace). Rejected before any external call.
	ErrInvalidQuery = errors.New("invalid query: no keywords after normalization")

	// ErrEmbeddingUnavailable means the embedding provider could not be
	// reached. Triggers the relational-only degraded path.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrVectorIndexUnavailable means the vector index could not be
	// queried. Triggers the relational-only degraded path.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrInvalidConfiguration means fusion weights or retriever settings
	// are malformed. Fatal at startup, never raised per query.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Result invariant violations, used by RetrievalResult.Validate.
var (
	ErrTooManyResults    = errors.New("result length exceeds requested top-k")
	ErrDuplicateFragment = errors.New("duplicate fragment ID in result")
	ErrUnsortedResults   = errors.New("results not sorted by fused score")
	ErrMissingFragmentID = errors.New("result item missing fragment ID")
)
