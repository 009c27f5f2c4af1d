package types

// Signals breaks a fused score down into its normalized components.
// Each is in [0,1]; the fuser combines them with configured weights.
type Signals struct {
	Vector     float64
	Keyword    float64
	Prior      float64
	Importance float64
}

// ScoredFragment is one ranked entry in a retrieval result.
type ScoredFragment struct {
	FragmentID string
	Fragment   *Fragment
	FusedScore float64
	Signals    Signals
}

// RetrievalResult is the pipeline's answer to one query: ranked
// fragments plus an aggregate confidence for the whole response.
//
// Invariants: Items is sorted by FusedScore descending, fragment IDs
// are unique, and len(Items) never exceeds the requested top-k.
type RetrievalResult struct {
	Items []ScoredFragment

	// Confidence aggregates the returned fused scores, scaled down when
	// fewer fragments were found than requested. 0 for an empty result.
	Confidence float64

	// Degraded is set when the vector path was unavailable and the
	// result was ranked from relational signals only. Callers must be
	// able to tell "nothing relevant" from "retrieval degraded".
	Degraded bool

	// DroppedStale counts vector hits whose fragment no longer exists
	// in the store. Surfaced for observability, never an error.
	DroppedStale int
}

// Validate checks the result invariants against the requested top-k.
func (r *RetrievalResult) Validate(topK int) error {
	if len(r.Items) > topK {
		return ErrTooManyResults
	}
	seen := make(map[string]struct{}, len(r.Items))
	for i, item := range r.Items {
		if item.FragmentID == "" {
			return ErrMissingFragmentID
		}
		if _, dup := seen[item.FragmentID]; dup {
			return ErrDuplicateFragment
		}
		seen[item.FragmentID] = struct{}{}
		if i > 0 && item.FusedScore > r.Items[i-1].FusedScore {
			return ErrUnsortedResults
		}
	}
	return nil
}

// IDs returns the fragment IDs in rank order.
func (r *RetrievalResult) IDs() []string {
	ids := make([]string, len(r.Items))
	for i, item := range r.Items {
		ids[i] = item.FragmentID
	}
	return ids
}
