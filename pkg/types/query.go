package types

// QueryContext carries one normalized query through the pipeline.
// It is created at request entry and discarded once the response is
// produced; only a summary survives as a SessionRecord.
type QueryContext struct {
	RawText        string
	NormalizedText string

	// Keywords is the deduplicated token set after stop-word removal.
	// The normalizer guarantees it is non-empty.
	Keywords []string

	// KindFilter restricts search to one fragment kind. Empty means
	// unrestricted; ambiguous queries deliberately stay unrestricted
	// because a wrong hard filter is worse than an over-broad search.
	KindFilter Kind

	// TopK is the requested result count.
	TopK int

	// MinSimilarity drops vector hits scoring below this threshold.
	MinSimilarity float64
}

// CandidateSource records which retrieval path produced a candidate.
type CandidateSource string

const (
	SourceVector     CandidateSource = "vector"
	SourceRelational CandidateSource = "relational"
	SourceBoth       CandidateSource = "both"
)

// Candidate is a hydrated fragment plus the raw vector signal, before
// fusion. VectorScore is 0 when the fragment was only found relationally.
type Candidate struct {
	Fragment    *Fragment
	VectorScore float64
	Source      CandidateSource
}
