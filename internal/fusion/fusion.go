// Package fusion ranks retrieval candidates by a weighted combination of
// vector similarity, keyword overlap, the author-assigned relevance prior,
// and fragment importance.
package fusion

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dhollis/twinrag/pkg/types"
)

// scoreEpsilon is the window within which fused scores count as tied.
const scoreEpsilon = 1e-9

// Default signal weights.
const (
	DefaultVectorWeight     = 0.45
	DefaultKeywordWeight    = 0.25
	DefaultPriorWeight      = 0.15
	DefaultImportanceWeight = 0.15
)

// Config holds the fusion weights. All weights must be non-negative and
// sum to 1.0; Validate runs once at construction, never per query.
type Config struct {
	VectorWeight     float64
	KeywordWeight    float64
	PriorWeight      float64
	ImportanceWeight float64
}

// DefaultConfig returns the standard 0.45/0.25/0.15/0.15 weighting.
func DefaultConfig() Config {
	return Config{
		VectorWeight:     DefaultVectorWeight,
		KeywordWeight:    DefaultKeywordWeight,
		PriorWeight:      DefaultPriorWeight,
		ImportanceWeight: DefaultImportanceWeight,
	}
}

// Validate checks the weight constraints.
func (c Config) Validate() error {
	for name, w := range map[string]float64{
		"vector_weight":     c.VectorWeight,
		"keyword_weight":    c.KeywordWeight,
		"prior_weight":      c.PriorWeight,
		"importance_weight": c.ImportanceWeight,
	} {
		if w < 0 {
			return fmt.Errorf("%s is negative (%v): %w", name, w, types.ErrInvalidConfiguration)
		}
	}
	sum := c.VectorWeight + c.KeywordWeight + c.PriorWeight + c.ImportanceWeight
	if math.Abs(sum-1.0) > scoreEpsilon {
		return fmt.Errorf("fusion weights sum to %v, want 1.0: %w", sum, types.ErrInvalidConfiguration)
	}
	return nil
}

// Fuser scores and ranks candidates.
type Fuser struct {
	cfg Config
}

// New validates the configuration and returns a Fuser.
func New(cfg Config) (*Fuser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Fuser{cfg: cfg}, nil
}

// Fuse scores every candidate, sorts descending with deterministic
// tie-breaks, truncates to qc.TopK, and computes the aggregate confidence.
// The Degraded flag on the result is owned by the pipeline, not set here.
func (f *Fuser) Fuse(candidates []types.Candidate, qc *types.QueryContext) *types.RetrievalResult {
	items := make([]types.ScoredFragment, 0, len(candidates))
	for _, c := range candidates {
		signals := f.signals(c, qc)
		items = append(items, types.ScoredFragment{
			FragmentID: c.Fragment.ID,
			Fragment:   c.Fragment,
			FusedScore: f.combine(signals),
			Signals:    signals,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return lessRanked(items[i], items[j])
	})

	if qc.TopK > 0 && len(items) > qc.TopK {
		items = items[:qc.TopK]
	}

	return &types.RetrievalResult{
		Items:      items,
		Confidence: confidence(items, qc.TopK),
	}
}

// signals computes the four normalized component scores for a candidate.
func (f *Fuser) signals(c types.Candidate, qc *types.QueryContext) types.Signals {
	return types.Signals{
		Vector:     clamp01(c.VectorScore),
		Keyword:    keywordOverlap(qc.Keywords, c.Fragment),
		Prior:      clamp01(c.Fragment.RelevanceWeight),
		Importance: c.Fragment.Importance.Score(),
	}
}

func (f *Fuser) combine(s types.Signals) float64 {
	return f.cfg.VectorWeight*s.Vector +
		f.cfg.KeywordWeight*s.Keyword +
		f.cfg.PriorWeight*s.Prior +
		f.cfg.ImportanceWeight*s.Importance
}

// keywordOverlap is |keywords ∩ (tags ∪ title tokens)| / |keywords|.
// Keywords are lowercase already; tags and titles are folded here.
func keywordOverlap(keywords []string, frag *types.Fragment) float64 {
	if len(keywords) == 0 {
		return 0
	}
	terms := make(map[string]struct{}, len(frag.Tags))
	for _, tag := range frag.Tags {
		terms[strings.ToLower(tag)] = struct{}{}
	}
	for _, tok := range strings.Fields(strings.ToLower(frag.Title)) {
		terms[tok] = struct{}{}
	}
	hits := 0
	for _, kw := range keywords {
		if _, ok := terms[kw]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// lessRanked orders items best-first. Scores within scoreEpsilon tie-break
// by importance descending, DateRange lexical descending, then ID ascending.
func lessRanked(a, b types.ScoredFragment) bool {
	if math.Abs(a.FusedScore-b.FusedScore) > scoreEpsilon {
		return a.FusedScore > b.FusedScore
	}
	ai, bi := a.Fragment.Importance.Score(), b.Fragment.Importance.Score()
	if ai != bi {
		return ai > bi
	}
	if a.Fragment.DateRange != b.Fragment.DateRange {
		return a.Fragment.DateRange > b.Fragment.DateRange
	}
	return a.FragmentID < b.FragmentID
}

// confidence is the mean fused score scaled by coverage: fewer items than
// topK means thinner evidence and a proportionally lower confidence.
func confidence(items []types.ScoredFragment, topK int) float64 {
	if len(items) == 0 || topK <= 0 {
		return 0
	}
	var sum float64
	for _, it := range items {
		sum += it.FusedScore
	}
	mean := sum / float64(len(items))
	coverage := float64(len(items)) / float64(topK)
	if coverage > 1 {
		coverage = 1
	}
	return mean * coverage
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
