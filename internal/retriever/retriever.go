// Package retriever blends vector-index hits with relational keyword
// matches into a deduplicated candidate set. A thin or stale vector index
// is compensated by overfetching and relational backfill rather than by
// demanding consistency between the two stores.
package retriever

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dhollis/twinrag/internal/embedder"
	"github.com/dhollis/twinrag/internal/store"
	"github.com/dhollis/twinrag/internal/vectorindex"
	"github.com/dhollis/twinrag/pkg/types"
)

const (
	// MinOverfetchFactor is the floor for Config.OverfetchFactor.
	MinOverfetchFactor = 2

	defaultOverfetchFactor   = 3
	defaultEmbedTimeout      = 10 * time.Second
	defaultVectorTimeout     = 5 * time.Second
	defaultRelationalTimeout = 3 * time.Second
)

// Config bounds the external calls made per retrieval.
type Config struct {
	// OverfetchFactor multiplies topK for the vector query so that later
	// dedup and stale-hit drops still leave enough candidates. Minimum 2.
	OverfetchFactor   int
	EmbedTimeout      time.Duration
	VectorTimeout     time.Duration
	RelationalTimeout time.Duration
}

// DefaultConfig returns the standard retrieval bounds.
func DefaultConfig() Config {
	return Config{
		OverfetchFactor:   defaultOverfetchFactor,
		EmbedTimeout:      defaultEmbedTimeout,
		VectorTimeout:     defaultVectorTimeout,
		RelationalTimeout: defaultRelationalTimeout,
	}
}

// Validate checks the configured bounds.
func (c Config) Validate() error {
	if c.OverfetchFactor < MinOverfetchFactor {
		return fmt.Errorf("overfetch_factor %d below minimum %d: %w",
			c.OverfetchFactor, MinOverfetchFactor, types.ErrInvalidConfiguration)
	}
	if c.EmbedTimeout <= 0 || c.VectorTimeout <= 0 || c.RelationalTimeout <= 0 {
		return fmt.Errorf("retrieval timeouts must be positive: %w", types.ErrInvalidConfiguration)
	}
	return nil
}

// Stats reports per-stage observations for one retrieval.
type Stats struct {
	// DroppedStale counts vector hits whose fragment row no longer exists.
	DroppedStale int
	EmbedTime    time.Duration
	VectorTime   time.Duration
	HydrateTime  time.Duration
}

// Retriever executes the hybrid retrieval algorithm.
type Retriever struct {
	cfg      Config
	embedder embedder.Embedder
	index    vectorindex.Index
	store    store.Store
}

// New validates cfg and returns a Retriever over the given adapters.
func New(cfg Config, emb embedder.Embedder, idx vectorindex.Index, st store.Store) (*Retriever, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Retriever{cfg: cfg, embedder: emb, index: idx, store: st}, nil
}

// Retrieve embeds the query, fetches topK*overfetch vector hits, hydrates
// them against the fragment store, and backfills relationally when the
// hydrated set is thin. Embedding failures wrap types.ErrEmbeddingUnavailable
// and vector query failures wrap types.ErrVectorIndexUnavailable; both
// leave the caller free to fall back to RetrieveRelational.
func (r *Retriever) Retrieve(ctx context.Context, qc *types.QueryContext) ([]types.Candidate, Stats, error) {
	var stats Stats
	fetchLimit := qc.TopK * r.cfg.OverfetchFactor

	embedStart := time.Now()
	vector, err := r.embed(ctx, qc.NormalizedText)
	stats.EmbedTime = time.Since(embedStart)
	if err != nil {
		return nil, stats, err
	}

	// The vector query and the relational backfill query are independent
	// reads; run them together and blend afterwards.
	var hits []vectorindex.Hit
	var relational []*types.Fragment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		var qerr error
		hits, qerr = r.queryVectors(gctx, vector, fetchLimit, qc)
		stats.VectorTime = time.Since(start)
		return qerr
	})
	g.Go(func() error {
		var serr error
		relational, serr = r.searchRelational(gctx, qc, fetchLimit)
		// Backfill is best-effort when the vector path is up.
		if serr != nil {
			relational = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	hydrateStart := time.Now()
	candidates, dropped := r.hydrate(ctx, hits)
	stats.HydrateTime = time.Since(hydrateStart)
	stats.DroppedStale = dropped

	if len(candidates) < qc.TopK {
		candidates = backfill(candidates, relational, fetchLimit)
	}
	return candidates, stats, nil
}

// RetrieveRelational is the degraded path: keyword/tag matching only, no
// vector signal. All candidates carry Source relational and VectorScore 0.
func (r *Retriever) RetrieveRelational(ctx context.Context, qc *types.QueryContext) ([]types.Candidate, Stats, error) {
	var stats Stats
	fetchLimit := qc.TopK * r.cfg.OverfetchFactor

	fragments, err := r.searchRelational(ctx, qc, fetchLimit)
	if err != nil {
		return nil, stats, fmt.Errorf("relational search: %w", err)
	}

	candidates := make([]types.Candidate, 0, len(fragments))
	for _, frag := range fragments {
		candidates = append(candidates, types.Candidate{
			Fragment: frag,
			Source:   types.SourceRelational,
		})
	}
	return candidates, stats, nil
}

func (r *Retriever) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.EmbedTimeout)
	defer cancel()

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query (%s): %v: %w",
			r.embedder.Provider(), err, types.ErrEmbeddingUnavailable)
	}
	return vector, nil
}

func (r *Retriever) queryVectors(ctx context.Context, vector []float32, limit int, qc *types.QueryContext) ([]vectorindex.Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.VectorTimeout)
	defer cancel()

	hits, err := r.index.Query(ctx, vector, limit, qc.KindFilter, qc.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("vector query: %v: %w", err, types.ErrVectorIndexUnavailable)
	}
	return hits, nil
}

func (r *Retriever) searchRelational(ctx context.Context, qc *types.QueryContext, limit int) ([]*types.Fragment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.RelationalTimeout)
	defer cancel()
	return r.store.SearchByKeywords(ctx, qc.Keywords, qc.KindFilter, limit)
}

// hydrate resolves vector hits to fragment rows. Hits without a row are
// stale index entries: dropped and counted, never an error. If the batch
// lookup itself fails, each hit is retried individually so one bad row
// cannot take out the whole candidate set.
func (r *Retriever) hydrate(ctx context.Context, hits []vectorindex.Hit) ([]types.Candidate, int) {
	if len(hits) == 0 {
		return nil, 0
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.FragmentID
	}

	byID := make(map[string]*types.Fragment, len(hits))
	batchCtx, cancel := context.WithTimeout(ctx, r.cfg.RelationalTimeout)
	fragments, err := r.store.GetByIDs(batchCtx, ids)
	cancel()
	if err == nil {
		for _, frag := range fragments {
			byID[frag.ID] = frag
		}
	} else {
		for _, id := range ids {
			perCtx, perCancel := context.WithTimeout(ctx, r.cfg.RelationalTimeout)
			frag, gerr := r.store.GetFragment(perCtx, id)
			perCancel()
			if gerr != nil {
				continue
			}
			byID[id] = frag
		}
	}

	candidates := make([]types.Candidate, 0, len(hits))
	dropped := 0
	for _, hit := range hits {
		frag, ok := byID[hit.FragmentID]
		if !ok {
			dropped++
			continue
		}
		candidates = append(candidates, types.Candidate{
			Fragment:    frag,
			VectorScore: hit.Score,
			Source:      types.SourceVector,
		})
	}
	return candidates, dropped
}

// backfill appends relational matches not already present, keeping the
// blended set within fetchLimit and tagging overlaps as SourceBoth.
func backfill(candidates []types.Candidate, relational []*types.Fragment, fetchLimit int) []types.Candidate {
	present := make(map[string]int, len(candidates))
	for i, c := range candidates {
		present[c.Fragment.ID] = i
	}

	for _, frag := range relational {
		if i, ok := present[frag.ID]; ok {
			candidates[i].Source = types.SourceBoth
			continue
		}
		if len(candidates) >= fetchLimit {
			break
		}
		present[frag.ID] = len(candidates)
		candidates = append(candidates, types.Candidate{
			Fragment: frag,
			Source:   types.SourceRelational,
		})
	}
	return candidates
}
