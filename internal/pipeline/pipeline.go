// Package pipeline is the public retrieval entry point: normalize the
// query, retrieve hybrid candidates, fuse and rank them, and record the
// session asynchronously.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dhollis/twinrag/internal/fusion"
	"github.com/dhollis/twinrag/internal/normalizer"
	"github.com/dhollis/twinrag/internal/retriever"
	"github.com/dhollis/twinrag/internal/session"
	"github.com/dhollis/twinrag/pkg/types"
)

const (
	// DefaultTopK is the number of fragments returned when the caller
	// does not ask for a specific count.
	DefaultTopK = 5
)

// Retriever is the candidate source the pipeline drives. Implemented by
// retriever.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, qc *types.QueryContext) ([]types.Candidate, retriever.Stats, error)
	RetrieveRelational(ctx context.Context, qc *types.QueryContext) ([]types.Candidate, retriever.Stats, error)
}

// Option adjusts a single query.
type Option func(*types.QueryContext)

// WithTopK sets how many fragments to return. Values below 1 keep the
// default.
func WithTopK(topK int) Option {
	return func(qc *types.QueryContext) {
		if topK >= 1 {
			qc.TopK = topK
		}
	}
}

// WithMinSimilarity sets the vector similarity floor. Negative values
// keep the default of 0.
func WithMinSimilarity(min float64) Option {
	return func(qc *types.QueryContext) {
		if min >= 0 {
			qc.MinSimilarity = min
		}
	}
}

// Pipeline wires the retrieval stages together. Stateless per query; safe
// for concurrent use.
type Pipeline struct {
	retriever Retriever
	fuser     *fusion.Fuser
	recorder  *session.Recorder
	logger    *zap.Logger
}

// New assembles a pipeline. recorder may be nil to disable session
// recording.
func New(r Retriever, f *fusion.Fuser, rec *session.Recorder, logger *zap.Logger) *Pipeline {
	return &Pipeline{retriever: r, fuser: f, recorder: rec, logger: logger}
}

// RetrieveAndRank answers one query. Invalid queries fail with
// types.ErrInvalidQuery before any external call. Embedding or vector
// index failures degrade to relational-only retrieval with the result
// flagged, never failing the request.
func (p *Pipeline) RetrieveAndRank(ctx context.Context, queryText string, opts ...Option) (*types.RetrievalResult, error) {
	start := time.Now()

	qc, err := normalizer.Normalize(queryText)
	if err != nil {
		return nil, err
	}
	qc.TopK = DefaultTopK
	for _, opt := range opts {
		opt(qc)
	}

	candidates, stats, degraded := p.retrieve(ctx, qc)

	fuseStart := time.Now()
	result := p.fuser.Fuse(candidates, qc)
	fuseTime := time.Since(fuseStart)
	result.Degraded = degraded
	result.DroppedStale = stats.DroppedStale

	timings := types.Timings{
		EmbedMS:        stats.EmbedTime.Milliseconds(),
		VectorSearchMS: stats.VectorTime.Milliseconds(),
		HydrateMS:      stats.HydrateTime.Milliseconds(),
		FuseMS:         fuseTime.Milliseconds(),
		TotalMS:        time.Since(start).Milliseconds(),
	}
	p.record(qc, result, timings)

	p.logger.Debug("query answered",
		zap.String("normalized", qc.NormalizedText),
		zap.Int("results", len(result.Items)),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("degraded", result.Degraded),
		zap.Int("dropped_stale", result.DroppedStale),
		zap.Int64("total_ms", timings.TotalMS))
	return result, nil
}

// retrieve runs the hybrid path and falls back to relational-only
// retrieval when the embedder or vector index is unavailable.
func (p *Pipeline) retrieve(ctx context.Context, qc *types.QueryContext) ([]types.Candidate, retriever.Stats, bool) {
	candidates, stats, err := p.retriever.Retrieve(ctx, qc)
	if err == nil {
		return candidates, stats, false
	}
	if !errors.Is(err, types.ErrEmbeddingUnavailable) && !errors.Is(err, types.ErrVectorIndexUnavailable) {
		p.logger.Warn("hybrid retrieval failed, falling back to relational",
			zap.String("normalized", qc.NormalizedText),
			zap.Error(err))
	} else {
		p.logger.Warn("vector path unavailable, degraded to relational retrieval",
			zap.String("normalized", qc.NormalizedText),
			zap.Error(err))
	}

	candidates, stats, err = p.retriever.RetrieveRelational(ctx, qc)
	if err != nil {
		p.logger.Error("relational fallback failed",
			zap.String("normalized", qc.NormalizedText),
			zap.Error(err))
		return nil, retriever.Stats{}, true
	}
	return candidates, stats, true
}

func (p *Pipeline) record(qc *types.QueryContext, result *types.RetrievalResult, timings types.Timings) {
	if p.recorder == nil {
		return
	}
	p.recorder.Record(&types.SessionRecord{
		QueryText:  qc.RawText,
		KindFilter: qc.KindFilter,
		Keywords:   qc.Keywords,
		ResultIDs:  result.IDs(),
		Timings:    timings,
		Degraded:   result.Degraded,
		CreatedAt:  time.Now().UTC(),
	})
}
