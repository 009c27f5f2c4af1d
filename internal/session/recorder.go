// Package session persists retrieval session records asynchronously.
// Records are observability data: losing one under pressure is acceptable,
// delaying a retrieval response is not.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhollis/twinrag/internal/store"
	"github.com/dhollis/twinrag/pkg/types"
)

const defaultBufferSize = 128

// Recorder appends session records to the store from a single writer
// goroutine, fed by a buffered channel so callers never block.
type Recorder struct {
	store   store.Store
	logger  *zap.Logger
	records chan *types.SessionRecord
	dropped atomic.Int64
	closed  atomic.Bool
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewRecorder starts the writer goroutine. bufferSize <= 0 selects the
// default.
func NewRecorder(st store.Store, logger *zap.Logger, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	r := &Recorder{
		store:   st,
		logger:  logger,
		records: make(chan *types.SessionRecord, bufferSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues rec for persistence without blocking. A full buffer, or a
// recorder that has been closed, drops the record and bumps the drop
// counter. An empty ID is assigned here.
func (r *Recorder) Record(rec *types.SessionRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if r.closed.Load() {
		r.drop(rec)
		return
	}
	select {
	case r.records <- rec:
	default:
		r.drop(rec)
	}
}

func (r *Recorder) drop(rec *types.SessionRecord) {
	r.dropped.Add(1)
	r.logger.Warn("session record dropped",
		zap.String("session_id", rec.ID),
		zap.Int64("total_dropped", r.dropped.Load()))
}

// Dropped reports how many records were discarded.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting records and drains the buffer, bounded by ctx.
// Record stays safe to call during and after Close; late records are
// dropped and counted.
func (r *Recorder) Close(ctx context.Context) error {
	r.once.Do(func() {
		r.closed.Store(true)
		close(r.quit)
	})
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for {
		select {
		case rec := <-r.records:
			r.persist(rec)
		case <-r.quit:
			for {
				select {
				case rec := <-r.records:
					r.persist(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) persist(rec *types.SessionRecord) {
	if err := r.store.AppendSessionRecord(context.Background(), rec); err != nil {
		r.logger.Warn("failed to persist session record",
			zap.String("session_id", rec.ID),
			zap.Error(err))
	}
}
