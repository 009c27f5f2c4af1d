package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhollis/twinrag/internal/store"
	"github.com/dhollis/twinrag/pkg/types"
)

// appendStore implements only the methods the recorder touches; the rest
// of the Store interface is satisfied by embedding.
type appendStore struct {
	store.Store

	mu      sync.Mutex
	records []*types.SessionRecord
	block   chan struct{}
}

func (a *appendStore) AppendSessionRecord(ctx context.Context, rec *types.SessionRecord) error {
	if a.block != nil {
		<-a.block
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

func (a *appendStore) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

func TestRecorderPersistsRecords(t *testing.T) {
	st := &appendStore{}
	rec := NewRecorder(st, zap.NewNop(), 16)

	for i := 0; i < 5; i++ {
		rec.Record(&types.SessionRecord{QueryText: "kafka incident response"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rec.Close(ctx))

	assert.Equal(t, 5, st.count())
	assert.Zero(t, rec.Dropped())
	for _, r := range st.records {
		assert.NotEmpty(t, r.ID, "recorder should assign uuid IDs")
	}
}

func TestRecorderDropsWhenBufferFull(t *testing.T) {
	st := &appendStore{block: make(chan struct{})}
	rec := NewRecorder(st, zap.NewNop(), 1)

	// First record is taken by the writer and blocks; the second fills the
	// buffer; everything after is dropped.
	for i := 0; i < 10; i++ {
		rec.Record(&types.SessionRecord{QueryText: "q"})
	}
	assert.GreaterOrEqual(t, rec.Dropped(), int64(1))

	close(st.block)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rec.Close(ctx))
}

func TestRecorderRecordAfterCloseDrops(t *testing.T) {
	st := &appendStore{}
	rec := NewRecorder(st, zap.NewNop(), 4)

	rec.Record(&types.SessionRecord{QueryText: "before close"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rec.Close(ctx))

	// A request finishing during shutdown may still record; it must be
	// dropped and counted, never crash the process.
	rec.Record(&types.SessionRecord{QueryText: "during shutdown"})
	rec.Record(&types.SessionRecord{QueryText: "after shutdown"})

	assert.Equal(t, int64(2), rec.Dropped())
	assert.Equal(t, 1, st.count())
}

func TestRecorderCloseIsIdempotent(t *testing.T) {
	rec := NewRecorder(&appendStore{}, zap.NewNop(), 4)
	ctx := context.Background()
	require.NoError(t, rec.Close(ctx))
	require.NoError(t, rec.Close(ctx))
}
