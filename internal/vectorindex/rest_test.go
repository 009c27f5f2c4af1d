package vectorindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhollis/twinrag/pkg/types"
)

func newRESTIndexForTest(t *testing.T, handler http.HandlerFunc) *RESTIndex {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	idx, err := NewRESTIndex(srv.URL, "test-token")
	require.NoError(t, err)
	idx.httpClient = srv.Client()
	return idx
}

func TestRESTIndexQuery(t *testing.T) {
	idx := newRESTIndexForTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var payload queryPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, 6, payload.TopK)
		assert.Equal(t, "kind = 'experience'", payload.Filter)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": "exp-kafka", "score": 0.91},
				{"id": "exp-cloud", "score": 0.42},
			},
		})
	})

	hits, err := idx.Query(context.Background(), []float32{0.1, 0.2}, 6, types.KindExperience, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exp-kafka", hits[0].FragmentID)
	assert.InDelta(t, 0.91, hits[0].Score, 1e-9)
}

func TestRESTIndexQueryMinScoreClientSide(t *testing.T) {
	idx := newRESTIndexForTest(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": "a", "score": 0.9},
				{"id": "b", "score": 0.3},
			},
		})
	})

	hits, err := idx.Query(context.Background(), []float32{1}, 5, "", 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].FragmentID)
}

func TestRESTIndexUpsert(t *testing.T) {
	var got []upsertPayload
	idx := newRESTIndexForTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upsert", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "Success"})
	})

	err := idx.Upsert(context.Background(), "exp-1", []float32{1, 2}, Metadata{
		Kind: types.KindExperience,
		Tags: []string{"Kafka"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "exp-1", got[0].ID)
	assert.Equal(t, types.KindExperience, got[0].Metadata.Kind)
}

func TestRESTIndexInfo(t *testing.T) {
	idx := newRESTIndexForTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/info", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"vectorCount": 42, "dimension": 1024},
		})
	})

	info, err := idx.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, info.VectorCount)
	assert.Equal(t, 1024, info.Dimension)
}

func TestRESTIndexRetriesOnFailure(t *testing.T) {
	var calls atomic.Int32
	idx := newRESTIndexForTest(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	_, err := idx.Query(context.Background(), []float32{1}, 5, "", 0)
	require.Error(t, err)
	assert.Equal(t, int32(restMaxRetries), calls.Load())
}

func TestNewRESTIndexValidation(t *testing.T) {
	_, err := NewRESTIndex("", "token")
	assert.Error(t, err)
	_, err = NewRESTIndex("https://example.upstash.io", "")
	assert.Error(t, err)
}
