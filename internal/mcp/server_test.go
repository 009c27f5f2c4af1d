package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhollis/twinrag/internal/embedder"
	"github.com/dhollis/twinrag/internal/fusion"
	"github.com/dhollis/twinrag/internal/pipeline"
	"github.com/dhollis/twinrag/internal/retriever"
	"github.com/dhollis/twinrag/internal/store"
	"github.com/dhollis/twinrag/internal/vectorindex"
	"github.com/dhollis/twinrag/pkg/types"
)

// newTestServer wires a server over an in-memory store, the local vector
// index, and the deterministic local embedder.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	emb, err := embedder.New(embedder.Config{Provider: embedder.ProviderLocal})
	require.NoError(t, err)

	idx := vectorindex.NewLocalIndex(st)
	ctx := context.Background()

	frag := &types.Fragment{
		ID:              "exp-kafka",
		Kind:            types.KindExperience,
		Title:           "Kafka incident response automation",
		Body:            "Led the on-call rotation for the streaming platform.",
		Tags:            []string{"Kafka", "Automation"},
		Importance:      types.ImportanceHigh,
		RelevanceWeight: 0.9,
		DateRange:       "2022-2024",
	}
	require.NoError(t, st.UpsertFragment(ctx, frag))
	vec, err := emb.Embed(ctx, frag.Title+" "+frag.Body)
	require.NoError(t, err)
	require.NoError(t, st.UpsertVector(ctx, frag.ID, vec))

	ret, err := retriever.New(retriever.DefaultConfig(), emb, idx, st)
	require.NoError(t, err)
	fuser, err := fusion.New(fusion.DefaultConfig())
	require.NoError(t, err)
	pipe := pipeline.New(ret, fuser, nil, zap.NewNop())

	return NewServer(Deps{
		Pipeline: pipe,
		Store:    st,
		Index:    idx,
		Embedder: emb,
		Logger:   zap.NewNop(),
	})
}

func callToolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded
}

func TestProfileSearch(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleProfileSearch(context.Background(), callToolRequest(map[string]interface{}{
		"query": "Kafka incident response",
		"top_k": float64(3),
	}))
	require.NoError(t, err)

	decoded := resultText(t, result)
	fragments, ok := decoded["fragments"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, fragments)

	first := fragments[0].(map[string]interface{})
	assert.Equal(t, "exp-kafka", first["id"])
	assert.Equal(t, "experience", first["kind"])
	assert.Greater(t, first["fused_score"].(float64), 0.0)
	assert.Equal(t, false, decoded["degraded"])
}

func TestProfileSearchValidation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantCode int
	}{
		{"missing query", map[string]interface{}{}, ErrorCodeEmptyQuery},
		{"empty query", map[string]interface{}{"query": ""}, ErrorCodeEmptyQuery},
		{"punctuation only query", map[string]interface{}{"query": "?!..."}, ErrorCodeEmptyQuery},
		{"top_k too large", map[string]interface{}{"query": "go", "top_k": float64(500)}, ErrorCodeInvalidParams},
		{"top_k below one", map[string]interface{}{"query": "go", "top_k": float64(0)}, ErrorCodeInvalidParams},
		{"min_similarity out of range", map[string]interface{}{"query": "go", "min_similarity": 1.5}, ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleProfileSearch(ctx, callToolRequest(tt.args))
			require.Error(t, err)
			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.wantCode, mcpErr.Code)
		})
	}
}

// downIndex refuses Info calls while the rest of the interface delegates.
type downIndex struct {
	vectorindex.Index
}

func (d *downIndex) Info(ctx context.Context) (*vectorindex.Info, error) {
	return nil, errors.New("index unreachable")
}

func TestEngineStatusIndexDown(t *testing.T) {
	s := newTestServer(t)
	s.index = &downIndex{Index: s.index}

	result, err := s.handleEngineStatus(context.Background(), callToolRequest(map[string]interface{}{}))
	require.NoError(t, err, "a down index is reported, not an error")

	decoded := resultText(t, result)
	stats := decoded["statistics"].(map[string]interface{})
	assert.Equal(t, float64(0), stats["vectors_count"])
	assert.Equal(t, float64(0), stats["dimension"])

	health := decoded["health"].(map[string]interface{})
	assert.Equal(t, false, health["vector_index_up"])
	assert.Equal(t, true, health["store_accessible"])
}

func TestEngineStatus(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleEngineStatus(context.Background(), callToolRequest(map[string]interface{}{}))
	require.NoError(t, err)

	decoded := resultText(t, result)
	stats := decoded["statistics"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["fragments_count"])
	assert.Equal(t, float64(1), stats["vectors_count"])

	embInfo := decoded["embedder"].(map[string]interface{})
	assert.Equal(t, embedder.ProviderLocal, embInfo["provider"])

	health := decoded["health"].(map[string]interface{})
	assert.Equal(t, true, health["store_accessible"])
	assert.Equal(t, true, health["vector_index_up"])
}
