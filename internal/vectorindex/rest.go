package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dhollis/twinrag/pkg/types"
)

const (
	restMaxRetries        = 3
	restInitialBackoff    = 100 * time.Millisecond
	restMaxBackoff        = 2 * time.Second
	restBackoffMultiplier = 2.0
)

// RESTIndex talks to a hosted vector index over HTTP using the Upstash
// Vector wire format: POST /upsert, /query, /info with a bearer token.
type RESTIndex struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRESTIndex creates a client for a hosted index.
func NewRESTIndex(baseURL, token string) (*RESTIndex, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("vector index URL is required")
	}
	if token == "" {
		return nil, fmt.Errorf("vector index token is required")
	}
	return &RESTIndex{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

type upsertPayload struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	Metadata Metadata  `json:"metadata"`
}

// Upsert stores a vector with its filterable metadata.
func (r *RESTIndex) Upsert(ctx context.Context, id string, vector []float32, meta Metadata) error {
	if id == "" {
		return fmt.Errorf("fragment ID is required")
	}
	body := []upsertPayload{{ID: id, Vector: vector, Metadata: meta}}
	return r.call(ctx, "/upsert", body, nil)
}

type queryPayload struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	Filter          string    `json:"filter,omitempty"`
}

type queryResponse struct {
	Result []struct {
		ID    string  `json:"id"`
		Score float64 `json:"score"`
	} `json:"result"`
}

// Query returns the nearest neighbors, filtered by kind when set. The
// hosted API has no score threshold parameter, so minScore is applied
// client-side.
func (r *RESTIndex) Query(ctx context.Context, vector []float32, topK int, kind types.Kind, minScore float64) ([]Hit, error) {
	payload := queryPayload{Vector: vector, TopK: topK, IncludeMetadata: false}
	if kind != "" {
		payload.Filter = fmt.Sprintf("kind = '%s'", kind)
	}

	var resp queryResponse
	if err := r.call(ctx, "/query", payload, &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, item := range resp.Result {
		if item.Score < minScore {
			continue
		}
		hits = append(hits, Hit{FragmentID: item.ID, Score: item.Score})
	}
	return hits, nil
}

type infoResponse struct {
	Result struct {
		VectorCount int `json:"vectorCount"`
		Dimension   int `json:"dimension"`
	} `json:"result"`
}

// Info reports index statistics.
func (r *RESTIndex) Info(ctx context.Context) (*Info, error) {
	var resp infoResponse
	if err := r.call(ctx, "/info", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &Info{VectorCount: resp.Result.VectorCount, Dimension: resp.Result.Dimension}, nil
}

// Close releases idle connections.
func (r *RESTIndex) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}

// call POSTs a JSON payload with retry and exponential backoff, decoding
// the response into out when non-nil.
func (r *RESTIndex) call(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	backoff := restInitialBackoff
	var lastErr error
	for attempt := 0; attempt < restMaxRetries; attempt++ {
		lastErr = r.doOnce(ctx, path, body, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < restMaxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * restBackoffMultiplier)
				if backoff > restMaxBackoff {
					backoff = restMaxBackoff
				}
			}
		}
	}
	return fmt.Errorf("vector index call %s failed after %d attempts: %w", path, restMaxRetries, lastErr)
}

func (r *RESTIndex) doOnce(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
