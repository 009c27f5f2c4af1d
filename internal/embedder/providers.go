package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Provider configuration
const (
	ProviderOpenAI     = "openai"
	ProviderMixedbread = "mixedbread"
	ProviderLocal      = "local"

	// Default models
	DefaultOpenAIModel     = "text-embedding-3-small"
	DefaultMixedbreadModel = "mxbai-embed-large-v1"

	// Dimensions
	OpenAIDimension     = 1536
	MixedbreadDimension = 1024
	LocalDimension      = 384

	// Batch limits
	MaxBatchSize = 100

	// Environment variables
	EnvProvider      = "TWINRAG_EMBEDDING_PROVIDER"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvMixedbreadKey = "MXBAI_API_KEY"

	mixedbreadEndpoint = "https://api.mixedbread.com/v1/embeddings"

	// Retry configuration
	maxRetries        = 3
	initialBackoffMs  = 100
	maxBackoffMs      = 5000
	backoffMultiplier = 2.0
)

// OpenAIEmbedder implements Embedder against the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	cache  *Cache
}

// NewOpenAIEmbedder creates an OpenAI-backed embedder.
func NewOpenAIEmbedder(apiKey string, cache *Cache) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIKey)
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  DefaultOpenAIModel,
		cache:  cache,
	}, nil
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	hash := ComputeHash(text)
	if o.cache != nil {
		if v, ok := o.cache.Get(hash); ok {
			return v, nil
		}
	}

	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}
	return vectors[0], nil
}

func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	config := DefaultRetryConfig()
	vectors, err := retryWithBackoff(ctx, config, func() ([][]float32, error) {
		resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(o.model),
			Input: texts,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
		}
		out := make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			out[i] = d.Embedding
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, config.MaxRetries, err)
	}

	if o.cache != nil {
		for i, v := range vectors {
			o.cache.Set(ComputeHash(texts[i]), v)
		}
	}
	return vectors, nil
}

func (o *OpenAIEmbedder) Dimension() int {
	return OpenAIDimension
}

func (o *OpenAIEmbedder) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIEmbedder) Close() error {
	return nil
}

// MixedbreadEmbedder implements Embedder against the Mixedbread API,
// the model family the original profile corpus was embedded with.
type MixedbreadEmbedder struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	cache      *Cache
}

// NewMixedbreadEmbedder creates a Mixedbread-backed embedder.
func NewMixedbreadEmbedder(apiKey string, cache *Cache) (*MixedbreadEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvMixedbreadKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvMixedbreadKey)
	}

	return &MixedbreadEmbedder{
		apiKey:   apiKey,
		model:    DefaultMixedbreadModel,
		endpoint: mixedbreadEndpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}, nil
}

func (m *MixedbreadEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	hash := ComputeHash(text)
	if m.cache != nil {
		if v, ok := m.cache.Get(hash); ok {
			return v, nil
		}
	}

	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}
	return vectors[0], nil
}

func (m *MixedbreadEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	config := DefaultRetryConfig()
	vectors, err := retryWithBackoff(ctx, config, func() ([][]float32, error) {
		return m.callAPI(ctx, texts)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, config.MaxRetries, err)
	}

	if m.cache != nil {
		for i, v := range vectors {
			m.cache.Set(ComputeHash(texts[i]), v)
		}
	}
	return vectors, nil
}

func (m *MixedbreadEmbedder) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": m.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(apiResp.Data))
	}

	vectors := make([][]float32, len(apiResp.Data))
	for i, d := range apiResp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (m *MixedbreadEmbedder) Dimension() int {
	return MixedbreadDimension
}

func (m *MixedbreadEmbedder) Provider() string {
	return ProviderMixedbread
}

func (m *MixedbreadEmbedder) Close() error {
	m.httpClient.CloseIdleConnections()
	return nil
}

// LocalEmbedder produces deterministic hash-derived vectors. It carries
// no semantic signal and exists for tests and for running the engine
// offline, where relational ranking does the heavy lifting.
type LocalEmbedder struct {
	cache *Cache
}

// NewLocalEmbedder creates a local deterministic embedder.
func NewLocalEmbedder(cache *Cache) (*LocalEmbedder, error) {
	return &LocalEmbedder{cache: cache}, nil
}

func (l *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	hash := ComputeHash(text)
	if l.cache != nil {
		if v, ok := l.cache.Get(hash); ok {
			return v, nil
		}
	}

	vector := make([]float32, LocalDimension)
	textHash := sha256.Sum256([]byte(text))
	for i := 0; i < LocalDimension && i < len(textHash); i++ {
		vector[i] = float32(textHash[i]) / 255.0
	}
	vector = NormalizeVector(vector)

	if l.cache != nil {
		l.cache.Set(hash, vector)
	}
	return vector, nil
}

func (l *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := l.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (l *LocalEmbedder) Dimension() int {
	return LocalDimension
}

func (l *LocalEmbedder) Provider() string {
	return ProviderLocal
}

func (l *LocalEmbedder) Close() error {
	return nil
}
