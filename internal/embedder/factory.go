package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration.
type Config struct {
	Provider  string
	APIKey    string
	CacheSize int
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. TWINRAG_EMBEDDING_PROVIDER (openai, mixedbread, local)
//  2. Check for API keys: MXBAI_API_KEY, OPENAI_API_KEY
//  3. Default to local if no API keys found
func NewFromEnv() (Embedder, error) {
	provider := os.Getenv(EnvProvider)
	mxbaiKey := os.Getenv(EnvMixedbreadKey)
	openaiKey := os.Getenv(EnvOpenAIKey)

	cache := NewCache(4096)

	if provider != "" {
		provider = strings.ToLower(provider)
		switch provider {
		case ProviderMixedbread:
			return NewMixedbreadEmbedder(mxbaiKey, cache)
		case ProviderOpenAI:
			return NewOpenAIEmbedder(openaiKey, cache)
		case ProviderLocal:
			return NewLocalEmbedder(cache)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
		}
	}

	// Auto-detect based on available API keys. Mixedbread wins because
	// the shipped corpus was embedded with its model family.
	if mxbaiKey != "" {
		return NewMixedbreadEmbedder(mxbaiKey, cache)
	}
	if openaiKey != "" {
		return NewOpenAIEmbedder(openaiKey, cache)
	}

	return NewLocalEmbedder(cache)
}

// New creates an embedder with explicit configuration.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderMixedbread:
		return NewMixedbreadEmbedder(cfg.APIKey, cache)
	case ProviderOpenAI:
		return NewOpenAIEmbedder(cfg.APIKey, cache)
	case ProviderLocal:
		return NewLocalEmbedder(cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// DetectProvider returns the provider that NewFromEnv would pick.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvMixedbreadKey) != "" {
		return ProviderMixedbread
	}
	if os.Getenv(EnvOpenAIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
