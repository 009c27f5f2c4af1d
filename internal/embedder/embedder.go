package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
	ErrUnknownProvider   = errors.New("unknown embedding provider")
)

// Embedder turns text into a fixed-dimensionality vector. Implementations
// must be deterministic for identical input so that repeated queries rank
// identically against an unchanged index.
type Embedder interface {
	// Embed generates the embedding for one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// Used by the ingestion path, never by query retrieval.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimension for this provider.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Close releases any resources held by the embedder.
	Close() error
}

// Cache provides in-memory LRU caching of embeddings by content hash.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates a new embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 4096
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		// Only reachable with a non-positive size, which we just corrected
		cache, _ = lru.New[string, []float32](4096)
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached vector. A copy is returned so caller
// mutations cannot pollute the cache.
func (c *Cache) Get(hash string) ([]float32, bool) {
	v, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a vector with automatic LRU eviction.
func (c *Cache) Set(hash string, vector []float32) {
	c.cache.Add(hash, vector)
}

// Size returns the current cache size.
func (c *Cache) Size() int {
	return c.cache.Len()
}

// ComputeHash computes the SHA-256 hash of text for cache keying.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// validateText rejects empty inputs before any provider call.
func validateText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	return nil
}

// validateBatch rejects empty or partially empty batches.
func validateBatch(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity).
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}
	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}
