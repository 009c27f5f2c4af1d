// Package embedder generates vector embeddings for query text and
// fragment content.
//
// Three providers are supported: OpenAI (via the go-openai client),
// Mixedbread (raw HTTP, the model family the original profile corpus
// was embedded with), and a deterministic local provider for tests and
// offline operation. Provider selection happens once at startup via
// NewFromEnv or New; the retrieval pipeline only sees the Embedder
// interface.
//
// API-backed providers retry with exponential backoff and cache results
// in an LRU keyed by the SHA-256 of the input text, so repeated queries
// skip the network entirely. Embeddings are deterministic for identical
// input, which keeps retrieval idempotent.
package embedder
