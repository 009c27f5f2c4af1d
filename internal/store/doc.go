// Package store is the fragment store adapter: SQLite-backed access to
// profile fragments, their local embeddings, and the append-only session
// log.
//
// The store owns no retrieval logic. It answers three kinds of question
// for the pipeline: hydrate these IDs (GetByIDs), find fragments matching
// these keywords (SearchByKeywords), and rank local vectors against this
// query vector (SearchVectors, used by the local vector index when no
// hosted index is configured).
//
// # Build Modes
//
// Two SQLite drivers are supported via build tags:
//
//	go build ./...                      # modernc.org/sqlite, pure Go
//	go build -tags twinrag_cgo ./...    # mattn/go-sqlite3, needs CGO
//
// The schema is migrated on open; see migrations.go. The database runs
// in WAL mode with a single writer connection.
package store
