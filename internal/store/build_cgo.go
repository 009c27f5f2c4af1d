//go:build twinrag_cgo
// +build twinrag_cgo

package store

// Compiled with the twinrag_cgo tag: uses the C SQLite driver, which is
// noticeably faster for the vector scans on larger fragment corpora.
//
//	CGO_ENABLED=1 go build -tags twinrag_cgo ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver to open.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
