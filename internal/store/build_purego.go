//go:build !twinrag_cgo
// +build !twinrag_cgo

package store

// Compiled by default: pure Go SQLite, no C toolchain required.
//
//	CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver to open.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
