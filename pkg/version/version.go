//-------------------------------------------------------------------------
//
// pgEdge Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package version provides build and version information for pgedge-warehouse.
package version

import (
	"fmt"
	"runtime"
)

// Build information set at compile time via ldflags.
var (
	Version   = "1.0.0-beta1"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Schema is the warehouse schema revision this build creates and loads.
// Bump it whenever the DDL changes shape.
const Schema = "1"

// Info returns formatted version information.
func Info() string {
	return fmt.Sprintf(
		"pgedge-warehouse %s, schema v%s (commit: %s, built: %s, go: %s)",
		Version, Schema, Commit, BuildDate, runtime.Version(),
	)
}

// Short returns just the version string.
func Short() string {
	return Version
}
