// Package state records pipeline run history in SQLite.
// It tracks runs, per-source outcomes and the quality report of each run.
package state

import (
	"github.com/leapstack-labs/silverline/pkg/core"
)

// Type aliases so callers can stay within this package.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// Run is an alias for core.Run.
	Run = core.Run

	// SourceRun is an alias for core.SourceRun.
	SourceRun = core.SourceRun
)

var _ core.Store = (*SQLiteStore)(nil)
