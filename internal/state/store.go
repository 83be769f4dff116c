// Package state persists analysis history in SQLite.
// It records every analyzed block and the repeated query patterns found in
// it, so trends can be queried across runs.
package state

import (
	"errors"

	"github.com/leapstack-labs/mercury/pkg/core"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRun is returned when an ID prefix matches more than one run.
var ErrAmbiguousRun = errors.New("run id prefix is ambiguous")

var errNotOpened = errors.New("database not opened")

var _ core.Store = (*SQLiteStore)(nil)
