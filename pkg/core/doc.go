// Package core defines the shared language of the mercury system.
//
// This package contains:
//   - Captured query records (Query)
//   - Severity levels for detected query patterns
//   - History entities and the Store interface (Run, PatternStat)
//
// pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
