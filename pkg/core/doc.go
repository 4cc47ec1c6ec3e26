// Package core defines the shared language of the silverline pipeline.
//
// This package contains:
//   - Domain entities (Record, SourceDefinition, FieldRule, QuarantineEntry)
//   - Validation vocabulary (ErrorKind, ValidationError, Action, PolicyTable)
//   - Run-state entities and the Store interface
//   - Typed errors for run-fatal and per-source failures
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
