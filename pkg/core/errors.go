package core

import (
	"fmt"
	"strings"
)

// CyclicDependencyError is returned when source foreign keys form a cycle.
// It aborts a run before any source is processed.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic source dependency: %s", strings.Join(e.Cycle, " -> "))
}

// SourceLoadError is returned when a source's input cannot be read.
// It affects only that source (and sources that depend on it).
type SourceLoadError struct {
	Source string
	Err    error
}

func (e *SourceLoadError) Error() string {
	return fmt.Sprintf("failed to load source %s: %v", e.Source, e.Err)
}

func (e *SourceLoadError) Unwrap() error {
	return e.Err
}
