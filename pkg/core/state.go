package core

import "time"

// Store defines the interface for run-state persistence.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(referenceTime time.Time) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetLatestRun() (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Source run operations
	RecordSourceRun(sourceRun *SourceRun) error
	GetSourceRunsForRun(runID string) ([]*SourceRun, error)

	// Report operations
	SaveReport(runID string, report []byte) error
	GetReport(runID string) ([]byte, error)
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one pipeline execution.
type Run struct {
	ID            string
	Status        RunStatus
	ReferenceTime time.Time
	StartedAt     time.Time
	CompletedAt   *time.Time
	Error         string
}

// SourceRunStatus represents the outcome of one source within a run.
type SourceRunStatus string

// Source run status constants.
const (
	SourceRunStatusSuccess SourceRunStatus = "success"
	SourceRunStatusFailed  SourceRunStatus = "failed"
	SourceRunStatusSkipped SourceRunStatus = "skipped"
)

// SourceRun records the statistics of one source within a run.
type SourceRun struct {
	ID           string
	RunID        string
	Source       string
	Position     int
	Status       SourceRunStatus
	Total        int
	Valid        int
	Quarantined  int
	Deduplicated int
	Orphaned     int
	Nullified    int
	ErrorCounts  map[ErrorKind]int
	Error        string
	ExecutionMS  int64
}
