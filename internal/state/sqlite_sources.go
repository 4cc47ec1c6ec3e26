package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// RecordSourceRun stores the outcome of one source within a run. Recording
// the same source twice for a run replaces the earlier row.
func (s *SQLiteStore) RecordSourceRun(sr *core.SourceRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if sr.RunID == "" || sr.Source == "" {
		return fmt.Errorf("source run requires run id and source")
	}
	if sr.ID == "" {
		sr.ID = generateID()
	}

	counts := sr.ErrorCounts
	if counts == nil {
		counts = map[core.ErrorKind]int{}
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to encode error counts: %w", err)
	}

	var errValue sql.NullString
	if sr.Error != "" {
		errValue = sql.NullString{String: sr.Error, Valid: true}
	}

	s.logger.Debug("recording source run",
		slog.String("run_id", sr.RunID),
		slog.String("source", sr.Source),
		slog.String("status", string(sr.Status)))

	_, err = s.db.ExecContext(ctx(), `
		INSERT INTO source_runs (
			id, run_id, source, position, status, total, valid, quarantined,
			deduplicated, orphaned, nullified, error_counts, error, execution_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, source) DO UPDATE SET
			position = excluded.position,
			status = excluded.status,
			total = excluded.total,
			valid = excluded.valid,
			quarantined = excluded.quarantined,
			deduplicated = excluded.deduplicated,
			orphaned = excluded.orphaned,
			nullified = excluded.nullified,
			error_counts = excluded.error_counts,
			error = excluded.error,
			execution_ms = excluded.execution_ms`,
		sr.ID, sr.RunID, sr.Source, sr.Position, string(sr.Status), sr.Total, sr.Valid, sr.Quarantined,
		sr.Deduplicated, sr.Orphaned, sr.Nullified, string(countsJSON), errValue, sr.ExecutionMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record source run %s: %w", sr.Source, err)
	}
	return nil
}

// GetSourceRunsForRun returns the source outcomes of a run in processing order.
func (s *SQLiteStore) GetSourceRunsForRun(runID string) ([]*core.SourceRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx(), `
		SELECT id, run_id, source, position, status, total, valid, quarantined,
			deduplicated, orphaned, nullified, error_counts, error, execution_ms
		FROM source_runs WHERE run_id = ? ORDER BY position, source`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get source runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.SourceRun
	for rows.Next() {
		var (
			sr     core.SourceRun
			status string
			counts string
			errMsg sql.NullString
		)
		if err := rows.Scan(&sr.ID, &sr.RunID, &sr.Source, &sr.Position, &status, &sr.Total, &sr.Valid,
			&sr.Quarantined, &sr.Deduplicated, &sr.Orphaned, &sr.Nullified, &counts, &errMsg, &sr.ExecutionMS); err != nil {
			return nil, fmt.Errorf("failed to scan source run: %w", err)
		}
		sr.Status = core.SourceRunStatus(status)
		sr.Error = errMsg.String
		if err := json.Unmarshal([]byte(counts), &sr.ErrorCounts); err != nil {
			return nil, fmt.Errorf("failed to decode error counts of %s: %w", sr.Source, err)
		}
		out = append(out, &sr)
	}
	return out, rows.Err()
}
