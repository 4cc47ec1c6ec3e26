package state

import (
	"database/sql"
	"errors"
	"fmt"
)

// SaveReport stores the JSON quality report of a run, replacing any earlier one.
func (s *SQLiteStore) SaveReport(runID string, report []byte) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx(), `
		INSERT INTO reports (run_id, body, created_at) VALUES (?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET body = excluded.body, created_at = excluded.created_at`,
		runID, string(report), formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport returns the stored report of a run.
func (s *SQLiteStore) GetReport(runID string) ([]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var body string
	err := s.db.QueryRowContext(ctx(), `SELECT body FROM reports WHERE run_id = ?`, runID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no report stored for run %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return []byte(body), nil
}
