package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/silverline/internal/state"
)

var errNoHistory = errors.New("no run history found\nHint: run 'silverline run' first")

// openStateStore opens the run history without creating it.
func openStateStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	if path == "" {
		return nil, errNoHistory
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errNoHistory
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}
	return store, nil
}
