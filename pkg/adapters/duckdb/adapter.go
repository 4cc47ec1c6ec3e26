package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/silverline/pkg/adapter"
	"github.com/leapstack-labs/silverline/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

var duckDialect = &adapter.Dialect{
	Name:          "duckdb",
	DefaultSchema: "main",
	Types: map[core.FieldType]string{
		core.FieldString:   "VARCHAR",
		core.FieldInteger:  "BIGINT",
		core.FieldFloat:    "DOUBLE",
		core.FieldBoolean:  "BOOLEAN",
		core.FieldDate:     "DATE",
		core.FieldDatetime: "TIMESTAMP",
	},
	BatchSize: 500,
}

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	params *Params
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return duckDialect
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" or an empty path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return fmt.Errorf("invalid duckdb params: %w", err)
	}

	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	a.params = params

	if err := a.applyParams(ctx); err != nil {
		_ = db.Close()
		a.DB = nil
		return err
	}
	return nil
}

// applyParams loads extensions and session settings.
func (a *Adapter) applyParams(ctx context.Context) error {
	for _, ext := range a.params.Extensions {
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	for _, key := range a.params.SortedSettingKeys() {
		value := strings.ReplaceAll(a.params.Settings[key], "'", "''")
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = '%s'", key, value)); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}
	return nil
}

// LoadRecords replaces the table with the given Silver records.
func (a *Adapter) LoadRecords(ctx context.Context, table core.TableSpec, records []*core.Record) (int64, error) {
	return a.ReplaceTable(ctx, duckDialect, table, records)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
