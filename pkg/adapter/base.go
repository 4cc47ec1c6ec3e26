package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Query and table replacement implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	_, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*core.Rows, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ReplaceTable drops and recreates the table, then inserts all records in
// batches inside a single transaction.
func (b *BaseSQLAdapter) ReplaceTable(ctx context.Context, d *Dialect, table core.TableSpec, records []*core.Record) (int64, error) {
	if b.DB == nil {
		return 0, fmt.Errorf("database connection not established")
	}
	if len(table.Columns) == 0 {
		return 0, fmt.Errorf("table %s has no columns", table.Name)
	}

	name := d.QualifiedName(b.Cfg.Schema, table.Name)

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if b.Cfg.Schema != "" && b.Cfg.Schema != d.DefaultSchema {
		if _, err := tx.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+d.QuoteIdent(b.Cfg.Schema)); err != nil {
			return 0, fmt.Errorf("failed to create schema %s: %w", b.Cfg.Schema, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return 0, fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, CreateTableSQL(d, name, table.Columns)); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", name, err)
	}

	var written int64
	batch := d.batchSize()
	for start := 0; start < len(records); start += batch {
		end := start + batch
		if end > len(records) {
			end = len(records)
		}
		stmt, args := InsertSQL(d, name, table.Columns, records[start:end])
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return written, fmt.Errorf("failed to insert into %s: %w", name, err)
		}
		written += int64(end - start)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", name, err)
	}
	committed = true

	if b.Logger != nil {
		b.Logger.Debug("table replaced", slog.String("table", name), slog.Int64("rows", written))
	}
	return written, nil
}

// CreateTableSQL builds the CREATE TABLE statement for a Silver table.
func CreateTableSQL(d *Dialect, qualifiedName string, columns []core.Column) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		def := d.QuoteIdent(c.Name) + " " + d.ColumnType(c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", qualifiedName, strings.Join(defs, ", "))
}

// InsertSQL builds a multi-row INSERT statement and its arguments.
// Fields missing from a record are inserted as NULL.
func InsertSQL(d *Dialect, qualifiedName string, columns []core.Column, records []*core.Record) (string, []any) {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = d.QuoteIdent(c.Name)
	}

	args := make([]any, 0, len(columns)*len(records))
	tuples := make([]string, len(records))
	n := 0
	for r, rec := range records {
		ph := make([]string, len(columns))
		for i, c := range columns {
			n++
			ph[i] = d.Placeholder(n)
			args = append(args, rec.Value(c.Name))
		}
		tuples[r] = "(" + strings.Join(ph, ", ") + ")"
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		qualifiedName, strings.Join(names, ", "), strings.Join(tuples, ", "))
	return stmt, args
}
