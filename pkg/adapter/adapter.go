// Package adapter provides the warehouse adapter contract used to publish
// Silver datasets into a SQL database.
//
// This package contains the public contract that all adapters must implement.
// Concrete implementations are in pkg/adapters/ subdirectories and register
// themselves from init().
package adapter

import (
	"context"

	"github.com/leapstack-labs/silverline/pkg/core"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Adapter defines the interface that all warehouse adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// LoadRecords replaces the table with the given records and returns the
	// number of rows written.
	LoadRecords(ctx context.Context, table core.TableSpec, records []*core.Record) (int64, error)

	// Dialect returns the SQL dialect used to build statements.
	Dialect() *Dialect
}
