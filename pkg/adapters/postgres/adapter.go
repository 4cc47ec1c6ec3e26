package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/leapstack-labs/silverline/pkg/adapter"
	"github.com/leapstack-labs/silverline/pkg/core"
)

var pgDialect = &adapter.Dialect{
	Name:          "postgres",
	DefaultSchema: "public",
	Types: map[core.FieldType]string{
		core.FieldString:   "TEXT",
		core.FieldInteger:  "BIGINT",
		core.FieldFloat:    "DOUBLE PRECISION",
		core.FieldBoolean:  "BOOLEAN",
		core.FieldDate:     "DATE",
		core.FieldDatetime: "TIMESTAMPTZ",
	},
	NumberedPlaceholders: true,
	// Postgres caps bind parameters at 65535 per statement.
	BatchSize: 200,
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return pgDialect.Name
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return pgDialect
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// LoadRecords replaces the table with the given Silver records.
func (a *Adapter) LoadRecords(ctx context.Context, table core.TableSpec, records []*core.Record) (int64, error) {
	return a.ReplaceTable(ctx, pgDialect, table, records)
}

// buildPostgresDSN constructs a key=value PostgreSQL connection string.
// Extra options other than sslmode are appended in sorted order.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	parts := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("dbname=%s", cfg.Database),
		fmt.Sprintf("sslmode=%s", sslmode),
	}
	if cfg.Username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}

	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, cfg.Options[k]))
	}

	return strings.Join(parts, " ")
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
