// Package engine runs the Silver pipeline.
// It resolves the processing order of sources, moves each source through
// load, clean, dedup, referential integrity and validation, and writes the
// resulting Silver datasets, quarantine files and quality report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/silverline/internal/artifact"
	"github.com/leapstack-labs/silverline/internal/cleaner"
	"github.com/leapstack-labs/silverline/internal/registry"
	"github.com/leapstack-labs/silverline/internal/silver"
	"github.com/leapstack-labs/silverline/internal/state"
	"github.com/leapstack-labs/silverline/internal/validator"
	"github.com/leapstack-labs/silverline/pkg/adapter"
	"github.com/leapstack-labs/silverline/pkg/core"
)

// Default worker pool settings.
const (
	DefaultWorkers   = 4
	DefaultChunkSize = 500
)

// checkTime stands in for the reference time when rule names are checked
// before any run.
var checkTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Loader reads the raw records of a source.
type Loader interface {
	Load(ctx context.Context, source string) ([]*core.Record, error)
}

// Explosion derives a dataset from a JSON array field of a validated source,
// such as invoice line items held in an invoice column.
type Explosion struct {
	// Source is the parent source name.
	Source string
	// Field holds the JSON array text.
	Field string
	// ParentKey is the parent field copied into every item. Defaults to the
	// parent's primary key.
	ParentKey string
	// Target describes the derived dataset. Its rules validate every item.
	Target *core.SourceDefinition
}

// Config holds engine configuration.
type Config struct {
	// Sources are the source definitions in declaration order.
	Sources []*core.SourceDefinition
	// Loader reads raw records. Required.
	Loader Loader
	// CleanRules are the named cleaning rules referenced by field rules.
	CleanRules []cleaner.Rule
	// Policies maps validation failures to actions. Nil rejects everything.
	Policies *core.PolicyTable
	// CustomRules adds named custom validation rules.
	CustomRules map[string]validator.CustomRule
	// Explosions derive extra datasets from validated sources.
	Explosions []Explosion

	// Artifacts receives Silver, quarantine and report files (optional).
	Artifacts artifact.Store
	// SilverFormat is the Silver file format, csv by default.
	SilverFormat silver.Format
	// Warehouse, when set, receives every Silver dataset as a table.
	Warehouse *adapter.Config
	// StatePath is the SQLite run history database (optional).
	StatePath string

	// Workers bounds the goroutines cleaning and validating one source.
	Workers int
	// ChunkSize is the number of records handled by one worker task.
	ChunkSize int
	// MaxQuarantineRate is the per-source breach threshold; zero disables it.
	MaxQuarantineRate float64

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine orchestrates pipeline runs. A run processes sources one at a time;
// concurrent calls to Run are serialized.
type Engine struct {
	logger *slog.Logger

	registry    *registry.SourceRegistry
	loader      Loader
	cleanRules  []cleaner.Rule
	policies    *core.PolicyTable
	custom      map[string]validator.CustomRule
	explosions  map[string]Explosion
	artifacts   artifact.Store
	silver      *silver.Writer
	store       state.Store
	workers     int
	chunkSize   int
	maxQuarRate float64

	// Warehouse adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    *adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	runMu sync.Mutex
}

// New validates the configuration and creates an engine. Configuration
// problems are reported together.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Loader == nil {
		return nil, errors.New("engine: loader is required")
	}

	reg, err := registry.New(cfg.Sources)
	if err != nil {
		return nil, err
	}

	var errs []error

	derived := make([]*core.SourceDefinition, 0, len(cfg.Explosions))
	explosions := make(map[string]Explosion, len(cfg.Explosions))
	for _, x := range cfg.Explosions {
		if err := checkExplosion(reg, x); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := explosions[x.Source]; dup {
			errs = append(errs, fmt.Errorf("source %s: more than one explosion", x.Source))
			continue
		}
		if x.ParentKey == "" {
			parent, _ := reg.Get(x.Source)
			x.ParentKey = parent.PrimaryKey
		}
		explosions[x.Source] = x
		derived = append(derived, x.Target)
	}

	all := append(reg.All(), derived...)

	// rule names do not depend on the reference time, so check them once here
	cl, err := cleaner.New(cleaner.Config{Rules: cfg.CleanRules})
	if err != nil {
		errs = append(errs, err)
	} else if err := cl.Check(all); err != nil {
		errs = append(errs, err)
	}

	v, err := validator.New(validator.Config{Policies: cfg.Policies, ReferenceTime: checkTime, Custom: cfg.CustomRules})
	if err != nil {
		errs = append(errs, err)
	} else if err := v.Check(all); err != nil {
		errs = append(errs, err)
	}

	format := cfg.SilverFormat
	if format == "" {
		format = silver.FormatCSV
	}
	var writer *silver.Writer
	if cfg.Artifacts != nil {
		writer, err = silver.NewWriter(cfg.Artifacts, format)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	e := &Engine{
		logger:      logger,
		registry:    reg,
		loader:      cfg.Loader,
		cleanRules:  cfg.CleanRules,
		policies:    cfg.Policies,
		custom:      cfg.CustomRules,
		explosions:  explosions,
		artifacts:   cfg.Artifacts,
		silver:      writer,
		workers:     workers,
		chunkSize:   chunkSize,
		maxQuarRate: cfg.MaxQuarantineRate,
		dbConfig:    cfg.Warehouse,
	}

	if cfg.StatePath != "" {
		store := state.NewSQLiteStore(logger)
		if err := store.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := store.InitSchema(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize state schema: %w", err)
		}
		e.store = store
	}

	logger.Debug("engine initialized",
		"sources", reg.Count(),
		"explosions", len(explosions),
		"workers", workers,
		"chunk_size", chunkSize)

	return e, nil
}

func checkExplosion(reg *registry.SourceRegistry, x Explosion) error {
	parent, ok := reg.Get(x.Source)
	if !ok {
		return fmt.Errorf("explosion of unknown source %s", x.Source)
	}
	if x.Field == "" {
		return fmt.Errorf("source %s: explosion field is required", x.Source)
	}
	if x.Target == nil || x.Target.Name == "" {
		return fmt.Errorf("source %s: explosion target is required", x.Source)
	}
	if _, clash := reg.Get(x.Target.Name); clash {
		return fmt.Errorf("source %s: explosion target %s is already a source", x.Source, x.Target.Name)
	}
	if x.ParentKey == "" && parent.PrimaryKey == "" {
		return fmt.Errorf("source %s: explosion needs a parent key", x.Source)
	}
	for _, ref := range x.Target.References() {
		if _, ok := reg.Get(ref); !ok {
			return fmt.Errorf("explosion target %s references unknown source %s", x.Target.Name, ref)
		}
	}
	return nil
}

// Registry returns the source registry.
func (e *Engine) Registry() *registry.SourceRegistry {
	return e.registry
}

// StateStore returns the run history store, or nil when none is configured.
func (e *Engine) StateStore() state.Store {
	return e.store
}

// ensureDBConnected lazily connects to the warehouse.
func (e *Engine) ensureDBConnected(ctx context.Context) (adapter.Adapter, error) {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return e.db, nil
	}

	e.logger.Debug("connecting to warehouse", "adapter_type", e.dbConfig.Type)

	db, err := adapter.Open(ctx, *e.dbConfig, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}

	e.db = db
	e.dbConnected = true
	return db, nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
