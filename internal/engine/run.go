package engine

// run.go - Run orchestration across sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/silverline/internal/cleaner"
	"github.com/leapstack-labs/silverline/internal/keys"
	"github.com/leapstack-labs/silverline/internal/quality"
	"github.com/leapstack-labs/silverline/internal/registry"
	"github.com/leapstack-labs/silverline/internal/validator"
	"github.com/leapstack-labs/silverline/pkg/core"
)

// Report artifact names.
const (
	ReportJSONName     = "quality_report.json"
	ReportMarkdownName = "quality_report.md"
)

// RunOptions control one run.
type RunOptions struct {
	// ReferenceTime is "now" for the whole run. Required.
	ReferenceTime time.Time
	// Sources restricts the run to these sources and everything they depend
	// on. Empty runs every source.
	Sources []string
}

// Result is the outcome of a run.
type Result struct {
	// RunID identifies the run in the state store; empty without one.
	RunID string
	// Order is the processing order of the run's sources.
	Order []string
	// Report is the quality report.
	Report *quality.Report
	// Silver holds the valid records per dataset, sorted by row index.
	Silver map[string][]*core.Record
	// Quarantine holds the rejected records per dataset, sorted by row index.
	Quarantine map[string][]core.QuarantineEntry
	// Artifacts lists every artifact written, in write order.
	Artifacts []string
}

// run carries the state of one run.
type run struct {
	id        string
	ref       time.Time
	cleaner   *cleaner.Cleaner
	validator *validator.Validator
	keys      *keys.Registry
	collector *quality.Collector
	failed    map[string]bool
	done      map[string]bool
	result    *Result
}

// ready reports whether every source in refs has been processed.
func (r *run) ready(refs []string) bool {
	for _, ref := range refs {
		if !r.done[ref] {
			return false
		}
	}
	return true
}

// blocked returns why a dataset referencing refs cannot be processed: a
// referenced source failed or has not published its keys.
func (r *run) blocked(refs []string) error {
	view := r.keys.View()
	for _, ref := range refs {
		if r.failed[ref] {
			return fmt.Errorf("upstream source %s failed", ref)
		}
		if !view.Published(ref) {
			return fmt.Errorf("upstream source %s was not processed", ref)
		}
	}
	return nil
}

// selection restricts the registry to the named sources and their upstream.
// Sources referenced by the derived datasets of selected sources are added
// with their own upstream, so derived items never see unpublished keys.
func (e *Engine) selection(names []string) (*registry.SourceRegistry, error) {
	names = append([]string(nil), names...)
	for {
		sub, err := e.registry.Select(names)
		if err != nil {
			return nil, err
		}

		added := false
		for _, def := range sub.All() {
			x, ok := e.explosions[def.Name]
			if !ok {
				continue
			}
			for _, ref := range x.Target.References() {
				if _, in := sub.Get(ref); !in {
					names = append(names, ref)
					added = true
				}
			}
		}
		if !added {
			return sub, nil
		}
	}
}

// Run executes the pipeline. Sources are processed strictly one after the
// other in dependency order. A source that cannot be loaded or written fails
// alone, along with the sources depending on it; the run itself only fails
// on a cyclic dependency, an invalid reference time, cancellation, or when
// the report cannot be written.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if opts.ReferenceTime.IsZero() {
		return nil, errors.New("reference time is required")
	}
	ref := opts.ReferenceTime.UTC()

	reg := e.registry
	if len(opts.Sources) > 0 {
		sub, err := e.selection(opts.Sources)
		if err != nil {
			return nil, err
		}
		reg = sub
	}

	e.logger.Info("starting run", "reference_time", ref.Format(time.RFC3339), "sources", reg.Count())

	r := &run{
		ref:       ref,
		keys:      keys.NewRegistry(),
		collector: quality.NewCollector(),
		failed:    make(map[string]bool),
		done:      make(map[string]bool),
		result: &Result{
			Silver:     make(map[string][]*core.Record),
			Quarantine: make(map[string][]core.QuarantineEntry),
		},
	}

	if e.store != nil {
		stored, err := e.store.CreateRun(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		r.id = stored.ID
		r.result.RunID = stored.ID
		e.logger.Debug("created run", "run_id", r.id)
	}

	order, err := reg.Order()
	if err != nil {
		e.completeRun(r, core.RunStatusFailed, err.Error())
		return nil, err
	}
	for _, def := range order {
		r.result.Order = append(r.result.Order, def.Name)
	}

	r.cleaner, err = cleaner.New(cleaner.Config{Rules: e.cleanRules, ReferenceTime: ref})
	if err != nil {
		e.completeRun(r, core.RunStatusFailed, err.Error())
		return nil, err
	}
	r.validator, err = validator.New(validator.Config{
		Policies:      e.policies,
		ReferenceTime: ref,
		Custom:        e.custom,
		Logger:        e.logger,
	})
	if err != nil {
		e.completeRun(r, core.RunStatusFailed, err.Error())
		return nil, err
	}

	var pending []Explosion
	for _, def := range order {
		if err := ctx.Err(); err != nil {
			e.completeRun(r, core.RunStatusFailed, err.Error())
			return nil, err
		}
		if err := e.runSource(ctx, r, def); err != nil {
			e.completeRun(r, core.RunStatusFailed, err.Error())
			return nil, err
		}
		r.done[def.Name] = true
		if x, ok := e.explosions[def.Name]; ok {
			pending = append(pending, x)
		}

		// a derived dataset waits for every source its items reference
		var waiting []Explosion
		for _, x := range pending {
			if !r.ready(x.Target.References()) {
				waiting = append(waiting, x)
				continue
			}
			if err := e.runExplosion(ctx, r, x); err != nil {
				e.completeRun(r, core.RunStatusFailed, err.Error())
				return nil, err
			}
		}
		pending = waiting
	}
	for _, x := range pending {
		if err := e.runExplosion(ctx, r, x); err != nil {
			e.completeRun(r, core.RunStatusFailed, err.Error())
			return nil, err
		}
	}

	report := r.collector.Report(quality.Options{ReferenceTime: ref, MaxQuarantineRate: e.maxQuarRate})
	r.result.Report = report

	if err := e.writeReport(ctx, r, report); err != nil {
		e.completeRun(r, core.RunStatusFailed, err.Error())
		return r.result, err
	}

	if report.HasFailures() {
		e.completeRun(r, core.RunStatusFailed, "failed sources: "+strings.Join(report.FailedSources, ", "))
	} else {
		e.completeRun(r, core.RunStatusCompleted, "")
	}

	e.logger.Info("run completed",
		"run_id", r.id,
		"total", report.Totals.Total,
		"valid", report.Totals.Valid,
		"quarantined", report.Totals.Quarantined,
		"failed_sources", len(report.FailedSources))

	return r.result, nil
}

// runSource moves one source through the pipeline. Only run-fatal problems
// are returned; everything else marks the source as failed.
func (e *Engine) runSource(ctx context.Context, r *run, def *core.SourceDefinition) error {
	start := time.Now()
	logger := e.logger.With("source", def.Name)

	if err := r.blocked(def.References()); err != nil {
		e.failSource(r, def.Name, err, core.SourceRunStatusSkipped, start)
		return nil
	}

	records, err := e.loader.Load(ctx, def.Name)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.collector.Loaded(def.Name, 0)
		e.failSource(r, def.Name, &core.SourceLoadError{Source: def.Name, Err: err}, core.SourceRunStatusFailed, start)
		return nil
	}
	if err := checkRowIndexes(records); err != nil {
		r.collector.Loaded(def.Name, len(records))
		e.failSource(r, def.Name, &core.SourceLoadError{Source: def.Name, Err: err}, core.SourceRunStatusFailed, start)
		return nil
	}
	logger.Debug("source loaded", "rows", len(records))

	out, err := e.process(ctx, r, def, records)
	if err != nil {
		return err
	}

	if err := e.finishSource(ctx, r, def, out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		e.failSource(r, def.Name, err, core.SourceRunStatusFailed, start)
		return nil
	}

	e.recordSource(r, def.Name, core.SourceRunStatusSuccess, time.Since(start))
	logger.Info("source processed",
		"valid", len(out.silver),
		"quarantined", len(out.quarantine),
		"deduplicated", out.dropped,
		"keys", r.keys.Len(def.Name))
	return nil
}

// finishSource writes the outputs of a processed dataset and publishes its
// keys. Keys are published last so that dependents only ever see sources
// whose outputs exist.
// Nothing of a dataset whose outputs cannot be written reaches the result,
// and its classification counts are discarded.
func (e *Engine) finishSource(ctx context.Context, r *run, def *core.SourceDefinition, out *sourceOutput) error {
	if err := e.writeOutputs(ctx, r, def, out); err != nil {
		r.collector.Discard(def.Name)
		return err
	}
	if err := r.keys.Publish(def.Name, primaryKeys(def, out.silver)); err != nil {
		r.collector.Discard(def.Name)
		return err
	}

	r.result.Silver[def.Name] = out.silver
	r.result.Quarantine[def.Name] = out.quarantine
	return nil
}

// primaryKeys returns the canonical primary key values of valid records.
func primaryKeys(def *core.SourceDefinition, records []*core.Record) []string {
	if def.PrimaryKey == "" {
		return nil
	}
	typ := core.FieldString
	if rule, ok := def.Rules.Field(def.PrimaryKey); ok {
		typ = rule.Type
	}
	out := make([]string, 0, len(records))
	for _, rec := range records {
		v := rec.Value(def.PrimaryKey)
		if core.IsBlank(v) {
			continue
		}
		s, _ := validator.Canonical(v, typ)
		out = append(out, s)
	}
	return out
}

func (e *Engine) failSource(r *run, source string, err error, status core.SourceRunStatus, start time.Time) {
	e.logger.Warn("source failed", "source", source, "error", err.Error())
	r.failed[source] = true
	r.collector.Failed(source, err)
	e.recordSource(r, source, status, time.Since(start))
}

// recordSource stores the statistics of a source in the state store.
func (e *Engine) recordSource(r *run, source string, status core.SourceRunStatus, elapsed time.Duration) {
	if e.store == nil {
		return
	}
	stats, ok := r.collector.Stats(source)
	if !ok {
		return
	}

	err := e.store.RecordSourceRun(&core.SourceRun{
		RunID:        r.id,
		Source:       source,
		Position:     stats.Position,
		Status:       status,
		Total:        stats.Total,
		Valid:        stats.Valid,
		Quarantined:  stats.Quarantined,
		Deduplicated: stats.Deduplicated,
		Orphaned:     stats.Orphaned,
		Nullified:    stats.NullifiedTotal(),
		ErrorCounts:  stats.ErrorCounts,
		Error:        stats.Error,
		ExecutionMS:  elapsed.Milliseconds(),
	})
	if err != nil {
		e.logger.Warn("failed to record source run", "source", source, "error", err.Error())
	}
}

func (e *Engine) completeRun(r *run, status core.RunStatus, errMsg string) {
	if e.store == nil || r.id == "" {
		return
	}
	if err := e.store.CompleteRun(r.id, status, errMsg); err != nil {
		e.logger.Warn("failed to complete run", "run_id", r.id, "error", err.Error())
	}
}
