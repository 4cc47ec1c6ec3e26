package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/silverline/internal/dedup"
	"github.com/leapstack-labs/silverline/internal/integrity"
	"github.com/leapstack-labs/silverline/pkg/core"
)

// sourceOutput is the classified result of one dataset.
type sourceOutput struct {
	silver     []*core.Record
	quarantine []core.QuarantineEntry
	dropped    int
}

// verdict is the per-record outcome of the integrity and validation stage.
type verdict struct {
	record    *core.Record
	errors    []core.ValidationError
	rejected  bool
	nullified []core.ValidationError
}

// checkRowIndexes rejects records sharing a row index. The index ties a
// quarantine entry to its raw record and decides which duplicate is kept.
func checkRowIndexes(records []*core.Record) error {
	seen := make(map[int]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.RowIndex]; dup {
			return fmt.Errorf("duplicate row index %d", rec.RowIndex)
		}
		seen[rec.RowIndex] = struct{}{}
	}
	return nil
}

// process cleans, deduplicates, checks and validates the records of one
// dataset and records every outcome in the run's collector. Keys published
// before the call are the only ones visible to the integrity check.
func (e *Engine) process(ctx context.Context, r *run, def *core.SourceDefinition, records []*core.Record) (*sourceOutput, error) {
	r.collector.Loaded(def.Name, len(records))

	raw := make(map[int]*core.Record, len(records))
	for _, rec := range records {
		raw[rec.RowIndex] = rec
	}

	cleaned := make([]*core.Record, len(records))
	changed := make([][]string, len(records))
	err := e.forEachChunk(ctx, len(records), func(i int) {
		cleaned[i], changed[i] = r.cleaner.CleanRecord(def, records[i])
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, fields := range changed {
		for _, f := range fields {
			counts[f]++
		}
	}
	r.collector.Cleaned(def.Name, counts)

	kept, dropped := dedup.Deduplicate(def, cleaned)
	r.collector.Deduplicated(def.Name, dropped)

	view := r.keys.View()
	verdicts := make([]verdict, len(kept))
	err = e.forEachChunk(ctx, len(kept), func(i int) {
		rec := kept[i]
		fkErrs := integrity.CheckRecord(def, rec, view)
		outcome := r.validator.Validate(def, rec)

		v := verdict{
			record:    outcome.Record,
			rejected:  outcome.Rejected || len(fkErrs) > 0,
			nullified: outcome.Nullified,
		}
		if v.rejected {
			v.errors = make([]core.ValidationError, 0, len(fkErrs)+len(outcome.Errors))
			v.errors = append(v.errors, fkErrs...)
			v.errors = append(v.errors, outcome.Errors...)
		}
		verdicts[i] = v
	})
	if err != nil {
		return nil, err
	}

	out := &sourceOutput{dropped: dropped}
	for i, v := range verdicts {
		if v.rejected {
			row := kept[i].RowIndex
			out.quarantine = append(out.quarantine, core.QuarantineEntry{
				RowIndex: row,
				Raw:      raw[row],
				Errors:   v.errors,
			})
			r.collector.Quarantined(def.Name, v.errors)
			continue
		}
		out.silver = append(out.silver, v.record)
		r.collector.Valid(def.Name, v.nullified)
	}

	return out, nil
}

// forEachChunk calls fn for every index in [0, n), splitting the range into
// contiguous chunks handled by a bounded worker pool. fn must only write to
// the slot of its own index.
func (e *Engine) forEachChunk(ctx context.Context, n int, fn func(i int)) error {
	if n == 0 {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for start := 0; start < n; start += e.chunkSize {
		end := min(start+e.chunkSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}
	return g.Wait()
}
