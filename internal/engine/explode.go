package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/leapstack-labs/silverline/internal/loader"
	"github.com/leapstack-labs/silverline/pkg/core"
)

// LineNumberField is the 1-based position of an item within its parent.
const LineNumberField = "line_number"

// runExplosion derives the target dataset of x from the valid records of its
// parent and runs it through the same stages as a source. Items that cannot
// be decoded are quarantined with the parent key and the raw text.
func (e *Engine) runExplosion(ctx context.Context, r *run, x Explosion) error {
	start := time.Now()
	target := x.Target

	refs := append([]string{x.Source}, target.References()...)
	if err := r.blocked(refs); err != nil {
		e.failSource(r, target.Name, err, core.SourceRunStatusSkipped, start)
		return nil
	}

	items, bad := explode(x, r.result.Silver[x.Source])

	out, err := e.process(ctx, r, target, items)
	if err != nil {
		return err
	}
	r.collector.Loaded(target.Name, len(items)+len(bad))
	for _, entry := range bad {
		r.collector.Quarantined(target.Name, entry.Errors)
	}
	if len(bad) > 0 {
		out.quarantine = append(out.quarantine, bad...)
		sort.SliceStable(out.quarantine, func(i, j int) bool {
			return out.quarantine[i].RowIndex < out.quarantine[j].RowIndex
		})
	}

	if err := e.finishSource(ctx, r, target, out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		e.failSource(r, target.Name, err, core.SourceRunStatusFailed, start)
		return nil
	}

	e.recordSource(r, target.Name, core.SourceRunStatusSuccess, time.Since(start))
	e.logger.Info("derived dataset processed",
		"source", target.Name,
		"parent", x.Source,
		"valid", len(out.silver),
		"quarantined", len(out.quarantine))
	return nil
}

// explode turns the JSON array field of every parent record into item
// records. Row indexes run across all parents in parent order. Parents whose
// field is null or blank have no items.
func explode(x Explosion, parents []*core.Record) (items []*core.Record, bad []core.QuarantineEntry) {
	row := 0
	for _, parent := range parents {
		v := parent.Value(x.Field)
		if core.IsBlank(v) {
			continue
		}
		text, _ := core.FormatValue(v)
		parentKey := parent.Value(x.ParentKey)

		decoded, err := loader.DecodeArray(text)
		if err != nil {
			raw := core.NewRecord(row)
			raw.Set(x.ParentKey, parentKey)
			raw.Set(x.Field, text)
			bad = append(bad, core.QuarantineEntry{
				RowIndex: row,
				Raw:      raw,
				Errors: []core.ValidationError{{
					Field:   x.Field,
					Kind:    core.ErrTypeError,
					Message: fmt.Sprintf("invalid item list: %v", err),
					Value:   text,
				}},
			})
			row++
			continue
		}

		for i, item := range decoded {
			rec := core.NewRecord(row)
			rec.Set(x.ParentKey, parentKey)
			rec.Set(LineNumberField, int64(i+1))
			for _, k := range item.Keys() {
				if k == x.ParentKey || k == LineNumberField {
					continue
				}
				rec.Set(k, item.Value(k))
			}
			items = append(items, rec)
			row++
		}
	}
	return items, bad
}
