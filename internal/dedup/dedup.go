// Package dedup removes records that share a primary key with an earlier record.
package dedup

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// Deduplicate keeps, for each primary-key value, the record with the lowest
// row index and drops the rest. Dropped records are only counted.
//
// Keys are compared by their canonical text form, so 7 and "7" collide.
// Null and blank keys never collide with each other unless the source sets
// NullKeysCollide. The input need not be sorted; the output is sorted by row
// index and the input slice is not modified.
func Deduplicate(def *core.SourceDefinition, records []*core.Record) (kept []*core.Record, dropped int) {
	sorted := make([]*core.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RowIndex < sorted[j].RowIndex
	})

	if def.PrimaryKey == "" {
		return sorted, 0
	}

	seen := make(map[string]struct{}, len(sorted))
	seenNull := false
	kept = make([]*core.Record, 0, len(sorted))

	for _, rec := range sorted {
		key, ok := core.FormatValue(rec.Value(def.PrimaryKey))
		if !ok || strings.TrimSpace(key) == "" {
			if def.NullKeysCollide {
				if seenNull {
					dropped++
					continue
				}
				seenNull = true
			}
			kept = append(kept, rec)
			continue
		}

		if _, dup := seen[key]; dup {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, rec)
	}

	return kept, dropped
}
