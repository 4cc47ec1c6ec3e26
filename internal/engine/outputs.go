package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/silverline/internal/quality"
	"github.com/leapstack-labs/silverline/internal/quarantine"
	"github.com/leapstack-labs/silverline/internal/silver"
	"github.com/leapstack-labs/silverline/pkg/core"
)

// writeOutputs stores the Silver dataset and quarantine file of a dataset
// and loads the Silver table into the warehouse.
func (e *Engine) writeOutputs(ctx context.Context, r *run, def *core.SourceDefinition, out *sourceOutput) error {
	if e.artifacts != nil {
		name, err := e.silver.Write(ctx, def, out.silver)
		if err != nil {
			return err
		}
		r.result.Artifacts = append(r.result.Artifacts, name)

		name, err = quarantine.NewSink(e.artifacts).Write(ctx, def.Name, out.quarantine)
		if err != nil {
			return err
		}
		r.result.Artifacts = append(r.result.Artifacts, name)
	}

	if e.dbConfig != nil {
		if err := e.loadWarehouse(ctx, def, out.silver); err != nil {
			return err
		}
	}
	return nil
}

// loadWarehouse replaces the Silver table of a dataset.
func (e *Engine) loadWarehouse(ctx context.Context, def *core.SourceDefinition, records []*core.Record) error {
	db, err := e.ensureDBConnected(ctx)
	if err != nil {
		return err
	}

	rows := silver.Project(def, records)
	cols := silver.Columns(def, rows)
	if len(cols) == 0 {
		e.logger.Debug("skipping warehouse load of empty dataset", "source", def.Name)
		return nil
	}

	spec := core.TableSpec{Name: def.Name, PrimaryKey: def.PrimaryKey}
	for _, c := range cols {
		spec.Columns = append(spec.Columns, core.Column{Name: c.Name, Type: c.Type, Nullable: true})
	}

	n, err := db.LoadRecords(ctx, spec, textColumns(rows, cols))
	if err != nil {
		return fmt.Errorf("failed to load %s into warehouse: %w", def.Name, err)
	}
	e.logger.Debug("warehouse table loaded", "source", def.Name, "rows", n)
	return nil
}

// writeReport stores the quality report as JSON and Markdown artifacts and
// in the state store.
func (e *Engine) writeReport(ctx context.Context, r *run, report *quality.Report) error {
	data, err := quality.JSON(report)
	if err != nil {
		return err
	}

	if e.artifacts != nil {
		if err := e.artifacts.Put(ctx, ReportJSONName, data); err != nil {
			return fmt.Errorf("failed to write quality report: %w", err)
		}
		r.result.Artifacts = append(r.result.Artifacts, ReportJSONName)

		if err := e.artifacts.Put(ctx, ReportMarkdownName, []byte(quality.Markdown(report))); err != nil {
			return fmt.Errorf("failed to write quality report: %w", err)
		}
		r.result.Artifacts = append(r.result.Artifacts, ReportMarkdownName)
	}

	if e.store != nil && r.id != "" {
		if err := e.store.SaveReport(r.id, data); err != nil {
			e.logger.Warn("failed to save report", "run_id", r.id, "error", err.Error())
		}
	}
	return nil
}

// textColumns renders the values of string columns in their canonical text
// form, so undeclared numeric or boolean values fit a text column.
func textColumns(rows []*core.Record, cols []silver.Column) []*core.Record {
	out := make([]*core.Record, len(rows))
	for i, rec := range rows {
		conv := rec.Clone()
		for _, c := range cols {
			if c.Type != core.FieldString {
				continue
			}
			if v := conv.Value(c.Name); v != nil {
				s, _ := core.FormatValue(v)
				conv.Set(c.Name, s)
			}
		}
		out[i] = conv
	}
	return out
}
