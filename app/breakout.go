package app

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"porosity/adapters/recordfile"
	"porosity/domain/core"
	"porosity/domain/record"
)

// Breakout splits each configured build's multi-record file
// (<build><suffix>.json) into dir/<build><suffix>/<SampleID>.json, one file per
// printed sample, and tags each record with its plate heat treatment.
func (p *Pipeline) Breakout(ctx context.Context, dir string) (StageResult, error) {
	names, err := listFiles(dir, func(name string) bool {
		if !strings.HasSuffix(name, p.recordSfx+".json") {
			return false
		}
		return p.builds[core.BuildFromFileName(name)]
	})
	if err != nil {
		return StageResult{Stage: "breakout"}, err
	}

	return p.fanOut(ctx, "breakout", names, func(ctx context.Context, name string) (itemResult, error) {
		return p.breakoutFile(dir, name)
	})
}

func (p *Pipeline) breakoutFile(dir, name string) (itemResult, error) {
	records, err := recordfile.ReadAll(filepath.Join(dir, name))
	if err != nil {
		return itemResult{}, err
	}

	build := core.BuildFromFileName(name)
	outDir := filepath.Join(dir, strings.TrimSuffix(name, ".json"))
	treatment := p.heatTreatmentStep(build)

	var result itemResult
	for i, r := range records {
		id, err := printedSampleID(build, r)
		if err != nil {
			p.logger.Warn("breakout: %s record %d left out: %v", name, i, err)
			result.skipped++
			continue
		}

		out := r.WithSampleID(id)
		if _, ok := out.Step(record.HeatTreatmentStep); !ok {
			out = out.WithStep(treatment)
		}
		path := filepath.Join(outDir, id.String()+".json")
		if err := recordfile.Write(path, out); err != nil {
			return result, err
		}
		result.outputs = append(result.outputs, path)
	}
	return result, nil
}

func (p *Pipeline) heatTreatmentStep(build core.BuildID) record.ProcessStep {
	performed := "NO"
	if p.heatTreated[build] {
		performed = "YES"
	}
	return record.ProcessStep{
		Name:    record.HeatTreatmentStep,
		Details: []record.Detail{{Name: record.HeatTreatmentDetail, Scalars: record.Label(performed)}},
	}
}

// printedSampleID derives <build>_<column><row> from the record's printing step.
func printedSampleID(build core.BuildID, r record.Record) (core.SampleID, error) {
	step, ok := r.Step(record.PrintingStep)
	if !ok {
		return "", fmt.Errorf("no %q preparation step", record.PrintingStep)
	}
	rowDetail, ok := step.Detail(record.RowDetail)
	if !ok {
		return "", fmt.Errorf("printing step has no %q detail", record.RowDetail)
	}
	colDetail, ok := step.Detail(record.ColumnDetail)
	if !ok {
		return "", fmt.Errorf("printing step has no %q detail", record.ColumnDetail)
	}

	row, ok := rowDetail.Scalars.Float()
	if !ok || row != math.Trunc(row) {
		text, _ := rowDetail.Scalars.Text()
		return "", fmt.Errorf("row %q is not a whole number", text)
	}
	column, ok := colDetail.Scalars.Text()
	if !ok {
		return "", fmt.Errorf("column has no value")
	}
	return core.NewSampleID(build, column, int(row))
}
