package app

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"strings"
	"time"

	"porosity/adapters/recordfile"
	"porosity/adapters/table"
	"porosity/domain/core"
	"porosity/domain/pore"
	"porosity/domain/record"
	"porosity/internal/porestats"
)

// Ingest turns every measurement table in tableDir into a porosity record
// <tableDir>/<SampleID>.json. A part volume table kept alongside is skipped.
func (p *Pipeline) Ingest(ctx context.Context, tableDir string) (StageResult, error) {
	names, err := listFiles(tableDir, table.IsTableFile)
	if err != nil {
		return StageResult{Stage: "ingest"}, err
	}

	return p.fanOut(ctx, "ingest", names, func(ctx context.Context, name string) (itemResult, error) {
		out, err := p.IngestTable(filepath.Join(tableDir, name))
		if err != nil {
			return itemResult{}, err
		}
		return itemResult{outputs: []string{out}}, nil
	})
}

// IngestTable computes the porosity record of one table and writes it next to
// the table. Samples whose input the engine rejects are skipped; a failed
// distribution fit only drops the fit properties.
func (p *Pipeline) IngestTable(path string) (string, error) {
	set, err := table.ReadPoreSet(path)
	if stderrors.Is(err, table.ErrPartVolumeTable) {
		return "", skip("%w", err)
	}
	if err != nil {
		return "", err
	}

	r, err := p.porosityRecord(set)
	if err != nil {
		return "", err
	}

	out := filepath.Join(filepath.Dir(path), set.SampleID.String()+".json")
	if err := recordfile.Write(out, r); err != nil {
		return "", err
	}
	return out, nil
}

func (p *Pipeline) porosityRecord(set pore.Set) (record.Record, error) {
	id := set.SampleID
	var partVolume *float64
	if v, ok := p.partVolumes[id]; ok {
		partVolume = &v
	}

	start := time.Now()
	m, err := porestats.Compute(set, partVolume, p.thresholds)
	p.metrics.ObserveCompute(set.Len(), string(m.SizeWarning), time.Since(start))

	if err != nil {
		if core.IsInvalidInput(err) {
			return record.Record{}, skip("%v", oneLine(err))
		}
		p.logger.Warn("ingest: %s: %v", id, oneLine(err))
	}
	if m.Degenerate {
		p.logger.Debug("ingest: %s: %v", id, core.ErrDegenerateGeometry)
	}

	return record.New(id).
		WithUID(core.NewID().String()).
		WithProperties(porestats.CentroidProperties(set)...).
		WithProperties(m.Properties()...), nil
}

func oneLine(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}
