package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"porosity/adapters/recordfile"
	"porosity/domain/core"
	"porosity/domain/record"
)

// Enrich merges each porosity record in tableDir into the matching broken-out
// sample record recordDir/<build><suffix>/<SampleID>.json. Properties replace
// those of the same name; the rest are appended.
func (p *Pipeline) Enrich(ctx context.Context, tableDir, recordDir string) (StageResult, error) {
	names, err := listFiles(tableDir, isJSON)
	if err != nil {
		return StageResult{Stage: "enrich"}, err
	}

	return p.fanOut(ctx, "enrich", names, func(ctx context.Context, name string) (itemResult, error) {
		target, err := p.EnrichSample(filepath.Join(tableDir, name), recordDir)
		if err != nil {
			return itemResult{}, err
		}
		return itemResult{outputs: []string{target}}, nil
	})
}

// EnrichSample merges one porosity record file into its sample record and
// returns the path of the updated sample record.
func (p *Pipeline) EnrichSample(porosityPath, recordDir string) (string, error) {
	porosity, err := recordfile.Read(porosityPath)
	if err != nil {
		return "", err
	}
	id, ok := porosity.SampleID()
	if !ok {
		return "", core.NewMalformedRecordError(porosityPath, "missing Sample ID")
	}

	target := filepath.Join(recordDir, id.Build().String()+p.recordSfx, id.String()+".json")
	base, err := recordfile.Read(target)
	if err != nil {
		if core.IsNotFoundError(err) {
			return "", skip("%w: no record at %s", core.ErrSampleNotFound, target)
		}
		return "", err
	}

	if err := recordfile.Write(target, record.Merge(base, porosity)); err != nil {
		return "", err
	}
	return target, nil
}

// Merge collects the records of each subdirectory of recordDir into
// <recordDir>/<subdir>_w-porosity.json.
func (p *Pipeline) Merge(ctx context.Context, recordDir string) (StageResult, error) {
	dirs, err := listDirs(recordDir)
	if err != nil {
		return StageResult{Stage: "merge"}, err
	}

	return p.fanOut(ctx, "merge", dirs, func(ctx context.Context, sub string) (itemResult, error) {
		names, err := listFiles(filepath.Join(recordDir, sub), isJSON)
		if err != nil {
			return itemResult{}, err
		}
		if len(names) == 0 {
			return itemResult{}, skip("no records")
		}

		records := make([]record.Record, 0, len(names))
		for _, name := range names {
			r, err := recordfile.ReadAll(filepath.Join(recordDir, sub, name))
			if err != nil {
				return itemResult{}, err
			}
			records = append(records, r...)
		}

		out := filepath.Join(recordDir, sub+MergedSuffix)
		if err := recordfile.WriteAll(out, records); err != nil {
			return itemResult{}, err
		}
		p.logger.Debug("merge: %s holds %d records", filepath.Base(out), len(records))
		return itemResult{outputs: []string{out}}, nil
	})
}

func mergedFiles(recordDir string) ([]string, error) {
	names, err := listFiles(recordDir, func(name string) bool { return strings.HasSuffix(name, MergedSuffix) })
	if err != nil {
		return nil, fmt.Errorf("find merged record files: %w", err)
	}
	return names, nil
}
