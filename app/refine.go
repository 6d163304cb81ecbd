package app

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"porosity/adapters/recordfile"
	"porosity/domain/record"
	"porosity/internal/porestats"
	"porosity/internal/report"
)

// Refine reduces every merged file in recordDir to the model properties plus
// the recomputed classification labels, writing <name>_refined.json. Records
// that carry properties are also collected into all_pifs_with_props.json.
func (p *Pipeline) Refine(ctx context.Context, recordDir string) (StageResult, error) {
	names, err := mergedFiles(recordDir)
	if err != nil {
		return StageResult{Stage: "refine"}, err
	}

	var mu sync.Mutex
	withProps := make(map[string][]record.Record, len(names))

	result, err := p.fanOut(ctx, "refine", names, func(ctx context.Context, name string) (itemResult, error) {
		records, err := recordfile.ReadAll(filepath.Join(recordDir, name))
		if err != nil {
			return itemResult{}, err
		}

		refined := make([]record.Record, len(records))
		var kept []record.Record
		for i, r := range records {
			refined[i] = p.refineRecord(name, r)
			if r.HasProperties() {
				kept = append(kept, refined[i])
			}
		}

		out := filepath.Join(recordDir, strings.TrimSuffix(name, ".json")+RefinedSuffix)
		if err := recordfile.WriteAll(out, refined); err != nil {
			return itemResult{}, err
		}
		mu.Lock()
		withProps[name] = kept
		mu.Unlock()
		return itemResult{outputs: []string{out}}, nil
	})
	if err != nil {
		return result, err
	}

	sorted := make([]string, 0, len(withProps))
	for name := range withProps {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	all := []record.Record{}
	for _, name := range sorted {
		all = append(all, withProps[name]...)
	}

	allPath := filepath.Join(recordDir, AllWithPropsFile)
	if err := recordfile.WriteAll(allPath, all); err != nil {
		return result, err
	}
	result.Outputs = append(result.Outputs, allPath)
	sort.Strings(result.Outputs)
	return result, nil
}

// refineRecord keeps the allow-listed properties and appends fresh labels.
// A record whose labels cannot be derived keeps its refined properties only.
func (p *Pipeline) refineRecord(file string, r record.Record) record.Record {
	refined := record.Refine(r, porestats.RefineAllowList)
	if !r.HasProperties() {
		return refined
	}
	labels, err := porestats.Classify(r, p.thresholds)
	if err != nil {
		id, _ := r.SampleID()
		p.logger.Warn("refine: %s: %s not classified: %v", file, id, err)
		return refined
	}
	return refined.WithProperties(labels...)
}

// Report summarizes the refined records of recordDir as porosity_report.md,
// .html and .xlsx.
func (p *Pipeline) Report(ctx context.Context, recordDir string) (StageResult, error) {
	names, err := listFiles(recordDir, func(name string) bool { return strings.HasSuffix(name, RefinedSuffix) })
	if err != nil {
		return StageResult{Stage: "report"}, err
	}

	var mu sync.Mutex
	var rows []report.Row

	result, err := p.fanOut(ctx, "report", names, func(ctx context.Context, name string) (itemResult, error) {
		records, err := recordfile.ReadAll(filepath.Join(recordDir, name))
		if err != nil {
			return itemResult{}, err
		}
		var fileRows []report.Row
		var res itemResult
		for _, r := range records {
			row, err := report.RowFromRecord(r)
			if err != nil {
				res.skipped++
				continue
			}
			fileRows = append(fileRows, row)
		}
		mu.Lock()
		rows = append(rows, fileRows...)
		mu.Unlock()
		return res, nil
	})
	if err != nil {
		return result, err
	}

	summary := report.NewSummary("Porosity summary", time.Now(), rows)
	base := filepath.Join(recordDir, ReportBaseName)
	if err := os.WriteFile(base+".md", summary.Markdown(), 0o644); err != nil {
		return result, err
	}
	if err := os.WriteFile(base+".html", summary.HTML(), 0o644); err != nil {
		return result, err
	}
	if err := summary.WriteXLSX(base + ".xlsx"); err != nil {
		return result, err
	}
	result.Outputs = append(result.Outputs, base+".html", base+".md", base+".xlsx")
	p.logger.Info("report: %d samples summarized in %s.{md,html,xlsx}", len(summary.Rows), base)
	return result, nil
}
