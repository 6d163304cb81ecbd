// Package app runs the porosity update workflow: fetch record and table files,
// compute pore descriptors, merge them into sample records, refine and publish.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"porosity/domain/core"
	"porosity/internal"
	"porosity/internal/metrics"
	"porosity/internal/porestats"
	"porosity/ports"
)

// Output file naming
const (
	MergedSuffix     = "_w-porosity.json"
	RefinedSuffix    = "_refined.json"
	AllWithPropsFile = "all_pifs_with_props.json"
	ReportBaseName   = "porosity_report"
)

// Options configures a Pipeline
type Options struct {
	Workers           int
	Builds            []string // builds whose multi-record files are broken out
	HeatTreatedBuilds []string
	RecordSuffix      string // "-nohough"
	UploadSuffix      string // files published by Upload, MergedSuffix by default
	Thresholds        porestats.Thresholds
	PartVolumes       map[core.SampleID]float64
}

// Pipeline runs the workflow stages. Stages are independent and can be run one
// at a time; Run chains the local ones.
type Pipeline struct {
	store       ports.RecordStore
	workers     int
	builds      map[core.BuildID]bool
	heatTreated map[core.BuildID]bool
	recordSfx   string
	uploadSfx   string
	thresholds  porestats.Thresholds
	partVolumes map[core.SampleID]float64
	metrics     *metrics.Metrics
	logger      *internal.Logger
}

// NewPipeline creates a pipeline. store may be nil when only local stages run;
// m may be nil to disable metrics.
func NewPipeline(store ports.RecordStore, opts Options, m *metrics.Metrics) *Pipeline {
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	recordSfx := opts.RecordSuffix
	if recordSfx == "" {
		recordSfx = "-nohough"
	}
	uploadSfx := opts.UploadSuffix
	if uploadSfx == "" {
		uploadSfx = MergedSuffix
	}
	thresholds := opts.Thresholds
	if len(thresholds.HistogramEdges) == 0 {
		thresholds = porestats.DefaultThresholds()
	}

	return &Pipeline{
		store:       store,
		workers:     workers,
		builds:      buildSet(opts.Builds),
		heatTreated: buildSet(opts.HeatTreatedBuilds),
		recordSfx:   recordSfx,
		uploadSfx:   uploadSfx,
		thresholds:  thresholds,
		partVolumes: opts.PartVolumes,
		metrics:     m,
		logger:      internal.DefaultLogger.With("Pipeline"),
	}
}

func buildSet(builds []string) map[core.BuildID]bool {
	set := make(map[core.BuildID]bool, len(builds))
	for _, b := range builds {
		set[core.BuildID(strings.TrimSpace(b))] = true
	}
	return set
}

func (p *Pipeline) requireStore() error {
	if p.store == nil {
		return fmt.Errorf("record store not configured")
	}
	return nil
}

// RunOptions names the directories Run works in
type RunOptions struct {
	TableDir  string
	RecordDir string
}

// Run executes ingest, enrich, merge, refine and report in order. It stops at
// the first stage that is cancelled or cannot start; item failures inside a
// stage are reported in its result and do not stop the run.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) ([]StageResult, error) {
	runID := core.NewRunID()
	p.logger.Info("run %s: tables=%s records=%s", runID, opts.TableDir, opts.RecordDir)

	stages := []func(context.Context) (StageResult, error){
		func(ctx context.Context) (StageResult, error) { return p.Ingest(ctx, opts.TableDir) },
		func(ctx context.Context) (StageResult, error) { return p.Enrich(ctx, opts.TableDir, opts.RecordDir) },
		func(ctx context.Context) (StageResult, error) { return p.Merge(ctx, opts.RecordDir) },
		func(ctx context.Context) (StageResult, error) { return p.Refine(ctx, opts.RecordDir) },
		func(ctx context.Context) (StageResult, error) { return p.Report(ctx, opts.RecordDir) },
	}

	var results []StageResult
	for _, stage := range stages {
		result, err := stage(ctx)
		results = append(results, result)
		if err != nil {
			return results, fmt.Errorf("run %s: %w", runID, err)
		}
	}
	return results, nil
}

// listFiles returns the sorted names of regular files in dir accepted by keep.
func listFiles(dir string, keep func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if keep(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// listDirs returns the sorted names of subdirectories of dir.
func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func isJSON(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}
