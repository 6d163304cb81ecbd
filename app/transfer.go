package app

import (
	"context"
	"path/filepath"
	"strings"

	"porosity/domain/core"
	"porosity/ports"
)

// Download fetches every file of a dataset into dir.
func (p *Pipeline) Download(ctx context.Context, datasetID core.DatasetID, dir string) (StageResult, error) {
	if err := p.requireStore(); err != nil {
		return StageResult{Stage: "download"}, err
	}
	files, err := p.store.ListFiles(ctx, datasetID)
	if err != nil {
		return StageResult{Stage: "download"}, err
	}

	refs := make(map[string]ports.FileRef, len(files))
	items := make([]string, 0, len(files))
	for _, f := range files {
		refs[f.Path] = f
		items = append(items, f.Path)
	}

	return p.fanOut(ctx, "download", items, func(ctx context.Context, item string) (itemResult, error) {
		local, err := p.store.Download(ctx, datasetID, refs[item], dir)
		if err != nil {
			return itemResult{}, err
		}
		return itemResult{outputs: []string{local}}, nil
	})
}

// Upload sends every file in dir whose name ends with the upload suffix to the
// dataset, under its own name. By default these are the merged build files
// carrying the porosity properties; RefinedSuffix selects the refined ones.
func (p *Pipeline) Upload(ctx context.Context, dir string, datasetID core.DatasetID) (StageResult, error) {
	if err := p.requireStore(); err != nil {
		return StageResult{Stage: "upload"}, err
	}
	names, err := listFiles(dir, func(name string) bool { return strings.HasSuffix(name, p.uploadSfx) })
	if err != nil {
		return StageResult{Stage: "upload"}, err
	}

	return p.fanOut(ctx, "upload", names, func(ctx context.Context, name string) (itemResult, error) {
		if err := p.store.Upload(ctx, datasetID, filepath.Join(dir, name), name); err != nil {
			return itemResult{}, err
		}
		return itemResult{outputs: []string{name}}, nil
	})
}
