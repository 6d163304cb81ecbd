package ports

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"porosity/domain/core"
)

// RecordStore is the remote home of record files and measurement tables,
// addressed by dataset.
type RecordStore interface {
	// ListFiles returns every file stored under the dataset.
	ListFiles(ctx context.Context, datasetID core.DatasetID) ([]FileRef, error)
	// Download writes file below destDir, keeping its relative path, and
	// returns the local path.
	Download(ctx context.Context, datasetID core.DatasetID, file FileRef, destDir string) (string, error)
	// Upload stores the local file at destPath in the dataset, replacing any
	// previous version.
	Upload(ctx context.Context, datasetID core.DatasetID, localPath, destPath string) error
}

// FileRef describes one stored file
type FileRef struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CleanStorePath normalizes a dataset-relative path and rejects paths that
// escape the dataset root.
func CleanStorePath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	cleaned := path.Clean("/" + p)[1:]
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: empty store path", core.ErrInvalidInput)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: store path %q leaves the dataset", core.ErrInvalidInput, p)
		}
	}
	return cleaned, nil
}
