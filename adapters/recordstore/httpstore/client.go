// Package httpstore talks to a record repository over its REST file API.
package httpstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"porosity/domain/core"
	"porosity/internal"
	"porosity/internal/errors"
	"porosity/ports"
)

// APIKeyHeader carries the repository API key on every request.
const APIKeyHeader = "X-API-Key"

// Config configures the client
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements ports.RecordStore against the repository REST API
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *internal.Logger
}

var _ ports.RecordStore = (*Client)(nil)

// New creates a client
func New(config Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.ConfigInvalid("missing record store URL")
	}
	if config.APIKey == "" {
		return nil, errors.ConfigInvalid("missing record store API key")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  config.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  internal.DefaultLogger.With("RecordStore"),
	}, nil
}

func (c *Client) filesURL(datasetID core.DatasetID) string {
	return fmt.Sprintf("%s/datasets/%s/files", c.baseURL, url.PathEscape(datasetID.String()))
}

func (c *Client) fileURL(datasetID core.DatasetID, storePath string) string {
	segments := strings.Split(storePath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.filesURL(datasetID) + "/" + strings.Join(segments, "/")
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.ExternalServiceError("record store", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusNotFound {
		return nil, core.NewNotFoundError("record store file", target)
	}
	return nil, errors.ExternalServiceError("record store",
		fmt.Errorf("%s %s: http %d: %s", method, target, resp.StatusCode, strings.TrimSpace(string(msg))))
}

// ListFiles returns the files of a dataset
func (c *Client) ListFiles(ctx context.Context, datasetID core.DatasetID) ([]ports.FileRef, error) {
	resp, err := c.do(ctx, http.MethodGet, c.filesURL(datasetID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var files []ports.FileRef
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, errors.ExternalServiceError("record store", fmt.Errorf("decode file list: %w", err))
	}
	c.logger.Debug("dataset %s lists %d files", datasetID, len(files))
	return files, nil
}

// Download fetches one file into destDir
func (c *Client) Download(ctx context.Context, datasetID core.DatasetID, file ports.FileRef, destDir string) (string, error) {
	storePath, err := ports.CleanStorePath(file.Path)
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, http.MethodGet, c.fileURL(datasetID, storePath), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	localPath := filepath.Join(destDir, filepath.FromSlash(storePath))
	if err := writeStream(localPath, resp.Body); err != nil {
		return "", err
	}
	c.logger.Debug("downloaded %s/%s", datasetID, storePath)
	return localPath, nil
}

// Upload sends a local file to destPath in the dataset
func (c *Client) Upload(ctx context.Context, datasetID core.DatasetID, localPath, destPath string) error {
	storePath, err := ports.CleanStorePath(destPath)
	if err != nil {
		return err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open upload source: %w", err)
	}
	defer f.Close()

	resp, err := c.do(ctx, http.MethodPut, c.fileURL(datasetID, storePath), f)
	if err != nil {
		return err
	}
	resp.Body.Close()
	c.logger.Info("uploaded %s to %s/%s", filepath.Base(localPath), datasetID, storePath)
	return nil
}

func writeStream(localPath string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.ExternalServiceError("record store", fmt.Errorf("read body: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close download: %w", err)
	}
	return os.Rename(tmp.Name(), localPath)
}
