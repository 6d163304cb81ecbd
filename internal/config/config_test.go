package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porosity/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/porosity")
	t.Setenv("PIPELINE_WORKERS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/porosity/74", cfg.Paths.TableDir)
	assert.Equal(t, "/srv/porosity/73", cfg.Paths.RecordDir)
	assert.Equal(t, 3, cfg.Pipeline.Workers)
	assert.Equal(t, []string{"P001_B001"}, cfg.Pipeline.HeatTreatedBuilds)
	assert.Len(t, cfg.Pipeline.Builds, 8)
	assert.Equal(t, "_w-porosity.json", cfg.Pipeline.UploadSuffix)
	assert.Equal(t, 60*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 200.0, cfg.Thresholds.SevereDiameter)
}

func TestLoad_ListAndStoreOverrides(t *testing.T) {
	t.Setenv("BUILDS", "P001_B001, ,P002_B001")
	t.Setenv("RECORD_STORE", "sql")
	t.Setenv("RECORD_STORE_DRIVER", "postgres")
	t.Setenv("RECORD_STORE_DSN", "postgres://localhost/records")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"P001_B001", "P002_B001"}, cfg.Pipeline.Builds)
	assert.NoError(t, cfg.RequireStore())
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("RECORD_STORE", "ftp")
	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestRequireStore_HTTPNeedsKey(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Kind: "http", URL: "https://records.example"}}
	err := cfg.RequireStore()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECORD_STORE_API_KEY")
}

func TestLoadThresholds_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("caution_diameter: 100\nhistogram_edges: [25, 50]\n"), 0o644))

	th, err := LoadThresholds(path)
	require.NoError(t, err)
	assert.Equal(t, 100.0, th.CautionDiameter)
	assert.Equal(t, 200.0, th.SevereDiameter)
	assert.Equal(t, 22.0, th.MedianSplit)
	assert.Equal(t, []float64{25, 50}, th.HistogramEdges)
}

func TestLoad_BadThresholdsFileNamesIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("median_split: -1\n"), 0o644))
	t.Setenv("THRESHOLDS_FILE", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadThresholds_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("caution_diameter: 500\n"), 0o644))

	_, err := LoadThresholds(path)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	_, err = LoadThresholds(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
