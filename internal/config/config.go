package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"porosity/internal/errors"
	"porosity/internal/porestats"
)

// Config represents the complete application configuration
type Config struct {
	Paths      PathConfig
	Store      StoreConfig
	Pipeline   PipelineConfig
	Server     ServerConfig
	Thresholds porestats.Thresholds
	LogLevel   string
}

// PathConfig holds file system paths
type PathConfig struct {
	DataDir         string
	TableDir        string // per-sample pore measurement tables
	RecordDir       string // per-build record files
	PartVolumeTable string // optional Sample ID -> part volume table
	ThresholdsFile  string
}

// StoreConfig selects and configures the remote record store
type StoreConfig struct {
	Kind    string // "http" or "sql"
	URL     string
	APIKey  string
	Driver  string // "postgres" or "sqlite"
	DSN     string
	Timeout time.Duration
}

// PipelineConfig holds batch processing settings
type PipelineConfig struct {
	Workers           int
	Builds            []string // multi-record files broken out per sample
	HeatTreatedBuilds []string
	RecordSuffix      string // per-build record file suffix, "-nohough"
	UploadSuffix      string // "_w-porosity.json" merged files, "_refined.json" refined ones
	SourceDataset     string
	TableDataset      string
	TargetDataset     string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	dataDir := getEnvOrDefault("DATA_DIR", "./data")

	cfg := &Config{
		Paths: PathConfig{
			DataDir:         dataDir,
			TableDir:        getEnvOrDefault("TABLE_DIR", dataDir+"/74"),
			RecordDir:       getEnvOrDefault("RECORD_DIR", dataDir+"/73"),
			PartVolumeTable: getEnvOrDefault("PART_VOLUME_TABLE", ""),
			ThresholdsFile:  getEnvOrDefault("THRESHOLDS_FILE", ""),
		},
		Store: StoreConfig{
			Kind:    getEnvOrDefault("RECORD_STORE", "http"),
			URL:     getEnvOrDefault("RECORD_STORE_URL", ""),
			APIKey:  getEnvOrDefault("RECORD_STORE_API_KEY", ""),
			Driver:  getEnvOrDefault("RECORD_STORE_DRIVER", "sqlite"),
			DSN:     getEnvOrDefault("RECORD_STORE_DSN", ""),
			Timeout: getEnvDurationOrDefault("RECORD_STORE_TIMEOUT", 60*time.Second),
		},
		Pipeline: PipelineConfig{
			Workers: getEnvIntOrDefault("PIPELINE_WORKERS", runtime.GOMAXPROCS(0)),
			Builds: getEnvListOrDefault("BUILDS", []string{
				"P001_B001", "P002_B001", "P003_B001", "P004_B001",
				"P005_B001", "P005_B002", "P006_B001", "P014_B001",
			}),
			HeatTreatedBuilds: getEnvListOrDefault("HEAT_TREATED_BUILDS", []string{"P001_B001"}),
			RecordSuffix:      getEnvOrDefault("RECORD_SUFFIX", "-nohough"),
			UploadSuffix:      getEnvOrDefault("UPLOAD_SUFFIX", "_w-porosity.json"),
			SourceDataset:     getEnvOrDefault("SOURCE_DATASET", "73"),
			TableDataset:      getEnvOrDefault("TABLE_DATASET", "74"),
			TargetDataset:     getEnvOrDefault("TARGET_DATASET", "78"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	thresholds, err := LoadThresholds(cfg.Paths.ThresholdsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load thresholds from %q", cfg.Paths.ThresholdsFile)
	}
	cfg.Thresholds = thresholds

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// LoadThresholds reads classification cutoffs from a YAML file. Fields the file
// leaves out keep their defaults; an empty path returns the defaults.
func LoadThresholds(path string) (porestats.Thresholds, error) {
	t := porestats.DefaultThresholds()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("thresholds: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("thresholds: parse yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, errors.Wrap(errors.ConfigInvalid(err.Error()), "thresholds")
	}
	return t, nil
}

// RequireStore checks the settings needed to reach the record store.
func (c *Config) RequireStore() error {
	switch c.Store.Kind {
	case "http":
		if c.Store.URL == "" {
			return errors.ConfigInvalid("RECORD_STORE_URL is required for the http record store")
		}
		if c.Store.APIKey == "" {
			return errors.ConfigInvalid("RECORD_STORE_API_KEY is required for the http record store")
		}
	case "sql":
		if c.Store.DSN == "" {
			return errors.ConfigInvalid("RECORD_STORE_DSN is required for the sql record store")
		}
	}
	return nil
}

func validateConfig(config *Config) error {
	if config.Pipeline.Workers < 1 {
		return errors.ConfigInvalid("PIPELINE_WORKERS must be at least 1")
	}
	switch config.Store.Kind {
	case "http", "sql":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("RECORD_STORE must be http or sql, got %q", config.Store.Kind))
	}
	switch config.Store.Driver {
	case "postgres", "sqlite":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("RECORD_STORE_DRIVER must be postgres or sqlite, got %q", config.Store.Driver))
	}
	if config.Paths.TableDir == "" || config.Paths.RecordDir == "" {
		return errors.ConfigInvalid("TABLE_DIR and RECORD_DIR are required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvListOrDefault splits a comma-separated variable, dropping blanks.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
