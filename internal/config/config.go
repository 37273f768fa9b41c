// Package config reads runtime settings from the environment and builds the
// pieces that depend on them.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/history"
	infraBQ "github.com/secondlook/secondlook/internal/infra/bigquery"
	"github.com/secondlook/secondlook/internal/infra/gcs"
	"github.com/secondlook/secondlook/internal/infra/postgres"
	"github.com/secondlook/secondlook/internal/scoring"
)

// History backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendBigQuery = "bigquery"
	BackendPostgres = "postgres"
)

// Defaults.
const (
	DefaultDataset = "secondlook"
	DefaultPort    = "8080"
	DefaultLevel   = "info"
)

// Config holds every environment-driven setting. Command flags override the
// loaded values.
type Config struct {
	BackendURL     string
	HistoryBackend string
	HistoryDir     string
	BQProject      string
	BQDataset      string
	DatabaseURL    string
	GCSBucket      string
	LogLevel       string
	Port           string
	CORSOrigins    []string
}

// Load reads the process environment.
func Load() Config {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads settings through getenv.
func LoadFrom(getenv func(string) string) Config {
	return Config{
		BackendURL:     envOr(getenv, "SECONDLOOK_BACKEND_URL", scoring.DefaultBaseURL),
		HistoryBackend: strings.ToLower(envOr(getenv, "SECONDLOOK_HISTORY_BACKEND", BackendFile)),
		HistoryDir:     envOr(getenv, "SECONDLOOK_HISTORY_DIR", defaultHistoryDir(getenv)),
		BQProject:      getenv("SECONDLOOK_BQ_PROJECT"),
		BQDataset:      envOr(getenv, "SECONDLOOK_BQ_DATASET", DefaultDataset),
		DatabaseURL:    getenv("DATABASE_URL"),
		GCSBucket:      getenv("GCS_BUCKET"),
		LogLevel:       envOr(getenv, "LOG_LEVEL", DefaultLevel),
		Port:           envOr(getenv, "PORT", DefaultPort),
		CORSOrigins:    SplitList(getenv("SECONDLOOK_CORS_ORIGINS")),
	}
}

// SplitList splits a comma-separated setting, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return fallback
}

// defaultHistoryDir is $XDG_CONFIG_HOME/secondlook, else ~/.secondlook, else
// a directory under the system temp dir.
func defaultHistoryDir(getenv func(string) string) string {
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "secondlook")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".secondlook")
	}
	return filepath.Join(os.TempDir(), "secondlook")
}

// Validate checks that the selected history backend has what it needs.
func (c Config) Validate() error {
	switch c.HistoryBackend {
	case BackendFile:
		if c.HistoryDir == "" {
			return fmt.Errorf("config: SECONDLOOK_HISTORY_DIR is required for the file history backend")
		}
	case BackendMemory:
	case BackendBigQuery:
		if c.BQProject == "" {
			return fmt.Errorf("config: SECONDLOOK_BQ_PROJECT is required for the bigquery history backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres history backend")
		}
	default:
		return fmt.Errorf("config: unknown history backend %q", c.HistoryBackend)
	}
	return nil
}

// Closer releases whatever OpenHistory or OpenArchiver acquired.
type Closer func() error

func noopCloser() error { return nil }

// OpenHistory builds the configured history repository.
func OpenHistory(ctx context.Context, cfg Config, log zerolog.Logger) (history.Repository, Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log = log.With().Str("history_backend", cfg.HistoryBackend).Logger()

	switch cfg.HistoryBackend {
	case BackendMemory:
		return history.NewMemoryStore(), noopCloser, nil
	case BackendBigQuery:
		repo, err := infraBQ.NewHistoryRepository(ctx, cfg.BQProject, cfg.BQDataset, log)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenHistory: %w", err)
		}
		if err := repo.EnsureTable(ctx); err != nil {
			repo.Close()
			return nil, nil, fmt.Errorf("OpenHistory: %w", err)
		}
		return repo, repo.Close, nil
	case BackendPostgres:
		repo, err := postgres.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenHistory: %w", err)
		}
		return repo, repo.Close, nil
	default:
		store, err := history.OpenFileStore(cfg.HistoryDir, log)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenHistory: %w", err)
		}
		return store, noopCloser, nil
	}
}

// OpenArchiver returns nil when no bucket is configured.
func OpenArchiver(ctx context.Context, cfg Config, log zerolog.Logger) (*gcs.Archiver, Closer, error) {
	if cfg.GCSBucket == "" {
		return nil, noopCloser, nil
	}
	a, err := gcs.NewArchiver(ctx, cfg.GCSBucket, log.With().Str("bucket", cfg.GCSBucket).Logger())
	if err != nil {
		return nil, nil, fmt.Errorf("OpenArchiver: %w", err)
	}
	return a, a.Close, nil
}
