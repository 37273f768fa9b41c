package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg := LoadFrom(envMap(map[string]string{"XDG_CONFIG_HOME": "/cfg"}))

	assert.Equal(t, "http://localhost:5000", cfg.BackendURL)
	assert.Equal(t, BackendFile, cfg.HistoryBackend)
	assert.Equal(t, filepath.Join("/cfg", "secondlook"), cfg.HistoryDir)
	assert.Equal(t, "secondlook", cfg.BQDataset)
	assert.Empty(t, cfg.BQProject)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.GCSBucket)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg := LoadFrom(envMap(map[string]string{
		"SECONDLOOK_BACKEND_URL":     "https://score.example.com",
		"SECONDLOOK_HISTORY_BACKEND": "Postgres",
		"SECONDLOOK_HISTORY_DIR":     "/data",
		"SECONDLOOK_BQ_PROJECT":      "proj",
		"SECONDLOOK_BQ_DATASET":      "ds",
		"DATABASE_URL":               "postgres://localhost/db",
		"GCS_BUCKET":                 "statements",
		"LOG_LEVEL":                  "debug",
		"PORT":                       "9090",
	}))

	assert.Equal(t, Config{
		BackendURL:     "https://score.example.com",
		HistoryBackend: BackendPostgres,
		HistoryDir:     "/data",
		BQProject:      "proj",
		BQDataset:      "ds",
		DatabaseURL:    "postgres://localhost/db",
		GCSBucket:      "statements",
		LogLevel:       "debug",
		Port:           "9090",
	}, cfg)
}

func TestLoadFrom_CORSOrigins(t *testing.T) {
	cfg := LoadFrom(envMap(map[string]string{
		"SECONDLOOK_CORS_ORIGINS": "http://localhost:3000, ,http://127.0.0.1:5173",
	}))
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:5173"}, cfg.CORSOrigins)

	assert.Nil(t, LoadFrom(envMap(nil)).CORSOrigins)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Jan 2024", "Feb 2024"}, SplitList(" Jan 2024, ,Feb 2024 "))
	assert.Nil(t, SplitList(""))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"file", Config{HistoryBackend: BackendFile, HistoryDir: "/tmp"}, false},
		{"file without dir", Config{HistoryBackend: BackendFile}, true},
		{"memory", Config{HistoryBackend: BackendMemory}, false},
		{"bigquery without project", Config{HistoryBackend: BackendBigQuery}, true},
		{"bigquery", Config{HistoryBackend: BackendBigQuery, BQProject: "p"}, false},
		{"postgres without url", Config{HistoryBackend: BackendPostgres}, true},
		{"unknown", Config{HistoryBackend: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpenHistory_File(t *testing.T) {
	dir := t.TempDir()
	repo, closeFn, err := OpenHistory(context.Background(), Config{HistoryBackend: BackendFile, HistoryDir: dir}, zerolog.Nop())
	require.NoError(t, err)
	defer closeFn()

	store, ok := repo.(*history.FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "mpesaAnalysisHistory.json"), store.Path())
}

func TestOpenHistory_Memory(t *testing.T) {
	repo, closeFn, err := OpenHistory(context.Background(), Config{HistoryBackend: BackendMemory}, zerolog.Nop())
	require.NoError(t, err)
	defer closeFn()

	_, ok := repo.(*history.MemoryStore)
	assert.True(t, ok)
}

func TestOpenHistory_Invalid(t *testing.T) {
	_, _, err := OpenHistory(context.Background(), Config{HistoryBackend: "redis"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestOpenArchiver_Disabled(t *testing.T) {
	a, closeFn, err := OpenArchiver(context.Background(), Config{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.NoError(t, closeFn())
}
