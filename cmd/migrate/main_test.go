package main

import (
	"testing"

	"github.com/secondlook/secondlook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		args    []string
		want    Action
		wantErr bool
	}{
		{nil, ActionUp, false},
		{[]string{"up"}, ActionUp, false},
		{[]string{"down"}, ActionDown, false},
		{[]string{"status"}, ActionStatus, false},
		{[]string{"sideways"}, "", true},
		{[]string{"up", "down"}, "", true},
	}
	for _, tt := range tests {
		got, err := parseAction(tt.args)
		if tt.wantErr {
			assert.Error(t, err, "args %v", tt.args)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestCheckTarget(t *testing.T) {
	pg := config.Config{HistoryBackend: config.BackendPostgres, DatabaseURL: "postgres://localhost/db"}
	assert.NoError(t, checkTarget(pg, ActionDown))
	assert.NoError(t, checkTarget(pg, ActionStatus))

	pg.DatabaseURL = ""
	assert.Error(t, checkTarget(pg, ActionUp))

	bq := config.Config{HistoryBackend: config.BackendBigQuery, BQProject: "proj", BQDataset: "ds"}
	assert.NoError(t, checkTarget(bq, ActionUp))
	assert.Error(t, checkTarget(bq, ActionDown))

	file := config.Config{HistoryBackend: config.BackendFile, HistoryDir: t.TempDir()}
	assert.Error(t, checkTarget(file, ActionUp))
	assert.Error(t, checkTarget(config.Config{HistoryBackend: config.BackendMemory}, ActionUp))
}
