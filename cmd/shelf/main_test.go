package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Shelf/internal/config"
	"Shelf/internal/kvstore"
)

func noEnv(string) (string, bool) { return "", false }

func TestStart_ConfigError(t *testing.T) {
	assert.Equal(t, 2, start([]string{"--config", "/does/not/exist.yaml"}, noEnv))
}

func TestRun_ReleasesStorageOnShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelf")

	cfg := config.Config{
		HTTPAddr: "127.0.0.1:0",
		Remote:   config.Remote{BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		Storage:  config.Storage{Driver: kvstore.DriverLevelDB, Path: path},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, run(ctx, cfg, zap.NewNop()))

	// LevelDB holds a file lock until closed
	b, err := kvstore.OpenLevelDB(path)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}

func TestRun_StorageError(t *testing.T) {
	cfg := config.Config{
		HTTPAddr: "127.0.0.1:0",
		Storage:  config.Storage{Driver: kvstore.DriverLevelDB},
	}

	err := run(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "open storage")
}
