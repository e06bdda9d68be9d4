package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/regionatlas/atlasd/internal/atlastest"
	"github.com/regionatlas/atlasd/internal/config"
	"github.com/regionatlas/atlasd/internal/util"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Host:                "127.0.0.1",
		Port:                util.FindPort(),
		DatasetRoot:         atlastest.WriteDataset(t, t.TempDir()),
		Workers:             2,
		ShutdownGracePeriod: 5 * time.Second,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestServiceLifecycle(t *testing.T) {
	cfg := testConfig(t)
	svc := New(cfg, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, svc.Initialize(ctx))
	require.NotNil(t, svc.Store().Snapshot())
	assert.False(t, svc.IsStarted())

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()

	waitFor(t, svc.IsStarted)
	assert.True(t, svc.IsRunning())

	url := fmt.Sprintf("http://%s:%d/health-check", cfg.Host, cfg.Port)
	var status struct {
		Status string `json:"status"`
	}
	waitFor(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return json.NewDecoder(resp.Body).Decode(&status) == nil
	})
	assert.Equal(t, "READY", status.Status)

	svc.Shutdown(ctx)
	require.NoError(t, <-errCh)
	assert.True(t, svc.IsStopped())
	assert.False(t, svc.IsRunning())
}

func TestServiceShutdownWithReload(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reload = true
	svc := New(cfg, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Initialize(ctx))

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()
	waitFor(t, svc.IsStarted)

	svc.Shutdown(ctx)
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after Shutdown with the watcher enabled")
	}
	assert.True(t, svc.IsStopped())
}

func TestServiceInitializeIdempotent(t *testing.T) {
	cfg := testConfig(t)
	svc := New(cfg, zaptest.NewLogger(t))

	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx))
	first := svc.Store()
	require.NoError(t, svc.Initialize(ctx))
	assert.Same(t, first, svc.Store())
}

func TestServiceInitializeBrokenDataset(t *testing.T) {
	root := atlastest.WriteDataset(t, t.TempDir())
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "data", "analytic", "organizations.csv"),
		[]byte("not,a,valid,header\n"), 0o644))

	cfg := testConfig(t)
	cfg.DatasetRoot = root
	svc := New(cfg, zaptest.NewLogger(t))

	err := svc.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial dataset load failed")
}

func TestServiceRunRequiresInitialize(t *testing.T) {
	svc := New(testConfig(t), zaptest.NewLogger(t))
	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestServiceContextCancellation(t *testing.T) {
	cfg := testConfig(t)
	svc := New(cfg, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.Initialize(ctx))

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()
	waitFor(t, svc.IsStarted)

	cancel()
	require.Error(t, <-errCh)
	assert.True(t, svc.IsStopped())
}
