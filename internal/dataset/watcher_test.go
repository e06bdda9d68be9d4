package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regionatlas/atlasd/internal/atlastest"
)

func waitForSnapshot(t *testing.T, store *Store, cond func(*Snapshot) bool) *Snapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if s := store.Snapshot(); cond(s) {
			return s
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("snapshot condition not met within deadline")
	return nil
}

func TestWatcherReloadsOnChange(t *testing.T) {
	root := atlastest.WriteDataset(t, t.TempDir())
	orgsPath := filepath.Join(root, "data", "analytic", "organizations.csv")
	store := NewStore(ResolvePaths(root, nil), DefaultThresholds, 1)
	first, err := store.Reload(context.Background())
	require.NoError(t, err)

	w, err := NewWatcher(store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// A valid change settles into one debounced reload.
	require.NoError(t, os.WriteFile(orgsPath, []byte(
		`city,region,by_staff,by_list,buget_limits,cash_execution,equipment,faulty_equipment
Northville,North,100,50,100,90,100,10
`), 0o644))
	second := waitForSnapshot(t, store, func(s *Snapshot) bool { return s.ID != first.ID })
	north, ok := second.Region("North")
	require.True(t, ok)
	assert.InDelta(t, 0.5, north.Indicators.Staffing, 1e-9)

	// A broken write must not replace the snapshot.
	require.NoError(t, os.WriteFile(orgsPath, []byte("city,region\n"), 0o644))
	time.Sleep(2 * debounceInterval)
	assert.Equal(t, second.ID, store.Snapshot().ID)

	// The watcher is still alive after the failure.
	require.NoError(t, os.WriteFile(orgsPath, []byte(
		`city,region,by_staff,by_list,buget_limits,cash_execution,equipment,faulty_equipment
Northville,North,100,90,100,90,100,10
`), 0o644))
	third := waitForSnapshot(t, store, func(s *Snapshot) bool { return s.ID != second.ID })
	north, ok = third.Region("North")
	require.True(t, ok)
	assert.InDelta(t, 0.9, north.Indicators.Staffing, 1e-9)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}
