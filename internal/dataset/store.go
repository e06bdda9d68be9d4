package dataset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrReloadInProgress = errors.New("reload already in progress")

// Store owns the current snapshot and serializes reloads. Readers always
// see a complete snapshot; a failed reload keeps the previous one.
type Store struct {
	paths      Paths
	thresholds Thresholds
	workers    int

	current   atomic.Pointer[Snapshot]
	reloading atomic.Bool

	mu          sync.Mutex
	subscribers []func(*Snapshot)
}

func NewStore(paths Paths, thresholds Thresholds, workers int) *Store {
	return &Store{
		paths:      paths,
		thresholds: thresholds,
		workers:    workers,
	}
}

// Snapshot returns the current snapshot, nil before the first load.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Reloading reports whether a reload is currently running.
func (s *Store) Reloading() bool {
	return s.reloading.Load()
}

// Subscribe registers fn to run after every successful load. Subscribers
// must not block.
func (s *Store) Subscribe(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Reload builds a fresh snapshot and swaps it in. Only one reload runs at
// a time; concurrent calls fail with ErrReloadInProgress.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	if !s.reloading.CompareAndSwap(false, true) {
		return nil, ErrReloadInProgress
	}
	defer s.reloading.Store(false)

	snapshot, err := Load(ctx, s.paths, s.thresholds, s.workers)
	if err != nil {
		return nil, err
	}
	s.current.Store(snapshot)

	s.mu.Lock()
	subscribers := make([]func(*Snapshot), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()
	for _, fn := range subscribers {
		fn(snapshot)
	}
	return snapshot, nil
}
