package dataset

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 500 * time.Millisecond

// Watcher rebuilds the snapshot when dataset files change on disk. Bursts
// of filesystem events (editors, rsync) collapse into one reload.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
}

func NewWatcher(store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{store: store, watcher: fw}
	for _, dir := range []string{
		store.paths.RegionsDir,
		filepath.Dir(store.paths.Analytics),
		filepath.Dir(store.paths.Organizations),
	} {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled, reloading after changes settle. A
// failed reload keeps the previous snapshot and the watcher keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	log := logger.Sugar()
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debugw("dataset change detected", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounceInterval)
				fire = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(debounceInterval)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorw("dataset watcher error", "error", err)
		case <-fire:
			timer = nil
			fire = nil
			if _, err := w.store.Reload(ctx); err != nil {
				log.Errorw("auto-reload failed, keeping previous snapshot", "error", err)
			}
		}
	}
}
