package runstate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Snapshot is one observed revision of a run's state document.
type Snapshot struct {
	State *RunState
	Err   error
}

// Watcher follows a run directory's run.json and emits a Snapshot for
// every persisted state transition. Writes are debounced because the
// atomic rename that persists the document can surface as several
// filesystem events.
type Watcher struct {
	runDir   string
	watcher  *fsnotify.Watcher
	events   chan Snapshot
	debounce time.Duration
}

// NewWatcher creates a watcher for the given run directory.
func NewWatcher(runDir string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		runDir:   runDir,
		watcher:  fsWatcher,
		events:   make(chan Snapshot, 10),
		debounce: 100 * time.Millisecond,
	}, nil
}

// Snapshots returns the channel receiving state snapshots.
func (w *Watcher) Snapshots() <-chan Snapshot {
	return w.events
}

// Start emits the current state, then watches for updates until ctx ends.
func (w *Watcher) Start(ctx context.Context) error {
	w.emit()

	if err := w.watcher.Add(w.runDir); err != nil {
		return fmt.Errorf("watch run directory %s: %w", w.runDir, err)
	}

	go w.run(ctx)
	return nil
}

// Stop closes the underlying filesystem watcher; the snapshot channel
// is closed by the watch goroutine once it drains.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.events)

	var pending time.Time
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != StateFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.Now()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.events <- Snapshot{Err: err}

		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= w.debounce {
				pending = time.Time{}
				w.emit()
			}
		}
	}
}

func (w *Watcher) emit() {
	b, err := os.ReadFile(filepath.Join(w.runDir, StateFileName))
	if err != nil {
		w.events <- Snapshot{Err: fmt.Errorf("read run state: %w", err)}
		return
	}
	var state RunState
	if err := json.Unmarshal(b, &state); err != nil {
		// A torn read should be impossible given the atomic rename, but a
		// partially copied run directory is not.
		w.events <- Snapshot{Err: fmt.Errorf("parse run state: %w", err)}
		return
	}
	w.events <- Snapshot{State: &state}
}
