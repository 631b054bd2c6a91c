package runstate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForSnapshot(t *testing.T, ch <-chan Snapshot, want Status) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case snap := <-ch:
			if snap.Err != nil {
				continue
			}
			if snap.State.Status == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot with status %s", want)
		}
	}
}

func TestWatcherDeliversStateSnapshots(t *testing.T) {
	dir := t.TempDir()
	spec := writeSpec(t, dir)
	store := NewStore(filepath.Join(dir, "runs"))

	run, err := store.Create(spec, RunConfig{}, []string{"a"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	w, err := NewWatcher(run.Dir)
	if err != nil {
		t.Fatalf("NewWatcher error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	// Initial snapshot reflects the state on disk.
	waitForSnapshot(t, w.Snapshots(), StatusPending)

	run.State.Status = StatusInProgress
	if err := store.Save(run); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	waitForSnapshot(t, w.Snapshots(), StatusInProgress)

	cancel()
	_ = w.Stop()
}

func TestWatcherReportsMissingState(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	select {
	case snap := <-w.Snapshots():
		if snap.Err == nil {
			t.Fatal("expected error snapshot for missing run.json")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error snapshot")
	}

	cancel()
	_ = w.Stop()

	// The directory is still usable afterwards.
	if err := os.WriteFile(filepath.Join(dir, StateFileName), []byte("{}"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
