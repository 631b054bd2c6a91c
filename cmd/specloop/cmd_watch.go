package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/specloop/specloop/internal/runstate"
)

func watchCmd(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	runDir := fs.String("run-dir", "runs", "Run directory base")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: specloop watch [-run-dir DIR] <run-id>")
		return 1
	}
	runID := fs.Arg(0)

	w, err := runstate.NewWatcher(filepath.Join(*runDir, runID))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := w.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	for snap := range w.Snapshots() {
		if snap.Err != nil {
			fmt.Fprintln(os.Stderr, snap.Err)
			continue
		}
		fmt.Println("---")
		printState(snap.State)
		if terminal(snap.State.Status) {
			return 0
		}
	}
	return 0
}
