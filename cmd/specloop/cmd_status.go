package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/specloop/specloop/internal/runstate"
)

func statusCmd(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	runDir := fs.String("run-dir", "runs", "Run directory base")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: specloop status [-run-dir DIR] <run-id>")
		return 1
	}

	run, err := runstate.NewStore(*runDir).Load(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	printState(run.State)
	return 0
}

func printState(s *runstate.RunState) {
	fmt.Printf("Run:     %s\n", s.RunID)
	fmt.Printf("Spec:    %s (%s)\n", s.SpecPath, shortHash(s.SpecHash))
	fmt.Printf("Status:  %s\n", s.Status)
	if s.FixIterations > 0 {
		fmt.Printf("Fix attempts: %d/%d\n", s.FixIterations, s.Config.MaxFixIterations)
	}
	fmt.Println("Steps:")
	for _, name := range s.StepOrder {
		rec := s.Step(name)
		line := fmt.Sprintf("  %-20s %s", name, rec.Status)
		if rec.Reason != "" {
			line += fmt.Sprintf(" (%s)", rec.Reason)
		}
		if rec.Error != "" {
			line += fmt.Sprintf(" - %s", firstLine(rec.Error))
		}
		fmt.Println(line)
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
