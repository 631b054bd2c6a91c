package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/specloop/specloop/internal/banner"
	"github.com/specloop/specloop/internal/config"
	"github.com/specloop/specloop/internal/orchestrator"
	"github.com/specloop/specloop/internal/propose"
	"github.com/specloop/specloop/internal/runstate"
	"github.com/specloop/specloop/internal/steps"
)

func runCmd(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configFile := fs.String("config", "specloop.yaml", "Path to pipeline config file")
	spec := fs.String("spec", "", "Override the spec path from the config")
	resume := fs.String("resume", "", "Resume an existing run by ID")
	fromStep := fs.String("from-step", "", "Skip steps before this one")
	stopAfter := fs.String("stop-after", "", "Stop the run after this step completes")
	dryRun := fs.Bool("dry-run", false, "Record the plan without executing any step")
	fixDryRun := fs.Bool("fix-dry-run", false, "Record proposed patches without applying them")
	maxFix := fs.Int("max-fix-iterations", -1, "Override the fix iteration cap (-1 = use config)")
	listSteps := fs.Bool("list-steps", false, "Print the step names and exit")
	runDir := fs.String("run-dir", "", "Override the run directory base")
	workDir := fs.String("work-dir", "", "Override the working tree")
	verbose := fs.Bool("v", false, "Verbose console logging")
	fs.Parse(args)

	cfg, err := config.LoadAndValidate(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	opts := optionsFromConfig(cfg)
	if *spec != "" {
		opts.SpecPath = *spec
	}
	opts.Resume = *resume
	opts.FromStep = *fromStep
	opts.StopAfter = *stopAfter
	opts.DryRun = *dryRun
	opts.FixDryRun = *fixDryRun
	opts.ListSteps = *listSteps
	if *maxFix >= 0 {
		opts.MaxFixIterations = *maxFix
	}
	if *runDir != "" {
		opts.RunDirBase = *runDir
	}
	if *workDir != "" {
		opts.WorkDir = *workDir
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer func() { _ = logger.Sync() }()
	}

	o, err := orchestrator.New(buildSteps(cfg), buildProposer(cfg), opts, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if !*listSteps {
		banner.New().Print(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	report, err := o.Execute(ctx)
	if *listSteps {
		for _, name := range report.StepNames {
			fmt.Println(name)
		}
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		if report != nil && report.RunID != "" {
			fmt.Fprintf(os.Stderr, "Inspect or resume it:\n  specloop status %s\n  specloop run -resume %s -from-step <step>\n",
				report.RunID, report.RunID)
		}
		if errors.Is(err, orchestrator.ErrFixExhausted) {
			return 2
		}
		return 1
	}

	fmt.Printf("Run %s %s\n", report.RunID, report.Status)
	fmt.Printf("State and artifacts: %s\n", report.RunDir)
	return 0
}

func optionsFromConfig(cfg *config.Pipeline) orchestrator.Options {
	return orchestrator.Options{
		SpecPath:         cfg.Spec,
		RunDirBase:       cfg.RunDir,
		WorkDir:          cfg.WorkDir,
		FixStep:          cfg.FixStep,
		MaxFixIterations: cfg.MaxFixIterations,
		CostEstimate:     cfg.CostEstimate,
	}
}

func buildSteps(cfg *config.Pipeline) []orchestrator.Step {
	built := make([]orchestrator.Step, 0, len(cfg.Steps))
	for _, sc := range cfg.Steps {
		built = append(built, &steps.CommandStep{
			StepName:    sc.Name,
			Command:     sc.Command,
			Dir:         sc.Dir,
			Timeout:     sc.GetTimeout(),
			Recoverable: sc.Recoverable,
			WatchFiles:  sc.Files,
		})
	}
	return built
}

func buildProposer(cfg *config.Pipeline) orchestrator.Proposer {
	if cfg.Proposer == nil || cfg.Proposer.Command == "" {
		return nil
	}
	return &propose.CommandProposer{
		Command: cfg.Proposer.Command,
		Dir:     cfg.Proposer.Dir,
		Timeout: cfg.Proposer.GetTimeout(),
		Retries: cfg.Proposer.Retries,
	}
}

// terminal reports whether a run status will not change again.
func terminal(s runstate.Status) bool {
	switch s {
	case runstate.StatusCompleted, runstate.StatusFailed, runstate.StatusStopped:
		return true
	}
	return false
}
