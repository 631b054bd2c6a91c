// Package orchestrator sequences a declared list of steps against a
// persisted run, with resume, partial-run, and dry-run semantics and a
// bounded fix loop for the designated test-execution step.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/specloop/specloop/internal/runlog"
	"github.com/specloop/specloop/internal/runstate"
)

// Options is the orchestrator's options bag. Zero values mean: start a
// new run, execute every step, apply no step skipping, fix loop disabled.
type Options struct {
	// SpecPath is the specification document driving the run.
	SpecPath string

	// Resume names an existing run ID to continue instead of creating a
	// new run.
	Resume string

	// FromStep restarts execution at the named step; earlier steps that
	// are not already completed are marked skipped.
	FromStep string

	// StopAfter halts the run (status "stopped") once the named step
	// completes. The run remains resumable.
	StopAfter string

	// DryRun marks every step skipped without invoking it.
	DryRun bool

	// FixDryRun records proposed patch plans without applying them.
	FixDryRun bool

	// MaxFixIterations caps fix-loop attempts across the whole run,
	// including previous attempts of a resumed run. 0 disables the loop.
	MaxFixIterations int

	// FixStep names the step whose recoverable failures enter the fix
	// loop. Failures of any other step are terminal.
	FixStep string

	// ListSteps returns the ordered step names without creating a run.
	ListSteps bool

	// RunDirBase is the directory run directories are allocated under.
	// Defaults to "runs".
	RunDirBase string

	// WorkDir is the root patches are applied beneath. Defaults to ".".
	WorkDir string

	// CostEstimate is echoed into the run config for audit.
	CostEstimate string
}

// Report summarizes an Execute call.
type Report struct {
	RunID     string
	RunDir    string
	Status    runstate.Status
	StepNames []string
}

// Orchestrator drives one run of the step pipeline. It is single-writer:
// exactly one orchestrator process may drive a given run at a time,
// enforced by the run directory's advisory lock.
type Orchestrator struct {
	steps    []Step
	proposer Proposer
	opts     Options
	logger   *zap.Logger
	store    *runstate.Store
}

// New validates the step list and options and returns an orchestrator.
// Validation failures are configuration errors: they happen before any
// run directory or state is created.
func New(steps []Step, proposer Proposer, opts Options, logger *zap.Logger) (*Orchestrator, error) {
	if len(steps) == 0 {
		return nil, errors.New("orchestrator: at least one step is required")
	}
	seen := make(map[string]bool, len(steps))
	for i, step := range steps {
		if step == nil {
			return nil, fmt.Errorf("orchestrator: step[%d] is nil", i)
		}
		name := step.Name()
		if name == "" {
			return nil, fmt.Errorf("orchestrator: step[%d] has an empty name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("orchestrator: duplicate step name %q", name)
		}
		seen[name] = true
	}
	if opts.MaxFixIterations < 0 {
		return nil, fmt.Errorf("orchestrator: max fix iterations must be >= 0, got %d", opts.MaxFixIterations)
	}
	if opts.FromStep != "" && !seen[opts.FromStep] {
		return nil, fmt.Errorf("orchestrator: unknown from-step %q", opts.FromStep)
	}
	if opts.StopAfter != "" && !seen[opts.StopAfter] {
		return nil, fmt.Errorf("orchestrator: unknown stop-after step %q", opts.StopAfter)
	}
	if opts.FixStep != "" && !seen[opts.FixStep] {
		return nil, fmt.Errorf("orchestrator: unknown fix step %q", opts.FixStep)
	}
	if opts.MaxFixIterations > 0 && opts.FixStep != "" && proposer == nil {
		return nil, errors.New("orchestrator: fix loop enabled but no patch proposer configured")
	}
	if opts.RunDirBase == "" {
		opts.RunDirBase = "runs"
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		steps:    steps,
		proposer: proposer,
		opts:     opts,
		logger:   logger,
		store:    runstate.NewStore(opts.RunDirBase),
	}, nil
}

// StepNames returns the step names in declaration order.
func (o *Orchestrator) StepNames() []string {
	names := make([]string, len(o.steps))
	for i, s := range o.steps {
		names[i] = s.Name()
	}
	return names
}

// Execute runs the pipeline. Terminal errors are recorded in the run
// state and event log before being returned; the returned Report carries
// the run's final persisted status either way.
func (o *Orchestrator) Execute(ctx context.Context) (*Report, error) {
	if o.opts.ListSteps {
		return &Report{StepNames: o.StepNames()}, nil
	}

	run, err := o.openRun()
	if err != nil {
		return nil, err
	}
	report := &Report{RunID: run.ID, RunDir: run.Dir, StepNames: o.StepNames()}

	release, err := runstate.AcquireLock(run.Dir, run.ID)
	if err != nil {
		return report, err
	}
	defer func() { _ = release() }()

	log, err := runlog.OpenEventLog(run.Dir)
	if err != nil {
		return report, err
	}
	defer func() { _ = log.Close() }()

	if o.opts.Resume != "" {
		o.checkSpecHash(run, log)
	}

	startIdx := 0
	if o.opts.FromStep != "" {
		for i, step := range o.steps {
			if step.Name() == o.opts.FromStep {
				startIdx = i
				break
			}
		}
		for i := 0; i < startIdx; i++ {
			name := o.steps[i].Name()
			if run.State.Step(name).Status != runstate.StepCompleted {
				run.State.MarkStepSkipped(name, "from-step")
				log.Info(name, "step skipped by from-step")
			}
		}
	}

	run.State.Status = runstate.StatusInProgress
	if err := o.store.Save(run); err != nil {
		report.Status = run.State.Status
		return report, err
	}

	for i := startIdx; i < len(o.steps); i++ {
		step := o.steps[i]
		name := step.Name()

		if o.opts.Resume != "" && o.opts.FromStep == "" &&
			run.State.Step(name).Status == runstate.StepCompleted {
			o.logger.Info("step already completed, skipping", zap.String("step", name))
			log.Info(name, "step already completed; skipping")
			continue
		}

		if o.opts.DryRun {
			run.State.MarkStepSkipped(name, "dry-run")
			if err := o.store.Save(run); err != nil {
				report.Status = run.State.Status
				return report, err
			}
			log.Info(name, "dry-run: step skipped")
			continue
		}

		var routing map[string]string
		if ra, ok := step.(RoutingAware); ok {
			routing = ra.Routing()
		}
		run.State.MarkStepRunning(name, routing)
		if err := o.store.Save(run); err != nil {
			report.Status = run.State.Status
			return report, err
		}
		log.Info(name, "step started")
		o.logger.Info("running step", zap.String("step", name), zap.String("run_id", run.ID))

		rc := &RunContext{
			SpecPath: run.State.SpecPath,
			RunID:    run.ID,
			RunDir:   run.Dir,
			WorkDir:  o.opts.WorkDir,
			State:    run.State,
			Options:  o.opts,
		}

		res, stepErr := step.Run(ctx, rc)
		if stepErr == nil && !res.OK() {
			if name == o.opts.FixStep && o.opts.MaxFixIterations > 0 {
				res, stepErr = o.runFixLoop(ctx, run, log, step, rc, res)
			} else {
				stepErr = fmt.Errorf(
					"step %q reported failure: %s (fix loop disabled; set max fix iterations > 0 and designate a fix step to attempt automated fixes)",
					name, summarizeFailures(res.Failures))
			}
		}

		if stepErr != nil {
			run.State.MarkStepFailed(name, stepErr.Error())
			run.State.Status = runstate.StatusFailed
			if saveErr := o.store.Save(run); saveErr != nil {
				report.Status = run.State.Status
				return report, saveErr
			}
			log.Error(name, "step failed", zap.String("error", stepErr.Error()))
			o.logger.Error("step failed", zap.String("step", name), zap.Error(stepErr))
			report.Status = run.State.Status
			return report, stepErr
		}

		run.State.MarkStepCompleted(name, res.Outputs)
		if err := o.store.Save(run); err != nil {
			report.Status = run.State.Status
			return report, err
		}
		checkpoint := map[string]any{
			"step":         name,
			"completed_at": run.State.Step(name).CompletedAt,
		}
		if len(res.Outputs) > 0 {
			checkpoint["outputs"] = res.Outputs
		}
		if err := runlog.WriteCheckpoint(run.Dir, name, checkpoint); err != nil {
			report.Status = run.State.Status
			return report, fmt.Errorf("write checkpoint for step %q: %w", name, err)
		}
		log.Info(name, "step completed")

		if name == o.opts.StopAfter {
			run.State.Status = runstate.StatusStopped
			if err := o.store.Save(run); err != nil {
				report.Status = run.State.Status
				return report, err
			}
			log.Info(name, "run stopped by stop-after; later steps remain pending")
			report.Status = run.State.Status
			return report, nil
		}
	}

	now := time.Now().UTC()
	run.State.Status = runstate.StatusCompleted
	run.State.CompletedAt = &now
	if err := o.store.Save(run); err != nil {
		report.Status = run.State.Status
		return report, err
	}
	log.Info("", "run completed")
	report.Status = run.State.Status
	return report, nil
}

// openRun loads the resumed run or creates a fresh one.
func (o *Orchestrator) openRun() (*runstate.Run, error) {
	if o.opts.Resume != "" {
		run, err := o.store.Load(o.opts.Resume)
		if err != nil {
			return nil, err
		}
		if run.State.Status == runstate.StatusFailed && o.opts.FromStep == "" {
			return nil, fmt.Errorf(
				"run %s previously failed; restart it explicitly with a from-step", run.ID)
		}
		return run, nil
	}

	cfg := runstate.RunConfig{
		FromStep:         o.opts.FromStep,
		StopAfter:        o.opts.StopAfter,
		MaxFixIterations: o.opts.MaxFixIterations,
		DryRun:           o.opts.DryRun,
		FixDryRun:        o.opts.FixDryRun,
		FixStep:          o.opts.FixStep,
		CostEstimate:     o.opts.CostEstimate,
	}
	return o.store.Create(o.opts.SpecPath, cfg, o.StepNames())
}

// checkSpecHash warns when the spec changed underneath a resumed run.
// A mismatch is deliberately not fatal: the operator decides.
func (o *Orchestrator) checkSpecHash(run *runstate.Run, log *runlog.EventLog) {
	hash, err := runstate.HashFile(run.State.SpecPath)
	if err != nil {
		log.Warn("", "could not re-hash spec on resume", zap.String("error", err.Error()))
		return
	}
	if hash != run.State.SpecHash {
		log.Warn("", "spec content changed since run was created")
		o.logger.Warn("spec content changed since run was created",
			zap.String("run_id", run.ID),
			zap.String("spec_path", run.State.SpecPath))
	}
}

func summarizeFailures(failures []Failure) string {
	if len(failures) == 0 {
		return "no failure details reported"
	}
	first := failures[0]
	if len(failures) == 1 {
		return fmt.Sprintf("%s: %s", first.Name, first.Detail)
	}
	return fmt.Sprintf("%s: %s (and %d more)", first.Name, first.Detail, len(failures)-1)
}
