package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/specloop/specloop/internal/patch"
	"github.com/specloop/specloop/internal/runlog"
	"github.com/specloop/specloop/internal/runstate"
)

// ErrFixExhausted means the fix loop hit its iteration cap while the fix
// step was still failing.
var ErrFixExhausted = errors.New("fix loop exhausted")

// runFixLoop drives the bounded request-patch / apply / re-run cycle for
// the fix step. The iteration counter lives in the persisted run state,
// so a loop interrupted by a crash resumes its count instead of starting
// over.
func (o *Orchestrator) runFixLoop(ctx context.Context, run *runstate.Run, log *runlog.EventLog,
	step Step, rc *RunContext, res Result) (Result, error) {

	name := step.Name()

	for !res.OK() {
		if run.State.FixIterations >= o.opts.MaxFixIterations {
			return res, fmt.Errorf("%w: step %q still failing after %d attempt(s)",
				ErrFixExhausted, name, run.State.FixIterations)
		}

		run.State.FixIterations++
		iteration := run.State.FixIterations
		if err := o.store.Save(run); err != nil {
			return res, err
		}
		log.Info(name, fmt.Sprintf("fix attempt %d: requesting patch plan", iteration),
			zap.Int("failures", len(res.Failures)))
		o.logger.Info("requesting patch plan",
			zap.String("step", name), zap.Int("attempt", iteration))

		plan, err := o.proposer.Propose(ctx, ProposalRequest{Failures: res.Failures, Files: res.Files})
		if err != nil {
			return res, fmt.Errorf("fix attempt %d: proposer: %w", iteration, err)
		}
		if plan == nil {
			plan = &PatchPlan{}
		}

		// The plan is persisted before any mutation so every attempt is
		// reconstructable, applied or not.
		if err := runlog.WriteFixAttempt(run.Dir, iteration, plan); err != nil {
			return res, fmt.Errorf("fix attempt %d: %w", iteration, err)
		}

		if o.opts.FixDryRun {
			if err := runlog.WriteFixDryRunMarker(run.Dir, iteration); err != nil {
				return res, fmt.Errorf("fix attempt %d: %w", iteration, err)
			}
			log.Info(name, fmt.Sprintf("fix dry-run: recorded %d patch(es) without applying", len(plan.Patches)))
			return res, fmt.Errorf("fix dry-run: step %q still failing; %d patch(es) recorded under %s without applying",
				name, len(plan.Patches), runlog.FixAttemptDir(run.Dir, iteration))
		}

		for i, entry := range plan.Patches {
			if strings.TrimSpace(entry.Diff) == "" {
				return res, fmt.Errorf("fix attempt %d: patch %d has no diff text", iteration, i+1)
			}
			if err := patch.Apply(entry.Diff, o.opts.WorkDir); err != nil {
				return res, fmt.Errorf("fix attempt %d: apply patch %d: %w", iteration, i+1, err)
			}
		}
		log.Info(name, fmt.Sprintf("fix attempt %d: applied %d patch(es); re-running step", iteration, len(plan.Patches)))

		next, err := step.Run(ctx, rc)
		if err != nil {
			return next, err
		}
		res = next
	}

	return res, nil
}
