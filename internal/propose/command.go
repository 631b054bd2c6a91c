// Package propose contains patch-plan proposer implementations.
package propose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/specloop/specloop/internal/orchestrator"
	"github.com/specloop/specloop/internal/resilience"
)

// DefaultTimeout bounds a proposer invocation that declares no timeout.
const DefaultTimeout = 10 * time.Minute

// CommandProposer shells out to an external tool (typically an AI-agent
// CLI) for patch plans. The failure report is written to the tool's
// stdin as JSON; the tool answers with a patch-plan JSON document on
// stdout. Non-zero exits are retried with backoff, since provider rate
// limits surface that way; malformed output is not.
type CommandProposer struct {
	Command string
	Dir     string
	Timeout time.Duration

	// Retries is the number of re-invocations after a failed attempt.
	// Zero means a single attempt.
	Retries int
}

func (p *CommandProposer) Propose(ctx context.Context, req orchestrator.ProposalRequest) (*orchestrator.PatchPlan, error) {
	if p.Command == "" {
		return nil, fmt.Errorf("proposer: command is required")
	}

	input, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("proposer: encode request: %w", err)
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxRetries = p.Retries

	var plan *orchestrator.PatchPlan
	err = resilience.Retry(ctx, retryCfg, func(ctx context.Context) error {
		var attemptErr error
		plan, attemptErr = p.invoke(ctx, input)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *CommandProposer) invoke(ctx context.Context, input []byte) (*orchestrator.PatchPlan, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", p.Command)
	cmd.Dir = p.Dir
	cmd.Stdin = bytes.NewReader(input)
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("proposer: timeout after %s", timeout)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("proposer: exit code %d: %s", exitErr.ExitCode(), detail)
		}
		return nil, fmt.Errorf("proposer: %w", err)
	}

	plan, err := decodePlan(stdout.Bytes())
	if err != nil {
		// A tool that exits zero but prints garbage will keep doing so.
		return nil, resilience.Permanent(fmt.Errorf("proposer: %w", err))
	}
	return plan, nil
}

// decodePlan parses a patch-plan document, tolerating log noise the
// tool may print before the JSON object.
func decodePlan(out []byte) (*orchestrator.PatchPlan, error) {
	trimmed := bytes.TrimSpace(out)
	if idx := bytes.IndexByte(trimmed, '{'); idx > 0 {
		trimmed = trimmed[idx:]
	}
	if len(trimmed) == 0 {
		return &orchestrator.PatchPlan{}, nil
	}

	var plan orchestrator.PatchPlan
	if err := json.Unmarshal(trimmed, &plan); err != nil {
		return nil, fmt.Errorf("decode patch plan: %w", err)
	}
	return &plan, nil
}
