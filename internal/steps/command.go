// Package steps provides the built-in pipeline step implementations.
package steps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/specloop/specloop/internal/orchestrator"
)

// DefaultTimeout bounds a command step that declares no timeout.
const DefaultTimeout = 5 * time.Minute

// outputTailLimit caps how much command output is carried into a
// failure record. The full output still reaches the event log.
const outputTailLimit = 4096

// CommandStep executes a shell command. A non-zero exit is either a
// recoverable failure (the step reports which files to look at and the
// fix loop can take over) or a hard error, depending on Recoverable.
type CommandStep struct {
	StepName    string
	Command     string
	Dir         string
	Timeout     time.Duration
	Recoverable bool

	// WatchFiles lists the files a patch proposer should consider when
	// this step fails recoverably.
	WatchFiles []string
}

func (s *CommandStep) Name() string { return s.StepName }

func (s *CommandStep) Run(ctx context.Context, rc *orchestrator.RunContext) (orchestrator.Result, error) {
	if s.Command == "" {
		return orchestrator.Result{}, fmt.Errorf("step %q: command is required", s.StepName)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", s.Command)
	cmd.Dir = s.Dir
	if cmd.Dir == "" {
		cmd.Dir = rc.WorkDir
	}
	cmd.Env = append(os.Environ(),
		"SPECLOOP_RUN_ID="+rc.RunID,
		"SPECLOOP_RUN_DIR="+rc.RunDir,
		"SPECLOOP_SPEC="+rc.SpecPath,
	)

	output, err := cmd.CombinedOutput()
	if err == nil {
		return orchestrator.Success(map[string]any{
			"command": s.Command,
			"output":  tail(string(output)),
		}), nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return orchestrator.Result{}, fmt.Errorf("step %q: command timed out after %s", s.StepName, timeout)
	}
	if !s.Recoverable {
		return orchestrator.Result{}, fmt.Errorf("step %q: command failed: %w\nOutput: %s", s.StepName, err, tail(string(output)))
	}

	failure := orchestrator.Failure{
		Name:   s.StepName,
		Detail: fmt.Sprintf("%v: %s", err, tail(string(output))),
	}
	return orchestrator.Fail([]orchestrator.Failure{failure}, s.WatchFiles), nil
}

// tail keeps the last outputTailLimit bytes of s, which is where test
// runners put the interesting part.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= outputTailLimit {
		return s
	}
	return "..." + s[len(s)-outputTailLimit:]
}
