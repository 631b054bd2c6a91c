package propose

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specloop/specloop/internal/orchestrator"
)

func testRequest() orchestrator.ProposalRequest {
	return orchestrator.ProposalRequest{
		Failures: []orchestrator.Failure{{Name: "TestX", Detail: "assertion failed"}},
		Files:    []string{"x.go"},
	}
}

func TestCommandProposerParsesPlan(t *testing.T) {
	p := &CommandProposer{
		Command: `printf '%s' '{"patches":[{"diff":"--- a/x.go\n+++ b/x.go\n"}]}'`,
	}
	plan, err := p.Propose(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, plan.Patches, 1)
	assert.Contains(t, plan.Patches[0].Diff, "--- a/x.go")
}

func TestCommandProposerReceivesRequestOnStdin(t *testing.T) {
	// The tool echoes the request back wrapped in a plan, proving the
	// failure report arrived intact.
	p := &CommandProposer{
		Command: `printf '{"patches":[{"diff":"%s"}]}' "$(cat | tr -d '\n' | tr '"' '_')"`,
	}
	plan, err := p.Propose(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, plan.Patches, 1)
	assert.Contains(t, plan.Patches[0].Diff, "TestX")
	assert.Contains(t, plan.Patches[0].Diff, "x.go")
}

func TestCommandProposerToleratesLogNoise(t *testing.T) {
	p := &CommandProposer{
		Command: `echo "thinking..."; echo '{"patches":[]}'`,
	}
	plan, err := p.Propose(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, plan.Patches)
}

func TestCommandProposerEmptyOutputMeansNoFix(t *testing.T) {
	p := &CommandProposer{Command: "true"}
	plan, err := p.Propose(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, plan.Patches)
}

func TestCommandProposerFailureIncludesStderr(t *testing.T) {
	p := &CommandProposer{Command: `echo "rate limited" >&2; exit 1`}
	_, err := p.Propose(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Contains(t, err.Error(), "exit code 1")
}

func TestCommandProposerMalformedOutput(t *testing.T) {
	p := &CommandProposer{Command: `echo '{"patches": oops'`}
	_, err := p.Propose(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode patch plan")
}

func TestCommandProposerTimeout(t *testing.T) {
	p := &CommandProposer{Command: "sleep 5", Timeout: 50 * time.Millisecond}
	_, err := p.Propose(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestCommandProposerRetriesTransientFailures(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "attempted")
	t.Setenv("PROPOSE_MARKER", marker)

	p := &CommandProposer{
		Command: `if [ -f "$PROPOSE_MARKER" ]; then echo '{"patches":[]}'; else touch "$PROPOSE_MARKER"; echo "rate limited" >&2; exit 1; fi`,
		Retries: 2,
	}
	plan, err := p.Propose(context.Background(), testRequest())
	require.NoError(t, err, "second attempt should succeed")
	assert.Empty(t, plan.Patches)
}

func TestCommandProposerDoesNotRetryMalformedOutput(t *testing.T) {
	counter := filepath.Join(t.TempDir(), "calls")
	t.Setenv("PROPOSE_COUNTER", counter)

	p := &CommandProposer{
		Command: `echo x >> "$PROPOSE_COUNTER"; echo '{"patches": oops'`,
		Retries: 3,
	}
	_, err := p.Propose(context.Background(), testRequest())
	require.Error(t, err)

	data, readErr := os.ReadFile(counter)
	require.NoError(t, readErr)
	assert.Equal(t, "x\n", string(data), "malformed output must not be retried")
}

func TestCommandProposerRequiresCommand(t *testing.T) {
	p := &CommandProposer{}
	_, err := p.Propose(context.Background(), testRequest())
	require.Error(t, err)
}
