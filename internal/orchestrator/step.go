package orchestrator

import (
	"context"

	"github.com/specloop/specloop/internal/runstate"
)

// Step is one named, pluggable unit of work. Steps execute in the order
// they were declared to New.
//
// A step distinguishes three outcomes: a Success result, a Fail result
// (recoverable, eligible for the fix loop when the step is the designated
// fix step), and a returned error (unrecoverable; fails the run).
type Step interface {
	Name() string
	Run(ctx context.Context, rc *RunContext) (Result, error)
}

// RoutingAware is optionally implemented by steps whose work is routed
// through an AI provider. The returned annotation is recorded on the step
// record at start time, for audit; the engine treats it as opaque.
type RoutingAware interface {
	Routing() map[string]string
}

// RunContext is the execution context handed to each step invocation.
type RunContext struct {
	SpecPath string
	RunID    string
	RunDir   string
	WorkDir  string
	State    *runstate.RunState
	Options  Options
}

// ResultStatus tags a step result.
type ResultStatus int

const (
	// ResultSuccess means the step completed and the run may continue.
	ResultSuccess ResultStatus = iota

	// ResultFailed means the step reported a recoverable failure.
	ResultFailed
)

// Failure describes one reported failure, e.g. a failing test case.
type Failure struct {
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// Result is the outcome of a step invocation.
type Result struct {
	Status ResultStatus

	// Outputs is the step-defined payload merged into the step record on
	// completion.
	Outputs map[string]any

	// Failures and Files are populated on a recoverable failure and are
	// forwarded verbatim to the patch-proposal collaborator.
	Failures []Failure
	Files    []string
}

// Success returns a successful result carrying outputs (may be nil).
func Success(outputs map[string]any) Result {
	return Result{Status: ResultSuccess, Outputs: outputs}
}

// Fail returns a recoverable-failure result.
func Fail(failures []Failure, files []string) Result {
	return Result{Status: ResultFailed, Failures: failures, Files: files}
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Status == ResultSuccess
}
