// Package runstate owns the persisted run-state document and the run
// directory it lives in. The run.json file is the single source of truth
// for a run's progress; every state transition is written back in full
// before the orchestrator moves on.
package runstate

import "time"

// Status is the lifecycle status of a run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusStopped    Status = "stopped"
)

// StepStatus is the lifecycle status of a single step within a run.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepRecord tracks one step's progress. Outputs accumulate across
// retries; they are merged on completion, never reset.
type StepRecord struct {
	Status      StepStatus        `json:"status"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	FailedAt    *time.Time        `json:"failed_at,omitempty"`
	SkippedAt   *time.Time        `json:"skipped_at,omitempty"`
	Outputs     map[string]any    `json:"outputs,omitempty"`
	Error       string            `json:"error,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Routing     map[string]string `json:"routing,omitempty"`
}

// Terminal reports whether the step has reached a final state.
func (r *StepRecord) Terminal() bool {
	switch r.Status {
	case StepCompleted, StepFailed, StepSkipped:
		return true
	}
	return false
}

// RunConfig echoes the options a run was started with, for audit.
type RunConfig struct {
	FromStep         string `json:"from_step,omitempty"`
	StopAfter        string `json:"stop_after,omitempty"`
	MaxFixIterations int    `json:"max_fix_iterations"`
	DryRun           bool   `json:"dry_run,omitempty"`
	FixDryRun        bool   `json:"fix_dry_run,omitempty"`
	FixStep          string `json:"fix_step,omitempty"`
	CostEstimate     string `json:"cost_estimate,omitempty"`
}

// RunState is the persisted run document. StepOrder preserves declaration
// order (which is execution order); Steps holds the per-step records,
// created lazily as each step is reached.
type RunState struct {
	RunID         string                 `json:"run_id"`
	SpecPath      string                 `json:"spec_path"`
	SpecHash      string                 `json:"spec_hash"`
	Status        Status                 `json:"status"`
	FixIterations int                    `json:"fix_iterations"`
	StepOrder     []string               `json:"step_order"`
	Steps         map[string]*StepRecord `json:"steps"`
	Config        RunConfig              `json:"config"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
}

// Step returns the record for name, creating a pending one if absent.
func (s *RunState) Step(name string) *StepRecord {
	if s.Steps == nil {
		s.Steps = make(map[string]*StepRecord)
	}
	rec, ok := s.Steps[name]
	if !ok {
		rec = &StepRecord{Status: StepPending}
		s.Steps[name] = rec
	}
	return rec
}

// MarkStepRunning records the start of a step, including any routing
// metadata supplied by the step's model-routing collaborator.
func (s *RunState) MarkStepRunning(name string, routing map[string]string) {
	rec := s.Step(name)
	now := time.Now().UTC()
	rec.Status = StepRunning
	rec.StartedAt = &now
	if len(routing) > 0 {
		rec.Routing = routing
	}
}

// MarkStepCompleted records a successful step and merges its outputs into
// the record.
func (s *RunState) MarkStepCompleted(name string, outputs map[string]any) {
	rec := s.Step(name)
	now := time.Now().UTC()
	rec.Status = StepCompleted
	rec.CompletedAt = &now
	rec.Error = ""
	if len(outputs) > 0 {
		if rec.Outputs == nil {
			rec.Outputs = make(map[string]any, len(outputs))
		}
		for k, v := range outputs {
			rec.Outputs[k] = v
		}
	}
}

// MarkStepFailed records a terminal step failure.
func (s *RunState) MarkStepFailed(name, msg string) {
	rec := s.Step(name)
	now := time.Now().UTC()
	rec.Status = StepFailed
	rec.FailedAt = &now
	rec.Error = msg
}

// MarkStepSkipped records that a step was deliberately not executed.
func (s *RunState) MarkStepSkipped(name, reason string) {
	rec := s.Step(name)
	now := time.Now().UTC()
	rec.Status = StepSkipped
	rec.SkippedAt = &now
	rec.Reason = reason
}
