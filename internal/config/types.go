// Package config loads and validates pipeline configuration files.
package config

import "time"

// Pipeline is a pipeline definition loaded from YAML: the spec it
// implements, where runs live, the ordered steps, and the fix-loop
// settings.
type Pipeline struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Spec is the path to the specification document a run executes
	// against. Its hash is recorded in the run state.
	Spec string `yaml:"spec"`

	// RunDir is the base directory run directories are created under.
	// Defaults to "runs".
	RunDir string `yaml:"run_dir,omitempty"`

	// WorkDir is the working tree steps and patches operate on.
	// Defaults to ".".
	WorkDir string `yaml:"work_dir,omitempty"`

	// FixStep names the step whose recoverable failures enter the fix
	// loop, typically the test-execution step.
	FixStep string `yaml:"fix_step,omitempty"`

	// MaxFixIterations caps fix attempts per run. Zero disables the
	// fix loop.
	MaxFixIterations int `yaml:"max_fix_iterations,omitempty"`

	// CostEstimate is an advisory figure echoed into the run state.
	CostEstimate string `yaml:"cost_estimate,omitempty"`

	Proposer *ProposerConfig `yaml:"proposer,omitempty"`
	Steps    []StepConfig    `yaml:"steps"`
}

// StepConfig defines a single pipeline step.
type StepConfig struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
	Timeout string `yaml:"timeout,omitempty"` // e.g. "30s", "5m"

	// Recoverable marks a non-zero exit as a failure report instead of
	// a hard error. Only meaningful for the fix step.
	Recoverable bool `yaml:"recoverable,omitempty"`

	// Files lists the files implicated when this step fails
	// recoverably; they are forwarded to the patch proposer.
	Files []string `yaml:"files,omitempty"`
}

// ProposerConfig defines the external patch-proposal command.
type ProposerConfig struct {
	Command string `yaml:"command"`
	Dir     string `yaml:"dir,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`

	// Retries re-invokes a failed proposer command, with backoff.
	Retries int `yaml:"retries,omitempty"`
}

// GetTimeout parses the step timeout; zero means "use the default".
func (s StepConfig) GetTimeout() time.Duration {
	if s.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// GetTimeout parses the proposer timeout; zero means "use the default".
func (p ProposerConfig) GetTimeout() time.Duration {
	if p.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0
	}
	return d
}
