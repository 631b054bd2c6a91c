package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
name: demo
spec: spec.md
fix_step: run-tests
max_fix_iterations: 3
proposer:
  command: propose-fix
steps:
  - name: generate
    command: gen code
  - name: run-tests
    command: go test ./...
    timeout: 2m
    recoverable: true
    files:
      - main.go
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if p.Name != "demo" {
		t.Errorf("expected name 'demo', got %s", p.Name)
	}
	if len(p.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(p.Steps))
	}
	if p.Steps[1].Name != "run-tests" || !p.Steps[1].Recoverable {
		t.Errorf("unexpected second step: %+v", p.Steps[1])
	}
	if got := p.Steps[1].GetTimeout(); got != 2*time.Minute {
		t.Errorf("expected 2m timeout, got %s", got)
	}
	if p.MaxFixIterations != 3 {
		t.Errorf("expected max_fix_iterations 3, got %d", p.MaxFixIterations)
	}
	if p.Proposer == nil || p.Proposer.Command != "propose-fix" {
		t.Errorf("unexpected proposer: %+v", p.Proposer)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
name: demo
spec: spec.md
steps:
  - name: build
    command: make
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.RunDir != "runs" {
		t.Errorf("expected default run_dir 'runs', got %s", p.RunDir)
	}
	if p.WorkDir != "." {
		t.Errorf("expected default work_dir '.', got %s", p.WorkDir)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("PIPELINE_SPEC", "docs/spec.md")
	path := writeConfig(t, `
name: demo
spec: ${PIPELINE_SPEC}
run_dir: ${PIPELINE_RUNS:-/tmp/runs}
steps:
  - name: build
    command: make
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Spec != "docs/spec.md" {
		t.Errorf("expected expanded spec path, got %s", p.Spec)
	}
	if p.RunDir != "/tmp/runs" {
		t.Errorf("expected default-expanded run_dir, got %s", p.RunDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "name: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadAndValidateRejectsBadConfig(t *testing.T) {
	path := writeConfig(t, `
name: demo
spec: spec.md
fix_step: missing
steps:
  - name: build
    command: make
`)

	if _, err := LoadAndValidate(path); err == nil {
		t.Fatal("expected validation failure for unknown fix_step")
	}
}
