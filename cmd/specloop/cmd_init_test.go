package main

import (
	"path/filepath"
	"testing"

	"github.com/specloop/specloop/internal/config"
)

func TestInitWritesLoadableConfig(t *testing.T) {
	out := filepath.Join(t.TempDir(), "specloop.yaml")

	if code := initCmd([]string{"-o", out, "-spec", "docs/spec.md"}); code != 0 {
		t.Fatalf("initCmd returned %d", code)
	}

	p, err := config.LoadAndValidate(out)
	if err != nil {
		t.Fatalf("generated config did not validate: %v", err)
	}
	if p.Spec != "docs/spec.md" {
		t.Errorf("expected spec docs/spec.md, got %s", p.Spec)
	}
	if p.FixStep != "run-tests" {
		t.Errorf("expected fix_step run-tests, got %s", p.FixStep)
	}
	if len(p.Steps) != 3 {
		t.Errorf("expected 3 steps, got %d", len(p.Steps))
	}
}

func TestInitRefusesToOverwrite(t *testing.T) {
	out := filepath.Join(t.TempDir(), "specloop.yaml")

	if code := initCmd([]string{"-o", out}); code != 0 {
		t.Fatalf("first initCmd returned %d", code)
	}
	if code := initCmd([]string{"-o", out}); code == 0 {
		t.Fatal("second initCmd should refuse to overwrite")
	}
	if code := initCmd([]string{"-o", out, "-force"}); code != 0 {
		t.Fatal("initCmd -force should overwrite")
	}
}
