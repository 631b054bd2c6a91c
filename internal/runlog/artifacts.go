package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArtifactsDirName is the artifacts subdirectory of a run directory.
const ArtifactsDirName = "artifacts"

// CheckpointFileName is the per-step completion marker payload.
const CheckpointFileName = "checkpoint.json"

// PatchPlanFileName is the persisted proposal for one fix attempt.
const PatchPlanFileName = "patch-plan.json"

// DryRunMarkerName marks a fix attempt that recorded its plan without
// applying any patch.
const DryRunMarkerName = "dry-run.marker"

// WriteCheckpoint writes the completion artifact for a step under
// artifacts/<step>/checkpoint.json.
func WriteCheckpoint(runDir, step string, payload map[string]any) error {
	dir := filepath.Join(runDir, ArtifactsDirName, step)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}
	return writeJSON(filepath.Join(dir, CheckpointFileName), payload)
}

// CheckpointExists reports whether a step has a completion artifact.
func CheckpointExists(runDir, step string) bool {
	_, err := os.Stat(filepath.Join(runDir, ArtifactsDirName, step, CheckpointFileName))
	return err == nil
}

// FixAttemptDir returns the artifact directory for a fix iteration,
// named by its zero-padded iteration number.
func FixAttemptDir(runDir string, iteration int) string {
	return filepath.Join(runDir, ArtifactsDirName, fmt.Sprintf("fix-attempt-%03d", iteration))
}

// WriteFixAttempt persists a fix iteration's patch plan before any
// mutation is attempted, so every attempt is reconstructable.
func WriteFixAttempt(runDir string, iteration int, plan any) error {
	dir := FixAttemptDir(runDir, iteration)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create fix-attempt directory: %w", err)
	}
	return writeJSON(filepath.Join(dir, PatchPlanFileName), plan)
}

// WriteFixDryRunMarker records that an attempt's plan was captured but
// deliberately not applied.
func WriteFixDryRunMarker(runDir string, iteration int) error {
	dir := FixAttemptDir(runDir, iteration)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create fix-attempt directory: %w", err)
	}
	line := fmt.Sprintf("fix dry-run: plan recorded, no patches applied (%s)\n",
		time.Now().UTC().Format(time.RFC3339))
	return os.WriteFile(filepath.Join(dir, DryRunMarkerName), []byte(line), 0644)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
