package runstate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// StateFileName is the run-state document inside a run directory.
const StateFileName = "run.json"

// ErrRunNotFound is returned by Load when the run directory is absent.
var ErrRunNotFound = errors.New("run not found")

// Run bundles a run identifier with its directory and in-memory state.
type Run struct {
	ID    string
	Dir   string
	State *RunState
}

// Store allocates run directories under a base path and persists run-state
// documents as whole-file JSON overwrites.
type Store struct {
	Base string
}

// NewStore creates a store rooted at base. The base directory is created
// lazily on the first Create.
func NewStore(base string) *Store {
	return &Store{Base: base}
}

// Create allocates a fresh, collision-free run directory and writes the
// initial run state. Uniqueness is guaranteed by the exclusive Mkdir: a
// colliding ID is retried with a fresh random suffix.
func (s *Store) Create(specPath string, cfg RunConfig, stepOrder []string) (*Run, error) {
	hash, err := HashFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("hash spec %s: %w", specPath, err)
	}

	if err := os.MkdirAll(s.Base, 0755); err != nil {
		return nil, fmt.Errorf("create run base directory: %w", err)
	}

	var id, dir string
	for attempt := 0; attempt < 5; attempt++ {
		candidate := NewRunID()
		candidateDir := filepath.Join(s.Base, candidate)
		mkErr := os.Mkdir(candidateDir, 0755)
		if mkErr == nil {
			id, dir = candidate, candidateDir
			break
		}
		if !os.IsExist(mkErr) {
			return nil, fmt.Errorf("create run directory: %w", mkErr)
		}
	}
	if id == "" {
		return nil, errors.New("could not allocate a unique run directory")
	}

	now := time.Now().UTC()
	run := &Run{
		ID:  id,
		Dir: dir,
		State: &RunState{
			RunID:     id,
			SpecPath:  specPath,
			SpecHash:  hash,
			Status:    StatusPending,
			StepOrder: append([]string(nil), stepOrder...),
			Steps:     make(map[string]*StepRecord),
			Config:    cfg,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if err := s.Save(run); err != nil {
		return nil, err
	}
	return run, nil
}

// Load reads the run-state document for runID.
func (s *Store) Load(runID string) (*Run, error) {
	dir := filepath.Join(s.Base, runID)
	b, err := os.ReadFile(filepath.Join(dir, StateFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	var state RunState
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("load run %s: invalid state document: %w", runID, err)
	}
	return &Run{ID: runID, Dir: dir, State: &state}, nil
}

// Save overwrites the whole run-state document. The write goes through a
// temp file, fsync, and rename so a crash mid-write cannot tear run.json.
func (s *Store) Save(run *Run) error {
	run.State.UpdatedAt = time.Now().UTC()
	return writeJSONAtomic(filepath.Join(run.Dir, StateFileName), run.State)
}

// HashFile returns the hex SHA-256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
