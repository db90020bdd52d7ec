package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store persists per-run artifacts (rendered prompts, agent transcripts,
// the final result record) outside the worktree so they survive teardown.
type Store struct {
	baseDir string // defaults to ~/.prpilot/runs
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.prpilot/runs, creating the directory
// if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".prpilot", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// runDir returns the directory for one run.
func (s *Store) runDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// SavePrompt writes the rendered prompt for a phase attempt.
func (s *Store) SavePrompt(runID string, phase string, cycle int, prompt string) error {
	path := filepath.Join(s.runDir(runID), fmt.Sprintf("%s-%d.prompt.md", phase, cycle))
	return WriteAtomic(path, []byte(prompt))
}

// SaveTranscript writes the agent's result text for a phase attempt.
func (s *Store) SaveTranscript(runID string, phase string, cycle int, text string) error {
	path := filepath.Join(s.runDir(runID), fmt.Sprintf("%s-%d.transcript.md", phase, cycle))
	return WriteAtomic(path, []byte(text))
}

// SaveResult writes the final structured run result as JSON.
func (s *Store) SaveResult(runID string, v interface{}) error {
	return WriteJSON(filepath.Join(s.runDir(runID), "result.json"), v)
}
