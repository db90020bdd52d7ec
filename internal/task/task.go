// Package task defines the immutable identity of a single orchestration run.
package task

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Task is the unit of work for one run: created once at run start, read by
// every phase, never mutated.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	RepoPath    string `json:"repo_path"`
}

// New creates a Task with a fresh ID.
func New(title, description, repoPath string) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("task title must not be empty")
	}
	if repoPath == "" {
		return nil, fmt.Errorf("task repo path must not be empty")
	}
	return &Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(description),
		RepoPath:    repoPath,
	}, nil
}

// Slug returns a branch-safe fragment derived from the title.
func (t *Task) Slug() string {
	s := strings.ToLower(t.Title)
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > 40 {
		out = strings.Trim(out[:40], "-")
	}
	if out == "" {
		out = "task"
	}
	return out
}
