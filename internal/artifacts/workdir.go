// Package artifacts manages the handoff documents between the external
// agent and the orchestrator: a git-ignored .prpilot/ directory inside the
// worktree where the agent writes the plan and review documents, plus a
// per-run store under ~/.prpilot/runs/ persisting prompts and transcripts.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the dedicated artifact directory inside the worktree.
const DirName = ".prpilot"

// Workdir wraps the artifact directory of one worktree.
type Workdir struct {
	root string
}

// NewWorkdir creates the artifact directory inside worktree and makes git
// ignore everything in it.
func NewWorkdir(worktree string) (*Workdir, error) {
	root := filepath.Join(worktree, DirName)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", root, err)
	}
	// A self-ignoring .gitignore keeps the handoff docs out of the diff
	// without touching the repository's own ignore rules.
	ignore := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(ignore); os.IsNotExist(err) {
		if err := os.WriteFile(ignore, []byte("*\n"), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", ignore, err)
		}
	}
	return &Workdir{root: root}, nil
}

// PlanPath returns where the agent writes the plan document.
func (w *Workdir) PlanPath() string {
	return filepath.Join(w.root, "plan.md")
}

// ReviewPath returns where a review document for the given cycle goes.
func (w *Workdir) ReviewPath(phase string, cycle int) string {
	return filepath.Join(w.root, fmt.Sprintf("%s-%d.md", phase, cycle))
}

// ReadPlan reads the plan document back.
func (w *Workdir) ReadPlan() (string, error) {
	data, err := os.ReadFile(w.PlanPath())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveReview persists a review transcript for a cycle, best-effort from the
// orchestrator's point of view.
func (w *Workdir) SaveReview(phase string, cycle int, text string) error {
	return WriteAtomic(w.ReviewPath(phase, cycle), []byte(text))
}

// requiredPlanSections are validated by presence-check only, never parsed as
// data.
var requiredPlanSections = []string{"## Approach", "## Steps", "## Risks"}

// ValidatePlan checks the plan document for the required structural
// sections.
func ValidatePlan(plan string) error {
	if strings.TrimSpace(plan) == "" {
		return fmt.Errorf("plan document is empty")
	}
	var missing []string
	for _, section := range requiredPlanSections {
		if !strings.Contains(plan, section) {
			missing = append(missing, section)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("plan document missing sections: %s", strings.Join(missing, ", "))
	}
	return nil
}
