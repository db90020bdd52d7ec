package checks

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Category identifies one class of validation command.
type Category string

const (
	CategoryLint      Category = "lint"
	CategoryTypecheck Category = "typecheck"
	CategoryUnit      Category = "unit"
)

// enforceOrder is the fixed priority in which enforced checks run: cheap
// signals block before expensive ones.
var enforceOrder = []Category{CategoryLint, CategoryTypecheck, CategoryUnit}

// Commands holds the validation command per category. Empty means the
// category is not configured for this project.
type Commands struct {
	Lint      string
	Typecheck string
	Unit      string
}

// For returns the command for a category.
func (c Commands) For(cat Category) string {
	switch cat {
	case CategoryLint:
		return c.Lint
	case CategoryTypecheck:
		return c.Typecheck
	case CategoryUnit:
		return c.Unit
	}
	return ""
}

// Baseline records which categories passed on the untouched worktree and are
// therefore enforced after changes. Computed once, immutable.
type Baseline struct {
	RunLint      bool `json:"run_lint"`
	RunTypecheck bool `json:"run_typecheck"`
	RunUnit      bool `json:"run_unit"`
}

// Enforces reports whether a category is enforced under this baseline.
func (b Baseline) Enforces(cat Category) bool {
	switch cat {
	case CategoryLint:
		return b.RunLint
	case CategoryTypecheck:
		return b.RunTypecheck
	case CategoryUnit:
		return b.RunUnit
	}
	return false
}

// Any reports whether at least one category is enforced.
func (b Baseline) Any() bool {
	return b.RunLint || b.RunTypecheck || b.RunUnit
}

// DetectBaseline runs every configured validation command against the clean
// worktree and records, per category, whether it passed. A category failing
// here is permanently excluded for the run: the agent is never penalized for
// breakage it did not introduce.
func (r *Runner) DetectBaseline(dir string, cmds Commands) (Baseline, error) {
	var b Baseline
	for _, cat := range enforceOrder {
		command := cmds.For(cat)
		if command == "" {
			continue
		}
		inv, err := r.runCommand(dir, command)
		if err != nil {
			return Baseline{}, fmt.Errorf("baseline %s: %w", cat, err)
		}
		passed := inv.exitCode == 0 && !inv.timedOut
		log.Debug().Str("category", string(cat)).Bool("passed", passed).Msg("baseline check")
		switch cat {
		case CategoryLint:
			b.RunLint = passed
		case CategoryTypecheck:
			b.RunTypecheck = passed
		case CategoryUnit:
			b.RunUnit = passed
		}
	}
	return b, nil
}

// Result is the outcome of one enforcement pass. Produced fresh by every
// invocation, never mutated.
type Result struct {
	Passed          bool     `json:"passed"`
	ExitCode        int      `json:"exit_code"`
	Output          string   `json:"output,omitempty"`
	FailureCategory Category `json:"failure_category,omitempty"`
	Classification  string   `json:"classification,omitempty"`
	Message         string   `json:"message,omitempty"`
	Executed        int      `json:"executed"`
}

// Enforce runs the enforced categories in fixed priority order and stops at
// the first failing one. When nothing is enforced (empty baseline or no
// configured commands) it reports success with an explanatory message rather
// than skipping silently.
func (r *Runner) Enforce(dir string, cmds Commands, baseline Baseline) (*Result, error) {
	executed := 0
	for _, cat := range enforceOrder {
		command := cmds.For(cat)
		if command == "" || !baseline.Enforces(cat) {
			continue
		}
		inv, err := r.runCommand(dir, command)
		if err != nil {
			return nil, err
		}
		executed++
		if inv.exitCode != 0 || inv.timedOut {
			return &Result{
				Passed:          false,
				ExitCode:        inv.exitCode,
				Output:          inv.output,
				FailureCategory: cat,
				Classification:  classify(cat, inv),
				Executed:        executed,
			}, nil
		}
	}

	res := &Result{Passed: true, Executed: executed}
	if executed == 0 {
		res.Message = "no checks enforced: nothing passed at baseline or no commands configured"
	}
	return res, nil
}
