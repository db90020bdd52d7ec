// Package phase implements the agent-backed pipeline phases. Each phase
// renders its prompt, invokes the external agent, persists the prompt and
// transcript to the run store, and returns the raw agent result plus any
// phase-specific data. Sequencing, budgets, and cycle caps belong to the
// orchestrator, not here.
package phase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/lucasnoah/prpilot/internal/agent"
	"github.com/lucasnoah/prpilot/internal/artifacts"
	"github.com/lucasnoah/prpilot/internal/config"
	"github.com/lucasnoah/prpilot/internal/prompt"
	"github.com/lucasnoah/prpilot/internal/task"
)

// Phase names, used for ledger entries, event logging, and artifact naming.
const (
	Intake     = "intake"
	Setup      = "setup"
	Plan       = "plan"
	PlanReview = "plan-review"
	Execute    = "execute"
	CodeReview = "code-review"
	Test       = "test"
	TestFix    = "test-fix"
	Commit     = "commit"
	Salvage    = "salvage"
)

// ErrPlanArtifact marks a missing or malformed plan document. The
// orchestrator retries planning exactly once on this error.
var ErrPlanArtifact = errors.New("plan artifact invalid")

// Tool allow-lists per phase kind. Review phases must not edit anything;
// planning may only write its plan document; implementation gets the full
// set.
var (
	reviewTools = []string{"Read", "Glob", "Grep", "LS"}
	planTools   = []string{"Read", "Glob", "Grep", "LS", "Write"}
	editTools   = []string{"Read", "Glob", "Grep", "LS", "Write", "Edit", "Bash"}
)

// Env bundles the per-run collaborators and facts the agent-backed phases
// need. Built by the orchestrator after setup, read-only afterward.
type Env struct {
	Task    *task.Task
	Cfg     config.Agent
	Agent   agent.Runner
	Store   *artifacts.Store
	Workdir *artifacts.Workdir

	Worktree    string
	Branch      string
	ProjectType string
}

// baseVars returns the template variables every phase prompt shares.
func (e *Env) baseVars() prompt.Vars {
	return prompt.Vars{
		"task_title":       e.Task.Title,
		"task_description": e.Task.Description,
		"worktree_path":    e.Worktree,
		"branch":           e.Branch,
		"project_type":     e.ProjectType,
	}
}

// runAgent renders one phase prompt and executes it, persisting the rendered
// prompt before the call and the transcript after. Store failures are logged
// but never block the phase.
func (e *Env) runAgent(ctx context.Context, name string, cycle int, templateName string, vars prompt.Vars, model string, turns int, tools []string, resume string) (*agent.Result, error) {
	tmpl, err := prompt.LoadTemplate(templateName, e.Worktree)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	rendered, err := prompt.Render(tmpl, vars)
	if err != nil {
		return nil, fmt.Errorf("%s: render prompt: %w", name, err)
	}

	if err := e.Store.SavePrompt(e.Task.ID, name, cycle, rendered); err != nil {
		log.Warn().Err(err).Str("phase", name).Msg("save prompt failed")
	}

	log.Info().Str("phase", name).Int("cycle", cycle).Str("model", model).Msg("invoking agent")

	res, err := e.Agent.Run(ctx, agent.Request{
		Prompt:          rendered,
		Model:           model,
		WorkingDir:      e.Worktree,
		MaxTurns:        turns,
		AllowedTools:    tools,
		ResumeSessionID: resume,
	})
	if err != nil {
		return res, fmt.Errorf("%s: %w", name, err)
	}

	if err := e.Store.SaveTranscript(e.Task.ID, name, cycle, res.ResultText); err != nil {
		log.Warn().Err(err).Str("phase", name).Msg("save transcript failed")
	}

	log.Info().
		Str("phase", name).
		Int("cycle", cycle).
		Float64("cost_usd", res.CostUSD).
		Int("turns", res.NumTurns).
		Msg("agent finished")
	return res, nil
}

// truncate bounds text included inline in a prompt, keeping the head where
// the most relevant context usually is.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated, " + strconv.Itoa(len(s)-max) + " bytes omitted)"
}
