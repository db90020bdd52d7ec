package phase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/lucasnoah/prpilot/internal/agent"
	"github.com/lucasnoah/prpilot/internal/artifacts"
	"github.com/lucasnoah/prpilot/internal/checks"
	"github.com/lucasnoah/prpilot/internal/verdict"
)

// maxDiffBytes bounds the diff embedded in the code-review prompt.
const maxDiffBytes = 60_000

// maxOutputBytes bounds check output embedded in the test-fix prompt.
const maxOutputBytes = 20_000

// RunPlan asks the agent to write the plan document, then reads it back and
// validates its structure. The agent result is returned even when the
// artifact is invalid so the incurred cost is still recorded; artifact
// problems wrap ErrPlanArtifact.
func (e *Env) RunPlan(ctx context.Context, cycle int, resume string, feedback string) (*agent.Result, string, error) {
	vars := e.baseVars()
	vars["plan_path"] = e.Workdir.PlanPath()
	vars["review_feedback"] = feedback

	res, err := e.runAgent(ctx, Plan, cycle, "plan.md", vars,
		e.Cfg.Models.Plan, e.Cfg.Turns.Plan, planTools, resume)
	if err != nil {
		return res, "", err
	}

	body, err := e.Workdir.ReadPlan()
	if err != nil {
		return res, "", fmt.Errorf("%w: read plan document: %v", ErrPlanArtifact, err)
	}
	if err := artifacts.ValidatePlan(body); err != nil {
		return res, "", fmt.Errorf("%w: %v", ErrPlanArtifact, err)
	}
	return res, body, nil
}

// RunPlanReview has a fresh reviewer judge the plan and returns the parsed
// decision alongside the agent result.
func (e *Env) RunPlanReview(ctx context.Context, cycle int, planBody string) (*agent.Result, verdict.Decision, error) {
	vars := e.baseVars()
	vars["plan_body"] = planBody

	res, err := e.runAgent(ctx, PlanReview, cycle, "plan-review.md", vars,
		e.Cfg.Models.PlanReview, e.Cfg.Turns.PlanReview, reviewTools, "")
	if err != nil {
		return res, verdict.Decision{}, err
	}

	if err := e.Workdir.SaveReview(PlanReview, cycle, res.ResultText); err != nil {
		log.Warn().Err(err).Msg("save plan review failed")
	}
	return res, verdict.Parse(res.ResultText), nil
}

// RunExecute asks the agent to implement the approved plan. Revision cycles
// resume the same implementation session and carry the reviewer's itemized
// issues.
func (e *Env) RunExecute(ctx context.Context, cycle int, planBody string, reviewIssues string, resume string) (*agent.Result, error) {
	vars := e.baseVars()
	vars["plan_body"] = planBody
	vars["review_issues"] = reviewIssues

	return e.runAgent(ctx, Execute, cycle, "execute.md", vars,
		e.Cfg.Models.Execute, e.Cfg.Turns.Execute, editTools, resume)
}

// RunCodeReview has a fresh reviewer judge the diff and returns the parsed
// decision.
func (e *Env) RunCodeReview(ctx context.Context, cycle int, diff string) (*agent.Result, verdict.Decision, error) {
	vars := e.baseVars()
	vars["diff"] = truncate(diff, maxDiffBytes)

	res, err := e.runAgent(ctx, CodeReview, cycle, "code-review.md", vars,
		e.Cfg.Models.CodeReview, e.Cfg.Turns.CodeReview, reviewTools, "")
	if err != nil {
		return res, verdict.Decision{}, err
	}

	if err := e.Workdir.SaveReview(CodeReview, cycle, res.ResultText); err != nil {
		log.Warn().Err(err).Msg("save code review failed")
	}
	return res, verdict.Parse(res.ResultText), nil
}

// RunTestFix resumes the implementation session with the failing check's
// output so the fix lands in the same context that introduced the breakage.
func (e *Env) RunTestFix(ctx context.Context, cycle int, check *checks.Result, resume string) (*agent.Result, error) {
	vars := e.baseVars()
	vars["failure_category"] = string(check.FailureCategory)
	vars["classification"] = check.Classification
	vars["exit_code"] = fmt.Sprintf("%d", check.ExitCode)
	vars["check_output"] = truncate(check.Output, maxOutputBytes)

	return e.runAgent(ctx, TestFix, cycle, "test-fix.md", vars,
		e.Cfg.Models.TestFix, e.Cfg.Turns.TestFix, editTools, resume)
}
