package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lucasnoah/prpilot/internal/agent"
	"github.com/lucasnoah/prpilot/internal/ledger"
	"github.com/lucasnoah/prpilot/internal/phase"
	"github.com/lucasnoah/prpilot/internal/verdict"

	gh "github.com/lucasnoah/prpilot/internal/github"
)

// pipeline runs plan through commit. Any returned error routes into the
// salvage path with rc.state naming the phase in flight.
func (o *Orchestrator) pipeline(ctx context.Context, rc *runState) error {
	if err := o.plan(ctx, rc); err != nil {
		return err
	}
	if err := o.planReview(ctx, rc); err != nil {
		return err
	}
	if err := o.execute(ctx, rc); err != nil {
		return err
	}
	if err := o.codeReview(ctx, rc); err != nil {
		return err
	}
	if err := o.test(ctx, rc); err != nil {
		return err
	}
	return o.commit(rc)
}

// budgetCheck compares the ledger sum against the cap. Called before and
// after every cost-incurring phase; the sum is monotonic, so a pass here can
// only turn into a failure by appending entries.
func (o *Orchestrator) budgetCheck(rc *runState) error {
	spent := rc.led.TotalCostUSD()
	if spent >= o.cfg.MaxBudgetUSD {
		return fmt.Errorf("%w: spent $%.2f of $%.2f", ErrBudgetExceeded, spent, o.cfg.MaxBudgetUSD)
	}
	return nil
}

// record appends an agent-backed phase outcome to the ledger and the event
// log. The entry is appended even on failure so the incurred cost counts.
func (o *Orchestrator) record(rc *runState, name string, res *agent.Result, phaseErr error) {
	entry := ledger.PhaseResult{Phase: name, Success: phaseErr == nil}
	if res != nil {
		entry.SessionID = res.SessionID
		entry.CostUSD = res.CostUSD
		entry.DurationMs = res.DurationMs
	}
	if phaseErr != nil {
		entry.Error = phaseErr.Error()
	}
	rc.led.Append(entry)

	if o.deps.Events != nil {
		if err := o.deps.Events.LogPhase(rc.task.ID, name, entry.Success, entry.SessionID, entry.CostUSD, entry.DurationMs, entry.Error); err != nil {
			log.Warn().Err(err).Msg("record phase event failed")
		}
	}
}

// recordStep appends a zero-cost phase outcome (git, checks, commit) with a
// measured wall-clock duration.
func (o *Orchestrator) recordStep(rc *runState, name string, start time.Time, phaseErr error) {
	entry := ledger.PhaseResult{
		Phase:      name,
		Success:    phaseErr == nil,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if phaseErr != nil {
		entry.Error = phaseErr.Error()
	}
	rc.led.Append(entry)

	if o.deps.Events != nil {
		if err := o.deps.Events.LogPhase(rc.task.ID, name, entry.Success, "", 0, entry.DurationMs, entry.Error); err != nil {
			log.Warn().Err(err).Msg("record phase event failed")
		}
	}
}

// plan runs the planning phase, retrying exactly once on its first failure.
// A second failure is fatal.
func (o *Orchestrator) plan(ctx context.Context, rc *runState) error {
	rc.state = phase.Plan
	if err := o.budgetCheck(rc); err != nil {
		return err
	}

	rc.planAttempt++
	res, body, err := rc.env.RunPlan(ctx, rc.planAttempt, "", "")
	o.record(rc, phase.Plan, res, err)
	if err != nil {
		log.Warn().Err(err).Msg("planning failed, retrying once")
		rc.planAttempt++
		res, body, err = rc.env.RunPlan(ctx, rc.planAttempt, "", "")
		o.record(rc, phase.Plan, res, err)
		if err != nil {
			return fmt.Errorf("planning failed after retry: %w", err)
		}
	}

	rc.planSession = res.SessionID
	rc.planBody = body
	return o.budgetCheck(rc)
}

// planReview runs the bounded plan ⇄ plan-review loop. Approve exits;
// reject terminates the run; revise re-plans in the same reasoning session
// with accumulated feedback while cycles remain, then proceeds with the last
// plan.
func (o *Orchestrator) planReview(ctx context.Context, rc *runState) error {
	if o.cfg.SkipPlanReview {
		return nil
	}
	rc.state = phase.PlanReview

	var feedback []string
	for cycle := 1; cycle <= o.cfg.Cycles.PlanReview; cycle++ {
		if err := o.budgetCheck(rc); err != nil {
			return err
		}

		res, dec, err := rc.env.RunPlanReview(ctx, cycle, rc.planBody)
		o.record(rc, phase.PlanReview, res, err)
		if err != nil {
			return fmt.Errorf("plan review: %w", err)
		}
		if err := o.budgetCheck(rc); err != nil {
			return err
		}

		switch normalizeApproval(dec.Kind) {
		case verdict.Approve:
			log.Info().Int("cycle", cycle).Msg("plan approved")
			return nil

		case verdict.Reject:
			return fmt.Errorf("%w: %s", ErrPlanRejected, dec.Summary)

		case verdict.Revise:
			if cycle == o.cfg.Cycles.PlanReview {
				log.Warn().Int("cycles", cycle).Msg("plan review cycles exhausted, proceeding with last plan")
				return nil
			}
			feedback = append(feedback, verdict.FormatIssues(dec.Issues))
			rc.planAttempt++
			planRes, body, err := rc.env.RunPlan(ctx, rc.planAttempt, rc.planSession, strings.Join(feedback, "\n"))
			o.record(rc, phase.Plan, planRes, err)
			if err != nil {
				return fmt.Errorf("plan revision: %w", err)
			}
			rc.planSession = planRes.SessionID
			rc.planBody = body
		}
	}
	return nil
}

// normalizeApproval folds the pass/fail marker family and the permissive
// unparsed default onto approve/revise/reject. The unparsed → approve policy
// lives here so the parser stays mechanism-only.
func normalizeApproval(k verdict.Kind) verdict.Kind {
	switch k {
	case verdict.Pass:
		return verdict.Approve
	case verdict.Fail:
		return verdict.Revise
	case verdict.Unparsed:
		log.Warn().Msg("review verdict unparsable, defaulting to approve")
		return verdict.Approve
	}
	return k
}

// execute runs the implementation phase and requires a non-empty diff
// against the baseline commit before the run may continue.
func (o *Orchestrator) execute(ctx context.Context, rc *runState) error {
	rc.state = phase.Execute
	if err := o.budgetCheck(rc); err != nil {
		return err
	}

	rc.execAttempt++
	res, err := rc.env.RunExecute(ctx, rc.execAttempt, rc.planBody, "", "")
	o.record(rc, phase.Execute, res, err)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	rc.execSession = res.SessionID
	if err := o.budgetCheck(rc); err != nil {
		return err
	}

	changed, err := rc.mgr.HasChanges(rc.wt.Path, rc.baselineCommit)
	if err != nil {
		return fmt.Errorf("inspect diff: %w", err)
	}
	if !changed {
		return ErrEmptyDiff
	}
	return nil
}

// codeReview runs the bounded execute ⇄ code-review loop. Pass exits; fail
// resumes the implementation session with the itemized issues while cycles
// remain, then proceeds with known issues.
func (o *Orchestrator) codeReview(ctx context.Context, rc *runState) error {
	if o.cfg.SkipCodeReview {
		return nil
	}
	rc.state = phase.CodeReview

	for cycle := 1; cycle <= o.cfg.Cycles.CodeReview; cycle++ {
		if err := o.budgetCheck(rc); err != nil {
			return err
		}

		diff, err := rc.mgr.Diff(rc.wt.Path, rc.baselineCommit)
		if err != nil {
			return fmt.Errorf("diff for review: %w", err)
		}

		res, dec, err := rc.env.RunCodeReview(ctx, cycle, diff)
		o.record(rc, phase.CodeReview, res, err)
		if err != nil {
			return fmt.Errorf("code review: %w", err)
		}
		if err := o.budgetCheck(rc); err != nil {
			return err
		}

		if normalizeApproval(dec.Kind) == verdict.Approve {
			log.Info().Int("cycle", cycle).Msg("code review passed")
			return nil
		}
		if cycle == o.cfg.Cycles.CodeReview {
			log.Warn().Int("cycles", cycle).Int("issues", len(dec.Issues)).Msg("code review cycles exhausted, proceeding with known issues")
			return nil
		}

		rc.execAttempt++
		fixRes, err := rc.env.RunExecute(ctx, rc.execAttempt, rc.planBody, verdict.FormatIssues(dec.Issues), rc.execSession)
		o.record(rc, phase.Execute, fixRes, err)
		if err != nil {
			return fmt.Errorf("execute revision: %w", err)
		}
		rc.execSession = fixRes.SessionID
	}
	return nil
}

// test runs the enforced-check ⇄ fix loop. Residual failures after the cap
// degrade the final status to partial; they never abort the run.
func (o *Orchestrator) test(ctx context.Context, rc *runState) error {
	if o.cfg.SkipTests {
		return nil
	}

	for fixes := 0; ; fixes++ {
		rc.state = phase.Test
		start := time.Now()
		result, err := o.deps.Checks.Enforce(rc.wt.Path, rc.cmds, rc.baseline)
		if err != nil {
			o.recordStep(rc, phase.Test, start, err)
			return fmt.Errorf("run checks: %w", err)
		}
		o.recordStep(rc, phase.Test, start, nil)

		if result.Passed {
			rc.testsPassed = true
			if result.Message != "" {
				log.Info().Msg(result.Message)
			}
			return nil
		}
		rc.testsPassed = false

		if o.deps.Events != nil {
			if err := o.deps.Events.LogCheck(rc.task.ID, phase.Test, string(result.FailureCategory), false, result.ExitCode, result.Classification); err != nil {
				log.Warn().Err(err).Msg("record check run failed")
			}
		}

		if fixes >= o.cfg.Cycles.TestFix {
			log.Warn().
				Int("cycles", fixes).
				Str("category", string(result.FailureCategory)).
				Msg("test-fix cycles exhausted, continuing with failing checks")
			return nil
		}

		rc.state = phase.TestFix
		if err := o.budgetCheck(rc); err != nil {
			return err
		}
		fixRes, err := rc.env.RunTestFix(ctx, fixes+1, result, rc.execSession)
		o.record(rc, phase.TestFix, fixRes, err)
		if err != nil {
			return fmt.Errorf("test fix: %w", err)
		}
		rc.execSession = fixRes.SessionID
		if err := o.budgetCheck(rc); err != nil {
			return err
		}
	}
}

// commit stages and commits the work, then attempts a push and PR. Push and
// PR failures are logged and never escalate: the local commit is the durable
// artifact of record.
func (o *Orchestrator) commit(rc *runState) error {
	rc.state = phase.Commit
	start := time.Now()

	if err := rc.mgr.StageAll(rc.wt.Path); err != nil {
		o.recordStep(rc, phase.Commit, start, err)
		return fmt.Errorf("stage changes: %w", err)
	}
	if err := rc.mgr.Commit(rc.wt.Path, commitMessage(rc)); err != nil {
		o.recordStep(rc, phase.Commit, start, err)
		return err
	}
	rc.committed = true
	o.recordStep(rc, phase.Commit, start, nil)

	if !rc.info.CanPush {
		log.Info().Str("branch", rc.wt.Branch).Msg("no pushable remote, branch left local")
		return nil
	}
	if err := rc.mgr.Push(rc.wt.Path, rc.wt.Branch); err != nil {
		log.Warn().Err(err).Msg("push failed, branch left local")
		return nil
	}
	if o.deps.GitHub == nil {
		return nil
	}

	pr, err := o.deps.GitHub.CreatePR(gh.PROpts{
		RepoPath: rc.wt.Path,
		Title:    rc.task.Title,
		Body:     o.prBody(rc),
		Branch:   rc.wt.Branch,
		Base:     rc.info.DefaultBranch,
		Draft:    false,
	})
	if err != nil {
		log.Warn().Err(err).Msg("PR creation failed, branch is pushed")
		return nil
	}
	rc.prURL = pr.URL
	log.Info().Str("url", pr.URL).Msg("pull request opened")
	return nil
}

func commitMessage(rc *runState) string {
	msg := rc.task.Title
	if rc.task.Description != "" {
		msg += "\n\n" + rc.task.Description
	}
	return msg
}

// prBody builds a minimal PR description: the task text plus the diffstat.
func (o *Orchestrator) prBody(rc *runState) string {
	var b strings.Builder
	b.WriteString(rc.task.Description)
	if stat, err := rc.mgr.DiffStat(rc.wt.Path, rc.baselineCommit); err == nil && stat != "" {
		b.WriteString("\n\n## Changes\n```\n")
		b.WriteString(stat)
		b.WriteString("\n```\n")
	}
	return strings.TrimSpace(b.String())
}
