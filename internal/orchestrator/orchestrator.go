// Package orchestrator is the finite-state controller that turns one task
// into a merge-ready branch, a draft salvage PR, or a clean failure. It
// sequences the phases, enforces the cost budget and cycle caps, gates the
// test phase on the detected baseline, and resolves the final status.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lucasnoah/prpilot/internal/agent"
	"github.com/lucasnoah/prpilot/internal/artifacts"
	"github.com/lucasnoah/prpilot/internal/checks"
	"github.com/lucasnoah/prpilot/internal/config"
	"github.com/lucasnoah/prpilot/internal/db"
	"github.com/lucasnoah/prpilot/internal/detect"
	"github.com/lucasnoah/prpilot/internal/gitops"
	"github.com/lucasnoah/prpilot/internal/ledger"
	"github.com/lucasnoah/prpilot/internal/phase"
	"github.com/lucasnoah/prpilot/internal/task"

	gh "github.com/lucasnoah/prpilot/internal/github"
)

// Control-flow sentinels. Only these, plus setup errors and plan failure
// after its single retry, unwind to the top level; everything else is
// absorbed into the next state's input.
var (
	ErrBudgetExceeded = errors.New("budget exceeded")
	ErrPlanRejected   = errors.New("plan rejected by reviewer")
	ErrEmptyDiff      = errors.New("no changes produced by execute phase")
)

// Status is the terminal disposition of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// FinalResult is the structured user-visible outcome of a run.
type FinalResult struct {
	RunID      string  `json:"run_id"`
	Status     Status  `json:"status"`
	Branch     string  `json:"branch,omitempty"`
	PRURL      string  `json:"pr_url,omitempty"`
	CostUSD    float64 `json:"cost_usd"`
	DurationMs int64   `json:"duration_ms"`
	Summary    string  `json:"summary"`
}

// Deps are the external collaborators. Events may be nil to disable the
// SQLite event log.
type Deps struct {
	Git    gitops.GitRunner
	Agent  agent.Runner
	Checks *checks.Runner
	GitHub *gh.Client
	Store  *artifacts.Store
	Events *db.DB
}

// Orchestrator drives one run at a time. Single-threaded by design: exactly
// one phase or sub-call is in flight at any moment.
type Orchestrator struct {
	cfg  config.Agent
	deps Deps
}

// New creates an Orchestrator. A nil Checks dep gets an exec-backed runner
// with the configured timeout.
func New(cfg config.Agent, deps Deps) *Orchestrator {
	if deps.Checks == nil {
		timeout, _ := time.ParseDuration(cfg.CheckTimeout)
		deps.Checks = checks.NewRunner(&checks.ExecRunner{}, timeout)
	}
	if deps.Git == nil {
		deps.Git = &gitops.ExecGit{}
	}
	return &Orchestrator{cfg: cfg, deps: deps}
}

// runState is the mutable context of one run: current phase, worktree,
// session handles per lineage, and the append-only ledger.
type runState struct {
	task    *task.Task
	led     *ledger.Ledger
	started time.Time
	state   string // in-flight phase name, recorded for diagnostics

	mgr            *gitops.Manager
	info           *detect.ProjectInfo
	wt             *gitops.Worktree
	baselineCommit string
	cmds           checks.Commands
	baseline       checks.Baseline
	env            *phase.Env

	planSession string
	execSession string
	planBody    string
	planAttempt int
	execAttempt int

	testsPassed bool
	committed   bool
	salvaged    bool
	prURL       string
}

// Run executes the full pipeline for one task. The returned result is always
// non-nil; the error mirrors the fatal cause when the status is failed.
func (o *Orchestrator) Run(ctx context.Context, t *task.Task) (*FinalResult, error) {
	rc := &runState{task: t, led: ledger.New(), started: time.Now(), testsPassed: true}

	if err := o.intake(rc); err != nil {
		// No worktree exists yet, so there is nothing to salvage.
		return o.finish(rc, StatusFailed, fmt.Sprintf("intake failed: %v", err)), err
	}

	if err := o.setup(rc); err != nil {
		o.teardown(rc)
		return o.finish(rc, StatusFailed, fmt.Sprintf("setup failed: %v", err)), err
	}

	err := o.pipeline(ctx, rc)
	if err != nil {
		log.Error().Err(err).Str("state", rc.state).Msg("run failed")
		o.salvage(rc, err)
		o.teardown(rc)
		status := StatusFailed
		summary := fmt.Sprintf("failed during %s: %v", rc.state, err)
		if rc.salvaged {
			status = StatusPartial
			summary = fmt.Sprintf("salvaged after failure during %s: %v", rc.state, err)
		}
		return o.finish(rc, status, summary), err
	}

	o.teardown(rc)
	if rc.testsPassed {
		return o.finish(rc, StatusSuccess, successSummary(rc)), nil
	}
	return o.finish(rc, StatusPartial, "committed with residual check failures"), nil
}

// intake validates the repository and detects project facts.
func (o *Orchestrator) intake(rc *runState) error {
	rc.state = phase.Intake
	start := time.Now()

	rc.mgr = gitops.NewManager(o.deps.Git, rc.task.RepoPath, o.cfg.WorktreeBase)
	if !rc.mgr.IsRepo(rc.task.RepoPath) {
		err := fmt.Errorf("%s is not a git repository", rc.task.RepoPath)
		o.recordStep(rc, phase.Intake, start, err)
		return err
	}

	info, err := detect.Project(rc.task.RepoPath)
	if err != nil {
		o.recordStep(rc, phase.Intake, start, err)
		return fmt.Errorf("detect project: %w", err)
	}
	info.HasRemote = rc.mgr.HasRemote()
	info.CanPush = rc.mgr.CanPush()
	info.DefaultBranch = rc.mgr.DefaultBranch()
	info.Normalize()
	rc.info = info

	if o.deps.Events != nil {
		if err := o.deps.Events.StartRun(rc.task.ID, rc.task.Title, rc.task.RepoPath); err != nil {
			log.Warn().Err(err).Msg("record run start failed")
		}
	}

	log.Info().
		Str("project_type", info.ProjectType).
		Str("default_branch", info.DefaultBranch).
		Bool("can_push", info.CanPush).
		Msg("intake complete")
	o.recordStep(rc, phase.Intake, start, nil)
	return nil
}

// setup creates the isolated worktree, records the baseline commit, and
// detects which check categories pass on the untouched copy.
func (o *Orchestrator) setup(rc *runState) error {
	rc.state = phase.Setup
	start := time.Now()

	wt, err := rc.mgr.CreateWorktree(gitops.WorktreeOpts{
		Slug:    rc.task.Slug(),
		Prefix:  o.cfg.BranchPrefix,
		BaseRef: rc.info.DefaultBranch,
	})
	if err != nil {
		o.recordStep(rc, phase.Setup, start, err)
		return err
	}
	rc.wt = wt

	rc.baselineCommit, err = rc.mgr.Head(wt.Path)
	if err != nil {
		o.recordStep(rc, phase.Setup, start, err)
		return err
	}

	workdir, err := artifacts.NewWorkdir(wt.Path)
	if err != nil {
		o.recordStep(rc, phase.Setup, start, err)
		return err
	}

	rc.cmds = effectiveCommands(o.cfg.Checks, rc.info)
	if !o.cfg.SkipTests {
		rc.baseline, err = o.deps.Checks.DetectBaseline(wt.Path, rc.cmds)
		if err != nil {
			o.recordStep(rc, phase.Setup, start, err)
			return fmt.Errorf("detect baseline: %w", err)
		}
		log.Info().
			Bool("lint", rc.baseline.RunLint).
			Bool("typecheck", rc.baseline.RunTypecheck).
			Bool("unit", rc.baseline.RunUnit).
			Msg("baseline detected")
	}

	rc.env = &phase.Env{
		Task:        rc.task,
		Cfg:         o.cfg,
		Agent:       o.deps.Agent,
		Store:       o.deps.Store,
		Workdir:     workdir,
		Worktree:    wt.Path,
		Branch:      wt.Branch,
		ProjectType: rc.info.ProjectType,
	}

	log.Info().Str("branch", wt.Branch).Str("path", wt.Path).Msg("worktree ready")
	o.recordStep(rc, phase.Setup, start, nil)
	return nil
}

// effectiveCommands applies configured overrides on top of detected
// commands, per category.
func effectiveCommands(over config.CheckCommands, info *detect.ProjectInfo) checks.Commands {
	cmds := checks.Commands{
		Lint:      info.LintCommand,
		Typecheck: info.TypecheckCommand,
		Unit:      info.TestCommand,
	}
	if over.Lint != "" {
		cmds.Lint = over.Lint
	}
	if over.Typecheck != "" {
		cmds.Typecheck = over.Typecheck
	}
	if over.Unit != "" {
		cmds.Unit = over.Unit
	}
	return cmds
}

// teardown removes the worktree. Called on every terminal path; force
// discards anything uncommitted.
func (o *Orchestrator) teardown(rc *runState) {
	if rc.wt == nil {
		return
	}
	if err := rc.mgr.RemoveWorktree(rc.wt.Path, true); err != nil {
		log.Warn().Err(err).Str("path", rc.wt.Path).Msg("worktree removal failed")
	}
	rc.wt = nil
}

// finish assembles the final result, persists it, and closes the event log
// entry for the run.
func (o *Orchestrator) finish(rc *runState, status Status, summary string) *FinalResult {
	res := &FinalResult{
		RunID:      rc.task.ID,
		Status:     status,
		CostUSD:    rc.led.TotalCostUSD(),
		DurationMs: time.Since(rc.started).Milliseconds(),
		Summary:    summary,
		PRURL:      rc.prURL,
	}
	if rc.committed || rc.salvaged {
		res.Branch = rc.branchName()
	}

	if o.deps.Store != nil {
		if err := o.deps.Store.SaveResult(rc.task.ID, res); err != nil {
			log.Warn().Err(err).Msg("persist run result failed")
		}
	}
	if o.deps.Events != nil {
		if err := o.deps.Events.FinishRun(rc.task.ID, string(status), res.Branch, res.PRURL, res.CostUSD, res.DurationMs); err != nil {
			log.Warn().Err(err).Msg("record run finish failed")
		}
	}

	log.Info().
		Str("status", string(status)).
		Float64("cost_usd", res.CostUSD).
		Int64("duration_ms", res.DurationMs).
		Msg("run finished")
	return res
}

// branchName survives worktree teardown; the branch itself is not deleted.
func (rc *runState) branchName() string {
	if rc.env != nil {
		return rc.env.Branch
	}
	if rc.wt != nil {
		return rc.wt.Branch
	}
	return ""
}

func successSummary(rc *runState) string {
	if rc.prURL != "" {
		return "pull request opened: " + rc.prURL
	}
	return "branch ready: " + rc.branchName()
}
