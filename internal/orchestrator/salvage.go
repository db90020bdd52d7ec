package orchestrator

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lucasnoah/prpilot/internal/phase"

	gh "github.com/lucasnoah/prpilot/internal/github"
)

// salvage preserves partial work as a draft PR after a fatal failure. It
// requires a live worktree, a non-empty diff against the baseline commit,
// and draft_pr_on_failure; push and PR creation stay best-effort. The
// worktree is torn down by the caller on every path.
func (o *Orchestrator) salvage(rc *runState, cause error) {
	if rc.wt == nil {
		return
	}
	failedDuring := rc.state
	rc.state = phase.Salvage
	start := time.Now()

	changed, err := rc.mgr.HasChanges(rc.wt.Path, rc.baselineCommit)
	if err != nil {
		log.Warn().Err(err).Msg("salvage: diff inspection failed")
		o.recordStep(rc, phase.Salvage, start, err)
		return
	}
	if !changed {
		log.Info().Msg("salvage: no changes to preserve")
		o.recordStep(rc, phase.Salvage, start, fmt.Errorf("no changes to preserve"))
		return
	}
	if !o.cfg.DraftPROnFail {
		log.Info().Msg("salvage: draft PR on failure disabled, discarding changes")
		o.recordStep(rc, phase.Salvage, start, fmt.Errorf("draft PR on failure disabled"))
		return
	}

	if err := rc.mgr.StageAll(rc.wt.Path); err != nil {
		log.Warn().Err(err).Msg("salvage: staging failed")
		o.recordStep(rc, phase.Salvage, start, err)
		return
	}
	msg := fmt.Sprintf("%s (incomplete)\n\nPipeline failed during %s: %v", rc.task.Title, failedDuring, cause)
	if err := rc.mgr.Commit(rc.wt.Path, msg); err != nil {
		log.Warn().Err(err).Msg("salvage: commit failed")
		o.recordStep(rc, phase.Salvage, start, err)
		return
	}
	rc.salvaged = true
	log.Info().Str("branch", rc.wt.Branch).Msg("salvage commit created")

	// Local commit is the durable artifact; everything past this point is
	// best-effort.
	if rc.info.CanPush {
		if err := rc.mgr.Push(rc.wt.Path, rc.wt.Branch); err != nil {
			log.Warn().Err(err).Msg("salvage: push failed, branch left local")
		} else if o.deps.GitHub != nil {
			pr, err := o.deps.GitHub.CreatePR(gh.PROpts{
				RepoPath: rc.wt.Path,
				Title:    rc.task.Title + " (incomplete)",
				Body:     salvageBody(rc, failedDuring, cause),
				Branch:   rc.wt.Branch,
				Base:     rc.info.DefaultBranch,
				Draft:    true,
			})
			if err != nil {
				log.Warn().Err(err).Msg("salvage: draft PR creation failed")
			} else {
				rc.prURL = pr.URL
				log.Info().Str("url", pr.URL).Msg("draft PR opened for salvaged work")
			}
		}
	}

	o.recordStep(rc, phase.Salvage, start, nil)
}

func salvageBody(rc *runState, failedDuring string, cause error) string {
	return fmt.Sprintf(
		"Incomplete automated change, preserved for review.\n\n%s\n\nThe pipeline failed during the %s phase: %v",
		rc.task.Description, failedDuring, cause,
	)
}
