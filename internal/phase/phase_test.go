package phase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucasnoah/prpilot/internal/agent"
	"github.com/lucasnoah/prpilot/internal/artifacts"
	"github.com/lucasnoah/prpilot/internal/checks"
	"github.com/lucasnoah/prpilot/internal/config"
	"github.com/lucasnoah/prpilot/internal/task"
	"github.com/lucasnoah/prpilot/internal/verdict"
)

// fakeAgent delegates to a per-test handler and records requests.
type fakeAgent struct {
	handler  func(req agent.Request) (*agent.Result, error)
	requests []agent.Request
}

func (f *fakeAgent) Run(ctx context.Context, req agent.Request) (*agent.Result, error) {
	f.requests = append(f.requests, req)
	return f.handler(req)
}

func newTestEnv(t *testing.T, fa *fakeAgent) *Env {
	t.Helper()
	worktree := t.TempDir()
	workdir, err := artifacts.NewWorkdir(worktree)
	if err != nil {
		t.Fatal(err)
	}
	tk, err := task.New("fix login bug", "the login handler panics", "/repo")
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{}
	config.ApplyDefaults(&cfg)

	return &Env{
		Task:        tk,
		Cfg:         cfg.Agent,
		Agent:       fa,
		Store:       artifacts.NewStore(t.TempDir()),
		Workdir:     workdir,
		Worktree:    worktree,
		Branch:      "prpilot/fix-login-bug",
		ProjectType: "go",
	}
}

const validPlan = "## Approach\na\n## Steps\nb\n## Risks\nc\n"

func TestRunPlanReadsBackArtifact(t *testing.T) {
	var env *Env
	fa := &fakeAgent{handler: func(req agent.Request) (*agent.Result, error) {
		if err := os.WriteFile(env.Workdir.PlanPath(), []byte(validPlan), 0o644); err != nil {
			t.Fatal(err)
		}
		return &agent.Result{SessionID: "sess-plan", CostUSD: 0.3, ResultText: "done"}, nil
	}}
	env = newTestEnv(t, fa)

	res, body, err := env.RunPlan(context.Background(), 1, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if body != validPlan {
		t.Errorf("plan body = %q", body)
	}
	if res.SessionID != "sess-plan" {
		t.Errorf("session = %q", res.SessionID)
	}

	req := fa.requests[0]
	if !strings.Contains(req.Prompt, "fix login bug") {
		t.Error("prompt missing task title")
	}
	if !strings.Contains(req.Prompt, env.Workdir.PlanPath()) {
		t.Error("prompt missing plan path")
	}
	for _, tool := range req.AllowedTools {
		if tool == "Edit" || tool == "Bash" {
			t.Errorf("plan phase allows %s", tool)
		}
	}

	// Prompt and transcript persisted per attempt.
	runDir := filepath.Join(env.Store.BaseDir(), env.Task.ID)
	for _, name := range []string{"plan-1.prompt.md", "plan-1.transcript.md"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Errorf("artifact %s missing", name)
		}
	}
}

func TestRunPlanMissingArtifact(t *testing.T) {
	fa := &fakeAgent{handler: func(req agent.Request) (*agent.Result, error) {
		return &agent.Result{SessionID: "s", CostUSD: 0.2}, nil // agent never writes the plan
	}}
	env := newTestEnv(t, fa)

	res, _, err := env.RunPlan(context.Background(), 1, "", "")
	if !errors.Is(err, ErrPlanArtifact) {
		t.Fatalf("err = %v, want ErrPlanArtifact", err)
	}
	if res == nil || res.CostUSD != 0.2 {
		t.Error("agent result lost on artifact error, cost would be dropped")
	}
}

func TestRunPlanMalformedArtifact(t *testing.T) {
	var env *Env
	fa := &fakeAgent{handler: func(req agent.Request) (*agent.Result, error) {
		os.WriteFile(env.Workdir.PlanPath(), []byte("## Approach only"), 0o644)
		return &agent.Result{}, nil
	}}
	env = newTestEnv(t, fa)

	_, _, err := env.RunPlan(context.Background(), 1, "", "")
	if !errors.Is(err, ErrPlanArtifact) {
		t.Fatalf("err = %v, want ErrPlanArtifact", err)
	}
}

func TestRunPlanFeedbackIncluded(t *testing.T) {
	var env *Env
	fa := &fakeAgent{handler: func(req agent.Request) (*agent.Result, error) {
		os.WriteFile(env.Workdir.PlanPath(), []byte(validPlan), 0o644)
		return &agent.Result{}, nil
	}}
	env = newTestEnv(t, fa)

	if _, _, err := env.RunPlan(context.Background(), 2, "sess-1", "1. add migration step"); err != nil {
		t.Fatal(err)
	}
	req := fa.requests[0]
	if req.ResumeSessionID != "sess-1" {
		t.Errorf("resume = %q", req.ResumeSessionID)
	}
	if !strings.Contains(req.Prompt, "1. add migration step") {
		t.Error("feedback not rendered into prompt")
	}
}

func TestRunPlanReviewParsesVerdict(t *testing.T) {
	fa := &fakeAgent{handler: func(req agent.Request) (*agent.Result, error) {
		return &agent.Result{ResultText: "Looks wrong.\nVERDICT: REVISE\n1. [high] fix scope"}, nil
	}}
	env := newTestEnv(t, fa)

	_, dec, err := env.RunPlanReview(context.Background(), 1, validPlan)
	if err != nil {
		t.Fatal(err)
	}
	if dec.Kind != verdict.Revise || len(dec.Issues) != 1 {
		t.Errorf("decision = %+v", dec)
	}

	// Review transcript lands in the worktree handoff dir.
	if _, err := os.Stat(env.Workdir.ReviewPath(PlanReview, 1)); err != nil {
		t.Errorf("review document missing: %v", err)
	}
}

func TestRunExecuteToolsAndResume(t *testing.T) {
	fa := &fakeAgent{handler: func(req agent.Request) (*agent.Result, error) {
		return &agent.Result{SessionID: "sess-exec"}, nil
	}}
	env := newTestEnv(t, fa)

	if _, err := env.RunExecute(context.Background(), 2, validPlan, "1. fix nil deref", "sess-exec"); err != nil {
		t.Fatal(err)
	}
	req := fa.requests[0]
	if req.ResumeSessionID != "sess-exec" {
		t.Errorf("resume = %q", req.ResumeSessionID)
	}
	hasEdit := false
	for _, tool := range req.AllowedTools {
		if tool == "Edit" {
			hasEdit = true
		}
	}
	if !hasEdit {
		t.Error("execute phase missing Edit tool")
	}
	if !strings.Contains(req.Prompt, "1. fix nil deref") {
		t.Error("review issues not rendered into prompt")
	}
}

func TestRunCodeReviewTruncatesDiff(t *testing.T) {
	fa := &fakeAgent{handler: func(req agent.Request) (*agent.Result, error) {
		return &agent.Result{ResultText: "VERDICT: PASS"}, nil
	}}
	env := newTestEnv(t, fa)

	huge := strings.Repeat("x", maxDiffBytes+1000)
	_, dec, err := env.RunCodeReview(context.Background(), 1, huge)
	if err != nil {
		t.Fatal(err)
	}
	if dec.Kind != verdict.Pass {
		t.Errorf("kind = %v", dec.Kind)
	}
	if len(fa.requests[0].Prompt) > maxDiffBytes+2000 {
		t.Error("diff not truncated")
	}
}

func TestRunTestFixCarriesCheckContext(t *testing.T) {
	fa := &fakeAgent{handler: func(req agent.Request) (*agent.Result, error) {
		return &agent.Result{}, nil
	}}
	env := newTestEnv(t, fa)

	check := &checks.Result{
		Passed:          false,
		ExitCode:        1,
		Output:          "--- FAIL: TestLogin",
		FailureCategory: checks.CategoryUnit,
		Classification:  checks.ClassTestFailure,
	}
	if _, err := env.RunTestFix(context.Background(), 1, check, "sess-exec"); err != nil {
		t.Fatal(err)
	}
	p := fa.requests[0].Prompt
	for _, want := range []string{"unit", "test_failure", "--- FAIL: TestLogin"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
