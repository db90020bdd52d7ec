package gitops

import (
	"errors"
	"strings"
	"testing"
)

// fakeGit maps exact argument strings to canned responses and records every
// call.
type fakeGit struct {
	responses map[string]string
	errors    map[string]error
	calls     []string
}

func (g *fakeGit) Run(dir string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	g.calls = append(g.calls, key)
	if err, ok := g.errors[key]; ok {
		return "", err
	}
	if out, ok := g.responses[key]; ok {
		return out, nil
	}
	return "", nil
}

func (g *fakeGit) called(prefix string) bool {
	for _, c := range g.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func TestDefaultBranchPrefersRemoteHead(t *testing.T) {
	git := &fakeGit{responses: map[string]string{
		"symbolic-ref --short refs/remotes/origin/HEAD": "origin/develop",
	}}
	m := NewManager(git, "/repo", "")
	if got := m.DefaultBranch(); got != "develop" {
		t.Errorf("DefaultBranch = %q, want develop", got)
	}
}

func TestDefaultBranchFallsBackToMain(t *testing.T) {
	git := &fakeGit{
		errors: map[string]error{
			"symbolic-ref --short refs/remotes/origin/HEAD": errors.New("no symref"),
		},
		responses: map[string]string{
			"rev-parse --verify refs/heads/main": "abc",
		},
	}
	m := NewManager(git, "/repo", "")
	if got := m.DefaultBranch(); got != "main" {
		t.Errorf("DefaultBranch = %q, want main", got)
	}
}

func TestCanPushRequiresRemote(t *testing.T) {
	git := &fakeGit{errors: map[string]error{
		"remote get-url origin": errors.New("no remote"),
	}}
	m := NewManager(git, "/repo", "")
	if m.CanPush() {
		t.Error("CanPush true without a remote")
	}
	if git.called("ls-remote") {
		t.Error("reachability probed despite missing remote")
	}
}

func TestCanPushProbesReachability(t *testing.T) {
	git := &fakeGit{
		responses: map[string]string{"remote get-url origin": "git@x:y.git"},
		errors:    map[string]error{"ls-remote --exit-code --heads origin": errors.New("unreachable")},
	}
	m := NewManager(git, "/repo", "")
	if m.CanPush() {
		t.Error("CanPush true with unreachable remote")
	}
}

func TestDiffNamesIncludesUntracked(t *testing.T) {
	git := &fakeGit{responses: map[string]string{
		"diff --name-only abc123":             "a.go\nb.go",
		"ls-files --others --exclude-standard": "new.go",
	}}
	m := NewManager(git, "/repo", "")
	names, err := m.DiffNames("/wt", "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 3 || names[2] != "new.go" {
		t.Errorf("DiffNames = %v", names)
	}

	ok, err := m.HasChanges("/wt", "abc123")
	if err != nil || !ok {
		t.Errorf("HasChanges = %v, %v", ok, err)
	}
}

func TestHasChangesEmpty(t *testing.T) {
	git := &fakeGit{}
	m := NewManager(git, "/repo", "")
	ok, err := m.HasChanges("/wt", "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("HasChanges true on empty diff")
	}
}

func TestPushRejectsFlagLikeBranch(t *testing.T) {
	git := &fakeGit{}
	m := NewManager(git, "/repo", "")
	if err := m.Push("/wt", "--upload-pack=evil"); err == nil {
		t.Error("flag-like branch name accepted")
	}
	if git.called("push") {
		t.Error("push was executed")
	}
}

func TestCreateWorktreeSanitizesBranch(t *testing.T) {
	git := &fakeGit{errors: map[string]error{
		"remote get-url origin": errors.New("no remote"),
	}}
	m := NewManager(git, "/repo", "/wts")

	wt, err := m.CreateWorktree(WorktreeOpts{Slug: "fix login!!bug", Prefix: "bot/", BaseRef: "main"})
	if err != nil {
		t.Fatal(err)
	}
	if wt.Branch != "bot/fix-login-bug" {
		t.Errorf("branch = %q", wt.Branch)
	}
	if !strings.Contains(wt.Path, "bot-fix-login-bug") {
		t.Errorf("path = %q", wt.Path)
	}
	if !git.called("worktree add") {
		t.Error("worktree add never invoked")
	}
}

func TestCreateWorktreeRequiresSlugOrBranch(t *testing.T) {
	m := NewManager(&fakeGit{}, "/repo", "")
	if _, err := m.CreateWorktree(WorktreeOpts{}); err == nil {
		t.Error("empty opts accepted")
	}
}

func TestRemoveWorktreeForce(t *testing.T) {
	git := &fakeGit{}
	m := NewManager(git, "/repo", "")
	if err := m.RemoveWorktree("/wts/x", true); err != nil {
		t.Fatal(err)
	}
	if !git.called("worktree remove --force /wts/x") {
		t.Errorf("calls = %v", git.calls)
	}
}
