package github

import (
	"errors"
	"strings"
	"testing"
)

type fakeCmd struct {
	out   string
	err   error
	calls [][]string
}

func (f *fakeCmd) Run(dir string, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	return f.out, f.err
}

func TestCreatePRReturnsURL(t *testing.T) {
	cmd := &fakeCmd{out: "Creating pull request...\nhttps://github.com/o/r/pull/7"}
	c := NewClient(cmd)

	res, err := c.CreatePR(PROpts{RepoPath: "/wt", Title: "t", Body: "b", Branch: "bot/x", Base: "main"})
	if err != nil {
		t.Fatal(err)
	}
	if res.URL != "https://github.com/o/r/pull/7" {
		t.Errorf("URL = %q", res.URL)
	}

	args := strings.Join(cmd.calls[0], " ")
	if !strings.Contains(args, "--head bot/x") || !strings.Contains(args, "--base main") {
		t.Errorf("args = %q", args)
	}
	if strings.Contains(args, "--draft") {
		t.Error("ready PR carries --draft")
	}
}

func TestCreatePRDraftFlag(t *testing.T) {
	cmd := &fakeCmd{out: "https://github.com/o/r/pull/8"}
	c := NewClient(cmd)

	if _, err := c.CreatePR(PROpts{Title: "t", Branch: "b", Draft: true}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(cmd.calls[0], " "), "--draft") {
		t.Error("--draft missing")
	}
}

func TestCreatePRError(t *testing.T) {
	cmd := &fakeCmd{err: errors.New("gh: not authenticated")}
	c := NewClient(cmd)
	if _, err := c.CreatePR(PROpts{Title: "t", Branch: "b"}); err == nil {
		t.Error("error swallowed")
	}
}

func TestFindPRByBranch(t *testing.T) {
	cmd := &fakeCmd{out: `[{"url": "https://github.com/o/r/pull/3"}]`}
	c := NewClient(cmd)

	res, err := c.FindPRByBranch("/repo", "bot/x")
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.URL != "https://github.com/o/r/pull/3" {
		t.Errorf("res = %+v", res)
	}
}

func TestFindPRByBranchNone(t *testing.T) {
	cmd := &fakeCmd{out: `[]`}
	c := NewClient(cmd)

	res, err := c.FindPRByBranch("/repo", "bot/x")
	if err != nil {
		t.Fatal(err)
	}
	if res != nil {
		t.Errorf("expected nil for no PR, got %+v", res)
	}
}

func TestLastLine(t *testing.T) {
	if got := lastLine("a\nb\n\n"); got != "b" {
		t.Errorf("lastLine = %q", got)
	}
	if got := lastLine("only"); got != "only" {
		t.Errorf("lastLine = %q", got)
	}
}
