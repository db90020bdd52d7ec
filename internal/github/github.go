// Package github wraps the gh CLI for pull-request creation. Everything
// here is best-effort from the orchestrator's point of view: the local
// commit is the durable artifact of record, so push and PR failures are
// reported but never escalate.
package github

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// CmdRunner provides gh command execution. Interface for testing.
type CmdRunner interface {
	Run(dir string, args ...string) (string, error)
}

// ExecRunner runs gh commands via exec.
type ExecRunner struct{}

func (r *ExecRunner) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("gh", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("gh %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Client provides GitHub PR operations.
type Client struct {
	cmd CmdRunner
}

// NewClient creates a GitHub client.
func NewClient(cmd CmdRunner) *Client {
	return &Client{cmd: cmd}
}

// PROpts holds options for creating a PR.
type PROpts struct {
	RepoPath string
	Title    string
	Body     string
	Branch   string
	Base     string
	Draft    bool
}

// PRResult holds the result of creating a PR.
type PRResult struct {
	URL string
}

// CreatePR creates a pull request for a pushed branch, draft or ready.
func (c *Client) CreatePR(opts PROpts) (*PRResult, error) {
	args := []string{"pr", "create", "--title", opts.Title, "--body", opts.Body, "--head", opts.Branch}
	if opts.Base != "" {
		args = append(args, "--base", opts.Base)
	}
	if opts.Draft {
		args = append(args, "--draft")
	}

	out, err := c.cmd.Run(opts.RepoPath, args...)
	if err != nil {
		return nil, fmt.Errorf("create PR: %w", err)
	}

	return &PRResult{URL: lastLine(out)}, nil
}

// FindPRByBranch checks if a PR already exists for a given branch.
// Returns nil, nil when none exists.
func (c *Client) FindPRByBranch(repoPath string, branch string) (*PRResult, error) {
	out, err := c.cmd.Run(repoPath, "pr", "list", "--head", branch, "--json", "url", "--limit", "1")
	if err != nil {
		return nil, fmt.Errorf("find PR by branch: %w", err)
	}

	var prs []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(out), &prs); err != nil {
		return nil, fmt.Errorf("parse PR list JSON: %w", err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return &PRResult{URL: prs[0].URL}, nil
}

// lastLine returns the final non-empty line; gh prints the PR URL last.
func lastLine(out string) string {
	lines := strings.Split(out, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return out
}
