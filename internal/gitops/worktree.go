package gitops

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Manager handles git operations for a single repository and its worktrees.
type Manager struct {
	git     GitRunner
	repoDir string // git repo root
	baseDir string // where worktrees are created
}

// NewManager creates a Manager. baseDir defaults to <repoDir>/.prpilot-worktrees
// when empty.
func NewManager(git GitRunner, repoDir string, baseDir string) *Manager {
	if baseDir == "" {
		baseDir = filepath.Join(repoDir, ".prpilot-worktrees")
	}
	return &Manager{git: git, repoDir: repoDir, baseDir: baseDir}
}

// RepoDir returns the repository root the manager operates on.
func (m *Manager) RepoDir() string {
	return m.repoDir
}

// WorktreeOpts holds options for creating an isolated working copy.
type WorktreeOpts struct {
	Slug    string // branch-safe task fragment
	Branch  string // override auto-generated branch name
	BaseRef string // ref to branch from; defaults to the default branch
	Prefix  string // branch name prefix, e.g. "prpilot/"
}

// Worktree describes a created working copy.
type Worktree struct {
	Path   string
	Branch string
}

// CreateWorktree creates an isolated worktree on a fresh branch.
func (m *Manager) CreateWorktree(opts WorktreeOpts) (*Worktree, error) {
	if opts.Slug == "" && opts.Branch == "" {
		return nil, fmt.Errorf("worktree: slug or branch is required")
	}

	branch := opts.Branch
	if branch == "" {
		branch = sanitizeBranch(opts.Prefix + opts.Slug)
	} else {
		branch = sanitizeBranch(branch)
	}

	baseRef := opts.BaseRef
	if baseRef == "" {
		baseRef = m.DefaultBranch()
	}

	// Best-effort fetch so we branch from an up-to-date base when a remote
	// exists; local-only repos fall through to the local ref.
	if m.HasRemote() {
		_ = m.Fetch(baseRef)
		if _, err := m.git.Run(m.repoDir, "rev-parse", "--verify", "origin/"+baseRef); err == nil {
			baseRef = "origin/" + baseRef
		}
	}

	path := filepath.Join(m.baseDir, branchDirName(branch))
	if _, err := m.git.Run(m.repoDir, "worktree", "add", path, "-b", branch, baseRef); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil, fmt.Errorf("create worktree: branch %q already exists: %w", branch, err)
		}
		return nil, fmt.Errorf("create worktree: %w", err)
	}

	return &Worktree{Path: path, Branch: branch}, nil
}

// RemoveWorktree removes a worktree. Force discards uncommitted work; the
// orchestrator always forces on teardown so no worktree leaks regardless of
// the exit path.
func (m *Manager) RemoveWorktree(path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	if _, err := m.git.Run(m.repoDir, args...); err != nil {
		return fmt.Errorf("remove worktree: %w", err)
	}
	return nil
}

var nonAlphaNum = regexp.MustCompile(`[^a-zA-Z0-9/_-]+`)

// sanitizeBranch cleans up a branch name.
func sanitizeBranch(name string) string {
	s := nonAlphaNum.ReplaceAllString(name, "-")
	s = strings.Trim(s, "-")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// branchDirName flattens a branch name into a directory name.
func branchDirName(branch string) string {
	return strings.ReplaceAll(branch, "/", "-")
}
