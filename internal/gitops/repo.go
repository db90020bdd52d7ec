package gitops

import (
	"fmt"
	"strings"
)

// IsRepo reports whether path is inside a git work tree.
func (m *Manager) IsRepo(path string) bool {
	out, err := m.git.Run(path, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// DefaultBranch resolves the repository's default branch. It prefers the
// remote HEAD symref and falls back to main, then master.
func (m *Manager) DefaultBranch() string {
	if out, err := m.git.Run(m.repoDir, "symbolic-ref", "--short", "refs/remotes/origin/HEAD"); err == nil {
		return strings.TrimPrefix(out, "origin/")
	}
	for _, candidate := range []string{"main", "master"} {
		if _, err := m.git.Run(m.repoDir, "rev-parse", "--verify", "refs/heads/"+candidate); err == nil {
			return candidate
		}
	}
	// Last resort: whatever HEAD points at.
	if out, err := m.git.Run(m.repoDir, "rev-parse", "--abbrev-ref", "HEAD"); err == nil && out != "HEAD" {
		return out
	}
	return "main"
}

// HasRemote reports whether an origin remote is configured.
func (m *Manager) HasRemote() bool {
	_, err := m.git.Run(m.repoDir, "remote", "get-url", "origin")
	return err == nil
}

// CanPush reports whether the origin remote is reachable. It is always
// false when no remote is configured.
func (m *Manager) CanPush() bool {
	if !m.HasRemote() {
		return false
	}
	_, err := m.git.Run(m.repoDir, "ls-remote", "--exit-code", "--heads", "origin")
	return err == nil
}

// Fetch updates the given remote ref, best-effort.
func (m *Manager) Fetch(ref string) error {
	_, err := m.git.Run(m.repoDir, "fetch", "origin", ref)
	return err
}

// Head returns the commit hash at HEAD of dir. Used to record the baseline
// commit before any change is made.
func (m *Manager) Head(dir string) (string, error) {
	out, err := m.git.Run(dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return out, nil
}

// StageAll stages every change in dir, including untracked files.
func (m *Manager) StageAll(dir string) error {
	_, err := m.git.Run(dir, "add", "-A")
	return err
}

// Commit records staged changes with the given message. Committing with
// nothing staged is an error from git; callers should check DiffNames first.
func (m *Manager) Commit(dir string, message string) error {
	_, err := m.git.Run(dir, "commit", "-m", message)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Push pushes branch to origin, setting the upstream.
func (m *Manager) Push(dir string, branch string) error {
	if strings.HasPrefix(branch, "-") {
		return fmt.Errorf("invalid branch name %q: must not start with -", branch)
	}
	if _, err := m.git.Run(dir, "push", "-u", "origin", branch); err != nil {
		return fmt.Errorf("push branch: %w", err)
	}
	return nil
}

// Diff returns the full diff of dir against the given baseline commit,
// including uncommitted changes.
func (m *Manager) Diff(dir string, baseline string) (string, error) {
	out, err := m.git.Run(dir, "diff", baseline)
	if err != nil {
		return "", fmt.Errorf("diff against %s: %w", shortRef(baseline), err)
	}
	return out, nil
}

// DiffStat returns the summary diffstat of dir against baseline.
func (m *Manager) DiffStat(dir string, baseline string) (string, error) {
	out, err := m.git.Run(dir, "diff", "--stat", baseline)
	if err != nil {
		return "", fmt.Errorf("diffstat against %s: %w", shortRef(baseline), err)
	}
	return out, nil
}

// DiffNames returns the paths changed in dir relative to baseline, one per
// entry. Untracked files are included so an agent that only created new
// files still registers a non-empty diff.
func (m *Manager) DiffNames(dir string, baseline string) ([]string, error) {
	out, err := m.git.Run(dir, "diff", "--name-only", baseline)
	if err != nil {
		return nil, fmt.Errorf("changed files against %s: %w", shortRef(baseline), err)
	}
	names := splitLines(out)

	untracked, err := m.git.Run(dir, "ls-files", "--others", "--exclude-standard")
	if err == nil {
		names = append(names, splitLines(untracked)...)
	}
	return names, nil
}

// HasChanges reports whether dir differs from baseline at all.
func (m *Manager) HasChanges(dir string, baseline string) (bool, error) {
	names, err := m.DiffNames(dir, baseline)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func shortRef(ref string) string {
	if len(ref) > 12 {
		return ref[:12]
	}
	return ref
}
