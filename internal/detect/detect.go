// Package detect inspects a target repository and produces the immutable
// ProjectInfo facts the run is built on: project type, package manager, and
// the validation commands worth attempting at baseline.
package detect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ProjectInfo holds detected facts about the target repository. Produced by
// intake, immutable thereafter.
type ProjectInfo struct {
	ProjectType      string `json:"project_type"`
	PackageManager   string `json:"package_manager,omitempty"`
	TestCommand      string `json:"test_command,omitempty"`
	LintCommand      string `json:"lint_command,omitempty"`
	TypecheckCommand string `json:"typecheck_command,omitempty"`
	BuildCommand     string `json:"build_command,omitempty"`
	HasRemote        bool   `json:"has_remote"`
	CanPush          bool   `json:"can_push"`
	DefaultBranch    string `json:"default_branch"`
}

// Normalize enforces the ProjectInfo invariants; canPush must never be true
// without a remote.
func (p *ProjectInfo) Normalize() {
	if !p.HasRemote {
		p.CanPush = false
	}
	if p.DefaultBranch == "" {
		p.DefaultBranch = "main"
	}
}

// node package managers keyed by lockfile
var nodeLockfiles = []struct {
	file    string
	manager string
}{
	{"pnpm-lock.yaml", "pnpm"},
	{"yarn.lock", "yarn"},
	{"bun.lockb", "bun"},
	{"package-lock.json", "npm"},
}

// Project detects toolchain facts from marker files in repoPath. Git facts
// (remote, default branch) are filled in separately by the intake phase.
func Project(repoPath string) (*ProjectInfo, error) {
	if _, err := os.Stat(repoPath); err != nil {
		return nil, fmt.Errorf("stat repo path: %w", err)
	}

	switch {
	case exists(repoPath, "package.json"):
		return detectNode(repoPath)
	case exists(repoPath, "go.mod"):
		return &ProjectInfo{
			ProjectType: "go",
			TestCommand: "go test ./...",
			LintCommand: "go vet ./...",
			BuildCommand: "go build ./...",
		}, nil
	case exists(repoPath, "Cargo.toml"):
		return &ProjectInfo{
			ProjectType:      "rust",
			PackageManager:   "cargo",
			TestCommand:      "cargo test",
			LintCommand:      "cargo clippy --no-deps -- -D warnings",
			TypecheckCommand: "cargo check",
			BuildCommand:     "cargo build",
		}, nil
	case exists(repoPath, "pyproject.toml") || exists(repoPath, "setup.py"):
		return detectPython(repoPath)
	}

	return &ProjectInfo{ProjectType: "unknown"}, nil
}

// packageJSON is the subset of package.json the detector reads.
type packageJSON struct {
	Scripts map[string]string `json:"scripts"`
}

// script names checked per category, first hit wins
var nodeScriptCandidates = map[string][]string{
	"test":      {"test", "test:unit", "unit"},
	"lint":      {"lint", "lint:check"},
	"typecheck": {"typecheck", "type-check", "tsc", "check-types"},
	"build":     {"build"},
}

func detectNode(repoPath string) (*ProjectInfo, error) {
	info := &ProjectInfo{ProjectType: "node", PackageManager: "npm"}
	for _, lf := range nodeLockfiles {
		if exists(repoPath, lf.file) {
			info.PackageManager = lf.manager
			break
		}
	}

	data, err := os.ReadFile(filepath.Join(repoPath, "package.json"))
	if err != nil {
		return nil, fmt.Errorf("read package.json: %w", err)
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse package.json: %w", err)
	}

	run := func(script string) string {
		return info.PackageManager + " run " + script
	}
	if s := firstScript(pkg.Scripts, nodeScriptCandidates["test"]); s != "" {
		info.TestCommand = run(s)
	}
	if s := firstScript(pkg.Scripts, nodeScriptCandidates["lint"]); s != "" {
		info.LintCommand = run(s)
	}
	if s := firstScript(pkg.Scripts, nodeScriptCandidates["typecheck"]); s != "" {
		info.TypecheckCommand = run(s)
	} else if exists(repoPath, "tsconfig.json") {
		info.TypecheckCommand = "npx tsc --noEmit"
	}
	if s := firstScript(pkg.Scripts, nodeScriptCandidates["build"]); s != "" {
		info.BuildCommand = run(s)
	}
	return info, nil
}

func detectPython(repoPath string) (*ProjectInfo, error) {
	info := &ProjectInfo{ProjectType: "python", PackageManager: "pip"}
	if exists(repoPath, "poetry.lock") {
		info.PackageManager = "poetry"
	} else if exists(repoPath, "uv.lock") {
		info.PackageManager = "uv"
	}
	info.TestCommand = "pytest"
	info.LintCommand = "ruff check ."
	if exists(repoPath, "mypy.ini") || exists(repoPath, ".mypy.ini") {
		info.TypecheckCommand = "mypy ."
	}
	return info, nil
}

func firstScript(scripts map[string]string, candidates []string) string {
	for _, c := range candidates {
		if _, ok := scripts[c]; ok {
			return c
		}
	}
	return ""
}

func exists(dir string, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
