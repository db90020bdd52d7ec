// Package checks runs the configured validation commands (lint, typecheck,
// unit) with baseline-aware gating: a category is only enforced after changes
// if it already passed on the untouched worktree.
package checks

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// Runner executes validation commands with a per-invocation timeout.
type Runner struct {
	cmd     CommandRunner
	timeout time.Duration
}

// NewRunner creates a Runner. A non-positive timeout defaults to 5 minutes.
func NewRunner(cmd CommandRunner, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Runner{cmd: cmd, timeout: timeout}
}

// invocation is the raw outcome of one command run.
type invocation struct {
	exitCode int
	output   string
	timedOut bool
}

// runCommand executes one command and captures its combined output.
func (r *Runner) runCommand(dir string, command string) (*invocation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	stdout, stderr, exitCode, err := r.cmd.Run(ctx, dir, command)
	output := stdout
	if stderr != "" {
		if output != "" {
			output += "\n"
		}
		output += stderr
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return &invocation{
				exitCode: -1,
				output:   fmt.Sprintf("timeout after %s\n%s", r.timeout, output),
				timedOut: true,
			}, nil
		}
		return nil, fmt.Errorf("run check command %q: %w", command, err)
	}

	return &invocation{exitCode: exitCode, output: output}, nil
}
