package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ClaudeRunner runs the Claude Code CLI headless (`claude -p`) and parses
// its JSON result envelope.
type ClaudeRunner struct {
	bin string
}

// NewClaudeRunner creates a runner for the given binary; empty means
// "claude" on PATH.
func NewClaudeRunner(bin string) *ClaudeRunner {
	if bin == "" {
		bin = "claude"
	}
	return &ClaudeRunner{bin: bin}
}

// claudeResult mirrors the CLI's --output-format json envelope.
type claudeResult struct {
	Type         string  `json:"type"`
	Subtype      string  `json:"subtype"`
	IsError      bool    `json:"is_error"`
	Result       string  `json:"result"`
	SessionID    string  `json:"session_id"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	DurationMs   int64   `json:"duration_ms"`
	NumTurns     int     `json:"num_turns"`
}

// Run invokes the CLI and blocks until it finishes or ctx is cancelled.
// Cancellation maps to ErrAborted; the partial cost reported by a cancelled
// call is lost, which the budget check tolerates by running before phases
// as well as after.
func (r *ClaudeRunner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("agent: prompt must not be empty")
	}

	args := []string{"-p", "--output-format", "json"}
	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if req.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(req.MaxTurns))
	}
	if len(req.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(req.AllowedTools, ","))
	}
	if req.ResumeSessionID != "" {
		args = append(args, "--resume", req.ResumeSessionID)
	}
	if req.AppendSystemPrompt != "" {
		args = append(args, "--append-system-prompt", req.AppendSystemPrompt)
	}

	log.Debug().Str("model", req.Model).Int("max_turns", req.MaxTurns).
		Str("resume", req.ResumeSessionID).Msg("agent run")

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.Dir = req.WorkingDir
	cmd.Stdin = strings.NewReader(req.Prompt)
	out, err := cmd.Output()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		return nil, fmt.Errorf("agent run after %s: %w", elapsed.Round(time.Second), ErrAborted)
	}
	if err != nil {
		detail := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("agent run: %s: %w", detail, err)
	}

	var cr claudeResult
	if err := json.Unmarshal(out, &cr); err != nil {
		return nil, fmt.Errorf("parse agent result JSON: %w", err)
	}
	if cr.IsError {
		return nil, fmt.Errorf("agent reported error: %s", firstLine(cr.Result))
	}

	res := &Result{
		SessionID:  cr.SessionID,
		CostUSD:    cr.TotalCostUSD,
		ResultText: cr.Result,
		DurationMs: cr.DurationMs,
		NumTurns:   cr.NumTurns,
	}
	if res.DurationMs == 0 {
		res.DurationMs = elapsed.Milliseconds()
	}
	return res, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
