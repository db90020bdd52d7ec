// Package agent defines the external coding-agent runner boundary: a
// blocking call that takes a prompt, a tool allow-list, a turn budget, and an
// optional session to resume, and returns a transcript, a resumable session
// id, and the incurred cost.
package agent

import (
	"context"
	"errors"
)

// ErrAborted is returned when a run is cancelled mid-stream, e.g. by a
// budget-driven abort of the current call.
var ErrAborted = errors.New("agent run aborted")

// Request holds the parameters for one agent invocation.
type Request struct {
	Prompt             string
	Model              string
	WorkingDir         string
	MaxTurns           int
	AllowedTools       []string
	ResumeSessionID    string
	AppendSystemPrompt string
}

// Result captures the outcome of an agent invocation.
type Result struct {
	SessionID  string  `json:"session_id"`
	CostUSD    float64 `json:"cost_usd"`
	ResultText string  `json:"result_text"`
	DurationMs int64   `json:"duration_ms"`
	NumTurns   int     `json:"num_turns"`
}

// Runner executes agent requests. Implementations block until the agent
// finishes, times out, or ctx is cancelled.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}
