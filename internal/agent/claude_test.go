package agent

import (
	"context"
	"encoding/json"
	"testing"
)

func TestRunRejectsEmptyPrompt(t *testing.T) {
	r := NewClaudeRunner("claude")
	if _, err := r.Run(context.Background(), Request{}); err == nil {
		t.Error("empty prompt accepted")
	}
}

func TestNewClaudeRunnerDefaultsBinary(t *testing.T) {
	r := NewClaudeRunner("")
	if r.bin != "claude" {
		t.Errorf("bin = %q", r.bin)
	}
}

func TestResultEnvelopeParsing(t *testing.T) {
	raw := `{
  "type": "result",
  "subtype": "success",
  "is_error": false,
  "result": "all done",
  "session_id": "sess-1",
  "total_cost_usd": 0.42,
  "duration_ms": 1234,
  "num_turns": 7
}`
	var cr claudeResult
	if err := json.Unmarshal([]byte(raw), &cr); err != nil {
		t.Fatal(err)
	}
	if cr.SessionID != "sess-1" || cr.TotalCostUSD != 0.42 || cr.NumTurns != 7 {
		t.Errorf("envelope = %+v", cr)
	}
	if cr.IsError {
		t.Error("is_error misparsed")
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("a\nb"); got != "a" {
		t.Errorf("firstLine = %q", got)
	}
	if got := firstLine("single"); got != "single" {
		t.Errorf("firstLine = %q", got)
	}
}
