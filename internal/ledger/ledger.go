// Package ledger keeps the append-only record of phase outcomes. The run's
// cumulative cost is always the sum over entries, never a separately mutated
// counter, so the total is reconstructable and monotonically non-decreasing.
package ledger

import "time"

// PhaseResult is one append-only log entry for a completed (or failed) phase.
type PhaseResult struct {
	Phase      string  `json:"phase"`
	Success    bool    `json:"success"`
	SessionID  string  `json:"session_id,omitempty"`
	CostUSD    float64 `json:"cost_usd"`
	DurationMs int64   `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// Ledger accumulates PhaseResult entries for a single run. There is exactly
// one writer (the orchestrator) and no concurrent readers, so no locking.
type Ledger struct {
	entries []PhaseResult
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append records a phase result. Entries are never removed or rewritten.
func (l *Ledger) Append(r PhaseResult) {
	l.entries = append(l.entries, r)
}

// TotalCostUSD sums cost over every recorded entry.
func (l *Ledger) TotalCostUSD() float64 {
	var total float64
	for _, e := range l.entries {
		total += e.CostUSD
	}
	return total
}

// TotalDuration sums phase durations over every recorded entry.
func (l *Ledger) TotalDuration() time.Duration {
	var ms int64
	for _, e := range l.entries {
		ms += e.DurationMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Entries returns a copy of the recorded results in append order.
func (l *Ledger) Entries() []PhaseResult {
	out := make([]PhaseResult, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}
