package db

import "fmt"

// StartRun records the beginning of a run.
func (d *DB) StartRun(runID string, title string, repoPath string) error {
	_, err := d.conn.Exec(
		"INSERT INTO runs (run_id, title, repo_path) VALUES (?, ?, ?)",
		runID, title, repoPath,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records a run's terminal status and totals.
func (d *DB) FinishRun(runID string, status string, branch string, prURL string, costUSD float64, durationMs int64) error {
	_, err := d.conn.Exec(
		`UPDATE runs SET status = ?, branch = ?, pr_url = ?, cost_usd = ?,
		 duration_ms = ?, finished_at = datetime('now') WHERE run_id = ?`,
		status, branch, prURL, costUSD, durationMs, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// LogPhase records one phase outcome.
func (d *DB) LogPhase(runID string, phase string, success bool, sessionID string, costUSD float64, durationMs int64, errText string) error {
	_, err := d.conn.Exec(
		`INSERT INTO phase_events (run_id, phase, success, session_id, cost_usd, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, phase, success, sessionID, costUSD, durationMs, errText,
	)
	if err != nil {
		return fmt.Errorf("insert phase event: %w", err)
	}
	return nil
}

// LogCheck records one check invocation outcome.
func (d *DB) LogCheck(runID string, phase string, category string, passed bool, exitCode int, classification string) error {
	_, err := d.conn.Exec(
		`INSERT INTO check_runs (run_id, phase, category, passed, exit_code, classification)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, phase, category, passed, exitCode, classification,
	)
	if err != nil {
		return fmt.Errorf("insert check run: %w", err)
	}
	return nil
}

// RunSummary is one row of the stats listing.
type RunSummary struct {
	RunID      string
	Title      string
	Status     string
	Branch     string
	PRURL      string
	CostUSD    float64
	DurationMs int64
	StartedAt  string
}

// RecentRuns returns up to limit runs, newest first.
func (d *DB) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(
		`SELECT run_id, title, status, COALESCE(branch, ''), COALESCE(pr_url, ''),
		        cost_usd, duration_ms, started_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Title, &r.Status, &r.Branch, &r.PRURL, &r.CostUSD, &r.DurationMs, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TotalCost sums cost across all recorded runs.
func (d *DB) TotalCost() (float64, error) {
	var total float64
	err := d.conn.QueryRow("SELECT COALESCE(SUM(cost_usd), 0) FROM runs").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum cost: %w", err)
	}
	return total, nil
}
