package checks

// Failure classifications surfaced to the fix loop and the event ledger.
const (
	ClassLintError    = "lint_error"
	ClassTypeError    = "type_error"
	ClassTestFailure  = "test_failure"
	ClassTimeout      = "timeout"
	ClassCommandError = "command_error"
)

// classify maps a failed invocation to a failure class.
func classify(cat Category, inv *invocation) string {
	if inv.timedOut {
		return ClassTimeout
	}
	// Exit codes far outside the tool's normal failure range usually mean
	// the command itself broke (missing binary, bad script).
	if inv.exitCode >= 126 || inv.exitCode < 0 {
		return ClassCommandError
	}
	switch cat {
	case CategoryLint:
		return ClassLintError
	case CategoryTypecheck:
		return ClassTypeError
	case CategoryUnit:
		return ClassTestFailure
	}
	return ClassCommandError
}
