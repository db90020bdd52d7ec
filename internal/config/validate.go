package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	a := cfg.Agent

	if a.MaxBudgetUSD < 0 {
		errs = append(errs, ValidationError{Field: "agent.max_budget_usd", Message: "must not be negative"})
	}

	for _, c := range []struct {
		field string
		value int
	}{
		{"agent.cycles.plan_review", a.Cycles.PlanReview},
		{"agent.cycles.code_review", a.Cycles.CodeReview},
		{"agent.cycles.test_fix", a.Cycles.TestFix},
	} {
		if c.value < 0 {
			errs = append(errs, ValidationError{Field: c.field, Message: "must not be negative"})
		}
	}

	for _, t := range []struct {
		field string
		value int
	}{
		{"agent.turns.plan", a.Turns.Plan},
		{"agent.turns.plan_review", a.Turns.PlanReview},
		{"agent.turns.execute", a.Turns.Execute},
		{"agent.turns.code_review", a.Turns.CodeReview},
		{"agent.turns.test_fix", a.Turns.TestFix},
	} {
		if t.value < 0 {
			errs = append(errs, ValidationError{Field: t.field, Message: "must not be negative"})
		}
	}

	if a.CheckTimeout != "" {
		if _, err := time.ParseDuration(a.CheckTimeout); err != nil {
			errs = append(errs, ValidationError{
				Field:   "agent.check_timeout",
				Message: fmt.Sprintf("invalid duration %q", a.CheckTimeout),
			})
		}
	}

	return errs
}
