package checks

import (
	"context"
	"strings"
	"testing"
	"time"
)

// scriptRunner maps commands to exit codes and records invocation order.
type scriptRunner struct {
	exits map[string]int
	calls []string
}

func (s *scriptRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	s.calls = append(s.calls, command)
	return "out of " + command, "", s.exits[command], nil
}

func TestDetectBaselineRecordsPassingCategories(t *testing.T) {
	script := &scriptRunner{exits: map[string]int{
		"lint-cmd": 1, // broken on the clean tree
		"unit-cmd": 0,
	}}
	r := NewRunner(script, time.Minute)

	b, err := r.DetectBaseline("/repo", Commands{Lint: "lint-cmd", Unit: "unit-cmd"})
	if err != nil {
		t.Fatalf("DetectBaseline: %v", err)
	}
	if b.RunLint {
		t.Error("lint failed at baseline but is enforced")
	}
	if b.RunTypecheck {
		t.Error("typecheck was not configured but is enforced")
	}
	if !b.RunUnit {
		t.Error("unit passed at baseline but is not enforced")
	}
}

func TestDetectBaselineIdempotent(t *testing.T) {
	script := &scriptRunner{exits: map[string]int{"lint-cmd": 0, "type-cmd": 1, "unit-cmd": 0}}
	r := NewRunner(script, time.Minute)
	cmds := Commands{Lint: "lint-cmd", Typecheck: "type-cmd", Unit: "unit-cmd"}

	first, err := r.DetectBaseline("/repo", cmds)
	if err != nil {
		t.Fatalf("first DetectBaseline: %v", err)
	}
	second, err := r.DetectBaseline("/repo", cmds)
	if err != nil {
		t.Fatalf("second DetectBaseline: %v", err)
	}
	if first != second {
		t.Errorf("baseline not idempotent: %+v vs %+v", first, second)
	}
}

func TestEnforceEmptyBaselineIsNoOpSuccess(t *testing.T) {
	script := &scriptRunner{exits: map[string]int{}}
	r := NewRunner(script, time.Minute)

	res, err := r.Enforce("/repo", Commands{Lint: "lint-cmd", Unit: "unit-cmd"}, Baseline{})
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if !res.Passed {
		t.Error("empty baseline must report passed")
	}
	if res.Executed != 0 {
		t.Errorf("executed %d commands, want 0", res.Executed)
	}
	if res.Message == "" {
		t.Error("no-op success must carry an explanatory message")
	}
	if len(script.calls) != 0 {
		t.Errorf("commands were run: %v", script.calls)
	}
}

func TestEnforceStopsAtFirstFailureInPriorityOrder(t *testing.T) {
	script := &scriptRunner{exits: map[string]int{
		"lint-cmd": 0,
		"type-cmd": 2,
		"unit-cmd": 0,
	}}
	r := NewRunner(script, time.Minute)
	baseline := Baseline{RunLint: true, RunTypecheck: true, RunUnit: true}

	res, err := r.Enforce("/repo", Commands{Lint: "lint-cmd", Typecheck: "type-cmd", Unit: "unit-cmd"}, baseline)
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if res.Passed {
		t.Fatal("expected failure")
	}
	if res.FailureCategory != CategoryTypecheck {
		t.Errorf("failure category = %q, want typecheck", res.FailureCategory)
	}
	if res.ExitCode != 2 {
		t.Errorf("exit code = %d, want 2", res.ExitCode)
	}
	if res.Classification != ClassTypeError {
		t.Errorf("classification = %q, want %q", res.Classification, ClassTypeError)
	}
	// unit must not have run: typecheck failed first.
	want := []string{"lint-cmd", "type-cmd"}
	if strings.Join(script.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", script.calls, want)
	}
}

func TestEnforceSkipsCategoriesExcludedAtBaseline(t *testing.T) {
	// Lint is broken before any change; a lint regression afterwards must
	// not fail the run because only unit is enforced.
	script := &scriptRunner{exits: map[string]int{
		"lint-cmd": 1,
		"unit-cmd": 0,
	}}
	r := NewRunner(script, time.Minute)
	baseline := Baseline{RunLint: false, RunUnit: true}

	res, err := r.Enforce("/repo", Commands{Lint: "lint-cmd", Unit: "unit-cmd"}, baseline)
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if !res.Passed {
		t.Errorf("run failed on an unenforced category: %+v", res)
	}
	if res.Executed != 1 {
		t.Errorf("executed = %d, want 1", res.Executed)
	}
	for _, c := range script.calls {
		if c == "lint-cmd" {
			t.Error("excluded lint command was executed")
		}
	}
}

func TestEnforcePassesWhenAllEnforcedPass(t *testing.T) {
	script := &scriptRunner{exits: map[string]int{"lint-cmd": 0, "unit-cmd": 0}}
	r := NewRunner(script, time.Minute)

	res, err := r.Enforce("/repo", Commands{Lint: "lint-cmd", Unit: "unit-cmd"}, Baseline{RunLint: true, RunUnit: true})
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if !res.Passed || res.Executed != 2 {
		t.Errorf("got %+v, want passed with 2 executed", res)
	}
	if res.Message != "" {
		t.Errorf("unexpected message on a real pass: %q", res.Message)
	}
}

func TestClassifyCategories(t *testing.T) {
	tests := []struct {
		cat  Category
		want string
	}{
		{CategoryLint, ClassLintError},
		{CategoryTypecheck, ClassTypeError},
		{CategoryUnit, ClassTestFailure},
	}
	for _, tt := range tests {
		got := classify(tt.cat, &invocation{exitCode: 1})
		if got != tt.want {
			t.Errorf("classify(%s) = %q, want %q", tt.cat, got, tt.want)
		}
	}
	if got := classify(CategoryUnit, &invocation{exitCode: -1, timedOut: true}); got != ClassTimeout {
		t.Errorf("timeout classification = %q, want %q", got, ClassTimeout)
	}
}

func TestBaselineAny(t *testing.T) {
	if (Baseline{}).Any() {
		t.Error("empty baseline reports Any")
	}
	if !(Baseline{RunUnit: true}).Any() {
		t.Error("baseline with unit does not report Any")
	}
}
