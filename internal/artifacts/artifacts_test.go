package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWorkdirCreatesSelfIgnoringDir(t *testing.T) {
	wt := t.TempDir()
	w, err := NewWorkdir(wt)
	if err != nil {
		t.Fatal(err)
	}

	ignore := filepath.Join(wt, DirName, ".gitignore")
	data, err := os.ReadFile(ignore)
	if err != nil {
		t.Fatalf("gitignore missing: %v", err)
	}
	if strings.TrimSpace(string(data)) != "*" {
		t.Errorf("gitignore = %q, want *", data)
	}

	if w.PlanPath() != filepath.Join(wt, DirName, "plan.md") {
		t.Errorf("PlanPath = %q", w.PlanPath())
	}
}

func TestWorkdirPlanRoundTrip(t *testing.T) {
	wt := t.TempDir()
	w, err := NewWorkdir(wt)
	if err != nil {
		t.Fatal(err)
	}

	plan := "## Approach\nx\n## Steps\ny\n## Risks\nz\n"
	if err := WriteAtomic(w.PlanPath(), []byte(plan)); err != nil {
		t.Fatal(err)
	}
	got, err := w.ReadPlan()
	if err != nil {
		t.Fatal(err)
	}
	if got != plan {
		t.Errorf("ReadPlan = %q", got)
	}
}

func TestValidatePlan(t *testing.T) {
	valid := "intro\n## Approach\na\n## Steps\nb\n## Risks\nc"
	if err := ValidatePlan(valid); err != nil {
		t.Errorf("valid plan rejected: %v", err)
	}

	if err := ValidatePlan(""); err == nil {
		t.Error("empty plan accepted")
	}
	if err := ValidatePlan("   \n\t"); err == nil {
		t.Error("blank plan accepted")
	}

	err := ValidatePlan("## Approach\nonly approach")
	if err == nil {
		t.Fatal("partial plan accepted")
	}
	if !strings.Contains(err.Error(), "## Steps") || !strings.Contains(err.Error(), "## Risks") {
		t.Errorf("error does not name missing sections: %v", err)
	}
}

func TestSaveReview(t *testing.T) {
	wt := t.TempDir()
	w, err := NewWorkdir(wt)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.SaveReview("code-review", 2, "VERDICT: PASS"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(w.ReviewPath("code-review", 2))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "VERDICT: PASS" {
		t.Errorf("review content = %q", data)
	}
}

func TestStoreSavesArtifactsPerRun(t *testing.T) {
	s := NewStore(t.TempDir())

	if err := s.SavePrompt("run-1", "plan", 1, "the prompt"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTranscript("run-1", "plan", 1, "the transcript"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveResult("run-1", map[string]string{"status": "success"}); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"plan-1.prompt.md", "plan-1.transcript.md", "result.json"} {
		if _, err := os.Stat(filepath.Join(s.BaseDir(), "run-1", name)); err != nil {
			t.Errorf("artifact %s missing: %v", name, err)
		}
	}

	var out map[string]string
	if err := ReadJSON(filepath.Join(s.BaseDir(), "run-1", "result.json"), &out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "success" {
		t.Errorf("result = %v", out)
	}
}

func TestWriteAtomicOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "f.txt")
	if err := WriteAtomic(path, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(path, []byte("two")); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "two" {
		t.Errorf("content = %q", data)
	}
}
