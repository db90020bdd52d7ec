package task

import (
	"strings"
	"testing"
)

func TestNewRequiresTitleAndRepo(t *testing.T) {
	if _, err := New("", "desc", "/repo"); err == nil {
		t.Error("empty title accepted")
	}
	if _, err := New("   ", "desc", "/repo"); err == nil {
		t.Error("blank title accepted")
	}
	if _, err := New("fix bug", "desc", ""); err == nil {
		t.Error("empty repo path accepted")
	}
}

func TestNewAssignsUniqueIDs(t *testing.T) {
	a, err := New("fix bug", "", "/repo")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := New("fix bug", "", "/repo")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("IDs not unique: %q vs %q", a.ID, b.ID)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Fix login bug", "fix-login-bug"},
		{"Add OAuth2 support!", "add-oauth2-support"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"ALL CAPS TITLE", "all-caps-title"},
		{"!!!", "task"},
	}
	for _, tt := range tests {
		tk := &Task{Title: tt.title}
		if got := tk.Slug(); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestSlugLengthBounded(t *testing.T) {
	tk := &Task{Title: strings.Repeat("very long title ", 10)}
	got := tk.Slug()
	if len(got) > 40 {
		t.Errorf("slug too long: %d chars", len(got))
	}
	if strings.HasSuffix(got, "-") || strings.HasPrefix(got, "-") {
		t.Errorf("slug has dangling dash: %q", got)
	}
}
