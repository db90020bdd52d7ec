// Package verdict extracts a structured review decision from free-form agent
// output. The parser is a small scanner producing a tagged Decision; the
// permissive-default policy for unparsable text lives at the call site, not
// here, so it stays visible and independently testable.
package verdict

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind is the tagged outcome of a review.
type Kind string

const (
	Approve  Kind = "approve"
	Revise   Kind = "revise"
	Reject   Kind = "reject"
	Pass     Kind = "pass"
	Fail     Kind = "fail"
	Unparsed Kind = "unparsed"
)

// Issue is one itemized finding from a revise/fail verdict.
type Issue struct {
	Severity       string `json:"severity,omitempty"`
	Category       string `json:"category,omitempty"`
	Location       string `json:"location,omitempty"`
	Recommendation string `json:"recommendation"`
}

// Decision is the structured result of parsing a review transcript.
// Issues from one cycle fully replace the previous cycle's; they are never
// merged. Cost belongs to the external call, not the text, so it is attached
// by the caller.
type Decision struct {
	Kind    Kind    `json:"verdict"`
	Issues  []Issue `json:"issues"`
	Summary string  `json:"summary,omitempty"`
}

// markerRe matches a verdict marker line, e.g. "VERDICT: APPROVE".
var markerRe = regexp.MustCompile(`(?i)^\s*VERDICT:\s*(APPROVE[D]?|REVISE|REJECT(?:ED)?|PASS(?:ED)?|FAIL(?:ED)?)\b`)

// issueRe matches a numbered-list issue line.
var issueRe = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)$`)

// severityRe matches a leading [severity] tag.
var severityRe = regexp.MustCompile(`^\[([a-zA-Z]+)\]\s*`)

// categoryRe matches a leading (category) tag.
var categoryRe = regexp.MustCompile(`^\(([a-zA-Z_-]+)\)\s*`)

// locationRe matches a leading file location like path/to/file.go:42 or
// path/to/file.py.
var locationRe = regexp.MustCompile(`^(\S+\.\w+(?::\d+)?):?\s+`)

// Parse scans text for its final verdict marker. The marker is located by
// scanning lines from the end backward, so reasoning text that mentions the
// marker word earlier cannot be mistaken for the actual verdict. Text with
// no marker yields Kind Unparsed with no issues.
func Parse(text string) Decision {
	lines := strings.Split(text, "\n")

	markerIdx := -1
	var kind Kind
	for i := len(lines) - 1; i >= 0; i-- {
		m := markerRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		markerIdx = i
		kind = normalizeKind(m[1])
		break
	}

	if markerIdx == -1 {
		return Decision{Kind: Unparsed, Issues: []Issue{}}
	}

	dec := Decision{Kind: kind, Issues: []Issue{}}

	// Only revise/fail verdicts carry itemized issues; they follow the
	// marker as numbered-list lines. Non-matching lines are ignored.
	if kind == Revise || kind == Fail {
		for _, line := range lines[markerIdx+1:] {
			m := issueRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			dec.Issues = append(dec.Issues, parseIssue(m[1]))
		}
	}

	// Summary is the last non-empty line before the marker.
	for i := markerIdx - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			dec.Summary = s
			break
		}
	}

	return dec
}

// normalizeKind folds marker spelling variants onto the canonical kinds.
func normalizeKind(raw string) Kind {
	switch strings.ToUpper(raw) {
	case "APPROVE", "APPROVED":
		return Approve
	case "REVISE":
		return Revise
	case "REJECT", "REJECTED":
		return Reject
	case "PASS", "PASSED":
		return Pass
	case "FAIL", "FAILED":
		return Fail
	}
	return Unparsed
}

// parseIssue extracts the structured fields from one issue line body:
// optional [severity], optional (category), optional file:line location,
// then the recommendation text.
func parseIssue(body string) Issue {
	issue := Issue{}
	rest := strings.TrimSpace(body)

	if m := severityRe.FindStringSubmatch(rest); m != nil {
		issue.Severity = strings.ToLower(m[1])
		rest = rest[len(m[0]):]
	}
	if m := categoryRe.FindStringSubmatch(rest); m != nil {
		issue.Category = strings.ToLower(m[1])
		rest = rest[len(m[0]):]
	}
	if m := locationRe.FindStringSubmatch(rest); m != nil {
		issue.Location = m[1]
		rest = rest[len(m[0]):]
	}

	issue.Recommendation = strings.TrimSpace(rest)
	return issue
}

// FormatIssues renders issues back into a numbered list for a revision
// prompt. Deterministic, one issue per line.
func FormatIssues(issues []Issue) string {
	var b strings.Builder
	for i, issue := range issues {
		b.WriteString(strings.TrimSpace(issueLine(i+1, issue)))
		b.WriteString("\n")
	}
	return b.String()
}

func issueLine(n int, issue Issue) string {
	var parts []string
	if issue.Severity != "" {
		parts = append(parts, "["+issue.Severity+"]")
	}
	if issue.Category != "" {
		parts = append(parts, "("+issue.Category+")")
	}
	if issue.Location != "" {
		parts = append(parts, issue.Location)
	}
	parts = append(parts, issue.Recommendation)
	return strings.TrimSpace(strings.Join(append([]string{strconv.Itoa(n) + "."}, parts...), " "))
}
