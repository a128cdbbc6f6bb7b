package domain

import "strings"

type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// ParseSeverity maps free-form model output onto the closed severity set.
// Anything unrecognised, including the empty string, becomes Medium.
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return SeverityHigh
	case "low":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

type Citation struct {
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

type Issue struct {
	Issue      string     `json:"issue"`
	Severity   Severity   `json:"severity"`
	Suggestion string     `json:"suggestion"`
	Section    string     `json:"section,omitempty"`
	Citations  []Citation `json:"citations"`
}

// IssueKey identifies an issue for deduplication. Severity, section and
// citations are deliberately not part of it.
type IssueKey struct {
	Issue      string
	Suggestion string
}

func (i Issue) Key() IssueKey {
	return IssueKey{Issue: i.Issue, Suggestion: i.Suggestion}
}

// CandidateIssue is an issue proposed by a language model before it is merged
// into a document's issue list.
type CandidateIssue struct {
	Issue      string `json:"issue"`
	Severity   string `json:"severity,omitempty"`
	Suggestion string `json:"suggestion"`
	Section    string `json:"section,omitempty"`
}
