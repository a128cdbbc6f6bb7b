package compliance

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

// BuildReport assembles the consolidated report. It recomputes the missing
// documents from entries on every call and copies the issue slices, so the
// result shares no mutable state with its inputs.
func BuildReport(process domain.Process, entries []domain.DocumentEntry, required []domain.DocumentType) domain.Report {
	findings := make([]domain.DocumentFindings, 0, len(entries))
	for _, e := range entries {
		findings = append(findings, domain.DocumentFindings{
			Document: e.Name,
			Type:     e.Type,
			Issues:   cloneIssues(e.Issues),
		})
	}
	return domain.Report{
		Process:           process,
		DocumentsUploaded: len(entries),
		RequiredDocuments: len(required),
		MissingDocuments:  MissingDocuments(required, domain.Types(entries)),
		IssuesFound:       findings,
	}
}

// SeverityCounts tallies issues by severity across all entries.
func SeverityCounts(entries []domain.DocumentEntry) map[domain.Severity]int {
	counts := make(map[domain.Severity]int)
	for _, e := range entries {
		for _, issue := range e.Issues {
			counts[issue.Severity]++
		}
	}
	return counts
}

// NoteLines renders issues as the human-readable lines written into the
// annotated copy of a document.
func NoteLines(issues []domain.Issue) []string {
	lines := make([]string, 0, len(issues))
	for _, issue := range issues {
		lines = append(lines, fmt.Sprintf("%s: %s – %s", issue.Severity, issue.Issue, issue.Suggestion))
	}
	return lines
}

// ReviewedFilename names the annotated copy of a document.
func ReviewedFilename(name string) string {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" || strings.EqualFold(ext, ".docx") {
		ext = ".docx"
	}
	return stem + "_reviewed" + ext
}

func cloneIssues(issues []domain.Issue) []domain.Issue {
	out := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		c := issue
		c.Citations = append([]domain.Citation{}, issue.Citations...)
		out = append(out, c)
	}
	return out
}
