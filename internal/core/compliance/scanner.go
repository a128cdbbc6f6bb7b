package compliance

import (
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

type scanRule struct {
	triggers   []string
	issue      string
	severity   domain.Severity
	suggestion string
}

var scanRules = []scanRule{
	{
		triggers:   []string{"dubai", "uae federal"},
		issue:      "Jurisdiction may not be ADGM",
		severity:   domain.SeverityHigh,
		suggestion: "Confirm jurisdiction clauses reference ADGM Courts.",
	},
	{
		triggers:   []string{"[signature]", "<signature>"},
		issue:      "Signature placeholders detected",
		severity:   domain.SeverityMedium,
		suggestion: "Ensure valid signatory blocks and execution pages are present.",
	},
}

// ScanIssues runs every heuristic rule against text and returns one issue per
// rule that fired, in rule order. The result is never nil.
func ScanIssues(text string) []domain.Issue {
	lowered := strings.ToLower(text)
	issues := make([]domain.Issue, 0, len(scanRules))
	var sections []string
	for _, rule := range scanRules {
		if !containsAny(lowered, rule.triggers) {
			continue
		}
		if sections == nil {
			sections = SplitSections(text)
		}
		issues = append(issues, domain.Issue{
			Issue:      rule.issue,
			Severity:   rule.severity,
			Suggestion: rule.suggestion,
			Section:    locateSection(sections, rule.triggers),
			Citations:  []domain.Citation{},
		})
	}
	return issues
}

// SplitSections breaks text into sections. A section starts at an upper-case
// line or at a line beginning with "clause " or "article ".
func SplitSections(text string) []string {
	var (
		sections []string
		current  []string
	)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line != "" && isSectionHeader(line) && len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		sections = append(sections, strings.Join(current, "\n"))
	}
	return sections
}

func isSectionHeader(line string) bool {
	lowered := strings.ToLower(line)
	if strings.HasPrefix(lowered, "clause ") || strings.HasPrefix(lowered, "article ") {
		return true
	}
	return line == strings.ToUpper(line) && line != lowered
}

// locateSection returns the header line of the first section containing one
// of the triggers, or "" when that section has no header.
func locateSection(sections []string, triggers []string) string {
	for _, section := range sections {
		if !containsAny(strings.ToLower(section), triggers) {
			continue
		}
		header, _, _ := strings.Cut(strings.TrimSpace(section), "\n")
		if isSectionHeader(header) {
			return header
		}
		return ""
	}
	return ""
}
