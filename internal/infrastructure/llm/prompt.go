// Package llm holds what the model providers share: the review prompt,
// response parsing and the JSON-over-HTTP transport.
package llm

import (
	"encoding/json"
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

const (
	SystemPrompt = "You are an ADGM compliance assistant. Analyze the document text for red flags " +
		"(jurisdiction, missing clauses, ambiguity, signatures) under ADGM rules. " +
		"Return a JSON object with a single key 'issues' holding a list of objects with keys: " +
		"issue, severity (High/Medium/Low), suggestion, section."

	groundingSnippetRunes = 300
)

// BuildUserPrompt renders the document text and optional grounding snippets.
// The text is expected to be truncated by the caller.
func BuildUserPrompt(req domain.ProposalRequest) string {
	var b strings.Builder
	b.WriteString("Document text (truncated to 8k chars):\n")
	b.WriteString(req.DocumentText)
	b.WriteString("\n\n")
	if len(req.Grounding) > 0 {
		b.WriteString("Citations (optional):\n")
		for _, c := range req.Grounding {
			b.WriteString("- Source: ")
			b.WriteString(c.Source)
			b.WriteString("\n  Snippet: ")
			b.WriteString(truncateRunes(c.Snippet, groundingSnippetRunes))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Respond with JSON only.")
	return b.String()
}

type issuesEnvelope struct {
	Issues []candidate `json:"issues"`
}

type candidate struct {
	Issue      string `json:"issue"`
	Severity   any    `json:"severity"`
	Suggestion string `json:"suggestion"`
	Section    any    `json:"section"`
}

// ParseIssues decodes a model reply. Replies that are not the expected JSON
// shape yield no issues; entries with neither issue nor suggestion are dropped.
func ParseIssues(raw string) []domain.CandidateIssue {
	body := ExtractJSON(StripFences(raw))

	var items []candidate
	var envelope issuesEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Issues != nil {
		items = envelope.Issues
	} else if err := json.Unmarshal([]byte(body), &items); err != nil {
		return []domain.CandidateIssue{}
	}

	out := make([]domain.CandidateIssue, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Issue) == "" && strings.TrimSpace(it.Suggestion) == "" {
			continue
		}
		out = append(out, domain.CandidateIssue{
			Issue:      it.Issue,
			Severity:   scalarString(it.Severity),
			Suggestion: it.Suggestion,
			Section:    scalarString(it.Section),
		})
	}
	return out
}

// StripFences removes a surrounding ```json fence if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractJSON returns the outermost JSON object or array in raw.
func ExtractJSON(raw string) string {
	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return raw
	}
	closer := "}"
	if raw[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(raw, closer)
	if end > start {
		return raw[start : end+1]
	}
	return raw
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
