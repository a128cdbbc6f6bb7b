package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
)

const (
	citationSnippetRunes  = 240
	groundingSnippetRunes = 400
	maxModelTextRunes     = 8000

	maxCitationsPerIssue = 5
)

var tracer = otel.Tracer("github.com/kirillkom/corporate-agent/internal/core/usecase")

type AugmentSettings struct {
	// CitationsPerIssue is the retrieval depth k. Zero disables retrieval.
	CitationsPerIssue int
	Model             string
	Temperature       float64
}

// IssueAugmenter enriches heuristic findings with reference citations and,
// when a proposer is configured, with model-proposed issues.
type IssueAugmenter struct {
	retriever ports.ReferenceRetriever
	proposer  ports.IssueProposer
	observer  ports.ReviewObserver
	settings  AugmentSettings
}

func NewIssueAugmenter(
	retriever ports.ReferenceRetriever,
	proposer ports.IssueProposer,
	observer ports.ReviewObserver,
	settings AugmentSettings,
) *IssueAugmenter {
	if settings.CitationsPerIssue < 0 {
		settings.CitationsPerIssue = 0
	}
	if settings.CitationsPerIssue > maxCitationsPerIssue {
		settings.CitationsPerIssue = maxCitationsPerIssue
	}
	if settings.Temperature < 0 {
		settings.Temperature = 0
	}
	if settings.Temperature > 1 {
		settings.Temperature = 1
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &IssueAugmenter{
		retriever: retriever,
		proposer:  proposer,
		observer:  observer,
		settings:  settings,
	}
}

// ProviderName returns the configured proposer name, or "" without one.
func (a *IssueAugmenter) ProviderName() string {
	if a == nil || a.proposer == nil {
		return ""
	}
	return a.proposer.Name()
}

// Augment returns the enriched issue list and any non-fatal warnings. Citation
// attachment always completes before the model is consulted. Failures of the
// retriever or the model never surface as errors.
func (a *IssueAugmenter) Augment(
	ctx context.Context,
	docType domain.DocumentType,
	text string,
	issues []domain.Issue,
) ([]domain.Issue, []string) {
	ctx, span := tracer.Start(ctx, "augment_issues")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.type", string(docType)),
		attribute.Int("issues.heuristic", len(issues)),
	)

	var warnings []string
	if err := a.attachCitations(ctx, issues); err != nil {
		warnings = append(warnings, err.Error())
	}

	if a.proposer == nil {
		return issues, warnings
	}

	grounding, err := a.groundingContext(ctx, docType, issues)
	if err != nil {
		warnings = append(warnings, err.Error())
	}

	candidates, err := a.propose(ctx, text, grounding)
	if err != nil {
		slog.Warn("model_augmentation_skipped",
			"provider", a.proposer.Name(),
			"document_type", string(docType),
			"error", err,
		)
		a.observer.ObserveAugmentation(a.proposer.Name(), "error")
		return issues, append(warnings, fmt.Sprintf("model augmentation skipped: %v", err))
	}
	a.observer.ObserveAugmentation(a.proposer.Name(), "success")

	merged := mergeCandidates(issues, candidates, grounding)
	span.SetAttributes(attribute.Int("issues.model_added", len(merged)-len(issues)))
	return merged, warnings
}

func (a *IssueAugmenter) attachCitations(ctx context.Context, issues []domain.Issue) error {
	k := a.settings.CitationsPerIssue
	if k == 0 || a.retriever == nil {
		return nil
	}

	var firstErr error
	for i := range issues {
		query := issues[i].Issue + " " + issues[i].Suggestion
		hits, err := a.retriever.Search(ctx, query, k)
		if err != nil {
			slog.Warn("citation_lookup_failed", "issue", issues[i].Issue, "error", err)
			if firstErr == nil {
				firstErr = domain.WrapError(domain.ErrRetrievalUnavailable, "attach citations", err)
			}
			continue
		}
		if len(hits) == 0 {
			continue
		}
		issues[i].Citations = toCitations(hits, k, citationSnippetRunes)
	}
	return firstErr
}

func (a *IssueAugmenter) groundingContext(ctx context.Context, docType domain.DocumentType, issues []domain.Issue) ([]domain.Citation, error) {
	k := a.settings.CitationsPerIssue
	if k == 0 || a.retriever == nil {
		return []domain.Citation{}, nil
	}

	firstIssue := ""
	if len(issues) > 0 {
		firstIssue = issues[0].Issue
	}
	hits, err := a.retriever.Search(ctx, string(docType)+" "+firstIssue, k)
	if err != nil {
		slog.Warn("grounding_lookup_failed", "document_type", string(docType), "error", err)
		return []domain.Citation{}, domain.WrapError(domain.ErrRetrievalUnavailable, "grounding context", err)
	}
	return toCitations(hits, k, groundingSnippetRunes), nil
}

func (a *IssueAugmenter) propose(ctx context.Context, text string, grounding []domain.Citation) ([]domain.CandidateIssue, error) {
	ctx, span := tracer.Start(ctx, "propose_issues")
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", a.proposer.Name()))

	candidates, err := a.proposer.ProposeIssues(ctx, domain.ProposalRequest{
		DocumentText: truncateRunes(text, maxModelTextRunes),
		Grounding:    grounding,
		Model:        a.settings.Model,
		Temperature:  a.settings.Temperature,
	})
	if err != nil {
		span.RecordError(err)
		if domain.IsKind(err, domain.ErrModelProvider) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrModelProvider, "propose issues", err)
	}
	return candidates, nil
}

// mergeCandidates appends candidates whose (issue, suggestion) pair is not
// already present in issues. Each new issue carries the shared grounding
// context as its citations.
func mergeCandidates(issues []domain.Issue, candidates []domain.CandidateIssue, grounding []domain.Citation) []domain.Issue {
	existing := make(map[domain.IssueKey]struct{}, len(issues))
	for _, issue := range issues {
		existing[issue.Key()] = struct{}{}
	}

	for _, c := range candidates {
		key := domain.IssueKey{Issue: c.Issue, Suggestion: c.Suggestion}
		if _, dup := existing[key]; dup {
			continue
		}
		issues = append(issues, domain.Issue{
			Issue:      c.Issue,
			Severity:   domain.ParseSeverity(c.Severity),
			Suggestion: c.Suggestion,
			Section:    c.Section,
			Citations:  append([]domain.Citation{}, grounding...),
		})
	}
	return issues
}

func toCitations(hits []domain.ReferenceHit, k, snippetRunes int) []domain.Citation {
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]domain.Citation, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.Citation{
			Snippet: truncateRunes(h.Text, snippetRunes),
			Source:  h.Source(),
		})
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

type noopObserver struct{}

func (noopObserver) ObserveDocument(domain.DocumentType, []domain.Issue, bool) {}
func (noopObserver) ObserveAugmentation(string, string)                        {}
