package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kirillkom/corporate-agent/internal/core/compliance"
	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

const dubaiArticles = "Articles of Association\n\nClause 3.1 Jurisdiction\nThis Company shall be governed by the laws of Dubai.\n\n[signature]"

func hit(text, path string) domain.ReferenceHit {
	return domain.ReferenceHit{Text: text, Metadata: map[string]string{"path": path}}
}

func TestAugmentAttachesTruncatedCitations(t *testing.T) {
	long := strings.Repeat("é", 300)
	retriever := &retrieverFake{hits: []domain.ReferenceHit{
		hit(long, "refs/a.pdf"),
		hit("short", "refs/b.html"),
		hit("ignored", "refs/c.txt"),
	}}
	augmenter := NewIssueAugmenter(retriever, nil, nil, AugmentSettings{CitationsPerIssue: 2})

	issues, warnings := augmenter.Augment(context.Background(), domain.DocumentArticlesOfAssociation, dubaiArticles, compliance.ScanIssues(dubaiArticles))
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	for _, issue := range issues {
		if len(issue.Citations) != 2 {
			t.Fatalf("expected 2 citations for %q, got %d", issue.Issue, len(issue.Citations))
		}
		if n := utf8.RuneCountInString(issue.Citations[0].Snippet); n != citationSnippetRunes {
			t.Fatalf("expected snippet of %d runes, got %d", citationSnippetRunes, n)
		}
		if issue.Citations[0].Source != "refs/a.pdf" || issue.Citations[1].Source != "refs/b.html" {
			t.Fatalf("unexpected sources: %+v", issue.Citations)
		}
	}

	wantQuery := "Jurisdiction may not be ADGM Confirm jurisdiction clauses reference ADGM Courts."
	if retriever.queries[0] != wantQuery {
		t.Fatalf("query = %q, want %q", retriever.queries[0], wantQuery)
	}
	if retriever.ks[0] != 2 {
		t.Fatalf("expected k=2, got %d", retriever.ks[0])
	}
}

func TestAugmentKeepsEmptyCitationsWithoutHits(t *testing.T) {
	augmenter := NewIssueAugmenter(&retrieverFake{}, nil, nil, AugmentSettings{CitationsPerIssue: 2})

	issues, _ := augmenter.Augment(context.Background(), domain.DocumentArticlesOfAssociation, dubaiArticles, compliance.ScanIssues(dubaiArticles))
	for _, issue := range issues {
		if issue.Citations == nil || len(issue.Citations) != 0 {
			t.Fatalf("expected empty citations, got %#v", issue.Citations)
		}
	}
}

func TestAugmentAddsModelIssuesWithSharedGrounding(t *testing.T) {
	groundingQuery := "Articles of Association Jurisdiction may not be ADGM"
	retriever := &retrieverFake{
		hits: []domain.ReferenceHit{hit("per-issue", "refs/issue.txt")},
		byQuery: map[string][]domain.ReferenceHit{
			groundingQuery: {hit(strings.Repeat("x", 600), "refs/context.pdf")},
		},
	}
	proposer := &proposerFake{candidates: []domain.CandidateIssue{
		{Issue: "Missing registered office clause", Severity: "High", Suggestion: "Add an ADGM registered office address.", Section: "Clause 2"},
		{Issue: "Ambiguous share classes", Suggestion: "Define each share class."},
	}}
	observer := &observerFake{}
	augmenter := NewIssueAugmenter(retriever, proposer, observer, AugmentSettings{CitationsPerIssue: 1, Model: "m", Temperature: 0.2})

	issues, warnings := augmenter.Augment(context.Background(), domain.DocumentArticlesOfAssociation, dubaiArticles, compliance.ScanIssues(dubaiArticles))
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(issues) != 4 {
		t.Fatalf("expected 4 issues, got %d", len(issues))
	}
	if issues[0].Citations[0].Source != "refs/issue.txt" {
		t.Fatalf("heuristic issue citations = %+v", issues[0].Citations)
	}

	added := issues[2]
	if added.Severity != domain.SeverityHigh || added.Section != "Clause 2" {
		t.Fatalf("unexpected model issue: %+v", added)
	}
	if len(added.Citations) != 1 || added.Citations[0].Source != "refs/context.pdf" {
		t.Fatalf("expected grounding citation, got %+v", added.Citations)
	}
	if n := utf8.RuneCountInString(added.Citations[0].Snippet); n != groundingSnippetRunes {
		t.Fatalf("expected grounding snippet of %d runes, got %d", groundingSnippetRunes, n)
	}
	if issues[3].Severity != domain.SeverityMedium {
		t.Fatalf("expected default severity Medium, got %q", issues[3].Severity)
	}

	if len(proposer.requests) != 1 {
		t.Fatalf("expected 1 proposer call, got %d", len(proposer.requests))
	}
	req := proposer.requests[0]
	if req.Model != "m" || req.Temperature != 0.2 {
		t.Fatalf("unexpected request settings: %+v", req)
	}
	if len(req.Grounding) != 1 || utf8.RuneCountInString(req.Grounding[0].Snippet) != groundingSnippetRunes {
		t.Fatalf("unexpected grounding: %+v", req.Grounding)
	}
	if observer.augmentations["success"] != 1 {
		t.Fatalf("expected success observation, got %v", observer.augmentations)
	}
}

func TestAugmentDedupIgnoresSeverity(t *testing.T) {
	proposer := &proposerFake{candidates: []domain.CandidateIssue{
		{Issue: "Jurisdiction may not be ADGM", Severity: "Low", Suggestion: "Confirm jurisdiction clauses reference ADGM Courts."},
		{Issue: "Jurisdiction may not be ADGM", Severity: "High", Suggestion: "Different wording."},
	}}
	augmenter := NewIssueAugmenter(&retrieverFake{}, proposer, nil, AugmentSettings{CitationsPerIssue: 2})

	issues, _ := augmenter.Augment(context.Background(), domain.DocumentArticlesOfAssociation, dubaiArticles, compliance.ScanIssues(dubaiArticles))
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d: %+v", len(issues), issues)
	}
	if issues[0].Severity != domain.SeverityHigh {
		t.Fatalf("heuristic issue must keep its severity, got %q", issues[0].Severity)
	}
	if issues[2].Suggestion != "Different wording." {
		t.Fatalf("unexpected appended issue: %+v", issues[2])
	}
}

func TestAugmentProviderFailureKeepsHeuristicIssues(t *testing.T) {
	proposer := &proposerFake{err: errors.New("503 service unavailable")}
	observer := &observerFake{}
	augmenter := NewIssueAugmenter(&retrieverFake{}, proposer, observer, AugmentSettings{CitationsPerIssue: 2})

	heuristic := compliance.ScanIssues(dubaiArticles)
	issues, warnings := augmenter.Augment(context.Background(), domain.DocumentArticlesOfAssociation, dubaiArticles, heuristic)
	if len(issues) != 2 {
		t.Fatalf("expected heuristic issues only, got %d", len(issues))
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "model augmentation skipped") {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if observer.augmentations["error"] != 1 {
		t.Fatalf("expected error observation, got %v", observer.augmentations)
	}
}

func TestAugmentRetrievalFailureMeansNoCitations(t *testing.T) {
	retriever := &retrieverFake{err: errors.New("index offline")}
	proposer := &proposerFake{candidates: []domain.CandidateIssue{{Issue: "x", Suggestion: "y"}}}
	augmenter := NewIssueAugmenter(retriever, proposer, nil, AugmentSettings{CitationsPerIssue: 3})

	issues, warnings := augmenter.Augment(context.Background(), domain.DocumentArticlesOfAssociation, dubaiArticles, compliance.ScanIssues(dubaiArticles))
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d", len(issues))
	}
	for _, issue := range issues {
		if len(issue.Citations) != 0 {
			t.Fatalf("expected no citations, got %+v", issue.Citations)
		}
	}
	if len(warnings) == 0 || !strings.Contains(warnings[0], domain.ErrRetrievalUnavailable.Error()) {
		t.Fatalf("expected retrieval warning, got %v", warnings)
	}
}

func TestAugmentZeroDepthSkipsRetrieval(t *testing.T) {
	retriever := &retrieverFake{hits: []domain.ReferenceHit{hit("t", "p")}}
	proposer := &proposerFake{}
	augmenter := NewIssueAugmenter(retriever, proposer, nil, AugmentSettings{CitationsPerIssue: 0})

	augmenter.Augment(context.Background(), domain.DocumentArticlesOfAssociation, dubaiArticles, compliance.ScanIssues(dubaiArticles))
	if len(retriever.queries) != 0 {
		t.Fatalf("expected no searches, got %v", retriever.queries)
	}
	if len(proposer.requests) != 1 || len(proposer.requests[0].Grounding) != 0 {
		t.Fatalf("expected one request without grounding, got %+v", proposer.requests)
	}
}

func TestAugmentGroundingQueryWithoutIssues(t *testing.T) {
	retriever := &retrieverFake{}
	proposer := &proposerFake{}
	augmenter := NewIssueAugmenter(retriever, proposer, nil, AugmentSettings{CitationsPerIssue: 2})

	issues, _ := augmenter.Augment(context.Background(), domain.DocumentResolution, "Board Resolution", []domain.Issue{})
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
	if len(retriever.queries) != 1 || retriever.queries[0] != "Resolution " {
		t.Fatalf("unexpected queries: %q", retriever.queries)
	}
}

func TestAugmentTruncatesDocumentText(t *testing.T) {
	proposer := &proposerFake{}
	augmenter := NewIssueAugmenter(nil, proposer, nil, AugmentSettings{CitationsPerIssue: 2})

	text := strings.Repeat("ж", maxModelTextRunes+50)
	augmenter.Augment(context.Background(), domain.DocumentUnknown, text, []domain.Issue{})
	if n := utf8.RuneCountInString(proposer.requests[0].DocumentText); n != maxModelTextRunes {
		t.Fatalf("expected %d runes sent, got %d", maxModelTextRunes, n)
	}
}

func TestNewIssueAugmenterClampsSettings(t *testing.T) {
	a := NewIssueAugmenter(nil, nil, nil, AugmentSettings{CitationsPerIssue: 9, Temperature: 3})
	if a.settings.CitationsPerIssue != maxCitationsPerIssue || a.settings.Temperature != 1 {
		t.Fatalf("unexpected settings: %+v", a.settings)
	}
	if a.ProviderName() != "" {
		t.Fatalf("expected empty provider name, got %q", a.ProviderName())
	}
}
