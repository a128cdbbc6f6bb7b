package memory

import (
	"context"
	"sync"
	"testing"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	err := s.Add(context.Background(),
		[]string{
			"Companies incorporated in ADGM are subject to the jurisdiction of the ADGM Courts.",
			"Every company must keep a register of beneficial owners.",
			"Execution of documents requires authorised signatories.",
		},
		[]map[string]string{{"path": "refs/courts.pdf"}, {"path": "refs/ubo.html"}, {"path": "refs/execution.txt"}},
		[]string{"ref_0_0", "ref_1_0", "ref_2_0"},
	)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return s
}

func TestSearchRanksByRelevance(t *testing.T) {
	s := seeded(t)
	hits, err := s.Search(context.Background(), "Jurisdiction may not be ADGM Confirm jurisdiction clauses reference ADGM Courts.", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) == 0 || hits[0].ID != "ref_0_0" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Source() != "refs/courts.pdf" {
		t.Fatalf("unexpected source: %q", hits[0].Source())
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatalf("hits not in decreasing order: %+v", hits)
		}
	}
}

func TestSearchBlankQueryAndLimits(t *testing.T) {
	s := seeded(t)
	hits, err := s.Search(context.Background(), "   ", 3)
	if err != nil || hits == nil || len(hits) != 0 {
		t.Fatalf("Search(blank) = %v, %v", hits, err)
	}
	hits, _ = s.Search(context.Background(), "ADGM register signatories", 1)
	if len(hits) != 1 {
		t.Fatalf("expected k to cap results, got %d", len(hits))
	}
	hits, _ = s.Search(context.Background(), "zebra", 3)
	if len(hits) != 0 {
		t.Fatalf("expected no hits for unrelated query, got %+v", hits)
	}
}

func TestAddReplacesByID(t *testing.T) {
	s := seeded(t)
	if err := s.Add(context.Background(), []string{"Updated guidance on signatories."}, []map[string]string{{"path": "refs/new.txt"}}, []string{"ref_2_0"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 entries after upsert, got %d", s.Len())
	}
	hits, _ := s.Search(context.Background(), "signatories", 1)
	if hits[0].Source() != "refs/new.txt" {
		t.Fatalf("expected replaced entry, got %+v", hits[0])
	}
}

func TestAddRejectsMismatchedInput(t *testing.T) {
	if err := NewStore().Add(context.Background(), []string{"a", "b"}, nil, []string{"1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestConcurrentAddAndSearch(t *testing.T) {
	s := seeded(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Add(context.Background(), []string{"ADGM guidance"}, nil, []string{"dup"})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Search(context.Background(), "ADGM", 2)
		}()
	}
	wg.Wait()
	if s.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", s.Len())
	}
}
