// Package memory is an in-process reference index scored with hashed BM25
// term weights. It suits local runs where no Qdrant instance is available.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

type entry struct {
	id       string
	text     string
	metadata map[string]string
	vector   sparseVector
}

type Store struct {
	mu      sync.RWMutex
	entries []entry
	byID    map[string]int
}

func NewStore() *Store {
	return &Store{byID: make(map[string]int)}
}

// Add inserts or replaces entries by id.
func (s *Store) Add(_ context.Context, texts []string, metadatas []map[string]string, ids []string) error {
	if len(texts) != len(ids) || (metadatas != nil && len(metadatas) != len(texts)) {
		return fmt.Errorf("memory store add: texts/metadatas/ids length mismatch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, text := range texts {
		meta := map[string]string{}
		if metadatas != nil {
			for k, v := range metadatas[i] {
				meta[k] = v
			}
		}
		e := entry{
			id:       ids[i],
			text:     text,
			metadata: meta,
			vector:   encodeDocument(text, meta["path"]),
		}
		if pos, ok := s.byID[e.id]; ok {
			s.entries[pos] = e
			continue
		}
		s.byID[e.id] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return nil
}

// Search returns at most k entries sharing terms with query, best first.
// Ties keep insertion order.
func (s *Store) Search(_ context.Context, query string, k int) ([]domain.ReferenceHit, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return []domain.ReferenceHit{}, nil
	}
	q := encodeQuery(query)
	if len(q.Indices) == 0 {
		return []domain.ReferenceHit{}, nil
	}

	type scored struct {
		pos   int
		score float64
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ranked := make([]scored, 0, len(s.entries))
	for pos, e := range s.entries {
		if score := dot(q, e.vector); score > 0 {
			ranked = append(ranked, scored{pos: pos, score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	out := make([]domain.ReferenceHit, 0, len(ranked))
	for _, r := range ranked {
		e := s.entries[r.pos]
		meta := make(map[string]string, len(e.metadata))
		for key, v := range e.metadata {
			meta[key] = v
		}
		out = append(out, domain.ReferenceHit{
			ID:       e.id,
			Text:     e.text,
			Metadata: meta,
			Score:    r.score,
		})
	}
	return out, nil
}

// Len reports the number of indexed entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
