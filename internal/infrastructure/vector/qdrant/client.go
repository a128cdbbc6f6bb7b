package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/resilience"
)

const (
	payloadText     = "text"
	payloadRefID    = "ref_id"
	payloadMetadata = "metadata"
)

// ReferenceStore indexes reference chunks as dense vectors in a Qdrant
// collection. Embeddings come from the configured embedder.
type ReferenceStore struct {
	baseURL    string
	collection string
	embedder   ports.Embedder
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string, embedder ports.Embedder, executor *resilience.Executor) *ReferenceStore {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &ReferenceStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (s *ReferenceStore) Add(ctx context.Context, texts []string, metadatas []map[string]string, ids []string) error {
	if len(texts) == 0 {
		return nil
	}
	if len(texts) != len(ids) || (metadatas != nil && len(metadatas) != len(texts)) {
		return fmt.Errorf("qdrant add: texts/metadatas/ids length mismatch")
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return domain.WrapError(domain.ErrRetrievalUnavailable, "embed references", err)
	}
	if len(vectors) != len(texts) || len(vectors[0]) == 0 {
		return domain.WrapError(domain.ErrRetrievalUnavailable, "embed references", fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts)))
	}
	if err := s.ensureCollection(ctx, len(vectors[0])); err != nil {
		return domain.WrapError(domain.ErrRetrievalUnavailable, "ensure collection", err)
	}

	points := make([]point, 0, len(texts))
	for i := range texts {
		meta := map[string]string{}
		if metadatas != nil && metadatas[i] != nil {
			meta = metadatas[i]
		}
		points = append(points, point{
			ID:     s.pointID(ids[i]),
			Vector: vectors[i],
			Payload: map[string]any{
				payloadText:     texts[i],
				payloadRefID:    ids[i],
				payloadMetadata: meta,
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.baseURL, s.collection)
	err = s.executor.Execute(ctx, "qdrant.upsert", func(ctx context.Context) error {
		return s.do(ctx, http.MethodPut, url, map[string]any{"points": points}, nil)
	}, resilience.HTTPClassifier)
	if err != nil {
		return domain.WrapError(domain.ErrRetrievalUnavailable, "qdrant upsert", err)
	}
	return nil
}

func (s *ReferenceStore) Search(ctx context.Context, query string, k int) ([]domain.ReferenceHit, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return []domain.ReferenceHit{}, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", s.baseURL, s.collection)
	err = s.executor.Execute(ctx, "qdrant.search", func(ctx context.Context) error {
		return s.do(ctx, http.MethodPost, url, reqBody, &searchResp)
	}, resilience.HTTPClassifier)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "qdrant search", err)
	}

	out := make([]domain.ReferenceHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.ReferenceHit{
			ID:       getStringPayload(r.Payload, payloadRefID),
			Text:     getStringPayload(r.Payload, payloadText),
			Metadata: getMetadataPayload(r.Payload),
			Score:    r.Score,
		})
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// pointID maps a reference id onto the UUID space Qdrant accepts. The same
// id always lands on the same point, so re-ingestion overwrites.
func (s *ReferenceStore) pointID(refID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(s.collection+"/"+refID)).String()
}

func (s *ReferenceStore) ensureCollection(ctx context.Context, vectorSize int) error {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	if s.ensuredCollection && s.ensuredVectorSize == vectorSize {
		return nil
	}

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	url := fmt.Sprintf("%s/collections/%s", s.baseURL, s.collection)
	err := s.do(ctx, http.MethodPut, url, reqBody, nil)

	// 409 means the collection already exists.
	var statusErr *resilience.StatusError
	if err != nil && !(errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict) {
		return err
	}
	s.ensuredCollection = true
	s.ensuredVectorSize = vectorSize
	return nil
}

func (s *ReferenceStore) do(ctx context.Context, method, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal qdrant request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &resilience.StatusError{
			Service:    "qdrant",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(excerpt)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode qdrant response: %w", err)
	}
	return nil
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getMetadataPayload(payload map[string]any) map[string]string {
	out := map[string]string{}
	raw, ok := payload[payloadMetadata].(map[string]any)
	if !ok {
		return out
	}
	for k := range raw {
		out[k] = getStringPayload(raw, k)
	}
	return out
}
