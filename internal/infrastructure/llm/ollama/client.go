package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/llm"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   llm.ResolveModel(llm.ProviderOllama, genModel),
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Proposer runs the review prompt on a local Ollama model. No API key is
// involved.
type Proposer struct {
	client *Client
}

func NewProposer(client *Client) *Proposer {
	return &Proposer{client: client}
}

func (p *Proposer) Name() string { return llm.ProviderOllama }

func (p *Proposer) ProposeIssues(ctx context.Context, req domain.ProposalRequest) ([]domain.CandidateIssue, error) {
	model := p.client.genModel
	if req.Model != "" {
		model = req.Model
	}
	payload := map[string]any{
		"model":   model,
		"system":  llm.SystemPrompt,
		"prompt":  llm.BuildUserPrompt(req),
		"stream":  false,
		"format":  "json",
		"options": map[string]any{"temperature": req.Temperature},
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := p.client.post(ctx, "/api/generate", "generate", payload, &response); err != nil {
		return nil, llm.ProviderError("ollama propose issues", err)
	}
	return llm.ParseIssues(response.Response), nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.post(ctx, "/api/embed", "embed", request, &response); err != nil {
		return nil, wrapTemporaryIfNeeded("ollama embed", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) post(ctx context.Context, path, operation string, payload, out any) error {
	return c.executor.Execute(ctx, "ollama."+operation, func(ctx context.Context) error {
		return llm.PostJSON(ctx, c.httpClient, "ollama "+operation, c.baseURL+path, nil, payload, out)
	}, resilience.HTTPClassifier)
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if resilience.HTTPClassifier(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
