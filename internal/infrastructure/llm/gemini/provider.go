// Package gemini proposes issues through the Gemini generateContent API.
package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/llm"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type Proposer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New validates the API key before any document is sent.
func New(cfg Config, executor *resilience.Executor) (*Proposer, error) {
	if err := llm.RequireAPIKey(llm.ProviderGemini, "GEMINI_API_KEY", cfg.APIKey); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Proposer{
		apiKey:     cfg.APIKey,
		model:      llm.ResolveModel(llm.ProviderGemini, cfg.Model),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   executor,
	}, nil
}

func (p *Proposer) Name() string { return llm.ProviderGemini }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction content          `json:"systemInstruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (p *Proposer) ProposeIssues(ctx context.Context, req domain.ProposalRequest) ([]domain.CandidateIssue, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	payload := generateRequest{
		SystemInstruction: content{Parts: []part{{Text: llm.SystemPrompt}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: llm.BuildUserPrompt(req)}}}},
		GenerationConfig: generationConfig{
			Temperature:      req.Temperature,
			ResponseMimeType: "application/json",
		},
	}
	endpoint := p.baseURL + "/" + model + ":generateContent"
	headers := map[string]string{"x-goog-api-key": p.apiKey}

	resp, err := resilience.Call(ctx, p.executor, "gemini.generate", func(ctx context.Context) (generateResponse, error) {
		var out generateResponse
		err := llm.PostJSON(ctx, p.httpClient, "gemini", endpoint, headers, payload, &out)
		return out, err
	}, resilience.HTTPClassifier)
	if err != nil {
		return nil, llm.ProviderError("gemini propose issues", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, llm.ProviderError("gemini propose issues", errors.New("no candidates in response"))
	}

	var text strings.Builder
	for _, pt := range resp.Candidates[0].Content.Parts {
		text.WriteString(pt.Text)
	}
	return llm.ParseIssues(text.String()), nil
}
