// Package groq proposes issues through Groq's OpenAI-compatible chat API.
package groq

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

const DefaultBaseURL = "https://api.groq.com/openai/v1"

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
	if err := llm.RequireAPIKey(llm.ProviderGroq, "GROQ_API_KEY", cfg.APIKey); err != nil {
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
		model:      llm.ResolveModel(llm.ProviderGroq, cfg.Model),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   executor,
	}, nil
}

func (p *Proposer) Name() string { return llm.ProviderGroq }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *Proposer) ProposeIssues(ctx context.Context, req domain.ProposalRequest) ([]domain.CandidateIssue, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: llm.SystemPrompt},
			{Role: "user", Content: llm.BuildUserPrompt(req)},
		},
		Temperature:    req.Temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	resp, err := resilience.Call(ctx, p.executor, "groq.chat", func(ctx context.Context) (chatResponse, error) {
		var out chatResponse
		err := llm.PostJSON(ctx, p.httpClient, "groq", p.baseURL+"/chat/completions", headers, payload, &out)
		return out, err
	}, resilience.HTTPClassifier)
	if err != nil {
		return nil, llm.ProviderError("groq propose issues", err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.ProviderError("groq propose issues", errors.New("empty choices in response"))
	}
	return llm.ParseIssues(resp.Choices[0].Message.Content), nil
}
