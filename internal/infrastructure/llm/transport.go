package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/resilience"
)

const maxResponseBytes = 10 << 20

// PostJSON sends payload to url and decodes a 2xx response into out. Non-2xx
// responses become *resilience.StatusError carrying a bounded body excerpt.
func PostJSON(ctx context.Context, client *http.Client, service, url string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &resilience.StatusError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(excerpt)),
		}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", service, err)
	}
	return nil
}

// ProviderError tags a failed provider call with ErrModelProvider, and with
// ErrTemporary as well when another attempt could succeed.
func ProviderError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrModelProvider) {
		return err
	}
	if resilience.HTTPClassifier(err).Retryable || resilience.IsCircuitOpen(err) {
		err = domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return domain.WrapError(domain.ErrModelProvider, operation, err)
}

// RequireAPIKey fails with ErrConfiguration when key is blank.
func RequireAPIKey(provider, envName, key string) error {
	if strings.TrimSpace(key) == "" {
		return domain.WrapError(domain.ErrConfiguration, "new "+provider+" provider",
			fmt.Errorf("%s environment variable not set", envName))
	}
	return nil
}
