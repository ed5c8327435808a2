package sampler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTP client timeout (default 30 seconds)
var httpTimeout = 30 * time.Second

// HTTPSampler talks to a model provider selected by the model-id
// prefix. Transport failures are retried here with a wait between
// attempts and never consume the runner's sampling attempts.
type HTTPSampler struct {
	Model  string
	APIKey string

	Client    *http.Client
	Providers map[string]*Provider

	// MaxAttempts bounds transport retries; WaitTime separates them.
	MaxAttempts int
	WaitTime    time.Duration

	// MaxCharacters truncates the raw response; Terminators cut it at
	// the first occurrence of any marker.
	MaxCharacters int
	Terminators   []string

	Log io.Writer
}

func NewHTTPSampler(model, apiKey string) *HTTPSampler {
	return &HTTPSampler{
		Model:         model,
		APIKey:        apiKey,
		Client:        &http.Client{Timeout: httpTimeout},
		Providers:     DefaultProviders(),
		MaxAttempts:   10,
		WaitTime:      10 * time.Second,
		MaxCharacters: 10000,
		Log:           io.Discard,
	}
}

func (s *HTTPSampler) Sample(ctx context.Context, req Request) (string, error) {
	query := req.Prompt + CurrentLineHint(req) + "\n\n" + req.Context
	query = CleanContext(query)

	text, err := s.sampleText(ctx, query)
	if err != nil {
		return "", err
	}

	text = NormalizeResponse(text)
	return SelectLine(text, req.DefaultAssignment, req.Mode), nil
}

// sampleText performs the transport call with bounded retries.
func (s *HTTPSampler) sampleText(ctx context.Context, prompt string) (string, error) {
	provider, err := ProviderForModel(s.Model, s.Providers)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	var lastErr error
	for attempt := 0; attempt < s.MaxAttempts; attempt++ {
		if attempt > 0 {
			fmt.Fprintf(s.Log, "attempt %d failed: %v, retrying after %s\n", attempt, lastErr, s.WaitTime)
			select {
			case <-ctx.Done():
				return "", &TransportError{Provider: provider.Name, Err: ctx.Err()}
			case <-time.After(s.WaitTime):
			}
		}

		text, err := s.callOnce(ctx, provider, prompt)
		if err == nil {
			return s.postprocess(text), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", &TransportError{Provider: provider.Name, Err: lastErr}
}

func (s *HTTPSampler) callOnce(ctx context.Context, provider *Provider, prompt string) (string, error) {
	payload, err := json.Marshal(provider.Payload(prompt, s.Model))
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.URL(s.Model, s.APIKey), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	for key, value := range provider.Headers(s.APIKey) {
		httpReq.Header.Set(key, value)
	}

	resp, err := s.Client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if errValue, ok := decoded[provider.ErrorKey]; ok {
		return "", fmt.Errorf("API error: %s", apiErrorMessage(errValue))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	text, err := walkResponse(decoded, provider.ResponsePath)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (s *HTTPSampler) postprocess(text string) string {
	if s.MaxCharacters > 0 && len(text) > s.MaxCharacters {
		text = text[:s.MaxCharacters]
	}
	for _, terminator := range s.Terminators {
		if idx := strings.Index(text, terminator); idx >= 0 {
			text = text[:idx]
			break
		}
	}
	return text
}

func apiErrorMessage(errValue interface{}) string {
	if m, ok := errValue.(map[string]interface{}); ok {
		if msg, ok := m["message"].(string); ok {
			return msg
		}
	}
	return "Unknown error"
}

// walkResponse follows a dotted path through decoded JSON, where
// numeric segments index arrays.
func walkResponse(value interface{}, path []string) (string, error) {
	current := value
	for _, segment := range path {
		switch node := current.(type) {
		case map[string]interface{}:
			next, ok := node[segment]
			if !ok {
				return "", fmt.Errorf("no valid response found in API response")
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return "", fmt.Errorf("no valid response found in API response")
			}
			current = node[idx]
		default:
			return "", fmt.Errorf("no valid response found in API response")
		}
	}
	text, ok := current.(string)
	if !ok {
		return "", fmt.Errorf("no valid response found in API response")
	}
	return strings.TrimSpace(text), nil
}
