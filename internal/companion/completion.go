package companion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultCompletionTimeout = 30 * time.Second

// ErrNotConfigured is returned when no API key was configured at startup.
var ErrNotConfigured = errors.New("OPENROUTER_API_KEY is not configured")

// TransportError covers network failures, timeouts and non-2xx responses.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("completion request failed: %v", e.Err)
	}
	return fmt.Sprintf("completion request failed (%d): %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseShapeError means the provider answered 2xx with a body we cannot read a reply from.
type ResponseShapeError struct {
	Missing string
	Err     error
}

func (e *ResponseShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected completion response format: %v", e.Err)
	}
	return fmt.Sprintf("unexpected completion response format: missing %s", e.Missing)
}

func (e *ResponseShapeError) Unwrap() error {
	return e.Err
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Completer sends one chat-completion request and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	AppName string
	Timeout time.Duration
}

// OpenRouterClient talks to an OpenAI-compatible /chat/completions endpoint.
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	appName    string
	httpClient *http.Client
}

func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCompletionTimeout
	}
	return &OpenRouterClient{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		appName: strings.TrimSpace(cfg.AppName),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type completionResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete makes a single attempt; failures are never retried here.
func (c *OpenRouterClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	bodyRaw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyRaw))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")
	if c.appName != "" {
		request.Header.Set("X-Title", c.appName)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", &TransportError{StatusCode: response.StatusCode, Err: err}
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", &TransportError{
			StatusCode: response.StatusCode,
			Body:       truncateForLog(string(responseBody), 500),
		}
	}

	return extractReply(responseBody)
}

func extractReply(body []byte) (string, error) {
	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ResponseShapeError{Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &ResponseShapeError{Missing: "choices[0]"}
	}
	first := parsed.Choices[0]
	if first.Message == nil {
		return "", &ResponseShapeError{Missing: "choices[0].message"}
	}
	if first.Message.Content == nil {
		return "", &ResponseShapeError{Missing: "choices[0].message.content"}
	}
	return *first.Message.Content, nil
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}
