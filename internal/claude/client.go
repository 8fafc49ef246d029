// Package claude talks to the Anthropic messages API for careers-URL
// discovery and job title extraction.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"
	defaultTimeout = 60 * time.Second
	maxAttempts     = 3
	initialBackoff = 500 * time.Millisecond
)

// APIError is a failed call to the language-model API. Transient errors (rate
// limits, overload, server faults) are retried by the client; permanent ones
// (bad credentials, malformed requests) are returned immediately so callers
// can stop the run instead of burning spend.
type APIError struct {
	Status    int
	Message   string
	Transient bool
}

func (e *APIError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("api error (%s, HTTP %d): %s", kind, e.Status, e.Message)
}

// IsPermanent reports whether err is a non-retryable API failure.
func IsPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && !apiErr.Transient
}

// Client communicates with the Anthropic API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	maxAttempts int
	backoff    time.Duration
}

// NewClient creates a client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxAttempts: maxAttempts,
		backoff:    initialBackoff,
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for
// testing).
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type messageRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends a single-turn prompt and returns the model's text response.
// Transient API errors are retried with exponential backoff; permanent ones
// are returned on the first occurrence.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(messageRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: 0.1,
		Messages:    []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := range c.maxAttempts {
		if attempt > 0 {
			backoff := time.Duration(float64(c.backoff) * math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := c.doComplete(ctx, body)
		if err == nil {
			return text, nil
		}
		if IsPermanent(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("giving up after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) doComplete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures are treated as transient.
		return "", &APIError{Status: 0, Message: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{
			Status:    resp.StatusCode,
			Message:   strings.TrimSpace(string(respBody)),
			Transient: transientStatus(resp.StatusCode),
		}
	}

	var result messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != nil {
		return "", &APIError{Status: resp.StatusCode, Message: result.Error.Message, Transient: false}
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func transientStatus(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= 500
}
