package completions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Request is the outbound completion payload. Optional fields are omitted
// from the JSON entirely when unset; the vendor rejects explicit nulls.
type Request struct {
	Message        string   `json:"message"`
	UserID         string   `json:"userId,omitempty"`
	ConversationID string   `json:"conversationId,omitempty"`
	ImageURLs      []string `json:"imageUrls,omitempty"`
	Stream         bool     `json:"stream,omitempty"`
}

// Status-class errors surfaced by providers. Callers classify with errors.Is.
var (
	ErrUnauthorized = fmt.Errorf("completions: unauthorized")
	ErrRateLimited  = fmt.Errorf("completions: rate limited")
	ErrServer       = fmt.Errorf("completions: server error")
)

// Provider sends one completion request and returns the raw response body.
// The body is vendor-controlled: JSON of no fixed schema, or plain text.
type Provider interface {
	Complete(ctx context.Context, token string, req Request) (string, error)
}

// HTTPClient talks to the hosted completions endpoint directly.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{url: url, client: http.DefaultClient}
}

func (c *HTTPClient) Complete(ctx context.Context, token string, creq Request) (string, error) {
	b, err := json.Marshal(creq)
	if err != nil {
		return "", fmt.Errorf("completion request encode failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("completion request build failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("completion response read failed: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w (status %d)", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w (status %d)", ErrServer, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("completion request rejected (status %d)", resp.StatusCode)
	}
	return string(body), nil
}
