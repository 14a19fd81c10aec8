// Package relayclient calls a running relay proxy over HTTP.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mentor-chat/internal/models"
)

const maxResponseBytes = 1 << 20

// Error is a non-200 answer from the proxy.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New targets the proxy route at endpoint, for example
// http://localhost:8080/api/v1/gemini.
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Generate posts messages and returns the generated text.
func (c *Client) Generate(ctx context.Context, messages []models.Message) (string, error) {
	body, err := json.Marshal(models.RelayRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to encode relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read relay response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var relayErr models.RelayError
		if json.Unmarshal(data, &relayErr) != nil || relayErr.Error == "" {
			relayErr.Error = strings.TrimSpace(string(data))
		}
		return "", &Error{StatusCode: resp.StatusCode, Message: relayErr.Error}
	}

	var out models.RelayResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode relay response: %w", err)
	}
	return out.Response, nil
}
