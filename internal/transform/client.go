// internal/transform/client.go
package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/scribeworks/scribe/internal/logger"
)

// Client calls a hosted transformation service over HTTP. The wire
// contract is a single POST with the action kind, the selected text, and
// optional instructions/context; the response carries plain text.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

// ClientConfig holds settings for the HTTP transformer.
type ClientConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Compile-time check.
var _ Transformer = (*Client)(nil)

// NewClient creates an HTTP transformer.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		http:    &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

type wireRequest struct {
	Model        string `json:"model"`
	Action       string `json:"action"`
	Text         string `json:"text"`
	Instructions string `json:"instructions,omitempty"`
	Context      string `json:"context,omitempty"`
}

type wireResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Transform sends the request and returns the cleaned result text.
func (c *Client) Transform(ctx context.Context, req Request) (string, error) {
	if !req.Kind.Valid() {
		return "", fmt.Errorf("unknown transformation kind %q", req.Kind)
	}
	if req.Text == "" {
		return "", fmt.Errorf("nothing selected to transform")
	}

	body, err := json.Marshal(wireRequest{
		Model:        c.model,
		Action:       string(req.Kind),
		Text:         req.Text,
		Instructions: req.Instructions,
		Context:      req.DocumentContext,
	})
	if err != nil {
		return "", fmt.Errorf("encode transform request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transform", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build transform request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("transformation service unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read transform response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transformation service returned %s", resp.Status)
	}

	var wire wireResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return "", fmt.Errorf("decode transform response: %w", err)
	}
	if wire.Error != "" {
		return "", fmt.Errorf("transformation failed: %s", wire.Error)
	}

	result := Clean(wire.Text)
	if result == "" {
		return "", fmt.Errorf("transformation returned empty text")
	}

	logger.DebugTagf("transform", "%s of %d chars -> %d chars in %v", req.Kind, len(req.Text), len(result), time.Since(start))
	return result, nil
}
