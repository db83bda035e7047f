// Package n8n mirrors vault credentials into an n8n instance's credential
// store over its public API.
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/myriagon/credvault/internal/config"
	"github.com/myriagon/credvault/internal/port/mirror"
)

const headerAPIKey = "X-N8N-API-KEY"

// Client talks to the n8n credentials API. BaseURL is a field so tests can
// point it at a local stub.
type Client struct {
	BaseURL string

	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client from mirror config. A client without a base URL
// or API key is valid but returns mirror.ErrNotConfigured on use.
func NewClient(cfg config.Mirror) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type credentialPayload struct {
	Name string         `json:"name"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Create registers a new credential and returns its engine-side id.
func (c *Client) Create(ctx context.Context, name, credType string, data map[string]any) (string, error) {
	if c.BaseURL == "" || c.apiKey == "" {
		return "", mirror.ErrNotConfigured
	}

	body, err := c.do(ctx, http.MethodPost, c.BaseURL+"/api/v1/credentials",
		credentialPayload{Name: name, Type: credType, Data: data})
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create credential: empty id in response")
	}
	return resp.ID, nil
}

// Update replaces an existing mirrored credential.
func (c *Client) Update(ctx context.Context, id, name, credType string, data map[string]any) error {
	if c.BaseURL == "" || c.apiKey == "" {
		return mirror.ErrNotConfigured
	}

	_, err := c.do(ctx, http.MethodPatch, c.BaseURL+"/api/v1/credentials/"+id,
		credentialPayload{Name: name, Type: credType, Data: data})
	return err
}

func (c *Client) do(ctx context.Context, method, url string, payload credentialPayload) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal credential: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("n8n request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read n8n response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("n8n %s %s: status %d: %s", method, url, resp.StatusCode, string(body))
	}
	return body, nil
}
