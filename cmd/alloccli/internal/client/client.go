// Package client is a thin HTTP client for the kellyfolio facade, used by
// the interactive CLI when invoked with --remote instead of running the
// allocation core in-process.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aristath/kellyfolio/internal/kelly"
)

// Client talks to a running kellyfolio HTTP facade.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client targeting baseURL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

// Allocate posts input to /allocate and decodes the allocation response.
func (c *Client) Allocate(ctx context.Context, input kelly.AllocationInput) (*kelly.AllocationResponse, error) {
	var resp kelly.AllocationResponse
	if err := c.post(ctx, "/allocate", input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Analyze posts a portfolio to /analyze and decodes the analysis response.
func (c *Client) Analyze(ctx context.Context, portfolio kelly.Portfolio) (*kelly.AnalysisResponse, error) {
	var resp kelly.AnalysisResponse
	if err := c.post(ctx, "/analyze", portfolio, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := yaml.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/yaml")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// /analyze reports a bare {code, message}; /allocate nests it under
		// "error" in its response envelope.
		var body struct {
			Code    string       `json:"code"`
			Message string       `json:"message"`
			Error   *kelly.Error `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			if body.Error != nil && body.Error.Message != "" {
				return body.Error
			}
			if body.Message != "" {
				return &kelly.Error{Code: body.Code, Message: body.Message}
			}
		}
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
