// Package retrieval consumes the similarity index built by the offline
// ingestion job. The index is opaque here: free text in, relevant snippets
// out.
package retrieval

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/thebtf/mentor/pkg/models"
)

// Index is the nearest-neighbor text lookup the pipeline enriches context
// with. Implementations return up to k snippets; ordering beyond relevance
// is not guaranteed.
type Index interface {
	Query(ctx context.Context, text string, k int) ([]models.Snippet, error)
}

// Client queries a sidecar retrieval service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a retrieval client for the given service URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type queryRequest struct {
	Text  string `json:"text"`
	Limit int    `json:"limit"`
}

type queryResponse struct {
	Snippets []models.Snippet `json:"snippets"`
}

// Query returns up to k snippets relevant to the text.
func (c *Client) Query(ctx context.Context, text string, k int) ([]models.Snippet, error) {
	body, err := json.Marshal(queryRequest{Text: text, Limit: k})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query index: status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed queryResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	snippets := parsed.Snippets
	if k > 0 && len(snippets) > k {
		snippets = snippets[:k]
	}
	return snippets, nil
}
