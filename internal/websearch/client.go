// Package websearch consumes an external text-search capability and shapes
// its output for the pipeline. Failures never propagate: an error or an
// empty result list degrade to a single manual-search fallback link.
package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/mentor/pkg/models"
)

// DefaultMaxResults bounds how many hits a search returns.
const DefaultMaxResults = 3

// querySuffix biases results towards free learning material.
const querySuffix = " free tutorial documentation"

// Client queries a SearXNG-style JSON search endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a search client. An empty endpoint disables live search; every
// query then resolves straight to the fallback link.
func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// searchResponse is the subset of the endpoint's JSON the client reads.
type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search returns up to max results for the query, or the single fallback
// result when the endpoint is unavailable, errors, or finds nothing.
func (c *Client) Search(ctx context.Context, query string, max int) []models.SearchResult {
	if max <= 0 {
		max = DefaultMaxResults
	}

	results, err := c.search(ctx, query, max)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Web search failed, using fallback link")
	}
	if len(results) == 0 {
		return []models.SearchResult{fallbackResult(query)}
	}
	return results
}

func (c *Client) search(ctx context.Context, query string, max int) ([]models.SearchResult, error) {
	if c.endpoint == "" {
		return nil, nil
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query+querySuffix)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	results := make([]models.SearchResult, 0, max)
	for _, r := range parsed.Results {
		if len(results) == max {
			break
		}
		results = append(results, models.SearchResult{
			Title:   r.Title,
			Link:    r.URL,
			Snippet: r.Content,
		})
	}
	return results, nil
}

// fallbackResult points the user at a manual search for the original query.
func fallbackResult(query string) models.SearchResult {
	return models.SearchResult{
		Title:   "Manual Search",
		Link:    "https://www.google.com/search?q=" + url.QueryEscape(query),
		Snippet: "Fallback: click to search manually.",
	}
}
