// Package search answers queries through a SerpApi-compatible web search
// endpoint and formats the top organic results as speakable text.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoResults is returned when the search succeeds but yields nothing usable.
var ErrNoResults = errors.New("search: no results")

// Client queries the search API.
type Client struct {
	BaseURL string
	APIKey  string
	Engine  string
	Limit   int
	HTTP    *http.Client
}

// New returns a search client. limit caps the number of results included
// in the answer text.
func New(baseURL, apiKey, engine string, limit int) *Client {
	if limit <= 0 {
		limit = 5
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Engine:  engine,
		Limit:   limit,
		HTTP:    &http.Client{Timeout: 20 * time.Second},
	}
}

type organicResult struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Answer runs the query and returns one line per result, "title — link".
func (c *Client) Answer(ctx context.Context, query string) (string, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("engine", c.Engine)
	q.Set("api_key", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("search: build request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("search: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search: status %d", resp.StatusCode)
	}

	var out struct {
		OrganicResults []organicResult `json:"organic_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("search: decode: %w", err)
	}

	lines := make([]string, 0, c.Limit)
	for _, r := range out.OrganicResults {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s — %s", r.Title, r.Link))
		if len(lines) >= c.Limit {
			break
		}
	}
	if len(lines) == 0 {
		return "", ErrNoResults
	}
	return strings.Join(lines, "\n"), nil
}
