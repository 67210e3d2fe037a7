// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tavily is an HTTP client for the Tavily search, map, and
// extract endpoints consumed by the discovery pipeline. Implements
// prd001-discovery R2.1-R2.4 and prd002-mapping R1.1-R1.3.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/paper-graph/internal/httputil"
	"github.com/pdiddy/paper-graph/pkg/types"
)

// API endpoints. Declared as vars so tests can substitute an httptest
// server.
var (
	searchURL  = "https://api.tavily.com/search"
	mapURL     = "https://api.tavily.com/map"
	extractURL = "https://api.tavily.com/extract"
)

// Client calls the Tavily API. The zero value is not usable; set APIKey.
type Client struct {
	HTTPClient *http.Client
	APIKey     string
	UserAgent  string
}

// Available reports whether the client has a credential. Callers treat
// an unavailable client as "service entirely unavailable" and fall back
// rather than erroring the request.
func (c *Client) Available() bool {
	return c != nil && c.APIKey != ""
}

// SearchRequest holds parameters for one search call (R2.2).
type SearchRequest struct {
	Query             string   `json:"query"`
	MaxResults        int      `json:"max_results,omitempty"`
	SearchDepth       string   `json:"search_depth,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	IncludeRawContent bool     `json:"include_raw_content,omitempty"`
}

type searchResponse struct {
	Results []struct {
		URL        string  `json:"url"`
		Title      string  `json:"title"`
		Content    string  `json:"content"`
		RawContent string  `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

// Search issues a topic query and returns raw hits (R2.2). Transport
// errors and rate limits are retried by httputil; any remaining failure
// is returned to the caller, who degrades to partial results.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]types.SearchResult, error) {
	var sr searchResponse
	if err := c.post(ctx, searchURL, req, &sr); err != nil {
		return nil, fmt.Errorf("search %q: %w", req.Query, err)
	}

	results := make([]types.SearchResult, 0, len(sr.Results))
	for _, r := range sr.Results {
		content := r.RawContent
		if content == "" {
			content = r.Content
		}
		results = append(results, types.SearchResult{
			URL:     r.URL,
			Title:   r.Title,
			Content: content,
			Score:   r.Score,
		})
	}
	return results, nil
}

// MapRequest holds parameters for one map call (R1.1). SelectPaths and
// ExcludePaths are regular-expression path filters applied server-side.
type MapRequest struct {
	URL          string   `json:"url"`
	MaxDepth     int      `json:"max_depth,omitempty"`
	MaxBreadth   int      `json:"max_breadth,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	SelectPaths  []string `json:"select_paths,omitempty"`
	ExcludePaths []string `json:"exclude_paths,omitempty"`
}

type mapResponse struct {
	Results []string `json:"results"`
}

// Map crawls outward from a URL and returns discovered URLs (R1.2).
// The service may return partial results on timeout; those are passed
// through as-is.
func (c *Client) Map(ctx context.Context, req MapRequest) ([]string, error) {
	var mr mapResponse
	if err := c.post(ctx, mapURL, req, &mr); err != nil {
		return nil, fmt.Errorf("map %s: %w", req.URL, err)
	}
	return mr.Results, nil
}

type extractRequest struct {
	URLs []string `json:"urls"`
}

type extractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

// Extract fetches the raw content of a single page (R1.3). An empty
// result is not an error; the caller skips the page.
func (c *Client) Extract(ctx context.Context, pageURL string) (string, error) {
	var er extractResponse
	if err := c.post(ctx, extractURL, extractRequest{URLs: []string{pageURL}}, &er); err != nil {
		return "", fmt.Errorf("extract %s: %w", pageURL, err)
	}
	if len(er.Results) == 0 {
		return "", nil
	}
	return er.Results[0].RawContent, nil
}

// post sends a JSON request and decodes the JSON response.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	if !c.Available() {
		return fmt.Errorf("tavily client not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
