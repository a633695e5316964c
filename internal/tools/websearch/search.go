package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SearchResult is one hit returned by the configured search API.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchTool queries a configured search API and returns the top results as
// plain text. The API is treated generically: an endpoint plus bearer-style
// API key, returning a JSON array of {title,url,snippet} under a "results"
// key. Real deployments point this at whichever provider the operator has
// configured; it is not a specific vendor SDK because the spec names no
// provider.
type SearchTool struct {
	Client   *http.Client
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

func (t *SearchTool) Name() string        { return "web_search" }
func (t *SearchTool) Description() string { return "Search the web and return a short list of results." }
func (t *SearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "minLength": 1},
			"max_results": {"type": "integer", "minimum": 1, "maximum": 10}
		},
		"required": ["query"]
	}`)
}

func (t *SearchTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", err
	}
	if t.Endpoint == "" {
		return "web search is not configured", nil
	}
	if in.MaxResults <= 0 {
		in.MaxResults = 5
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("%s?q=%s&max=%d", t.Endpoint, in.Query, in.MaxResults)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if t.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.APIKey)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return fmt.Sprintf("search failed with status %d", resp.StatusCode), nil
	}

	var parsed struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse search response: %w", err)
	}

	var sb strings.Builder
	for i, r := range parsed.Results {
		if i >= in.MaxResults {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n%s\n%s\n\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return strings.TrimSpace(sb.String()), nil
}
