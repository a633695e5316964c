// Package websearch implements the web capabilities: fetching a URL and
// reducing it to readable text, and querying a configured search API.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// DefaultFetchTimeout matches the spec's recommendation of <= 30s for
// outbound fetches.
const DefaultFetchTimeout = 30 * time.Second

// MaxBodyBytes caps how much of a response body is read, to bound memory
// use against adversarial or oversized pages.
const MaxBodyBytes = 2 << 20 // 2MB

// FetchTool retrieves a URL and extracts its visible text.
type FetchTool struct {
	Client  *http.Client
	Timeout time.Duration
}

func (t *FetchTool) Name() string        { return "web_fetch" }
func (t *FetchTool) Description() string { return "Fetch a URL and return its visible text content." }
func (t *FetchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"url": {"type": "string", "description": "Absolute URL to fetch"}},
		"required": ["url"]
	}`)
}

func (t *FetchTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", err
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, in.URL, nil)
	if err != nil {
		return "", err
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

	if resp.StatusCode >= 400 {
		return fmt.Sprintf("fetch failed with status %d", resp.StatusCode), nil
	}

	limited := io.LimitReader(resp.Body, MaxBodyBytes)
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "html") {
		return extractText(limited)
	}
	body, err := io.ReadAll(limited)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// extractText walks an HTML document and concatenates visible text nodes,
// skipping script and style content.
func extractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(sb.String()), nil
}
