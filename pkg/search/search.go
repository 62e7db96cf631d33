package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nehalabs/neha/pkg/logger"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// NothingFound is the fixed reply when a lookup yields no results.
const NothingFound = "Kuch nahi mila is baare mein."

// Provider performs the raw web lookup.
type Provider interface {
	Search(ctx context.Context, query string, count int) (string, error)
}

// Lookup is the collaborator surface the reply engine consumes: it
// never fails, any provider error collapses to an error-describing
// string result.
type Lookup interface {
	Lookup(ctx context.Context, query string) string
}

type DuckDuckGoProvider struct {
	httpClient *http.Client
}

func NewDuckDuckGoProvider(timeout time.Duration) *DuckDuckGoProvider {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &DuckDuckGoProvider{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, count int) (string, error) {
	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	return extractResults(string(body), count), nil
}

var (
	reLink    = regexp.MustCompile(`<a[^>]*class="[^"]*result__a[^"]*"[^>]*href="([^"]+)"[^>]*>([\s\S]*?)</a>`)
	reSnippet = regexp.MustCompile(`<a class="result__snippet[^"]*".*?>([\s\S]*?)</a>`)
	reTag     = regexp.MustCompile(`<[^>]+>`)
)

// extractResults pulls result titles and snippets out of the DDG HTML
// page and renders them as a short human-readable digest.
func extractResults(html string, count int) string {
	matches := reLink.FindAllStringSubmatch(html, count+5)
	if len(matches) == 0 {
		return ""
	}

	snippetMatches := reSnippet.FindAllStringSubmatch(html, count+5)

	maxItems := len(matches)
	if count > 0 && count < maxItems {
		maxItems = count
	}

	var lines []string
	for i := 0; i < maxItems; i++ {
		title := strings.TrimSpace(stripTags(matches[i][2]))
		if title == "" {
			continue
		}
		line := title
		if i < len(snippetMatches) {
			snippet := strings.TrimSpace(stripTags(snippetMatches[i][1]))
			if snippet != "" {
				line += " - " + snippet
			}
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func stripTags(content string) string {
	return reTag.ReplaceAllString(content, "")
}

// Client bounds every lookup with a timeout and converts failures to
// degraded-but-valid text, so a slow or dead search backend can never
// crash a conversation turn.
type Client struct {
	provider   Provider
	timeout    time.Duration
	maxResults int
}

func NewClient(provider Provider, timeout time.Duration, maxResults int) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Client{
		provider:   provider,
		timeout:    timeout,
		maxResults: maxResults,
	}
}

func (c *Client) Lookup(ctx context.Context, query string) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.provider.Search(ctx, query, c.maxResults)
	if err != nil {
		logger.WarnCF("search", "Lookup failed",
			map[string]interface{}{"query": query, "error": err.Error()})
		return fmt.Sprintf("Search abhi kaam nahi kar raha (%v)", err)
	}

	result = strings.TrimSpace(result)
	if result == "" {
		return NothingFound
	}
	return result
}
