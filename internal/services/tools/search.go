// File: internal/services/tools/search.go
package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const searchResultLimit = 5

// SearchConfig configures the HTML web search scraper.
type SearchConfig struct {
	BaseURL string
	Timeout time.Duration
}

func DefaultSearchConfig() *SearchConfig {
	return &SearchConfig{
		BaseURL: "https://html.duckduckgo.com/html",
		Timeout: 15 * time.Second,
	}
}

// HTMLSearchProvider scrapes the HTML results page of a search engine
// and returns the top result titles and snippets as plain text.
type HTMLSearchProvider struct {
	config *SearchConfig
	client *http.Client
}

func NewHTMLSearchProvider(config *SearchConfig) *HTMLSearchProvider {
	return &HTMLSearchProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

func (p *HTMLSearchProvider) Execute(ctx context.Context, query string) (string, error) {
	endpoint := p.config.BaseURL + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &ToolError{Type: ErrTypeNetwork, Tool: FuncSearch, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; omnichat/1.0)")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &ToolError{Type: ErrTypeNetwork, Tool: FuncSearch, Message: "search request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ToolError{Type: ErrTypeProvider, Tool: FuncSearch, Code: resp.StatusCode, Message: "search engine returned an error"}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", &ToolError{Type: ErrTypeProvider, Tool: FuncSearch, Message: "failed to parse results page", Cause: err}
	}

	results := extractResults(doc)
	if len(results) == 0 {
		return "No results found.", nil
	}
	return strings.Join(results, "\n\n"), nil
}

func extractResults(doc *goquery.Document) []string {
	var results []string
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find(".result__title a").Text())
		snippet := strings.TrimSpace(sel.Find(".result__snippet").Text())
		if title == "" {
			return true
		}
		if snippet != "" {
			results = append(results, fmt.Sprintf("%d. %s\n%s", len(results)+1, title, snippet))
		} else {
			results = append(results, fmt.Sprintf("%d. %s", len(results)+1, title))
		}
		return len(results) < searchResultLimit
	})
	return results
}
