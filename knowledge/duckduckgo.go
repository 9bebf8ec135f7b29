package knowledge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultDuckDuckGoURL is the JavaScript-free search endpoint.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoOptions configures NewDuckDuckGo.
type DuckDuckGoOptions struct {
	Enabled    bool
	BaseURL    string
	MaxResults int
	UserAgent  string
	HTTPClient *http.Client
}

// DuckDuckGo scrapes the HTML results page. No API key is needed, so the
// provider is switched on and off by configuration.
type DuckDuckGo struct {
	opts DuckDuckGoOptions
}

// NewDuckDuckGo creates the provider.
func NewDuckDuckGo(optFns ...func(o *DuckDuckGoOptions)) *DuckDuckGo {
	opts := DuckDuckGoOptions{
		Enabled:    true,
		BaseURL:    DefaultDuckDuckGoURL,
		MaxResults: 5,
		UserAgent:  "Mozilla/5.0 (compatible; agenttask/1.0)",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &DuckDuckGo{opts: opts}
}

// Name implements Provider.
func (d *DuckDuckGo) Name() string { return "DuckDuckGo" }

// Enabled implements Provider.
func (d *DuckDuckGo) Enabled() bool { return d.opts.Enabled }

// SearchResult is a single organic result.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Query implements Provider.
func (d *DuckDuckGo) Query(ctx context.Context, q string) (string, error) {
	results, err := d.Search(ctx, q)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found.", nil
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s (%s): %s", r.Title, r.URL, r.Snippet)
	}
	return b.String(), nil
}

// Search returns up to MaxResults results for q.
func (d *DuckDuckGo) Search(ctx context.Context, q string) ([]SearchResult, error) {
	form := url.Values{"q": {q}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.opts.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", d.opts.UserAgent)

	resp, err := d.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo: HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var results []SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return true
		}
		href, _ := link.Attr("href")
		results = append(results, SearchResult{
			Title:   title,
			URL:     resolveRedirect(href),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		})
		return d.opts.MaxResults <= 0 || len(results) < d.opts.MaxResults
	})
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's "/l/?uddg=<target>" links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
