// Package duckduckgo implements leads.SearchProvider by scraping the
// DuckDuckGo HTML endpoint.
package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

const (
	defaultEndpoint  = "https://html.duckduckgo.com/html/"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	defaultTimeout   = 15 * time.Second
	defaultMax       = 10
	defaultSite      = "site:.tr"
)

// Config controls the provider.
type Config struct {
	Endpoint   string
	UserAgent  string
	Timeout    time.Duration
	MaxResults int
	// SiteFilter is appended to every query. Defaults to "site:.tr".
	SiteFilter string
}

// Provider queries DuckDuckGo.
type Provider struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger
}

// New constructs a Provider. client may be nil.
func New(cfg Config, client *http.Client, logger *zap.Logger) *Provider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.SiteFilter == "" {
		cfg.SiteFilter = defaultSite
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMax
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{client: client, cfg: cfg, logger: logger}
}

// Name implements leads.SearchProvider.
func (p *Provider) Name() string { return "duckduckgo" }

// Query builds the search phrase for a (city, keyword) pair.
func (p *Provider) Query(city, keyword string) string {
	return strings.TrimSpace(keyword+" "+city) + " " + p.cfg.SiteFilter
}

// Search implements leads.SearchProvider. A non-2xx answer yields no results.
func (p *Provider) Search(ctx context.Context, city, keyword string) ([]leads.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	endpoint := p.cfg.Endpoint + "?q=" + url.QueryEscape(p.Query(city, keyword))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build duckduckgo request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w: %w", leads.ErrNetworkFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("duckduckgo search failed", zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo results: %w", err)
	}
	results := parseResults(doc, p.cfg.MaxResults)
	p.logger.Info("duckduckgo results",
		zap.String("city", city),
		zap.String("keyword", keyword),
		zap.Int("count", len(results)),
	)
	return results, nil
}

// parseResults reads the first limit result anchors and keeps the ones that
// resolve to an http(s) URL with a title.
func parseResults(doc *goquery.Document, limit int) []leads.SearchResult {
	var results []leads.SearchResult
	doc.Find("a.result__a").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= limit {
			return false
		}
		href, _ := sel.Attr("href")
		target := unwrapRedirect(strings.TrimSpace(href))
		title := strings.TrimSpace(sel.Text())
		if title != "" && strings.HasPrefix(target, "http") {
			results = append(results, leads.SearchResult{Title: title, URL: target})
		}
		return true
	})
	return results
}

// unwrapRedirect extracts the uddg target from DuckDuckGo's /l/? redirect
// links, which may be relative or protocol-relative.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.Path != "/l/" {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
