package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/metrics"
)

const defaultOverpassTimeout = 60 * time.Second

var (
	defaultOverpassEndpoints = []string{
		"https://overpass-api.de/api/interpreter",
		"https://overpass.kumi.systems/api/interpreter",
		"https://overpass.openstreetmap.ru/api/interpreter",
	}
	defaultAttemptDelays = []time.Duration{0, time.Second, 3 * time.Second}
)

type element struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []element `json:"elements"`
}

// buildQueries returns the category pass (when filters exist) followed by
// the name pass.
func buildQueries(geo Geo, keyword string, f Filters) []string {
	scopeDecl := ""
	scope := geo.bbox()
	if geo.AreaID != nil {
		scopeDecl = fmt.Sprintf("area(%d) -> .searchArea;", *geo.AreaID)
		scope = "(area.searchArea)"
	}

	var tags strings.Builder
	writeTag := func(key string, values []string, kinds ...string) {
		if len(values) == 0 {
			return
		}
		rx := strings.Join(values, "|")
		for _, kind := range kinds {
			fmt.Fprintf(&tags, "%s[%q~\"^(%s)$\"]%s;\n", kind, key, rx, scope)
		}
	}
	writeTag("shop", f.Shop, "node", "way", "relation")
	writeTag("amenity", f.Amenity, "node", "way")
	writeTag("craft", f.Craft, "node", "way")

	kw := strings.TrimSpace(strings.ReplaceAll(keyword, `"`, ""))
	var names strings.Builder
	for _, sel := range []struct{ kind, key string }{
		{"node", "name"}, {"way", "name"}, {"relation", "name"},
		{"node", "brand"}, {"way", "brand"}, {"node", "operator"},
	} {
		fmt.Fprintf(&names, "%s[%q~\"%s\", i]%s;\n", sel.kind, sel.key, kw, scope)
	}

	wrap := func(inner string) string {
		return "[out:json][timeout:55];\n" + scopeDecl + "\n(\n" + inner + ");\nout tags center 150;\n"
	}
	var queries []string
	if tags.Len() > 0 {
		queries = append(queries, wrap(tags.String()))
	}
	return append(queries, wrap(names.String()))
}

// overpassClient runs queries against a list of mirrors.
type overpassClient struct {
	client    *http.Client
	endpoints []string
	delays    []time.Duration
	userAgent string
	timeout   time.Duration
	logger    *zap.Logger
}

// run executes passes in order and returns the first non-empty element set.
// It returns ErrUpstreamUnavailable only when every pass came back empty.
func (c *overpassClient) run(ctx context.Context, queries []string) ([]element, error) {
	for _, q := range queries {
		elements, err := c.pass(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(elements) > 0 {
			return elements, nil
		}
	}
	return nil, leads.ErrUpstreamUnavailable
}

// pass tries each endpoint with backoff. Only cancellation is an error.
func (c *overpassClient) pass(ctx context.Context, query string) ([]element, error) {
	for _, endpoint := range c.endpoints {
		for _, delay := range c.delays {
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			elements := c.attempt(ctx, endpoint, query)
			if len(elements) > 0 {
				metrics.ObserveOverpassAttempt(endpointLabel(endpoint), metrics.OutcomeSuccess)
				return elements, nil
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			metrics.ObserveOverpassAttempt(endpointLabel(endpoint), metrics.OutcomeEmpty)
		}
	}
	return nil, nil
}

// attempt POSTs the query form-encoded and falls back to GET ?data=.
func (c *overpassClient) attempt(ctx context.Context, endpoint, query string) []element {
	form := url.Values{"data": {query}}.Encode()
	post := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		return req, err
	}
	get := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+form, nil)
	}

	for _, build := range []func(context.Context) (*http.Request, error){post, get} {
		elements, err := c.send(ctx, build)
		if err != nil {
			c.logger.Warn("overpass request failed", zap.String("endpoint", endpoint), zap.Error(err))
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		if len(elements) > 0 {
			return elements
		}
	}
	return nil
}

func (c *overpassClient) send(
	ctx context.Context,
	build func(context.Context) (*http.Request, error),
) ([]element, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build overpass request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s overpass: %w: %w", req.Method, leads.ErrNetworkFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("%s overpass status %d: %s", req.Method, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s overpass decode: %w", req.Method, err)
	}
	return payload.Elements, nil
}

func endpointLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
