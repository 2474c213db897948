// Package collyfetcher implements leads.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

const defaultTimeout = 12 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Fetcher implements leads.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Audits revisit the same URLs across scans, so the
// collector never deduplicates visits. The collector's HTTP client is shared
// by every clone, so it is configured here once and never touched per call.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(newRetryTransport(newHTTPTransport()))
	// Deadlines come from each request's context.
	c.SetRequestTimeout(0)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET, following redirects. For non-2xx answers
// the returned response is populated alongside the error.
func (f *Fetcher) Fetch(ctx context.Context, request leads.FetchRequest) (leads.FetchResponse, error) {
	var (
		result   leads.FetchResponse
		fetchErr error
	)
	reqCtx, cancel := context.WithTimeout(ctx, f.timeoutFor(request))
	defer cancel()

	start := time.Now()
	collector := f.buildCollector(reqCtx, request, start, &result, &fetchErr)

	if err := runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		return result, err
	}
	return result, nil
}

func (f *Fetcher) timeoutFor(request leads.FetchRequest) time.Duration {
	if request.Timeout > 0 {
		return request.Timeout
	}
	return f.cfg.Timeout
}

func (f *Fetcher) buildCollector(
	ctx context.Context,
	request leads.FetchRequest,
	start time.Time,
	result *leads.FetchResponse,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	userAgent := f.cfg.UserAgent
	if request.UserAgent != "" {
		userAgent = request.UserAgent
	}
	if userAgent != "" {
		collector.UserAgent = userAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots

	result.RequestedURL = request.URL
	f.configureCollectorHooks(collector, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *leads.FetchResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	})

	hooks.OnResponse(func(r *colly.Response) {
		fillResponse(result, r, start)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fillResponse(result, r, start)
		}
		*fetchErr = err
	})
}

func fillResponse(result *leads.FetchResponse, r *colly.Response, start time.Time) {
	out := leads.FetchResponse{
		RequestedURL: result.RequestedURL,
		StatusCode:   r.StatusCode,
		Body:         append([]byte(nil), r.Body...),
		Duration:     time.Since(start),
	}
	if r.Headers != nil {
		out.Headers = r.Headers.Clone()
	}
	if r.Request != nil && r.Request.URL != nil {
		out.FinalURL = r.Request.URL.String()
	}
	*result = out
}

// runCollector visits url synchronously. The collector's context aborts the
// request, so result and fetchErr are final once Visit returns. parent
// separates a caller cancellation from the per-request timeout.
func runCollector(parent context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	err := collector.Visit(url)
	if ctxErr := parent.Err(); ctxErr != nil {
		return fmt.Errorf("colly fetch canceled: %w", ctxErr)
	}
	if *fetchErr != nil {
		return fmt.Errorf("colly response failed: %w: %w", leads.ErrNetworkFailure, *fetchErr)
	}
	if err != nil {
		return fmt.Errorf("colly visit failed: %w: %w", leads.ErrNetworkFailure, err)
	}
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
