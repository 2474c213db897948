// Package audit fetches a site's homepage and likely contact pages and turns
// the extracted signals into a lead score.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/metrics"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/normalize"
)

const (
	defaultUserAgent = "LeadFinder/1.0"
	defaultTimeout   = 12 * time.Second
	defaultMaxProbes = 5
	maxContacts      = 20
)

var probePaths = []string{"/contact", "/iletisim", "/contact-us", "/bize-ulasin"}

// Waiter throttles outbound requests per host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config controls audit fetch behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	MaxProbes int
}

// Service implements leads.Auditor.
type Service struct {
	fetcher leads.Fetcher
	limiter Waiter
	cfg     Config
	logger  *zap.Logger
}

// NewService constructs an audit Service. limiter may be nil.
func NewService(fetcher leads.Fetcher, limiter Waiter, cfg Config, logger *zap.Logger) *Service {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxProbes <= 0 {
		cfg.MaxProbes = defaultMaxProbes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{fetcher: fetcher, limiter: limiter, cfg: cfg, logger: logger}
}

// Audit inspects inputURL. A failed homepage fetch still yields a result
// scored from the URL alone; only invalid input and cancellation are errors.
func (s *Service) Audit(ctx context.Context, inputURL string) (leads.SiteAuditResult, error) {
	start := time.Now()
	normalized, ok := normalize.URL(inputURL)
	if !ok {
		metrics.ObserveAudit(metrics.OutcomeFailure, time.Since(start))
		return leads.SiteAuditResult{}, fmt.Errorf("audit %q: %w", inputURL, leads.ErrInvalidInput)
	}

	finalURL := normalized
	body, resp, err := s.get(ctx, normalized)
	if resp.FinalURL != "" {
		finalURL = resp.FinalURL
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.ObserveAudit(metrics.OutcomeFailure, time.Since(start))
			return leads.SiteAuditResult{}, fmt.Errorf("audit %q: %w", inputURL, ctxErr)
		}
		s.logger.Warn("homepage request failed", zap.String("url", finalURL), zap.Error(err))
	}

	found := &contacts{}
	found.scan(body)
	hasContact := s.probeContacts(ctx, finalURL, body, found)
	if !hasContact && body != "" {
		hasContact = homepageContactSignal(body)
	}

	signals := Signals{
		IsHTTPS:         strings.HasPrefix(strings.ToLower(finalURL), "https://"),
		Title:           extractTitle(body),
		HasViewportMeta: hasViewport(body),
		HasContactPage:  hasContact,
		Emails:          found.emails,
		Phones:          found.phones,
	}
	score, notes := Score(signals)

	result := leads.SiteAuditResult{
		InputURL:        inputURL,
		FinalURL:        finalURL,
		Host:            normalize.Host(finalURL),
		IsHTTPS:         signals.IsHTTPS,
		Title:           signals.Title,
		HasViewportMeta: signals.HasViewportMeta,
		HasContactPage:  hasContact,
		Emails:          normalize.DistinctFold(found.emails, maxContacts),
		Phones:          normalizePhones(found.phones),
		Score:           score,
		Notes:           notes,
		HTML:            body,
	}
	if body != "" {
		n := len(body)
		result.HTMLLength = &n
	}

	outcome := metrics.OutcomeSuccess
	if body == "" {
		outcome = metrics.OutcomeEmpty
	}
	metrics.ObserveAudit(outcome, time.Since(start))
	s.logger.Debug("audit complete",
		zap.String("url", finalURL),
		zap.Int("score", score),
		zap.Bool("contact", hasContact),
	)
	return result, nil
}

// probeContacts fetches likely contact pages, scanning each usable body into
// found. It reports whether any probed page carries an email or tel: link.
func (s *Service) probeContacts(ctx context.Context, baseURL, homepage string, found *contacts) bool {
	candidates := make([]string, 0, len(probePaths)+4)
	for _, href := range contactAnchors(homepage) {
		candidates = append(candidates, normalize.Resolve(baseURL, href))
	}
	for _, path := range probePaths {
		candidates = append(candidates, normalize.Resolve(baseURL, path))
	}
	candidates = normalize.DistinctFold(candidates, s.cfg.MaxProbes)

	hasContact := false
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		body, _, err := s.get(ctx, candidate)
		if err != nil {
			s.logger.Debug("contact page could not be read", zap.String("url", candidate), zap.Error(err))
			continue
		}
		if body == "" {
			continue
		}
		found.scan(body)
		if hasEmail(body) || strings.Contains(strings.ToLower(body), "tel:") {
			hasContact = true
		}
	}
	return hasContact
}

// get fetches rawURL and returns the body when the response is a 2xx
// html/text page, or "" otherwise.
func (s *Service) get(ctx context.Context, rawURL string) (string, leads.FetchResponse, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, rawURL); err != nil {
			return "", leads.FetchResponse{}, err
		}
	}
	resp, err := s.fetcher.Fetch(ctx, leads.FetchRequest{
		URL:       rawURL,
		UserAgent: s.cfg.UserAgent,
		Timeout:   s.cfg.Timeout,
	})
	if err != nil {
		return "", resp, err
	}
	if !resp.Succeeded() || !resp.IsTextual() {
		return "", resp, nil
	}
	return string(resp.Body), resp, nil
}

func normalizePhones(raw []string) []string {
	phones := make([]string, 0, len(raw))
	for _, p := range raw {
		if normalized, ok := normalize.Phone(p); ok {
			phones = append(phones, normalized)
		}
	}
	return normalize.Distinct(phones, maxContacts)
}
