// Package discovery aggregates web search and places providers into a
// deduplicated list of candidate businesses.
package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/metrics"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/normalize"
)

// Service implements leads.Discoverer.
type Service struct {
	search []leads.SearchProvider
	places []leads.PlacesProvider
	logger *zap.Logger
}

// NewService registers providers in the order their results should rank.
func NewService(search []leads.SearchProvider, places []leads.PlacesProvider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{search: search, places: places, logger: logger}
}

// Discover queries every provider concurrently and merges the results. A
// failing provider contributes nothing; Discover itself only fails when ctx
// is canceled.
func (s *Service) Discover(ctx context.Context, city, keyword string) ([]leads.DiscoveryCandidate, error) {
	searchResults := make([][]leads.SearchResult, len(s.search))
	placeResults := make([][]leads.PlaceResult, len(s.places))

	var g errgroup.Group
	for i, p := range s.search {
		g.Go(func() error {
			searchResults[i] = s.runSearch(ctx, p, city, keyword)
			return nil
		})
	}
	for i, p := range s.places {
		g.Go(func() error {
			placeResults[i] = s.runPlaces(ctx, p, city, keyword)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("discover %s/%s: %w", city, keyword, err)
	}

	var candidates []leads.DiscoveryCandidate
	for _, results := range searchResults {
		for _, r := range results {
			websiteURL, ok := normalize.URL(r.URL)
			if !ok {
				continue
			}
			domain, ok := normalize.Domain(websiteURL)
			if !ok {
				continue
			}
			candidates = append(candidates, leads.DiscoveryCandidate{
				Source:       leads.SourceWebSearch,
				Name:         r.Title,
				WebsiteURL:   websiteURL,
				Domain:       domain,
				QueryCity:    city,
				QueryKeyword: keyword,
			})
		}
	}
	for _, results := range placeResults {
		for _, r := range results {
			c := leads.DiscoveryCandidate{
				Source:       leads.SourceMaps,
				SourceID:     r.PlaceID,
				Name:         r.Name,
				Address:      r.Address,
				Phones:       r.Phones,
				QueryCity:    city,
				QueryKeyword: keyword,
			}
			if websiteURL, ok := normalize.URL(r.WebsiteURL); ok {
				c.WebsiteURL = websiteURL
				c.Domain, _ = normalize.Domain(websiteURL)
			}
			candidates = append(candidates, c)
		}
	}

	unique := Dedup(candidates)
	s.logger.Info("discovery complete",
		zap.String("city", city),
		zap.String("keyword", keyword),
		zap.Int("candidates", len(candidates)),
		zap.Int("unique", len(unique)),
	)
	return unique, nil
}

// Dedup keeps the first candidate per DedupKey, preserving order.
func Dedup(candidates []leads.DiscoveryCandidate) []leads.DiscoveryCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]leads.DiscoveryCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := c.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func (s *Service) runSearch(
	ctx context.Context,
	p leads.SearchProvider,
	city, keyword string,
) (results []leads.SearchResult) {
	defer recoverProvider(s, p.Name(), &results)
	results, err := p.Search(ctx, city, keyword)
	return settle(s, p.Name(), results, err)
}

func (s *Service) runPlaces(
	ctx context.Context,
	p leads.PlacesProvider,
	city, keyword string,
) (results []leads.PlaceResult) {
	defer recoverProvider(s, p.Name(), &results)
	results, err := p.FindPlaces(ctx, city, keyword)
	return settle(s, p.Name(), results, err)
}

func settleOutcome(n int, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeFailure
	case n == 0:
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeSuccess
	}
}

func settle[T any](s *Service, name string, results []T, err error) []T {
	metrics.ObserveProvider(name, settleOutcome(len(results), err))
	if err != nil {
		s.logger.Warn("provider failed",
			zap.String("provider", name),
			zap.Error(fmt.Errorf("%w: %w", leads.ErrProviderFailure, err)),
		)
		return nil
	}
	return results
}

func recoverProvider[T any](s *Service, name string, results *[]T) {
	if r := recover(); r != nil {
		metrics.ObserveProvider(name, metrics.OutcomeFailure)
		s.logger.Error("provider panicked", zap.String("provider", name), zap.Any("panic", r))
		*results = nil
	}
}
