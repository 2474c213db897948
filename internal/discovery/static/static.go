// Package static provides fixed discovery providers. With no configured
// results they behave as empty providers.
package static

import (
	"context"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

// Search is a leads.SearchProvider that always returns the same results.
type Search struct {
	ProviderName string
	Results      []leads.SearchResult
}

// Name implements leads.SearchProvider.
func (s *Search) Name() string {
	if s.ProviderName == "" {
		return "static-search"
	}
	return s.ProviderName
}

// Search implements leads.SearchProvider.
func (s *Search) Search(ctx context.Context, _, _ string) ([]leads.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]leads.SearchResult(nil), s.Results...), nil
}

// Places is a leads.PlacesProvider that always returns the same results.
type Places struct {
	ProviderName string
	Results      []leads.PlaceResult
}

// Name implements leads.PlacesProvider.
func (p *Places) Name() string {
	if p.ProviderName == "" {
		return "static-places"
	}
	return p.ProviderName
}

// FindPlaces implements leads.PlacesProvider.
func (p *Places) FindPlaces(ctx context.Context, _, _ string) ([]leads.PlaceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]leads.PlaceResult(nil), p.Results...), nil
}
