// Package osm implements leads.PlacesProvider on OpenStreetMap data: the
// location is geocoded through Nominatim and businesses are queried from
// Overpass.
package osm

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/normalize"
)

const (
	defaultUserAgent = "LeadFinder/1.0"
	bboxExpandRatio  = 0.15
)

// Waiter throttles outbound requests per host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config controls the provider's upstreams.
type Config struct {
	NominatimURL      string
	NominatimTimeout  time.Duration
	OverpassEndpoints []string
	OverpassTimeout   time.Duration
	// AttemptDelays is the backoff before each attempt against one endpoint.
	AttemptDelays []time.Duration
	UserAgent     string
}

// Provider implements leads.PlacesProvider.
type Provider struct {
	geocoder *geocoder
	overpass *overpassClient
	logger   *zap.Logger
}

// New constructs a Provider. client, limiter and cache may be nil.
func New(cfg Config, client *http.Client, limiter Waiter, cache GeoCache, logger *zap.Logger) *Provider {
	if cfg.NominatimURL == "" {
		cfg.NominatimURL = defaultNominatimURL
	}
	if cfg.NominatimTimeout <= 0 {
		cfg.NominatimTimeout = defaultNominatimTimeout
	}
	if len(cfg.OverpassEndpoints) == 0 {
		cfg.OverpassEndpoints = defaultOverpassEndpoints
	}
	if cfg.OverpassTimeout <= 0 {
		cfg.OverpassTimeout = defaultOverpassTimeout
	}
	if cfg.AttemptDelays == nil {
		cfg.AttemptDelays = defaultAttemptDelays
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		geocoder: &geocoder{
			client:    client,
			endpoint:  cfg.NominatimURL,
			userAgent: cfg.UserAgent,
			timeout:   cfg.NominatimTimeout,
			limiter:   limiter,
			cache:     cache,
			logger:    logger,
		},
		overpass: &overpassClient{
			client:    client,
			endpoints: cfg.OverpassEndpoints,
			delays:    cfg.AttemptDelays,
			userAgent: cfg.UserAgent,
			timeout:   cfg.OverpassTimeout,
			logger:    logger,
		},
		logger: logger,
	}
}

// Name implements leads.PlacesProvider.
func (p *Provider) Name() string { return "osm" }

// FindPlaces implements leads.PlacesProvider.
func (p *Provider) FindPlaces(ctx context.Context, city, keyword string) ([]leads.PlaceResult, error) {
	geo, err := p.geocoder.Geocode(ctx, city)
	if err != nil {
		return nil, err
	}
	if geo == nil {
		p.logger.Info("location not found", zap.String("city", city))
		return nil, nil
	}

	filters := FiltersFor(keyword)
	elements, err := p.overpass.run(ctx, buildQueries(geo.Expand(bboxExpandRatio), keyword, filters))
	if errors.Is(err, leads.ErrUpstreamUnavailable) {
		p.logger.Warn("overpass returned no elements",
			zap.String("city", city),
			zap.String("keyword", keyword),
			zap.Error(err),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	results := make([]leads.PlaceResult, 0, len(elements))
	for _, e := range elements {
		tags := e.Tags
		if tags == nil {
			tags = map[string]string{}
		}
		name := firstNonEmpty(tags["name"], tags["brand"], tags["operator"])
		if !accept(filters, tags, name, keyword) {
			continue
		}
		place := leads.PlaceResult{
			Name:    name,
			Address: buildAddress(tags),
			Phones:  nonEmpty(tags["contact:phone"], tags["phone"]),
			PlaceID: strconv.FormatInt(e.ID, 10),
		}
		if website, ok := normalize.URL(firstNonEmpty(tags["website"], tags["contact:website"], tags["url"])); ok {
			place.WebsiteURL = website
		}
		results = append(results, place)
	}

	p.logger.Info("osm places",
		zap.String("city", city),
		zap.String("keyword", keyword),
		zap.Int("elements", len(elements)),
		zap.Int("accepted", len(results)),
	)
	return results, nil
}

func buildAddress(tags map[string]string) string {
	return strings.Join(nonEmpty(
		tags["addr:street"],
		tags["addr:housenumber"],
		tags["addr:neighbourhood"],
		tags["addr:suburb"],
		tags["addr:city"],
		tags["addr:postcode"],
	), ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
