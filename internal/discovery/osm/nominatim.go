package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

const (
	defaultNominatimURL     = "https://nominatim.openstreetmap.org/search"
	defaultNominatimTimeout = 20 * time.Second
)

type nominatimResult struct {
	BoundingBox []string `json:"boundingbox"`
	OSMType     string   `json:"osm_type"`
	OSMID       *int64   `json:"osm_id"`
}

// geocoder resolves a free-text location through Nominatim, consulting cache
// first when one is configured.
type geocoder struct {
	client    *http.Client
	endpoint  string
	userAgent string
	timeout   time.Duration
	limiter   Waiter
	cache     GeoCache
	logger    *zap.Logger
}

// Geocode returns the first match for query, or nil when Nominatim has none.
func (g *geocoder) Geocode(ctx context.Context, query string) (*Geo, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if g.cache != nil {
		geo, ok, err := g.cache.Get(ctx, key)
		switch {
		case err != nil:
			g.logger.Warn("geocode cache read failed", zap.String("query", query), zap.Error(err))
		case ok:
			return &geo, nil
		}
	}

	geo, err := g.lookup(ctx, query)
	if err != nil || geo == nil {
		return geo, err
	}
	if g.cache != nil {
		if err := g.cache.Set(ctx, key, *geo); err != nil {
			g.logger.Warn("geocode cache write failed", zap.String("query", query), zap.Error(err))
		}
	}
	return geo, nil
}

func (g *geocoder) lookup(ctx context.Context, query string) (*Geo, error) {
	endpoint := g.endpoint + "?format=json&q=" + url.QueryEscape(query)
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, endpoint); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build nominatim request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w: %w", leads.ErrNetworkFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Warn("nominatim lookup failed", zap.String("query", query), zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return parseNominatim(results[0]), nil
}

// parseNominatim reads Nominatim's [south, north, west, east] bounding box.
func parseNominatim(r nominatimResult) *Geo {
	if len(r.BoundingBox) != 4 {
		return nil
	}
	coords := make([]float64, 4)
	for i, raw := range r.BoundingBox {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil
		}
		coords[i] = v
	}
	geo := &Geo{South: coords[0], North: coords[1], West: coords[2], East: coords[3]}
	if r.OSMID != nil {
		geo.AreaID = areaID(r.OSMType, *r.OSMID)
	}
	return geo
}
