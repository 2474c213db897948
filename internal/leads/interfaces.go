package leads

import (
	"context"
	"io"
	"time"
)

// Queue carries scan requests from producers to the worker.
type Queue interface {
	Enqueue(ctx context.Context, req ScanRequest) error
	Dequeue(ctx context.Context) (ScanRequest, error)
}

// SearchProvider returns ranked web search hits for a (city, keyword) pair.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, city, keyword string) ([]SearchResult, error)
}

// PlacesProvider returns points of interest for a (city, keyword) pair.
type PlacesProvider interface {
	Name() string
	FindPlaces(ctx context.Context, city, keyword string) ([]PlaceResult, error)
}

// Discoverer aggregates every provider into deduplicated candidates.
type Discoverer interface {
	Discover(ctx context.Context, city, keyword string) ([]DiscoveryCandidate, error)
}

// Auditor audits a single site.
type Auditor interface {
	Audit(ctx context.Context, inputURL string) (SiteAuditResult, error)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Store is the persistence gateway for businesses, websites and scores.
// Lookups return ErrNotFound when nothing matches.
type Store interface {
	FindWebsite(ctx context.Context, domain, homepageURL string) (Website, error)
	GetBusiness(ctx context.Context, id int64) (Business, error)
	FindBusiness(ctx context.Context, name, city string) (Business, error)
	CreateBusiness(ctx context.Context, business *Business) error
	UpdateBusiness(ctx context.Context, business Business) error
	CreateWebsite(ctx context.Context, website *Website) error
	UpdateWebsite(ctx context.Context, website Website) error
	AddLeadScore(ctx context.Context, score *LeadScore) error
}

// Transactor is implemented by stores that can apply a group of writes
// atomically. fn's error rolls the group back and is returned.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// ResultStore serves the read side used by the API and cleanup.
type ResultStore interface {
	ListResults(ctx context.Context, query ResultQuery) (ResultPage, error)
	Summarize(ctx context.Context, poorThreshold int) (Summary, error)
	ListWebsites(ctx context.Context) ([]Website, error)
	UpdateWebsite(ctx context.Context, website Website) error
	Ping(ctx context.Context) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes scan events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
