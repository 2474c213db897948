package leads

import (
	"net/http"
	"strings"
	"time"
)

// Candidate sources.
const (
	SourceWebSearch = "web-search"
	SourceMaps      = "maps"
)

// Quality labels reported by the results endpoints.
const (
	QualityPoor    = "Poor"
	QualityOK      = "Ok"
	QualityUnknown = "Unknown"
)

// ScanRequest asks for a (city, keyword) scan. When URLs is empty the worker
// discovers candidate sites instead.
type ScanRequest struct {
	City    string   `json:"city"`
	Keyword string   `json:"keyword"`
	URLs    []string `json:"urls"`
}

// Mode reports whether the request runs discovery or audits the given URLs.
func (r ScanRequest) Mode() string {
	if len(r.URLs) == 0 {
		return "discovery"
	}
	return "direct"
}

// SearchResult is one ranked hit from a web search provider.
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// PlaceResult is a point of interest returned by a places provider.
type PlaceResult struct {
	Name       string   `json:"name"`
	Address    string   `json:"address,omitempty"`
	Phones     []string `json:"phones,omitempty"`
	WebsiteURL string   `json:"website_url,omitempty"`
	PlaceID    string   `json:"place_id,omitempty"`
}

// DiscoveryCandidate is a deduplicated discovery hit eligible for auditing.
type DiscoveryCandidate struct {
	Source       string   `json:"source"`
	SourceID     string   `json:"source_id,omitempty"`
	Name         string   `json:"name"`
	Address      string   `json:"address,omitempty"`
	Phones       []string `json:"phones,omitempty"`
	WebsiteURL   string   `json:"website_url,omitempty"`
	Domain       string   `json:"domain,omitempty"`
	QueryCity    string   `json:"query_city"`
	QueryKeyword string   `json:"query_keyword"`
}

// DedupKey is the grouping key used to collapse duplicate candidates.
func (c DiscoveryCandidate) DedupKey() string {
	switch {
	case c.Domain != "":
		return strings.ToLower(c.Domain)
	case c.WebsiteURL != "":
		return strings.ToLower(c.WebsiteURL)
	default:
		return strings.ToLower(c.Name)
	}
}

// SiteAuditResult holds the signals extracted from one audited site.
type SiteAuditResult struct {
	InputURL        string   `json:"input_url"`
	FinalURL        string   `json:"final_url"`
	Host            string   `json:"host"`
	IsHTTPS         bool     `json:"is_https"`
	Title           string   `json:"title,omitempty"`
	HasViewportMeta bool     `json:"has_viewport_meta"`
	HasContactPage  bool     `json:"has_contact_page"`
	Emails          []string `json:"emails"`
	Phones          []string `json:"phones"`
	Score           int      `json:"score"`
	Notes           []string `json:"notes"`
	HTMLLength      *int     `json:"html_length,omitempty"`

	// HTML is the homepage body, kept for snapshots only.
	HTML string `json:"-"`
}

// Business is a lead identified by (Name, City).
type Business struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Keyword string `json:"keyword,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Website is a site owned by one Business, identified by domain or homepage URL.
type Website struct {
	ID          int64  `json:"id"`
	BusinessID  int64  `json:"business_id"`
	Domain      string `json:"domain"`
	HomepageURL string `json:"homepage_url"`
	EmailsCSV   string `json:"emails_csv,omitempty"`
	PhonesCSV   string `json:"phones_csv,omitempty"`
}

// LeadScore is one append-only scoring record.
type LeadScore struct {
	ID          int64     `json:"id"`
	BusinessID  int64     `json:"business_id"`
	WebsiteID   int64     `json:"website_id"`
	Score       int       `json:"score"`
	ReasonsJSON string    `json:"reasons_json"`
	ComputedAt  time.Time `json:"computed_at"`
}

// ResultQuery selects a page of the results listing.
type ResultQuery struct {
	Page          int
	PageSize      int
	PoorThreshold int
	City          string
	Keyword       string
}

// ResultRow is a Website joined with its Business and current score.
type ResultRow struct {
	BusinessID  int64      `json:"businessId"`
	Business    string     `json:"business"`
	City        string     `json:"city"`
	Keyword     string     `json:"keyword,omitempty"`
	Address     string     `json:"address,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	WebsiteID   int64      `json:"websiteId"`
	Domain      string     `json:"domain"`
	HomepageURL string     `json:"homepageUrl"`
	Emails      string     `json:"emails,omitempty"`
	Phones      string     `json:"phones,omitempty"`
	Score       *int       `json:"score"`
	Quality     string     `json:"quality"`
	ReasonsJSON string     `json:"reasonsJson,omitempty"`
	ComputedAt  *time.Time `json:"computedAt,omitempty"`
}

// ResultPage is a page of ResultRows.
type ResultPage struct {
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
	Items    []ResultRow `json:"items"`
}

// Summary aggregates current scores across every website.
type Summary struct {
	TotalWebsites int `json:"totalWebsites"`
	WithScore     int `json:"withScore"`
	OK            int `json:"ok"`
	Poor          int `json:"poor"`
	Unknown       int `json:"unknown"`
	PoorThreshold int `json:"poorThreshold"`
}

// Quality labels a current score against the poor threshold.
func Quality(score *int, poorThreshold int) string {
	switch {
	case score == nil:
		return QualityUnknown
	case *score < poorThreshold:
		return QualityPoor
	default:
		return QualityOK
	}
}

// FetchRequest describes a single page fetch.
type FetchRequest struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// FetchResponse is the outcome of a fetch. FinalURL reflects redirects and is
// populated whenever the server answered, even when Fetch also returns an error.
type FetchResponse struct {
	RequestedURL string
	FinalURL     string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
}

// ContentType returns the response Content-Type header.
func (r FetchResponse) ContentType() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Content-Type")
}

// Succeeded reports a 2xx status.
func (r FetchResponse) Succeeded() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsTextual reports whether the content type looks like HTML or text.
func (r FetchResponse) IsTextual() bool {
	ct := strings.ToLower(r.ContentType())
	return strings.Contains(ct, "html") || strings.Contains(ct, "text")
}
