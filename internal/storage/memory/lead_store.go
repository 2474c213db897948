package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

// LeadStore keeps businesses, websites and scores in memory for development
// and tests. It implements leads.Store and leads.ResultStore.
type LeadStore struct {
	mu         sync.RWMutex
	businesses map[int64]leads.Business
	websites   map[int64]leads.Website
	scores     []leads.LeadScore
	nextID     int64
}

// NewLeadStore constructs an empty LeadStore.
func NewLeadStore() *LeadStore {
	return &LeadStore{
		businesses: make(map[int64]leads.Business),
		websites:   make(map[int64]leads.Website),
	}
}

// FindWebsite returns the oldest website matching domain or homepageURL.
func (s *LeadStore) FindWebsite(_ context.Context, domain, homepageURL string) (leads.Website, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		found leads.Website
		ok    bool
	)
	for _, w := range s.websites {
		if w.Domain != domain && w.HomepageURL != homepageURL {
			continue
		}
		if !ok || w.ID < found.ID {
			found, ok = w, true
		}
	}
	if !ok {
		return leads.Website{}, leads.ErrNotFound
	}
	return found, nil
}

// GetBusiness returns the business with id.
func (s *LeadStore) GetBusiness(_ context.Context, id int64) (leads.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.businesses[id]
	if !ok {
		return leads.Business{}, leads.ErrNotFound
	}
	return b, nil
}

// FindBusiness returns the oldest business with the given name and city.
func (s *LeadStore) FindBusiness(_ context.Context, name, city string) (leads.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		found leads.Business
		ok    bool
	)
	for _, b := range s.businesses {
		if b.Name != name || b.City != city {
			continue
		}
		if !ok || b.ID < found.ID {
			found, ok = b, true
		}
	}
	if !ok {
		return leads.Business{}, leads.ErrNotFound
	}
	return found, nil
}

// CreateBusiness assigns an id and stores business.
func (s *LeadStore) CreateBusiness(_ context.Context, business *leads.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	business.ID = s.nextID
	s.businesses[business.ID] = *business
	return nil
}

// UpdateBusiness replaces a stored business.
func (s *LeadStore) UpdateBusiness(_ context.Context, business leads.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.businesses[business.ID]; !ok {
		return fmt.Errorf("business %d: %w", business.ID, leads.ErrNotFound)
	}
	s.businesses[business.ID] = business
	return nil
}

// CreateWebsite assigns an id and stores website.
func (s *LeadStore) CreateWebsite(_ context.Context, website *leads.Website) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.businesses[website.BusinessID]; !ok {
		return fmt.Errorf("website owner %d: %w", website.BusinessID, leads.ErrNotFound)
	}
	s.nextID++
	website.ID = s.nextID
	s.websites[website.ID] = *website
	return nil
}

// UpdateWebsite replaces a stored website.
func (s *LeadStore) UpdateWebsite(_ context.Context, website leads.Website) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.websites[website.ID]; !ok {
		return fmt.Errorf("website %d: %w", website.ID, leads.ErrNotFound)
	}
	s.websites[website.ID] = website
	return nil
}

// AddLeadScore appends a score record.
func (s *LeadStore) AddLeadScore(_ context.Context, score *leads.LeadScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.websites[score.WebsiteID]; !ok {
		return fmt.Errorf("score website %d: %w", score.WebsiteID, leads.ErrNotFound)
	}
	s.nextID++
	score.ID = s.nextID
	s.scores = append(s.scores, *score)
	return nil
}

// ListResults returns websites joined with their business and current score,
// newest website first.
func (s *LeadStore) ListResults(_ context.Context, query leads.ResultQuery) (leads.ResultPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.currentScores()
	rows := make([]leads.ResultRow, 0, len(s.websites))
	for _, w := range s.websites {
		b := s.businesses[w.BusinessID]
		if query.City != "" && !strings.EqualFold(b.City, query.City) {
			continue
		}
		if query.Keyword != "" && !strings.EqualFold(b.Keyword, query.Keyword) {
			continue
		}
		row := leads.ResultRow{
			BusinessID:  b.ID,
			Business:    b.Name,
			City:        b.City,
			Keyword:     b.Keyword,
			Address:     b.Address,
			Phone:       b.Phone,
			Email:       b.Email,
			WebsiteID:   w.ID,
			Domain:      w.Domain,
			HomepageURL: w.HomepageURL,
			Emails:      w.EmailsCSV,
			Phones:      w.PhonesCSV,
		}
		if ls, ok := current[w.ID]; ok {
			score, computedAt := ls.Score, ls.ComputedAt
			row.Score = &score
			row.ReasonsJSON = ls.ReasonsJSON
			row.ComputedAt = &computedAt
		}
		row.Quality = leads.Quality(row.Score, query.PoorThreshold)
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].WebsiteID > rows[j].WebsiteID })

	page := leads.ResultPage{Total: len(rows), Page: query.Page, PageSize: query.PageSize, Items: []leads.ResultRow{}}
	start := (query.Page - 1) * query.PageSize
	if start < 0 || start >= len(rows) {
		return page, nil
	}
	end := min(start+query.PageSize, len(rows))
	page.Items = rows[start:end]
	return page, nil
}

// Summarize counts websites by current score quality.
func (s *LeadStore) Summarize(_ context.Context, poorThreshold int) (leads.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.currentScores()
	summary := leads.Summary{
		TotalWebsites: len(s.websites),
		WithScore:     len(current),
		PoorThreshold: poorThreshold,
	}
	for _, ls := range current {
		if ls.Score < poorThreshold {
			summary.Poor++
		} else {
			summary.OK++
		}
	}
	summary.Unknown = summary.TotalWebsites - summary.WithScore
	return summary, nil
}

// ListWebsites returns every website ordered by id.
func (s *LeadStore) ListWebsites(_ context.Context) ([]leads.Website, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leads.Website, 0, len(s.websites))
	for _, w := range s.websites {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Scores returns a copy of every score for websiteID in insertion order.
func (s *LeadStore) Scores(websiteID int64) []leads.LeadScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leads.LeadScore
	for _, ls := range s.scores {
		if ls.WebsiteID == websiteID {
			out = append(out, ls)
		}
	}
	return out
}

// Ping implements leads.ResultStore.
func (s *LeadStore) Ping(context.Context) error { return nil }

// currentScores picks the latest score per website; ties on computedAt go to
// the higher id. Callers hold the read lock.
func (s *LeadStore) currentScores() map[int64]leads.LeadScore {
	current := make(map[int64]leads.LeadScore)
	for _, ls := range s.scores {
		prev, ok := current[ls.WebsiteID]
		if !ok || ls.ComputedAt.After(prev.ComputedAt) ||
			(ls.ComputedAt.Equal(prev.ComputedAt) && ls.ID > prev.ID) {
			current[ls.WebsiteID] = ls
		}
	}
	return current
}
