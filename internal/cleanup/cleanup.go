// Package cleanup re-validates the contact columns stored on websites.
package cleanup

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/normalize"
)

// Store is the subset of leads.ResultStore cleanup needs.
type Store interface {
	ListWebsites(ctx context.Context) ([]leads.Website, error)
	UpdateWebsite(ctx context.Context, website leads.Website) error
}

// Result reports one cleanup run.
type Result struct {
	TotalWebsites   int    `json:"totalWebsites"`
	CleanedWebsites int    `json:"cleanedWebsites"`
	Message         string `json:"message"`
}

// Service drops invalid emails and phones from stored websites.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService constructs a Service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Run rewrites every website whose cleaned CSVs differ from the stored ones.
func (s *Service) Run(ctx context.Context) (Result, error) {
	websites, err := s.store.ListWebsites(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list websites: %w", err)
	}

	cleaned := 0
	for _, w := range websites {
		emails, emailsChanged := CleanEmails(w.EmailsCSV)
		phones, phonesChanged := CleanPhones(w.PhonesCSV)
		if !emailsChanged && !phonesChanged {
			continue
		}
		w.EmailsCSV, w.PhonesCSV = emails, phones
		if err := s.store.UpdateWebsite(ctx, w); err != nil {
			return Result{}, fmt.Errorf("update website %d: %w", w.ID, err)
		}
		cleaned++
	}

	s.logger.Info("contact cleanup finished", zap.Int("total", len(websites)), zap.Int("cleaned", cleaned))
	return Result{
		TotalWebsites:   len(websites),
		CleanedWebsites: cleaned,
		Message:         fmt.Sprintf("cleaned contact data on %d websites", cleaned),
	}, nil
}

// CleanEmails keeps strictly valid, distinct emails. Blank input is left
// untouched.
func CleanEmails(csv string) (string, bool) {
	if strings.TrimSpace(csv) == "" {
		return csv, false
	}
	var kept []string
	for _, e := range normalize.SplitCSV(csv) {
		if normalize.IsValidEmailStrict(e) {
			kept = append(kept, e)
		}
	}
	out := normalize.JoinCSV(normalize.Distinct(kept, 0))
	return out, out != csv
}

// CleanPhones normalizes phones and drops the invalid ones and duplicates.
// Blank input is left untouched.
func CleanPhones(csv string) (string, bool) {
	if strings.TrimSpace(csv) == "" {
		return csv, false
	}
	var kept []string
	for _, p := range normalize.SplitCSV(csv) {
		if phone, ok := normalize.Phone(p); ok {
			kept = append(kept, phone)
		}
	}
	out := normalize.JoinCSV(normalize.Distinct(kept, 0))
	return out, out != csv
}
