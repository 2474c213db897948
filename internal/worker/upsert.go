package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/normalize"
)

// upsert records result as a Website owned by a Business and appends a
// LeadScore. Stores implementing leads.Transactor apply all writes in one
// transaction. All returned errors wrap leads.ErrPersistence.
func (w *Worker) upsert(
	ctx context.Context,
	req leads.ScanRequest,
	result leads.SiteAuditResult,
	candidate *leads.DiscoveryCandidate,
) (leads.Website, leads.LeadScore, error) {
	unlock := w.locks.Lock(strings.ToLower(result.Host))
	defer unlock()

	var (
		website leads.Website
		score   leads.LeadScore
	)
	write := func(store leads.Store) error {
		var err error
		website, score, err = w.write(ctx, store, req, result, candidate)
		return err
	}

	var err error
	if tx, ok := w.store.(leads.Transactor); ok {
		err = tx.InTx(ctx, write)
	} else {
		err = write(w.store)
	}
	if err != nil {
		if !errors.Is(err, leads.ErrPersistence) {
			err = persistence("lead store transaction", err)
		}
		return leads.Website{}, leads.LeadScore{}, err
	}
	return website, score, nil
}

func (w *Worker) write(
	ctx context.Context,
	store leads.Store,
	req leads.ScanRequest,
	result leads.SiteAuditResult,
	candidate *leads.DiscoveryCandidate,
) (leads.Website, leads.LeadScore, error) {
	website, err := store.FindWebsite(ctx, result.Host, result.FinalURL)
	switch {
	case errors.Is(err, leads.ErrNotFound):
		website, err = createWebsite(ctx, store, req, result, candidate)
	case err == nil:
		err = refreshWebsite(ctx, store, &website, result, candidate)
	}
	if err != nil {
		return leads.Website{}, leads.LeadScore{}, persistence("upsert website "+result.Host, err)
	}

	reasons, err := json.Marshal(notesOrEmpty(result.Notes))
	if err != nil {
		return leads.Website{}, leads.LeadScore{}, persistence("encode score notes", err)
	}
	score := leads.LeadScore{
		BusinessID:  website.BusinessID,
		WebsiteID:   website.ID,
		Score:       result.Score,
		ReasonsJSON: string(reasons),
		ComputedAt:  w.clock.Now().UTC(),
	}
	if err := store.AddLeadScore(ctx, &score); err != nil {
		return leads.Website{}, leads.LeadScore{}, persistence("add lead score", err)
	}
	return website, score, nil
}

func createWebsite(
	ctx context.Context,
	store leads.Store,
	req leads.ScanRequest,
	result leads.SiteAuditResult,
	candidate *leads.DiscoveryCandidate,
) (leads.Website, error) {
	name := businessName(result, candidate)
	business, err := store.FindBusiness(ctx, name, req.City)
	switch {
	case errors.Is(err, leads.ErrNotFound):
		business = leads.Business{
			Name:    name,
			City:    req.City,
			Keyword: req.Keyword,
			Email:   first(result.Emails),
		}
		if candidate != nil {
			business.Address = candidate.Address
			business.Phone = first(candidate.Phones)
		}
		if err := store.CreateBusiness(ctx, &business); err != nil {
			return leads.Website{}, err
		}
	case err != nil:
		return leads.Website{}, err
	default:
		if backfill(&business, result, candidate) {
			if err := store.UpdateBusiness(ctx, business); err != nil {
				return leads.Website{}, err
			}
		}
	}

	website := leads.Website{
		BusinessID:  business.ID,
		Domain:      result.Host,
		HomepageURL: result.FinalURL,
		EmailsCSV:   normalize.JoinCSV(result.Emails),
		PhonesCSV:   normalize.JoinCSV(result.Phones),
	}
	if err := store.CreateWebsite(ctx, &website); err != nil {
		return leads.Website{}, err
	}
	return website, nil
}

func refreshWebsite(
	ctx context.Context,
	store leads.Store,
	website *leads.Website,
	result leads.SiteAuditResult,
	candidate *leads.DiscoveryCandidate,
) error {
	changed := false
	if website.HomepageURL != result.FinalURL {
		website.HomepageURL = result.FinalURL
		changed = true
	}
	if len(result.Emails) > 0 {
		website.EmailsCSV = normalize.JoinCSV(result.Emails)
		changed = true
	}
	if len(result.Phones) > 0 {
		website.PhonesCSV = normalize.JoinCSV(result.Phones)
		changed = true
	}
	if changed {
		if err := store.UpdateWebsite(ctx, *website); err != nil {
			return err
		}
	}

	business, err := store.GetBusiness(ctx, website.BusinessID)
	if errors.Is(err, leads.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if backfill(&business, result, candidate) {
		return store.UpdateBusiness(ctx, business)
	}
	return nil
}

// backfill fills empty contact fields and reports whether anything changed.
func backfill(b *leads.Business, result leads.SiteAuditResult, candidate *leads.DiscoveryCandidate) bool {
	changed := false
	if candidate != nil {
		if strings.TrimSpace(b.Address) == "" && strings.TrimSpace(candidate.Address) != "" {
			b.Address = candidate.Address
			changed = true
		}
		if strings.TrimSpace(b.Phone) == "" && len(candidate.Phones) > 0 {
			b.Phone = candidate.Phones[0]
			changed = true
		}
	}
	if strings.TrimSpace(b.Email) == "" && len(result.Emails) > 0 {
		b.Email = result.Emails[0]
		changed = true
	}
	return changed
}

func businessName(result leads.SiteAuditResult, candidate *leads.DiscoveryCandidate) string {
	if candidate != nil && candidate.Name != "" {
		return candidate.Name
	}
	if strings.TrimSpace(result.Title) != "" {
		return result.Title
	}
	return result.Host
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func notesOrEmpty(notes []string) []string {
	if notes == nil {
		return []string{}
	}
	return notes
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, leads.ErrPersistence, err)
}
