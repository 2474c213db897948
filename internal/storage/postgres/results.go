package postgres

import (
	"context"
	"fmt"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

// currentScores selects one score per website: latest computed_at, ties to
// the higher id.
const currentScores = `
SELECT DISTINCT ON (website_id) website_id, score, reasons_json, computed_at
FROM lead_scores
ORDER BY website_id, computed_at DESC, id DESC`

const resultFilter = `
WHERE ($1 = '' OR lower(b.city) = lower($1))
  AND ($2 = '' OR lower(b.keyword) = lower($2))`

// ListResults returns a page of websites joined with their business and
// current score, newest website first.
func (s *LeadStore) ListResults(ctx context.Context, query leads.ResultQuery) (leads.ResultPage, error) {
	page := leads.ResultPage{Page: query.Page, PageSize: query.PageSize, Items: []leads.ResultRow{}}

	err := s.db.QueryRow(ctx, `
SELECT count(*)
FROM websites w
JOIN businesses b ON b.id = w.business_id`+resultFilter,
		query.City, query.Keyword,
	).Scan(&page.Total)
	if err != nil {
		return leads.ResultPage{}, fmt.Errorf("count results: %w", err)
	}

	rows, err := s.db.Query(ctx, `
SELECT b.id, b.name, b.city, COALESCE(b.keyword, ''), COALESCE(b.address, ''),
       COALESCE(b.phone, ''), COALESCE(b.email, ''),
       w.id, w.domain, w.homepage_url, COALESCE(w.emails_csv, ''), COALESCE(w.phones_csv, ''),
       s.score, s.reasons_json, s.computed_at
FROM websites w
JOIN businesses b ON b.id = w.business_id
LEFT JOIN (`+currentScores+`) s ON s.website_id = w.id`+resultFilter+`
ORDER BY w.id DESC
LIMIT $3 OFFSET $4`,
		query.City, query.Keyword, query.PageSize, (query.Page-1)*query.PageSize,
	)
	if err != nil {
		return leads.ResultPage{}, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			row     leads.ResultRow
			reasons *string
		)
		if err := rows.Scan(
			&row.BusinessID, &row.Business, &row.City, &row.Keyword, &row.Address,
			&row.Phone, &row.Email,
			&row.WebsiteID, &row.Domain, &row.HomepageURL, &row.Emails, &row.Phones,
			&row.Score, &reasons, &row.ComputedAt,
		); err != nil {
			return leads.ResultPage{}, fmt.Errorf("scan result: %w", err)
		}
		if reasons != nil {
			row.ReasonsJSON = *reasons
		}
		row.Quality = leads.Quality(row.Score, query.PoorThreshold)
		page.Items = append(page.Items, row)
	}
	if err := rows.Err(); err != nil {
		return leads.ResultPage{}, fmt.Errorf("iterate results: %w", err)
	}
	return page, nil
}

// Summarize counts websites by current score quality.
func (s *LeadStore) Summarize(ctx context.Context, poorThreshold int) (leads.Summary, error) {
	summary := leads.Summary{PoorThreshold: poorThreshold}
	err := s.db.QueryRow(ctx, `
SELECT (SELECT count(*) FROM websites),
       count(s.website_id),
       count(s.website_id) FILTER (WHERE s.score < $1)
FROM (`+currentScores+`) s`,
		poorThreshold,
	).Scan(&summary.TotalWebsites, &summary.WithScore, &summary.Poor)
	if err != nil {
		return leads.Summary{}, fmt.Errorf("summarize results: %w", err)
	}
	summary.OK = summary.WithScore - summary.Poor
	summary.Unknown = summary.TotalWebsites - summary.WithScore
	return summary, nil
}
