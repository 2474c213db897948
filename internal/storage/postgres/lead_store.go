// Package postgres provides Postgres-backed persistence for businesses,
// websites and lead scores.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// querier is satisfied by pools and by pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type dbPool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// LeadStore implements leads.Store, leads.ResultStore and leads.Transactor
// on Postgres.
type LeadStore struct {
	pool dbPool
	db   querier
}

// NewPool opens a pgx pool using cfg.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// NewLeadStore constructs a store from an open pool; *pgxpool.Pool and
// pgxmock pools both qualify.
func NewLeadStore(pool dbPool) (*LeadStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &LeadStore{pool: pool, db: pool}, nil
}

// Close releases the underlying pool resources.
func (s *LeadStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *LeadStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// InTx runs fn against a store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *LeadStore) InTx(ctx context.Context, fn func(leads.Store) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&LeadStore{pool: s.pool, db: tx})
	})
}

const websiteColumns = `id, business_id, domain, homepage_url, COALESCE(emails_csv, ''), COALESCE(phones_csv, '')`

const businessColumns = `id, name, city, COALESCE(keyword, ''), COALESCE(address, ''),
	COALESCE(phone, ''), COALESCE(email, '')`

// FindWebsite returns the oldest website whose domain or homepage URL matches.
func (s *LeadStore) FindWebsite(ctx context.Context, domain, homepageURL string) (leads.Website, error) {
	row := s.db.QueryRow(ctx, `
SELECT `+websiteColumns+`
FROM websites
WHERE domain = $1 OR homepage_url = $2
ORDER BY id
LIMIT 1`, domain, homepageURL)
	var w leads.Website
	if err := row.Scan(&w.ID, &w.BusinessID, &w.Domain, &w.HomepageURL, &w.EmailsCSV, &w.PhonesCSV); err != nil {
		return leads.Website{}, notFound("find website", err)
	}
	return w, nil
}

// GetBusiness returns the business with id.
func (s *LeadStore) GetBusiness(ctx context.Context, id int64) (leads.Business, error) {
	row := s.db.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id)
	return scanBusiness(row, "get business")
}

// FindBusiness returns the oldest business with the given name and city.
func (s *LeadStore) FindBusiness(ctx context.Context, name, city string) (leads.Business, error) {
	row := s.db.QueryRow(ctx, `
SELECT `+businessColumns+`
FROM businesses
WHERE name = $1 AND city = $2
ORDER BY id
LIMIT 1`, name, city)
	return scanBusiness(row, "find business")
}

func scanBusiness(row pgx.Row, op string) (leads.Business, error) {
	var b leads.Business
	if err := row.Scan(&b.ID, &b.Name, &b.City, &b.Keyword, &b.Address, &b.Phone, &b.Email); err != nil {
		return leads.Business{}, notFound(op, err)
	}
	return b, nil
}

// CreateBusiness inserts business and sets its id.
func (s *LeadStore) CreateBusiness(ctx context.Context, business *leads.Business) error {
	err := s.db.QueryRow(ctx, `
INSERT INTO businesses (name, city, keyword, address, phone, email)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		business.Name,
		business.City,
		nullable(business.Keyword),
		nullable(business.Address),
		nullable(business.Phone),
		nullable(business.Email),
	).Scan(&business.ID)
	if err != nil {
		return fmt.Errorf("insert business: %w", err)
	}
	return nil
}

// UpdateBusiness writes the mutable business columns.
func (s *LeadStore) UpdateBusiness(ctx context.Context, business leads.Business) error {
	tag, err := s.db.Exec(ctx, `
UPDATE businesses
SET keyword = $2, address = $3, phone = $4, email = $5
WHERE id = $1`,
		business.ID,
		nullable(business.Keyword),
		nullable(business.Address),
		nullable(business.Phone),
		nullable(business.Email),
	)
	if err != nil {
		return fmt.Errorf("update business: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update business %d: %w", business.ID, leads.ErrNotFound)
	}
	return nil
}

// CreateWebsite inserts website and sets its id.
func (s *LeadStore) CreateWebsite(ctx context.Context, website *leads.Website) error {
	err := s.db.QueryRow(ctx, `
INSERT INTO websites (business_id, domain, homepage_url, emails_csv, phones_csv)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`,
		website.BusinessID,
		website.Domain,
		website.HomepageURL,
		nullable(website.EmailsCSV),
		nullable(website.PhonesCSV),
	).Scan(&website.ID)
	if err != nil {
		return fmt.Errorf("insert website: %w", err)
	}
	return nil
}

// UpdateWebsite writes the mutable website columns.
func (s *LeadStore) UpdateWebsite(ctx context.Context, website leads.Website) error {
	tag, err := s.db.Exec(ctx, `
UPDATE websites
SET homepage_url = $2, emails_csv = $3, phones_csv = $4
WHERE id = $1`,
		website.ID,
		website.HomepageURL,
		nullable(website.EmailsCSV),
		nullable(website.PhonesCSV),
	)
	if err != nil {
		return fmt.Errorf("update website: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update website %d: %w", website.ID, leads.ErrNotFound)
	}
	return nil
}

// AddLeadScore appends a score row and sets its id.
func (s *LeadStore) AddLeadScore(ctx context.Context, score *leads.LeadScore) error {
	err := s.db.QueryRow(ctx, `
INSERT INTO lead_scores (business_id, website_id, score, reasons_json, computed_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`,
		score.BusinessID,
		score.WebsiteID,
		score.Score,
		score.ReasonsJSON,
		score.ComputedAt,
	).Scan(&score.ID)
	if err != nil {
		return fmt.Errorf("insert lead score: %w", err)
	}
	return nil
}

// ListWebsites returns every website ordered by id.
func (s *LeadStore) ListWebsites(ctx context.Context) ([]leads.Website, error) {
	rows, err := s.db.Query(ctx, `SELECT `+websiteColumns+` FROM websites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	defer rows.Close()

	var out []leads.Website
	for rows.Next() {
		var w leads.Website
		if err := rows.Scan(&w.ID, &w.BusinessID, &w.Domain, &w.HomepageURL, &w.EmailsCSV, &w.PhonesCSV); err != nil {
			return nil, fmt.Errorf("scan website: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate websites: %w", err)
	}
	return out, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, leads.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
