package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vahanpoghosian/link-qualification-system/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

const schema = `
CREATE TABLE IF NOT EXISTS websites (
	id UUID PRIMARY KEY,
	url TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL DEFAULT '',
	price DOUBLE PRECISION NOT NULL DEFAULT 0,
	dr INTEGER,
	traffic INTEGER,
	enrichment_state TEXT NOT NULL DEFAULT 'bare',
	keywords_data JSONB,
	vector_ids TEXT[],
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pages (
	id UUID PRIMARY KEY,
	website_id UUID NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	keywords TEXT[],
	vector_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pages_website_id ON pages(website_id);

CREATE TABLE IF NOT EXISTS imports (
	id UUID PRIMARY KEY,
	user_id UUID,
	filename TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	total_websites INTEGER NOT NULL DEFAULT 0,
	processed_websites INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
`

// InitSchema creates tables if they do not exist yet.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// =============================================================================
// Websites
// =============================================================================

const websiteColumns = `id, url, email, price, dr, traffic, enrichment_state,
	keywords_data, vector_ids, created_at, updated_at`

func scanWebsite(row pgx.Row) (*models.Website, error) {
	var w models.Website
	err := row.Scan(
		&w.ID, &w.URL, &w.Email, &w.Price, &w.DR, &w.Traffic, &w.EnrichmentState,
		&w.KeywordsData, &w.VectorIDs, &w.CreatedAt, &w.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *PostgresStore) GetWebsiteByURL(ctx context.Context, url string) (*models.Website, error) {
	query := `SELECT ` + websiteColumns + ` FROM websites WHERE url = $1`
	return scanWebsite(s.pool.QueryRow(ctx, query, url))
}

func (s *PostgresStore) GetWebsiteByID(ctx context.Context, id uuid.UUID) (*models.Website, error) {
	query := `SELECT ` + websiteColumns + ` FROM websites WHERE id = $1`
	return scanWebsite(s.pool.QueryRow(ctx, query, id))
}

// SaveEnrichment upserts the website and inserts its page rows in a single
// transaction, so a failed item leaves no partial writes behind. Page rows
// are insert-only; re-enriching the same website appends new rows.
func (s *PostgresStore) SaveEnrichment(ctx context.Context, w *models.Website, pages []*models.Page) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO websites (
			id, url, email, price, dr, traffic, enrichment_state,
			keywords_data, vector_ids, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (url) DO UPDATE SET
			dr = EXCLUDED.dr,
			traffic = EXCLUDED.traffic,
			enrichment_state = EXCLUDED.enrichment_state,
			keywords_data = COALESCE(EXCLUDED.keywords_data, websites.keywords_data),
			vector_ids = COALESCE(EXCLUDED.vector_ids, websites.vector_ids),
			updated_at = NOW()
		RETURNING id`

	if err := tx.QueryRow(ctx, query,
		w.ID, w.URL, w.Email, w.Price, w.DR, w.Traffic, w.EnrichmentState,
		w.KeywordsData, w.VectorIDs, w.CreatedAt, w.UpdatedAt,
	).Scan(&w.ID); err != nil {
		return fmt.Errorf("upsert website: %w", err)
	}

	for _, p := range pages {
		p.WebsiteID = w.ID
		_, err := tx.Exec(ctx, `
			INSERT INTO pages (id, website_id, url, keywords, vector_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.WebsiteID, p.URL, p.Keywords, p.VectorID, p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert page: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// UpdateWebsiteMetrics refreshes dr/traffic on an already-stored website.
func (s *PostgresStore) UpdateWebsiteMetrics(ctx context.Context, id uuid.UUID, dr, traffic *int, state string) error {
	query := `UPDATE websites SET dr = $2, traffic = $3, enrichment_state = $4, updated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, dr, traffic, state)
	return err
}

func (s *PostgresStore) ListWebsites(ctx context.Context, offset, limit int) ([]models.Website, error) {
	query := `SELECT ` + websiteColumns + ` FROM websites ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	rows, err := s.pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWebsites(rows)
}

// ListWebsitesByURLs returns websites whose URL is in the given set, with the
// numeric filters AND-ed on top. Unset filters are omitted entirely.
func (s *PostgresStore) ListWebsitesByURLs(ctx context.Context, urls []string, req models.SearchRequest) ([]models.Website, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	conditions := []string{"url = ANY($1)"}
	args := []interface{}{urls}

	addFilter := func(cond string, val interface{}) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if req.MinDR != nil {
		addFilter("dr >= $%d", *req.MinDR)
	}
	if req.MaxDR != nil {
		addFilter("dr <= $%d", *req.MaxDR)
	}
	if req.MinTraffic != nil {
		addFilter("traffic >= $%d", *req.MinTraffic)
	}
	if req.MaxPrice != nil {
		addFilter("price <= $%d", *req.MaxPrice)
	}

	query := `SELECT ` + websiteColumns + ` FROM websites WHERE ` + strings.Join(conditions, " AND ")
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWebsites(rows)
}

// ListStaleEnriched returns enriched websites whose metrics have not been
// updated since the cutoff, oldest first.
func (s *PostgresStore) ListStaleEnriched(ctx context.Context, cutoff time.Time, limit int) ([]models.Website, error) {
	query := `SELECT ` + websiteColumns + ` FROM websites
		WHERE enrichment_state <> 'bare' AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2`
	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWebsites(rows)
}

func collectWebsites(rows pgx.Rows) ([]models.Website, error) {
	var websites []models.Website
	for rows.Next() {
		var w models.Website
		if err := rows.Scan(
			&w.ID, &w.URL, &w.Email, &w.Price, &w.DR, &w.Traffic, &w.EnrichmentState,
			&w.KeywordsData, &w.VectorIDs, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, err
		}
		websites = append(websites, w)
	}
	return websites, rows.Err()
}

// DeleteWebsite removes a website; its pages go with it via cascade.
func (s *PostgresStore) DeleteWebsite(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM websites WHERE id = $1`, id)
	return err
}

// =============================================================================
// Pages
// =============================================================================

func (s *PostgresStore) GetPagesForWebsite(ctx context.Context, websiteID uuid.UUID, limit int) ([]models.Page, error) {
	query := `
		SELECT id, website_id, url, keywords, vector_id, created_at
		FROM pages WHERE website_id = $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, websiteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		var p models.Page
		if err := rows.Scan(&p.ID, &p.WebsiteID, &p.URL, &p.Keywords, &p.VectorID, &p.CreatedAt); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// =============================================================================
// Imports
// =============================================================================

func (s *PostgresStore) CreateImport(ctx context.Context, imp *models.Import) error {
	query := `
		INSERT INTO imports (id, user_id, filename, status, total_websites, processed_websites, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		imp.ID, imp.UserID, imp.Filename, imp.Status, imp.TotalWebsites, imp.ProcessedWebsites, imp.CreatedAt,
	).Scan(&imp.ID)
}

func (s *PostgresStore) GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	query := `
		SELECT id, user_id, filename, status, total_websites, processed_websites, created_at, completed_at
		FROM imports WHERE id = $1`

	var imp models.Import
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&imp.ID, &imp.UserID, &imp.Filename, &imp.Status, &imp.TotalWebsites,
		&imp.ProcessedWebsites, &imp.CreatedAt, &imp.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

func (s *PostgresStore) SetImportProgress(ctx context.Context, id uuid.UUID, processed int) error {
	query := `UPDATE imports SET processed_websites = $2 WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, processed)
	return err
}

func (s *PostgresStore) SetImportStatus(ctx context.Context, id uuid.UUID, status models.ImportStatus, completedAt *time.Time) error {
	query := `UPDATE imports SET status = $2, completed_at = $3 WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, status, completedAt)
	return err
}

func (s *PostgresStore) ListRecentImports(ctx context.Context, limit int) ([]models.ImportInfo, error) {
	query := `SELECT id, filename, status, created_at FROM imports ORDER BY created_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imports []models.ImportInfo
	for rows.Next() {
		var i models.ImportInfo
		if err := rows.Scan(&i.ID, &i.Filename, &i.Status, &i.CreatedAt); err != nil {
			return nil, err
		}
		imports = append(imports, i)
	}
	return imports, rows.Err()
}

// =============================================================================
// Aggregates
// =============================================================================

func (s *PostgresStore) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats

	query := `
		SELECT
			(SELECT COUNT(*) FROM websites),
			(SELECT COUNT(*) FROM imports),
			(SELECT COUNT(*) FROM pages),
			(SELECT COALESCE(AVG(dr), 0) FROM websites WHERE dr IS NOT NULL),
			(SELECT COALESCE(AVG(traffic), 0) FROM websites WHERE traffic IS NOT NULL)`

	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.TotalWebsites, &stats.TotalImports, &stats.TotalPages, &stats.AvgDR, &stats.AvgTraffic,
	)
	if err != nil {
		return nil, err
	}

	recent, err := s.ListRecentImports(ctx, 5)
	if err != nil {
		return nil, err
	}
	stats.RecentImports = recent

	return &stats, nil
}

func (s *PostgresStore) GetFilterRanges(ctx context.Context) (*models.FilterRanges, error) {
	var r models.FilterRanges

	query := `
		SELECT
			COALESCE(MIN(dr), 0), COALESCE(MAX(dr), 100),
			COALESCE(MIN(traffic), 0), COALESCE(MAX(traffic), 1000000),
			COALESCE(MIN(price), 0), COALESCE(MAX(price), 10000)
		FROM websites`

	err := s.pool.QueryRow(ctx, query).Scan(
		&r.DR.Min, &r.DR.Max,
		&r.Traffic.Min, &r.Traffic.Max,
		&r.Price.Min, &r.Price.Max,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
