package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gsc_coverage/identity"
	"gsc_coverage/models"
)

// PostgresStore is the optional warehouse for scraped rows and summaries.
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

const pgSchema = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id BIGSERIAL PRIMARY KEY,
	local_run_id BIGINT,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	status TEXT NOT NULL,
	property_count INT DEFAULT 0,
	reports_found INT DEFAULT 0,
	urls_extracted INT DEFAULT 0,
	sitemaps_walked INT DEFAULT 0,
	errors_count INT DEFAULT 0
);

CREATE TABLE IF NOT EXISTS report_records (
	fingerprint TEXT PRIMARY KEY,
	property TEXT NOT NULL,
	report TEXT NOT NULL,
	sitemap TEXT,
	status TEXT NOT NULL,
	report_name TEXT,
	url TEXT NOT NULL,
	updated_date TEXT,
	first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_run_id BIGINT
);

CREATE TABLE IF NOT EXISTS report_summaries (
	id BIGSERIAL PRIMARY KEY,
	run_id BIGINT,
	fingerprint TEXT NOT NULL,
	property TEXT NOT NULL,
	report TEXT NOT NULL,
	sitemap TEXT,
	status TEXT NOT NULL,
	report_name TEXT,
	extracted_count INT NOT NULL,
	declared_total INT NOT NULL,
	extraction_ratio DOUBLE PRECISION,
	integrity_error BOOLEAN DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sitemap_summaries (
	id BIGSERIAL PRIMARY KEY,
	run_id BIGINT,
	property TEXT NOT NULL,
	sitemap TEXT NOT NULL,
	not_indexed INT,
	indexed INT,
	fetch_error BOOLEAN DEFAULT FALSE,
	nested_reports INT DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_records_property ON report_records(property, report);
CREATE INDEX IF NOT EXISTS idx_summaries_fingerprint ON report_summaries(fingerprint, created_at);
CREATE INDEX IF NOT EXISTS idx_sitemaps_property ON sitemap_summaries(property, sitemap);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// =============================================================================
// Scrape Runs
// =============================================================================

// CreateScrapeRun mirrors a local run and returns the warehouse id.
func (s *PostgresStore) CreateScrapeRun(ctx context.Context, run *models.ScrapeRun) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO scrape_runs (local_run_id, started_at, finished_at, status, property_count,
			reports_found, urls_extracted, sitemaps_walked, errors_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		run.ID, run.StartedAt, run.FinishedAt, string(run.Status), run.PropertyCount,
		run.ReportsFound, run.URLsExtracted, run.SitemapsWalked, run.ErrorsCount,
	).Scan(&id)
	return id, err
}

// =============================================================================
// Report Records
// =============================================================================

// UpsertReportRecords writes rows keyed by fingerprint. A row seen again
// keeps its first_seen_at.
func (s *PostgresStore) UpsertReportRecords(ctx context.Context, runID int64, records []models.ReportRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO report_records (fingerprint, property, report, sitemap, status, report_name,
				url, updated_date, last_run_id)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)
			ON CONFLICT (fingerprint) DO UPDATE SET
				status = EXCLUDED.status,
				report_name = COALESCE(EXCLUDED.report_name, report_records.report_name),
				updated_date = COALESCE(EXCLUDED.updated_date, report_records.updated_date),
				last_seen_at = NOW(),
				last_run_id = EXCLUDED.last_run_id`,
			identity.RecordFingerprint(rec), rec.Property, string(rec.Report), rec.Sitemap,
			string(rec.Status), nullableText(rec.ReportName), identity.NormalizeURL(rec.URL),
			nullableText(rec.UpdatedDate), runID,
		)
	}
	return s.sendBatch(ctx, batch, "report records")
}

// =============================================================================
// Summaries
// =============================================================================

func (s *PostgresStore) InsertReportSummaries(ctx context.Context, runID int64, summaries []models.ReportSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, sum := range summaries {
		var ratio *float64
		if v, ok := sum.Ratio.Value(); ok {
			ratio = &v
		}
		batch.Queue(`
			INSERT INTO report_summaries (run_id, fingerprint, property, report, sitemap, status,
				report_name, extracted_count, declared_total, extraction_ratio, integrity_error)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11)`,
			runID, identity.SummaryFingerprint(sum), sum.Property, string(sum.Report), sum.Sitemap,
			string(sum.Status), nullableText(sum.ReportName), sum.ExtractedCount, sum.DeclaredTotal,
			ratio, sum.IntegrityError,
		)
	}
	return s.sendBatch(ctx, batch, "report summaries")
}

func (s *PostgresStore) InsertSitemapSummaries(ctx context.Context, runID int64, entries []models.SitemapEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO sitemap_summaries (run_id, property, sitemap, not_indexed, indexed,
				fetch_error, nested_reports)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID, e.Property, e.SitemapID, nullableCount(e.Summary.NotIndexed),
			nullableCount(e.Summary.Indexed), e.Summary.Failed(), len(e.Reports),
		)
	}
	return s.sendBatch(ctx, batch, "sitemap summaries")
}

func (s *PostgresStore) sendBatch(ctx context.Context, batch *pgx.Batch, what string) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("write %s (row %d): %w", what, i, err)
		}
	}
	return nil
}

func nullableText(t models.Text) *string {
	if !t.IsPresent() {
		return nil
	}
	v := t.Value
	return &v
}

func nullableCount(c models.Count) *int {
	if !c.IsPresent() {
		return nil
	}
	v := c.Value
	return &v
}
