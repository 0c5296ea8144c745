package scraper

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gsc_coverage/aggregate"
	"gsc_coverage/browser"
	"gsc_coverage/models"
)

const testProperty = "https://example.com/"

const (
	sitemapMain = "https://example.com/sitemap.xml"
	sitemapNews = "https://example.com/news.xml"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return string(data)
}

// consolePages maps the URLs of one property to the saved console pages.
func consolePages(t *testing.T) map[string]string {
	t.Helper()
	return map[string]string{
		OverviewURL(testProperty):                               loadFixture(t, "overview.html"),
		ReportURL(testProperty, models.AllURLs):                 loadFixture(t, "report_all.html"),
		ReportURL(testProperty, "CAMYASAB"):                     loadFixture(t, "report_valid.html"),
		ReportURL(testProperty, "CAMYFiAC"):                     loadFixture(t, "report_empty.html"),
		ReportURL(testProperty, "CAMYECAC"):                     loadFixture(t, "report_no_total.html"),
		SitemapListURL(testProperty):                            loadFixture(t, "sitemaps.html"),
		SitemapIndexURL(testProperty, sitemapMain):              loadFixture(t, "sitemap_index.html"),
		SitemapIndexURL(testProperty, sitemapNews):              loadFixture(t, "sitemap_index_broken.html"),
		SitemapReportURL(testProperty, sitemapMain, "CAIAbCdE"): loadFixture(t, "sitemap_report.html"),
	}
}

func newTestPage(t *testing.T) *browser.Snapshot {
	t.Helper()
	return browser.NewSnapshot(consolePages(t))
}

// recordingSleep replaces real pauses and remembers them.
type recordingSleep struct {
	calls []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return ctx.Err()
}

type memoryStore struct {
	mu    sync.Mutex
	runs  []models.ScrapeRun
	logs  []models.ScrapeLog
	stats map[string]models.PropertyStats
}

func newMemoryStore() *memoryStore {
	return &memoryStore{stats: make(map[string]models.PropertyStats)}
}

func (s *memoryStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return int64(len(s.runs)), nil
}

func (s *memoryStore) UpdateRun(run *models.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID-1] = *run
	return nil
}

func (s *memoryStore) Log(runID *int64, level models.LogLevel, message, property string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, models.ScrapeLog{RunID: runID, Level: level, Message: message, Property: property})
	return nil
}

func (s *memoryStore) UpdatePropertyStats(stats *models.PropertyStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[stats.Property] = *stats
	return nil
}

func (s *memoryStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	return &models.CommandParams{}, nil
}

type capturePublisher struct {
	runID int64
	run   *aggregate.Run
}

func (p *capturePublisher) Publish(ctx context.Context, runID int64, run *aggregate.Run) error {
	p.runID = runID
	p.run = run
	return nil
}
