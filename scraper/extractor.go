package scraper

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gsc_coverage/browser"
	"gsc_coverage/catalog"
	"gsc_coverage/models"
	"gsc_coverage/selectors"
)

// ReportTarget names one report page. Sitemap is empty for top-level reports.
type ReportTarget struct {
	Property string
	Report   models.ReportIdentifier
	Sitemap  string
}

func (t ReportTarget) URL() string {
	if t.Sitemap != "" {
		return SitemapReportURL(t.Property, t.Sitemap, t.Report)
	}
	return ReportURL(t.Property, t.Report)
}

// Extraction is what one report yields. Summary is nil for an empty report.
type Extraction struct {
	Records []models.ReportRecord
	Summary *models.ReportSummary
}

func (x *Extraction) Empty() bool { return len(x.Records) == 0 }

// layout captures how report pages differ between top-level and sitemap views.
type layout struct {
	title         string
	titleRequired bool
	// statusBadges, when set, may override the catalog bucket.
	statusBadges string
}

var (
	reportLayout  = layout{title: selectors.ReportTitle}
	sitemapLayout = layout{
		title:         selectors.SitemapReportTitle,
		titleRequired: true,
		statusBadges:  selectors.SitemapStatusBadge,
	}
)

type Extractor struct {
	page            browser.Page
	catalog         *catalog.Catalog
	selectorTimeout time.Duration
}

func NewExtractor(page browser.Page, cat *catalog.Catalog, selectorTimeout time.Duration) *Extractor {
	return &Extractor{page: page, catalog: cat, selectorTimeout: selectorTimeout}
}

// Extract navigates to the report and scrapes it. Errors are ExtractionErrors
// scoped to this one report.
func (e *Extractor) Extract(ctx context.Context, target ReportTarget) (*Extraction, error) {
	u := target.URL()
	if err := e.page.Goto(ctx, u); err != nil {
		return nil, &models.ExtractionError{URL: u, Err: err}
	}
	if err := e.page.WaitFor(selectors.ReportReady, e.selectorTimeout); err != nil {
		return nil, &models.ExtractionError{URL: u, Err: &models.SelectorTimeout{Selector: selectors.ReportReady}}
	}
	return e.extractLoaded(target, reportLayout)
}

// extractLoaded scrapes the report already shown on the page.
func (e *Extractor) extractLoaded(target ReportTarget, l layout) (*Extraction, error) {
	u := e.page.URL()

	name, err := e.reportName(target.Report, l)
	if err != nil {
		return nil, &models.ExtractionError{URL: u, Err: err}
	}
	status := e.reportStatus(target.Report, l)
	updated := e.optionalText(selectors.LastUpdated)

	rows, err := e.page.QueryAll(selectors.ReportRow)
	if err != nil {
		return nil, &models.ExtractionError{URL: u, Err: fmt.Errorf("query rows: %w", err)}
	}

	base := models.ReportRecord{
		Property:       target.Property,
		Report:         target.Report,
		Sitemap:        target.Sitemap,
		Status:         status,
		ReportName:     name,
		RawUpdatedDate: updated,
		UpdatedDate:    updated,
	}

	var records []models.ReportRecord
	for _, row := range rows {
		text, err := row.Text()
		if err != nil {
			continue
		}
		link := strings.TrimSpace(selectors.ZeroWidth.ReplaceAllString(text, ""))
		if link == "" {
			continue
		}
		rec := base
		rec.URL = link
		records = append(records, rec)
	}

	log.Printf("Extracting %s report - %d URLs found", name.Or(models.NoName), len(records))

	if len(records) == 0 {
		return &Extraction{}, nil
	}

	total, err := e.declaredTotal()
	if err != nil {
		return nil, &models.ExtractionError{URL: u, Err: err}
	}

	summary := models.NewReportSummary(base, len(records), total)
	if summary.IntegrityError {
		log.Printf("Warning: %v", &models.DataIntegrityError{
			Property: target.Property,
			Report:   target.Report,
			Detail:   fmt.Sprintf("declared total is 0 but %d URLs were extracted", len(records)),
		})
	}
	return &Extraction{Records: records, Summary: &summary}, nil
}

// reportName prefers the page title and falls back to the catalog name
// unless the layout requires a title.
func (e *Extractor) reportName(id models.ReportIdentifier, l layout) (models.Text, error) {
	name := e.optionalText(l.title)
	if name.IsPresent() {
		return name, nil
	}
	if l.titleRequired {
		return name, &models.SelectorTimeout{Selector: l.title}
	}
	return e.catalog.NameFor(id), nil
}

func (e *Extractor) reportStatus(id models.ReportIdentifier, l layout) models.Status {
	if l.statusBadges != "" {
		badges, err := e.page.QueryAll(l.statusBadges)
		if err == nil && len(badges) == 2 {
			if text, err := badges[1].Text(); err == nil {
				if s, ok := models.ParseStatus(text); ok {
					return s
				}
			}
		}
	}
	return e.catalog.StatusFor(id)
}

// optionalText reads the first match of selector, Missing when absent.
func (e *Extractor) optionalText(selector string) models.Text {
	el, err := e.page.QueryOne(selector)
	if err != nil || el == nil {
		return models.MissingText()
	}
	text, err := el.Text()
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		return models.MissingText()
	}
	return models.PresentText(text)
}

// declaredTotal reads the last total element; the console puts the rolled-up
// figure there.
func (e *Extractor) declaredTotal() (int, error) {
	totals, err := e.page.QueryAll(selectors.ReportTotal)
	if err != nil {
		return 0, fmt.Errorf("query total: %w", err)
	}
	if len(totals) == 0 {
		return 0, &models.SelectorTimeout{Selector: selectors.ReportTotal}
	}
	last := totals[len(totals)-1]

	raw, ok, err := last.Attr(selectors.TotalAttr)
	if err != nil || !ok || strings.TrimSpace(raw) == "" {
		raw, err = last.Text()
		if err != nil {
			return 0, fmt.Errorf("read total: %w", err)
		}
	}
	return parseTotal(raw)
}

// parseTotal reads thousands-separated integers such as "1,234" or "1 234".
func parseTotal(raw string) (int, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("parse total %q: no digits", raw)
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, fmt.Errorf("parse total %q: %w", raw, err)
	}
	return n, nil
}
