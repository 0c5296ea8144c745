package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"gsc_coverage/browser"
	"gsc_coverage/discovery"
	"gsc_coverage/models"
	"gsc_coverage/selectors"
)

// SitemapWalker visits every sitemap of a property one after another on the
// shared page.
type SitemapWalker struct {
	page            browser.Page
	extractor       *Extractor
	miner           discovery.Discoverer
	throttle        *Throttle
	selectorTimeout time.Duration
}

func NewSitemapWalker(page browser.Page, extractor *Extractor, throttle *Throttle, selectorTimeout time.Duration) *SitemapWalker {
	return &SitemapWalker{
		page:            page,
		extractor:       extractor,
		miner:           discovery.NewHTMLMiner(),
		throttle:        throttle,
		selectorTimeout: selectorTimeout,
	}
}

// SitemapWalk is the result of walking one property's sitemaps.
type SitemapWalk struct {
	Entries  []models.SitemapEntry
	Failures int
}

// Walk lists the property's sitemaps and extracts each of them. Only a
// failure to load the listing itself is returned as an error.
func (w *SitemapWalker) Walk(ctx context.Context, property string) (*SitemapWalk, error) {
	ids, err := w.Sitemaps(ctx, property)
	if err != nil {
		return nil, err
	}

	walk := &SitemapWalk{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return walk, err
		}
		entry, failures := w.walkOne(ctx, property, id)
		walk.Entries = append(walk.Entries, entry)
		walk.Failures += failures

		if err := w.throttle.Wait(ctx); err != nil {
			return walk, err
		}
	}
	return walk, nil
}

// Sitemaps reads sitemap ids from the listing table, in page order.
func (w *SitemapWalker) Sitemaps(ctx context.Context, property string) ([]string, error) {
	u := SitemapListURL(property)
	if err := w.page.Goto(ctx, u); err != nil {
		return nil, fmt.Errorf("open sitemap list: %w", err)
	}
	if err := w.page.WaitFor(selectors.SitemapList, w.selectorTimeout); err != nil {
		log.Printf("No sitemaps listed for %s", property)
		return nil, nil
	}

	rows, err := w.page.QueryAll(selectors.SitemapRow)
	if err != nil {
		return nil, fmt.Errorf("query sitemap rows: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, row := range rows {
		id, ok, err := row.Attr(selectors.SitemapRowAttr)
		if err != nil || !ok || id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	log.Printf("Found %d sitemaps for %s", len(ids), property)
	return ids, nil
}

func (w *SitemapWalker) walkOne(ctx context.Context, property, sitemap string) (models.SitemapEntry, int) {
	entry := models.SitemapEntry{
		Property:  property,
		SitemapID: sitemap,
		Summary:   models.SitemapFetchError(),
	}

	u := SitemapIndexURL(property, sitemap)
	if err := w.page.Goto(ctx, u); err != nil {
		log.Printf("Sitemap %s: %v", sitemap, &models.ExtractionError{URL: u, Err: err})
		return entry, 1
	}
	if err := w.page.WaitFor(selectors.ReportReady, w.selectorTimeout); err != nil {
		log.Printf("Sitemap %s: %v", sitemap, &models.ExtractionError{URL: u, Err: &models.SelectorTimeout{Selector: selectors.ReportReady}})
		return entry, 1
	}

	failures := 0
	if source, err := w.page.RawSource(); err != nil {
		log.Printf("Sitemap %s: read source: %v", sitemap, err)
		failures++
	} else {
		entry.Reports = w.miner.Discover(source).Sorted()
	}

	entry.Summary = w.summary()
	if entry.Summary.Failed() {
		log.Printf("Warning: %v", &models.DataIntegrityError{
			Property: property,
			Detail:   fmt.Sprintf("sitemap %s badge counts unavailable", sitemap),
		})
	} else {
		log.Printf("Sitemap %s: %s not indexed, %s indexed, %d nested reports",
			sitemap, entry.Summary.NotIndexed, entry.Summary.Indexed, len(entry.Reports))
	}

	indexed := ReportTarget{Property: property, Report: models.AllURLs, Sitemap: sitemap}
	if x, err := w.extractor.extractLoaded(indexed, sitemapLayout); err != nil {
		log.Printf("Sitemap %s: %v", sitemap, err)
		failures++
	} else {
		entry.Add(x.Records, x.Summary)
	}

	for _, id := range entry.Reports {
		if err := ctx.Err(); err != nil {
			break
		}
		x, err := w.extractor.Extract(ctx, ReportTarget{Property: property, Report: id, Sitemap: sitemap})
		if err != nil {
			log.Printf("Sitemap %s: %v", sitemap, err)
			failures++
			continue
		}
		entry.Add(x.Records, x.Summary)
	}
	return entry, failures
}

func (w *SitemapWalker) summary() models.SitemapSummary {
	badges, err := w.page.QueryAll(selectors.SitemapBadge)
	if err != nil {
		return models.SitemapFetchError()
	}
	values := make([]int, 0, len(badges))
	for _, b := range badges {
		text, err := b.Text()
		if err != nil {
			return models.SitemapFetchError()
		}
		n, err := parseTotal(text)
		if err != nil {
			return models.SitemapFetchError()
		}
		values = append(values, n)
	}
	return summarizeBadges(values)
}

// summarizeBadges folds badge counters into the two coarse buckets. Two
// badges read [not indexed, indexed]; four read [error, warning, valid,
// excluded]. Any other count is a fetch error for both buckets.
func summarizeBadges(values []int) models.SitemapSummary {
	switch len(values) {
	case 2:
		return models.NewSitemapSummary(values[0], values[1])
	case 4:
		return models.NewSitemapSummary(values[0]+values[3], values[1]+values[2])
	default:
		return models.SitemapFetchError()
	}
}
