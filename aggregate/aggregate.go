// Package aggregate folds per-property extractions into the tables a run
// hands to the export sinks. It never mutates its input.
package aggregate

import (
	"regexp"
	"strconv"
	"strings"

	"gsc_coverage/models"
)

// PropertyReport is one property's share of a run, copied out of its extraction.
type PropertyReport struct {
	Property  string
	Slug      string
	Records   []models.ReportRecord
	Summaries []models.ReportSummary
	Sitemaps  []models.SitemapEntry
	Failures  int
}

type Run struct {
	Properties []PropertyReport
	// Indexed is only filled when the run covered more than one property.
	Indexed []models.IndexedSummary
}

// Build rolls up a run. The cross-property "Indexed pages" table carries
// exactly one row per property and exists only for multi-property runs.
func Build(extractions []models.PropertyExtraction) *Run {
	run := &Run{}
	for _, px := range extractions {
		run.Properties = append(run.Properties, PropertyReport{
			Property:  px.Property,
			Slug:      Slug(px.Property),
			Records:   append([]models.ReportRecord(nil), px.Records...),
			Summaries: append([]models.ReportSummary(nil), px.Summaries...),
			Sitemaps:  copySitemaps(px.Sitemaps),
			Failures:  px.Failures,
		})
	}

	if len(extractions) > 1 {
		for _, p := range run.Properties {
			run.Indexed = append(run.Indexed, indexedRow(p))
		}
	}
	return run
}

func copySitemaps(in []models.SitemapEntry) []models.SitemapEntry {
	if in == nil {
		return nil
	}
	out := make([]models.SitemapEntry, len(in))
	for i, e := range in {
		e.Reports = append([]models.ReportIdentifier(nil), e.Reports...)
		e.Records = append([]models.ReportRecord(nil), e.Records...)
		e.Summaries = append([]models.ReportSummary(nil), e.Summaries...)
		out[i] = e
	}
	return out
}

func indexedRow(p PropertyReport) models.IndexedSummary {
	for _, s := range p.Summaries {
		if s.Report == models.AllURLs && s.Sitemap == "" {
			return models.IndexedSummary{
				Property:       p.Property,
				ReportName:     s.ReportName,
				ExtractedCount: s.ExtractedCount,
				DeclaredTotal:  s.DeclaredTotal,
				Ratio:          s.Ratio,
			}
		}
	}
	// No rows came back for the report; keep the property visible.
	return models.IndexedSummary{
		Property:   p.Property,
		ReportName: models.MissingText(),
		Ratio:      models.NoRatio(),
	}
}

// Totals are the headline counters of a run.
type Totals struct {
	Properties     int
	Reports        int
	URLs           int
	Sitemaps       int
	Failures       int
	IntegrityFlags int
}

func (r *Run) Totals() Totals {
	t := Totals{Properties: len(r.Properties)}
	for _, p := range r.Properties {
		t.Reports += len(p.Summaries)
		t.URLs += len(p.Records)
		t.Sitemaps += len(p.Sitemaps)
		t.Failures += p.Failures
		for _, s := range p.Summaries {
			if s.IntegrityError {
				t.IntegrityFlags++
			}
		}
		for _, e := range p.Sitemaps {
			t.URLs += len(e.Records)
			t.Reports += len(e.Summaries)
		}
	}
	return t
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a resource id such as "https://www.example.com/" or
// "sc-domain:example.com" into a file-name prefix.
func Slug(property string) string {
	s := strings.ToLower(property)
	for _, prefix := range []string{"sc-domain:", "https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = slugUnsafe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "property"
	}
	return s
}

func itoa(n int) string { return strconv.Itoa(n) }
