package aggregate

import (
	"strings"

	"gsc_coverage/models"
	"gsc_coverage/selectors"
)

// Table is a rendered output table. Sentinels appear only here.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

const (
	TableCoverage       = "coverage"
	TableSummary        = "summary"
	TableSitemaps       = "sitemaps"
	TableSitemapReports = "sitemap-reports"
	TableSitemapURLs    = "sitemap-urls"
	TableIndexedSummary = "indexed-summary"
)

var (
	coverageHeader       = []string{"status", "report name", "url", "last updated"}
	summaryHeader        = []string{"status", "report name", "# URLs extracted", "total reported", "extraction ratio"}
	sitemapsHeader       = []string{"sitemap", "not indexed", "indexed", "nested reports"}
	sitemapReportsHeader = []string{"sitemap", "status", "report name", "# URLs extracted", "total reported", "extraction ratio"}
	sitemapURLsHeader    = []string{"sitemap", "status", "report name", "url", "last updated"}
	indexedHeader        = []string{"property", "report name", "# URLs extracted", "total reported", "extraction ratio"}
)

// Tables renders the run. Empty tables are left out; table names are
// prefixed with the property slug when the run covered several properties.
func (r *Run) Tables() []Table {
	multi := len(r.Properties) > 1
	var tables []Table
	add := func(t Table) {
		if len(t.Rows) > 0 {
			tables = append(tables, t)
		}
	}

	for _, p := range r.Properties {
		name := func(base string) string {
			if multi {
				return p.Slug + "-" + base
			}
			return base
		}

		add(Table{Name: name(TableCoverage), Header: coverageHeader, Rows: recordRows(p.Records, false)})
		add(Table{Name: name(TableSummary), Header: summaryHeader, Rows: summaryRows(p.Summaries, false)})

		var sitemapRows [][]string
		var nestedSummaries []models.ReportSummary
		var nestedRecords []models.ReportRecord
		for _, e := range p.Sitemaps {
			sitemapRows = append(sitemapRows, []string{
				e.SitemapID,
				e.Summary.NotIndexed.String(),
				e.Summary.Indexed.String(),
				itoa(len(e.Reports)),
			})
			nestedSummaries = append(nestedSummaries, e.Summaries...)
			nestedRecords = append(nestedRecords, e.Records...)
		}
		add(Table{Name: name(TableSitemaps), Header: sitemapsHeader, Rows: sitemapRows})
		add(Table{Name: name(TableSitemapReports), Header: sitemapReportsHeader, Rows: summaryRows(nestedSummaries, true)})
		add(Table{Name: name(TableSitemapURLs), Header: sitemapURLsHeader, Rows: recordRows(nestedRecords, true)})
	}

	var indexed [][]string
	for _, s := range r.Indexed {
		indexed = append(indexed, []string{
			s.Property,
			s.ReportName.Or(models.NoName),
			itoa(s.ExtractedCount),
			itoa(s.DeclaredTotal),
			s.Ratio.String(),
		})
	}
	add(Table{Name: TableIndexedSummary, Header: indexedHeader, Rows: indexed})
	return tables
}

func recordRows(records []models.ReportRecord, withSitemap bool) [][]string {
	var rows [][]string
	for _, rec := range records {
		row := []string{
			string(rec.Status),
			rec.ReportName.Or(models.NoName),
			clean(rec.URL),
			rec.UpdatedDate.Or(models.NoDate),
		}
		if withSitemap {
			row = append([]string{rec.Sitemap}, row...)
		}
		rows = append(rows, row)
	}
	return rows
}

func summaryRows(summaries []models.ReportSummary, withSitemap bool) [][]string {
	var rows [][]string
	for _, s := range summaries {
		row := []string{
			string(s.Status),
			s.ReportName.Or(models.NoName),
			itoa(s.ExtractedCount),
			itoa(s.DeclaredTotal),
			s.Ratio.String(),
		}
		if withSitemap {
			row = append([]string{s.Sitemap}, row...)
		}
		rows = append(rows, row)
	}
	return rows
}

func clean(s string) string {
	return strings.TrimSpace(selectors.ZeroWidth.ReplaceAllString(s, ""))
}
