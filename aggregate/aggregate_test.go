package aggregate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"gsc_coverage/models"
)

func record(property string, report models.ReportIdentifier, sitemap, url string) models.ReportRecord {
	date := models.PresentText("15-01-2024")
	return models.ReportRecord{
		Property:       property,
		Report:         report,
		Sitemap:        sitemap,
		Status:         models.StatusIndexed,
		ReportName:     models.PresentText("All known pages"),
		URL:            url,
		RawUpdatedDate: date,
		UpdatedDate:    date,
	}
}

func fixture(property string) models.PropertyExtraction {
	recs := []models.ReportRecord{
		record(property, models.AllURLs, "", property+"a"),
		record(property, models.AllURLs, "", property+"b"),
	}
	nested := []models.ReportRecord{record(property, "CAIAbCdE", property+"sitemap.xml", property+"c")}
	nested[0].Status = models.StatusNotIndexed
	nested[0].ReportName = models.MissingText()
	nested[0].UpdatedDate = models.MissingText()

	top := models.NewReportSummary(recs[0], 2, 4)
	sub := models.NewReportSummary(nested[0], 1, 1)
	return models.PropertyExtraction{
		Property:  property,
		Records:   recs,
		Summaries: []models.ReportSummary{top},
		Sitemaps: []models.SitemapEntry{
			{
				Property:  property,
				SitemapID: property + "sitemap.xml",
				Reports:   []models.ReportIdentifier{"CAIAbCdE"},
				Summary:   models.NewSitemapSummary(3, 7),
				Records:   nested,
				Summaries: []models.ReportSummary{sub},
			},
			{
				Property:  property,
				SitemapID: property + "broken.xml",
				Summary:   models.SitemapFetchError(),
			},
		},
	}
}

func TestBuildSingleProperty(t *testing.T) {
	run := Build([]models.PropertyExtraction{fixture("https://example.com/")})

	if len(run.Indexed) != 0 {
		t.Fatalf("expected no indexed summary for one property, got %d", len(run.Indexed))
	}

	got := map[string][][]string{}
	for _, tbl := range run.Tables() {
		got[tbl.Name] = tbl.Rows
	}
	want := map[string][][]string{
		"coverage": {
			{"Indexed", "All known pages", "https://example.com/a", "15-01-2024"},
			{"Indexed", "All known pages", "https://example.com/b", "15-01-2024"},
		},
		"summary": {
			{"Indexed", "All known pages", "2", "4", "50.00%"},
		},
		"sitemaps": {
			{"https://example.com/sitemap.xml", "3", "7", "1"},
			{"https://example.com/broken.xml", "Error fetching", "Error fetching", "0"},
		},
		"sitemap-reports": {
			{"https://example.com/sitemap.xml", "Not indexed", "No name", "1", "1", "100.00%"},
		},
		"sitemap-urls": {
			{"https://example.com/sitemap.xml", "Not indexed", "No name", "https://example.com/c", "No date"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tables mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildMultiProperty(t *testing.T) {
	run := Build([]models.PropertyExtraction{
		fixture("https://example.com/"),
		fixture("sc-domain:other.org"),
	})

	if len(run.Indexed) != 2 {
		t.Fatalf("expected one indexed row per property, got %d", len(run.Indexed))
	}
	seen := map[string]int{}
	for _, row := range run.Indexed {
		seen[row.Property]++
	}
	if seen["https://example.com/"] != 1 || seen["sc-domain:other.org"] != 1 {
		t.Fatalf("unexpected indexed rows %v", seen)
	}

	var names []string
	for _, tbl := range run.Tables() {
		names = append(names, tbl.Name)
	}
	want := []string{
		"example-com-coverage", "example-com-summary", "example-com-sitemaps",
		"example-com-sitemap-reports", "example-com-sitemap-urls",
		"other-org-coverage", "other-org-summary", "other-org-sitemaps",
		"other-org-sitemap-reports", "other-org-sitemap-urls",
		"indexed-summary",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("table names mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexedRowWithoutAllURLsSummary(t *testing.T) {
	a := fixture("https://a.example/")
	b := models.PropertyExtraction{Property: "https://b.example/"}

	run := Build([]models.PropertyExtraction{a, b})
	if len(run.Indexed) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(run.Indexed))
	}
	if _, ok := run.Indexed[1].Ratio.Value(); ok {
		t.Fatal("expected no ratio for a property without rows")
	}
}

func TestBuildEmptyInput(t *testing.T) {
	run := Build(nil)
	if tables := run.Tables(); len(tables) != 0 {
		t.Fatalf("expected no tables, got %d", len(tables))
	}

	run = Build([]models.PropertyExtraction{{Property: "https://empty.example/"}})
	if tables := run.Tables(); len(tables) != 0 {
		t.Fatalf("expected empty property to emit no tables, got %v", tables)
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	in := []models.PropertyExtraction{fixture("https://example.com/")}
	before := fixture("https://example.com/")

	run := Build(in)
	run.Properties[0].Records[0].URL = "changed"
	run.Properties[0].Sitemaps[0].Records[0].URL = "changed"

	opts := cmp.AllowUnexported(models.Ratio{})
	if diff := cmp.Diff(before, in[0], opts); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	in := []models.PropertyExtraction{fixture("https://example.com/"), fixture("https://other.example/")}
	first := Build(in).Tables()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, Build(in).Tables(), cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestTotals(t *testing.T) {
	run := Build([]models.PropertyExtraction{fixture("https://example.com/")})
	got := run.Totals()
	want := Totals{Properties: 1, Reports: 2, URLs: 3, Sitemaps: 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("totals mismatch (-want +got):\n%s", diff)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"https://www.example.com/": "www-example-com",
		"sc-domain:example.com":    "example-com",
		"http://example.com/blog/": "example-com-blog",
		"":                         "property",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
