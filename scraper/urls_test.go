package scraper

import "testing"

func TestURLs(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			"report",
			ReportURL("https://example.com/", "CAMYASAB"),
			"https://search.google.com/search-console/index/drilldown?resource_id=https%3A%2F%2Fexample.com%2F&item_key=CAMYASAB",
		},
		{
			"domain property",
			ReportURL("sc-domain:example.com", "ALL_URLS"),
			"https://search.google.com/search-console/index/drilldown?resource_id=sc-domain%3Aexample.com&item_key=ALL_URLS",
		},
		{
			"sitemap report",
			SitemapReportURL("https://example.com/", "https://example.com/sitemap.xml", "CAIAbCdE"),
			"https://search.google.com/search-console/index/drilldown?resource_id=https%3A%2F%2Fexample.com%2F&item_key=CAIAbCdE&sitemap=https%3A%2F%2Fexample.com%2Fsitemap.xml",
		},
		{
			"sitemap list",
			SitemapListURL("https://example.com/"),
			"https://search.google.com/search-console/sitemaps?resource_id=https%3A%2F%2Fexample.com%2F",
		},
		{
			"sitemap index",
			SitemapIndexURL("https://example.com/", "https://example.com/sitemap.xml"),
			"https://search.google.com/search-console/index?resource_id=https%3A%2F%2Fexample.com%2F&pages=SITEMAP&sitemap=https%3A%2F%2Fexample.com%2Fsitemap.xml",
		},
		{
			"overview",
			OverviewURL("https://example.com/"),
			"https://search.google.com/search-console/index?resource_id=https%3A%2F%2Fexample.com%2F",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("got  %s\nwant %s", tt.got, tt.want)
			}
		})
	}
}

func TestReportTargetURL(t *testing.T) {
	top := ReportTarget{Property: "https://example.com/", Report: "CAMYASAB"}
	if top.URL() != ReportURL("https://example.com/", "CAMYASAB") {
		t.Fatalf("unexpected top-level url %s", top.URL())
	}
	nested := ReportTarget{Property: "https://example.com/", Report: "CAIAbCdE", Sitemap: "https://example.com/s.xml"}
	if nested.URL() != SitemapReportURL("https://example.com/", "https://example.com/s.xml", "CAIAbCdE") {
		t.Fatalf("unexpected nested url %s", nested.URL())
	}
}
