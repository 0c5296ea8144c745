package scraper

import (
	"net/url"

	"gsc_coverage/models"
)

const consoleBase = "https://search.google.com/search-console"

// OverviewURL is the page-indexing overview whose scripts list the property's reports.
func OverviewURL(property string) string {
	return consoleBase + "/index?resource_id=" + url.QueryEscape(property)
}

func ReportURL(property string, report models.ReportIdentifier) string {
	return consoleBase + "/index/drilldown?resource_id=" + url.QueryEscape(property) +
		"&item_key=" + url.QueryEscape(string(report))
}

// SitemapReportURL is a drilldown report scoped to one sitemap.
func SitemapReportURL(property, sitemap string, report models.ReportIdentifier) string {
	return ReportURL(property, report) + "&sitemap=" + url.QueryEscape(sitemap)
}

func SitemapListURL(property string) string {
	return consoleBase + "/sitemaps?resource_id=" + url.QueryEscape(property)
}

func SitemapIndexURL(property, sitemap string) string {
	return consoleBase + "/index?resource_id=" + url.QueryEscape(property) +
		"&pages=SITEMAP&sitemap=" + url.QueryEscape(sitemap)
}
