// Package selectors names every DOM anchor and text pattern the scraper
// depends on. The console ships generated class names, so these are the
// only place that needs touching when its markup shifts.
package selectors

import "regexp"

// Login flow
const (
	WelcomeURL      = "https://search.google.com/search-console/welcome"
	EmailInput      = "input[type=email]"
	PasswordInput   = "[name=password]"
	TwoStepMarker   = `text="2-step Verification"`
	WelcomeMarker   = `text="Welcome to Google Search Console"`
	WrongPassword   = `text="Wrong password. Try again or click Forgot password to reset it."`
	AccountNotFound = `text="Couldn't find your Google Account"`

	// Property picker entries carry the resource id in an attribute.
	PropertyItem     = "[data-resource-id]"
	PropertyItemAttr = "data-resource-id"
)

// Report drilldown pages
const (
	ReportReady  = ".zQTmif"
	ReportRow    = ".OOHai"
	ReportTotal  = ".CO3mte"
	TotalAttr    = "title"
	ReportTitle  = ".Iq9klb"
	LastUpdated  = ".J54Vt"
	ReportStatus = ".DDFhO"
)

// Sitemap pages
const (
	SitemapList        = ".sitemaps-table"
	SitemapRow         = ".sitemaps-table [data-sitemap]"
	SitemapRowAttr     = "data-sitemap"
	SitemapBadge       = ".nnLLaf"
	SitemapReportTitle = ".Iq9klb"
	SitemapStatusBadge = ".DDFhO"
)

// ScriptMarker picks the embedded data callbacks out of the page scripts.
// The first callback carrying it is a template; the second holds the data.
const ScriptMarker = "AF_initDataCallback"

var (
	// ReportKey matches a quoted top-level report key inside a script payload.
	ReportKey = regexp.MustCompile(`"(CAMY[A-Za-z0-9_-]{4}|ALL_URLS)"`)

	// SitemapReportKey matches nested report keys linked from a sitemap page.
	SitemapReportKey = regexp.MustCompile(`item_key=(CAI[A-Za-z0-9_-]{5})`)

	// ArraySegment matches an innermost array literal in a script payload.
	ArraySegment = regexp.MustCompile(`\[[^\[\]]*\]`)

	// DatePart pulls a numeric date out of a label such as "Last updated: 1/15/24".
	DatePart = regexp.MustCompile(`(\d{1,4})([/.\-])(\d{1,2})([/.\-])(\d{1,4})`)

	// ZeroWidth strips invisible characters the console interleaves in URLs.
	ZeroWidth = regexp.MustCompile(`[\x{200B}-\x{200D}\x{2060}\x{FEFF}]`)
)

// BlockedMarkers appear when the console decides the session is automated.
var BlockedMarkers = []string{
	"Our systems have detected unusual traffic",
	"unusual traffic from your computer network",
	"/sorry/index",
}
