package models

import "strings"

// ReportIdentifier is an opaque report key mined from the console's page payloads.
type ReportIdentifier string

// AllURLs is the console's canonical "Indexed pages" report.
const AllURLs ReportIdentifier = "ALL_URLS"

type Status string

const (
	StatusValid      Status = "Valid"
	StatusError      Status = "Error"
	StatusWarning    Status = "Warning"
	StatusExcluded   Status = "Excluded"
	StatusIndexed    Status = "Indexed"
	StatusNotIndexed Status = "Not indexed"
)

var statusLabels = map[string]Status{
	"valid":       StatusValid,
	"error":       StatusError,
	"warning":     StatusWarning,
	"excluded":    StatusExcluded,
	"indexed":     StatusIndexed,
	"not indexed": StatusNotIndexed,
	"not_indexed": StatusNotIndexed,
	"notindexed":  StatusNotIndexed,
}

// ParseStatus maps a badge or config label onto a Status.
func ParseStatus(label string) (Status, bool) {
	s, ok := statusLabels[strings.ToLower(strings.TrimSpace(label))]
	return s, ok
}

// ReportRecord is one URL row scraped from a report.
type ReportRecord struct {
	Property       string           `json:"property"`
	Report         ReportIdentifier `json:"report"`
	Sitemap        string           `json:"sitemap,omitempty"`
	Status         Status           `json:"status"`
	ReportName     Text             `json:"report_name"`
	URL            string           `json:"url"`
	RawUpdatedDate Text             `json:"raw_updated_date"`
	UpdatedDate    Text             `json:"updated_date"`
}

// ReportSummary is the per-report roll-up of one extraction.
type ReportSummary struct {
	Property       string           `json:"property"`
	Report         ReportIdentifier `json:"report"`
	Sitemap        string           `json:"sitemap,omitempty"`
	Status         Status           `json:"status"`
	ReportName     Text             `json:"report_name"`
	ExtractedCount int              `json:"extracted_count"`
	DeclaredTotal  int              `json:"declared_total"`
	Ratio          Ratio            `json:"-"`
	IntegrityError bool             `json:"integrity_error"`
}

// NewReportSummary derives the ratio. A zero total with extracted rows is
// flagged as an integrity error and carries no ratio.
func NewReportSummary(rec ReportRecord, extracted, declared int) ReportSummary {
	return ReportSummary{
		Property:       rec.Property,
		Report:         rec.Report,
		Sitemap:        rec.Sitemap,
		Status:         rec.Status,
		ReportName:     rec.ReportName,
		ExtractedCount: extracted,
		DeclaredTotal:  declared,
		Ratio:          NewRatio(extracted, declared),
		IntegrityError: declared == 0 && extracted > 0,
	}
}

// IndexedSummary is one row of the cross-property "Indexed pages" comparison.
type IndexedSummary struct {
	Property       string `json:"property"`
	ReportName     Text   `json:"report_name"`
	ExtractedCount int    `json:"extracted_count"`
	DeclaredTotal  int    `json:"declared_total"`
	Ratio          Ratio  `json:"-"`
}
