package models

// SitemapSummary holds the coarse counters of a sitemap. Both counters are
// either present or both carry a fetch error.
type SitemapSummary struct {
	NotIndexed Count `json:"not_indexed"`
	Indexed    Count `json:"indexed"`
}

func NewSitemapSummary(notIndexed, indexed int) SitemapSummary {
	return SitemapSummary{NotIndexed: PresentCount(notIndexed), Indexed: PresentCount(indexed)}
}

func SitemapFetchError() SitemapSummary {
	return SitemapSummary{NotIndexed: FetchErrorCount(), Indexed: FetchErrorCount()}
}

func (s SitemapSummary) Failed() bool {
	return s.NotIndexed.State == FetchError
}

// SitemapEntry is one sitemap of a property with everything extracted under it.
type SitemapEntry struct {
	Property  string             `json:"property"`
	SitemapID string             `json:"sitemap_id"`
	Reports   []ReportIdentifier `json:"reports"`
	Summary   SitemapSummary     `json:"summary"`
	Records   []ReportRecord     `json:"records"`
	Summaries []ReportSummary    `json:"summaries"`
}

// PropertyExtraction is the unit of work for one console property.
type PropertyExtraction struct {
	Property  string          `json:"property"`
	Summaries []ReportSummary `json:"summaries"`
	Records   []ReportRecord  `json:"records"`
	Sitemaps  []SitemapEntry  `json:"sitemaps"`
	Failures  int             `json:"failures"`
}

// Add appends one report's output to the entry.
func (e *SitemapEntry) Add(records []ReportRecord, summary *ReportSummary) {
	e.Records = append(e.Records, records...)
	if summary != nil {
		e.Summaries = append(e.Summaries, *summary)
	}
}

// Add appends one top-level report's output to the extraction.
func (p *PropertyExtraction) Add(records []ReportRecord, summary *ReportSummary) {
	p.Records = append(p.Records, records...)
	if summary != nil {
		p.Summaries = append(p.Summaries, *summary)
	}
}
