// Package discovery mines opaque report identifiers out of raw page text.
package discovery

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gsc_coverage/models"
	"gsc_coverage/selectors"
)

// Set is a deduplicated collection of identifiers.
type Set map[models.ReportIdentifier]struct{}

func NewSet(ids ...models.ReportIdentifier) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s Set) Add(id models.ReportIdentifier) { s[id] = struct{}{} }

func (s Set) Has(id models.ReportIdentifier) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Len() int { return len(s) }

// Sorted returns the identifiers in lexical order so runs are reproducible.
func (s Set) Sorted() []models.ReportIdentifier {
	ids := make([]models.ReportIdentifier, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Discoverer turns a raw page blob into a set of identifiers. An empty set
// is a valid answer.
type Discoverer interface {
	Discover(blob string) Set
}

// ScriptMiner reads the data-bearing embedded script of a property page and
// keeps only identifiers that sit next to the property's resource literal.
type ScriptMiner struct {
	Resource string
	Marker   string
	Pattern  *regexp.Regexp
}

func NewScriptMiner(resource string) *ScriptMiner {
	return &ScriptMiner{
		Resource: resource,
		Marker:   selectors.ScriptMarker,
		Pattern:  selectors.ReportKey,
	}
}

func (m *ScriptMiner) Discover(source string) Set {
	blocks, err := ScriptBlocks(source)
	if err != nil {
		return NewSet()
	}
	block, ok := DataBlock(blocks, m.Marker)
	if !ok {
		return NewSet()
	}
	return m.MineBlock(block)
}

// MineBlock extracts identifiers from array literals that also contain the
// quoted resource name.
func (m *ScriptMiner) MineBlock(block string) Set {
	found := NewSet()
	literal := fmt.Sprintf("%q", m.Resource)
	for _, segment := range selectors.ArraySegment.FindAllString(block, -1) {
		if !strings.Contains(segment, literal) {
			continue
		}
		for _, match := range m.Pattern.FindAllStringSubmatch(segment, -1) {
			found.Add(models.ReportIdentifier(match[1]))
		}
	}
	return found
}

// HTMLMiner pulls sitemap report keys straight from rendered page source.
type HTMLMiner struct {
	Pattern *regexp.Regexp
}

func NewHTMLMiner() *HTMLMiner {
	return &HTMLMiner{Pattern: selectors.SitemapReportKey}
}

func (m *HTMLMiner) Discover(source string) Set {
	found := NewSet()
	for _, match := range m.Pattern.FindAllStringSubmatch(source, -1) {
		found.Add(models.ReportIdentifier(match[1]))
	}
	return found
}

// ScriptBlocks returns the text of every inline <script> in document order.
func ScriptBlocks(source string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("parse page source: %w", err)
	}

	var blocks []string
	doc.Find("script").Each(func(i int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		if text := s.Text(); strings.TrimSpace(text) != "" {
			blocks = append(blocks, text)
		}
	})
	return blocks, nil
}

// DataBlock returns the second block containing marker. The first one is the
// console's placeholder.
func DataBlock(blocks []string, marker string) (string, bool) {
	seen := 0
	for _, b := range blocks {
		if !strings.Contains(b, marker) {
			continue
		}
		seen++
		if seen == 2 {
			return b, true
		}
	}
	return "", false
}
