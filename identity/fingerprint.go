// Package identity derives stable keys for scraped rows so repeated runs
// update the same warehouse records.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"gsc_coverage/models"
	"gsc_coverage/selectors"
)

var multiSpaceRegex = regexp.MustCompile(`\s+`)

// RecordFingerprint identifies a URL row by property, report and sitemap.
func RecordFingerprint(rec models.ReportRecord) string {
	input := fmt.Sprintf("%s|%s|%s|%s",
		strings.ToLower(strings.TrimSpace(rec.Property)),
		rec.Report,
		NormalizeURL(rec.Sitemap),
		NormalizeURL(rec.URL),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

// SummaryFingerprint identifies a report summary across runs.
func SummaryFingerprint(s models.ReportSummary) string {
	input := fmt.Sprintf("%s|%s|%s",
		strings.ToLower(strings.TrimSpace(s.Property)),
		s.Report,
		NormalizeURL(s.Sitemap),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

// NormalizeURL lowercases scheme and host, drops fragments and invisible
// characters, and keeps path and query as scraped.
func NormalizeURL(raw string) string {
	raw = selectors.ZeroWidth.ReplaceAllString(raw, "")
	raw = multiSpaceRegex.ReplaceAllString(strings.TrimSpace(raw), "")
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
