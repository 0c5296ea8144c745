// Package dates turns the console's locale-dependent "last updated" labels
// into one calendar format.
package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"gsc_coverage/models"
	"gsc_coverage/selectors"
)

const (
	dayFirstLayout   = "02-01-2006"
	monthFirstLayout = "01-02-2006"
)

// Normalize maps a raw date label to DD-MM-YYYY or MM-DD-YYYY.
//
// american says the console renders month-first; european asks for a
// day-first result anyway. Without american the output is always day-first.
// Sentinels and unparseable labels come back unchanged.
//
// Dash-separated DD-MM-YYYY/MM-DD-YYYY input is the output format and is read
// in output order, so Normalize("01-02-2024", true, true) stays "01-02-2024".
// The console writes slashes or month names; pass those raw labels, never a
// value that was already normalized under other flags.
func Normalize(raw string, american, european bool) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == models.NoDate {
		return raw
	}

	t, err := Parse(trimmed, american, european)
	if err != nil {
		return raw
	}
	if dayFirstOutput(american, european) {
		return t.Format(dayFirstLayout)
	}
	return t.Format(monthFirstLayout)
}

// NormalizeText applies Normalize to a scraped value, keeping absence.
func NormalizeText(raw models.Text, american, european bool) models.Text {
	if !raw.IsPresent() {
		return raw
	}
	return models.PresentText(Normalize(raw.Value, american, european))
}

// NormalizeRecords returns copies of records with UpdatedDate filled in.
func NormalizeRecords(records []models.ReportRecord, american, european bool) []models.ReportRecord {
	if records == nil {
		return nil
	}
	out := make([]models.ReportRecord, len(records))
	for i, rec := range records {
		rec.UpdatedDate = NormalizeText(rec.RawUpdatedDate, american, european)
		out[i] = rec
	}
	return out
}

// Parse reads a date label. Dash-separated DD-MM-YYYY/MM-DD-YYYY values are
// taken to be already normalized and read in the output order for the flags,
// which keeps Normalize idempotent.
func Parse(label string, american, european bool) (time.Time, error) {
	m := selectors.DatePart.FindStringSubmatch(label)
	if m == nil {
		t, err := dateparse.ParseAny(label)
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognised date %q: %w", label, err)
		}
		return dateOnly(t), nil
	}

	a, sep, b, c := m[1], m[2], m[3], m[5]
	if m[2] != m[4] {
		return time.Time{}, fmt.Errorf("mixed separators in %q", label)
	}

	if len(a) == 4 {
		return build(a, b, c)
	}

	if sep == "-" && len(a) == 2 && len(b) == 2 && len(c) == 4 {
		var t time.Time
		var err error
		if dayFirstOutput(american, european) {
			t, err = build(c, b, a)
		} else {
			t, err = build(c, a, b)
		}
		if err == nil {
			return t, nil
		}
	}

	if american {
		return build(c, a, b)
	}
	return build(c, b, a)
}

func dayFirstOutput(american, european bool) bool {
	return !american || european
}

func build(year, month, day string) (time.Time, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, err
	}
	if len(year) <= 2 {
		y += 2000
	}
	mo, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, err
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, err
	}
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("invalid date %s-%s-%s", year, month, day)
	}

	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, fmt.Errorf("invalid day %d for %s %d", d, time.Month(mo), y)
	}
	return t, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
