package models

import "testing"

func TestZeroValuesAreMissing(t *testing.T) {
	var rec ReportRecord
	if rec.ReportName.IsPresent() || rec.UpdatedDate.IsPresent() {
		t.Fatal("zero text must not be present")
	}
	if got := rec.ReportName.Or(NoName); got != NoName {
		t.Fatalf("zero name rendered %q", got)
	}

	var c Count
	if c.IsPresent() {
		t.Fatal("zero count must not be present")
	}
	if got := c.String(); got != NoData {
		t.Fatalf("zero count rendered %q", got)
	}

	var r Ratio
	if got := r.String(); got != NoData {
		t.Fatalf("zero ratio rendered %q", got)
	}
}

func TestValueRendering(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"present text", PresentText("Soft 404").Or(NoName), "Soft 404"},
		{"empty present text", PresentText("").Or(NoName), ""},
		{"missing text", MissingText().Or(NoDate), NoDate},
		{"present count", PresentCount(0).String(), "0"},
		{"fetch error count", FetchErrorCount().String(), ErrorFetching},
		{"full ratio", NewRatio(7, 7).String(), "100.00%"},
		{"no total", NewRatio(3, 0).String(), NoData},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestSitemapFetchErrorIsJoint(t *testing.T) {
	s := SitemapFetchError()
	if !s.Failed() || s.Indexed.State != FetchError {
		t.Fatalf("both counters must carry the fetch error: %+v", s)
	}
	if NewSitemapSummary(0, 0).Failed() {
		t.Fatal("zero counts are real counts")
	}
	var zero SitemapSummary
	if zero.Failed() || zero.NotIndexed.IsPresent() {
		t.Fatalf("zero summary should be neither failed nor present: %+v", zero)
	}
}
