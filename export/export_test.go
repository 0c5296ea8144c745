package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"gsc_coverage/aggregate"
)

var sampleTables = []aggregate.Table{
	{
		Name:   "coverage",
		Header: []string{"status", "report name", "url", "last updated"},
		Rows: [][]string{
			{"Valid", "Submitted and indexed", "https://example.com/a,b", "15-01-2024"},
			{"Excluded", "No name", "https://example.com/\"q\"", "No date"},
		},
	},
	{
		Name:   "summary",
		Header: []string{"status", "report name", "# URLs extracted", "total reported", "extraction ratio"},
		Rows:   [][]string{{"Valid", "Submitted and indexed", "2", "0", "No data"}},
	},
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestCSVWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := (&CSVWriter{}).Write(dir, sampleTables)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	want := []string{filepath.Join(dir, "coverage.csv"), filepath.Join(dir, "summary.csv")}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}

	got := readCSV(t, paths[0])
	wantRows := append([][]string{sampleTables[0].Header}, sampleTables[0].Rows...)
	if diff := cmp.Diff(wantRows, got); diff != "" {
		t.Fatalf("coverage.csv mismatch (-want +got):\n%s", diff)
	}
}

func TestXLSXWriter(t *testing.T) {
	dir := t.TempDir()
	paths, err := (&XLSXWriter{FileName: "coverage.xlsx"}).Write(dir, sampleTables)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected one workbook, got %v", paths)
	}

	f, err := excelize.OpenFile(paths[0])
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{"coverage", "summary"}, f.GetSheetList()); diff != "" {
		t.Fatalf("sheets mismatch (-want +got):\n%s", diff)
	}
	rows, err := f.GetRows("summary")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	wantRows := append([][]string{sampleTables[1].Header}, sampleTables[1].Rows...)
	if diff := cmp.Diff(wantRows, rows); diff != "" {
		t.Fatalf("summary sheet mismatch (-want +got):\n%s", diff)
	}
}

func TestXLSXWriterNoTables(t *testing.T) {
	dir := t.TempDir()
	paths, err := (&XLSXWriter{FileName: "coverage.xlsx"}).Write(dir, nil)
	if err != nil || paths != nil {
		t.Fatalf("expected nothing written, got %v %v", paths, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "coverage.xlsx")); !os.IsNotExist(err) {
		t.Fatal("no workbook should exist")
	}
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	long := "a-very-long-property-slug-example-com-sitemap-reports"

	first := sheetName(long, used)
	second := sheetName(long, used)
	if len(first) > maxSheetName || len(second) > maxSheetName {
		t.Fatalf("names too long: %q %q", first, second)
	}
	if first == second {
		t.Fatalf("expected unique names, got %q twice", first)
	}
	if !strings.HasSuffix(first, "sitemap-reports") {
		t.Fatalf("expected the table kind to survive, got %q", first)
	}
	if got := sheetName("a/b:c", used); got != "a-b-c" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}

func TestNewWriters(t *testing.T) {
	writers, err := NewWriters([]string{"csv", "XLSX", "csv", ""})
	if err != nil {
		t.Fatalf("new writers: %v", err)
	}
	var formats []string
	for _, w := range writers {
		formats = append(formats, w.Format())
	}
	if diff := cmp.Diff([]string{"csv", "xlsx"}, formats); diff != "" {
		t.Fatalf("formats mismatch (-want +got):\n%s", diff)
	}
	if _, err := NewWriters([]string{"pdf"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
