package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gsc_coverage/models"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return string(data)
}

func TestScriptMinerUsesSecondMarkedBlock(t *testing.T) {
	src := loadFixture(t, "overview.html")

	got := NewScriptMiner("https://example.com/").Discover(src).Sorted()
	want := []models.ReportIdentifier{"ALL_URLS", "CAMYASAB", "CAMYFiAC"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("identifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestScriptMinerScopesToResource(t *testing.T) {
	src := loadFixture(t, "overview.html")

	got := NewScriptMiner("https://other.example/").Discover(src)
	if got.Len() != 1 || !got.Has("CAMYDSAC") {
		t.Fatalf("expected only CAMYDSAC for other property, got %v", got.Sorted())
	}
}

func TestScriptMinerNoMatches(t *testing.T) {
	got := NewScriptMiner("sc-domain:example.com").Discover("<html><body>nothing</body></html>")
	if got == nil {
		t.Fatal("expected an empty set, got nil")
	}
	if got.Len() != 0 {
		t.Fatalf("expected no identifiers, got %v", got.Sorted())
	}
}

func TestScriptMinerSingleMarkedBlockIsPlaceholder(t *testing.T) {
	src := `<script>AF_initDataCallback({data:[["https://example.com/","CAMYASAB"]]});</script>`
	if got := NewScriptMiner("https://example.com/").Discover(src); got.Len() != 0 {
		t.Fatalf("placeholder block must be skipped, got %v", got.Sorted())
	}
}

func TestHTMLMinerDeduplicates(t *testing.T) {
	src := loadFixture(t, "sitemap_index.html")

	got := NewHTMLMiner().Discover(src).Sorted()
	want := []models.ReportIdentifier{"CAIAbCdE", "CAIQrStU"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sitemap keys mismatch (-want +got):\n%s", diff)
	}
}

func TestDataBlock(t *testing.T) {
	blocks := []string{"var a = 1", "M first", "var b", "M second", "M third"}
	got, ok := DataBlock(blocks, "M")
	if !ok || got != "M second" {
		t.Fatalf("expected second marked block, got %q (%v)", got, ok)
	}
	if _, ok := DataBlock(blocks[:2], "M"); ok {
		t.Fatal("expected no data block with a single marked block")
	}
}

func TestSetSemantics(t *testing.T) {
	s := NewSet("b", "a", "b")
	s.Add("a")
	if s.Len() != 2 {
		t.Fatalf("expected 2 identifiers, got %d", s.Len())
	}
	if diff := cmp.Diff([]models.ReportIdentifier{"a", "b"}, s.Sorted()); diff != "" {
		t.Fatalf("sorted mismatch: %s", diff)
	}
}
