package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

// Snapshot replays saved HTML pages keyed by URL. It answers CSS selectors
// through goquery and the text="..." form used for exact-text anchors.
type Snapshot struct {
	pages   map[string]string
	current string
	html    string
	doc     *goquery.Document

	// OnPress maps the current URL to the page shown after a key press.
	OnPress map[string]string

	Visited []string
	Filled  map[string]string
	Pressed []string
}

func NewSnapshot(pages map[string]string) *Snapshot {
	return &Snapshot{
		pages:   pages,
		OnPress: make(map[string]string),
		Filled:  make(map[string]string),
	}
}

type manifest struct {
	Pages []struct {
		URL  string `yaml:"url"`
		File string `yaml:"file"`
	} `yaml:"pages"`
	OnPress map[string]string `yaml:"on_press"`
}

// LoadSnapshotDir reads manifest.yaml in dir and the page files it lists.
func LoadSnapshotDir(dir string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	pages := make(map[string]string, len(m.Pages))
	for _, p := range m.Pages {
		body, err := os.ReadFile(filepath.Join(dir, p.File))
		if err != nil {
			return nil, fmt.Errorf("read page %s: %w", p.File, err)
		}
		pages[p.URL] = string(body)
	}

	s := NewSnapshot(pages)
	for from, to := range m.OnPress {
		s.OnPress[from] = to
	}
	return s, nil
}

func (s *Snapshot) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Visited = append(s.Visited, url)
	return s.load(url)
}

func (s *Snapshot) load(url string) error {
	html, ok := s.pages[url]
	if !ok {
		return fmt.Errorf("goto %s: no snapshot for url", url)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parse snapshot %s: %w", url, err)
	}
	s.current, s.html, s.doc = url, html, doc
	return nil
}

func (s *Snapshot) URL() string { return s.current }

func (s *Snapshot) find(selector string) *goquery.Selection {
	if s.doc == nil {
		return &goquery.Selection{}
	}
	if want, ok := textSelector(selector); ok {
		match := func(_ int, sel *goquery.Selection) bool {
			return strings.TrimSpace(sel.Text()) == want
		}
		// Innermost elements only, like the browser's text engine.
		return s.doc.Find("body *").FilterFunction(match).FilterFunction(func(_ int, sel *goquery.Selection) bool {
			return sel.Children().FilterFunction(match).Length() == 0
		})
	}
	return s.doc.Find(selector)
}

func textSelector(selector string) (string, bool) {
	if !strings.HasPrefix(selector, "text=") {
		return "", false
	}
	v := strings.TrimPrefix(selector, "text=")
	return strings.Trim(v, `"`), true
}

func (s *Snapshot) QueryAll(selector string) ([]Element, error) {
	var els []Element
	s.find(selector).Each(func(_ int, sel *goquery.Selection) {
		els = append(els, selectionElement{sel: sel})
	})
	return els, nil
}

func (s *Snapshot) QueryOne(selector string) (Element, error) {
	sel := s.find(selector)
	if sel.Length() == 0 {
		return nil, nil
	}
	return selectionElement{sel: sel.First()}, nil
}

// WaitFor never blocks: a saved page either has the selector or never will.
func (s *Snapshot) WaitFor(selector string, _ time.Duration) error {
	if s.find(selector).Length() == 0 {
		return fmt.Errorf("%s: %w", selector, ErrTimeout)
	}
	return nil
}

func (s *Snapshot) RawSource() (string, error) {
	if s.doc == nil {
		return "", fmt.Errorf("no page loaded")
	}
	return s.html, nil
}

func (s *Snapshot) Fill(selector, value string, _ time.Duration) error {
	if s.find(selector).Length() == 0 {
		return fmt.Errorf("fill %s: %w", selector, ErrTimeout)
	}
	s.Filled[selector] = value
	return nil
}

func (s *Snapshot) Press(key string) error {
	s.Pressed = append(s.Pressed, key)
	if next, ok := s.OnPress[s.current]; ok {
		return s.load(next)
	}
	return nil
}

func (s *Snapshot) SaveDebug(prefix string) error {
	return os.WriteFile(prefix+".html", []byte(s.html), 0644)
}

func (s *Snapshot) Close() error { return nil }

type selectionElement struct {
	sel *goquery.Selection
}

func (e selectionElement) Text() (string, error) {
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e selectionElement) Attr(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}
