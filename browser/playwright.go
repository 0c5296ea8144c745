package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

type Options struct {
	Browser     string // firefox, chromium or webkit
	Headless    bool
	UserDataDir string
	NavTimeout  time.Duration
}

// Playwright drives a single real browser tab.
type Playwright struct {
	opts        Options
	pw          *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	page        playwright.Page
	mu          sync.Mutex
	initialized bool
}

func NewPlaywright(opts Options) *Playwright {
	return &Playwright{opts: opts}
}

// Start launches the browser and opens the tab. Safe to call repeatedly.
func (d *Playwright) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	var err error
	d.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	bt := d.browserType()
	if d.opts.UserDataDir != "" {
		d.context, err = bt.LaunchPersistentContext(d.opts.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(d.opts.Headless),
		})
	} else {
		d.browser, err = bt.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(d.opts.Headless),
		})
		if err == nil {
			d.context, err = d.browser.NewContext()
		}
	}
	if err != nil {
		d.pw.Stop()
		return fmt.Errorf("failed to launch %s: %w", d.opts.Browser, err)
	}

	d.page, err = d.context.NewPage()
	if err != nil {
		d.context.Close()
		d.pw.Stop()
		return fmt.Errorf("failed to create page: %w", err)
	}

	d.initialized = true
	log.Printf("Browser %s started (headless=%v)", d.opts.Browser, d.opts.Headless)
	return nil
}

func (d *Playwright) browserType() playwright.BrowserType {
	switch d.opts.Browser {
	case "chromium":
		return d.pw.Chromium
	case "webkit":
		return d.pw.WebKit
	default:
		return d.pw.Firefox
	}
}

func (d *Playwright) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.page != nil {
		d.page.Close()
		d.page = nil
	}
	if d.context != nil {
		d.context.Close()
		d.context = nil
	}
	if d.browser != nil {
		d.browser.Close()
		d.browser = nil
	}
	var err error
	if d.pw != nil {
		err = d.pw.Stop()
		d.pw = nil
	}
	d.initialized = false
	return err
}

func (d *Playwright) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(millis(d.opts.NavTimeout)),
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (d *Playwright) URL() string {
	if d.page == nil {
		return ""
	}
	return d.page.URL()
}

func (d *Playwright) QueryAll(selector string) ([]Element, error) {
	locs, err := d.page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	els := make([]Element, len(locs))
	for i, l := range locs {
		els[i] = locatorElement{loc: l}
	}
	return els, nil
}

func (d *Playwright) QueryOne(selector string) (Element, error) {
	loc := d.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	if n == 0 {
		return nil, nil
	}
	return locatorElement{loc: loc.First()}, nil
}

func (d *Playwright) WaitFor(selector string, timeout time.Duration) error {
	err := d.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s: %w", selector, ErrTimeout)
	}
	return err
}

func (d *Playwright) RawSource() (string, error) {
	return d.page.Content()
}

func (d *Playwright) Fill(selector, value string, keyDelay time.Duration) error {
	loc := d.page.Locator(selector).First()
	if keyDelay <= 0 {
		return loc.Fill(value)
	}
	return loc.PressSequentially(value, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(millis(keyDelay)),
	})
}

func (d *Playwright) Press(key string) error {
	return d.page.Keyboard().Press(key)
}

// SaveDebug writes the current page HTML and a screenshot next to the binary.
func (d *Playwright) SaveDebug(prefix string) error {
	content, err := d.page.Content()
	if err != nil {
		return err
	}
	if err := os.WriteFile(prefix+".html", []byte(content), 0644); err != nil {
		return err
	}
	_, err = d.page.Screenshot(playwright.PageScreenshotOptions{Path: playwright.String(prefix + ".png")})
	return err
}

type locatorElement struct {
	loc playwright.Locator
}

func (e locatorElement) Text() (string, error) {
	return e.loc.InnerText()
}

func (e locatorElement) Attr(name string) (string, bool, error) {
	v, err := e.loc.GetAttribute(name)
	if err != nil {
		return "", false, err
	}
	return v, v != "", nil
}

// millis converts to playwright's float milliseconds; zero disables the timeout.
func millis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d / time.Millisecond)
}
