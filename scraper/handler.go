package scraper

import (
	"context"
	"fmt"

	"gsc_coverage/browser"
	"gsc_coverage/config"
)

// PageOpener hands the orchestrator a fresh page for one run.
type PageOpener func(ctx context.Context) (browser.Page, error)

// NewPageOpener picks the replay driver when a snapshot directory is
// configured and the live browser otherwise.
func NewPageOpener(cfg *config.Config) PageOpener {
	if cfg.ReplayDir != "" {
		dir := cfg.ReplayDir
		return func(ctx context.Context) (browser.Page, error) {
			return browser.LoadSnapshotDir(dir)
		}
	}
	return func(ctx context.Context) (browser.Page, error) {
		pw := browser.NewPlaywright(browser.Options{
			Browser:     cfg.Browser.Name,
			Headless:    cfg.Browser.Headless,
			UserDataDir: cfg.Browser.UserDataDir,
			NavTimeout:  cfg.Browser.NavTimeout,
		})
		if err := pw.Start(); err != nil {
			return nil, fmt.Errorf("start %s: %w", cfg.Browser.Name, err)
		}
		return pw, nil
	}
}
