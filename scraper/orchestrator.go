package scraper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gsc_coverage/aggregate"
	"gsc_coverage/browser"
	"gsc_coverage/catalog"
	"gsc_coverage/config"
	"gsc_coverage/dates"
	"gsc_coverage/discovery"
	"gsc_coverage/models"
	"gsc_coverage/selectors"
)

// RunStore keeps the operational trail of runs. storage.SQLiteStore implements it.
type RunStore interface {
	CreateRun(run *models.ScrapeRun) (int64, error)
	UpdateRun(run *models.ScrapeRun) error
	Log(runID *int64, level models.LogLevel, message, property string) error
	UpdatePropertyStats(stats *models.PropertyStats) error
	ParseCommandParams(cmd *models.Command) (*models.CommandParams, error)
}

// Publisher receives the finished tables of a run.
type Publisher interface {
	Publish(ctx context.Context, runID int64, run *aggregate.Run) error
}

type Orchestrator struct {
	cfg       *config.Config
	store     RunStore
	catalog   *catalog.Catalog
	opener    PageOpener
	publisher Publisher
	skipLogin bool
	throttle  *Throttle

	mu      sync.Mutex
	paused  bool
	running bool
}

func NewOrchestrator(cfg *config.Config, store RunStore, cat *catalog.Catalog, opener PageOpener) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		catalog:  cat,
		opener:   opener,
		throttle: NewThrottle(cfg.Scraper.SitemapDelay),
	}
}

func (o *Orchestrator) SetPublisher(p Publisher) {
	o.publisher = p
}

// SetSkipLogin is used when replaying snapshots, which start signed in.
func (o *Orchestrator) SetSkipLogin(skip bool) {
	o.skipLogin = skip
}

// RunAll scrapes every configured property, or every property the console
// offers when none are configured.
func (o *Orchestrator) RunAll(ctx context.Context) (*aggregate.Run, error) {
	return o.run(ctx, nil)
}

func (o *Orchestrator) RunProperty(ctx context.Context, property string) (*aggregate.Run, error) {
	return o.run(ctx, []string{property})
}

func (o *Orchestrator) run(ctx context.Context, only []string) (*aggregate.Run, error) {
	o.mu.Lock()
	if o.paused {
		o.mu.Unlock()
		log.Println("Scraper is paused, skipping run")
		return nil, nil
	}
	if o.running {
		o.mu.Unlock()
		log.Println("A run is already in progress, skipping")
		return nil, nil
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	run := &models.ScrapeRun{
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := o.store.CreateRun(run)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	run.ID = runID

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		if err := o.store.UpdateRun(run); err != nil {
			log.Printf("Failed to update run %d: %v", run.ID, err)
		}
	}()

	log.Println("Launching browser...")
	page, err := o.opener(ctx)
	if err != nil {
		run.Status = models.RunStatusFailed
		o.log(runID, models.LogLevelError, fmt.Sprintf("Browser launch failed: %v", err), "")
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	session := NewSession(page, Credentials{
		Email:    o.cfg.Credentials.Email,
		Password: o.cfg.Credentials.Password,
	}, o.cfg.PropertyIDs(), o.sessionOptions())

	if !o.skipLogin {
		if err := session.Login(ctx); err != nil {
			run.Status = models.RunStatusFailed
			run.ErrorsCount++
			o.log(runID, models.LogLevelError, fmt.Sprintf("Login failed: %v", err), "")
			return nil, err
		}
	}

	properties := only
	if properties == nil {
		properties, err = session.Properties()
		if err != nil {
			run.Status = models.RunStatusFailed
			return nil, fmt.Errorf("list properties: %w", err)
		}
	}
	run.PropertyCount = len(properties)

	extractor := NewExtractor(page, o.catalog, o.cfg.Scraper.SelectorTimeout)
	walker := NewSitemapWalker(page, extractor, o.throttle, o.cfg.Scraper.SelectorTimeout)

	var extractions []models.PropertyExtraction
	for _, property := range properties {
		if err := ctx.Err(); err != nil {
			run.Status = models.RunStatusFailed
			return nil, err
		}
		started := time.Now()
		px := o.extractProperty(ctx, runID, page, extractor, walker, property)
		extractions = append(extractions, px)
		o.updateStats(px, started)
	}

	result := aggregate.Build(extractions)
	totals := result.Totals()
	run.ReportsFound = totals.Reports
	run.URLsExtracted = totals.URLs
	run.SitemapsWalked = totals.Sitemaps
	run.ErrorsCount += totals.Failures

	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, runID, result); err != nil {
			run.ErrorsCount++
			o.log(runID, models.LogLevelError, fmt.Sprintf("Publish failed: %v", err), "")
		}
	}

	run.Status = models.RunStatusCompleted
	o.log(runID, models.LogLevelInfo,
		fmt.Sprintf("Completed: %d properties, %d reports, %d URLs, %d sitemaps, %d errors",
			totals.Properties, totals.Reports, totals.URLs, totals.Sitemaps, run.ErrorsCount), "")
	return result, nil
}

// extractProperty runs the top-level reports first and only then the
// sitemap walk, so the per-property totals are printed before it starts.
func (o *Orchestrator) extractProperty(ctx context.Context, runID int64, page browser.Page, extractor *Extractor, walker *SitemapWalker, property string) models.PropertyExtraction {
	px := models.PropertyExtraction{Property: property}
	o.log(runID, models.LogLevelInfo, "Scraping property", property)

	ids, err := o.discoverReports(ctx, page, property)
	if err != nil {
		px.Failures++
		o.log(runID, models.LogLevelError, fmt.Sprintf("Report discovery failed: %v", err), property)
		return px
	}
	o.log(runID, models.LogLevelInfo, fmt.Sprintf("Discovered %d reports", len(ids)), property)

	for _, id := range ids {
		if ctx.Err() != nil {
			return px
		}
		x, err := extractor.Extract(ctx, ReportTarget{Property: property, Report: id})
		if err != nil {
			px.Failures++
			o.log(runID, models.LogLevelWarn, err.Error(), property)
			continue
		}
		px.Add(x.Records, x.Summary)
	}
	o.log(runID, models.LogLevelInfo,
		fmt.Sprintf("Total extracted: %d URLs across %d reports", len(px.Records), len(px.Summaries)), property)

	if !o.cfg.Property(property).SkipSitemaps {
		walk, err := walker.Walk(ctx, property)
		if err != nil {
			px.Failures++
			o.log(runID, models.LogLevelError, fmt.Sprintf("Sitemap walk failed: %v", err), property)
		}
		if walk != nil {
			px.Sitemaps = walk.Entries
			px.Failures += walk.Failures
			o.log(runID, models.LogLevelInfo, fmt.Sprintf("Walked %d sitemaps", len(walk.Entries)), property)
		}
	}

	american, european := o.cfg.Dates.American, o.cfg.Dates.European
	px.Records = dates.NormalizeRecords(px.Records, american, european)
	for i := range px.Sitemaps {
		px.Sitemaps[i].Records = dates.NormalizeRecords(px.Sitemaps[i].Records, american, european)
	}
	return px
}

func (o *Orchestrator) discoverReports(ctx context.Context, page browser.Page, property string) ([]models.ReportIdentifier, error) {
	if err := page.Goto(ctx, OverviewURL(property)); err != nil {
		return nil, err
	}
	if err := page.WaitFor(selectors.ReportReady, o.cfg.Scraper.SelectorTimeout); err != nil {
		return nil, &models.SelectorTimeout{Selector: selectors.ReportReady}
	}
	source, err := page.RawSource()
	if err != nil {
		return nil, fmt.Errorf("read overview source: %w", err)
	}
	return discovery.NewScriptMiner(property).Discover(source).Sorted(), nil
}

func (o *Orchestrator) updateStats(px models.PropertyExtraction, started time.Time) {
	now := time.Now()
	status := string(models.RunStatusCompleted)
	if px.Failures > 0 {
		status = "partial"
	}
	stats := &models.PropertyStats{
		Property:          px.Property,
		LastRunAt:         &now,
		LastRunStatus:     status,
		ReportsFound:      len(px.Summaries),
		URLsExtracted:     len(px.Records),
		SitemapsWalked:    len(px.Sitemaps),
		AvgRunDurationSec: int(now.Sub(started).Seconds()),
	}
	for _, s := range px.Summaries {
		stats.DeclaredTotal += s.DeclaredTotal
	}
	if err := o.store.UpdatePropertyStats(stats); err != nil {
		log.Printf("Failed to update stats for %s: %v", px.Property, err)
	}
}

func (o *Orchestrator) sessionOptions() SessionOptions {
	opts := DefaultSessionOptions()
	opts.NavTimeout = o.cfg.Browser.NavTimeout
	opts.ChallengeTimeout = o.cfg.Session.ChallengeTimeout
	opts.ChallengeGrace = o.cfg.Session.ChallengeGrace
	opts.ChallengeWindow = o.cfg.Session.ChallengeWindow
	opts.WelcomeTimeout = o.cfg.Session.WelcomeTimeout
	opts.KeyDelay = o.cfg.Session.KeyDelay
	return opts
}

func (o *Orchestrator) HandleCommand(ctx context.Context, cmd *models.Command) error {
	params, err := o.store.ParseCommandParams(cmd)
	if err != nil {
		return err
	}

	switch cmd.Command {
	case models.CmdScrapeNow:
		_, err = o.RunAll(ctx)
		return err
	case models.CmdScrapeProperty:
		if params.Property != "" {
			_, err = o.RunProperty(ctx, params.Property)
			return err
		}
		_, err = o.RunAll(ctx)
		return err
	case models.CmdPause:
		o.mu.Lock()
		o.paused = true
		o.mu.Unlock()
		log.Println("Scraper paused")
	case models.CmdResume:
		o.mu.Lock()
		o.paused = false
		o.mu.Unlock()
		log.Println("Scraper resumed")
	}

	return nil
}

func (o *Orchestrator) IsPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

func (o *Orchestrator) log(runID int64, level models.LogLevel, message, property string) {
	if property != "" {
		log.Printf("[%s] %s: %s", level, property, message)
	} else {
		log.Printf("[%s] %s", level, message)
	}
	if level.AtLeast(models.LogLevel(o.cfg.LogLevel)) {
		o.store.Log(&runID, level, message, property)
	}
}
