package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gsc_coverage/catalog"
	"gsc_coverage/config"
	"gsc_coverage/export"
	"gsc_coverage/logging"
	"gsc_coverage/models"
	"gsc_coverage/scheduler"
	"gsc_coverage/scraper"
	"gsc_coverage/services"
	"gsc_coverage/storage"
	"gsc_coverage/workers"
)

var (
	scrapeNow  = flag.Bool("scrape", false, "Run scrape once and exit")
	replayDir  = flag.String("replay", "", "Replay a saved snapshot directory instead of driving a browser")
	properties = flag.String("properties", "", "Comma-separated property resource ids to scrape")
	enqueueCmd = flag.String("enqueue", "", "Queue a command for the running daemon (scrape_now, scrape_property, pause, resume, upload_exports)")
	reportRun  = flag.Int64("report", 0, "Print the counters and log of a run, then exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *replayDir != "" {
		cfg.ReplayDir = *replayDir
	}
	if *properties != "" {
		cfg.Restrict(strings.Split(*properties, ","))
	}

	logFile, err := logging.Setup(cfg.LogFile, cfg.LogMaxSize)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting gsc_coverage...")

	ids := cfg.PropertyIDs()
	if len(ids) == 0 {
		log.Println("No properties configured, will use every property the account can see")
	}
	for _, id := range ids {
		log.Printf("  - %s", id)
	}

	cat, err := catalog.Load(cfg.CatalogPath())
	if err != nil {
		log.Fatalf("Failed to load report catalog: %v", err)
	}
	log.Printf("Report catalog: %d entries", cat.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	if *enqueueCmd != "" {
		var property string
		if ids := cfg.PropertyIDs(); *properties != "" && len(ids) > 0 {
			property = ids[0]
		}
		if err := enqueue(sqliteStore, *enqueueCmd, property); err != nil {
			log.Fatalf("Failed to queue command: %v", err)
		}
		log.Printf("Queued %s", *enqueueCmd)
		return
	}
	if *reportRun > 0 {
		if err := printReport(os.Stdout, sqliteStore, *reportRun, cfg.PropertyIDs()); err != nil {
			log.Fatalf("Report failed: %v", err)
		}
		return
	}

	writers, err := export.NewWriters(cfg.Export.Formats)
	if err != nil {
		log.Fatalf("Invalid export formats: %v", err)
	}
	coverage := services.NewCoverageService(writers, cfg.Export.OutputDir)
	coverage.SetArtifactStore(sqliteStore)

	// Postgres is an optional mirror of every run
	if cfg.DatabaseURL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate Postgres: %v", err)
		}
		coverage.SetWarehouse(pgStore)
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))
	}

	var uploader workers.Uploader = workers.NewNoOpUploader()
	if cfg.S3.Enabled() {
		s3Uploader, err := storage.NewS3Uploader(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			log.Fatalf("Failed to set up S3: %v", err)
		}
		uploader = s3Uploader
		log.Printf("Exports upload to %s", s3Uploader.PublicURL(cfg.S3.Prefix))
	}
	exportWorker := workers.NewExportWorker(sqliteStore, uploader, cfg.S3.Prefix)
	exportWorker.SetLogger(func(level models.LogLevel, source, message string) {
		if level.AtLeast(models.LogLevel(cfg.LogLevel)) {
			sqliteStore.Log(nil, level, message, source)
		}
	})

	orchestrator := scraper.NewOrchestrator(cfg, sqliteStore, cat, scraper.NewPageOpener(cfg))
	orchestrator.SetPublisher(coverage)
	if cfg.ReplayDir != "" {
		log.Printf("Replaying snapshots from %s", cfg.ReplayDir)
		orchestrator.SetSkipLogin(true)
	}

	// Handle one-shot commands
	if *scrapeNow {
		log.Println("Running scrape...")
		run, err := orchestrator.RunAll(ctx)
		if err != nil {
			if models.IsFatal(err) {
				log.Fatalf("Scrape aborted: %v", err)
			}
			log.Printf("Scrape finished with errors: %v", err)
		}
		if run != nil {
			t := run.Totals()
			log.Printf("Scrape complete! %d properties, %d reports, %d URLs, %d sitemaps",
				t.Properties, t.Reports, t.URLs, t.Sitemaps)
		}
		if cfg.S3.Enabled() {
			exportWorker.ProcessBatch(ctx, 50)
		}
		return
	}

	// Daemon mode
	coverage.OnExport(exportWorker.Trigger)
	go exportWorker.Run(ctx, 20, 5*time.Minute)
	log.Println("Export worker started")

	sched := scheduler.New(cfg, orchestrator, sqliteStore)
	sched.SetExportWorker(exportWorker)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-sched.Fatal():
		cancel()
		sched.Stop()
		log.Fatalf("Scrape aborted: %v", err)
	}

	log.Println("Shutting down...")
	cancel()
	sched.Stop()
	log.Println("Goodbye!")
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	// Simple mask - find :// and mask until @
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	// Find : after user
	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
