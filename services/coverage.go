package services

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"gsc_coverage/aggregate"
	"gsc_coverage/export"
	"gsc_coverage/models"
)

// ArtifactStore queues exported files for upload.
type ArtifactStore interface {
	CreateArtifact(a *models.Artifact) error
}

// Warehouse is the optional Postgres mirror of every run.
type Warehouse interface {
	CreateScrapeRun(ctx context.Context, run *models.ScrapeRun) (int64, error)
	UpsertReportRecords(ctx context.Context, runID int64, records []models.ReportRecord) error
	InsertReportSummaries(ctx context.Context, runID int64, summaries []models.ReportSummary) error
	InsertSitemapSummaries(ctx context.Context, runID int64, entries []models.SitemapEntry) error
}

// CoverageService hands a finished run to the export sinks: table files on
// disk, the upload queue and the warehouse.
type CoverageService struct {
	writers   []export.Writer
	outputDir string
	artifacts ArtifactStore
	warehouse Warehouse
	onExport  func()
	now       func() time.Time
}

func NewCoverageService(writers []export.Writer, outputDir string) *CoverageService {
	return &CoverageService{
		writers:   writers,
		outputDir: outputDir,
		now:       time.Now,
	}
}

// SetArtifactStore enables the upload queue.
func (s *CoverageService) SetArtifactStore(store ArtifactStore) {
	s.artifacts = store
}

func (s *CoverageService) SetWarehouse(w Warehouse) {
	s.warehouse = w
}

// OnExport is called after files were queued, typically to wake the upload worker.
func (s *CoverageService) OnExport(fn func()) {
	s.onExport = fn
}

// RunDir is where the files of a run end up.
func (s *CoverageService) RunDir(runID int64) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("run-%d", runID))
}

// Publish writes every table of the run. A failing writer does not stop the
// others; the first error is returned once all sinks were tried.
func (s *CoverageService) Publish(ctx context.Context, runID int64, run *aggregate.Run) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	tables := run.Tables()
	if len(tables) == 0 {
		log.Printf("Run %d: no rows to export", runID)
	} else {
		keep(s.writeFiles(runID, tables))
	}

	if s.warehouse != nil {
		keep(s.mirror(ctx, runID, run))
	}

	return firstErr
}

func (s *CoverageService) writeFiles(runID int64, tables []aggregate.Table) error {
	dir := s.RunDir(runID)
	var queued int
	var firstErr error

	for _, w := range s.writers {
		paths, err := w.Write(dir, tables)
		if err != nil {
			log.Printf("Run %d: %s export failed: %v", runID, w.Format(), err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s export: %w", w.Format(), err)
			}
			continue
		}
		log.Printf("Run %d: wrote %d %s files to %s", runID, len(paths), w.Format(), dir)

		if s.artifacts == nil {
			continue
		}
		for _, p := range paths {
			if err := s.artifacts.CreateArtifact(&models.Artifact{RunID: runID, Path: p}); err != nil {
				log.Printf("Run %d: failed to queue %s: %v", runID, p, err)
				continue
			}
			queued++
		}
	}

	if queued > 0 && s.onExport != nil {
		s.onExport()
	}
	return firstErr
}

func (s *CoverageService) mirror(ctx context.Context, runID int64, run *aggregate.Run) error {
	totals := run.Totals()
	now := s.now()
	remoteID, err := s.warehouse.CreateScrapeRun(ctx, &models.ScrapeRun{
		ID:             runID,
		StartedAt:      now,
		FinishedAt:     &now,
		Status:         models.RunStatusCompleted,
		PropertyCount:  totals.Properties,
		ReportsFound:   totals.Reports,
		URLsExtracted:  totals.URLs,
		SitemapsWalked: totals.Sitemaps,
		ErrorsCount:    totals.Failures,
	})
	if err != nil {
		return fmt.Errorf("warehouse run: %w", err)
	}

	for _, p := range run.Properties {
		records := append([]models.ReportRecord(nil), p.Records...)
		summaries := append([]models.ReportSummary(nil), p.Summaries...)
		for _, e := range p.Sitemaps {
			records = append(records, e.Records...)
			summaries = append(summaries, e.Summaries...)
		}

		if err := s.warehouse.UpsertReportRecords(ctx, remoteID, records); err != nil {
			return fmt.Errorf("%s: %w", p.Property, err)
		}
		if err := s.warehouse.InsertReportSummaries(ctx, remoteID, summaries); err != nil {
			return fmt.Errorf("%s: %w", p.Property, err)
		}
		if err := s.warehouse.InsertSitemapSummaries(ctx, remoteID, p.Sitemaps); err != nil {
			return fmt.Errorf("%s: %w", p.Property, err)
		}
	}

	log.Printf("Run %d: mirrored to warehouse as run %d", runID, remoteID)
	return nil
}
