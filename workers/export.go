package workers

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"gsc_coverage/models"
	"gsc_coverage/storage"
)

const maxUploadAttempts = 3

// Uploader ships a file body to S3-compatible storage.
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
}

// ArtifactQueue is the local table of exported files.
type ArtifactQueue interface {
	GetPendingArtifacts(limit int) ([]models.Artifact, error)
	MarkArtifactUploaded(id uuid.UUID, key string) error
	MarkArtifactFailed(id uuid.UUID, maxAttempts int) error
}

// ExportWorker uploads exported coverage files and records where they went.
type ExportWorker struct {
	queue     ArtifactQueue
	uploader  Uploader
	prefix    string
	triggerCh chan struct{}
	logFunc   LogFunc
}

func NewExportWorker(queue ArtifactQueue, uploader Uploader, prefix string) *ExportWorker {
	return &ExportWorker{
		queue:     queue,
		uploader:  uploader,
		prefix:    prefix,
		triggerCh: make(chan struct{}, 1),
		logFunc:   NoOpLogger,
	}
}

func (w *ExportWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger makes the worker drain the queue without waiting for the next tick.
func (w *ExportWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Key is the object key of an artifact: <prefix>/run-<id>/<file>.
func (w *ExportWorker) Key(a *models.Artifact) string {
	return path.Join(w.prefix, fmt.Sprintf("run-%d", a.RunID), filepath.Base(a.Path))
}

// Run starts the upload loop
func (w *ExportWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Export worker stopping")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx, batchSize)
		case <-w.triggerCh:
			w.ProcessBatch(ctx, batchSize)
		}
	}
}

// ProcessBatch uploads up to batchSize pending artifacts and returns how many
// went through.
func (w *ExportWorker) ProcessBatch(ctx context.Context, batchSize int) int {
	artifacts, err := w.queue.GetPendingArtifacts(batchSize)
	if err != nil {
		log.Printf("Export worker: query error: %v", err)
		return 0
	}
	if len(artifacts) == 0 {
		return 0
	}

	log.Printf("Export worker: uploading %d files", len(artifacts))

	var uploaded, failed int
	for i := range artifacts {
		if ctx.Err() != nil {
			break
		}
		a := &artifacts[i]
		key := w.Key(a)

		if err := w.upload(ctx, key, a.Path); err != nil {
			log.Printf("Export worker: failed %s: %v", a.Path, err)
			w.logFunc(models.LogLevelWarn, "export", fmt.Sprintf("Upload of %s failed: %v", filepath.Base(a.Path), err))
			if err := w.queue.MarkArtifactFailed(a.ID, maxUploadAttempts); err != nil {
				log.Printf("Export worker: failed to record attempt for %s: %v", a.ID, err)
			}
			failed++
			continue
		}

		if err := w.queue.MarkArtifactUploaded(a.ID, key); err != nil {
			log.Printf("Export worker: failed to update %s: %v", a.ID, err)
			failed++
			continue
		}
		uploaded++
	}

	log.Printf("Export worker: uploaded %d, failed %d", uploaded, failed)
	if uploaded > 0 {
		w.logFunc(models.LogLevelInfo, "export", fmt.Sprintf("Uploaded %d export files", uploaded))
	}
	return uploaded
}

func (w *ExportWorker) upload(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	if err := w.uploader.Upload(ctx, key, f, storage.ContentType(file)); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

// NoOpUploader drains files without sending them anywhere. Used when no
// bucket is configured so the queue still settles.
type NoOpUploader struct{}

func (u *NoOpUploader) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	_, err := io.Copy(io.Discard, data)
	return err
}

func NewNoOpUploader() *NoOpUploader {
	return &NoOpUploader{}
}
