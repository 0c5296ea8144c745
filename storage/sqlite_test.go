package storage

import (
	"path/filepath"
	"testing"
	"time"

	"gsc_coverage/models"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := newTestSQLite(t)

	run := &models.ScrapeRun{StartedAt: time.Now(), Status: models.RunStatusRunning, PropertyCount: 2}
	id, err := store.CreateRun(run)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	run.ID = id

	now := time.Now()
	run.FinishedAt = &now
	run.Status = models.RunStatusCompleted
	run.URLsExtracted = 42
	run.ErrorsCount = 1
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("update run: %v", err)
	}

	got, err := store.GetRun(id)
	if err != nil || got == nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != models.RunStatusCompleted || got.URLsExtracted != 42 || got.ErrorsCount != 1 || got.FinishedAt == nil {
		t.Fatalf("unexpected run %+v", got)
	}

	last, err := store.GetLastRunTime()
	if err != nil || last.IsZero() {
		t.Fatalf("expected last run time, got %v %v", last, err)
	}

	if err := store.Log(&id, models.LogLevelWarn, "Sitemap failed", "https://example.com/"); err != nil {
		t.Fatalf("log: %v", err)
	}
	logs, err := store.GetLogs(id)
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d (%v)", len(logs), err)
	}
	if logs[0].Level != models.LogLevelWarn || logs[0].Property != "https://example.com/" {
		t.Fatalf("unexpected log %+v", logs[0])
	}
}

func TestCommandQueue(t *testing.T) {
	store := newTestSQLite(t)

	if err := store.EnqueueCommand(models.CmdScrapeProperty, &models.CommandParams{Property: "sc-domain:example.com"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.EnqueueCommand(models.CmdPause, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	cmds, err := store.GetPendingCommands()
	if err != nil || len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d (%v)", len(cmds), err)
	}
	params, err := store.ParseCommandParams(&cmds[0])
	if err != nil || params.Property != "sc-domain:example.com" {
		t.Fatalf("unexpected params %+v (%v)", params, err)
	}
	params, err = store.ParseCommandParams(&cmds[1])
	if err != nil || params.Property != "" {
		t.Fatalf("unexpected params %+v (%v)", params, err)
	}

	if err := store.MarkCommandProcessed(cmds[0].ID); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	cmds, _ = store.GetPendingCommands()
	if len(cmds) != 1 || cmds[0].Command != models.CmdPause {
		t.Fatalf("unexpected pending commands %+v", cmds)
	}
}

func TestArtifacts(t *testing.T) {
	store := newTestSQLite(t)

	a := &models.Artifact{RunID: 1, Path: "exports/coverage.csv"}
	b := &models.Artifact{RunID: 1, Path: "exports/summary.csv"}
	for _, art := range []*models.Artifact{a, b} {
		if err := store.CreateArtifact(art); err != nil {
			t.Fatalf("create artifact: %v", err)
		}
	}

	pending, err := store.GetPendingArtifacts(10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d (%v)", len(pending), err)
	}

	if err := store.MarkArtifactUploaded(a.ID, "gsc/1/coverage.csv"); err != nil {
		t.Fatalf("mark uploaded: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.MarkArtifactFailed(b.ID, 3); err != nil {
			t.Fatalf("mark failed: %v", err)
		}
	}

	pending, _ = store.GetPendingArtifacts(10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending artifacts, got %+v", pending)
	}
}

func TestPropertyStats(t *testing.T) {
	store := newTestSQLite(t)

	now := time.Now()
	stats := &models.PropertyStats{
		Property: "https://example.com/", LastRunAt: &now, LastRunStatus: "completed",
		ReportsFound: 3, URLsExtracted: 10, DeclaredTotal: 20, AvgRunDurationSec: 40,
	}
	if err := store.UpdatePropertyStats(stats); err != nil {
		t.Fatalf("update stats: %v", err)
	}
	stats.AvgRunDurationSec = 20
	stats.URLsExtracted = 12
	if err := store.UpdatePropertyStats(stats); err != nil {
		t.Fatalf("update stats: %v", err)
	}

	got, err := store.GetPropertyStats("https://example.com/")
	if err != nil || got == nil {
		t.Fatalf("get stats: %v", err)
	}
	if got.URLsExtracted != 12 || got.AvgRunDurationSec != 30 {
		t.Fatalf("unexpected stats %+v", got)
	}

	missing, err := store.GetPropertyStats("https://unknown.example/")
	if err != nil || missing != nil {
		t.Fatalf("expected nil stats, got %+v (%v)", missing, err)
	}
}
