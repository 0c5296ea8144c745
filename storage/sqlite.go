package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"gsc_coverage/models"
)

// SQLiteStore holds the operational side of the daemon: runs, logs,
// queued commands, export artifacts and per-property stats.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		property_count INTEGER DEFAULT 0,
		reports_found INTEGER DEFAULT 0,
		urls_extracted INTEGER DEFAULT 0,
		sitemaps_walked INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		property TEXT
	);

	CREATE TABLE IF NOT EXISTS property_stats (
		property TEXT PRIMARY KEY,
		last_run_at DATETIME,
		last_run_status TEXT,
		reports_found INTEGER,
		urls_extracted INTEGER,
		declared_total INTEGER,
		sitemaps_walked INTEGER,
		avg_run_duration_sec INTEGER
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS export_artifacts (
		id TEXT PRIMARY KEY,
		run_id INTEGER,
		path TEXT NOT NULL,
		s3_key TEXT,
		status TEXT DEFAULT 'pending',
		attempts INTEGER DEFAULT 0,
		created_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_artifacts_status ON export_artifacts(status, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (started_at, status, property_count)
		VALUES (?, ?, ?)`,
		run.StartedAt, run.Status, run.PropertyCount)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, property_count = ?,
			reports_found = ?, urls_extracted = ?, sitemaps_walked = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.PropertyCount, run.ReportsFound,
		run.URLsExtracted, run.SitemapsWalked, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) GetRun(id int64) (*models.ScrapeRun, error) {
	var run models.ScrapeRun
	err := s.db.QueryRow(`
		SELECT id, started_at, finished_at, status, property_count, reports_found,
			urls_extracted, sitemaps_walked, errors_count
		FROM scrape_runs WHERE id = ?`, id).Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status, &run.PropertyCount,
		&run.ReportsFound, &run.URLsExtracted, &run.SitemapsWalked, &run.ErrorsCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, property string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message, property)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, property)
	return err
}

func (s *SQLiteStore) GetLogs(runID int64) ([]models.ScrapeLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, property
		FROM scrape_logs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message, &l.Property); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// UpdatePropertyStats stores the latest counters of a property. The average
// duration is folded into the previous one.
func (s *SQLiteStore) UpdatePropertyStats(stats *models.PropertyStats) error {
	_, err := s.db.Exec(`
		INSERT INTO property_stats (property, last_run_at, last_run_status, reports_found,
			urls_extracted, declared_total, sitemaps_walked, avg_run_duration_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(property) DO UPDATE SET
			last_run_at = excluded.last_run_at,
			last_run_status = excluded.last_run_status,
			reports_found = excluded.reports_found,
			urls_extracted = excluded.urls_extracted,
			declared_total = excluded.declared_total,
			sitemaps_walked = excluded.sitemaps_walked,
			avg_run_duration_sec = (property_stats.avg_run_duration_sec + excluded.avg_run_duration_sec) / 2`,
		stats.Property, stats.LastRunAt, stats.LastRunStatus, stats.ReportsFound,
		stats.URLsExtracted, stats.DeclaredTotal, stats.SitemapsWalked, stats.AvgRunDurationSec)
	return err
}

func (s *SQLiteStore) GetPropertyStats(property string) (*models.PropertyStats, error) {
	var st models.PropertyStats
	err := s.db.QueryRow(`
		SELECT property, last_run_at, last_run_status, reports_found, urls_extracted,
			declared_total, sitemaps_walked, avg_run_duration_sec
		FROM property_stats WHERE property = ?`, property).Scan(
		&st.Property, &st.LastRunAt, &st.LastRunStatus, &st.ReportsFound, &st.URLsExtracted,
		&st.DeclaredTotal, &st.SitemapsWalked, &st.AvgRunDurationSec)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *SQLiteStore) GetLastRunTime() (time.Time, error) {
	var lastRun time.Time
	err := s.db.QueryRow(`
		SELECT started_at FROM scrape_runs WHERE status = ?
		ORDER BY started_at DESC LIMIT 1`, models.RunStatusCompleted).Scan(&lastRun)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	return lastRun, err
}

// EnqueueCommand queues a command for the daemon's poll loop.
func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) error {
	var raw []byte
	if params != nil {
		var err error
		if raw, err = json.Marshal(params); err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`INSERT INTO commands (command, params, created_at) VALUES (?, ?, ?)`,
		cmd, string(raw), time.Now())
	return err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid && params.String != "" {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

func (s *SQLiteStore) CreateArtifact(a *models.Artifact) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = models.ArtifactStatusPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO export_artifacts (id, run_id, path, s3_key, status, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.RunID, a.Path, a.S3Key, a.Status, a.Attempts, a.CreatedAt)
	return err
}

func (s *SQLiteStore) GetPendingArtifacts(limit int) ([]models.Artifact, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, path, s3_key, status, attempts, created_at
		FROM export_artifacts WHERE status = ? ORDER BY created_at LIMIT ?`,
		models.ArtifactStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Artifact
	for rows.Next() {
		var a models.Artifact
		var id string
		if err := rows.Scan(&id, &a.RunID, &a.Path, &a.S3Key, &a.Status, &a.Attempts, &a.CreatedAt); err != nil {
			return nil, err
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("artifact id %q: %w", id, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkArtifactUploaded(id uuid.UUID, key string) error {
	_, err := s.db.Exec(`UPDATE export_artifacts SET status = ?, s3_key = ? WHERE id = ?`,
		models.ArtifactStatusUploaded, key, id.String())
	return err
}

// MarkArtifactFailed counts a failed attempt and gives up after maxAttempts.
func (s *SQLiteStore) MarkArtifactFailed(id uuid.UUID, maxAttempts int) error {
	_, err := s.db.Exec(`
		UPDATE export_artifacts SET attempts = attempts + 1,
			status = CASE WHEN attempts + 1 >= ? THEN ? ELSE status END
		WHERE id = ?`,
		maxAttempts, models.ArtifactStatusFailed, id.String())
	return err
}
