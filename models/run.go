package models

import (
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

type ScrapeRun struct {
	ID             int64      `json:"id" db:"id"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	FinishedAt     *time.Time `json:"finished_at" db:"finished_at"`
	Status         RunStatus  `json:"status" db:"status"`
	PropertyCount  int        `json:"property_count" db:"property_count"`
	ReportsFound   int        `json:"reports_found" db:"reports_found"`
	URLsExtracted  int        `json:"urls_extracted" db:"urls_extracted"`
	SitemapsWalked int        `json:"sitemaps_walked" db:"sitemaps_walked"`
	ErrorsCount    int        `json:"errors_count" db:"errors_count"`
}

type PropertyStats struct {
	Property          string     `json:"property" db:"property"`
	LastRunAt         *time.Time `json:"last_run_at" db:"last_run_at"`
	LastRunStatus     string     `json:"last_run_status" db:"last_run_status"`
	ReportsFound      int        `json:"reports_found" db:"reports_found"`
	URLsExtracted     int        `json:"urls_extracted" db:"urls_extracted"`
	DeclaredTotal     int        `json:"declared_total" db:"declared_total"`
	SitemapsWalked    int        `json:"sitemaps_walked" db:"sitemaps_walked"`
	AvgRunDurationSec int        `json:"avg_run_duration_sec" db:"avg_run_duration_sec"`
}
