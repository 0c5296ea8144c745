package models

import (
	"time"

	"github.com/google/uuid"
)

// Artifact is an exported file waiting to be shipped to object storage.
type Artifact struct {
	ID        uuid.UUID `json:"id" db:"id"`
	RunID     int64     `json:"run_id" db:"run_id"`
	Path      string    `json:"path" db:"path"`
	S3Key     *string   `json:"s3_key" db:"s3_key"`
	Status    string    `json:"status" db:"status"`
	Attempts  int       `json:"attempts" db:"attempts"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Artifact status
const (
	ArtifactStatusPending  = "pending"
	ArtifactStatusUploaded = "uploaded"
	ArtifactStatusFailed   = "failed"
)
