package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncJob is the progress record of a namespace. There is one row per
// namespace; each run resets its counters.
type SyncJob struct {
	ID             string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	Namespace      string     `json:"namespace" gorm:"not null;uniqueIndex"`
	RunID          string     `json:"run_id" gorm:"type:varchar(36)"`
	Platform       Platform   `json:"platform" gorm:"type:varchar(32)"`
	Mode           SyncMode   `json:"mode" gorm:"type:varchar(20)"`
	State          JobState   `json:"state" gorm:"type:varchar(20);not null"`
	TotalProducts  int        `json:"total_products"`
	ProcessedCount int        `json:"processed_count"`
	EnrichedCount  int        `json:"enriched_count"`
	FailedCount    int        `json:"failed_count"`
	CatalogSize    int        `json:"catalog_size"`
	Error          *string    `json:"error,omitempty" gorm:"type:text"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type JobState string

const (
	JobIdle    JobState = "idle"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobError   JobState = "error"
)

// SyncMode selects how a run treats the catalog.
type SyncMode string

const (
	// ModeFull refreshes the catalog from the platform, then enriches.
	ModeFull SyncMode = "full"
	// ModeResume enriches pending products without fetching.
	ModeResume SyncMode = "resume"
)

// DescriptionSource selects where the text to enrich comes from.
type DescriptionSource string

const (
	SourceText  DescriptionSource = "text"
	SourceImage DescriptionSource = "image"
)

func (j *SyncJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	if j.State == "" {
		j.State = JobIdle
	}
	return nil
}
