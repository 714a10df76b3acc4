package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"enricher/internal/logger"
	"enricher/internal/models"
)

// Outcome is how a single product task ended.
type Outcome int

const (
	OutcomeEnriched Outcome = iota
	OutcomePartial
	OutcomeFailed
)

// Run identifies one claimed execution of a namespace job.
type Run struct {
	RunID     string
	Platform  models.Platform
	Mode      models.SyncMode
	StartedAt time.Time
}

// JobStore holds one progress record per namespace. Counter updates are
// single UPDATE statements so concurrent completions never lose increments.
type JobStore struct {
	db        *gorm.DB
	logger    *logger.Logger
	staleTime time.Duration
}

func NewJobStore(db *gorm.DB, log *logger.Logger, staleAfter time.Duration) *JobStore {
	return &JobStore{db: db, logger: log, staleTime: staleAfter}
}

// Claim moves the namespace job to running for run. It fails with
// ErrJobRunning while another run is active, unless that run started longer
// ago than the stale timeout (its process is presumed dead).
func (s *JobStore) Claim(ctx context.Context, namespace string, run Run) (*models.SyncJob, error) {
	db := s.db.WithContext(ctx)

	// First run of a namespace creates the idle row; losing the race to a
	// concurrent creator is fine.
	seed := models.SyncJob{Namespace: namespace, State: models.JobIdle}
	if err := db.Where(models.SyncJob{Namespace: namespace}).FirstOrCreate(&seed).Error; err != nil && !isWriteConflict(err) {
		return nil, fmt.Errorf("create job row: %w", err)
	}

	started := run.StartedAt
	updates := map[string]interface{}{
		"run_id":          run.RunID,
		"platform":        run.Platform,
		"mode":            run.Mode,
		"state":           models.JobRunning,
		"total_products":  0,
		"processed_count": 0,
		"enriched_count":  0,
		"failed_count":    0,
		"catalog_size":    0,
		"error":           nil,
		"started_at":      started,
		"finished_at":     nil,
	}

	query := db.Model(&models.SyncJob{}).Where("namespace = ?", namespace)
	if s.staleTime > 0 {
		cutoff := started.Add(-s.staleTime)
		query = query.Where("state <> ? OR started_at IS NULL OR started_at < ?", models.JobRunning, cutoff)
	} else {
		query = query.Where("state <> ?", models.JobRunning)
	}

	res := query.Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrJobRunning
	}
	return s.Get(ctx, namespace)
}

// SetTotals records the size of the pending set and of the fetched catalog.
func (s *JobStore) SetTotals(ctx context.Context, namespace, runID string, total, catalogSize int) error {
	res := s.db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("namespace = ? AND run_id = ?", namespace, runID).
		Updates(map[string]interface{}{
			"total_products": total,
			"catalog_size":   catalogSize,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRun
	}
	return nil
}

// IncrementProcessed accounts for one finished product of run.
func (s *JobStore) IncrementProcessed(ctx context.Context, namespace, runID string, outcome Outcome) error {
	updates := map[string]interface{}{
		"processed_count": gorm.Expr("processed_count + ?", 1),
	}
	switch outcome {
	case OutcomeEnriched:
		updates["enriched_count"] = gorm.Expr("enriched_count + ?", 1)
	case OutcomeFailed:
		updates["failed_count"] = gorm.Expr("failed_count + ?", 1)
	}

	res := s.db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("namespace = ? AND run_id = ?", namespace, runID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRun
	}
	return nil
}

// Finish moves run to its terminal state. A nil jobErr with JobError state
// is recorded without a message.
func (s *JobStore) Finish(ctx context.Context, namespace, runID string, state models.JobState, jobErr error) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"state":       state,
		"finished_at": now,
	}
	if jobErr != nil {
		updates["error"] = jobErr.Error()
	}

	res := s.db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("namespace = ? AND run_id = ? AND state = ?", namespace, runID, models.JobRunning).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRun
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, namespace string) (*models.SyncJob, error) {
	var job models.SyncJob
	err := s.db.WithContext(ctx).Where("namespace = ?", namespace).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListRunning returns the jobs currently marked running, used at startup to
// report runs interrupted by a restart.
func (s *JobStore) ListRunning(ctx context.Context) ([]models.SyncJob, error) {
	var jobs []models.SyncJob
	err := s.db.WithContext(ctx).Where("state = ?", models.JobRunning).Find(&jobs).Error
	return jobs, err
}
