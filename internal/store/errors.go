package store

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrJobRunning  = errors.New("JOB_ALREADY_RUNNING")
	ErrJobNotFound = errors.New("JOB_NOT_FOUND")
	ErrStaleRun    = errors.New("STALE_RUN")
)

// isWriteConflict reports a unique-key race between two writers of the same
// product row.
func isWriteConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
