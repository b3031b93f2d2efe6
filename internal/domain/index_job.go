package domain

import (
	"fmt"
	"time"
)

// IndexJobStatus represents the status of an index job
type IndexJobStatus string

const (
	IndexJobStatusPending    IndexJobStatus = "pending"
	IndexJobStatusProcessing IndexJobStatus = "processing"
	IndexJobStatusCompleted  IndexJobStatus = "completed"
	IndexJobStatusFailed     IndexJobStatus = "failed"
)

// IndexJob represents an async request to (re)index one source into memory.
// Jobs are queued by the ticket-resolution hook and drained by the
// background worker.
type IndexJob struct {
	ID          string
	SourceType  string
	SourceID    string
	Status      IndexJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewIndexJob creates a pending IndexJob for one source.
func NewIndexJob(id, sourceType, sourceID string, createdAt time.Time) *IndexJob {
	return &IndexJob{
		ID:         id,
		SourceType: sourceType,
		SourceID:   sourceID,
		Status:     IndexJobStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidateIndexJob validates an IndexJob instance
func ValidateIndexJob(j *IndexJob) error {
	if j == nil {
		return NewDomainErrorWithCause(ErrCodeValidation, "index job cannot be nil", ErrInvalidIndexJob)
	}
	if j.ID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "index job ID is required", ErrInvalidIndexJob)
	}
	if j.SourceType == "" {
		return ErrMissingSourceType
	}
	if j.SourceID == "" {
		return ErrMissingSourceID
	}
	if !isValidIndexJobStatus(j.Status) {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("index job status is invalid: %s", j.Status))
	}
	if j.Retries < 0 {
		return NewDomainError(ErrCodeValidation, "index job retries cannot be negative")
	}
	return nil
}

func isValidIndexJobStatus(s IndexJobStatus) bool {
	switch s {
	case IndexJobStatusPending, IndexJobStatusProcessing,
		IndexJobStatusCompleted, IndexJobStatusFailed:
		return true
	}
	return false
}
