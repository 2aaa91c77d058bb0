package domain

import (
	"fmt"
	"time"
)

// ImportJobStatus represents the status of an import job
type ImportJobStatus string

const (
	ImportJobStatusPending    ImportJobStatus = "pending"
	ImportJobStatusProcessing ImportJobStatus = "processing"
	ImportJobStatusCompleted  ImportJobStatus = "completed"
	ImportJobStatusFailed     ImportJobStatus = "failed"
)

// ImportJob is a queued request to extract and persist an uploaded report
type ImportJob struct {
	ID          string
	UploadID    string
	UseLLM      bool
	Force       bool
	Status      ImportJobStatus
	Retries     int32
	Error       string
	RowsCreated int
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewImportJob creates a new pending ImportJob instance
func NewImportJob(id, uploadID string, useLLM, force bool, createdAt time.Time) *ImportJob {
	return &ImportJob{
		ID:        id,
		UploadID:  uploadID,
		UseLLM:    useLLM,
		Force:     force,
		Status:    ImportJobStatusPending,
		CreatedAt: createdAt,
	}
}

// ValidateImportJob validates an ImportJob instance
func ValidateImportJob(j *ImportJob) error {
	if j == nil {
		return fmt.Errorf("import job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("import job ID is required")
	}

	if j.UploadID == "" {
		return fmt.Errorf("import job UploadID is required")
	}

	if !isValidImportJobStatus(j.Status) {
		return fmt.Errorf("%w: %s", ErrInvalidImportStatus, j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("import job Retries cannot be negative")
	}

	return nil
}

func isValidImportJobStatus(s ImportJobStatus) bool {
	switch s {
	case ImportJobStatusPending, ImportJobStatusProcessing,
		ImportJobStatusCompleted, ImportJobStatusFailed:
		return true
	}
	return false
}
