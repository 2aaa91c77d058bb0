package domain

import (
	"fmt"
	"time"
)

// UploadStatus tracks a report upload through parsing
type UploadStatus string

const (
	UploadStatusReceived UploadStatus = "received"
	UploadStatusParsed   UploadStatus = "parsed"
	UploadStatusFailed   UploadStatus = "failed"
)

// ReportUpload is a received report file, deduplicated by content hash
type ReportUpload struct {
	ID               string
	OriginalFilename string
	StoragePath      string
	MimeType         string
	FileSizeBytes    int64
	SHA256           string
	Status           UploadStatus
	CWLabel          string
	Category         *Category
	ParsedAt         *time.Time
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidateReportUpload validates a ReportUpload instance
func ValidateReportUpload(u *ReportUpload) error {
	if u == nil {
		return fmt.Errorf("report upload cannot be nil")
	}

	if u.ID == "" {
		return fmt.Errorf("report upload ID is required")
	}

	if u.OriginalFilename == "" {
		return fmt.Errorf("report upload OriginalFilename is required")
	}

	if len(u.SHA256) != 64 {
		return fmt.Errorf("report upload SHA256 must be 64 hex characters")
	}

	switch u.Status {
	case UploadStatusReceived, UploadStatusParsed, UploadStatusFailed:
	default:
		return fmt.Errorf("report upload Status is invalid: %s", u.Status)
	}

	return nil
}
