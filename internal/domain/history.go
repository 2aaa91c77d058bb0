package domain

import (
	"fmt"
	"time"
)

// EntryTypeReport is the entry type of rows imported from weekly reports
const EntryTypeReport = "Report"

// MaxHistorySummaryChars caps the persisted summary length
const MaxHistorySummaryChars = 5000

// ProjectHistory is a persisted project update for one reporting week
type ProjectHistory struct {
	ID             string
	ProjectCode    string
	ProjectName    string
	Category       *Category
	EntryType      string
	LogDate        time.Time
	CWLabel        string
	Title          *string
	Summary        string
	NextActions    *string
	Owner          *string
	SourceText     *string
	AttachmentURL  *string
	SourceUploadID string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidateProjectHistory validates a ProjectHistory instance
func ValidateProjectHistory(h *ProjectHistory) error {
	if h == nil {
		return fmt.Errorf("project history cannot be nil")
	}

	if h.ID == "" {
		return fmt.Errorf("project history ID is required")
	}

	if h.ProjectCode == "" {
		return fmt.Errorf("project history ProjectCode is required")
	}

	if h.LogDate.IsZero() {
		return ErrInvalidHistoryLogDate
	}

	if h.Category != nil && !h.Category.IsValid() {
		return fmt.Errorf("project history Category is invalid: %s", *h.Category)
	}

	return nil
}
