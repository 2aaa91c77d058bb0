package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/pagination"
	"github.com/google/uuid"
)

// ProjectRepositoryInterface defines the repository interface for the project registry
type ProjectRepositoryInterface interface {
	ListActive(ctx context.Context) ([]domain.KnowledgeEntry, error)
	List(ctx context.Context) ([]*domain.Project, error)
	GetByCode(ctx context.Context, code string) (*domain.Project, error)
	FindCodeByName(ctx context.Context, name string) (string, error)
	Upsert(ctx context.Context, p *domain.Project) error
	CreateIfMissing(ctx context.Context, p *domain.Project) (bool, error)
}

// UploadRepositoryInterface defines the repository interface for report uploads
type UploadRepositoryInterface interface {
	Create(ctx context.Context, u *domain.ReportUpload) error
	GetByID(ctx context.Context, id string) (*domain.ReportUpload, error)
	GetBySHA256(ctx context.Context, sum string) (*domain.ReportUpload, error)
	UpdateStatus(ctx context.Context, id string, status domain.UploadStatus) error
}

// HistoryRepositoryInterface defines the repository interface for project history rows
type HistoryRepositoryInterface interface {
	Create(ctx context.Context, h *domain.ProjectHistory) (bool, error)
	ExistsFor(ctx context.Context, projectCode string, logDate time.Time, uploadID string) (bool, error)
	CountByUpload(ctx context.Context, uploadID string) (int, error)
	DeleteByUpload(ctx context.Context, uploadID string) (int, error)
	ListByProject(ctx context.Context, projectCode string, cursor *pagination.Cursor, limit int) (*HistoryPage, error)
}

// HistoryPage is one page of project history, newest first
type HistoryPage struct {
	Items      []*domain.ProjectHistory
	NextCursor string
	HasMore    bool
}

// ImportJobRepositoryInterface defines the repository interface for queued imports
type ImportJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.ImportJob) error
	GetByID(ctx context.Context, id string) (*domain.ImportJob, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}
