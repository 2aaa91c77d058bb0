package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/pagination"
	"github.com/cloo-solutions/statusdigest/internal/telemetry"
	"go.uber.org/zap"
)

// KnowledgeLoader returns the cached knowledge base snapshot
type KnowledgeLoader interface {
	Load(ctx context.Context) (domain.KnowledgeBase, error)
	ForceReload(ctx context.Context) (domain.KnowledgeBase, error)
}

// ProjectService manages the project registry and its history
type ProjectService struct {
	projects ProjectRepositoryInterface
	history  HistoryRepositoryInterface
	kb       KnowledgeLoader
	logger   *zap.Logger
}

// NewProjectService creates a new ProjectService. kb may be nil when no
// cache needs refreshing.
func NewProjectService(projects ProjectRepositoryInterface, history HistoryRepositoryInterface, kb KnowledgeLoader, logger *zap.Logger) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{projects: projects, history: history, kb: kb, logger: logger}
}

// List returns every registered project, active or not
func (s *ProjectService) List(ctx context.Context) ([]*domain.Project, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProjectService.List", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	return s.projects.List(ctx)
}

// Get returns one project by code
func (s *ProjectService) Get(ctx context.Context, code string) (*domain.Project, error) {
	return s.projects.GetByCode(ctx, code)
}

// Reload refreshes the knowledge base cache from the registry
func (s *ProjectService) Reload(ctx context.Context) (domain.KnowledgeBase, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProjectService.Reload", telemetry.SpanAttributes{
		Operation: "reload",
	})
	defer span.End()

	if s.kb == nil {
		return domain.KnowledgeBase{}, domain.ErrDatabaseNotConfigured
	}
	kb, err := s.kb.ForceReload(ctx)
	if err != nil {
		span.SetError(err)
		return domain.KnowledgeBase{}, err
	}
	return kb, nil
}

// SeedResult counts the outcome of a registry seed
type SeedResult struct {
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
}

// Seed upserts registry entries, typically read from the project CSV.
// Entries without a code or name are skipped.
func (s *ProjectService) Seed(ctx context.Context, entries []domain.KnowledgeEntry, createdBy string) (*SeedResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProjectService.Seed", telemetry.SpanAttributes{
		Operation: "seed",
	})
	defer span.End()

	result := &SeedResult{}
	for _, e := range entries {
		code := strings.TrimSpace(e.Code)
		name := strings.TrimSpace(e.Name)
		if code == "" || name == "" {
			result.Skipped++
			continue
		}
		p := &domain.Project{
			Code:      code,
			Name:      name,
			Cluster:   strings.TrimSpace(e.Cluster),
			Active:    e.Active,
			CreatedBy: createdBy,
		}
		if err := s.projects.Upsert(ctx, p); err != nil {
			span.SetError(err)
			return result, fmt.Errorf("failed to upsert project %s: %w", code, err)
		}
		result.Upserted++
	}

	if s.kb != nil && result.Upserted > 0 {
		if _, err := s.kb.ForceReload(ctx); err != nil {
			s.logger.Warn("failed to reload knowledge base after seeding", zap.Error(err))
		}
	}
	s.logger.Info("project registry seeded", zap.Int("upserted", result.Upserted), zap.Int("skipped", result.Skipped))
	return result, nil
}

// ListHistoryInput selects a page of a project's history
type ListHistoryInput struct {
	ProjectCode string
	Cursor      string
	Limit       int
}

// ListHistory pages a project's history rows, newest first
func (s *ProjectService) ListHistory(ctx context.Context, input ListHistoryInput) (*HistoryPage, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProjectService.ListHistory", telemetry.SpanAttributes{
		ProjectCode: input.ProjectCode,
		Operation:   "list_history",
	})
	defer span.End()

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, err
	}

	if _, err := s.projects.GetByCode(ctx, input.ProjectCode); err != nil {
		return nil, err
	}

	return s.history.ListByProject(ctx, input.ProjectCode, cursor, pagination.ClampLimit(input.Limit))
}
