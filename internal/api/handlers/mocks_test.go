package handlers

import (
	"context"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockReportSubmitter struct {
	mock.Mock
}

func (m *MockReportSubmitter) Submit(ctx context.Context, input service.SubmitInput) (*domain.ImportJob, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportJob), args.Error(1)
}

type MockRowExtractor struct {
	mock.Mock
}

func (m *MockRowExtractor) Extract(ctx context.Context, blocks []domain.Block, cwLabel string, category domain.Category, useLLM bool) ([]domain.ExtractedRow, error) {
	args := m.Called(ctx, blocks, cwLabel, category, useLLM)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractedRow), args.Error(1)
}

type MockJobGetter struct {
	mock.Mock
}

func (m *MockJobGetter) Get(ctx context.Context, id string) (*domain.ImportJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportJob), args.Error(1)
}

type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) List(ctx context.Context) ([]*domain.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Project), args.Error(1)
}

func (m *MockProjectService) Reload(ctx context.Context) (domain.KnowledgeBase, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.KnowledgeBase), args.Error(1)
}

func (m *MockProjectService) ListHistory(ctx context.Context, input service.ListHistoryInput) (*service.HistoryPage, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.HistoryPage), args.Error(1)
}
