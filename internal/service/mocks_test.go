package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// MockProjectRepository is a mock implementation of ProjectRepositoryInterface
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) ListActive(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.KnowledgeEntry), args.Error(1)
}

func (m *MockProjectRepository) List(ctx context.Context) ([]*domain.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) GetByCode(ctx context.Context, code string) (*domain.Project, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) FindCodeByName(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockProjectRepository) Upsert(ctx context.Context, p *domain.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProjectRepository) CreateIfMissing(ctx context.Context, p *domain.Project) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

// MockUploadRepository is a mock implementation of UploadRepositoryInterface
type MockUploadRepository struct {
	mock.Mock
}

func (m *MockUploadRepository) Create(ctx context.Context, u *domain.ReportUpload) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUploadRepository) GetByID(ctx context.Context, id string) (*domain.ReportUpload, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportUpload), args.Error(1)
}

func (m *MockUploadRepository) GetBySHA256(ctx context.Context, sum string) (*domain.ReportUpload, error) {
	args := m.Called(ctx, sum)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportUpload), args.Error(1)
}

func (m *MockUploadRepository) UpdateStatus(ctx context.Context, id string, status domain.UploadStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockHistoryRepository is a mock implementation of HistoryRepositoryInterface
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Create(ctx context.Context, h *domain.ProjectHistory) (bool, error) {
	args := m.Called(ctx, h)
	return args.Bool(0), args.Error(1)
}

func (m *MockHistoryRepository) ExistsFor(ctx context.Context, projectCode string, logDate time.Time, uploadID string) (bool, error) {
	args := m.Called(ctx, projectCode, logDate, uploadID)
	return args.Bool(0), args.Error(1)
}

func (m *MockHistoryRepository) CountByUpload(ctx context.Context, uploadID string) (int, error) {
	args := m.Called(ctx, uploadID)
	return args.Int(0), args.Error(1)
}

func (m *MockHistoryRepository) DeleteByUpload(ctx context.Context, uploadID string) (int, error) {
	args := m.Called(ctx, uploadID)
	return args.Int(0), args.Error(1)
}

func (m *MockHistoryRepository) ListByProject(ctx context.Context, projectCode string, cursor *pagination.Cursor, limit int) (*HistoryPage, error) {
	args := m.Called(ctx, projectCode, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*HistoryPage), args.Error(1)
}

// MockImportJobRepository is a mock implementation of ImportJobRepositoryInterface
type MockImportJobRepository struct {
	mock.Mock
}

func (m *MockImportJobRepository) Create(ctx context.Context, job *domain.ImportJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockImportJobRepository) GetByID(ctx context.Context, id string) (*domain.ImportJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportJob), args.Error(1)
}

// MockExtractor is a mock implementation of Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, blocks []domain.Block, cwLabel string, category domain.Category, useLLM bool) ([]domain.ExtractedRow, error) {
	args := m.Called(ctx, blocks, cwLabel, category, useLLM)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractedRow), args.Error(1)
}

// MockDocumentStore is a mock implementation of DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, body, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockKnowledgeLoader is a mock implementation of KnowledgeLoader
type MockKnowledgeLoader struct {
	mock.Mock
}

func (m *MockKnowledgeLoader) Load(ctx context.Context) (domain.KnowledgeBase, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.KnowledgeBase), args.Error(1)
}

func (m *MockKnowledgeLoader) ForceReload(ctx context.Context) (domain.KnowledgeBase, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.KnowledgeBase), args.Error(1)
}

// MockUUIDGenerator hands out the given IDs in order
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		uuid := m.uuids[m.callCount]
		m.callCount++
		return uuid
	}
	return "default-uuid"
}
