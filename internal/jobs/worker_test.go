package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockImportJobRepository is a mock implementation of ImportJobRepository
type MockImportJobRepository struct {
	mock.Mock
}

func (m *MockImportJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.ImportJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ImportJob), args.Error(1)
}

func (m *MockImportJobRepository) UpdateStatus(ctx context.Context, id string, status domain.ImportJobStatus, errMsg string, rowsCreated int) error {
	args := m.Called(ctx, id, status, errMsg, rowsCreated)
	return args.Error(0)
}

func (m *MockImportJobRepository) IncrementRetries(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockImporter is a mock implementation of Importer
type MockImporter struct {
	mock.Mock
}

func (m *MockImporter) ImportUpload(ctx context.Context, uploadID string, useLLM, force bool) (*service.ImportResult, error) {
	args := m.Called(ctx, uploadID, useLLM, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportResult), args.Error(1)
}

func nonEmpty() interface{} {
	return mock.MatchedBy(func(msg string) bool { return msg != "" })
}

func runWorker(ctx context.Context, w *Worker) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Start(ctx)
	}()
	return &wg
}

func TestWorker_RunsImmediatelyThenStops(t *testing.T) {
	processed := make(chan struct{}, 8)
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil).Run(func(mock.Arguments) {
		processed <- struct{}{}
	})

	worker := NewWorker("test", mockProcessor, time.Hour, nil)
	wg := runWorker(context.Background(), worker)

	select {
	case <-processed:
	case <-time.After(2 * time.Second):
		t.Fatal("first batch did not run at start")
	}

	worker.Stop()
	worker.Stop()
	wg.Wait()
	mockProcessor.AssertNumberOfCalls(t, "ProcessJobs", 1)
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("transient"))

	worker := NewWorker("test", mockProcessor, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	wg := runWorker(ctx, worker)

	time.Sleep(70 * time.Millisecond)
	cancel()
	wg.Wait()

	assert.GreaterOrEqual(t, len(mockProcessor.Calls), 2)
}

type panickingProcessor struct {
	mu    sync.Mutex
	calls int
}

func (p *panickingProcessor) ProcessJobs(context.Context) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	panic("boom")
}

func TestWorker_SurvivesPanic(t *testing.T) {
	p := &panickingProcessor{}
	worker := NewWorker("test", p, 10*time.Millisecond, nil)
	wg := runWorker(context.Background(), worker)

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.calls >= 2
	}, 2*time.Second, 5*time.Millisecond)

	worker.Stop()
	wg.Wait()
}

func TestImportWorker_ProcessJobs_NoPendingJobs(t *testing.T) {
	mockRepo := new(MockImportJobRepository)
	mockImporter := new(MockImporter)

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.ImportJob{}, nil)

	worker := NewImportWorker(mockRepo, mockImporter, nil)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockImporter.AssertNotCalled(t, "ImportUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestImportWorker_ProcessJobs_Success(t *testing.T) {
	mockRepo := new(MockImportJobRepository)
	mockImporter := new(MockImporter)

	job := &domain.ImportJob{ID: "job-1", UploadID: "upload-1", UseLLM: true, Status: domain.ImportJobStatusProcessing}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.ImportJob{job}, nil)
	mockImporter.On("ImportUpload", mock.Anything, "upload-1", true, false).Return(&service.ImportResult{RowsCreated: 4}, nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.ImportJobStatusCompleted, "", 4).Return(nil)

	worker := NewImportWorker(mockRepo, mockImporter, nil)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockImporter.AssertExpectations(t)
}

func TestImportWorker_ProcessJobs_FailureWithRetry(t *testing.T) {
	mockRepo := new(MockImportJobRepository)
	mockImporter := new(MockImporter)

	job := &domain.ImportJob{ID: "job-1", UploadID: "upload-1", Retries: 0}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.ImportJob{job}, nil)
	mockImporter.On("ImportUpload", mock.Anything, "upload-1", false, false).Return(nil, errors.New("connection reset"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.ImportJobStatusPending, nonEmpty(), 0).Return(nil)

	worker := NewImportWorker(mockRepo, mockImporter, nil)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockImporter.AssertExpectations(t)
}

func TestImportWorker_ProcessJobs_MaxRetriesExceeded(t *testing.T) {
	mockRepo := new(MockImportJobRepository)
	mockImporter := new(MockImporter)

	job := &domain.ImportJob{ID: "job-1", UploadID: "upload-1", Retries: 2}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.ImportJob{job}, nil)
	mockImporter.On("ImportUpload", mock.Anything, "upload-1", false, false).Return(nil, errors.New("connection reset"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.ImportJobStatusFailed, nonEmpty(), 0).Return(nil)

	worker := NewImportWorker(mockRepo, mockImporter, nil)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestImportWorker_ProcessJobs_PermanentErrorFailsImmediately(t *testing.T) {
	mockRepo := new(MockImportJobRepository)
	mockImporter := new(MockImporter)

	job := &domain.ImportJob{ID: "job-1", UploadID: "upload-1", UseLLM: true}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.ImportJob{job}, nil)
	mockImporter.On("ImportUpload", mock.Anything, "upload-1", true, false).Return(nil, domain.ErrLLMNotConfigured)
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.ImportJobStatusFailed, nonEmpty(), 0).Return(nil)

	worker := NewImportWorker(mockRepo, mockImporter, nil)
	require.NoError(t, worker.ProcessJobs(context.Background()))
	mockRepo.AssertExpectations(t)
}

func TestImportWorker_ProcessJobs_MultipleJobs(t *testing.T) {
	mockRepo := new(MockImportJobRepository)
	mockImporter := new(MockImporter)

	jobs := []*domain.ImportJob{
		{ID: "job-1", UploadID: "upload-1"},
		{ID: "job-2", UploadID: "upload-2", Force: true},
	}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return(jobs, nil)
	mockImporter.On("ImportUpload", mock.Anything, "upload-1", false, false).Return(&service.ImportResult{RowsCreated: 1}, nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.ImportJobStatusCompleted, "", 1).Return(nil)
	mockImporter.On("ImportUpload", mock.Anything, "upload-2", false, true).Return(&service.ImportResult{Skipped: true}, nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-2", domain.ImportJobStatusCompleted, "", 0).Return(nil)

	worker := NewImportWorker(mockRepo, mockImporter, nil)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockImporter.AssertExpectations(t)
}

func TestImportWorker_ProcessJobs_RepositoryError(t *testing.T) {
	mockRepo := new(MockImportJobRepository)

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return(nil, errors.New("database error"))

	worker := NewImportWorker(mockRepo, new(MockImporter), nil)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch pending jobs")
}

func TestTmpCleaner(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.docx")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	cleaner := NewTmpCleaner(dir, time.Hour, nil)
	require.NoError(t, cleaner.ProcessJobs(context.Background()))
	assert.NoFileExists(t, stale)
}
