package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/service"
	"github.com/cloo-solutions/statusdigest/internal/telemetry"
	"go.uber.org/zap"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3

	claimBatchSize = 5
)

// ImportJobRepository defines the interface for import job persistence
type ImportJobRepository interface {
	// ClaimPending moves pending jobs to processing and returns them
	ClaimPending(ctx context.Context, limit int) ([]*domain.ImportJob, error)

	UpdateStatus(ctx context.Context, id string, status domain.ImportJobStatus, errMsg string, rowsCreated int) error

	IncrementRetries(ctx context.Context, id string) error
}

// Importer runs the import of a staged upload
type Importer interface {
	ImportUpload(ctx context.Context, uploadID string, useLLM, force bool) (*service.ImportResult, error)
}

// ImportWorker processes queued report imports
type ImportWorker struct {
	repo     ImportJobRepository
	importer Importer
	logger   *zap.Logger
}

// NewImportWorker creates a new ImportWorker instance
func NewImportWorker(repo ImportJobRepository, importer Importer, logger *zap.Logger) *ImportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportWorker{repo: repo, importer: importer, logger: logger}
}

// ProcessJobs implements the JobProcessor interface
func (w *ImportWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	w.logger.Info("processing pending import jobs", zap.Int("count", len(jobs)))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("error processing job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	return nil
}

func (w *ImportWorker) processJob(ctx context.Context, job *domain.ImportJob) error {
	ctx, span := telemetry.StartTransaction(ctx, "ImportWorker.processJob", "queue.process")
	defer span.End()
	span.SetData("job_id", job.ID)
	span.SetData("upload_id", job.UploadID)

	log := w.logger.With(zap.String("job_id", job.ID), zap.String("upload_id", job.UploadID))
	log.Info("processing import job", zap.Bool("llm", job.UseLLM), zap.Bool("force", job.Force))

	result, err := w.importer.ImportUpload(ctx, job.UploadID, job.UseLLM, job.Force)
	if err != nil {
		span.SetError(err)
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.ImportJobStatusCompleted, "", result.RowsCreated); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Info("import job completed", zap.Int("rows_created", result.RowsCreated), zap.Bool("skipped", result.Skipped))
	return nil
}

// permanent reports errors that a retry cannot fix
func permanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidFilename) ||
		errors.Is(err, domain.ErrUnsupportedDocument) ||
		errors.Is(err, domain.ErrUploadNotFound) ||
		errors.Is(err, domain.ErrLLMNotConfigured) ||
		errors.Is(err, domain.ErrStorageNotConfigured)
}

// handleJobFailure handles a failed job with retry logic
func (w *ImportWorker) handleJobFailure(ctx context.Context, job *domain.ImportJob, jobErr error) error {
	log := w.logger.With(zap.String("job_id", job.ID))
	log.Warn("import job failed", zap.Error(jobErr))

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if permanent(jobErr) || job.Retries+1 >= MaxRetries {
		log.Warn("marking import job as failed", zap.Int32("retries", job.Retries+1))
		errMsg := fmt.Sprintf("import failed: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.ImportJobStatusFailed, errMsg, 0); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Info("import job will be retried", zap.Int32("attempt", job.Retries+1), zap.Int("max", MaxRetries))
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.ImportJobStatusPending, errMsg, 0); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
