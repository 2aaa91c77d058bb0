package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/telemetry"
)

// Stager registers an upload without extracting it
type Stager interface {
	Stage(ctx context.Context, input StageInput) (*domain.ReportUpload, bool, error)
}

// ImportJobService queues uploaded reports for the background import worker
type ImportJobService struct {
	stager  Stager
	jobs    ImportJobRepositoryInterface
	uuidGen UUIDGenerator
	now     func() time.Time
}

// NewImportJobService creates a new ImportJobService
func NewImportJobService(stager Stager, jobs ImportJobRepositoryInterface) *ImportJobService {
	return &ImportJobService{
		stager:  stager,
		jobs:    jobs,
		uuidGen: &DefaultUUIDGenerator{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SubmitInput is an uploaded report to import in the background
type SubmitInput struct {
	Filename  string
	Data      []byte
	UseLLM    bool
	Force     bool
	CreatedBy string
}

// Submit stages the file and enqueues a pending import job for it
func (s *ImportJobService) Submit(ctx context.Context, input SubmitInput) (*domain.ImportJob, error) {
	ctx, span := telemetry.StartSpan(ctx, "ImportJobService.Submit", telemetry.SpanAttributes{
		Operation: "submit",
	})
	defer span.End()

	upload, _, err := s.stager.Stage(ctx, StageInput{
		Filename:  input.Filename,
		Data:      input.Data,
		CreatedBy: input.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	job := domain.NewImportJob(s.uuidGen.NewString(), upload.ID, input.UseLLM, input.Force, s.now())
	if err := domain.ValidateImportJob(job); err != nil {
		return nil, err
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to enqueue import job: %w", err)
	}
	return job, nil
}

// Get returns a job by ID
func (s *ImportJobService) Get(ctx context.Context, id string) (*domain.ImportJob, error) {
	return s.jobs.GetByID(ctx, id)
}
