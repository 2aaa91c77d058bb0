package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const importJobColumns = `id, upload_id, use_llm, force, status, retries, error, rows_created, created_at, processed_at`

type ImportJobRepository struct {
	db dbtx
}

func NewImportJobRepository(pool *pgxpool.Pool) *ImportJobRepository {
	return &ImportJobRepository{db: pool}
}

func (r *ImportJobRepository) Create(ctx context.Context, job *domain.ImportJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO import_jobs (id, upload_id, use_llm, force, status, retries, error, rows_created, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.UploadID, job.UseLLM, job.Force, job.Status, job.Retries, nullableString(job.Error),
		job.RowsCreated, job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *ImportJobRepository) GetByID(ctx context.Context, id string) (*domain.ImportJob, error) {
	job, err := scanImportJob(r.db.QueryRow(ctx,
		`SELECT `+importJobColumns+` FROM import_jobs WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrImportJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimPending moves up to limit pending jobs to processing and returns
// them. Concurrent claimers never receive the same job.
func (r *ImportJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.ImportJob, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM import_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE import_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE import_jobs.id = cte.id
		 RETURNING import_jobs.id, import_jobs.upload_id, import_jobs.use_llm, import_jobs.force, import_jobs.status,
		           import_jobs.retries, import_jobs.error, import_jobs.rows_created, import_jobs.created_at,
		           import_jobs.processed_at`,
		domain.ImportJobStatusPending, limit, domain.ImportJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.ImportJob
	for rows.Next() {
		job, err := scanImportJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateStatus records the outcome of a run. Terminal states stamp
// processed_at.
func (r *ImportJobRepository) UpdateStatus(ctx context.Context, id string, status domain.ImportJobStatus, errMsg string, rowsCreated int) error {
	var processedAt *time.Time
	if status == domain.ImportJobStatusCompleted || status == domain.ImportJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE import_jobs SET status = $1, error = $2, rows_created = $3, processed_at = $4 WHERE id = $5`,
		status, nullableString(errMsg), rowsCreated, processedAt, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrImportJobNotFound
	}
	return nil
}

func (r *ImportJobRepository) IncrementRetries(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE import_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrImportJobNotFound
	}
	return nil
}

func scanImportJob(row pgx.Row) (*domain.ImportJob, error) {
	var (
		job    domain.ImportJob
		errMsg pgtype.Text
	)
	err := row.Scan(&job.ID, &job.UploadID, &job.UseLLM, &job.Force, &job.Status, &job.Retries, &errMsg,
		&job.RowsCreated, &job.CreatedAt, &job.ProcessedAt)
	if err != nil {
		return nil, err
	}
	job.Error = errMsg.String
	return &job, nil
}
