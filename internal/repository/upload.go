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

const uploadColumns = `id, original_filename, storage_path, mime_type, file_size_bytes, sha256, status,
	cw_label, category, parsed_at, created_by, created_at, updated_at`

type UploadRepository struct {
	db dbtx
}

func NewUploadRepository(pool *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{db: pool}
}

func NewUploadRepositoryWithTx(tx pgx.Tx) *UploadRepository {
	return &UploadRepository{db: tx}
}

func (r *UploadRepository) Create(ctx context.Context, u *domain.ReportUpload) error {
	var category *string
	if u.Category != nil {
		c := string(*u.Category)
		category = &c
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO report_uploads (id, original_filename, storage_path, mime_type, file_size_bytes, sha256, status,
		                             cw_label, category, parsed_at, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		u.ID, u.OriginalFilename, u.StoragePath, u.MimeType, u.FileSizeBytes, u.SHA256, u.Status,
		nullableString(u.CWLabel), category, u.ParsedAt, u.CreatedBy, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrUploadAlreadyExists
	}
	return err
}

func (r *UploadRepository) GetByID(ctx context.Context, id string) (*domain.ReportUpload, error) {
	return r.getOne(ctx, `SELECT `+uploadColumns+` FROM report_uploads WHERE id = $1`, id)
}

// GetBySHA256 finds the upload with the given content hash
func (r *UploadRepository) GetBySHA256(ctx context.Context, sum string) (*domain.ReportUpload, error) {
	return r.getOne(ctx, `SELECT `+uploadColumns+` FROM report_uploads WHERE sha256 = $1`, sum)
}

func (r *UploadRepository) getOne(ctx context.Context, query string, arg string) (*domain.ReportUpload, error) {
	var (
		u        domain.ReportUpload
		cwLabel  pgtype.Text
		category pgtype.Text
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.OriginalFilename, &u.StoragePath, &u.MimeType, &u.FileSizeBytes, &u.SHA256, &u.Status,
		&cwLabel, &category, &u.ParsedAt, &u.CreatedBy, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUploadNotFound
		}
		return nil, err
	}
	u.CWLabel = cwLabel.String
	if category.Valid {
		c := domain.Category(category.String)
		u.Category = &c
	}
	return &u, nil
}

// UpdateStatus moves the upload to status; parsed and failed stamp parsed_at
func (r *UploadRepository) UpdateStatus(ctx context.Context, id string, status domain.UploadStatus) error {
	now := time.Now().UTC()
	var parsedAt *time.Time
	if status == domain.UploadStatusParsed || status == domain.UploadStatusFailed {
		parsedAt = &now
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE report_uploads SET status = $1, parsed_at = COALESCE($2, parsed_at), updated_at = $3 WHERE id = $4`,
		status, parsedAt, now, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUploadNotFound
	}
	return nil
}
