package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/pagination"
	"github.com/cloo-solutions/statusdigest/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const historyColumns = `id, project_code, project_name, category, entry_type, log_date, cw_label, title, summary,
	next_actions, owner, source_text, attachment_url, source_upload_id, created_by, created_at, updated_at`

type HistoryRepository struct {
	db dbtx
}

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: pool}
}

func NewHistoryRepositoryWithTx(tx pgx.Tx) *HistoryRepository {
	return &HistoryRepository{db: tx}
}

// Create inserts h unless a row for the same project, log date and upload
// exists. It reports whether a row was written.
func (r *HistoryRepository) Create(ctx context.Context, h *domain.ProjectHistory) (bool, error) {
	var category *string
	if h.Category != nil {
		c := string(*h.Category)
		category = &c
	}
	tag, err := r.db.Exec(ctx,
		`INSERT INTO project_history (id, project_code, project_name, category, entry_type, log_date, cw_label, title,
		                              summary, next_actions, owner, source_text, attachment_url, source_upload_id,
		                              created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT ON CONSTRAINT uq_history_project_log_date_upload DO NOTHING`,
		h.ID, h.ProjectCode, nullableString(h.ProjectName), category, h.EntryType, h.LogDate, nullableString(h.CWLabel),
		h.Title, h.Summary, h.NextActions, h.Owner, h.SourceText, h.AttachmentURL, nullableString(h.SourceUploadID),
		h.CreatedBy, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ExistsFor reports whether the upload already produced a row for the
// project on logDate
func (r *HistoryRepository) ExistsFor(ctx context.Context, projectCode string, logDate time.Time, uploadID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			 SELECT 1 FROM project_history
			 WHERE project_code = $1 AND log_date = $2 AND source_upload_id = $3
		 )`,
		projectCode, logDate, uploadID,
	).Scan(&exists)
	return exists, err
}

// CountByUpload counts the rows an upload produced
func (r *HistoryRepository) CountByUpload(ctx context.Context, uploadID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM project_history WHERE source_upload_id = $1`,
		uploadID,
	).Scan(&n)
	return n, err
}

// DeleteByUpload removes the rows of a previous import of the upload
func (r *HistoryRepository) DeleteByUpload(ctx context.Context, uploadID string) (int, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM project_history WHERE source_upload_id = $1`,
		uploadID,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ListByProject pages a project's history newest first
func (r *HistoryRepository) ListByProject(ctx context.Context, projectCode string, cursor *pagination.Cursor, limit int) (*service.HistoryPage, error) {
	limit = pagination.ClampLimit(limit)

	var (
		rows pgx.Rows
		err  error
	)
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+historyColumns+`
			 FROM project_history
			 WHERE project_code = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			projectCode, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+historyColumns+`
			 FROM project_history
			 WHERE project_code = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			projectCode, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.ProjectHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, nextCursor, hasMore := pagination.Trim(items, limit, func(h *domain.ProjectHistory) (string, time.Time) {
		return h.ID, h.CreatedAt
	})

	return &service.HistoryPage{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func scanHistory(row pgx.Row) (*domain.ProjectHistory, error) {
	var (
		h           domain.ProjectHistory
		projectName pgtype.Text
		category    pgtype.Text
		cwLabel     pgtype.Text
		uploadID    *string
	)
	err := row.Scan(
		&h.ID, &h.ProjectCode, &projectName, &category, &h.EntryType, &h.LogDate, &cwLabel, &h.Title, &h.Summary,
		&h.NextActions, &h.Owner, &h.SourceText, &h.AttachmentURL, &uploadID, &h.CreatedBy, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	h.ProjectName = projectName.String
	h.CWLabel = cwLabel.String
	if category.Valid {
		c := domain.Category(category.String)
		h.Category = &c
	}
	if uploadID != nil {
		h.SourceUploadID = *uploadID
	}
	return &h, nil
}
