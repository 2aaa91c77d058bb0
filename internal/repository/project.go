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

const projectColumns = `project_code, project_name, portfolio_cluster, status, created_by, created_at, updated_at`

// ProjectRepository reads and writes the project registry. It doubles as
// the primary knowledge-base source.
type ProjectRepository struct {
	db dbtx
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: pool}
}

func NewProjectRepositoryWithTx(tx pgx.Tx) *ProjectRepository {
	return &ProjectRepository{db: tx}
}

// ListActive returns the entries with status 1, in code order
func (r *ProjectRepository) ListActive(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT project_code, project_name, portfolio_cluster, status
		 FROM projects
		 WHERE status = 1
		 ORDER BY project_code`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.KnowledgeEntry
	for rows.Next() {
		var (
			e       domain.KnowledgeEntry
			cluster pgtype.Text
			status  int
		)
		if err := rows.Scan(&e.Code, &e.Name, &cluster, &status); err != nil {
			return nil, err
		}
		e.Cluster = cluster.String
		e.Active = status == 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// List returns every project, active or not
func (r *ProjectRepository) List(ctx context.Context) ([]*domain.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY project_code`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) GetByCode(ctx context.Context, code string) (*domain.Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE project_code = $1`,
		code,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// FindCodeByName resolves a project name case-insensitively, preferring
// active projects
func (r *ProjectRepository) FindCodeByName(ctx context.Context, name string) (string, error) {
	var code string
	err := r.db.QueryRow(ctx,
		`SELECT project_code FROM projects
		 WHERE LOWER(project_name) = LOWER($1)
		 ORDER BY status DESC, project_code
		 LIMIT 1`,
		name,
	).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrProjectNotFound
		}
		return "", err
	}
	return code, nil
}

// Upsert inserts the project or updates name, cluster and status of an
// existing code
func (r *ProjectRepository) Upsert(ctx context.Context, p *domain.Project) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	createdBy := p.CreatedBy
	if createdBy == "" {
		createdBy = "system"
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO projects (project_code, project_name, portfolio_cluster, status, created_by, created_at, updated_by, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $5, $7)
		 ON CONFLICT (project_code) DO UPDATE
		 SET project_name = EXCLUDED.project_name,
		     portfolio_cluster = EXCLUDED.portfolio_cluster,
		     status = EXCLUDED.status,
		     updated_by = EXCLUDED.updated_by,
		     updated_at = EXCLUDED.updated_at`,
		p.Code, p.Name, nullableString(p.Cluster), statusOf(p.Active), createdBy, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// CreateIfMissing inserts the project unless its code already exists. It
// reports whether a row was written.
func (r *ProjectRepository) CreateIfMissing(ctx context.Context, p *domain.Project) (bool, error) {
	createdBy := p.CreatedBy
	if createdBy == "" {
		createdBy = "system"
	}
	tag, err := r.db.Exec(ctx,
		`INSERT INTO projects (project_code, project_name, portfolio_cluster, status, created_by, created_at, updated_by, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $5, $6)
		 ON CONFLICT (project_code) DO NOTHING`,
		p.Code, p.Name, nullableString(p.Cluster), statusOf(p.Active), createdBy, p.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func statusOf(active bool) int {
	if active {
		return 1
	}
	return 0
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		p       domain.Project
		cluster pgtype.Text
		status  int
	)
	if err := row.Scan(&p.Code, &p.Name, &cluster, &status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Cluster = cluster.String
	p.Active = status == 1
	return &p, nil
}
