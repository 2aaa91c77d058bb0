package repository

import (
	"context"

	"github.com/cloo-solutions/statusdigest/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner implements service.TxRunner on a pgx pool. Imports run at read
// committed; the unique key on project_history settles concurrent writers.
type TxRunner struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, r.opts, func(tx pgx.Tx) error {
		return fn(txRepos{
			projects: NewProjectRepositoryWithTx(tx),
			uploads:  NewUploadRepositoryWithTx(tx),
			history:  NewHistoryRepositoryWithTx(tx),
		})
	})
}

type txRepos struct {
	projects *ProjectRepository
	uploads  *UploadRepository
	history  *HistoryRepository
}

func (r txRepos) Projects() service.ProjectRepositoryInterface { return r.projects }
func (r txRepos) Uploads() service.UploadRepositoryInterface   { return r.uploads }
func (r txRepos) History() service.HistoryRepositoryInterface  { return r.history }
