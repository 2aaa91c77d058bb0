//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(context.Background()) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)
	return pool
}

func seedProject(ctx context.Context, t *testing.T, repo *ProjectRepository, code, name, cluster string, active bool) *domain.Project {
	t.Helper()
	p := domain.NewProject(code, name, cluster, time.Now().UTC().Truncate(time.Microsecond))
	p.Active = active
	require.NoError(t, repo.Upsert(ctx, p))
	return p
}

func seedUpload(ctx context.Context, t *testing.T, repo *UploadRepository, sha string) *domain.ReportUpload {
	t.Helper()
	category := domain.CategoryDevelopment
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &domain.ReportUpload{
		ID:               uuid.NewString(),
		OriginalFilename: "2025_CW07_DEV.docx",
		StoragePath:      sha[:2] + "/" + sha + ".docx",
		MimeType:         "application/octet-stream",
		FileSizeBytes:    42,
		SHA256:           sha,
		Status:           domain.UploadStatusReceived,
		CWLabel:          "CW07",
		Category:         &category,
		CreatedBy:        "tester",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, repo.Create(ctx, u))
	return u
}

func sha(c byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = c
	}
	return string(b)
}
