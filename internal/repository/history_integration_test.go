//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/pagination"
	"github.com/cloo-solutions/statusdigest/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHistory(code, uploadID string, logDate time.Time, createdAt time.Time) *domain.ProjectHistory {
	category := domain.CategoryEPC
	return &domain.ProjectHistory{
		ID:             uuid.NewString(),
		ProjectCode:    code,
		ProjectName:    "Divor PV1",
		Category:       &category,
		EntryType:      domain.EntryTypeReport,
		LogDate:        logDate,
		CWLabel:        "CW07",
		Title:          domain.StringPtr("Divor PV1 - CW07"),
		Summary:        "Energized.",
		SourceText:     domain.StringPtr("Energized."),
		SourceUploadID: uploadID,
		CreatedBy:      "tester",
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func TestHistoryRepository(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	projects := NewProjectRepository(pool)
	uploads := NewUploadRepository(pool)
	repo := NewHistoryRepository(pool)

	seedProject(ctx, t, projects, "P001", "Divor PV1", "", true)
	upload := seedUpload(ctx, t, uploads, sha('c'))
	logDate := time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC)
	base := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("Create skips duplicates", func(t *testing.T) {
		created, err := repo.Create(ctx, newHistory("P001", upload.ID, logDate, base))
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.Create(ctx, newHistory("P001", upload.ID, logDate, base))
		require.NoError(t, err)
		assert.False(t, created)

		exists, err := repo.ExistsFor(ctx, "P001", logDate, upload.ID)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsFor(ctx, "P001", logDate.AddDate(0, 0, 7), upload.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		n, err := repo.CountByUpload(ctx, upload.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("ListByProject pages newest first", func(t *testing.T) {
		for i := 1; i <= 4; i++ {
			h := newHistory("P001", upload.ID, logDate.AddDate(0, 0, 7*i), base.Add(time.Duration(i)*time.Second))
			h.Summary = fmt.Sprintf("week +%d", i)
			_, err := repo.Create(ctx, h)
			require.NoError(t, err)
		}

		page, err := repo.ListByProject(ctx, "P001", nil, 2)
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.True(t, page.HasMore)
		assert.Equal(t, "week +4", page.Items[0].Summary)
		assert.Equal(t, upload.ID, page.Items[0].SourceUploadID)
		assert.Equal(t, domain.CategoryEPC, *page.Items[0].Category)

		cursor, err := pagination.DecodeCursor(page.NextCursor)
		require.NoError(t, err)
		page, err = repo.ListByProject(ctx, "P001", cursor, 2)
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "week +2", page.Items[0].Summary)

		cursor, err = pagination.DecodeCursor(page.NextCursor)
		require.NoError(t, err)
		page, err = repo.ListByProject(ctx, "P001", cursor, 2)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.False(t, page.HasMore)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("DeleteByUpload", func(t *testing.T) {
		deleted, err := repo.DeleteByUpload(ctx, upload.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, deleted)

		n, err := repo.CountByUpload(ctx, upload.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestTxRunner_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	runner := NewTxRunner(pool)
	projects := NewProjectRepository(pool)

	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		created, err := repos.Projects().CreateIfMissing(ctx, domain.NewProject("P009", "Temp", "", time.Now().UTC()))
		require.NoError(t, err)
		require.True(t, created)
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	_, err = projects.GetByCode(ctx, "P009")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	err = runner.WithTx(ctx, func(repos service.TxRepositories) error {
		_, err := repos.Projects().CreateIfMissing(ctx, domain.NewProject("P009", "Temp", "", time.Now().UTC()))
		return err
	})
	require.NoError(t, err)

	_, err = projects.GetByCode(ctx, "P009")
	assert.NoError(t, err)
}
