//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadRepository(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewUploadRepository(pool)

	u := seedUpload(ctx, t, repo, sha('a'))

	t.Run("GetByID and GetBySHA256", func(t *testing.T) {
		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.SHA256, got.SHA256)
		assert.Equal(t, "CW07", got.CWLabel)
		require.NotNil(t, got.Category)
		assert.Equal(t, domain.CategoryDevelopment, *got.Category)
		assert.Nil(t, got.ParsedAt)

		got, err = repo.GetBySHA256(ctx, sha('a'))
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = repo.GetBySHA256(ctx, sha('b'))
		assert.ErrorIs(t, err, domain.ErrUploadNotFound)
		_, err = repo.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrUploadNotFound)
	})

	t.Run("duplicate hash is rejected", func(t *testing.T) {
		dup := *u
		dup.ID = uuid.NewString()
		err := repo.Create(ctx, &dup)
		assert.ErrorIs(t, err, domain.ErrUploadAlreadyExists)
	})

	t.Run("UpdateStatus stamps parsed_at", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, u.ID, domain.UploadStatusParsed))

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.UploadStatusParsed, got.Status)
		assert.NotNil(t, got.ParsedAt)
	})
}
