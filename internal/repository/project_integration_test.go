//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRepository(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewProjectRepository(pool)

	seedProject(ctx, t, repo, "P001", "Divor PV1", "Cluster Madrid", true)
	seedProject(ctx, t, repo, "P002", "Divor PV2", "Cluster Madrid", true)
	seedProject(ctx, t, repo, "P003", "Tordesillas A2", "", true)
	seedProject(ctx, t, repo, "P006", "Retired Site", "", false)

	t.Run("ListActive returns only active entries", func(t *testing.T) {
		entries, err := repo.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		kb := domain.NewKnowledgeBase(entries)
		assert.Equal(t, []string{"Divor PV1", "Divor PV2"}, kb.Members("Cluster Madrid"))
		assert.False(t, kb.HasProject("Retired Site"))
	})

	t.Run("List includes inactive projects", func(t *testing.T) {
		projects, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, projects, 4)
	})

	t.Run("GetByCode", func(t *testing.T) {
		p, err := repo.GetByCode(ctx, "P003")
		require.NoError(t, err)
		assert.Equal(t, "Tordesillas A2", p.Name)
		assert.Empty(t, p.Cluster)
		assert.True(t, p.Active)

		_, err = repo.GetByCode(ctx, "NOPE")
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("FindCodeByName is case-insensitive", func(t *testing.T) {
		code, err := repo.FindCodeByName(ctx, "divor pv2")
		require.NoError(t, err)
		assert.Equal(t, "P002", code)

		_, err = repo.FindCodeByName(ctx, "Unknown Site")
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("Upsert updates an existing code", func(t *testing.T) {
		seedProject(ctx, t, repo, "P003", "Tordesillas A2", "Cluster North", false)

		p, err := repo.GetByCode(ctx, "P003")
		require.NoError(t, err)
		assert.Equal(t, "Cluster North", p.Cluster)
		assert.False(t, p.Active)
	})

	t.Run("CreateIfMissing keeps existing rows", func(t *testing.T) {
		now := time.Now().UTC()
		virtual := domain.NewProject("VIRT_20250212_e869fb71", "Unknown Site", "", now)

		created, err := repo.CreateIfMissing(ctx, virtual)
		require.NoError(t, err)
		assert.True(t, created)

		virtual.Name = "Renamed"
		created, err = repo.CreateIfMissing(ctx, virtual)
		require.NoError(t, err)
		assert.False(t, created)

		p, err := repo.GetByCode(ctx, virtual.Code)
		require.NoError(t, err)
		assert.Equal(t, "Unknown Site", p.Name)
		assert.True(t, p.IsVirtual())
	})
}
