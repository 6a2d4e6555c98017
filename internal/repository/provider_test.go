package repository

import (
	"context"
	"testing"

	"recolecta/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderCreateAndGet(t *testing.T) {
	t.Parallel()
	repo := NewProviderRepository(setupRepoTestDB(t))
	ctx := context.Background()

	p := &models.Provider{Name: "EcoGestion SAS", NIT: "900123456-7", Active: true}
	require.NoError(t, repo.Create(ctx, p))
	require.NotZero(t, p.ID)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "EcoGestion SAS", got.Name)

	_, err = repo.GetByID(ctx, 9999)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestProviderListActiveOnly(t *testing.T) {
	t.Parallel()
	repo := NewProviderRepository(setupRepoTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Provider{Name: "Activa", Active: true}))
	require.NoError(t, repo.Create(ctx, &models.Provider{Name: "Retirada", Active: false}))

	all, err := repo.List(ctx, false, 50, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	// Ordered by name.
	assert.Equal(t, "Activa", all[0].Name)

	active, err := repo.List(ctx, true, 50, 0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Activa", active[0].Name)
}

func TestProviderSetActive(t *testing.T) {
	t.Parallel()
	repo := NewProviderRepository(setupRepoTestDB(t))
	ctx := context.Background()

	p := &models.Provider{Name: "Transitoria", Active: true}
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, repo.SetActive(ctx, p.ID, false))
	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	err = repo.SetActive(ctx, 9999, false)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
