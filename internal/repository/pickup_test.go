package repository

import (
	"context"
	"testing"
	"time"

	"recolecta/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCreatePickup(t *testing.T, repo PickupRepository, status models.PickupStatus) *models.Pickup {
	t.Helper()
	p := &models.Pickup{
		ProviderID:    1,
		ScheduledDate: time.Now().AddDate(0, 0, 3),
		Status:        status,
		CreatedBy:     "admin",
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestTransitionStatusGuard(t *testing.T) {
	t.Parallel()
	repo := NewPickupRepository(setupRepoTestDB(t))
	ctx := context.Background()

	p := mustCreatePickup(t, repo, models.PickupStatusScheduled)
	require.NoError(t, repo.TransitionStatus(ctx, p.ID, models.PickupStatusScheduled, models.PickupStatusCompleted))

	// Terminal state: the guarded update matches zero rows.
	err := repo.TransitionStatus(ctx, p.ID, models.PickupStatusScheduled, models.PickupStatusCancelled)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeConflict))

	// A pickup that does not exist is not found, not a conflict.
	err = repo.TransitionStatus(ctx, 9999, models.PickupStatusScheduled, models.PickupStatusCancelled)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUpdateScheduledFieldsGuard(t *testing.T) {
	t.Parallel()
	repo := NewPickupRepository(setupRepoTestDB(t))
	ctx := context.Background()

	p := mustCreatePickup(t, repo, models.PickupStatusScheduled)
	newDate := time.Now().AddDate(0, 0, 10).Truncate(time.Second)
	require.NoError(t, repo.UpdateScheduledFields(ctx, p.ID, map[string]any{"scheduled_date": newDate}))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, newDate, got.ScheduledDate, time.Second)

	// Once the pickup reaches a terminal state, an edit that read the old
	// status must fail instead of mutating the record.
	require.NoError(t, repo.TransitionStatus(ctx, p.ID, models.PickupStatusScheduled, models.PickupStatusCompleted))
	staleDate := time.Now().AddDate(0, 0, 20)
	err = repo.UpdateScheduledFields(ctx, p.ID, map[string]any{"scheduled_date": staleDate})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeConflict))

	got, err = repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, newDate, got.ScheduledDate, time.Second)

	err = repo.UpdateScheduledFields(ctx, 9999, map[string]any{"scheduled_date": staleDate})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestLinkRequestsAndLinkedIDs(t *testing.T) {
	t.Parallel()
	repo := NewPickupRepository(setupRepoTestDB(t))
	ctx := context.Background()

	p := mustCreatePickup(t, repo, models.PickupStatusScheduled)
	require.NoError(t, repo.LinkRequests(ctx, p.ID, []uint{5, 6, 7}))

	ids, err := repo.LinkedRequestIDs(ctx, p.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{5, 6, 7}, ids)

	// The same request cannot be linked to the same pickup twice.
	err = repo.LinkRequests(ctx, p.ID, []uint{5})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeConflict))
}

func TestGetByIDPreloadsAttachments(t *testing.T) {
	t.Parallel()
	db := setupRepoTestDB(t)
	repo := NewPickupRepository(db)
	ctx := context.Background()

	provider := &models.Provider{Name: "Residuos del Norte", Active: true}
	require.NoError(t, db.Create(provider).Error)

	p := &models.Pickup{
		ProviderID:    provider.ID,
		ScheduledDate: time.Now(),
		Status:        models.PickupStatusScheduled,
		CreatedBy:     "admin",
	}
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, repo.AddResidues(ctx, []models.CollectedResidue{
		{PickupID: p.ID, Category: "RAEE", MeasureType: "kg", RealAmount: 12},
	}))
	require.NoError(t, repo.AddDocuments(ctx, []models.PickupDocument{
		{PickupID: p.ID, Kind: models.DocumentKindCollectionCert, Ref: "docs/cr.pdf"},
	}))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Provider)
	assert.Equal(t, "Residuos del Norte", got.Provider.Name)
	assert.Len(t, got.Residues, 1)
	assert.Len(t, got.Documents, 1)
}

func TestListCollectedReturnsAllResidues(t *testing.T) {
	t.Parallel()
	repo := NewPickupRepository(setupRepoTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.AddResidues(ctx, []models.CollectedResidue{
		{PickupID: 1, Category: "RAEE", MeasureType: "kg", RealAmount: 12},
		{PickupID: 2, Category: "Aceites usados", MeasureType: "l", RealAmount: 500},
	}))

	residues, err := repo.ListCollected(ctx)
	require.NoError(t, err)
	assert.Len(t, residues, 2)

	// Empty slices are no-ops, not errors.
	require.NoError(t, repo.AddResidues(ctx, nil))
	require.NoError(t, repo.AddDocuments(ctx, nil))
}
