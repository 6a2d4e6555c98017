package repository

import (
	"context"
	"testing"

	"recolecta/internal/cache"
	"recolecta/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Not parallel: the cache client is package-level state shared across repos.
func TestGetByIDPopulatesAndInvalidatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db := setupRepoTestDB(t)
	requests := NewRequestRepository(db)
	pickups := NewPickupRepository(db)
	ctx := context.Background()

	r := mustCreateRequest(t, requests, models.RequestStatusPending)
	_, err := requests.GetByID(ctx, r.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.RequestKey(r.ID)))

	// The cached copy serves the next read even after an out-of-band write.
	require.NoError(t, db.Model(&models.Request{}).Where("id = ?", r.ID).
		Update("details", "direct write").Error)
	got, err := requests.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Details)

	// A guarded write drops the entry so the change becomes visible.
	require.NoError(t, requests.UpdatePendingFields(ctx, r.ID, map[string]any{"details": "visible"}))
	assert.False(t, mr.Exists(cache.RequestKey(r.ID)))

	got, err = requests.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "visible", got.Details)

	p := mustCreatePickup(t, pickups, models.PickupStatusScheduled)
	_, err = pickups.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.PickupKey(p.ID)))

	require.NoError(t, pickups.TransitionStatus(ctx, p.ID, models.PickupStatusScheduled, models.PickupStatusCompleted))
	assert.False(t, mr.Exists(cache.PickupKey(p.ID)))
}

// Bulk transitions touch rows the per-id invalidators never see, so the
// repository collects the scheduled ids up front and drops each entry.
func TestBulkTransitionsInvalidateEachRequest(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db := setupRepoTestDB(t)
	requests := NewRequestRepository(db)
	ctx := context.Background()

	r1 := mustCreateRequest(t, requests, models.RequestStatusPending)
	r2 := mustCreateRequest(t, requests, models.RequestStatusPending)
	require.NoError(t, requests.ClaimForPickup(ctx, []uint{r1.ID, r2.ID}, 40))

	_, err := requests.GetByID(ctx, r1.ID)
	require.NoError(t, err)
	_, err = requests.GetByID(ctx, r2.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.RequestKey(r1.ID)))
	require.True(t, mr.Exists(cache.RequestKey(r2.ID)))

	completed, err := requests.CompleteScheduled(ctx, 40)
	require.NoError(t, err)
	require.Equal(t, int64(2), completed)

	assert.False(t, mr.Exists(cache.RequestKey(r1.ID)))
	assert.False(t, mr.Exists(cache.RequestKey(r2.ID)))

	got, err := requests.GetByID(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, got.Status)
}
