package seed

import (
	"testing"

	"recolecta/internal/models"
	"recolecta/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Provider{},
		&models.Request{},
		&models.Pickup{},
		&models.PickupRequest{},
		&models.PickupDocument{},
		&models.CollectedResidue{},
	))
	return db
}

func newTestSeeder(t *testing.T, db *gorm.DB) *Seeder {
	t.Helper()
	cfg, err := rules.Load("")
	require.NoError(t, err)
	ruleSet, err := cfg.Select("labels")
	require.NoError(t, err)
	return NewSeeder(db, ruleSet)
}

func TestSeederProviders(t *testing.T) {
	db := setupSeedTestDB(t)
	s := newTestSeeder(t, db)

	providers, err := s.Providers(3)
	require.NoError(t, err)
	require.Len(t, providers, 3)

	for _, p := range providers {
		assert.NotZero(t, p.ID)
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.NIT)
		assert.True(t, p.Active)
	}

	var count int64
	require.NoError(t, db.Model(&models.Provider{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestSeederRequestsRespectCategoryRules(t *testing.T) {
	db := setupSeedTestDB(t)
	s := newTestSeeder(t, db)

	requests, err := s.Requests(25, 30)
	require.NoError(t, err)
	require.Len(t, requests, 25)

	for _, r := range requests {
		assert.Equal(t, models.RequestStatusPending, r.Status)
		assert.Greater(t, r.EstimatedAmount, 0.0)
		// Every generated category combination must pass the same
		// compatibility rules the API enforces.
		assert.NoError(t, s.ruleSet.Validate(r.Categories))
	}
}

func TestSeederDemoProducesConsistentState(t *testing.T) {
	db := setupSeedTestDB(t)
	s := newTestSeeder(t, db)

	require.NoError(t, s.Demo())

	// Scheduled requests must point at a pickup.
	var scheduled []models.Request
	require.NoError(t, db.Where("status = ?", models.RequestStatusScheduled).Find(&scheduled).Error)
	for _, r := range scheduled {
		assert.NotNil(t, r.PickupID)
	}

	// Completed pickups carry residues plus both certificates.
	var completed []models.Pickup
	require.NoError(t, db.Where("status = ?", models.PickupStatusCompleted).Find(&completed).Error)
	for _, p := range completed {
		var residues int64
		require.NoError(t, db.Model(&models.CollectedResidue{}).Where("pickup_id = ?", p.ID).Count(&residues).Error)
		assert.Positive(t, residues)

		var kinds []string
		require.NoError(t, db.Model(&models.PickupDocument{}).
			Where("pickup_id = ?", p.ID).Pluck("kind", &kinds).Error)
		assert.Contains(t, kinds, models.DocumentKindCollectionCert)
		assert.Contains(t, kinds, models.DocumentKindDisposalCert)
	}
}

func TestSeederClearAll(t *testing.T) {
	db := setupSeedTestDB(t)
	s := newTestSeeder(t, db)

	require.NoError(t, s.Demo())
	require.NoError(t, s.ClearAll())

	tables := []any{
		&models.Provider{},
		&models.Request{},
		&models.Pickup{},
		&models.PickupRequest{},
		&models.PickupDocument{},
		&models.CollectedResidue{},
	}
	for _, table := range tables {
		var count int64
		require.NoError(t, db.Model(table).Count(&count).Error)
		assert.Zero(t, count)
	}
}
