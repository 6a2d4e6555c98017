package repository

import (
	"context"
	"errors"
	"testing"

	"recolecta/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestTranslateErrorTaxonomy(t *testing.T) {
	t.Parallel()

	assert.NoError(t, translate(nil, "request", 1))

	err := translate(gorm.ErrRecordNotFound, "request", 7)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.Contains(t, err.Error(), "request")

	err = translate(gorm.ErrDuplicatedKey, "pickup association", 0)
	assert.True(t, models.HasCode(err, models.CodeConflict))

	err = translate(errors.New(`pq: duplicate key value violates unique constraint "idx_pickup_request"`), "pickup association", 0)
	assert.True(t, models.HasCode(err, models.CodeConflict))

	err = translate(errors.New("UNIQUE constraint failed: pickup_requests.pickup_id"), "pickup association", 0)
	assert.True(t, models.HasCode(err, models.CodeConflict))

	// Anything else is assumed retryable.
	err = translate(errors.New("connection reset by peer"), "request", 0)
	assert.True(t, models.HasCode(err, models.CodeTransient))
}

func TestRepositoryMapsDriverFailureToTransient(t *testing.T) {
	t.Parallel()
	db, mock := setupMockDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM "requests"`).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.GetByID(ctx, 1)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeTransient))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryMapsMissingRowToNotFound(t *testing.T) {
	t.Parallel()
	db, mock := setupMockDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM "requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(ctx, 1)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
