// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"recolecta/internal/cache"
	"recolecta/internal/models"
	"recolecta/internal/observability"

	"gorm.io/gorm"
)

// RequestRepository defines the interface for collection request data operations.
type RequestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id uint) (*models.Request, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Request, error)
	List(ctx context.Context, limit, offset int) ([]*models.Request, error)
	ListByStatus(ctx context.Context, status models.RequestStatus, limit, offset int) ([]*models.Request, error)
	CountByStatus(ctx context.Context, status models.RequestStatus) (int64, error)
	ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Request, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	UpdatePendingFields(ctx context.Context, id uint, fields map[string]any) error
	CancelPending(ctx context.Context, id uint) error
	ClaimForPickup(ctx context.Context, ids []uint, pickupID uint) error
	ReleaseFromPickup(ctx context.Context, pickupID uint) (int64, error)
	CompleteScheduled(ctx context.Context, pickupID uint) (int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, request *models.Request) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return translate(err, "request", 0)
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id uint) (*models.Request, error) {
	var request models.Request
	err := cache.CacheAside(ctx, cache.RequestKey(id), &request, cache.RequestTTL, func() error {
		return r.db.WithContext(ctx).First(&request, id).Error
	})
	if err != nil {
		return nil, translate(err, "request", id)
	}
	return &request, nil
}

func (r *requestRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Request, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var requests []*models.Request
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&requests).Error; err != nil {
		return nil, translate(err, "request", 0)
	}
	return requests, nil
}

func (r *requestRepository) List(ctx context.Context, limit, offset int) ([]*models.Request, error) {
	var requests []*models.Request
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error; err != nil {
		return nil, translate(err, "request", 0)
	}
	return requests, nil
}

func (r *requestRepository) ListByStatus(ctx context.Context, status models.RequestStatus, limit, offset int) ([]*models.Request, error) {
	var requests []*models.Request
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error; err != nil {
		return nil, translate(err, "request", 0)
	}
	return requests, nil
}

func (r *requestRepository) CountByStatus(ctx context.Context, status models.RequestStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, translate(err, "request", 0)
	}
	return count, nil
}

func (r *requestRepository) ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Request, error) {
	var requests []*models.Request
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error; err != nil {
		return nil, translate(err, "request", 0)
	}
	return requests, nil
}

func (r *requestRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return translate(result.Error, "request", id)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("request", id)
	}
	cache.InvalidateRequest(ctx, id)
	return nil
}

// UpdatePendingFields applies the fields only while the request is still
// Pendiente. A request that left the pending state between the caller's read
// and this write yields a conflict.
func (r *requestRepository) UpdatePendingFields(ctx context.Context, id uint, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND status = ?", id, models.RequestStatusPending).
		Updates(fields)
	if result.Error != nil {
		return translate(result.Error, "request", id)
	}
	if result.RowsAffected == 0 {
		return models.NewConflictError("request is no longer pending")
	}
	cache.InvalidateRequest(ctx, id)
	return nil
}

// CancelPending marks a pending request as cancelled. Guarded the same way as
// UpdatePendingFields.
func (r *requestRepository) CancelPending(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND status = ?", id, models.RequestStatusPending).
		Update("status", models.RequestStatusCancelled)
	if result.Error != nil {
		return translate(result.Error, "request", id)
	}
	if result.RowsAffected == 0 {
		return models.NewConflictError("request is no longer pending")
	}
	cache.InvalidateRequest(ctx, id)
	return nil
}

// ClaimForPickup atomically moves the given pending requests into the pickup.
// The guarded UPDATE only touches rows that are still Pendiente and unclaimed;
// if any request was claimed or transitioned concurrently the affected-row
// count falls short and the whole claim fails with a conflict, leaving the
// surrounding transaction to roll back.
func (r *requestRepository) ClaimForPickup(ctx context.Context, ids []uint, pickupID uint) error {
	defer observability.TrackQuery("claim_for_pickup", "requests")()
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id IN ? AND status = ? AND pickup_id IS NULL", ids, models.RequestStatusPending).
		Updates(map[string]any{
			"status":    models.RequestStatusScheduled,
			"pickup_id": pickupID,
		})
	if result.Error != nil {
		return translate(result.Error, "request", 0)
	}
	if result.RowsAffected != int64(len(ids)) {
		return models.NewConflictError("one or more requests are no longer available for scheduling")
	}
	for _, id := range ids {
		cache.InvalidateRequest(ctx, id)
	}
	return nil
}

// ReleaseFromPickup reverts every request still scheduled under the pickup
// back to pending and clears the live association. Requests that already left
// the pickup (e.g. cancelled by their owner) are not touched.
func (r *requestRepository) ReleaseFromPickup(ctx context.Context, pickupID uint) (int64, error) {
	ids, err := r.scheduledUnder(ctx, pickupID)
	if err != nil {
		return 0, err
	}
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("pickup_id = ? AND status = ?", pickupID, models.RequestStatusScheduled).
		Updates(map[string]any{
			"status":    models.RequestStatusPending,
			"pickup_id": nil,
		})
	if result.Error != nil {
		return 0, translate(result.Error, "request", 0)
	}
	for _, id := range ids {
		cache.InvalidateRequest(ctx, id)
	}
	return result.RowsAffected, nil
}

// CompleteScheduled marks every request scheduled under the pickup as
// completed. The live association is kept so completed requests still point
// at the pickup that served them.
func (r *requestRepository) CompleteScheduled(ctx context.Context, pickupID uint) (int64, error) {
	ids, err := r.scheduledUnder(ctx, pickupID)
	if err != nil {
		return 0, err
	}
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("pickup_id = ? AND status = ?", pickupID, models.RequestStatusScheduled).
		Update("status", models.RequestStatusCompleted)
	if result.Error != nil {
		return 0, translate(result.Error, "request", 0)
	}
	for _, id := range ids {
		cache.InvalidateRequest(ctx, id)
	}
	return result.RowsAffected, nil
}

// scheduledUnder lists the ids of requests still scheduled under the pickup,
// so bulk transitions can drop their cache entries.
func (r *requestRepository) scheduledUnder(ctx context.Context, pickupID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("pickup_id = ? AND status = ?", pickupID, models.RequestStatusScheduled).
		Pluck("id", &ids).Error; err != nil {
		return nil, translate(err, "request", 0)
	}
	return ids, nil
}
