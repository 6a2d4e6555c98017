package repository

import (
	"context"

	"recolecta/internal/cache"
	"recolecta/internal/models"
	"recolecta/internal/observability"

	"gorm.io/gorm"
)

// PickupRepository defines the interface for pickup data operations.
type PickupRepository interface {
	Create(ctx context.Context, pickup *models.Pickup) error
	GetByID(ctx context.Context, id uint) (*models.Pickup, error)
	List(ctx context.Context, limit, offset int) ([]*models.Pickup, error)
	ListByStatus(ctx context.Context, status models.PickupStatus, limit, offset int) ([]*models.Pickup, error)
	LinkRequests(ctx context.Context, pickupID uint, requestIDs []uint) error
	LinkedRequestIDs(ctx context.Context, pickupID uint) ([]uint, error)
	TransitionStatus(ctx context.Context, id uint, from, to models.PickupStatus) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	UpdateScheduledFields(ctx context.Context, id uint, fields map[string]any) error
	AddDocuments(ctx context.Context, docs []models.PickupDocument) error
	AddResidues(ctx context.Context, residues []models.CollectedResidue) error
	ListCollected(ctx context.Context) ([]*models.CollectedResidue, error)
}

type pickupRepository struct {
	db *gorm.DB
}

// NewPickupRepository creates a new pickup repository.
func NewPickupRepository(db *gorm.DB) PickupRepository {
	return &pickupRepository{db: db}
}

func (r *pickupRepository) Create(ctx context.Context, pickup *models.Pickup) error {
	if err := r.db.WithContext(ctx).Create(pickup).Error; err != nil {
		return translate(err, "pickup", 0)
	}
	return nil
}

func (r *pickupRepository) GetByID(ctx context.Context, id uint) (*models.Pickup, error) {
	var pickup models.Pickup
	err := cache.CacheAside(ctx, cache.PickupKey(id), &pickup, cache.PickupTTL, func() error {
		return r.db.WithContext(ctx).
			Preload("Provider").
			Preload("Documents").
			Preload("Residues").
			First(&pickup, id).Error
	})
	if err != nil {
		return nil, translate(err, "pickup", id)
	}
	return &pickup, nil
}

func (r *pickupRepository) List(ctx context.Context, limit, offset int) ([]*models.Pickup, error) {
	var pickups []*models.Pickup
	if err := r.db.WithContext(ctx).
		Preload("Provider").
		Order("scheduled_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&pickups).Error; err != nil {
		return nil, translate(err, "pickup", 0)
	}
	return pickups, nil
}

func (r *pickupRepository) ListByStatus(ctx context.Context, status models.PickupStatus, limit, offset int) ([]*models.Pickup, error) {
	var pickups []*models.Pickup
	if err := r.db.WithContext(ctx).
		Preload("Provider").
		Where("status = ?", status).
		Order("scheduled_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&pickups).Error; err != nil {
		return nil, translate(err, "pickup", 0)
	}
	return pickups, nil
}

// LinkRequests records the pickup-request association rows. Rows are append
// only; they survive cancellation as scheduling history.
func (r *pickupRepository) LinkRequests(ctx context.Context, pickupID uint, requestIDs []uint) error {
	links := make([]models.PickupRequest, 0, len(requestIDs))
	for _, id := range requestIDs {
		links = append(links, models.PickupRequest{PickupID: pickupID, RequestID: id})
	}
	if err := r.db.WithContext(ctx).Create(&links).Error; err != nil {
		return translate(err, "pickup association", pickupID)
	}
	return nil
}

func (r *pickupRepository) LinkedRequestIDs(ctx context.Context, pickupID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.PickupRequest{}).
		Where("pickup_id = ?", pickupID).
		Pluck("request_id", &ids).Error; err != nil {
		return nil, translate(err, "pickup association", pickupID)
	}
	return ids, nil
}

// TransitionStatus performs a guarded status change. The UPDATE only matches
// when the pickup still holds the expected `from` status, so a concurrent
// transition makes the affected-row count zero and the caller gets a conflict.
func (r *pickupRepository) TransitionStatus(ctx context.Context, id uint, from, to models.PickupStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return translate(result.Error, "pickup", id)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.Pickup{}).
			Where("id = ?", id).
			Count(&count).Error; err == nil && count == 0 {
			return models.NewNotFoundError("pickup", id)
		}
		return models.NewConflictError("pickup is not in a state that allows this transition")
	}
	cache.InvalidatePickup(ctx, id)
	return nil
}

func (r *pickupRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return translate(result.Error, "pickup", id)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("pickup", id)
	}
	cache.InvalidatePickup(ctx, id)
	return nil
}

// UpdateScheduledFields applies the fields only while the pickup still holds
// the Programada status, the same optimistic guard UpdatePendingFields uses
// for requests. A pickup that reached a terminal state concurrently yields a
// conflict instead of a silent write.
func (r *pickupRepository) UpdateScheduledFields(ctx context.Context, id uint, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Where("id = ? AND status = ?", id, models.PickupStatusScheduled).
		Updates(fields)
	if result.Error != nil {
		return translate(result.Error, "pickup", id)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.Pickup{}).
			Where("id = ?", id).
			Count(&count).Error; err == nil && count == 0 {
			return models.NewNotFoundError("pickup", id)
		}
		return models.NewConflictError("pickup is no longer scheduled")
	}
	cache.InvalidatePickup(ctx, id)
	return nil
}

func (r *pickupRepository) AddDocuments(ctx context.Context, docs []models.PickupDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&docs).Error; err != nil {
		return translate(err, "pickup document", 0)
	}
	return nil
}

func (r *pickupRepository) AddResidues(ctx context.Context, residues []models.CollectedResidue) error {
	if len(residues) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&residues).Error; err != nil {
		return translate(err, "collected residue", 0)
	}
	return nil
}

// ListCollected returns every collected-residue record. Aggregation reads the
// full set; filtering happens in the report service after unit normalization.
func (r *pickupRepository) ListCollected(ctx context.Context) ([]*models.CollectedResidue, error) {
	defer observability.TrackQuery("list_collected", "collected_residues")()
	var residues []*models.CollectedResidue
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&residues).Error; err != nil {
		return nil, translate(err, "collected residue", 0)
	}
	return residues, nil
}
