package repository

import (
	"context"

	"recolecta/internal/cache"
	"recolecta/internal/models"

	"gorm.io/gorm"
)

// ProviderRepository defines the interface for provider data operations.
type ProviderRepository interface {
	Create(ctx context.Context, provider *models.Provider) error
	GetByID(ctx context.Context, id uint) (*models.Provider, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Provider, error)
	Update(ctx context.Context, provider *models.Provider) error
	SetActive(ctx context.Context, id uint, active bool) error
}

type providerRepository struct {
	db *gorm.DB
}

// NewProviderRepository creates a new provider repository.
func NewProviderRepository(db *gorm.DB) ProviderRepository {
	return &providerRepository{db: db}
}

func (r *providerRepository) Create(ctx context.Context, provider *models.Provider) error {
	if err := r.db.WithContext(ctx).Create(provider).Error; err != nil {
		return translate(err, "provider", 0)
	}
	return nil
}

func (r *providerRepository) GetByID(ctx context.Context, id uint) (*models.Provider, error) {
	var provider models.Provider
	key := cache.ProviderKey(id)

	err := cache.CacheAside(ctx, key, &provider, cache.ProviderTTL, func() error {
		return r.db.WithContext(ctx).First(&provider, id).Error
	})
	if err != nil {
		return nil, translate(err, "provider", id)
	}
	return &provider, nil
}

func (r *providerRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Provider, error) {
	var providers []*models.Provider
	query := r.db.WithContext(ctx).Order("name ASC").Limit(limit).Offset(offset)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&providers).Error; err != nil {
		return nil, translate(err, "provider", 0)
	}
	return providers, nil
}

func (r *providerRepository) Update(ctx context.Context, provider *models.Provider) error {
	if err := r.db.WithContext(ctx).Save(provider).Error; err != nil {
		return translate(err, "provider", provider.ID)
	}
	cache.Invalidate(ctx, cache.ProviderKey(provider.ID))
	return nil
}

func (r *providerRepository) SetActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Provider{}).
		Where("id = ?", id).
		Update("active", active)
	if result.Error != nil {
		return translate(result.Error, "provider", id)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("provider", id)
	}
	cache.Invalidate(ctx, cache.ProviderKey(id))
	return nil
}
