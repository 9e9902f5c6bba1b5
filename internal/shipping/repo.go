// Package shipping is the directory of carriers offered at checkout.
package shipping

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create registers a carrier. Names are stored upper-cased since they prefix shipment numbers.
func (r *Repository) Create(ctx context.Context, name string, active bool) (*models.ShippingProvider, error) {
	provider := &models.ShippingProvider{
		ID:     uuid.New(),
		Name:   strings.ToUpper(strings.TrimSpace(name)),
		Active: active,
	}
	if err := r.db.WithContext(ctx).Create(provider).Error; err != nil {
		return nil, err
	}
	return provider, nil
}

// FindActive returns the provider when it exists and is active; (nil, nil) otherwise.
func (r *Repository) FindActive(ctx context.Context, id uuid.UUID) (*models.ShippingProvider, error) {
	var provider models.ShippingProvider
	err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

func (r *Repository) List(ctx context.Context) ([]models.ShippingProvider, error) {
	var rows []models.ShippingProvider
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}
