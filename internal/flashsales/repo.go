package flashsales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository owns flash_sales and the flash_sale_items quota counters.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// FindActiveItem returns the quota record for productID in the active sale
// whose window [start_at, end_at) contains at, or (nil, nil) when none does.
// Overlapping active sales should not exist; if they do, the earliest start wins.
func (r *Repository) FindActiveItem(ctx context.Context, tx *gorm.DB, productID uuid.UUID, at time.Time) (*models.FlashSaleItem, error) {
	at = at.UTC()
	var item models.FlashSaleItem
	err := r.conn(ctx, tx).
		Select("flash_sale_items.*").
		Joins("JOIN flash_sales ON flash_sales.id = flash_sale_items.flash_sale_id").
		Where("flash_sale_items.product_id = ?", productID).
		Where("flash_sales.status = ?", enums.FlashSaleStatusActive).
		Where("flash_sales.start_at <= ? AND flash_sales.end_at > ?", at, at).
		Order("flash_sales.start_at ASC").
		Order("flash_sales.id ASC").
		Limit(1).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active flash sale item: %w", err)
	}
	return &item, nil
}

// ReserveQuota adds qty to sold only while the result stays within capacity.
func (r *Repository) ReserveQuota(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) error {
	res := r.conn(ctx, tx).
		Model(&models.FlashSaleItem{}).
		Where("id = ? AND sold + ? <= capacity", itemID, qty).
		UpdateColumn("sold", gorm.Expr("sold + ?", qty))
	if res.Error != nil {
		return fmt.Errorf("reserve quota: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrQuotaExhausted
	}
	return nil
}

// ReleaseQuota subtracts qty from sold, flooring at zero.
func (r *Repository) ReleaseQuota(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) error {
	res := r.conn(ctx, tx).
		Model(&models.FlashSaleItem{}).
		Where("id = ?", itemID).
		UpdateColumn("sold", gorm.Expr("CASE WHEN sold >= ? THEN sold - ? ELSE 0 END", qty, qty))
	if res.Error != nil {
		return fmt.Errorf("release quota: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.FlashSale, error) {
	var sale models.FlashSale
	err := r.conn(ctx, tx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("product_id ASC") }).
		First(&sale, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *Repository) List(ctx context.Context) ([]models.FlashSale, error) {
	var sales []models.FlashSale
	err := r.conn(ctx, nil).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("product_id ASC") }).
		Order("start_at DESC").
		Order("id ASC").
		Find(&sales).Error
	return sales, err
}

func (r *Repository) CreateSale(ctx context.Context, tx *gorm.DB, sale *models.FlashSale) error {
	return r.conn(ctx, tx).Omit("Items").Create(sale).Error
}

func (r *Repository) UpdateSale(ctx context.Context, tx *gorm.DB, sale *models.FlashSale) error {
	return r.conn(ctx, tx).
		Model(&models.FlashSale{}).
		Where("id = ?", sale.ID).
		Updates(map[string]any{
			"name":       sale.Name,
			"start_at":   sale.StartAt,
			"end_at":     sale.EndAt,
			"status":     sale.Status,
			"updated_at": sale.UpdatedAt,
		}).Error
}

func (r *Repository) DeleteSale(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	db := r.conn(ctx, tx)
	if err := db.Where("flash_sale_id = ?", id).Delete(&models.FlashSaleItem{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&models.FlashSale{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func (r *Repository) CreateItem(ctx context.Context, tx *gorm.DB, item *models.FlashSaleItem) error {
	return r.conn(ctx, tx).Omit("FlashSale").Create(item).Error
}

// UpdateItemTerms changes discount and capacity. sold is never written here.
func (r *Repository) UpdateItemTerms(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, discountPercent, capacity int) error {
	res := r.conn(ctx, tx).
		Model(&models.FlashSaleItem{}).
		Where("id = ? AND sold <= ?", itemID, capacity).
		Updates(map[string]any{
			"discount_percent": discountPercent,
			"capacity":         capacity,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCapacityBelowSold
	}
	return nil
}

func (r *Repository) DeleteItems(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.conn(ctx, tx).Where("id IN ?", ids).Delete(&models.FlashSaleItem{}).Error
}

// CountProducts returns how many of ids exist in the catalog.
func (r *Repository) CountProducts(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.conn(ctx, tx).Model(&models.Product{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}
