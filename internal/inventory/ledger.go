// Package inventory owns the general-sale stock counter on products.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// Ledger mutates products.stock with single conditional statements so the
// counter can never go negative under concurrent checkouts.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return l.db.WithContext(ctx)
}

// CreateProductDTO seeds a catalog row.
type CreateProductDTO struct {
	SKU        string
	Name       string
	PriceCents int64
	Stock      int
}

func (l *Ledger) CreateProduct(ctx context.Context, tx *gorm.DB, dto CreateProductDTO) (*models.Product, error) {
	if dto.Stock < 0 {
		return nil, ErrInvalidQuantity
	}
	product := &models.Product{
		ID:         uuid.New(),
		SKU:        strings.TrimSpace(dto.SKU),
		Name:       strings.TrimSpace(dto.Name),
		PriceCents: dto.PriceCents,
		Stock:      dto.Stock,
	}
	if err := l.conn(ctx, tx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Get loads a product or returns ErrProductNotFound.
func (l *Ledger) Get(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := l.conn(ctx, tx).First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Reserve decrements stock by qty only when at least qty units remain.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	res := l.conn(ctx, tx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("reserve stock: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := l.Get(ctx, tx, productID); err != nil {
		return err
	}
	return ErrInsufficientStock
}

// Release returns qty units to stock.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	res := l.conn(ctx, tx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return fmt.Errorf("release stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}
