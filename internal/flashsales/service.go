package flashsales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/validate"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the flash-sale administration and catalog-enrichment surface.
type Service interface {
	Upsert(ctx context.Context, input UpsertSaleInput) (*SaleView, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*SaleView, error)
	List(ctx context.Context) ([]SaleView, error)
	ActiveSaleFor(ctx context.Context, productID uuid.UUID) (*ActiveSale, error)
}

type ServiceParams struct {
	Repository *Repository
	DB         txRunner
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("flash sale repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repository, tx: params.DB, logg: params.Logger, now: now}, nil
}

// UpsertSaleInput creates a sale when ID is nil, otherwise replaces its terms
// and synchronizes its items.
type UpsertSaleInput struct {
	ID      *uuid.UUID            `json:"id"`
	Name    string                `json:"name" validate:"required"`
	StartAt time.Time             `json:"start_at" validate:"required"`
	EndAt   time.Time             `json:"end_at" validate:"required,gtfield=StartAt"`
	Status  enums.FlashSaleStatus `json:"status" validate:"required,oneof=active inactive"`
	Items   []UpsertItemInput     `json:"items" validate:"dive"`
}

type UpsertItemInput struct {
	ProductID       uuid.UUID `json:"product_id" validate:"required"`
	DiscountPercent int       `json:"discount_percent" validate:"min=1,max=100"`
	Capacity        int       `json:"capacity" validate:"gte=0"`
}

type SaleView struct {
	ID      uuid.UUID             `json:"id"`
	Name    string                `json:"name"`
	StartAt time.Time             `json:"start_at"`
	EndAt   time.Time             `json:"end_at"`
	Status  enums.FlashSaleStatus `json:"status"`
	Phase   enums.FlashSalePhase  `json:"phase"`
	Items   []ItemView            `json:"items"`
}

type ItemView struct {
	ID              uuid.UUID `json:"id"`
	ProductID       uuid.UUID `json:"product_id"`
	DiscountPercent int       `json:"discount_percent"`
	Capacity        int       `json:"capacity"`
	Sold            int       `json:"sold"`
	Remaining       int       `json:"remaining"`
}

// ActiveSale is what a product page shows while a quota is live.
type ActiveSale struct {
	SaleID          uuid.UUID `json:"sale_id"`
	SaleName        string    `json:"sale_name"`
	EndAt           time.Time `json:"end_at"`
	ItemID          uuid.UUID `json:"item_id"`
	DiscountPercent int       `json:"discount_percent"`
	Remaining       int       `json:"remaining"`
}

func (s *service) Upsert(ctx context.Context, input UpsertSaleInput) (*SaleView, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.EndAt.After(input.StartAt) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidWindow, "end_at must be after start_at")
	}
	productIDs := make([]uuid.UUID, 0, len(input.Items))
	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for _, item := range input.Items {
		if _, dup := seen[item.ProductID]; dup {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrDuplicateProduct, "duplicate product "+item.ProductID.String())
		}
		seen[item.ProductID] = struct{}{}
		productIDs = append(productIDs, item.ProductID)
	}

	var saleID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		count, err := s.repo.CountProducts(ctx, tx, productIDs)
		if err != nil {
			return err
		}
		if count != int64(len(productIDs)) {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrUnknownProduct, "flash sale references an unknown product")
		}

		now := s.now().UTC()
		if input.ID == nil {
			sale := &models.FlashSale{
				ID:        uuid.New(),
				Name:      input.Name,
				StartAt:   input.StartAt.UTC(),
				EndAt:     input.EndAt.UTC(),
				Status:    input.Status,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.CreateSale(ctx, tx, sale); err != nil {
				return err
			}
			saleID = sale.ID
			return s.syncItems(ctx, tx, sale.ID, nil, input.Items)
		}

		existing, err := s.repo.FindByID(ctx, tx, *input.ID)
		if err != nil {
			return err
		}
		existing.Name = input.Name
		existing.StartAt = input.StartAt.UTC()
		existing.EndAt = input.EndAt.UTC()
		existing.Status = input.Status
		existing.UpdatedAt = now
		if err := s.repo.UpdateSale(ctx, tx, existing); err != nil {
			return err
		}
		saleID = existing.ID
		return s.syncItems(ctx, tx, existing.ID, existing.Items, input.Items)
	})
	if err != nil {
		return nil, mapError(err)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"flash_sale_id": saleID.String(), "items": len(input.Items)})
	s.logg.Info(logCtx, "flash sale saved")
	return s.Get(ctx, saleID)
}

// syncItems deletes items no longer listed, updates the terms of the ones kept
// and inserts new ones with sold = 0.
func (s *service) syncItems(ctx context.Context, tx *gorm.DB, saleID uuid.UUID, current []models.FlashSaleItem, wanted []UpsertItemInput) error {
	byProduct := make(map[uuid.UUID]models.FlashSaleItem, len(current))
	for _, item := range current {
		byProduct[item.ProductID] = item
	}

	for _, want := range wanted {
		if existing, ok := byProduct[want.ProductID]; ok {
			if err := s.repo.UpdateItemTerms(ctx, tx, existing.ID, want.DiscountPercent, want.Capacity); err != nil {
				return err
			}
			delete(byProduct, want.ProductID)
			continue
		}
		item := &models.FlashSaleItem{
			ID:              uuid.New(),
			FlashSaleID:     saleID,
			ProductID:       want.ProductID,
			DiscountPercent: want.DiscountPercent,
			Capacity:        want.Capacity,
		}
		if err := s.repo.CreateItem(ctx, tx, item); err != nil {
			return err
		}
	}

	stale := make([]uuid.UUID, 0, len(byProduct))
	for _, item := range byProduct {
		stale = append(stale, item.ID)
	}
	return s.repo.DeleteItems(ctx, tx, stale)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.DeleteSale(ctx, tx, id)
	})
	if err != nil {
		return mapError(err)
	}
	s.logg.Info(s.logg.WithField(ctx, "flash_sale_id", id.String()), "flash sale deleted")
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SaleView, error) {
	sale, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, mapError(err)
	}
	view := toView(*sale, s.now())
	return &view, nil
}

func (s *service) List(ctx context.Context) ([]SaleView, error) {
	sales, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]SaleView, 0, len(sales))
	for _, sale := range sales {
		views = append(views, toView(sale, now))
	}
	return views, nil
}

func (s *service) ActiveSaleFor(ctx context.Context, productID uuid.UUID) (*ActiveSale, error) {
	item, err := s.repo.FindActiveItem(ctx, nil, productID, s.now())
	if err != nil || item == nil {
		return nil, err
	}
	sale, err := s.repo.FindByID(ctx, nil, item.FlashSaleID)
	if err != nil {
		return nil, mapError(err)
	}
	return &ActiveSale{
		SaleID:          sale.ID,
		SaleName:        sale.Name,
		EndAt:           sale.EndAt,
		ItemID:          item.ID,
		DiscountPercent: item.DiscountPercent,
		Remaining:       item.Remaining(),
	}, nil
}

func toView(sale models.FlashSale, now time.Time) SaleView {
	items := make([]ItemView, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, ItemView{
			ID:              item.ID,
			ProductID:       item.ProductID,
			DiscountPercent: item.DiscountPercent,
			Capacity:        item.Capacity,
			Sold:            item.Sold,
			Remaining:       item.Remaining(),
		})
	}
	return SaleView{
		ID:      sale.ID,
		Name:    sale.Name,
		StartAt: sale.StartAt,
		EndAt:   sale.EndAt,
		Status:  sale.Status,
		Phase:   Phase(sale, now),
		Items:   items,
	}
}

func mapError(err error) error {
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, ErrSaleNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "flash sale not found")
	case errors.Is(err, ErrCapacityBelowSold):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "capacity cannot drop below units already sold")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flash sale storage failed")
}
