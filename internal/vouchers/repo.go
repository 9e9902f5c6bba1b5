package vouchers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const grantBatchSize = 500

// Repository persists discounts and the per-user single-use grants on them.
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

func (r *Repository) CreateDiscount(ctx context.Context, tx *gorm.DB, discount *models.Discount) error {
	if discount.ID == uuid.Nil {
		discount.ID = uuid.New()
	}
	return r.conn(ctx, tx).Create(discount).Error
}

func (r *Repository) FindDiscountByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Discount, error) {
	var discount models.Discount
	err := r.conn(ctx, tx).First(&discount, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDiscountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *Repository) FindDiscountByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Discount, error) {
	var discount models.Discount
	err := r.conn(ctx, tx).First(&discount, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDiscountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

// FindGrant loads the (user, discount) grant with its discount, or (nil, nil).
func (r *Repository) FindGrant(ctx context.Context, tx *gorm.DB, userID, discountID uuid.UUID) (*models.UserDiscount, error) {
	var grant models.UserDiscount
	err := r.conn(ctx, tx).
		Preload("Discount").
		Where("user_id = ? AND discount_id = ?", userID, discountID).
		Take(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find voucher grant: %w", err)
	}
	return &grant, nil
}

// Consume flips an unused grant to used. A grant that is already used is left
// untouched and reported as ErrVoucherAlreadyUsed.
func (r *Repository) Consume(ctx context.Context, tx *gorm.DB, grantID uuid.UUID, at time.Time) error {
	res := r.conn(ctx, tx).
		Model(&models.UserDiscount{}).
		Where("id = ? AND used = ?", grantID, false).
		Updates(map[string]any{"used": true, "used_at": at.UTC()})
	if res.Error != nil {
		return fmt.Errorf("consume voucher: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVoucherAlreadyUsed
	}
	return nil
}

// Restore returns the (user, discount) grant to the unused state. A missing
// grant is not an error.
func (r *Repository) Restore(ctx context.Context, tx *gorm.DB, userID, discountID uuid.UUID) (bool, error) {
	res := r.conn(ctx, tx).
		Model(&models.UserDiscount{}).
		Where("user_id = ? AND discount_id = ?", userID, discountID).
		Updates(map[string]any{"used": false, "used_at": nil})
	if res.Error != nil {
		return false, fmt.Errorf("restore voucher: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// InsertGrants creates unused grants, skipping (user, discount) pairs that
// already exist. It returns how many rows were created.
func (r *Repository) InsertGrants(ctx context.Context, tx *gorm.DB, discountID uuid.UUID, userIDs []uuid.UUID) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	grants := make([]models.UserDiscount, 0, len(userIDs))
	now := time.Now().UTC()
	for _, userID := range userIDs {
		grants = append(grants, models.UserDiscount{
			ID:         uuid.New(),
			UserID:     userID,
			DiscountID: discountID,
			CreatedAt:  now,
		})
	}
	res := r.conn(ctx, tx).
		Omit("Discount").
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&grants, grantBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("insert voucher grants: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *Repository) ListGrantsForUser(ctx context.Context, userID uuid.UUID) ([]models.UserDiscount, error) {
	var grants []models.UserDiscount
	err := r.conn(ctx, nil).
		Preload("Discount").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id ASC").
		Find(&grants).Error
	return grants, err
}
