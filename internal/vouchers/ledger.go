package vouchers

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger is the transactional voucher surface used by order placement and compensation.
type Ledger struct {
	repo *Repository
}

func NewLedger(repo *Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Check returns the grant when userID holds an unused, unexpired grant on discountID.
func (l *Ledger) Check(ctx context.Context, tx *gorm.DB, userID, discountID uuid.UUID, now time.Time) (*models.UserDiscount, error) {
	grant, err := l.repo.FindGrant(ctx, tx, userID, discountID)
	if err != nil {
		return nil, err
	}
	if grant == nil || grant.Discount == nil {
		return nil, ErrInvalidVoucher
	}
	if grant.Used {
		return nil, ErrVoucherAlreadyUsed
	}
	if !grant.Discount.UsableAt(now) {
		return nil, ErrVoucherExpired
	}
	return grant, nil
}

// Consume marks the grant used; a concurrent consumer gets ErrVoucherAlreadyUsed.
func (l *Ledger) Consume(ctx context.Context, tx *gorm.DB, grantID uuid.UUID, now time.Time) error {
	return l.repo.Consume(ctx, tx, grantID, now)
}

// Restore makes the (user, discount) grant usable again.
func (l *Ledger) Restore(ctx context.Context, tx *gorm.DB, userID, discountID uuid.UUID) (bool, error) {
	return l.repo.Restore(ctx, tx, userID, discountID)
}

// MapError converts ledger sentinels into typed platform errors.
func MapError(err error) error {
	return mapError(err)
}
