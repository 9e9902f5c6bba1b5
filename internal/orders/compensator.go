package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// compensator returns everything a placed order reserved: stock, flash-sale
// quota and the voucher grant. Callers flip the order to cancelled in the same
// transaction afterwards.
type compensator struct {
	products ProductStore
	quotas   QuotaStore
	vouchers VoucherStore
	logg     *logger.Logger
}

// Compensate reverses the order's reservations. It reports false and does
// nothing when the order is already cancelled.
func (c *compensator) Compensate(ctx context.Context, tx *gorm.DB, order *models.Order) (bool, error) {
	if order == nil || order.Status == enums.OrderStatusCancelled {
		return false, nil
	}
	ctx = c.logg.WithOrderID(ctx, order.ID.String())

	for _, line := range order.Lines {
		if err := c.products.Release(ctx, tx, line.ProductID, line.Qty); err != nil {
			if !errors.Is(err, ErrProductNotFound) {
				return false, fmt.Errorf("release stock for product %s: %w", line.ProductID, err)
			}
			logCtx := c.logg.WithField(ctx, "product_id", line.ProductID.String())
			c.logg.Warn(logCtx, "product removed from catalog, stock not restored")
		}
		c.releaseQuota(ctx, tx, line)
	}

	if order.DiscountID != nil {
		restored, err := c.vouchers.Restore(ctx, tx, order.UserID, *order.DiscountID)
		if err != nil {
			return false, fmt.Errorf("restore voucher: %w", err)
		}
		if !restored {
			logCtx := c.logg.WithField(ctx, "discount_id", order.DiscountID.String())
			c.logg.Warn(logCtx, "voucher grant missing, nothing restored")
		}
	}
	return true, nil
}

// releaseQuota returns the units a line took from the quota record linked at
// placement. Lines without a link never touched a quota and are skipped. The
// release runs inside a savepoint so a failed statement cannot poison the
// surrounding transaction; failures are logged only.
func (c *compensator) releaseQuota(ctx context.Context, tx *gorm.DB, line models.OrderLine) {
	if line.FlashSaleItemID == nil {
		return
	}
	itemID := *line.FlashSaleItemID
	release := func(db *gorm.DB) error {
		return c.quotas.ReleaseQuota(ctx, db, itemID, line.Qty)
	}

	var err error
	if tx != nil {
		err = tx.Transaction(release)
	} else {
		err = release(nil)
	}
	if err != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"product_id":         line.ProductID.String(),
			"flash_sale_item_id": itemID.String(),
			"qty":                line.Qty,
		})
		c.logg.Error(logCtx, "flash sale quota not released", err)
	}
}
