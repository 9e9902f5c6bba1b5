package orders

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/flashsales"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// expectedUnitPriceCents is the price the server would quote right now: the
// flash price while a quota is live, otherwise the catalog price.
func expectedUnitPriceCents(product models.Product, quota *models.FlashSaleItem) int64 {
	if quota == nil {
		return product.PriceCents
	}
	return flashsales.FlashPriceCents(product.PriceCents, quota.DiscountPercent)
}

// withinTolerance reports whether charged deviates from expected by at most
// tolerancePct percent of expected. A negative tolerance disables the check.
func withinTolerance(charged, expected int64, tolerancePct float64) bool {
	if tolerancePct < 0 {
		return true
	}
	diff := decimal.NewFromInt(charged - expected).Abs()
	allowed := decimal.NewFromInt(expected).Mul(decimal.NewFromFloat(tolerancePct)).Div(hundred)
	return diff.LessThanOrEqual(allowed)
}

// discountedTotalCents applies a percentage voucher to subtotal. A positive
// MaxDiscountCents caps the reduction.
func discountedTotalCents(subtotal int64, discount *models.Discount) int64 {
	if discount == nil || discount.Percentage <= 0 {
		return subtotal
	}
	reduction := decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromInt(int64(discount.Percentage))).
		Div(hundred).
		Round(0)
	if discount.MaxDiscountCents > 0 {
		reduction = decimal.Min(reduction, decimal.NewFromInt(discount.MaxDiscountCents))
	}
	total := decimal.NewFromInt(subtotal).Sub(reduction)
	if total.IsNegative() {
		return 0
	}
	return total.IntPart()
}

// shipmentNumber formats PROVIDER-YYYY-MM-DD-XXXXXX.
func shipmentNumber(providerName string, at time.Time) string {
	provider := strings.ToUpper(strings.Join(strings.Fields(providerName), ""))
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return provider + "-" + at.UTC().Format("2006-01-02") + "-" + suffix
}
