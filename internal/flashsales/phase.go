package flashsales

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Phase reports where now falls relative to the sale window. Both bounds count
// as running here; quota resolution itself treats the end as exclusive.
func Phase(sale models.FlashSale, now time.Time) enums.FlashSalePhase {
	switch {
	case now.Before(sale.StartAt):
		return enums.FlashSalePhaseUpcoming
	case now.After(sale.EndAt):
		return enums.FlashSalePhaseEnded
	default:
		return enums.FlashSalePhaseRunning
	}
}

// FlashPriceCents applies a whole-percent discount to a catalog price, rounding down.
func FlashPriceCents(catalogCents int64, discountPercent int) int64 {
	if discountPercent <= 0 {
		return catalogCents
	}
	if discountPercent >= 100 {
		return 0
	}
	return catalogCents * int64(100-discountPercent) / 100
}
