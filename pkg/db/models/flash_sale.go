package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// FlashSale is a time-boxed promotion over a set of quota records.
// The window is half-open: [StartAt, EndAt).
type FlashSale struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string                `gorm:"column:name;not null"`
	StartAt   time.Time             `gorm:"column:start_at;not null"`
	EndAt     time.Time             `gorm:"column:end_at;not null"`
	Status    enums.FlashSaleStatus `gorm:"column:status;type:flash_sale_status;not null;default:'inactive'"`
	Items     []FlashSaleItem       `gorm:"foreignKey:FlashSaleID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// FlashSaleItem is the per-(sale, product) quota record.
type FlashSaleItem struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FlashSaleID     uuid.UUID  `gorm:"column:flash_sale_id;type:uuid;not null;uniqueIndex:ux_flash_sale_items_sale_product"`
	ProductID       uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_flash_sale_items_sale_product"`
	DiscountPercent int        `gorm:"column:discount_percent;not null"`
	Capacity        int        `gorm:"column:capacity;not null"`
	Sold            int        `gorm:"column:sold;not null;default:0"`
	FlashSale       *FlashSale `gorm:"foreignKey:FlashSaleID"`
}

// Remaining returns how many discounted units are still available.
func (i FlashSaleItem) Remaining() int {
	if i.Sold >= i.Capacity {
		return 0
	}
	return i.Capacity - i.Sold
}
