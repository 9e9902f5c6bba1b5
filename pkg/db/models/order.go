package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is a storefront checkout. It owns its lines and payment record.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	AddressID          uuid.UUID           `gorm:"column:address_id;type:uuid;not null"`
	ShippingProviderID uuid.UUID           `gorm:"column:shipping_provider_id;type:uuid;not null"`
	ShipmentNumber     string              `gorm:"column:shipment_number;not null"`
	TotalCents         int64               `gorm:"column:total_cents;not null"`
	DiscountID         *uuid.UUID          `gorm:"column:discount_id;type:uuid"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	Status             enums.OrderStatus   `gorm:"column:status;type:order_status;not null"`
	Note               *string             `gorm:"column:note"`
	ExpectedDeliveryAt *time.Time          `gorm:"column:expected_delivery_at"`
	PlacedAt           time.Time           `gorm:"column:placed_at;not null"`
	CancelledAt        *time.Time          `gorm:"column:cancelled_at"`
	Lines              []OrderLine         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment            *Payment            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLine captures the unit price actually charged and, when the line was
// reserved against a flash-sale quota, the quota record it consumed.
type OrderLine struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID       uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID       *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	Qty             int        `gorm:"column:qty;not null"`
	UnitPriceCents  int64      `gorm:"column:unit_price_cents;not null"`
	FlashSaleItemID *uuid.UUID `gorm:"column:flash_sale_item_id;type:uuid"`
}

// LineTotalCents is unit price times quantity.
func (l OrderLine) LineTotalCents() int64 {
	return l.UnitPriceCents * int64(l.Qty)
}
