package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Payment is the one-to-one payment record of an order.
type Payment struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Method         enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	AmountCents    int64               `gorm:"column:amount_cents;not null"`
	Status         enums.PaymentStatus `gorm:"column:status;type:payment_status;not null"`
	PaidAt         *time.Time          `gorm:"column:paid_at"`
	TransactionRef *string             `gorm:"column:transaction_ref"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
