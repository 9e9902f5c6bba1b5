package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
)

// PlaceOrderInput is the checkout request. UnitPriceCents is what the client
// was shown and is the price charged, subject to the tolerance check.
type PlaceOrderInput struct {
	UserID             uuid.UUID           `json:"user_id" validate:"required"`
	AddressID          uuid.UUID           `json:"address_id" validate:"required"`
	ShippingProviderID uuid.UUID           `json:"shipping_provider_id" validate:"required"`
	Items              []PlaceLineInput    `json:"items" validate:"required,min=1,dive"`
	DiscountID         *uuid.UUID          `json:"discount_id"`
	TotalCents         int64               `json:"total_cents" validate:"gte=0"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method" validate:"required,oneof=cod bank_transfer card vnpay"`
	Note               string              `json:"note" validate:"max=500"`
	ExpectedDeliveryAt *time.Time          `json:"expected_delivery_at"`
}

type PlaceLineInput struct {
	ProductID      uuid.UUID  `json:"product_id" validate:"required"`
	VariantID      *uuid.UUID `json:"variant_id"`
	Quantity       int        `json:"quantity" validate:"min=1"`
	UnitPriceCents int64      `json:"unit_price_cents" validate:"gte=0"`
}

type PlaceOrderResult struct {
	OrderID        uuid.UUID           `json:"order_id"`
	ShipmentNumber string              `json:"shipment_number"`
	TotalCents     int64               `json:"total_cents"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	Status         enums.OrderStatus   `json:"status"`
}

// Actor is the authenticated caller of an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// UpdateOrderInput is the admin fulfilment update; nil fields are left untouched.
type UpdateOrderInput struct {
	Status             *enums.OrderStatus `json:"status"`
	Note               *string            `json:"note"`
	ExpectedDeliveryAt *time.Time         `json:"expected_delivery_at"`
}

// OrderSnapshot is the read model returned by order queries.
type OrderSnapshot struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             uuid.UUID           `json:"user_id"`
	ShipmentNumber     string              `json:"shipment_number"`
	Status             enums.OrderStatus   `json:"status"`
	StatusLabel        string              `json:"status_label"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status,omitempty"`
	TotalCents         int64               `json:"total_cents"`
	DiscountID         *uuid.UUID          `json:"discount_id,omitempty"`
	Note               *string             `json:"note,omitempty"`
	ExpectedDeliveryAt *time.Time          `json:"expected_delivery_at,omitempty"`
	PlacedAt           time.Time           `json:"placed_at"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	Lines              []LineSnapshot      `json:"lines"`
}

type LineSnapshot struct {
	ProductID       uuid.UUID  `json:"product_id"`
	VariantID       *uuid.UUID `json:"variant_id,omitempty"`
	Qty             int        `json:"qty"`
	UnitPriceCents  int64      `json:"unit_price_cents"`
	LineTotalCents  int64      `json:"line_total_cents"`
	FlashSaleItemID *uuid.UUID `json:"flash_sale_item_id,omitempty"`
}

type OrderList struct {
	Orders     []OrderSnapshot `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func toSnapshot(order models.Order) OrderSnapshot {
	snap := OrderSnapshot{
		ID:                 order.ID,
		UserID:             order.UserID,
		ShipmentNumber:     order.ShipmentNumber,
		Status:             order.Status,
		StatusLabel:        order.Status.Label(),
		PaymentMethod:      order.PaymentMethod,
		TotalCents:         order.TotalCents,
		DiscountID:         order.DiscountID,
		Note:               order.Note,
		ExpectedDeliveryAt: order.ExpectedDeliveryAt,
		PlacedAt:           order.PlacedAt,
		CancelledAt:        order.CancelledAt,
		Lines:              make([]LineSnapshot, 0, len(order.Lines)),
	}
	if order.Payment != nil {
		snap.PaymentStatus = order.Payment.Status
	}
	for _, line := range order.Lines {
		snap.Lines = append(snap.Lines, LineSnapshot{
			ProductID:       line.ProductID,
			VariantID:       line.VariantID,
			Qty:             line.Qty,
			UnitPriceCents:  line.UnitPriceCents,
			LineTotalCents:  line.LineTotalCents(),
			FlashSaleItemID: line.FlashSaleItemID,
		})
	}
	return snap
}
