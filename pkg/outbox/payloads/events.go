package payloads

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderRecipient carries what the notification worker needs to address the customer.
type OrderRecipient struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
}

// OrderLineSummary is a flattened order line for receipts.
type OrderLineSummary struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Qty            int       `json:"qty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	FlashSale      bool      `json:"flash_sale,omitempty"`
}

// OrderPlacedEvent is emitted in the placement transaction.
type OrderPlacedEvent struct {
	OrderID        uuid.UUID           `json:"order_id"`
	ShipmentNumber string              `json:"shipment_number"`
	Recipient      OrderRecipient      `json:"recipient"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	Status         enums.OrderStatus   `json:"status"`
	TotalCents     int64               `json:"total_cents"`
	DiscountCode   string              `json:"discount_code,omitempty"`
	Lines          []OrderLineSummary  `json:"lines"`
	PlacedAt       time.Time           `json:"placed_at"`
	// PayBy is set for online methods; the sweep cancels the order after it.
	PayBy *time.Time `json:"pay_by,omitempty"`
}

// OrderPaidEvent is emitted when the gateway reports a successful payment.
type OrderPaidEvent struct {
	OrderID        uuid.UUID      `json:"order_id"`
	ShipmentNumber string         `json:"shipment_number"`
	Recipient      OrderRecipient `json:"recipient"`
	AmountCents    int64          `json:"amount_cents"`
	TransactionRef string         `json:"transaction_ref,omitempty"`
	PaidAt         time.Time      `json:"paid_at"`
}

// OrderPaymentFailedEvent is emitted when the gateway reports a failure code.
type OrderPaymentFailedEvent struct {
	OrderID        uuid.UUID      `json:"order_id"`
	ShipmentNumber string         `json:"shipment_number"`
	Recipient      OrderRecipient `json:"recipient"`
	ResponseCode   string         `json:"response_code"`
	FailedAt       time.Time      `json:"failed_at"`
}

// OrderCancelledEvent covers customer, admin and payment-failure cancellations.
type OrderCancelledEvent struct {
	OrderID        uuid.UUID      `json:"order_id"`
	ShipmentNumber string         `json:"shipment_number"`
	Recipient      OrderRecipient `json:"recipient"`
	Reason         string         `json:"reason"`
	CancelledBy    string         `json:"cancelled_by"`
	CancelledAt    time.Time      `json:"cancelled_at"`
}

// OrderExpiredEvent is emitted by the sweep for unpaid online orders.
type OrderExpiredEvent struct {
	OrderID        uuid.UUID      `json:"order_id"`
	ShipmentNumber string         `json:"shipment_number"`
	Recipient      OrderRecipient `json:"recipient"`
	PlacedAt       time.Time      `json:"placed_at"`
	ExpiredAt      time.Time      `json:"expired_at"`
}

// OrderStatusChangedEvent is emitted for admin fulfilment transitions.
type OrderStatusChangedEvent struct {
	OrderID            uuid.UUID         `json:"order_id"`
	ShipmentNumber     string            `json:"shipment_number"`
	Recipient          OrderRecipient    `json:"recipient"`
	From               enums.OrderStatus `json:"from"`
	To                 enums.OrderStatus `json:"to"`
	ExpectedDeliveryAt *time.Time        `json:"expected_delivery_at,omitempty"`
	ChangedAt          time.Time         `json:"changed_at"`
}
