package orders

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
)

var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:        {enums.OrderStatusInProgress, enums.OrderStatusCancelled},
	enums.OrderStatusPendingPayment: {enums.OrderStatusInProgress, enums.OrderStatusCancelled},
	enums.OrderStatusInProgress:     {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:        {enums.OrderStatusDelivered},
}

// CanTransition reports whether an order may move from one status to another.
// Staying in the same status is always allowed and treated as a no-op.
func CanTransition(from, to enums.OrderStatus) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// paidByGatewayOnly reports whether the move is reserved for a successful
// payment callback.
func paidByGatewayOnly(from, to enums.OrderStatus) bool {
	return from == enums.OrderStatusPendingPayment && to == enums.OrderStatusInProgress
}

// Cancellable reports whether the order has not yet left the warehouse.
func Cancellable(status enums.OrderStatus) bool {
	return status != enums.OrderStatusCancelled && CanTransition(status, enums.OrderStatusCancelled)
}

// CanCancel reports whether actor may cancel order: admins always, customers only their own.
func CanCancel(actor Actor, order models.Order) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.UserID != uuid.Nil && actor.UserID == order.UserID
}

// initialStatus picks the status a freshly placed order starts in.
func initialStatus(method enums.PaymentMethod) enums.OrderStatus {
	if method.IsOnline() {
		return enums.OrderStatusPendingPayment
	}
	return enums.OrderStatusPending
}
