package orders

import (
	"errors"

	"github.com/angelmondragon/storefront-backend/internal/flashsales"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/vouchers"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var (
	ErrInvalidAddress          = errors.New("address does not belong to user")
	ErrInvalidShippingProvider = errors.New("shipping provider not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrForbidden               = errors.New("not allowed to act on this order")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrAwaitingPayment         = errors.New("order is awaiting gateway payment")
	ErrPriceMismatch           = errors.New("unit price differs from the current price")

	// Re-exported so callers only need this package to classify placement failures.
	ErrProductNotFound    = inventory.ErrProductNotFound
	ErrInsufficientStock  = inventory.ErrInsufficientStock
	ErrFlashSaleSoldOut   = flashsales.ErrQuotaExhausted
	ErrInvalidVoucher     = vouchers.ErrInvalidVoucher
	ErrVoucherAlreadyUsed = vouchers.ErrVoucherAlreadyUsed
	ErrVoucherExpired     = vouchers.ErrVoucherExpired
)

func mapError(err error) error {
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, ErrInvalidAddress):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "address is not valid for this user")
	case errors.Is(err, ErrInvalidShippingProvider):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "shipping provider is not available")
	case errors.Is(err, ErrPriceMismatch):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "prices changed, refresh the cart")
	case errors.Is(err, ErrUserNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	case errors.Is(err, ErrOrderNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	case errors.Is(err, ErrProductNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
	case errors.Is(err, ErrFlashSaleSoldOut):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "flash sale quota sold out")
	case errors.Is(err, ErrInsufficientStock):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "insufficient stock")
	case errors.Is(err, ErrForbidden):
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "not allowed to act on this order")
	case errors.Is(err, ErrAwaitingPayment):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "order is still awaiting payment")
	case errors.Is(err, ErrInvalidStatusTransition):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "order cannot move to the requested status")
	case errors.Is(err, ErrInvalidVoucher),
		errors.Is(err, ErrVoucherAlreadyUsed),
		errors.Is(err, ErrVoucherExpired):
		return vouchers.MapError(err)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order processing failed")
}
