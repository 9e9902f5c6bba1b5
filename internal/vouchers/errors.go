package vouchers

import "errors"

var (
	ErrInvalidVoucher     = errors.New("voucher not granted to user")
	ErrVoucherAlreadyUsed = errors.New("voucher already used")
	ErrVoucherExpired     = errors.New("voucher expired or inactive")
	ErrDiscountNotFound   = errors.New("discount not found")
)
