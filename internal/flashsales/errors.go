package flashsales

import "errors"

var (
	ErrQuotaExhausted    = errors.New("flash sale quota exhausted")
	ErrSaleNotFound      = errors.New("flash sale not found")
	ErrInvalidWindow     = errors.New("flash sale must end after it starts")
	ErrDuplicateProduct  = errors.New("product listed twice in flash sale")
	ErrUnknownProduct    = errors.New("flash sale references an unknown product")
	ErrCapacityBelowSold = errors.New("capacity cannot drop below units already sold")
)
