package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrItemNotFound        = errors.New("cart item not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrBookNotFound        = errors.New("book not found")
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrPaymentProcessor    = errors.New("payment processor error")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrCheckoutFailed      = errors.New("checkout could not be recorded")
	ErrDuplicateCheckout   = errors.New("checkout already completed")
	ErrIllegalTransition   = errors.New("illegal transition of checkout status")
	ErrInvalidProfile      = errors.New("invalid profile")
	ErrCatalogUnavailable  = errors.New("catalog unavailable")
)
