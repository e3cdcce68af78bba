package mcp

import "errors"

// Errors returned by a Dispatcher wrap one of these. The text is what a
// caller sees before the underlying cause.
var (
	ErrPriceListing   = errors.New("failed to get price listing")
	ErrPaymentMethods = errors.New("failed to get payment methods")
	ErrPurchase       = errors.New("failed to make purchase")
)
