// Package mcp defines the MonetizedMCP tool contract: the three tools a
// seller exposes, their request and response shapes, and the Dispatcher
// that implements them.
package mcp

import (
	"context"

	"github.com/MonetizedMCP/starter-kit-template/catalog"
	"github.com/MonetizedMCP/starter-kit-template/x402"
)

// Tool names.
const (
	ToolPriceListing   = "price-listing"
	ToolPaymentMethods = "payment-methods"
	ToolMakePurchase   = "make-purchase"
)

// Purchase outcomes reported in MakePurchaseResponse.ToolResult.
const (
	ResultItemNotFound      = "Item not found. Please check the item ID and payment method."
	ResultPaymentSuccessful = "Payment successful"
	ResultPaymentFailed     = "Payment failed: "
	ResultUnknownError      = "Unknown error"
)

// PriceListingRequest filters the catalog by item name.
type PriceListingRequest struct {
	SearchQuery string `json:"searchQuery,omitempty"`
}

// PriceListingResponse lists the matching items.
type PriceListingResponse struct {
	Items []catalog.PurchasableItem `json:"items"`
}

// PaymentMethodsResponse lists the accepted payment methods and their wallets.
type PaymentMethodsResponse []catalog.PaymentMethodEntry

// MakePurchaseRequest buys one item. SignedTransaction is the base64 x402 payment payload.
type MakePurchaseRequest struct {
	ItemID            string             `json:"itemId"`
	PaymentMethod     x402.PaymentMethod `json:"paymentMethod"`
	SignedTransaction string             `json:"signedTransaction"`
	Params            map[string]any     `json:"params,omitempty"`
}

// MakePurchaseResponse reports a purchase. A not-found item or a rejected
// payment is still a response; only ToolResult differs.
type MakePurchaseResponse struct {
	PurchasableItemID   string              `json:"purchasableItemId"`
	MakePurchaseRequest MakePurchaseRequest `json:"makePurchaseRequest"`
	OrderID             string              `json:"orderId"`
	ToolResult          string              `json:"toolResult"`
}

// Succeeded reports whether the purchase was paid for.
func (r *MakePurchaseResponse) Succeeded() bool {
	return r.ToolResult == ResultPaymentSuccessful
}

// Dispatcher answers the three MonetizedMCP requests.
type Dispatcher interface {
	PriceListing(ctx context.Context, req PriceListingRequest) (*PriceListingResponse, error)
	PaymentMethods(ctx context.Context) (PaymentMethodsResponse, error)
	MakePurchase(ctx context.Context, req MakePurchaseRequest) (*MakePurchaseResponse, error)
}
