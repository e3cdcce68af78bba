package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/MonetizedMCP/starter-kit-template/x402"
)

// DefaultItems is the catalog the server ships with.
func DefaultItems() []PurchasableItem {
	return []PurchasableItem{
		{
			ID:          "1",
			Name:        "Get Salutation",
			Description: "Get Salutation to a person",
			Price: Price{
				Amount:        decimal.RequireFromString("0.0001"),
				PaymentMethod: x402.USDCBaseMainnet,
			},
			Params: map[string]string{
				"name": "Example: John Doe",
			},
		},
	}
}
