// Package catalog holds the fixed list of purchasable items and the payment
// methods the server accepts. Both are built once at startup and never change.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/MonetizedMCP/starter-kit-template/x402"
)

// Price is an amount in a payment method's display unit (e.g. USDC, not atomic units).
type Price struct {
	Amount        decimal.Decimal    `json:"amount"`
	PaymentMethod x402.PaymentMethod `json:"paymentMethod" validate:"required"`
}

// MarshalJSON writes the amount as a JSON number.
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount        json.Number        `json:"amount"`
		PaymentMethod x402.PaymentMethod `json:"paymentMethod"`
	}{
		Amount:        json.Number(p.Amount.String()),
		PaymentMethod: p.PaymentMethod,
	})
}

// PurchasableItem is something a caller can buy.
type PurchasableItem struct {
	ID          string            `json:"id" validate:"required"`
	Name        string            `json:"name" validate:"required"`
	Description string            `json:"description"`
	Price       Price             `json:"price"`
	Params      map[string]string `json:"params,omitempty"`
}

func (it PurchasableItem) clone() PurchasableItem {
	if it.Params != nil {
		params := make(map[string]string, len(it.Params))
		for k, v := range it.Params {
			params[k] = v
		}
		it.Params = params
	}
	return it
}

// Catalog is an immutable item list.
type Catalog struct {
	items []PurchasableItem
}

// New validates items and returns a catalog holding a private copy.
func New(items []PurchasableItem) (*Catalog, error) {
	if err := Validate(items); err != nil {
		return nil, err
	}
	return &Catalog{items: cloneItems(items)}, nil
}

// Items returns every item in declaration order.
func (c *Catalog) Items() []PurchasableItem {
	return cloneItems(c.items)
}

// Filter returns the items whose name contains query, ignoring case.
// An empty query returns the whole catalog.
func (c *Catalog) Filter(query string) []PurchasableItem {
	if query == "" {
		return c.Items()
	}

	needle := strings.ToLower(query)
	matches := make([]PurchasableItem, 0, len(c.items))
	for _, it := range c.items {
		if strings.Contains(strings.ToLower(it.Name), needle) {
			matches = append(matches, it.clone())
		}
	}
	return matches
}

// Find returns the item whose id and payment method both match.
func (c *Catalog) Find(id string, method x402.PaymentMethod) (PurchasableItem, bool) {
	for _, it := range c.items {
		if it.ID == id && it.Price.PaymentMethod == method {
			return it.clone(), true
		}
	}
	return PurchasableItem{}, false
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required fields, unique ids per payment method, known
// payment methods and amounts expressible in the method's token precision.
func Validate(items []PurchasableItem) error {
	type key struct {
		id     string
		method x402.PaymentMethod
	}
	seen := make(map[key]bool, len(items))

	for i, it := range items {
		if err := validate.Struct(it); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}

		chain, err := it.Price.PaymentMethod.Chain()
		if err != nil {
			return fmt.Errorf("item %q: %w", it.ID, err)
		}
		if !it.Price.Amount.IsPositive() {
			return fmt.Errorf("item %q: price must be positive, got %s", it.ID, it.Price.Amount)
		}
		if _, err := x402.ToAtomicUnits(it.Price.Amount, chain.Decimals); err != nil {
			return fmt.Errorf("item %q: %w", it.ID, err)
		}

		k := key{it.ID, it.Price.PaymentMethod}
		if seen[k] {
			return fmt.Errorf("item %q: duplicate id for payment method %s", it.ID, it.Price.PaymentMethod)
		}
		seen[k] = true
	}
	return nil
}

func cloneItems(items []PurchasableItem) []PurchasableItem {
	out := make([]PurchasableItem, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}
