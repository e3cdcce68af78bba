package catalog

import (
	"fmt"

	"github.com/MonetizedMCP/starter-kit-template/x402"
)

// PaymentMethodEntry is a wallet that accepts one payment method.
type PaymentMethodEntry struct {
	WalletAddress string             `json:"walletAddress" validate:"required,eth_addr"`
	PaymentMethod x402.PaymentMethod `json:"paymentMethod" validate:"required"`
}

// Registry is the immutable list of accepted payment methods.
type Registry struct {
	entries []PaymentMethodEntry
}

// NewRegistry validates entries and returns a registry holding a private copy.
func NewRegistry(entries []PaymentMethodEntry) (*Registry, error) {
	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			return nil, fmt.Errorf("payment method %d: %w", i, err)
		}
		if !e.PaymentMethod.Valid() {
			return nil, fmt.Errorf("payment method %d: %w: %s", i, x402.ErrUnsupportedPaymentMethod, e.PaymentMethod)
		}
	}
	return &Registry{entries: append([]PaymentMethodEntry(nil), entries...)}, nil
}

// DefaultRegistry accepts USDC on Base mainnet into wallet.
func DefaultRegistry(wallet string) (*Registry, error) {
	return NewRegistry([]PaymentMethodEntry{
		{WalletAddress: wallet, PaymentMethod: x402.USDCBaseMainnet},
	})
}

// List returns a copy of every entry.
func (r *Registry) List() []PaymentMethodEntry {
	return append([]PaymentMethodEntry{}, r.entries...)
}

// Wallet returns the wallet that accepts method.
func (r *Registry) Wallet(method x402.PaymentMethod) (string, bool) {
	for _, e := range r.entries {
		if e.PaymentMethod == method {
			return e.WalletAddress, true
		}
	}
	return "", false
}
