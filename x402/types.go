// Package x402 holds the x402 version 2 payment types used to settle
// catalog purchases through a facilitator.
//
// Only the EVM "exact" scheme is modelled: a buyer signs an EIP-3009
// transferWithAuthorization for USDC and the facilitator verifies and
// executes it on chain.
package x402

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// X402Version is the protocol version carried by every payload.
const X402Version = 2

// SchemeExact is the only payment scheme accepted by the server.
const SchemeExact = "exact"

// DefaultMaxTimeoutSeconds is the validity window requested for payment authorizations.
const DefaultMaxTimeoutSeconds = 60

// ResourceInfo describes what is being paid for.
type ResourceInfo struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// PaymentRequirements is a single acceptable payment option.
type PaymentRequirements struct {
	// Scheme is the payment scheme identifier ("exact").
	Scheme string `json:"scheme"`

	// Network is the CAIP-2 network identifier (e.g. "eip155:8453").
	Network string `json:"network"`

	// Amount is the price in atomic token units.
	Amount string `json:"amount"`

	// Asset is the token contract address.
	Asset string `json:"asset"`

	// PayTo is the recipient wallet.
	PayTo string `json:"payTo"`

	// MaxTimeoutSeconds is the validity period for the authorization.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`

	// Extra carries the EIP-3009 domain "name" and "version".
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// PaymentPayload is the signed proof a buyer submits with a purchase.
type PaymentPayload struct {
	X402Version int                  `json:"x402Version"`
	Resource    *ResourceInfo        `json:"resource,omitempty"`
	Accepted    PaymentRequirements  `json:"accepted"`
	Payload     interface{}          `json:"payload"`
	Extensions  map[string]Extension `json:"extensions,omitempty"`
}

// Extension is a passthrough protocol extension.
type Extension struct {
	Info   map[string]interface{} `json:"info"`
	Schema map[string]interface{} `json:"schema"`
}

// EVMPayload contains EIP-3009 authorization data.
type EVMPayload struct {
	Signature     string           `json:"signature"`
	Authorization EVMAuthorization `json:"authorization"`
}

// EVMAuthorization contains transferWithAuthorization parameters.
type EVMAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// VerifyResponse is returned by the facilitator /verify endpoint.
type VerifyResponse struct {
	IsValid        bool   `json:"isValid"`
	InvalidReason  string `json:"invalidReason,omitempty"`
	InvalidMessage string `json:"invalidMessage,omitempty"`
	Payer          string `json:"payer,omitempty"`
}

// Reason returns the most descriptive rejection text available.
func (r *VerifyResponse) Reason() string {
	if r.InvalidMessage != "" {
		return r.InvalidMessage
	}
	return r.InvalidReason
}

// SettleResponse is returned by the facilitator /settle endpoint.
type SettleResponse struct {
	Success      bool   `json:"success"`
	ErrorReason  string `json:"errorReason,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Transaction  string `json:"transaction"`
	Network      string `json:"network"`
	Payer        string `json:"payer,omitempty"`
}

// Reason returns the most descriptive failure text available.
func (r *SettleResponse) Reason() string {
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	return r.ErrorReason
}

// SupportedKind describes a payment type a facilitator can process.
type SupportedKind struct {
	X402Version int                    `json:"x402Version"`
	Scheme      string                 `json:"scheme"`
	Network     string                 `json:"network"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// SupportedResponse is returned by the facilitator /supported endpoint.
type SupportedResponse struct {
	Kinds      []SupportedKind     `json:"kinds"`
	Extensions []string            `json:"extensions"`
	Signers    map[string][]string `json:"signers"`
}

// Supports reports whether the facilitator lists the network and scheme.
func (r *SupportedResponse) Supports(network, scheme string) bool {
	for _, kind := range r.Kinds {
		if kind.Network == network && kind.Scheme == scheme {
			return true
		}
	}
	return false
}

// ToAtomicUnits converts a decimal token amount to atomic units.
// For example 0.0001 with 6 decimals becomes 100.
// Returns ErrInvalidAmount for negative amounts or amounts finer than the token precision.
func ToAtomicUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if decimals < 0 || amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	scaled := amount.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, ErrInvalidAmount
	}
	return scaled.BigInt(), nil
}

// FromAtomicUnits converts atomic units back to a decimal token amount.
func FromAtomicUnits(value *big.Int, decimals int32) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -decimals)
}
