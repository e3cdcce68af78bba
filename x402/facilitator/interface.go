// Package facilitator talks to x402 facilitator services, which verify EIP-3009
// payment authorizations and settle them on chain.
package facilitator

import (
	"context"

	"github.com/MonetizedMCP/starter-kit-template/x402"
)

// Interface is the facilitator contract used by the purchase flow.
type Interface interface {
	// Verify checks a payment authorization without executing it.
	Verify(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.VerifyResponse, error)

	// Settle executes a verified payment on chain.
	Settle(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.SettleResponse, error)

	// Supported lists the payment kinds the facilitator can process.
	Supported(ctx context.Context) (*x402.SupportedResponse, error)
}

// VerifyRequest is the body sent to POST /verify.
type VerifyRequest struct {
	X402Version         int                      `json:"x402Version"`
	PaymentPayload      x402.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements x402.PaymentRequirements `json:"paymentRequirements"`
}

// SettleRequest is the body sent to POST /settle.
type SettleRequest struct {
	X402Version         int                      `json:"x402Version"`
	PaymentPayload      x402.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements x402.PaymentRequirements `json:"paymentRequirements"`
}
