// Package encoding converts x402 payment proofs to and from the base64 JSON
// form carried in the make-purchase signedTransaction argument.
package encoding

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MonetizedMCP/starter-kit-template/x402"
)

// EncodePayment converts a PaymentPayload to a base64-encoded JSON string.
func EncodePayment(payment x402.PaymentPayload) (string, error) {
	paymentJSON, err := json.Marshal(payment)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment: %w", err)
	}
	return base64.StdEncoding.EncodeToString(paymentJSON), nil
}

// DecodePayment converts a base64-encoded JSON string to a PaymentPayload.
// Standard and URL-safe alphabets are accepted, padded or not.
//
// Every failure wraps x402.ErrMalformedHeader.
func DecodePayment(encoded string) (x402.PaymentPayload, error) {
	var payment x402.PaymentPayload

	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return payment, fmt.Errorf("%w: empty payment", x402.ErrMalformedHeader)
	}

	decoded, err := decodeBase64(encoded)
	if err != nil {
		return payment, fmt.Errorf("%w: failed to decode base64: %v", x402.ErrMalformedHeader, err)
	}

	if err := json.Unmarshal(decoded, &payment); err != nil {
		return payment, fmt.Errorf("%w: failed to unmarshal payment: %v", x402.ErrMalformedHeader, err)
	}

	return payment, nil
}

// DecodeEVMPayload extracts the EIP-3009 authorization from a decoded payload.
func DecodeEVMPayload(payment x402.PaymentPayload) (x402.EVMPayload, error) {
	var evm x402.EVMPayload

	if payment.Payload == nil {
		return evm, fmt.Errorf("%w: payload is missing", x402.ErrMalformedHeader)
	}

	raw, err := json.Marshal(payment.Payload)
	if err != nil {
		return evm, fmt.Errorf("%w: %v", x402.ErrMalformedHeader, err)
	}
	if err := json.Unmarshal(raw, &evm); err != nil {
		return evm, fmt.Errorf("%w: payload is not an EVM authorization: %v", x402.ErrMalformedHeader, err)
	}

	return evm, nil
}

func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}

	var firstErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
