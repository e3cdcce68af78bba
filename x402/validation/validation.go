// Package validation checks x402 payment data before it is sent to a facilitator.
package validation

import (
	"fmt"
	"math/big"
	"net/url"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MonetizedMCP/starter-kit-template/x402"
	"github.com/MonetizedMCP/starter-kit-template/x402/encoding"
)

// ValidateAmount validates that an amount string is a non-negative base-10 integer.
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount cannot be empty")
	}

	amt, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return fmt.Errorf("invalid amount format: %s", amount)
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("amount cannot be negative, got: %s", amount)
	}
	return nil
}

// ValidateNetwork validates a CAIP-2 EVM network identifier.
func ValidateNetwork(network string) error {
	if network == "" {
		return fmt.Errorf("network cannot be empty")
	}
	_, err := x402.GetChainID(network)
	return err
}

// ValidateAddress validates a hex EVM address.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid EVM address format: %s (expected 0x followed by 40 hex characters)", address)
	}
	return nil
}

// ValidateResourceInfo requires a parseable resource URL.
func ValidateResourceInfo(resource x402.ResourceInfo) error {
	if resource.URL == "" {
		return fmt.Errorf("resource URL cannot be empty")
	}
	if _, err := url.Parse(resource.URL); err != nil {
		return fmt.Errorf("invalid resource URL: %w", err)
	}
	return nil
}

// ValidatePaymentRequirements validates the amount, network, addresses,
// scheme and EIP-3009 domain of a requirement.
func ValidatePaymentRequirements(req x402.PaymentRequirements) error {
	if err := ValidateAmount(req.Amount); err != nil {
		return fmt.Errorf("invalid requirements: %w", err)
	}
	if err := ValidateNetwork(req.Network); err != nil {
		return fmt.Errorf("invalid requirements: %w", err)
	}
	if err := ValidateAddress(req.PayTo); err != nil {
		return fmt.Errorf("invalid requirements: payTo %w", err)
	}
	if err := ValidateAddress(req.Asset); err != nil {
		return fmt.Errorf("invalid requirements: asset %w", err)
	}

	switch req.Scheme {
	case x402.SchemeExact:
	case "":
		return fmt.Errorf("invalid requirements: scheme cannot be empty")
	default:
		return fmt.Errorf("invalid requirements: unsupported scheme %s", req.Scheme)
	}

	if req.MaxTimeoutSeconds < 0 {
		return fmt.Errorf("invalid requirements: timeout cannot be negative: %d", req.MaxTimeoutSeconds)
	}

	if name, ok := req.Extra["name"].(string); ok && name == "" {
		return fmt.Errorf("invalid requirements: EIP-3009 name cannot be empty")
	}
	if version, ok := req.Extra["version"].(string); ok && version == "" {
		return fmt.Errorf("invalid requirements: EIP-3009 version cannot be empty")
	}

	return nil
}

// ValidatePaymentPayload validates the version, accepted requirement and
// EIP-3009 authorization of a submitted proof.
func ValidatePaymentPayload(payload x402.PaymentPayload) error {
	if payload.X402Version != x402.X402Version {
		return fmt.Errorf("unsupported x402 version: %d (expected %d)", payload.X402Version, x402.X402Version)
	}
	if payload.Accepted.Scheme == "" {
		return fmt.Errorf("accepted scheme cannot be empty")
	}
	if err := ValidateNetwork(payload.Accepted.Network); err != nil {
		return fmt.Errorf("invalid accepted network: %w", err)
	}

	if payload.Resource != nil {
		if err := ValidateResourceInfo(*payload.Resource); err != nil {
			return fmt.Errorf("invalid resource: %w", err)
		}
	}

	evm, err := encoding.DecodeEVMPayload(payload)
	if err != nil {
		return err
	}
	if evm.Signature == "" {
		return fmt.Errorf("signature cannot be empty")
	}
	if err := ValidateAddress(evm.Authorization.From); err != nil {
		return fmt.Errorf("invalid authorization: from %w", err)
	}
	if err := ValidateAddress(evm.Authorization.To); err != nil {
		return fmt.Errorf("invalid authorization: to %w", err)
	}
	if err := ValidateAmount(evm.Authorization.Value); err != nil {
		return fmt.Errorf("invalid authorization: %w", err)
	}

	return nil
}
