// Package evm signs x402 exact-scheme payments with an EVM private key.
package evm

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/MonetizedMCP/starter-kit-template/x402"
	"github.com/MonetizedMCP/starter-kit-template/x402/internal/eip3009"
)

// Signer pays in USDC for one payment method.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	method     x402.PaymentMethod
	chain      x402.ChainConfig
	chainID    int64
	maxAmount  *big.Int
}

var _ x402.Signer = (*Signer)(nil)

// Option configures a Signer.
type Option func(*Signer) error

// WithMaxAmount caps the atomic amount a single Sign call will authorize.
func WithMaxAmount(amount *big.Int) Option {
	return func(s *Signer) error {
		if amount == nil || amount.Sign() < 0 {
			return x402.ErrInvalidAmount
		}
		s.maxAmount = amount
		return nil
	}
}

// NewSigner creates a signer from a hex private key, with or without 0x.
func NewSigner(method x402.PaymentMethod, privateKeyHex string, opts ...Option) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, x402.ErrInvalidKey
	}
	return NewSignerFromKey(method, key, opts...)
}

// NewSignerFromKey creates a signer from an existing key.
func NewSignerFromKey(method x402.PaymentMethod, key *ecdsa.PrivateKey, opts ...Option) (*Signer, error) {
	chain, err := method.Chain()
	if err != nil {
		return nil, err
	}
	chainID, err := x402.GetChainID(chain.Network)
	if err != nil {
		return nil, err
	}

	s := &Signer{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		method:     method,
		chain:      chain,
		chainID:    chainID,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Signer) Network() string {
	return s.chain.Network
}

// PaymentMethod returns the method the signer pays with.
func (s *Signer) PaymentMethod() x402.PaymentMethod {
	return s.method
}

// Address returns the payer address.
func (s *Signer) Address() common.Address {
	return s.address
}

// CanSign reports whether the requirement asks for this signer's token on its network.
func (s *Signer) CanSign(requirements *x402.PaymentRequirements) bool {
	return requirements.Scheme == x402.SchemeExact &&
		requirements.Network == s.chain.Network &&
		strings.EqualFold(requirements.Asset, s.chain.Asset)
}

// Sign produces a payload that authorizes exactly requirements.Amount to requirements.PayTo.
func (s *Signer) Sign(requirements *x402.PaymentRequirements) (*x402.PaymentPayload, error) {
	if !s.CanSign(requirements) {
		return nil, x402.ErrNoValidSigner
	}

	amount, ok := new(big.Int).SetString(requirements.Amount, 10)
	if !ok || amount.Sign() < 0 {
		return nil, x402.ErrInvalidAmount
	}
	if s.maxAmount != nil && amount.Cmp(s.maxAmount) > 0 {
		return nil, x402.ErrAmountExceeded
	}

	name, version, err := domainParams(requirements, s.chain)
	if err != nil {
		return nil, err
	}

	auth, err := eip3009.NewAuthorization(s.address, common.HexToAddress(requirements.PayTo), amount, requirements.MaxTimeoutSeconds)
	if err != nil {
		return nil, err
	}

	signature, err := eip3009.Sign(s.privateKey, eip3009.Domain{
		Name:     name,
		Version:  version,
		ChainID:  big.NewInt(s.chainID),
		Contract: common.HexToAddress(s.chain.Asset),
	}, auth)
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to sign payment", err)
	}

	return &x402.PaymentPayload{
		X402Version: x402.X402Version,
		Accepted:    *requirements,
		Payload: x402.EVMPayload{
			Signature: signature,
			Authorization: x402.EVMAuthorization{
				From:        auth.From.Hex(),
				To:          auth.To.Hex(),
				Value:       auth.Value.String(),
				ValidAfter:  auth.ValidAfter.String(),
				ValidBefore: auth.ValidBefore.String(),
				Nonce:       common.BytesToHash(auth.Nonce[:]).Hex(),
			},
		},
	}, nil
}

// domainParams reads the EIP-712 domain from Extra, falling back to the chain defaults.
func domainParams(requirements *x402.PaymentRequirements, chain x402.ChainConfig) (name, version string, err error) {
	name, version = chain.EIP3009Name, chain.EIP3009Version

	if v, ok := requirements.Extra["name"]; ok {
		if name, ok = v.(string); !ok {
			return "", "", fmt.Errorf("invalid EIP-3009 parameter: name is not a string")
		}
	}
	if v, ok := requirements.Extra["version"]; ok {
		if version, ok = v.(string); !ok {
			return "", "", fmt.Errorf("invalid EIP-3009 parameter: version is not a string")
		}
	}
	return name, version, nil
}
