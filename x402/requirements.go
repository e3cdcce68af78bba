package x402

import (
	"github.com/shopspring/decimal"
)

// NewRequirements builds the payment option that a catalog price maps to.
// The server uses it to check incoming proofs and buyers use it to sign them,
// so both sides agree on amount, asset and EIP-3009 domain.
func NewRequirements(method PaymentMethod, amount decimal.Decimal, payTo string) (PaymentRequirements, error) {
	chain, err := method.Chain()
	if err != nil {
		return PaymentRequirements{}, err
	}

	atomic, err := ToAtomicUnits(amount, chain.Decimals)
	if err != nil {
		return PaymentRequirements{}, NewPaymentError(ErrCodeInvalidAmount, "price cannot be expressed in token units", err).
			WithDetails("amount", amount.String()).
			WithDetails("paymentMethod", method.String())
	}

	return PaymentRequirements{
		Scheme:            SchemeExact,
		Network:           chain.Network,
		Amount:            atomic.String(),
		Asset:             chain.Asset,
		PayTo:             payTo,
		MaxTimeoutSeconds: DefaultMaxTimeoutSeconds,
		Extra: map[string]interface{}{
			"name":    chain.EIP3009Name,
			"version": chain.EIP3009Version,
		},
	}, nil
}

// MatchRequirement checks that a payment was made against the offered option.
// Returns ErrUnsupportedScheme if network or scheme differ.
func MatchRequirement(payment *PaymentPayload, requirement PaymentRequirements) error {
	if payment.Accepted.Network == requirement.Network && payment.Accepted.Scheme == requirement.Scheme {
		return nil
	}
	return NewPaymentError(
		ErrCodeUnsupportedScheme,
		"no matching requirement for network and scheme",
		ErrUnsupportedScheme,
	).WithDetails("network", payment.Accepted.Network).WithDetails("scheme", payment.Accepted.Scheme)
}
