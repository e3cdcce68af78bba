package x402

// Signer creates signed payment payloads for one network.
type Signer interface {
	// Network returns the CAIP-2 network identifier the signer operates on.
	Network() string

	// CanSign reports whether the signer holds the required asset on the required network.
	CanSign(requirements *PaymentRequirements) bool

	// Sign creates a signed PaymentPayload for the given requirements.
	Sign(requirements *PaymentRequirements) (*PaymentPayload, error)
}
