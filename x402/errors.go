package x402

import "errors"

// Sentinel errors for payment operations.
var (
	// ErrInvalidAmount indicates an amount that cannot be expressed in atomic units.
	ErrInvalidAmount = errors.New("x402: invalid amount")

	// ErrInvalidKey indicates an invalid private key.
	ErrInvalidKey = errors.New("x402: invalid private key")

	// ErrInvalidNetwork indicates a malformed or unsupported CAIP-2 network.
	ErrInvalidNetwork = errors.New("x402: invalid or unsupported network")

	// ErrUnsupportedPaymentMethod indicates a payment method with no chain mapping.
	ErrUnsupportedPaymentMethod = errors.New("x402: unsupported payment method")

	// ErrNoValidSigner indicates the signer cannot satisfy the requirements.
	ErrNoValidSigner = errors.New("x402: no signer can satisfy payment requirements")

	// ErrAmountExceeded indicates the payment amount exceeds the signer's per-call limit.
	ErrAmountExceeded = errors.New("x402: payment amount exceeds per-call limit")

	// ErrFacilitatorUnavailable indicates the facilitator could not be reached.
	ErrFacilitatorUnavailable = errors.New("x402: facilitator service unavailable")

	// ErrVerificationFailed indicates the facilitator rejected a verify call.
	ErrVerificationFailed = errors.New("x402: payment verification failed")

	// ErrSettlementFailed indicates the facilitator rejected a settle call.
	ErrSettlementFailed = errors.New("x402: payment settlement failed")

	// ErrMalformedHeader indicates a proof that does not decode to a payment payload.
	ErrMalformedHeader = errors.New("x402: malformed payment header")

	// ErrUnsupportedScheme indicates a payload for a scheme or network the server did not offer.
	ErrUnsupportedScheme = errors.New("x402: unsupported payment scheme")
)

// ErrorCode classifies a PaymentError for programmatic handling.
type ErrorCode string

const (
	ErrCodeMalformedPayload  ErrorCode = "MALFORMED_PAYLOAD"
	ErrCodeUnsupportedScheme ErrorCode = "UNSUPPORTED_SCHEME"
	ErrCodeInvalidAmount     ErrorCode = "INVALID_AMOUNT"
	ErrCodeSigningFailed     ErrorCode = "SIGNING_FAILED"
	ErrCodeNoValidSigner     ErrorCode = "NO_VALID_SIGNER"
)

// PaymentError provides structured error information.
type PaymentError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a PaymentError with the given code and message.
func NewPaymentError(code ErrorCode, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds context to the error.
func (e *PaymentError) WithDetails(key string, value interface{}) *PaymentError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}
