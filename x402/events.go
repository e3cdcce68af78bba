package x402

import "time"

// PaymentEventType represents the stage of a purchase payment.
type PaymentEventType string

const (
	// PaymentEventAttempt is emitted once a proof has been signed and is being submitted.
	PaymentEventAttempt PaymentEventType = "attempt"

	// PaymentEventSuccess is emitted when the server reports a settled payment.
	PaymentEventSuccess PaymentEventType = "success"

	// PaymentEventFailure is emitted when signing or settlement fails.
	PaymentEventFailure PaymentEventType = "failure"
)

// PaymentEvent describes one step of a buyer-side purchase.
type PaymentEvent struct {
	Type      PaymentEventType
	Timestamp time.Time

	// ItemID is the catalog item being bought.
	ItemID string

	// PaymentMethod is the method the buyer paid with.
	PaymentMethod PaymentMethod

	// Amount is the payment amount in atomic units.
	Amount string

	Network   string
	Recipient string

	// OrderID is the server-assigned order identifier (success and soft failures).
	OrderID string

	// Result is the server's human-readable outcome.
	Result string

	Error    error
	Duration time.Duration
}

// PaymentCallback handles payment events. Callbacks run synchronously.
type PaymentCallback func(PaymentEvent)
