package facilitator

import "time"

// Timeouts bounds facilitator calls.
type Timeouts struct {
	// Verify is the maximum time to wait for /verify.
	Verify time.Duration

	// Settle is the maximum time to wait for /settle. Settlement waits for a block.
	Settle time.Duration

	// Supported is the maximum time to wait for /supported.
	Supported time.Duration

	// Request is the overall HTTP client timeout.
	Request time.Duration
}

// DefaultTimeouts are used when a Client has none configured.
var DefaultTimeouts = Timeouts{
	Verify:    5 * time.Second,
	Settle:    60 * time.Second,
	Supported: 10 * time.Second,
	Request:   120 * time.Second,
}
