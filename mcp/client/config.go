// Package client calls a MonetizedMCP server over streamable HTTP and pays
// for purchases with an x402 signer.
package client

import (
	"log/slog"

	"github.com/MonetizedMCP/starter-kit-template/x402"
)

// Config holds client settings.
type Config struct {
	// ServerURL is the MCP endpoint, e.g. "http://localhost:3000/mcp".
	ServerURL string

	// Name and Version identify the client during initialization.
	Name    string
	Version string

	OnPaymentAttempt x402.PaymentCallback
	OnPaymentSuccess x402.PaymentCallback
	OnPaymentFailure x402.PaymentCallback

	Logger *slog.Logger
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig(serverURL string) *Config {
	return &Config{
		ServerURL: serverURL,
		Name:      "monetized-mcp-client",
		Version:   "1.0.0",
		Logger:    slog.Default(),
	}
}

// Option configures a Client.
type Option func(*Config)

// WithClientInfo sets the name and version sent during initialization.
func WithClientInfo(name, version string) Option {
	return func(c *Config) {
		c.Name = name
		c.Version = version
	}
}

// WithPaymentCallback sets one callback for every payment event.
func WithPaymentCallback(callback x402.PaymentCallback) Option {
	return func(c *Config) {
		c.OnPaymentAttempt = callback
		c.OnPaymentSuccess = callback
		c.OnPaymentFailure = callback
	}
}

func WithPaymentAttemptCallback(callback x402.PaymentCallback) Option {
	return func(c *Config) {
		c.OnPaymentAttempt = callback
	}
}

func WithPaymentSuccessCallback(callback x402.PaymentCallback) Option {
	return func(c *Config) {
		c.OnPaymentSuccess = callback
	}
}

func WithPaymentFailureCallback(callback x402.PaymentCallback) Option {
	return func(c *Config) {
		c.OnPaymentFailure = callback
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
