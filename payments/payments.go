// Package payments verifies and settles x402 payment proofs through a facilitator.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/MonetizedMCP/starter-kit-template/x402"
	"github.com/MonetizedMCP/starter-kit-template/x402/encoding"
	"github.com/MonetizedMCP/starter-kit-template/x402/facilitator"
	"github.com/MonetizedMCP/starter-kit-template/x402/validation"
)

// Options describe one verify-and-settle call.
type Options struct {
	// FacilitatorURL selects the facilitator for this call.
	FacilitatorURL string

	// PaymentHeader is the base64 JSON payment payload signed by the buyer.
	PaymentHeader string

	// Resource identifies what is being bought. It fills the payload's
	// resource when the buyer left it empty.
	Resource string

	PaymentMethod x402.PaymentMethod
}

// Result is the outcome of a verify-and-settle call. A rejected payment is a
// Result with Success false, not an error.
type Result struct {
	Success     bool
	Error       string
	Transaction string
	Payer       string
	Network     string
}

func failed(reason string) *Result {
	return &Result{Success: false, Error: reason}
}

// FacilitatorFactory returns the facilitator for a base URL.
type FacilitatorFactory func(baseURL string) facilitator.Interface

// Config configures Tools.
type Config struct {
	// NewFacilitator builds clients on first use of a URL.
	NewFacilitator FacilitatorFactory

	// FallbackURL is tried when the primary facilitator is unreachable.
	FallbackURL string

	Logger *slog.Logger
}

// Tools settles purchases. It is safe for concurrent use.
type Tools struct {
	newFacilitator FacilitatorFactory
	fallbackURL    string
	logger         *slog.Logger

	mu      sync.Mutex
	clients map[string]facilitator.Interface
}

// New returns Tools. NewFacilitator defaults to an unauthenticated facilitator.Client.
func New(cfg Config) *Tools {
	newFacilitator := cfg.NewFacilitator
	if newFacilitator == nil {
		newFacilitator = func(baseURL string) facilitator.Interface {
			return facilitator.NewClient(baseURL, nil)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{
		newFacilitator: newFacilitator,
		fallbackURL:    cfg.FallbackURL,
		logger:         logger,
		clients:        make(map[string]facilitator.Interface),
	}
}

func (t *Tools) facilitator(baseURL string) facilitator.Interface {
	key := strings.TrimRight(baseURL, "/")

	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[key]; ok {
		return c
	}
	c := t.newFacilitator(key)
	t.clients[key] = c
	return c
}

// VerifyAndSettle checks that the proof in opts pays amount of
// opts.PaymentMethod to payTo, then settles it.
//
// Proofs that cannot be decoded, that target another network or scheme, or
// that the facilitator rejects produce a failed Result. Errors are returned
// only when the facilitator cannot be used at all.
func (t *Tools) VerifyAndSettle(ctx context.Context, amount decimal.Decimal, payTo string, opts Options) (*Result, error) {
	requirements, err := x402.NewRequirements(opts.PaymentMethod, amount, payTo)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePaymentRequirements(requirements); err != nil {
		return nil, err
	}

	logger := t.logger.With(
		"paymentMethod", opts.PaymentMethod,
		"network", requirements.Network,
		"amount", requirements.Amount,
		"payTo", payTo,
	)

	payment, err := encoding.DecodePayment(opts.PaymentHeader)
	if err != nil {
		logger.WarnContext(ctx, "rejecting malformed payment", "error", err)
		return failed(err.Error()), nil
	}
	if err := validation.ValidatePaymentPayload(payment); err != nil {
		logger.WarnContext(ctx, "rejecting invalid payment", "error", err)
		return failed(fmt.Sprintf("invalid payment: %v", err)), nil
	}
	if err := x402.MatchRequirement(&payment, requirements); err != nil {
		logger.WarnContext(ctx, "payment does not match requirements", "error", err)
		return failed(err.Error()), nil
	}
	if payment.Resource == nil && opts.Resource != "" {
		payment.Resource = &x402.ResourceInfo{URL: opts.Resource}
	}

	primary := t.facilitator(opts.FacilitatorURL)

	verifyResp, err := primary.Verify(ctx, payment, requirements)
	if err != nil && t.useFallback(opts.FacilitatorURL, err) {
		logger.WarnContext(ctx, "primary facilitator failed, trying fallback", "error", err)
		primary = t.facilitator(t.fallbackURL)
		verifyResp, err = primary.Verify(ctx, payment, requirements)
	}
	if reason, ok := rejection(err); ok {
		logger.WarnContext(ctx, "facilitator rejected payment", "reason", reason)
		return failed(reason), nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "facilitator verification failed", "error", err)
		return nil, fmt.Errorf("verify payment: %w", err)
	}
	if !verifyResp.IsValid {
		logger.WarnContext(ctx, "payment verification failed", "reason", verifyResp.Reason(), "payer", verifyResp.Payer)
		return failed(verifyResp.Reason()), nil
	}
	logger.InfoContext(ctx, "payment verified", "payer", verifyResp.Payer)

	settleResp, err := primary.Settle(ctx, payment, requirements)
	if reason, ok := rejection(err); ok {
		logger.WarnContext(ctx, "facilitator rejected settlement", "reason", reason)
		return failed(reason), nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "settlement failed", "error", err)
		return nil, fmt.Errorf("settle payment: %w", err)
	}
	if !settleResp.Success {
		logger.WarnContext(ctx, "payment settlement rejected", "reason", settleResp.Reason())
		return failed(settleResp.Reason()), nil
	}

	payer := settleResp.Payer
	if payer == "" {
		payer = verifyResp.Payer
	}
	logger.InfoContext(ctx, "payment settled", "transaction", settleResp.Transaction, "payer", payer)

	return &Result{
		Success:     true,
		Transaction: settleResp.Transaction,
		Payer:       payer,
		Network:     settleResp.Network,
	}, nil
}

// rejection returns the reason when err is a facilitator refusal of the
// payment rather than a facilitator failure.
func rejection(err error) (string, bool) {
	var statusErr *facilitator.StatusError
	if errors.As(err, &statusErr) && statusErr.Rejected() {
		return statusErr.Reason, true
	}
	return "", false
}

func (t *Tools) useFallback(primaryURL string, err error) bool {
	return t.fallbackURL != "" &&
		strings.TrimRight(t.fallbackURL, "/") != strings.TrimRight(primaryURL, "/") &&
		errors.Is(err, x402.ErrFacilitatorUnavailable)
}

// CheckSupported logs a warning for every payment method the facilitator does not list.
func (t *Tools) CheckSupported(ctx context.Context, facilitatorURL string, methods []x402.PaymentMethod) error {
	supported, err := t.facilitator(facilitatorURL).Supported(ctx)
	if err != nil {
		return fmt.Errorf("query supported payment kinds: %w", err)
	}

	for _, m := range methods {
		chain, err := m.Chain()
		if err != nil {
			return err
		}
		if !supported.Supports(chain.Network, x402.SchemeExact) {
			t.logger.WarnContext(ctx, "facilitator does not list payment method",
				"facilitator", facilitatorURL,
				"paymentMethod", m,
				"network", chain.Network,
			)
		}
	}
	return nil
}
