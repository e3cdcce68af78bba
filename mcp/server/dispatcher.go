package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MonetizedMCP/starter-kit-template/catalog"
	"github.com/MonetizedMCP/starter-kit-template/mcp"
	"github.com/MonetizedMCP/starter-kit-template/metrics"
	"github.com/MonetizedMCP/starter-kit-template/payments"
)

// PaymentFacility verifies and settles a payment proof.
type PaymentFacility interface {
	VerifyAndSettle(ctx context.Context, amount decimal.Decimal, payTo string, opts payments.Options) (*payments.Result, error)
}

// ShopConfig wires a Shop.
type ShopConfig struct {
	Catalog  *catalog.Catalog
	Registry *catalog.Registry
	Payments PaymentFacility

	// WalletAddress receives every payment.
	WalletAddress string

	FacilitatorURL string

	// Resource identifies the purchase endpoint in payment payloads.
	Resource string

	// Metrics defaults to metrics.NoopRecorder.
	Metrics metrics.Recorder

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// NewOrderID defaults to random UUIDs.
	NewOrderID func() string
}

// Shop is the Dispatcher backed by a fixed catalog.
type Shop struct {
	catalog        *catalog.Catalog
	registry       *catalog.Registry
	payments       PaymentFacility
	wallet         string
	facilitatorURL string
	resource       string
	metrics        metrics.Recorder
	logger         *slog.Logger
	newOrderID     func() string
}

var _ mcp.Dispatcher = (*Shop)(nil)

// NewShop returns a Shop. Catalog, Registry, Payments and WalletAddress are required.
func NewShop(cfg ShopConfig) (*Shop, error) {
	switch {
	case cfg.Catalog == nil:
		return nil, fmt.Errorf("catalog is required")
	case cfg.Registry == nil:
		return nil, fmt.Errorf("payment method registry is required")
	case cfg.Payments == nil:
		return nil, fmt.Errorf("payment facility is required")
	case cfg.WalletAddress == "":
		return nil, fmt.Errorf("wallet address is required")
	}

	s := &Shop{
		catalog:        cfg.Catalog,
		registry:       cfg.Registry,
		payments:       cfg.Payments,
		wallet:         cfg.WalletAddress,
		facilitatorURL: cfg.FacilitatorURL,
		resource:       cfg.Resource,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		newOrderID:     cfg.NewOrderID,
	}
	if s.metrics == nil {
		s.metrics = metrics.NoopRecorder{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.newOrderID == nil {
		s.newOrderID = func() string { return uuid.NewString() }
	}
	return s, nil
}

// PriceListing returns the catalog items whose name contains the search query.
func (s *Shop) PriceListing(ctx context.Context, req mcp.PriceListingRequest) (*mcp.PriceListingResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", mcp.ErrPriceListing, err)
	}

	items := s.catalog.Filter(req.SearchQuery)
	s.logger.DebugContext(ctx, "price listing", "searchQuery", req.SearchQuery, "matches", len(items))
	s.metrics.IncCounter("price_listing", nil)

	return &mcp.PriceListingResponse{Items: items}, nil
}

// PaymentMethods returns the accepted payment methods.
func (s *Shop) PaymentMethods(ctx context.Context) (mcp.PaymentMethodsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", mcp.ErrPaymentMethods, err)
	}
	s.metrics.IncCounter("payment_methods", nil)
	return s.registry.List(), nil
}

// MakePurchase settles the payment for the item matching both the id and the
// payment method. Unknown items and rejected payments are reported in
// ToolResult; only facility errors are returned.
func (s *Shop) MakePurchase(ctx context.Context, req mcp.MakePurchaseRequest) (*mcp.MakePurchaseResponse, error) {
	start := time.Now()

	resp := &mcp.MakePurchaseResponse{
		PurchasableItemID:   req.ItemID,
		MakePurchaseRequest: req,
		OrderID:             s.newOrderID(),
	}

	logger := s.logger.With(
		"orderId", resp.OrderID,
		"itemId", req.ItemID,
		"paymentMethod", req.PaymentMethod,
	)
	logger.InfoContext(ctx, "purchase requested", "params", req.Params)

	item, ok := s.catalog.Find(req.ItemID, req.PaymentMethod)
	if !ok {
		logger.InfoContext(ctx, "purchase item not found")
		s.record("not_found", req, start)
		resp.ToolResult = mcp.ResultItemNotFound
		return resp, nil
	}

	logger.InfoContext(ctx, "verifying payment",
		"item", item.Name,
		"amount", item.Price.Amount.String(),
		"wallet", s.wallet,
	)

	result, err := s.payments.VerifyAndSettle(ctx, item.Price.Amount, s.wallet, payments.Options{
		FacilitatorURL: s.facilitatorURL,
		PaymentHeader:  req.SignedTransaction,
		Resource:       s.resource,
		PaymentMethod:  req.PaymentMethod,
	})
	if err != nil {
		logger.ErrorContext(ctx, "purchase failed", "error", err)
		s.record("error", req, start)
		return nil, fmt.Errorf("%w: %w", mcp.ErrPurchase, err)
	}

	if result.Success {
		logger.InfoContext(ctx, "purchase paid", "transaction", result.Transaction, "payer", result.Payer)
		s.record("success", req, start)
		resp.ToolResult = mcp.ResultPaymentSuccessful
		return resp, nil
	}

	reason := result.Error
	if reason == "" {
		reason = mcp.ResultUnknownError
	}
	logger.WarnContext(ctx, "purchase payment rejected", "reason", reason)
	s.record("failed", req, start)
	resp.ToolResult = mcp.ResultPaymentFailed + reason
	return resp, nil
}

// unknownMethodLabel replaces caller-supplied payment methods that are not
// known, keeping the label set bounded.
const unknownMethodLabel = "unknown"

func (s *Shop) record(outcome string, req mcp.MakePurchaseRequest, start time.Time) {
	method := unknownMethodLabel
	if req.PaymentMethod.Valid() {
		method = req.PaymentMethod.String()
	}
	labels := map[string]string{
		metrics.LabelOutcome:       outcome,
		metrics.LabelPaymentMethod: method,
	}
	s.metrics.IncCounter("purchase", labels)
	s.metrics.ObserveLatency("purchase", time.Since(start), labels)
}
