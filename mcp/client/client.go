package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/MonetizedMCP/starter-kit-template/catalog"
	"github.com/MonetizedMCP/starter-kit-template/mcp"
	"github.com/MonetizedMCP/starter-kit-template/x402"
	"github.com/MonetizedMCP/starter-kit-template/x402/encoding"
)

var (
	// ErrToolFailed wraps the message of a tool result flagged as an error.
	ErrToolFailed = errors.New("tool call failed")

	// ErrItemNotListed is returned by Buy when the price listing has no matching item.
	ErrItemNotListed = errors.New("item not listed for payment method")

	// ErrMethodNotAccepted is returned by Buy when the server has no wallet for the payment method.
	ErrMethodNotAccepted = errors.New("payment method not accepted")
)

// Client is a MonetizedMCP buyer.
type Client struct {
	mcp    *mcpclient.Client
	config *Config
}

// New connects to serverURL and initializes an MCP session.
func New(ctx context.Context, serverURL string, opts ...Option) (*Client, error) {
	config := DefaultConfig(serverURL)
	for _, opt := range opts {
		opt(config)
	}

	trans, err := transport.NewStreamableHTTP(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	c := mcpclient.NewClient(trans)
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start client: %w", err)
	}

	_, err = c.Initialize(ctx, mcpproto.InitializeRequest{
		Params: mcpproto.InitializeParams{
			ProtocolVersion: mcpproto.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcpproto.Implementation{
				Name:    config.Name,
				Version: config.Version,
			},
			Capabilities: mcpproto.ClientCapabilities{},
		},
	})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	return &Client{mcp: c, config: config}, nil
}

// Close ends the session.
func (c *Client) Close() error {
	return c.mcp.Close()
}

// PriceListing lists items whose name contains query.
func (c *Client) PriceListing(ctx context.Context, query string) (*mcp.PriceListingResponse, error) {
	args := map[string]any{}
	if query != "" {
		args["searchQuery"] = query
	}

	var resp mcp.PriceListingResponse
	if err := c.call(ctx, mcp.ToolPriceListing, args, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PaymentMethods lists the accepted payment methods.
func (c *Client) PaymentMethods(ctx context.Context) (mcp.PaymentMethodsResponse, error) {
	var resp mcp.PaymentMethodsResponse
	if err := c.call(ctx, mcp.ToolPaymentMethods, map[string]any{}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// MakePurchase submits a purchase with an already encoded payment.
func (c *Client) MakePurchase(ctx context.Context, req mcp.MakePurchaseRequest) (*mcp.MakePurchaseResponse, error) {
	args := map[string]any{
		"itemId":            req.ItemID,
		"paymentMethod":     req.PaymentMethod.String(),
		"signedTransaction": req.SignedTransaction,
	}
	if req.Params != nil {
		args["params"] = req.Params
	}

	var resp mcp.MakePurchaseResponse
	if err := c.call(ctx, mcp.ToolMakePurchase, args, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Buy looks up the item and the server wallet, signs a payment for the
// listed price with signer and submits it.
//
// A purchase the server reports as failed is returned without error; check
// MakePurchaseResponse.Succeeded.
func (c *Client) Buy(ctx context.Context, itemID string, method x402.PaymentMethod, signer x402.Signer, params map[string]any) (*mcp.MakePurchaseResponse, error) {
	start := time.Now()

	item, err := c.findItem(ctx, itemID, method)
	if err != nil {
		return nil, err
	}

	wallet, err := c.walletFor(ctx, method)
	if err != nil {
		return nil, err
	}

	requirements, err := x402.NewRequirements(method, item.Price.Amount, wallet)
	if err != nil {
		return nil, err
	}

	event := x402.PaymentEvent{
		ItemID:        itemID,
		PaymentMethod: method,
		Amount:        requirements.Amount,
		Network:       requirements.Network,
		Recipient:     wallet,
	}

	if !signer.CanSign(&requirements) {
		err := x402.NewPaymentError(x402.ErrCodeNoValidSigner, "signer cannot pay with "+method.String(), x402.ErrNoValidSigner)
		c.emitFailure(event, start, err)
		return nil, err
	}

	payment, err := signer.Sign(&requirements)
	if err != nil {
		c.emitFailure(event, start, err)
		return nil, err
	}

	signed, err := encoding.EncodePayment(*payment)
	if err != nil {
		c.emitFailure(event, start, err)
		return nil, err
	}

	c.emit(c.config.OnPaymentAttempt, event, x402.PaymentEventAttempt, start)
	c.config.Logger.InfoContext(ctx, "submitting purchase",
		"itemId", itemID,
		"paymentMethod", method,
		"amount", requirements.Amount,
		"network", requirements.Network,
	)

	resp, err := c.MakePurchase(ctx, mcp.MakePurchaseRequest{
		ItemID:            itemID,
		PaymentMethod:     method,
		SignedTransaction: signed,
		Params:            params,
	})
	if err != nil {
		c.emitFailure(event, start, err)
		return nil, err
	}

	event.OrderID = resp.OrderID
	event.Result = resp.ToolResult
	if resp.Succeeded() {
		c.emit(c.config.OnPaymentSuccess, event, x402.PaymentEventSuccess, start)
	} else {
		c.emitFailure(event, start, errors.New(resp.ToolResult))
	}
	return resp, nil
}

func (c *Client) findItem(ctx context.Context, itemID string, method x402.PaymentMethod) (catalog.PurchasableItem, error) {
	listing, err := c.PriceListing(ctx, "")
	if err != nil {
		return catalog.PurchasableItem{}, err
	}
	for _, it := range listing.Items {
		if it.ID == itemID && it.Price.PaymentMethod == method {
			return it, nil
		}
	}
	return catalog.PurchasableItem{}, fmt.Errorf("%w: item %q, method %s", ErrItemNotListed, itemID, method)
}

func (c *Client) walletFor(ctx context.Context, method x402.PaymentMethod) (string, error) {
	methods, err := c.PaymentMethods(ctx)
	if err != nil {
		return "", err
	}
	for _, m := range methods {
		if m.PaymentMethod == method {
			return m.WalletAddress, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMethodNotAccepted, method)
}

func (c *Client) call(ctx context.Context, tool string, args map[string]any, out any) error {
	result, err := c.mcp.CallTool(ctx, mcpproto.CallToolRequest{
		Params: mcpproto.CallToolParams{
			Name:      tool,
			Arguments: args,
		},
	})
	if err != nil {
		return fmt.Errorf("call %s: %w", tool, err)
	}

	text := textContent(result)
	if result.IsError {
		return fmt.Errorf("%w: %s: %s", ErrToolFailed, tool, text)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode %s result: %w", tool, err)
	}
	return nil
}

func textContent(result *mcpproto.CallToolResult) string {
	var sb strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(mcpproto.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String()
}

func (c *Client) emit(cb x402.PaymentCallback, event x402.PaymentEvent, typ x402.PaymentEventType, start time.Time) {
	if cb == nil {
		return
	}
	event.Type = typ
	event.Timestamp = time.Now()
	event.Duration = time.Since(start)
	cb(event)
}

func (c *Client) emitFailure(event x402.PaymentEvent, start time.Time, err error) {
	event.Error = err
	c.emit(c.config.OnPaymentFailure, event, x402.PaymentEventFailure, start)
}
