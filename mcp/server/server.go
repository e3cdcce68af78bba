// Package server exposes a mcp.Dispatcher as MonetizedMCP tools over stdio
// or streamable HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/MonetizedMCP/starter-kit-template/mcp"
	"github.com/MonetizedMCP/starter-kit-template/x402"
)

// Server registers the price-listing, payment-methods and make-purchase tools.
type Server struct {
	mcpServer  *mcpserver.MCPServer
	dispatcher mcp.Dispatcher
	logger     *slog.Logger
}

// New creates an MCP server named name that answers tools with d.
func New(name, version string, d mcp.Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcpserver.NewMCPServer(name, version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
		),
		dispatcher: d,
		logger:     logger,
	}

	s.mcpServer.AddTool(mcpproto.NewTool(mcp.ToolPriceListing,
		mcpproto.WithDescription("List purchasable items and their prices. Optionally filter by a case-insensitive search on the item name."),
		mcpproto.WithString("searchQuery",
			mcpproto.Description("Text the item name must contain"),
		),
	), s.handlePriceListing)

	s.mcpServer.AddTool(mcpproto.NewTool(mcp.ToolPaymentMethods,
		mcpproto.WithDescription("List the payment methods and wallet addresses this server accepts."),
	), s.handlePaymentMethods)

	s.mcpServer.AddTool(mcpproto.NewTool(mcp.ToolMakePurchase,
		mcpproto.WithDescription("Buy an item by paying with a signed x402 payment."),
		mcpproto.WithString("itemId",
			mcpproto.Required(),
			mcpproto.Description("The id of the item from price-listing"),
		),
		mcpproto.WithString("paymentMethod",
			mcpproto.Required(),
			mcpproto.Description("The payment method of the item's price, e.g. "+x402.USDCBaseMainnet.String()),
		),
		mcpproto.WithString("signedTransaction",
			mcpproto.Required(),
			mcpproto.Description("Base64 encoded x402 payment payload"),
		),
		mcpproto.WithObject("params",
			mcpproto.Description("Item parameters, as described by the item's params"),
		),
	), s.handleMakePurchase)

	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcpServer)
}

// Handler returns the streamable HTTP handler.
func (s *Server) Handler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcpServer)
}

func (s *Server) handlePriceListing(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	query, _ := req.GetArguments()["searchQuery"].(string)

	resp, err := s.dispatcher.PriceListing(ctx, mcp.PriceListingRequest{SearchQuery: query})
	if err != nil {
		return s.toolError(ctx, mcp.ToolPriceListing, err), nil
	}
	return s.jsonResult(ctx, resp)
}

func (s *Server) handlePaymentMethods(ctx context.Context, _ mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	resp, err := s.dispatcher.PaymentMethods(ctx)
	if err != nil {
		return s.toolError(ctx, mcp.ToolPaymentMethods, err), nil
	}
	return s.jsonResult(ctx, resp)
}

func (s *Server) handleMakePurchase(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	args := req.GetArguments()

	var missing []string
	fields := make(map[string]string, 3)
	for _, name := range []string{"itemId", "paymentMethod", "signedTransaction"} {
		v, ok := args[name].(string)
		if !ok {
			missing = append(missing, name)
		}
		fields[name] = v
	}
	if len(missing) > 0 {
		return errorResult("missing required argument(s): " + strings.Join(missing, ", ")), nil
	}
	params, _ := args["params"].(map[string]any)

	resp, err := s.dispatcher.MakePurchase(ctx, mcp.MakePurchaseRequest{
		ItemID:            fields["itemId"],
		PaymentMethod:     x402.PaymentMethod(fields["paymentMethod"]),
		SignedTransaction: fields["signedTransaction"],
		Params:            params,
	})
	if err != nil {
		return s.toolError(ctx, mcp.ToolMakePurchase, err), nil
	}
	return s.jsonResult(ctx, resp)
}

func (s *Server) toolError(ctx context.Context, tool string, err error) *mcpproto.CallToolResult {
	s.logger.ErrorContext(ctx, "tool call failed", "tool", tool, "error", err)
	return errorResult(err.Error())
}

func errorResult(msg string) *mcpproto.CallToolResult {
	return &mcpproto.CallToolResult{
		Content: []mcpproto.Content{mcpproto.NewTextContent(msg)},
		IsError: true,
	}
}

func (s *Server) jsonResult(ctx context.Context, v any) (*mcpproto.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode tool result", "error", err)
		return nil, err
	}
	return &mcpproto.CallToolResult{
		Content: []mcpproto.Content{mcpproto.NewTextContent(string(data))},
	}, nil
}
