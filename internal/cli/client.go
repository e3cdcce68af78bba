package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MonetizedMCP/starter-kit-template/internal/logging"
	"github.com/MonetizedMCP/starter-kit-template/mcp/client"
	"github.com/MonetizedMCP/starter-kit-template/x402"
	"github.com/MonetizedMCP/starter-kit-template/x402/signers/evm"
)

const (
	defaultServerURL = "http://localhost:3000/mcp"
	buyerKeyEnv      = "BUYER_PRIVATE_KEY"
)

type clientFlags struct {
	serverURL string
	logLevel  string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.serverURL, "server", defaultServerURL, "MCP endpoint of the server")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "warn", "client log level")
}

func (f *clientFlags) connect(ctx context.Context, cmd *cobra.Command, opts ...client.Option) (*client.Client, error) {
	logger, err := logging.New(cmd.ErrOrStderr(), f.logLevel)
	if err != nil {
		return nil, err
	}
	opts = append([]client.Option{client.WithLogger(logger)}, opts...)
	return client.New(ctx, f.serverURL, opts...)
}

func newPricesCommand() *cobra.Command {
	var (
		flags clientFlags
		query string
	)

	cmd := &cobra.Command{
		Use:   "prices",
		Short: "List the items a server sells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := flags.connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			listing, err := c.PriceListing(ctx, query)
			if err != nil {
				return err
			}
			methods, err := c.PaymentMethods(ctx)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"items":          listing.Items,
				"paymentMethods": methods,
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&query, "query", "q", "", "only list items whose name contains this text")
	return cmd
}

func newPurchaseCommand() *cobra.Command {
	var (
		flags  clientFlags
		itemID string
		method string
		key    string
		params map[string]string
	)

	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Buy an item, paying with an EVM key",
		Long: `purchase looks up the item's price and the server's wallet, signs an
EIP-3009 USDC transfer authorization for that amount and submits it.

The buyer key is read from --key or, when empty, from ` + buyerKeyEnv + `.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pm, err := x402.ParsePaymentMethod(method)
			if err != nil {
				return err
			}
			if key == "" {
				key = os.Getenv(buyerKeyEnv)
			}
			if key == "" {
				return fmt.Errorf("no buyer key: pass --key or set %s", buyerKeyEnv)
			}
			signer, err := evm.NewSigner(pm, key)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			c, err := flags.connect(ctx, cmd, client.WithPaymentCallback(func(e x402.PaymentEvent) {
				fmt.Fprintf(cmd.ErrOrStderr(), "payment %s: item=%s amount=%s network=%s\n", e.Type, e.ItemID, e.Amount, e.Network)
			}))
			if err != nil {
				return err
			}
			defer c.Close()

			var purchaseParams map[string]any
			if len(params) > 0 {
				purchaseParams = make(map[string]any, len(params))
				for k, v := range params {
					purchaseParams[k] = v
				}
			}

			resp, err := c.Buy(ctx, itemID, pm, signer, purchaseParams)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if !resp.Succeeded() {
				return fmt.Errorf("purchase not completed: %s", resp.ToolResult)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&itemID, "item", "", "id of the item to buy")
	cmd.Flags().StringVar(&method, "method", x402.USDCBaseMainnet.String(), "payment method")
	cmd.Flags().StringVar(&key, "key", "", "hex private key of the paying wallet")
	cmd.Flags().StringToStringVar(&params, "param", nil, "item parameter as name=value (repeatable)")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
