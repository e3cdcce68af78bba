package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/MonetizedMCP/starter-kit-template/catalog"
	"github.com/MonetizedMCP/starter-kit-template/internal/config"
	"github.com/MonetizedMCP/starter-kit-template/internal/logging"
	"github.com/MonetizedMCP/starter-kit-template/mcp/server"
	"github.com/MonetizedMCP/starter-kit-template/metrics"
	"github.com/MonetizedMCP/starter-kit-template/payments"
	"github.com/MonetizedMCP/starter-kit-template/x402"
	"github.com/MonetizedMCP/starter-kit-template/x402/facilitator"
)

const supportedCheckTimeout = 15 * time.Second

func newServeCommand(envFile *string, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over MCP (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, *envFile, version)
		},
	}
}

// app is a fully wired server.
type app struct {
	cfg      *config.Config
	server   *server.Server
	payments *payments.Tools
	registry *catalog.Registry
	gatherer *prometheus.Registry
	logger   *slog.Logger
}

// newApp is replaced in tests.
var newApp = buildApp

func runServe(cmd *cobra.Command, envFile, version string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a, err := newApp(cfg, version, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.checkFacilitator(ctx)
	return a.run(ctx)
}

func buildApp(cfg *config.Config, version string, logger *slog.Logger) (*app, error) {
	creds, err := facilitator.NewCDPCredentials(cfg.CDPAPIKeyID, cfg.CDPAPIKeySecret)
	if err != nil {
		return nil, err
	}
	auth := creds.AuthorizationProvider(logger)

	tools := payments.New(payments.Config{
		NewFacilitator: func(baseURL string) facilitator.Interface {
			return facilitator.NewClient(baseURL, auth)
		},
		FallbackURL: cfg.FallbackURL,
		Logger:      logger,
	})

	cat, err := catalog.New(catalog.DefaultItems())
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	reg, err := catalog.DefaultRegistry(cfg.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("payment methods: %w", err)
	}

	gatherer := prometheus.NewRegistry()
	gatherer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	shop, err := server.NewShop(server.ShopConfig{
		Catalog:        cat,
		Registry:       reg,
		Payments:       tools,
		WalletAddress:  cfg.WalletAddress,
		FacilitatorURL: cfg.FacilitatorURL,
		Resource:       cfg.ResourceURL,
		Metrics:        metrics.NewPrometheusRecorder(gatherer),
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		server:   server.New(ServerName, version, shop, logger),
		payments: tools,
		registry: reg,
		gatherer: gatherer,
		logger:   logger,
	}, nil
}

// checkFacilitator warns about accepted payment methods the facilitator does not list.
func (a *app) checkFacilitator(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, supportedCheckTimeout)
	defer cancel()

	seen := make(map[x402.PaymentMethod]bool)
	var methods []x402.PaymentMethod
	for _, entry := range a.registry.List() {
		if !seen[entry.PaymentMethod] {
			seen[entry.PaymentMethod] = true
			methods = append(methods, entry.PaymentMethod)
		}
	}

	if err := a.payments.CheckSupported(ctx, a.cfg.FacilitatorURL, methods); err != nil {
		a.logger.WarnContext(ctx, "could not check facilitator support", "facilitator", a.cfg.FacilitatorURL, "error", err)
	}
}

func (a *app) run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting monetized mcp server",
		"transport", a.cfg.Transport,
		"wallet", a.cfg.WalletAddress,
		"facilitator", a.cfg.FacilitatorURL,
	)

	switch a.cfg.Transport {
	case config.TransportStdio:
		return a.server.ServeStdio()
	case config.TransportHTTP:
		return server.ListenAndServe(ctx, a.cfg.ListenAddr, a.handler(), a.logger)
	default:
		return fmt.Errorf("unknown transport %q", a.cfg.Transport)
	}
}

func (a *app) handler() http.Handler {
	return server.NewRouter(a.server.Handler(), a.gatherer, a.logger)
}
