package payments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/MonetizedMCP/starter-kit-template/x402"
	"github.com/MonetizedMCP/starter-kit-template/x402/encoding"
	"github.com/MonetizedMCP/starter-kit-template/x402/facilitator"
	"github.com/MonetizedMCP/starter-kit-template/x402/signers/evm"
)

const (
	testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	wallet  = "0x209693Bc6afc0C5328bA36FaF03C514EF312287C"
)

var price = decimal.RequireFromString("0.0001")

type fakeFacilitator struct {
	mu         sync.Mutex
	verify     *x402.VerifyResponse
	verifyErr  error
	settle     *x402.SettleResponse
	settleErr  error
	verified   []x402.PaymentPayload
	settled    int
	supported  *x402.SupportedResponse
	gotRequire x402.PaymentRequirements
}

var _ facilitator.Interface = (*fakeFacilitator)(nil)

func (f *fakeFacilitator) Verify(_ context.Context, p x402.PaymentPayload, r x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, p)
	f.gotRequire = r
	return f.verify, f.verifyErr
}

func (f *fakeFacilitator) Settle(context.Context, x402.PaymentPayload, x402.PaymentRequirements) (*x402.SettleResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled++
	return f.settle, f.settleErr
}

func (f *fakeFacilitator) Supported(context.Context) (*x402.SupportedResponse, error) {
	return f.supported, nil
}

func okFacilitator() *fakeFacilitator {
	return &fakeFacilitator{
		verify: &x402.VerifyResponse{IsValid: true, Payer: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
		settle: &x402.SettleResponse{Success: true, Transaction: "0xtx", Network: x402.NetworkBase},
	}
}

func newTools(byURL map[string]*fakeFacilitator, fallback string) *Tools {
	return New(Config{
		NewFacilitator: func(baseURL string) facilitator.Interface {
			if f, ok := byURL[baseURL]; ok {
				return f
			}
			return &fakeFacilitator{verifyErr: fmt.Errorf("%w: no such host", x402.ErrFacilitatorUnavailable)}
		},
		FallbackURL: fallback,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func signedHeader(t *testing.T, method x402.PaymentMethod, amount decimal.Decimal) string {
	t.Helper()
	signer, err := evm.NewSigner(method, testKey)
	if err != nil {
		t.Fatal(err)
	}
	req, err := x402.NewRequirements(method, amount, wallet)
	if err != nil {
		t.Fatal(err)
	}
	payload, err := signer.Sign(&req)
	if err != nil {
		t.Fatal(err)
	}
	header, err := encoding.EncodePayment(*payload)
	if err != nil {
		t.Fatal(err)
	}
	return header
}

func opts(header string) Options {
	return Options{
		FacilitatorURL: "https://facilitator.test",
		PaymentHeader:  header,
		Resource:       "mcp://tools/make-purchase",
		PaymentMethod:  x402.USDCBaseMainnet,
	}
}

func TestVerifyAndSettle_Success(t *testing.T) {
	fake := okFacilitator()
	tools := newTools(map[string]*fakeFacilitator{"https://facilitator.test": fake}, "")

	res, err := tools.VerifyAndSettle(context.Background(), price, wallet, opts(signedHeader(t, x402.USDCBaseMainnet, price)))
	if err != nil {
		t.Fatalf("VerifyAndSettle() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("Success = false, Error = %q", res.Error)
	}
	if res.Transaction != "0xtx" || res.Network != x402.NetworkBase {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Payer != "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266" {
		t.Errorf("Payer = %s", res.Payer)
	}

	if fake.gotRequire.Amount != "100" || fake.gotRequire.PayTo != wallet {
		t.Errorf("requirements sent = %+v", fake.gotRequire)
	}
	if r := fake.verified[0].Resource; r == nil || r.URL != "mcp://tools/make-purchase" {
		t.Errorf("Resource = %+v; want filled from options", r)
	}
	if fake.settled != 1 {
		t.Errorf("settled = %d; want 1", fake.settled)
	}
}

func TestVerifyAndSettle_SoftFailures(t *testing.T) {
	tests := []struct {
		name       string
		header     func(t *testing.T) string
		fake       func() *fakeFacilitator
		wantReason string
		wantSettle int
	}{
		{
			name:       "malformed proof",
			header:     func(*testing.T) string { return "not-a-payment" },
			fake:       okFacilitator,
			wantReason: "malformed payment header",
		},
		{
			name:       "other network",
			header:     func(t *testing.T) string { return signedHeader(t, x402.USDCBaseSepolia, price) },
			fake:       okFacilitator,
			wantReason: "unsupported payment scheme",
		},
		{
			name:   "verify invalid",
			header: func(t *testing.T) string { return signedHeader(t, x402.USDCBaseMainnet, price) },
			fake: func() *fakeFacilitator {
				f := okFacilitator()
				f.verify = &x402.VerifyResponse{IsValid: false, InvalidReason: "insufficient_funds", InvalidMessage: "insufficient funds"}
				return f
			},
			wantReason: "insufficient funds",
		},
		{
			name:   "settle rejected",
			header: func(t *testing.T) string { return signedHeader(t, x402.USDCBaseMainnet, price) },
			fake: func() *fakeFacilitator {
				f := okFacilitator()
				f.settle = &x402.SettleResponse{Success: false, ErrorReason: "invalid_transaction_state"}
				return f
			},
			wantReason: "invalid_transaction_state",
			wantSettle: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := tt.fake()
			tools := newTools(map[string]*fakeFacilitator{"https://facilitator.test": fake}, "")

			res, err := tools.VerifyAndSettle(context.Background(), price, wallet, opts(tt.header(t)))
			if err != nil {
				t.Fatalf("VerifyAndSettle() error = %v", err)
			}
			if res.Success {
				t.Fatal("Success = true; want false")
			}
			if !strings.Contains(res.Error, tt.wantReason) {
				t.Errorf("Error = %q; want containing %q", res.Error, tt.wantReason)
			}
			if fake.settled != tt.wantSettle {
				t.Errorf("settled = %d; want %d", fake.settled, tt.wantSettle)
			}
		})
	}
}

func TestVerifyAndSettle_HardErrors(t *testing.T) {
	header := signedHeader(t, x402.USDCBaseMainnet, price)

	unavailable := &fakeFacilitator{verifyErr: fmt.Errorf("%w: connection refused", x402.ErrFacilitatorUnavailable)}
	tools := newTools(map[string]*fakeFacilitator{"https://facilitator.test": unavailable}, "")
	if _, err := tools.VerifyAndSettle(context.Background(), price, wallet, opts(header)); !errors.Is(err, x402.ErrFacilitatorUnavailable) {
		t.Errorf("VerifyAndSettle() error = %v; want ErrFacilitatorUnavailable", err)
	}

	settleDown := okFacilitator()
	settleDown.settleErr = fmt.Errorf("%w: status 500", x402.ErrSettlementFailed)
	tools = newTools(map[string]*fakeFacilitator{"https://facilitator.test": settleDown}, "")
	if _, err := tools.VerifyAndSettle(context.Background(), price, wallet, opts(header)); !errors.Is(err, x402.ErrSettlementFailed) {
		t.Errorf("VerifyAndSettle() error = %v; want ErrSettlementFailed", err)
	}

	o := opts(header)
	o.PaymentMethod = "DOGE"
	if _, err := tools.VerifyAndSettle(context.Background(), price, wallet, o); !errors.Is(err, x402.ErrUnsupportedPaymentMethod) {
		t.Errorf("VerifyAndSettle() error = %v; want ErrUnsupportedPaymentMethod", err)
	}
}

func TestVerifyAndSettle_FacilitatorRejection(t *testing.T) {
	header := signedHeader(t, x402.USDCBaseMainnet, price)

	verifyRejected := &fakeFacilitator{verifyErr: &facilitator.StatusError{
		StatusCode: 400,
		Reason:     "insufficient_funds",
		Err:        x402.ErrVerificationFailed,
	}}
	tools := newTools(map[string]*fakeFacilitator{"https://facilitator.test": verifyRejected}, "")
	res, err := tools.VerifyAndSettle(context.Background(), price, wallet, opts(header))
	if err != nil {
		t.Fatalf("VerifyAndSettle() error = %v; want soft failure", err)
	}
	if res.Success || res.Error != "insufficient_funds" {
		t.Errorf("Result = %+v; want failure with insufficient_funds", res)
	}
	if verifyRejected.settled != 0 {
		t.Errorf("settled = %d after rejected verify", verifyRejected.settled)
	}

	settleRejected := okFacilitator()
	settleRejected.settleErr = &facilitator.StatusError{
		StatusCode: 422,
		Reason:     "authorization_expired",
		Err:        x402.ErrSettlementFailed,
	}
	tools = newTools(map[string]*fakeFacilitator{"https://facilitator.test": settleRejected}, "")
	res, err = tools.VerifyAndSettle(context.Background(), price, wallet, opts(header))
	if err != nil {
		t.Fatalf("VerifyAndSettle() error = %v; want soft failure", err)
	}
	if res.Success || res.Error != "authorization_expired" {
		t.Errorf("Result = %+v; want failure with authorization_expired", res)
	}

	serverError := &fakeFacilitator{verifyErr: &facilitator.StatusError{
		StatusCode: 502,
		Reason:     "upstream",
		Err:        x402.ErrVerificationFailed,
	}}
	tools = newTools(map[string]*fakeFacilitator{"https://facilitator.test": serverError}, "")
	if _, err := tools.VerifyAndSettle(context.Background(), price, wallet, opts(header)); !errors.Is(err, x402.ErrVerificationFailed) {
		t.Errorf("VerifyAndSettle() error = %v; want hard ErrVerificationFailed for 5xx", err)
	}

	unauthorized := &fakeFacilitator{verifyErr: &facilitator.StatusError{
		StatusCode: 401,
		Message:    "unauthorized",
		Err:        x402.ErrVerificationFailed,
	}}
	tools = newTools(map[string]*fakeFacilitator{"https://facilitator.test": unauthorized}, "")
	if _, err := tools.VerifyAndSettle(context.Background(), price, wallet, opts(header)); err == nil {
		t.Error("VerifyAndSettle() expected hard error for a 4xx without a payment reason")
	}
}

func TestVerifyAndSettle_Fallback(t *testing.T) {
	backup := okFacilitator()
	tools := newTools(map[string]*fakeFacilitator{"https://backup.test": backup}, "https://backup.test")

	res, err := tools.VerifyAndSettle(context.Background(), price, wallet, opts(signedHeader(t, x402.USDCBaseMainnet, price)))
	if err != nil {
		t.Fatalf("VerifyAndSettle() error = %v", err)
	}
	if !res.Success {
		t.Errorf("Success = false, Error = %q", res.Error)
	}
	if len(backup.verified) != 1 || backup.settled != 1 {
		t.Errorf("fallback verified %d, settled %d; want 1, 1", len(backup.verified), backup.settled)
	}
}

func TestTools_ReusesFacilitator(t *testing.T) {
	created := 0
	tools := New(Config{
		NewFacilitator: func(string) facilitator.Interface {
			created++
			return okFacilitator()
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	tools.facilitator("https://facilitator.test")
	tools.facilitator("https://facilitator.test/")
	if created != 1 {
		t.Errorf("created = %d; want 1", created)
	}
}

func TestCheckSupported(t *testing.T) {
	fake := okFacilitator()
	fake.supported = &x402.SupportedResponse{
		Kinds: []x402.SupportedKind{{X402Version: 2, Scheme: "exact", Network: x402.NetworkBaseSepolia}},
	}

	var buf strings.Builder
	tools := New(Config{
		NewFacilitator: func(string) facilitator.Interface { return fake },
		Logger:         slog.New(slog.NewTextHandler(&buf, nil)),
	})

	err := tools.CheckSupported(context.Background(), "https://facilitator.test", []x402.PaymentMethod{x402.USDCBaseMainnet, x402.USDCBaseSepolia})
	if err != nil {
		t.Fatalf("CheckSupported() error = %v", err)
	}
	if !strings.Contains(buf.String(), "paymentMethod=USDC_BASE_MAINNET") {
		t.Errorf("expected warning for Base mainnet, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "USDC_BASE_SEPOLIA") {
		t.Errorf("unexpected warning for Base Sepolia: %q", buf.String())
	}
}
