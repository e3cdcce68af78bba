package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MonetizedMCP/starter-kit-template/internal/retry"
	"github.com/MonetizedMCP/starter-kit-template/x402"
)

// AuthorizationProvider returns the Authorization header value for a request.
// It is called for every attempt, including retries, and must be safe for concurrent use.
type AuthorizationProvider func(*http.Request) string

// OnBeforeFunc runs before verify or settle. A non-nil error aborts the call.
type OnBeforeFunc func(context.Context, x402.PaymentPayload, x402.PaymentRequirements) error

// OnAfterVerifyFunc runs after every verify call.
type OnAfterVerifyFunc func(context.Context, x402.PaymentPayload, x402.PaymentRequirements, *x402.VerifyResponse, error)

// OnAfterSettleFunc runs after every settle call.
type OnAfterSettleFunc func(context.Context, x402.PaymentPayload, x402.PaymentRequirements, *x402.SettleResponse, error)

// Client is a JSON-over-HTTP facilitator client.
type Client struct {
	// BaseURL is the facilitator root, e.g. "https://x402.org/facilitator".
	BaseURL string

	// HTTPClient defaults to a client with Timeouts.Request.
	HTTPClient *http.Client

	Timeouts Timeouts

	// MaxRetries is the number of extra attempts made when the facilitator is unreachable.
	MaxRetries int

	// RetryDelay is the first backoff delay (default 100ms, doubled per attempt).
	RetryDelay time.Duration

	// Authorization is a static Authorization header value.
	// AuthorizationProvider takes precedence when set.
	Authorization         string
	AuthorizationProvider AuthorizationProvider

	OnBeforeVerify OnBeforeFunc
	OnAfterVerify  OnAfterVerifyFunc
	OnBeforeSettle OnBeforeFunc
	OnAfterSettle  OnAfterSettleFunc
}

var _ Interface = (*Client)(nil)

// NewClient returns a Client with default timeouts and two retries.
func NewClient(baseURL string, auth AuthorizationProvider) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeouts.Request},
		Timeouts:              DefaultTimeouts,
		MaxRetries:            2,
		AuthorizationProvider: auth,
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) setAuthorizationHeader(req *http.Request) {
	var value string
	if c.AuthorizationProvider != nil {
		value = c.AuthorizationProvider(req)
	} else {
		value = c.Authorization
	}
	if value != "" {
		req.Header.Set("Authorization", value)
	}
}

func (c *Client) retryConfig() retry.Config {
	delay := c.RetryDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	maxRetries := c.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retry.Config{
		MaxAttempts:  maxRetries + 1,
		InitialDelay: delay,
		MaxDelay:     delay * 4,
		Multiplier:   2.0,
	}
}

// Verify posts the payment to /verify.
func (c *Client) Verify(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	if c.OnBeforeVerify != nil {
		if err := c.OnBeforeVerify(ctx, payload, requirements); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(VerifyRequest{
		X402Version:         x402.X402Version,
		PaymentPayload:      payload,
		PaymentRequirements: requirements,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, resultErr := retry.WithRetry(ctx, c.retryConfig(), isFacilitatorUnavailableError, func() (*x402.VerifyResponse, error) {
		var verifyResp x402.VerifyResponse
		if err := c.post(ctx, "/verify", c.Timeouts.Verify, body, x402.ErrVerificationFailed, &verifyResp); err != nil {
			return nil, err
		}
		if verifyResp.Payer == "" {
			verifyResp.Payer = extractPayer(payload)
		}
		return &verifyResp, nil
	})

	if c.OnAfterVerify != nil {
		c.OnAfterVerify(ctx, payload, requirements, resp, resultErr)
	}
	return resp, resultErr
}

// Settle posts the payment to /settle.
func (c *Client) Settle(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.SettleResponse, error) {
	if c.OnBeforeSettle != nil {
		if err := c.OnBeforeSettle(ctx, payload, requirements); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(SettleRequest{
		X402Version:         x402.X402Version,
		PaymentPayload:      payload,
		PaymentRequirements: requirements,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, resultErr := retry.WithRetry(ctx, c.retryConfig(), isFacilitatorUnavailableError, func() (*x402.SettleResponse, error) {
		var settleResp x402.SettleResponse
		if err := c.post(ctx, "/settle", c.Timeouts.Settle, body, x402.ErrSettlementFailed, &settleResp); err != nil {
			return nil, err
		}
		if settleResp.Payer == "" {
			settleResp.Payer = extractPayer(payload)
		}
		return &settleResp, nil
	})

	if c.OnAfterSettle != nil {
		c.OnAfterSettle(ctx, payload, requirements, resp, resultErr)
	}
	return resp, resultErr
}

// Supported fetches /supported.
func (c *Client) Supported(ctx context.Context) (*x402.SupportedResponse, error) {
	reqCtx, cancel := withTimeout(ctx, c.Timeouts.Supported)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.BaseURL+"/supported", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuthorizationHeader(httpReq)

	httpResp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrFacilitatorUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("supported endpoint failed: status %d", httpResp.StatusCode)
	}

	var supported x402.SupportedResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&supported); err != nil {
		return nil, fmt.Errorf("failed to decode supported response: %w", err)
	}
	return &supported, nil
}

func (c *Client) post(ctx context.Context, path string, timeout time.Duration, body []byte, statusErr error, out interface{}) error {
	reqCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setAuthorizationHeader(httpReq)

	httpResp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", x402.ErrFacilitatorUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return parseErrorResponse(httpResp, statusErr)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", strings.TrimPrefix(path, "/"), err)
	}
	return nil
}

// withTimeout applies d unless ctx already carries a deadline.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// StatusError is a non-200 facilitator response.
type StatusError struct {
	StatusCode int

	// Reason is the payment-level invalidReason or errorReason, if any.
	Reason string

	// Message is a generic "error" field or a short raw body.
	Message string

	// Err is ErrVerificationFailed or ErrSettlementFailed.
	Err error
}

func (e *StatusError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("%v: status %d, reason: %s", e.Err, e.StatusCode, e.Reason)
	case e.Message != "":
		return fmt.Sprintf("%v: status %d, body: %s", e.Err, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%v: status %d", e.Err, e.StatusCode)
	}
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Rejected reports whether the facilitator refused the payment itself: a 4xx
// status carrying a payment-level reason.
func (e *StatusError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.Reason != ""
}

func parseErrorResponse(resp *http.Response, baseErr error) error {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	statusErr := &StatusError{StatusCode: resp.StatusCode, Err: baseErr}

	var errBody map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &errBody); err == nil {
		for _, key := range []string{"invalidReason", "errorReason"} {
			if reason, ok := errBody[key].(string); ok && reason != "" {
				statusErr.Reason = reason
				return statusErr
			}
		}
		if msg, ok := errBody["error"].(string); ok && msg != "" {
			statusErr.Message = msg
			return statusErr
		}
	}

	if len(bodyBytes) > 0 && len(bodyBytes) < 500 {
		statusErr.Message = string(bodyBytes)
	}
	return statusErr
}

func extractPayer(payload x402.PaymentPayload) string {
	switch p := payload.Payload.(type) {
	case x402.EVMPayload:
		return p.Authorization.From
	case *x402.EVMPayload:
		return p.Authorization.From
	case map[string]interface{}:
		if auth, ok := p["authorization"].(map[string]interface{}); ok {
			if from, ok := auth["from"].(string); ok {
				return from
			}
		}
	}
	return ""
}

func isFacilitatorUnavailableError(err error) bool {
	return errors.Is(err, x402.ErrFacilitatorUnavailable)
}
