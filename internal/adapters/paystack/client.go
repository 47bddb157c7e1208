// Package paystack implements the hosted-checkout payment gateway used for
// wallet funding when the card never touches our servers: the user is
// redirected to the gateway's payment page and the charge is confirmed by a
// verify call.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
	"github.com/ovomonie/banking-service/pkg/observability"
)

// DefaultBaseURL is the gateway's production API host.
const DefaultBaseURL = "https://api.paystack.co"

// Config holds the gateway connection settings.
type Config struct {
	BaseURL        string
	SecretKey      string
	RequestTimeout time.Duration
}

// Client implements ports.PaymentGateway against the Paystack transaction
// API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

var _ ports.PaymentGateway = (*Client)(nil)

// NewClient creates a payment gateway client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
	}
}

// envelope is the gateway's uniform response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize creates a checkout session. The returned authorization URL is
// where the user completes the card payment.
func (c *Client) Initialize(ctx context.Context, req ports.PaymentInitializeRequest) (*ports.PaymentInitiation, error) {
	if c.cfg.SecretKey == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeVendorError, "payment gateway secret key not configured")
	}

	payload := map[string]any{
		"amount":    req.Amount,
		"email":     req.Email,
		"reference": req.Reference,
		"metadata":  req.Metadata,
	}
	env, err := c.call(ctx, "initialize", http.MethodPost,
		c.cfg.BaseURL+"/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, domain.NewDomainError(domain.ErrorCodeVendorError, env.Message)
	}

	var initiation ports.PaymentInitiation
	if err := json.Unmarshal(env.Data, &initiation); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeVendorError, "decode initiation", err)
	}
	if initiation.AuthorizationURL == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeVendorError, "gateway returned no authorization url")
	}
	return &initiation, nil
}

// Verify confirms what actually happened to a checkout session. "success" is
// the gateway's only terminal success state; "failed" and "abandoned" are
// final declines, everything else is still in flight.
func (c *Client) Verify(ctx context.Context, reference string) (*ports.Outcome, error) {
	if c.cfg.SecretKey == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeVendorError, "payment gateway secret key not configured")
	}

	env, err := c.call(ctx, "verify", http.MethodGet,
		c.cfg.BaseURL+"/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, domain.NewDomainError(domain.ErrorCodeVendorError, env.Message)
	}

	var data struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Gateway   string `json:"gateway_response"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeVendorError, "decode verification", err)
	}

	out := &ports.Outcome{
		Code:            data.Status,
		Message:         data.Gateway,
		VendorReference: data.Reference,
	}
	switch data.Status {
	case "success":
		out.Status = ports.OutcomeSucceeded
	case "failed", "abandoned", "reversed":
		out.Status = ports.OutcomeFailed
	default:
		out.Status = ports.OutcomePending
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, name, method, callURL string, payload any) (*envelope, error) {
	start := time.Now()
	env, err := c.do(ctx, method, callURL, payload)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.RecordVendorCall("paystack", name, outcome, time.Since(start).Seconds())

	if err != nil {
		c.logger.Warn("payment gateway call failed",
			zap.String("call", name),
			zap.Error(err))
	}
	return env, err
}

func (c *Client) do(ctx context.Context, method, callURL string, payload any) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, callURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.WrapError(domain.ErrorCodeVendorTimeout, "payment gateway call", err)
		}
		return nil, domain.WrapError(domain.ErrorCodeVendorUnavailable, "payment gateway call", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, domain.NewDomainError(domain.ErrorCodeVendorUnavailable,
			fmt.Sprintf("payment gateway returned %d", resp.StatusCode))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeVendorError, "decode gateway response", err)
	}
	return &env, nil
}
