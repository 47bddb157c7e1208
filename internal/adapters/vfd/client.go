package vfd

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/pkg/observability"
)

// Config holds the vendor connection settings. Base URLs are per product so
// sandbox and production environments can mix during rollout.
type Config struct {
	WalletBaseURL  string
	CardsBaseURL   string
	BillsBaseURL   string
	MandateBaseURL string
	TokenURL       string

	// StaticToken short-circuits the OAuth flow when set. Otherwise the
	// client exchanges ConsumerKey/ConsumerSecret for a cached bearer token.
	StaticToken    string
	ConsumerKey    string
	ConsumerSecret string

	RequestTimeout time.Duration
}

// envelope is the vendor's uniform response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// Client is the shared HTTP layer under the per-product adapters. It owns
// token acquisition, the circuit breaker and call metrics.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *CircuitBreaker
	logger  *zap.Logger

	mu    sync.Mutex
	token cachedToken
}

// NewClient creates a vendor client with the default breaker settings.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		breaker: NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		logger:  logger,
	}
}

// Breaker exposes the circuit breaker for health reporting.
func (c *Client) Breaker() *CircuitBreaker { return c.breaker }

// accessToken returns a bearer token, preferring the static token, then the
// cache, then a client-credentials exchange. Cached tokens are refreshed five
// minutes before expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.cfg.StaticToken != "" {
		return c.cfg.StaticToken, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token.value != "" && time.Now().Before(c.token.expiresAt) {
		return c.token.value, nil
	}

	if c.cfg.ConsumerKey == "" || c.cfg.ConsumerSecret == "" {
		return "", domain.NewDomainError(domain.ErrorCodeVendorError, "vendor credentials not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", domain.WrapError(domain.ErrorCodeVendorUnavailable, "vendor token request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("vendor token request failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return "", domain.NewDomainError(domain.ErrorCodeVendorError,
			fmt.Sprintf("vendor token request returned %d", resp.StatusCode))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", domain.WrapError(domain.ErrorCodeVendorError, "decode token response", err)
	}
	if tok.ExpiresIn <= 0 {
		tok.ExpiresIn = 3600
	}
	c.token = cachedToken{
		value:     tok.AccessToken,
		expiresAt: time.Now().Add(time.Duration(tok.ExpiresIn-300) * time.Second),
	}
	return c.token.value, nil
}

// call performs one authenticated vendor request and decodes the standard
// envelope. product and name label the metrics; httpStatus is returned so
// callers can treat 202 as pending.
func (c *Client) call(ctx context.Context, product, name, method, url string, payload any) (*envelope, int, error) {
	start := time.Now()
	var (
		env        envelope
		httpStatus int
	)

	err := c.breaker.Call(func() error {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		var body io.Reader
		if payload != nil {
			raw, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("encode request: %w", err)
			}
			body = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("AccessToken", token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return domain.WrapError(domain.ErrorCodeVendorTimeout, "vendor call", err)
			}
			return domain.WrapError(domain.ErrorCodeVendorUnavailable, "vendor call", err)
		}
		defer resp.Body.Close()
		httpStatus = resp.StatusCode

		if resp.StatusCode >= http.StatusInternalServerError {
			return domain.NewDomainError(domain.ErrorCodeVendorUnavailable,
				fmt.Sprintf("vendor returned %d", resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return domain.WrapError(domain.ErrorCodeVendorError, "decode vendor response", err)
		}
		return nil
	})

	elapsed := time.Since(start).Seconds()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.RecordVendorCall(product, name, outcome, elapsed)

	if err != nil {
		c.logger.Warn("vendor call failed",
			zap.String("product", product),
			zap.String("call", name),
			zap.Error(err))
		return nil, httpStatus, err
	}
	return &env, httpStatus, nil
}

func (c *Client) post(ctx context.Context, product, name, url string, payload any) (*envelope, int, error) {
	return c.call(ctx, product, name, http.MethodPost, url, payload)
}

func (c *Client) get(ctx context.Context, product, name, url string) (*envelope, int, error) {
	return c.call(ctx, product, name, http.MethodGet, url, nil)
}
