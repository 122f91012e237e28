package azampay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const tokenTTL = 50 * time.Minute

type Config struct {
	AuthBaseURL     string
	CheckoutBaseURL string
	AppName         string
	ClientID        string
	ClientSecret    string
	Environment     string // sandbox|production

	// Zero means no timeout; sandbox responses can take minutes.
	RequestTimeout time.Duration
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		AuthBaseURL:     envOr("AZAMPAY_AUTH_URL", "https://authenticator-sandbox.azampay.co.tz"),
		CheckoutBaseURL: envOr("AZAMPAY_CHECKOUT_URL", "https://sandbox.azampay.co.tz"),
		AppName:         os.Getenv("AZAMPAY_APP_NAME"),
		ClientID:        os.Getenv("AZAMPAY_CLIENT_ID"),
		ClientSecret:    os.Getenv("AZAMPAY_CLIENT_SECRET"),
		Environment:     envOr("AZAMPAY_ENVIRONMENT", "sandbox"),
	}
	if cfg.AppName == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return Config{}, fmt.Errorf("azampay config missing: AZAMPAY_APP_NAME, AZAMPAY_CLIENT_ID, AZAMPAY_CLIENT_SECRET required")
	}
	if cfg.Environment == "production" {
		cfg.RequestTimeout = 30 * time.Second
	}
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

type Client struct {
	cfg    Config
	httpc  *http.Client
	tokens *TokenCache
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
	}
	c.tokens = NewTokenCache(tokenTTL, c.fetchToken)
	return c
}

// Tokens exposes the cache so tests can inject a fake clock.
func (c *Client) Tokens() *TokenCache { return c.tokens }

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	payload := map[string]string{
		"appName":      c.cfg.AppName,
		"clientId":     c.cfg.ClientID,
		"clientSecret": c.cfg.ClientSecret,
	}

	c.logger.InfoContext(ctx, "requesting azampay access token", "url", c.cfg.AuthBaseURL)

	var resp struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := c.post(ctx, c.cfg.AuthBaseURL+"/AppRegistration/GenerateToken", "", payload, &resp); err != nil {
		return "", fmt.Errorf("azampay authentication failed: %w", err)
	}
	if resp.Data.AccessToken == "" {
		return "", fmt.Errorf("azampay authentication failed: no access token in response")
	}
	return resp.Data.AccessToken, nil
}

// Checkout initiates a mobile money (USSD push) payment.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResponse, error) {
	provider, err := NormalizeMobileProvider(req.Provider)
	if err != nil {
		return CheckoutResponse{}, err
	}
	if !req.Amount.IsPositive() {
		return CheckoutResponse{}, fmt.Errorf("amount must be greater than 0")
	}

	token, err := c.tokens.Get(ctx)
	if err != nil {
		return CheckoutResponse{}, err
	}

	payload := map[string]any{
		"accountNumber": NormalizePhone(req.AccountNumber),
		// the mno endpoint rejects fractional amounts
		"amount":     strconv.FormatInt(req.Amount.IntPart(), 10),
		"currency":   req.Currency,
		"externalId": req.ExternalID,
		"provider":   provider,
	}
	if len(req.AdditionalProperties) > 0 {
		payload["additionalProperties"] = req.AdditionalProperties
	}

	c.logger.InfoContext(ctx, "initiating azampay checkout",
		"external_id", req.ExternalID,
		"amount", req.Amount.String(),
		"currency", req.Currency,
		"provider", provider,
	)

	var resp struct {
		Success       bool   `json:"success"`
		TransactionID string `json:"transactionId"`
		Message       string `json:"message"`
		MessageCode   any    `json:"messageCode"`
	}
	if err := c.post(ctx, c.cfg.CheckoutBaseURL+"/azampay/mno/checkout", token, payload, &resp); err != nil {
		return CheckoutResponse{}, err
	}
	if !resp.Success {
		return CheckoutResponse{}, &APIError{
			Op:          "mno/checkout",
			Message:     orUnknown(resp.Message),
			MessageCode: fmt.Sprint(resp.MessageCode),
		}
	}
	return CheckoutResponse{TransactionID: resp.TransactionID, Message: resp.Message}, nil
}

// BankCheckout initiates an OTP-confirmed bank payment (CRDB, NMB).
func (c *Client) BankCheckout(ctx context.Context, req BankCheckoutRequest) (CheckoutResponse, error) {
	provider, err := NormalizeBankProvider(req.Provider)
	if err != nil {
		return CheckoutResponse{}, err
	}

	token, err := c.tokens.Get(ctx)
	if err != nil {
		return CheckoutResponse{}, err
	}

	payload := map[string]any{
		"amount":                req.Amount.String(),
		"currencyCode":          req.Currency,
		"merchantAccountNumber": req.MerchantAccountNumber,
		"merchantMobileNumber":  NormalizePhone(req.MerchantMobileNumber),
		"merchantName":          c.cfg.AppName,
		"otp":                   req.OTP,
		"provider":              provider,
		"referenceId":           req.ExternalID,
	}
	if len(req.AdditionalProperties) > 0 {
		payload["additionalProperties"] = req.AdditionalProperties
	}

	c.logger.InfoContext(ctx, "initiating azampay bank checkout",
		"external_id", req.ExternalID, "provider", provider)

	var resp struct {
		Success       bool   `json:"success"`
		TransactionID string `json:"transactionId"`
		Message       string `json:"message"`
	}
	if err := c.post(ctx, c.cfg.CheckoutBaseURL+"/azampay/bank/checkout", token, payload, &resp); err != nil {
		return CheckoutResponse{}, err
	}
	if !resp.Success {
		return CheckoutResponse{}, &APIError{Op: "bank/checkout", Message: orUnknown(resp.Message)}
	}
	return CheckoutResponse{TransactionID: resp.TransactionID, Message: resp.Message}, nil
}

// TransactionStatus polls the gateway for the outcome of a checkout.
// The response shape differs between environments; both the wrapped
// and flat forms are handled.
func (c *Client) TransactionStatus(ctx context.Context, referenceID string) (StatusResponse, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return StatusResponse{}, err
	}

	payload := map[string]string{"transactionId": referenceID}

	c.logger.InfoContext(ctx, "checking azampay transaction status", "reference", referenceID)

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := c.post(ctx, c.cfg.CheckoutBaseURL+"/azampay/mno/checkout/status", token, payload, &resp); err != nil {
		return StatusResponse{}, err
	}

	status := resp.Data.Status
	if status == "" {
		status = resp.Status
	}
	return StatusResponse{Status: status, Message: resp.Message}, nil
}

func (c *Client) post(ctx context.Context, url, token string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("azampay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.tokens.Invalidate()
		return fmt.Errorf("azampay rejected credentials (status %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("azampay response read failed: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("empty response from azampay (status %d)", resp.StatusCode)
	}
	// sandbox occasionally serves HTML error pages instead of JSON
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "json") {
		c.logger.ErrorContext(ctx, "non-json response from azampay",
			"url", url, "status", resp.StatusCode, "content_type", ct)
		return fmt.Errorf("unexpected response from azampay (status %d)", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid json from azampay: %w", err)
	}
	return nil
}

func orUnknown(msg string) string {
	if msg == "" {
		return "unknown error"
	}
	return msg
}
