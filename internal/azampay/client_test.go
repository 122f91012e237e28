package azampay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Fake gateway
// ---------------------------------------------------------------------------

type fakeGateway struct {
	srv        *httptest.Server
	tokenCalls atomic.Int64

	checkoutStatus int // 0 means 200
	checkoutBody   map[string]any
	statusBody     map[string]any

	lastCheckout map[string]any
	lastAuth     string
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	f := &fakeGateway{}
	mux := http.NewServeMux()

	mux.HandleFunc("/AppRegistration/GenerateToken", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"accessToken": "tok-" + time.Now().Format("150405.000000")},
		})
	})

	mux.HandleFunc("/azampay/mno/checkout", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&f.lastCheckout)

		if f.checkoutStatus != 0 {
			w.WriteHeader(f.checkoutStatus)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		body := f.checkoutBody
		if body == nil {
			body = map[string]any{"success": true, "transactionId": "azam-txn-1", "message": "ok"}
		}
		_ = json.NewEncoder(w).Encode(body)
	})

	mux.HandleFunc("/azampay/mno/checkout/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.statusBody)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGateway) client() *Client {
	return NewClient(Config{
		AuthBaseURL:     f.srv.URL,
		CheckoutBaseURL: f.srv.URL,
		AppName:         "rhci-test",
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		Environment:     "sandbox",
	}, nil)
}

// ---------------------------------------------------------------------------
// Token cache
// ---------------------------------------------------------------------------

func TestTokenCache_ReusedUntilExpiry(t *testing.T) {
	f := newFakeGateway(t)
	c := f.client()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Tokens().now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := c.Checkout(ctx, checkoutReq("100")); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	if _, err := c.Checkout(ctx, checkoutReq("100")); err != nil {
		t.Fatalf("second checkout: %v", err)
	}
	if got := f.tokenCalls.Load(); got != 1 {
		t.Errorf("expected 1 token fetch for back-to-back calls, got %d", got)
	}

	// 49 minutes later the token is still fresh
	now = now.Add(49 * time.Minute)
	if _, err := c.Checkout(ctx, checkoutReq("100")); err != nil {
		t.Fatalf("checkout at 49m: %v", err)
	}
	if got := f.tokenCalls.Load(); got != 1 {
		t.Errorf("token refetched before expiry, fetches=%d", got)
	}

	// past the 50 minute cutoff a new token is fetched
	now = now.Add(2 * time.Minute)
	if _, err := c.Checkout(ctx, checkoutReq("100")); err != nil {
		t.Fatalf("checkout at 51m: %v", err)
	}
	if got := f.tokenCalls.Load(); got != 2 {
		t.Errorf("expected token refresh after expiry, fetches=%d", got)
	}
}

func TestTokenCache_InvalidatedOnAuthRejection(t *testing.T) {
	f := newFakeGateway(t)
	c := f.client()
	ctx := context.Background()

	if _, err := c.Checkout(ctx, checkoutReq("100")); err != nil {
		t.Fatalf("seed checkout: %v", err)
	}

	f.checkoutStatus = http.StatusUnauthorized
	if _, err := c.Checkout(ctx, checkoutReq("100")); err == nil {
		t.Fatal("expected error on 401")
	}

	f.checkoutStatus = 0
	if _, err := c.Checkout(ctx, checkoutReq("100")); err != nil {
		t.Fatalf("checkout after invalidation: %v", err)
	}
	if got := f.tokenCalls.Load(); got != 2 {
		t.Errorf("expected fresh token after 401, fetches=%d", got)
	}
}

// ---------------------------------------------------------------------------
// Checkout
// ---------------------------------------------------------------------------

func checkoutReq(amount string) CheckoutRequest {
	a, _ := decimal.NewFromString(amount)
	return CheckoutRequest{
		Amount:        a,
		Currency:      "TZS",
		ExternalID:    "RHCI-DN-83-20260101120000",
		Provider:      "halopesa",
		AccountNumber: "0712345678",
	}
}

func TestCheckout_PayloadShape(t *testing.T) {
	f := newFakeGateway(t)
	c := f.client()

	req := checkoutReq("230000.50")
	resp, err := c.Checkout(context.Background(), req)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if resp.TransactionID != "azam-txn-1" {
		t.Errorf("transaction id = %q", resp.TransactionID)
	}

	if f.lastAuth == "" || f.lastAuth == "Bearer " {
		t.Errorf("missing bearer token, got %q", f.lastAuth)
	}
	// the mno endpoint takes whole units as a string
	if got := f.lastCheckout["amount"]; got != "230000" {
		t.Errorf("amount = %v, want \"230000\"", got)
	}
	if got := f.lastCheckout["provider"]; got != "Halopesa" {
		t.Errorf("provider = %v, want Halopesa", got)
	}
	if got := f.lastCheckout["accountNumber"]; got != "255712345678" {
		t.Errorf("accountNumber = %v, want 255712345678", got)
	}
	if got := f.lastCheckout["externalId"]; got != "RHCI-DN-83-20260101120000" {
		t.Errorf("externalId = %v", got)
	}
}

func TestCheckout_GatewayRejection(t *testing.T) {
	f := newFakeGateway(t)
	f.checkoutBody = map[string]any{"success": false, "message": "insufficient balance", "messageCode": 4002}
	c := f.client()

	_, err := c.Checkout(context.Background(), checkoutReq("100"))
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "insufficient balance" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestCheckout_RejectsUnknownProviderLocally(t *testing.T) {
	f := newFakeGateway(t)
	c := f.client()

	req := checkoutReq("100")
	req.Provider = "vodacom"
	if _, err := c.Checkout(context.Background(), req); err == nil {
		t.Fatal("expected provider error")
	}
	if got := f.tokenCalls.Load(); got != 0 {
		t.Errorf("no request should reach the gateway, token fetches=%d", got)
	}
}

// ---------------------------------------------------------------------------
// Status polling
// ---------------------------------------------------------------------------

func TestTransactionStatus_ResponseShapes(t *testing.T) {
	f := newFakeGateway(t)
	c := f.client()
	ctx := context.Background()

	f.statusBody = map[string]any{"data": map[string]any{"status": "success"}}
	st, err := c.TransactionStatus(ctx, "azam-txn-1")
	if err != nil {
		t.Fatalf("wrapped shape: %v", err)
	}
	if st.Status != "success" {
		t.Errorf("wrapped status = %q", st.Status)
	}

	f.statusBody = map[string]any{"status": "FAILED", "message": "expired"}
	st, err = c.TransactionStatus(ctx, "azam-txn-1")
	if err != nil {
		t.Fatalf("flat shape: %v", err)
	}
	if st.Status != "FAILED" {
		t.Errorf("flat status = %q", st.Status)
	}
}
