package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"rhci.org/portal/internal/modules/donations"
	"rhci.org/portal/internal/modules/patients"
	"rhci.org/portal/internal/modules/payments"
)

type mockStatusChecker struct {
	checkFunc func(ctx context.Context, donationID int64) (payments.StatusResult, error)
}

func (m *mockStatusChecker) Check(ctx context.Context, donationID int64) (payments.StatusResult, error) {
	if m.checkFunc != nil {
		return m.checkFunc(ctx, donationID)
	}
	return payments.StatusResult{}, nil
}

type mockReconciler struct {
	applyFunc func(ctx context.Context, donationID int64, status, transactionID string) (payments.CallbackResult, error)
}

func (m *mockReconciler) ApplyStatus(ctx context.Context, donationID int64, status, transactionID string) (payments.CallbackResult, error) {
	if m.applyFunc != nil {
		return m.applyFunc(ctx, donationID, status, transactionID)
	}
	return payments.CallbackResult{}, nil
}

func statusRouter(checker StatusChecker, reconcile Reconciler) *gin.Engine {
	r := testEngine()
	h := NewStatusHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), checker, reconcile)
	r.GET("/status", h.Check)
	r.POST("/manual-update", h.ManualUpdate)
	return r
}

func getURL(t *testing.T, r *gin.Engine, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestStatusHandler_Check_ParamValidation(t *testing.T) {
	r := statusRouter(&mockStatusChecker{}, &mockReconciler{})

	for _, url := range []string{"/status", "/status?donation_id=abc", "/status?donation_id=0", "/status?donation_id=-4"} {
		rec := getURL(t, r, url)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", url, rec.Code)
		}
	}
}

func TestStatusHandler_Check_NotFound(t *testing.T) {
	r := statusRouter(&mockStatusChecker{
		checkFunc: func(ctx context.Context, donationID int64) (payments.StatusResult, error) {
			return payments.StatusResult{}, donations.ErrNotFound
		},
	}, &mockReconciler{})

	rec := getURL(t, r, "/status?donation_id=404")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStatusHandler_Check_PendingNote(t *testing.T) {
	r := statusRouter(&mockStatusChecker{
		checkFunc: func(ctx context.Context, donationID int64) (payments.StatusResult, error) {
			return payments.StatusResult{
				Donation: donations.Donation{ID: donationID, Status: donations.StatusPending},
				Note:     "Payment still pending. The gateway will push a callback once the customer confirms.",
			}, nil
		},
	}, &mockReconciler{})

	rec := getURL(t, r, "/status?donation_id=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["note"] == nil {
		t.Error("expected note for pending donation")
	}
}

func TestStatusHandler_ManualUpdate(t *testing.T) {
	var gotStatus string
	r := statusRouter(&mockStatusChecker{}, &mockReconciler{
		applyFunc: func(ctx context.Context, donationID int64, status, transactionID string) (payments.CallbackResult, error) {
			gotStatus = status
			return payments.CallbackResult{
				Message:  "Callback processed successfully",
				Donation: donations.Donation{ID: donationID, Status: donations.StatusCompleted},
				Patient: &patients.FundingSummary{
					PatientID:       1,
					FundingReceived: decimal.NewFromInt(100),
					FundingRequired: decimal.NewFromInt(1000),
					Percentage:      10,
				},
			}, nil
		},
	})

	rec := postJSON(t, r, "/manual-update", `{"donation_id":7,"status":"COMPLETED"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if gotStatus != "COMPLETED" {
		t.Errorf("applied status = %q", gotStatus)
	}
	body := decodeBody(t, rec)
	if body["patient"] == nil {
		t.Error("patient summary missing from response")
	}
}

func TestStatusHandler_ManualUpdate_RejectsUnknownStatus(t *testing.T) {
	called := false
	r := statusRouter(&mockStatusChecker{}, &mockReconciler{
		applyFunc: func(ctx context.Context, donationID int64, status, transactionID string) (payments.CallbackResult, error) {
			called = true
			return payments.CallbackResult{}, nil
		},
	})

	for _, body := range []string{
		`{"donation_id":7,"status":"REFUNDED"}`,
		`{"donation_id":7,"status":"completed"}`,
		`{"donation_id":7}`,
		`{"status":"COMPLETED"}`,
	} {
		rec := postJSON(t, r, "/manual-update", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if called {
		t.Error("reconciler reached despite invalid input")
	}
}
