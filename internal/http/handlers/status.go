package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rhci.org/portal/internal/http/middleware"
	"rhci.org/portal/internal/http/validation"
	"rhci.org/portal/internal/modules/donations"
	"rhci.org/portal/internal/modules/payments"
	"rhci.org/portal/internal/shared/apperr"
)

type StatusChecker interface {
	Check(ctx context.Context, donationID int64) (payments.StatusResult, error)
}

type Reconciler interface {
	ApplyStatus(ctx context.Context, donationID int64, status, transactionID string) (payments.CallbackResult, error)
}

type StatusHandler struct {
	Logger    *slog.Logger
	Checker   StatusChecker
	Reconcile Reconciler
}

func NewStatusHandler(logger *slog.Logger, checker StatusChecker, reconcile Reconciler) *StatusHandler {
	return &StatusHandler{Logger: logger, Checker: checker, Reconcile: reconcile}
}

// GET /api/v1/payments/status?donation_id=
func (h *StatusHandler) Check(c *gin.Context) {
	raw := c.Query("donation_id")
	if raw == "" {
		middleware.Fail(c, apperr.InvalidErr("donation_id parameter required.", nil))
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.Fail(c, apperr.InvalidErr("Invalid donation_id.", nil))
		return
	}

	res, err := h.Checker.Check(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, donations.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Donation not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	body := gin.H{"donation": donationView(res.Donation)}
	if res.Patient != nil {
		body["patient"] = res.Patient
	}
	if res.Note != "" {
		body["note"] = res.Note
	}
	c.JSON(http.StatusOK, body)
}

type manualUpdateInput struct {
	DonationID int64  `json:"donation_id" binding:"required,gt=0"`
	Status     string `json:"status" binding:"required,oneof=COMPLETED FAILED CANCELLED"`
}

// POST /api/v1/payments/azampay/manual-update
// Sandbox helper: the sandbox gateway rarely delivers callbacks, so
// this drives the same transition path by hand. Route is only mounted
// when PAYMENTS_ENABLE_MANUAL_UPDATE is set.
func (h *StatusHandler) ManualUpdate(c *gin.Context) {
	var in manualUpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}

	h.Logger.WarnContext(c.Request.Context(), "manual payment update",
		"donation_id", in.DonationID, "status", in.Status)

	res, err := h.Reconcile.ApplyStatus(c.Request.Context(), in.DonationID, in.Status, "")
	if err != nil {
		if errors.Is(err, donations.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Donation not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	body := gin.H{
		"success":  true,
		"message":  "Donation status updated to " + res.Donation.Status,
		"donation": donationView(res.Donation),
	}
	if res.Patient != nil {
		body["patient"] = res.Patient
	}
	c.JSON(http.StatusOK, body)
}
