package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"rhci.org/portal/internal/http/middleware"
	"rhci.org/portal/internal/modules/donations"
	"rhci.org/portal/internal/modules/payments"
	"rhci.org/portal/internal/shared/apperr"
)

type CallbackProcessor interface {
	HandleCallback(ctx context.Context, payload map[string]any) (payments.CallbackResult, error)
}

type CallbackHandler struct {
	Logger    *slog.Logger
	Processor CallbackProcessor
}

func NewCallbackHandler(logger *slog.Logger, p CallbackProcessor) *CallbackHandler {
	return &CallbackHandler{Logger: logger, Processor: p}
}

// POST /api/v1/payments/azampay/callback
// Public endpoint; the gateway retries on anything but 200, so every
// recoverable condition resolves to a definite status here.
func (h *CallbackHandler) Handle(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid callback data.", nil))
		return
	}

	res, err := h.Processor.HandleCallback(c.Request.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrUnauthorizedWebhook):
			middleware.Fail(c, apperr.UnauthorizedErr("Unauthorized webhook."))
		case errors.Is(err, payments.ErrInvalidCallback):
			middleware.Fail(c, apperr.InvalidErr("Invalid callback data.", nil))
		case errors.Is(err, donations.ErrNotFound):
			middleware.Fail(c, apperr.NotFoundErr("Donation not found."))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	body := gin.H{
		"success":  true,
		"message":  res.Message,
		"donation": donationView(res.Donation),
	}
	if res.Patient != nil {
		body["patient"] = res.Patient
	}
	c.JSON(http.StatusOK, body)
}
