package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"rhci.org/portal/internal/azampay"
	"rhci.org/portal/internal/http/middleware"
	"rhci.org/portal/internal/http/validation"
	"rhci.org/portal/internal/modules/donations"
	"rhci.org/portal/internal/modules/payments"
	"rhci.org/portal/internal/shared/apperr"
)

type CheckoutService interface {
	MobileCheckout(ctx context.Context, in payments.MobileCheckoutInput) (payments.CheckoutResult, error)
	BankCheckout(ctx context.Context, in payments.BankCheckoutInput) (payments.CheckoutResult, error)
}

type CheckoutHandler struct {
	Logger *slog.Logger
	Svc    CheckoutService
}

func NewCheckoutHandler(logger *slog.Logger, svc CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{Logger: logger, Svc: svc}
}

type mobileCheckoutInput struct {
	DonationID  int64  `json:"donation_id" binding:"required,gt=0"`
	Provider    string `json:"provider" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required,min=9,max=15"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
}

// POST /api/v1/payments/azampay/mno/checkout
func (h *CheckoutHandler) Mobile(c *gin.Context) {
	var in mobileCheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid checkout data.", validation.FromBindError(err, &in)))
		return
	}

	if _, err := azampay.NormalizeMobileProvider(in.Provider); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid provider. Must be one of: Airtel, Tigo, Halopesa, Azampesa, Mpesa.", nil))
		return
	}

	res, err := h.Svc.MobileCheckout(c.Request.Context(), payments.MobileCheckoutInput{
		DonationID:  in.DonationID,
		Provider:    in.Provider,
		PhoneNumber: in.PhoneNumber,
		Currency:    in.Currency,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        res.Message,
		"donation_id":    res.DonationID,
		"transaction_id": res.TransactionID,
		"amount":         res.Amount.StringFixed(2),
		"currency":       res.Currency,
		"provider":       res.Provider,
	})
}

type bankCheckoutInput struct {
	DonationID            int64  `json:"donation_id" binding:"required,gt=0"`
	Provider              string `json:"provider" binding:"required"`
	MerchantAccountNumber string `json:"merchant_account_number" binding:"required"`
	MerchantMobileNumber  string `json:"merchant_mobile_number" binding:"required,min=9,max=15"`
	OTP                   string `json:"otp" binding:"required"`
	Currency              string `json:"currency" binding:"omitempty,len=3"`
}

// POST /api/v1/payments/azampay/bank/checkout
func (h *CheckoutHandler) Bank(c *gin.Context) {
	var in bankCheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid checkout data.", validation.FromBindError(err, &in)))
		return
	}

	if _, err := azampay.NormalizeBankProvider(in.Provider); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid bank provider. Must be one of: CRDB, NMB.", nil))
		return
	}

	res, err := h.Svc.BankCheckout(c.Request.Context(), payments.BankCheckoutInput{
		DonationID:            in.DonationID,
		Provider:              in.Provider,
		MerchantAccountNumber: in.MerchantAccountNumber,
		MerchantMobileNumber:  in.MerchantMobileNumber,
		OTP:                   in.OTP,
		Currency:              in.Currency,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        res.Message,
		"donation_id":    res.DonationID,
		"transaction_id": res.TransactionID,
	})
}

func (h *CheckoutHandler) fail(c *gin.Context, err error) {
	var apiErr *azampay.APIError
	switch {
	case errors.Is(err, donations.ErrNotFound):
		middleware.Fail(c, apperr.NotFoundErr("Donation not found."))
	case errors.Is(err, donations.ErrAlreadyCompleted):
		middleware.Fail(c, apperr.InvalidErr("Donation already completed.", nil))
	case errors.Is(err, donations.ErrPaymentInProgress):
		middleware.Fail(c, apperr.InvalidErr("Payment already in progress for this donation.", nil))
	case errors.As(err, &apiErr):
		middleware.Fail(c, apperr.InvalidErr("Payment initiation failed: "+apiErr.Message, nil))
	default:
		middleware.Fail(c, apperr.Wrap(err))
	}
}
