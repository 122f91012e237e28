package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"rhci.org/portal/internal/http/middleware"
	"rhci.org/portal/internal/http/validation"
	"rhci.org/portal/internal/modules/donations"
	"rhci.org/portal/internal/shared/apperr"
)

type DonationService interface {
	Create(ctx context.Context, in donations.CreateInput) (donations.Donation, error)
	Get(ctx context.Context, id int64) (donations.Donation, error)
}

type DonationHandler struct {
	Svc DonationService
}

func NewDonationHandler(svc DonationService) *DonationHandler {
	return &DonationHandler{Svc: svc}
}

type createDonationInput struct {
	Amount      string `json:"amount" binding:"required"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
	PatientID   *int64 `json:"patient_id" binding:"omitempty,gt=0"`
	DonorName   string `json:"donor_name" binding:"omitempty,max=200"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// POST /api/v1/donations
func (h *DonationHandler) Create(c *gin.Context) {
	var in createDonationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid donation data.", validation.FromBindError(err, &in)))
		return
	}

	amount, err := decimal.NewFromString(in.Amount)
	if err != nil || !amount.IsPositive() {
		middleware.Fail(c, apperr.InvalidErr("Invalid donation data.", map[string]string{
			"amount": "Must be a positive number.",
		}))
		return
	}

	var donorName *string
	if in.DonorName != "" {
		donorName = &in.DonorName
	}

	d, err := h.Svc.Create(c.Request.Context(), donations.CreateInput{
		Amount:      amount,
		Currency:    in.Currency,
		PatientID:   in.PatientID,
		DonorName:   donorName,
		IsAnonymous: in.IsAnonymous,
	})
	if err != nil {
		if errors.Is(err, donations.ErrPatientNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Patient not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"donation": donationView(d)})
}

// GET /api/v1/donations/:id
func (h *DonationHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.Fail(c, apperr.InvalidErr("Invalid donation id.", nil))
		return
	}

	d, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, donations.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Donation not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"donation": donationView(d)})
}
