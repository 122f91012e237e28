package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rhci.org/portal/internal/http/middleware"
	"rhci.org/portal/internal/modules/patients"
	"rhci.org/portal/internal/shared/apperr"
)

type PatientService interface {
	Summary(ctx context.Context, id int64) (patients.FundingSummary, error)
}

type PatientHandler struct {
	Svc PatientService
}

func NewPatientHandler(svc PatientService) *PatientHandler {
	return &PatientHandler{Svc: svc}
}

// GET /api/v1/patients/:id/funding
func (h *PatientHandler) Funding(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.Fail(c, apperr.InvalidErr("Invalid patient id.", nil))
		return
	}

	summary, err := h.Svc.Summary(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, patients.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Patient not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"patient": summary})
}
