package payments

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"rhci.org/portal/internal/modules/donations"
	"rhci.org/portal/internal/modules/patients"
)

// StatusService answers "where is my payment" and opportunistically
// reconciles donations the webhook has not reached yet.
type StatusService struct {
	db        *gorm.DB
	gateway   Gateway
	reconcile *ReconcileService
	logger    *slog.Logger
}

func NewStatusService(db *gorm.DB, gateway Gateway, reconcile *ReconcileService, logger *slog.Logger) *StatusService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusService{db: db, gateway: gateway, reconcile: reconcile, logger: logger}
}

type StatusResult struct {
	Donation donations.Donation
	Patient  *patients.FundingSummary
	Note     string
}

// Check loads the donation and, while it is still PENDING with a known
// gateway reference, polls the gateway. A definitive answer goes
// through the same locked transition path the webhook uses. The poll
// itself happens with no lock held.
func (s *StatusService) Check(ctx context.Context, donationID int64) (StatusResult, error) {
	var d donations.Donation
	if err := s.db.WithContext(ctx).First(&d, "id = ?", donationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StatusResult{}, donations.ErrNotFound
		}
		return StatusResult{}, err
	}

	result := StatusResult{Donation: d}

	if d.Status == donations.StatusPending && d.TransactionID != nil {
		resp, err := s.gateway.TransactionStatus(ctx, *d.TransactionID)
		if err != nil {
			// poll failure is not fatal; the webhook or a later poll
			// will catch up
			s.logger.ErrorContext(ctx, "gateway status check failed",
				"donation_id", d.ID, "err", err)
		} else if familyOf(resp.Status) != familyUnknown {
			applied, err := s.reconcile.ApplyStatus(ctx, d.ID, resp.Status, "")
			if err != nil {
				return StatusResult{}, err
			}
			result.Donation = applied.Donation
			result.Patient = applied.Patient
		} else {
			s.logger.InfoContext(ctx, "donation still pending at gateway",
				"donation_id", d.ID, "gateway_status", resp.Status)
		}
	}

	if result.Donation.Status == donations.StatusPending {
		result.Note = "Payment still pending. The gateway will push a callback once the customer confirms."
	}
	return result, nil
}
