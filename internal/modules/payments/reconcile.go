package payments

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rhci.org/portal/internal/modules/donations"
	"rhci.org/portal/internal/modules/patients"
)

// Gateway callbacks report amounts in whatever currency base the
// operator settled in; a mismatch against the stored amount is a
// monitoring signal, never a gate.
var amountTolerance = decimal.New(1, -2) // 0.01

type statusFamily int

const (
	familyUnknown statusFamily = iota
	familySuccess
	familyFailure
	familyCancelled
)

func familyOf(status string) statusFamily {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "SUCCESS", "SUCCESSFUL", "COMPLETED":
		return familySuccess
	case "FAILED", "FAILURE":
		return familyFailure
	case "CANCELLED", "CANCELED":
		return familyCancelled
	}
	return familyUnknown
}

// ReconcileService turns untrusted, at-least-once webhook deliveries
// into idempotent donation transitions and patient funding updates.
type ReconcileService struct {
	db            *gorm.DB
	webhookSecret string
	logger        *slog.Logger
}

func NewReconcileService(db *gorm.DB, webhookSecret string, logger *slog.Logger) *ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileService{db: db, webhookSecret: webhookSecret, logger: logger}
}

type CallbackResult struct {
	Duplicate bool
	Message   string
	Donation  donations.Donation
	Patient   *patients.FundingSummary
}

// HandleCallback processes one webhook delivery end to end.
func (s *ReconcileService) HandleCallback(ctx context.Context, payload map[string]any) (CallbackResult, error) {
	ev := ExtractCallback(payload)

	if s.webhookSecret != "" {
		if subtle.ConstantTimeCompare([]byte(ev.Password), []byte(s.webhookSecret)) != 1 {
			s.logger.WarnContext(ctx, "webhook rejected: bad secret",
				"external_reference", ev.ExternalReference)
			return CallbackResult{}, ErrUnauthorizedWebhook
		}
	}

	s.logger.InfoContext(ctx, "callback received",
		"external_reference", ev.ExternalReference,
		"transaction_id", ev.TransactionID,
		"status", ev.Status,
		"provider", ev.Provider,
	)

	if ev.ExternalReference == "" && ev.AdditionalProperties == nil {
		s.logger.ErrorContext(ctx, "callback has no external reference")
		return CallbackResult{}, ErrInvalidCallback
	}

	donationID, ok := ev.DonationID()
	if !ok {
		s.logger.ErrorContext(ctx, "could not resolve donation from callback",
			"external_reference", ev.ExternalReference)
		return CallbackResult{}, donations.ErrNotFound
	}

	return s.apply(ctx, donationID, ev)
}

// ApplyStatus runs the same transition path for a status obtained
// outside the webhook (gateway polling, sandbox manual update).
func (s *ReconcileService) ApplyStatus(ctx context.Context, donationID int64, status, transactionID string) (CallbackResult, error) {
	ev := CallbackEvent{Status: status, TransactionID: transactionID}
	return s.apply(ctx, donationID, ev)
}

func (s *ReconcileService) apply(ctx context.Context, donationID int64, ev CallbackEvent) (CallbackResult, error) {
	var result CallbackResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d donations.Donation
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&d, "id = ?", donationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return donations.ErrNotFound
			}
			return err
		}

		// Idempotency gate. Must run while holding the row lock: two
		// concurrent deliveries of the same webhook both passing a
		// pre-lock check would double-credit the patient.
		if donations.IsTerminal(d.Status) {
			result = CallbackResult{
				Duplicate: d.Status == donations.StatusCompleted,
				Message:   "Donation already finalized",
				Donation:  d,
			}
			if result.Duplicate {
				result.Message = "Donation already processed"
			}
			s.logger.InfoContext(ctx, "duplicate callback suppressed",
				"donation_id", d.ID, "status", d.Status)
			return nil
		}

		if ev.HasAmount && ev.Amount.Sub(d.Amount).Abs().GreaterThan(amountTolerance) {
			s.logger.WarnContext(ctx, "callback amount differs from donation amount",
				"donation_id", d.ID,
				"callback_amount", ev.Amount.String(),
				"donation_amount", d.Amount.String(),
			)
		}

		now := time.Now()
		updates := map[string]any{"updated_at": now}
		if ev.TransactionID != "" {
			updates["transaction_id"] = ev.TransactionID
			tid := ev.TransactionID
			d.TransactionID = &tid
		}

		switch familyOf(ev.Status) {
		case familySuccess:
			d.Status = donations.StatusCompleted
			d.CompletedAt = &now
			updates["status"] = donations.StatusCompleted
			updates["completed_at"] = &now
			if ev.Provider != "" {
				method := "Mobile Money - " + ev.Provider
				gateway := "AzamPay"
				updates["payment_method"] = method
				updates["payment_gateway"] = gateway
				d.PaymentMethod = &method
				d.PaymentGateway = &gateway
			}
			result.Message = "Callback processed successfully"
			s.logger.InfoContext(ctx, "donation completed",
				"donation_id", d.ID, "transaction_id", ev.TransactionID)

		case familyFailure:
			d.Status = donations.StatusFailed
			updates["status"] = donations.StatusFailed
			result.Message = "Callback processed successfully"
			s.logger.WarnContext(ctx, "donation payment failed", "donation_id", d.ID)

		case familyCancelled:
			d.Status = donations.StatusCancelled
			updates["status"] = donations.StatusCancelled
			result.Message = "Callback processed successfully"
			s.logger.InfoContext(ctx, "donation cancelled", "donation_id", d.ID)

		default:
			// PENDING self-edge: keep status, transaction id may still
			// be new information worth keeping.
			result.Message = "Callback received"
			s.logger.WarnContext(ctx, "unrecognized callback status",
				"donation_id", d.ID, "status", ev.Status)
		}

		if err := tx.WithContext(ctx).Model(&donations.Donation{}).
			Where("id = ?", d.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		if d.Status == donations.StatusCompleted && d.PatientID != nil {
			summary, err := s.creditPatient(ctx, tx, *d.PatientID, d, now)
			if err != nil {
				return err
			}
			result.Patient = &summary
		}

		result.Donation = d
		return nil
	})
	if err != nil {
		return CallbackResult{}, err
	}
	return result, nil
}

// creditPatient is the only code path that increases funding_received.
// Runs inside the same transaction as the donation transition.
func (s *ReconcileService) creditPatient(ctx context.Context, tx *gorm.DB, patientID int64, d donations.Donation, now time.Time) (patients.FundingSummary, error) {
	var p patients.PatientProfile
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", patientID).Error; err != nil {
		return patients.FundingSummary{}, fmt.Errorf("load patient %d: %w", patientID, err)
	}

	newReceived := p.FundingReceived.Add(d.Amount)
	newStatus := p.Status
	becameFullyFunded := false
	if newReceived.GreaterThanOrEqual(p.FundingRequired) && p.Status != patients.StatusFullyFunded {
		newStatus = patients.StatusFullyFunded
		becameFullyFunded = true
	}

	if err := tx.WithContext(ctx).Model(&patients.PatientProfile{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"funding_received": newReceived,
			"status":           newStatus,
			"updated_at":       now,
		}).Error; err != nil {
		return patients.FundingSummary{}, err
	}

	p.FundingReceived = newReceived
	p.Status = newStatus

	meta, _ := json.Marshal(map[string]any{
		"donation_id":      d.ID,
		"amount":           d.Amount.String(),
		"funding_received": p.FundingReceived.String(),
		"funding_required": p.FundingRequired.String(),
	})
	if err := patients.RecordEvent(ctx, tx, p.ID,
		patients.EventFundingMilestone,
		"Donation received",
		fmt.Sprintf("Donation of %s %s received.", d.Amount.String(), d.Currency),
		datatypes.JSON(meta), false); err != nil {
		return patients.FundingSummary{}, err
	}

	if becameFullyFunded {
		if err := patients.RecordEvent(ctx, tx, p.ID,
			patients.EventFullyFunded,
			"Fully funded",
			fmt.Sprintf("Funding goal of %s reached.", p.FundingRequired.String()),
			datatypes.JSON(meta), true); err != nil {
			return patients.FundingSummary{}, err
		}
	}

	s.logger.InfoContext(ctx, "patient funding updated",
		"patient_id", p.ID,
		"funding_received", p.FundingReceived.String(),
		"funding_required", p.FundingRequired.String(),
		"fully_funded", becameFullyFunded,
	)

	return patients.Summarize(p), nil
}
