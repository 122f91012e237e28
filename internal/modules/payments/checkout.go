package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rhci.org/portal/internal/azampay"
	"rhci.org/portal/internal/modules/donations"
)

// Gateway is the slice of the AzamPay client the payment services use.
type Gateway interface {
	Checkout(ctx context.Context, req azampay.CheckoutRequest) (azampay.CheckoutResponse, error)
	BankCheckout(ctx context.Context, req azampay.BankCheckoutRequest) (azampay.CheckoutResponse, error)
	TransactionStatus(ctx context.Context, referenceID string) (azampay.StatusResponse, error)
}

type CheckoutService struct {
	db       *gorm.DB
	gateway  Gateway
	logger   *slog.Logger
	usdToTZS decimal.Decimal
	now      func() time.Time
}

func NewCheckoutService(db *gorm.DB, gateway Gateway, usdToTZS decimal.Decimal, logger *slog.Logger) *CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	if usdToTZS.IsZero() {
		usdToTZS = decimal.NewFromInt(2300)
	}
	return &CheckoutService{db: db, gateway: gateway, logger: logger, usdToTZS: usdToTZS, now: time.Now}
}

type MobileCheckoutInput struct {
	DonationID  int64
	Provider    string
	PhoneNumber string
	Currency    string // default TZS
}

type BankCheckoutInput struct {
	DonationID            int64
	Provider              string
	MerchantAccountNumber string
	MerchantMobileNumber  string
	OTP                   string
	Currency              string
}

type CheckoutResult struct {
	DonationID    int64
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Provider      string
	Message       string
}

// ExternalReference builds the correlation string echoed back in the
// webhook: RHCI-DN-{donation_id}-{timestamp}.
func ExternalReference(donationID int64, at time.Time) string {
	return fmt.Sprintf("%s-%d-%s", ExternalRefPrefix, donationID, at.Format("20060102150405"))
}

// MobileCheckout initiates a USSD-push payment for an existing
// donation. Three phases: validate under the row lock, call the
// gateway with no lock held, persist the gateway reference.
func (s *CheckoutService) MobileCheckout(ctx context.Context, in MobileCheckoutInput) (CheckoutResult, error) {
	currency := in.Currency
	if currency == "" {
		currency = "TZS"
	}

	d, amount, err := s.prepare(ctx, in.DonationID, currency)
	if err != nil {
		return CheckoutResult{}, err
	}

	externalID := ExternalReference(d.ID, s.now())

	props := map[string]any{"donation_id": strconv.FormatInt(d.ID, 10)}
	if d.PatientID != nil {
		props["patient_id"] = strconv.FormatInt(*d.PatientID, 10)
	}

	// Phase 2: gateway call, outside any transaction.
	resp, err := s.gateway.Checkout(ctx, azampay.CheckoutRequest{
		Amount:               amount,
		Currency:             currency,
		ExternalID:           externalID,
		Provider:             in.Provider,
		AccountNumber:        in.PhoneNumber,
		AdditionalProperties: props,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "checkout initiation failed",
			"donation_id", d.ID, "err", err)
		return CheckoutResult{}, err
	}

	txnID, err := s.finalize(ctx, d.ID, resp.TransactionID, externalID, "Mobile Money - "+in.Provider)
	if err != nil {
		return CheckoutResult{}, err
	}

	s.logger.InfoContext(ctx, "payment initiated",
		"donation_id", d.ID, "transaction_id", txnID, "provider", in.Provider)

	return CheckoutResult{
		DonationID:    d.ID,
		TransactionID: txnID,
		Amount:        amount,
		Currency:      currency,
		Provider:      in.Provider,
		Message:       "Payment initiated. Please check your phone to confirm.",
	}, nil
}

// BankCheckout initiates an OTP-confirmed bank payment.
func (s *CheckoutService) BankCheckout(ctx context.Context, in BankCheckoutInput) (CheckoutResult, error) {
	currency := in.Currency
	if currency == "" {
		currency = "TZS"
	}

	d, amount, err := s.prepare(ctx, in.DonationID, currency)
	if err != nil {
		return CheckoutResult{}, err
	}

	externalID := ExternalReference(d.ID, s.now())

	props := map[string]any{"donation_id": strconv.FormatInt(d.ID, 10)}
	if d.PatientID != nil {
		props["patient_id"] = strconv.FormatInt(*d.PatientID, 10)
	}

	resp, err := s.gateway.BankCheckout(ctx, azampay.BankCheckoutRequest{
		Amount:                amount,
		Currency:              currency,
		ExternalID:            externalID,
		Provider:              in.Provider,
		MerchantAccountNumber: in.MerchantAccountNumber,
		MerchantMobileNumber:  in.MerchantMobileNumber,
		OTP:                   in.OTP,
		AdditionalProperties:  props,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "bank checkout initiation failed",
			"donation_id", d.ID, "err", err)
		return CheckoutResult{}, err
	}

	txnID, err := s.finalize(ctx, d.ID, resp.TransactionID, externalID, "Bank Transfer - "+in.Provider)
	if err != nil {
		return CheckoutResult{}, err
	}

	return CheckoutResult{
		DonationID:    d.ID,
		TransactionID: txnID,
		Amount:        amount,
		Currency:      currency,
		Provider:      in.Provider,
		Message:       "Bank payment initiated successfully",
	}, nil
}

// prepare is phase 1: lock the donation, gate on its state, work out
// the charge amount in the requested currency.
func (s *CheckoutService) prepare(ctx context.Context, donationID int64, currency string) (donations.Donation, decimal.Decimal, error) {
	var d donations.Donation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&d, "id = ?", donationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return donations.ErrNotFound
			}
			return err
		}
		if d.Status == donations.StatusCompleted {
			return donations.ErrAlreadyCompleted
		}
		if d.Status == donations.StatusPending && d.TransactionID != nil {
			return donations.ErrPaymentInProgress
		}
		return nil
	})
	if err != nil {
		return donations.Donation{}, decimal.Zero, err
	}

	amount := d.Amount
	// donations are stored in USD; the gateway charges TZS
	if currency == "TZS" && d.Currency == "USD" {
		amount = d.Amount.Mul(s.usdToTZS)
	}
	return d, amount, nil
}

// finalize is phase 3: persist the gateway reference. Status stays
// PENDING; the webhook owns the terminal transition.
func (s *CheckoutService) finalize(ctx context.Context, donationID int64, gatewayTxnID, externalID, method string) (string, error) {
	txnID := gatewayTxnID
	if txnID == "" {
		txnID = externalID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Model(&donations.Donation{}).
			Where("id = ?", donationID).
			Updates(map[string]any{
				"transaction_id":  txnID,
				"payment_method":  method,
				"payment_gateway": "AzamPay",
				"status":          donations.StatusPending,
				"updated_at":      time.Now(),
			}).Error
	})
	if err != nil {
		return "", err
	}
	return txnID, nil
}
