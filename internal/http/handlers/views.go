package handlers

import (
	"time"

	"rhci.org/portal/internal/modules/donations"
)

type donationJSON struct {
	ID             int64      `json:"id"`
	Amount         string     `json:"amount"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	TransactionID  *string    `json:"transaction_id"`
	PaymentMethod  *string    `json:"payment_method"`
	PaymentGateway *string    `json:"payment_gateway"`
	PatientID      *int64     `json:"patient_id"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}

func donationView(d donations.Donation) donationJSON {
	return donationJSON{
		ID:             d.ID,
		Amount:         d.Amount.StringFixed(2),
		Currency:       d.Currency,
		Status:         d.Status,
		TransactionID:  d.TransactionID,
		PaymentMethod:  d.PaymentMethod,
		PaymentGateway: d.PaymentGateway,
		PatientID:      d.PatientID,
		CreatedAt:      d.CreatedAt,
		CompletedAt:    d.CompletedAt,
	}
}
