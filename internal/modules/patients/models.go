package patients

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusSubmitted         = "SUBMITTED"
	StatusScheduled         = "SCHEDULED"
	StatusPublished         = "PUBLISHED"
	StatusAwaitingFunding   = "AWAITING_FUNDING"
	StatusFullyFunded       = "FULLY_FUNDED"
	StatusTreatmentComplete = "TREATMENT_COMPLETE"
)

// PatientProfile carries the funding aggregate this service mutates.
// Profile content (story, medical details, photos) is owned by the
// admin/CRUD system and not mapped here.
type PatientProfile struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	FullName string `gorm:"type:varchar(200);not null"`

	FundingRequired decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0.00"`
	FundingReceived decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0.00"`

	Status string `gorm:"type:varchar(20);not null;default:'SUBMITTED'"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (PatientProfile) TableName() string { return "patient_profiles" }

// FundingSummary is the per-patient view returned alongside payment
// responses.
type FundingSummary struct {
	PatientID       int64           `json:"patient_id"`
	FullName        string          `json:"full_name"`
	FundingReceived decimal.Decimal `json:"funding_received"`
	FundingRequired decimal.Decimal `json:"funding_required"`
	Percentage      float64         `json:"percentage"`
	Remaining       decimal.Decimal `json:"remaining"`
	Status          string          `json:"status"`
}

func Summarize(p PatientProfile) FundingSummary {
	s := FundingSummary{
		PatientID:       p.ID,
		FullName:        p.FullName,
		FundingReceived: p.FundingReceived,
		FundingRequired: p.FundingRequired,
		Remaining:       decimal.Zero,
		Status:          p.Status,
	}
	if p.FundingRequired.IsPositive() {
		pct, _ := p.FundingReceived.
			Div(p.FundingRequired).
			Mul(decimal.NewFromInt(100)).
			Round(1).
			Float64()
		s.Percentage = pct
	}
	if rem := p.FundingRequired.Sub(p.FundingReceived); rem.IsPositive() {
		s.Remaining = rem
	}
	return s
}
