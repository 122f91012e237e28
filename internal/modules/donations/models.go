package donations

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
	StatusRefunded  = "REFUNDED"
)

// IsTerminal reports whether a donation in this status accepts no
// further gateway-driven transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

type Donation struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency       string          `gorm:"type:char(3);not null;default:'USD'"`
	Status         string          `gorm:"type:varchar(20);not null;default:'PENDING';index:ix_donations_status"`
	TransactionID  *string         `gorm:"type:varchar(128);uniqueIndex:ux_donations_transaction_id"`
	PaymentMethod  *string         `gorm:"type:varchar(64)"`
	PaymentGateway *string         `gorm:"type:varchar(64)"`

	// nil for general-fund donations
	PatientID *int64 `gorm:"index:ix_donations_patient_id"`

	DonorName   *string `gorm:"type:varchar(200)"`
	IsAnonymous bool    `gorm:"not null;default:0"`

	CreatedAt   time.Time  `gorm:"type:datetime(3);not null"`
	UpdatedAt   time.Time  `gorm:"type:datetime(3);not null"`
	CompletedAt *time.Time `gorm:"type:datetime(3)"` // set once, at PENDING -> COMPLETED
}

func (Donation) TableName() string { return "donations" }
