package donations

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"rhci.org/portal/internal/modules/patients"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type CreateInput struct {
	Amount      decimal.Decimal
	Currency    string
	PatientID   *int64
	DonorName   *string
	IsAnonymous bool
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Donation, error) {
	if in.PatientID != nil {
		var count int64
		if err := s.db.WithContext(ctx).
			Model(&patients.PatientProfile{}).
			Where("id = ?", *in.PatientID).
			Count(&count).Error; err != nil {
			return Donation{}, err
		}
		if count == 0 {
			return Donation{}, ErrPatientNotFound
		}
	}

	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now()
	d := Donation{
		Amount:      in.Amount,
		Currency:    currency,
		Status:      StatusPending,
		PatientID:   in.PatientID,
		DonorName:   in.DonorName,
		IsAnonymous: in.IsAnonymous,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		return Donation{}, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Donation, error) {
	var d Donation
	err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Donation{}, ErrNotFound
	}
	if err != nil {
		return Donation{}, err
	}
	return d, nil
}
