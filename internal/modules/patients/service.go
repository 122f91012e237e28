package patients

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("patient not found")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Summary(ctx context.Context, id int64) (FundingSummary, error) {
	var p PatientProfile
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FundingSummary{}, ErrNotFound
	}
	if err != nil {
		return FundingSummary{}, err
	}
	return Summarize(p), nil
}
