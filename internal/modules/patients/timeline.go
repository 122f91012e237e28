package patients

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EventFundingMilestone = "FUNDING_MILESTONE"
	EventFullyFunded      = "FULLY_FUNDED"
)

type TimelineEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	PatientID   int64          `gorm:"not null;index:ix_timeline_patient_created,priority:1"`
	EventType   string         `gorm:"type:varchar(30);not null;index:ix_timeline_event_type"`
	Title       string         `gorm:"type:varchar(200);not null"`
	Description string         `gorm:"type:text;not null"`
	Metadata    datatypes.JSON `gorm:"type:json;not null"`
	IsMilestone bool           `gorm:"not null;default:0"`
	CreatedAt   time.Time      `gorm:"type:datetime(3);not null;index:ix_timeline_patient_created,priority:2"`
}

func (TimelineEvent) TableName() string { return "patient_timeline_events" }

// RecordEvent appends a timeline row inside the caller's transaction.
// Events are written only through explicit calls like this one; nothing
// hooks into saves.
func RecordEvent(ctx context.Context, tx *gorm.DB, patientID int64, eventType, title, description string, metadata datatypes.JSON, milestone bool) error {
	if metadata == nil {
		metadata = datatypes.JSON([]byte("{}"))
	}
	ev := TimelineEvent{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		EventType:   eventType,
		Title:       title,
		Description: description,
		Metadata:    metadata,
		IsMilestone: milestone,
		CreatedAt:   time.Now(),
	}
	return tx.WithContext(ctx).Create(&ev).Error
}
