package services

import (
	"context"
	"time"

	"shiftbook-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReminderRecorder persists the outcome of a reminder.
type ReminderRecorder interface {
	Record(ctx context.Context, entry *models.ReminderLog) error
}

type ReminderLogStore struct {
	db *gorm.DB
}

func NewReminderLogStore(db *gorm.DB) *ReminderLogStore {
	return &ReminderLogStore{db: db}
}

func (s *ReminderLogStore) Record(ctx context.Context, entry *models.ReminderLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// Latest returns the most recent log entry for a booking, or gorm.ErrRecordNotFound.
func (s *ReminderLogStore) Latest(ctx context.Context, bookingID uuid.UUID) (*models.ReminderLog, error) {
	var entry models.ReminderLog
	err := s.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("sent_at DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// PruneBefore hard-deletes entries sent before cutoff.
func (s *ReminderLogStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("sent_at < ?", cutoff.UTC()).
		Delete(&models.ReminderLog{})
	return result.RowsAffected, result.Error
}
