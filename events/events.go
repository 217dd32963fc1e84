package events

import (
	"context"
	"log"
	"time"
)

// Routing keys published on the events exchange.
const (
	RKBookingCreated    = "booking.created"
	RKReminderSent      = "reminder.sent"
	RKReminderFailed    = "reminder.failed"
	RKReminderCancelled = "reminder.cancelled"
)

type BookingCreated struct {
	BookingID         string    `json:"booking_id"`
	ShiftStart        time.Time `json:"shift_start"`
	ReminderScheduled bool      `json:"reminder_scheduled"`
}

type ReminderOutcome struct {
	BookingID  string    `json:"booking_id"`
	ShiftStart time.Time `json:"shift_start"`
	FireAt     time.Time `json:"fire_at"`
	Error      string    `json:"error,omitempty"`
}

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

// Publish sends v and only logs on failure; events never fail the caller.
func Publish(ctx context.Context, p Publisher, key string, v any) {
	if p == nil {
		return
	}
	if err := p.PublishJSON(ctx, key, v); err != nil {
		log.Printf("[EVENTS] publish %s failed: %v", key, err)
	}
}

type NoopPublisher struct{}

func (NoopPublisher) PublishJSON(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error                                  { return nil }
