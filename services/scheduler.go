package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"shiftbook-backend/events"
	"shiftbook-backend/models"

	"github.com/google/uuid"
)

const (
	DefaultLeadTime        = 30 * time.Minute
	defaultMaxPending      = 10000
	defaultDispatchTimeout = 15 * time.Second
	recordTimeout          = 5 * time.Second
	shiftTimeLayout        = "2006-01-02 15:04 MST"
)

// ShiftScheduler turns bookings into one-shot reminder jobs.
type ShiftScheduler struct {
	registry   *JobRegistry
	dispatcher Dispatcher
	clock      Clock
	leadTime   time.Duration

	recorder        ReminderRecorder
	publisher       events.Publisher
	maxPending      int
	dispatchTimeout time.Duration

	mu      sync.RWMutex
	stopped bool
}

type SchedulerOption func(*ShiftScheduler)

func WithReminderRecorder(r ReminderRecorder) SchedulerOption {
	return func(s *ShiftScheduler) { s.recorder = r }
}

func WithEventPublisher(p events.Publisher) SchedulerOption {
	return func(s *ShiftScheduler) { s.publisher = p }
}

func WithMaxPending(n int) SchedulerOption {
	return func(s *ShiftScheduler) {
		if n > 0 {
			s.maxPending = n
		}
	}
}

func WithDispatchTimeout(d time.Duration) SchedulerOption {
	return func(s *ShiftScheduler) {
		if d > 0 {
			s.dispatchTimeout = d
		}
	}
}

func NewShiftScheduler(registry *JobRegistry, dispatcher Dispatcher, clock Clock, leadTime time.Duration, opts ...SchedulerOption) *ShiftScheduler {
	if clock == nil {
		clock = RealClock()
	}
	if leadTime <= 0 {
		leadTime = DefaultLeadTime
	}
	s := &ShiftScheduler{
		registry:        registry,
		dispatcher:      dispatcher,
		clock:           clock,
		leadTime:        leadTime,
		maxPending:      defaultMaxPending,
		dispatchTimeout: defaultDispatchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ShiftScheduler) LeadTime() time.Duration { return s.leadTime }

// ReminderMessage is the text dispatched for a booking.
func ReminderMessage(phone string, shiftStart time.Time) string {
	return fmt.Sprintf("Shift reminder: %s starts at %s", phone, shiftStart.UTC().Format(shiftTimeLayout))
}

// Schedule registers a reminder firing at shiftStart minus the lead time.
// A trigger time that has already passed fires immediately.
func (s *ShiftScheduler) Schedule(bookingID uuid.UUID, phone string, shiftStart time.Time) (*ScheduledJob, error) {
	switch {
	case bookingID == uuid.Nil:
		return nil, fmt.Errorf("%w: booking id is required", ErrInvalidInput)
	case strings.TrimSpace(phone) == "":
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidInput)
	case shiftStart.IsZero():
		return nil, fmt.Errorf("%w: shift start is required", ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return nil, &SchedulingError{BookingID: bookingID.String(), Reason: "scheduler is stopped"}
	}

	shiftStart = shiftStart.UTC()
	fireAt := ComputeTriggerTime(shiftStart, s.leadTime)
	job := NewScheduledJob(bookingID, phone, shiftStart, fireAt)

	delay := fireAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	registered := s.registry.RegisterBounded(job, s.maxPending, func() Timer {
		return s.clock.AfterFunc(delay, func() { s.fire(job) })
	})
	if !registered {
		return nil, &SchedulingError{BookingID: bookingID.String(), Reason: "pending reminder capacity reached"}
	}
	if delay == 0 {
		log.Printf("[SCHED] booking %s is inside the lead time, firing now", bookingID)
	} else {
		log.Printf("[SCHED] reminder for booking %s scheduled at %s", bookingID, fireAt.Format(time.RFC3339))
	}
	return job, nil
}

// Lookup returns the booking's registered job in whatever state it is in. A job
// that has fired stays registered until its dispatch completes.
func (s *ShiftScheduler) Lookup(bookingID uuid.UUID) (*ScheduledJob, bool) {
	return s.registry.Lookup(bookingID)
}

// Pending returns the booking's job while it has not fired or been cancelled.
func (s *ShiftScheduler) Pending(bookingID uuid.UUID) (*ScheduledJob, bool) {
	job, exists := s.registry.Lookup(bookingID)
	if !exists || job.State() != JobPending {
		return nil, false
	}
	return job, true
}

// Cancel stops the booking's pending reminder. It reports whether one was cancelled.
func (s *ShiftScheduler) Cancel(bookingID uuid.UUID) bool {
	job := s.registry.cancel(bookingID)
	if job == nil {
		return false
	}
	log.Printf("[SCHED] reminder for booking %s cancelled", bookingID)

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	s.record(ctx, job, models.ReminderCancelled, nil)
	events.Publish(ctx, s.publisher, events.RKReminderCancelled, outcomeOf(job, nil))
	return true
}

// Stop cancels every pending reminder and rejects further scheduling.
func (s *ShiftScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	if n := s.registry.CancelAll(); n > 0 {
		log.Printf("[SCHED] stopped with %d pending reminders dropped", n)
	}
}

func (s *ShiftScheduler) fire(job *ScheduledJob) {
	if !s.registry.claim(job) {
		return
	}
	defer s.registry.RemoveJob(job)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[SCHED] reminder for booking %s panicked: %v", job.BookingID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
	defer cancel()
	err := s.dispatcher.Send(ctx, ReminderMessage(job.Phone, job.ShiftStart))

	recordCtx, cancelRecord := context.WithTimeout(context.Background(), recordTimeout)
	defer cancelRecord()

	if err != nil {
		log.Printf("[SCHED] reminder for booking %s failed: %v", job.BookingID, err)
		s.record(recordCtx, job, models.ReminderFailed, err)
		events.Publish(recordCtx, s.publisher, events.RKReminderFailed, outcomeOf(job, err))
		return
	}
	log.Printf("[SCHED] reminder for booking %s sent", job.BookingID)
	s.record(recordCtx, job, models.ReminderSent, nil)
	events.Publish(recordCtx, s.publisher, events.RKReminderSent, outcomeOf(job, nil))
}

func (s *ShiftScheduler) record(ctx context.Context, job *ScheduledJob, status string, cause error) {
	if s.recorder == nil {
		return
	}
	entry := &models.ReminderLog{
		BookingID: job.BookingID,
		Message:   ReminderMessage(job.Phone, job.ShiftStart),
		Status:    status,
		Channel:   channelOf(s.dispatcher),
		SentAt:    s.clock.Now().UTC(),
	}
	if cause != nil {
		entry.ErrorMessage = cause.Error()
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		log.Printf("[SCHED] failed to log reminder for booking %s: %v", job.BookingID, err)
	}
}

func outcomeOf(job *ScheduledJob, err error) events.ReminderOutcome {
	out := events.ReminderOutcome{
		BookingID:  job.BookingID.String(),
		ShiftStart: job.ShiftStart,
		FireAt:     job.FireAt,
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}
