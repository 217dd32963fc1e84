package services

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for a booking that cannot be scheduled as given.
var ErrInvalidInput = errors.New("invalid input")

// SchedulingError means no reminder job exists for the booking.
type SchedulingError struct {
	BookingID string
	Reason    string
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("scheduling reminder for booking %s: %s", e.BookingID, e.Reason)
}

// DispatchError wraps a failed outbound notification.
type DispatchError struct {
	Cause error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed: %v", e.Cause)
}

func (e *DispatchError) Unwrap() error {
	return e.Cause
}
