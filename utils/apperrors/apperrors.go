package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError rejects a request whose payload is malformed. Nothing is
// written when one of these is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation builds a ValidationError from a format string.
func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError means a room/date/time-slot combination is already reserved.
type ConflictError struct {
	RoomID   string
	RoomName string
	Date     string
	TimeSlot string
}

func (e *ConflictError) Error() string {
	name := e.RoomName
	if name == "" {
		name = e.RoomID
	}
	if e.Date != "" {
		return fmt.Sprintf("room %s is already booked on %s (%s)", name, e.Date, e.TimeSlot)
	}
	return fmt.Sprintf("room %s has conflicting reservations", name)
}

// NotFoundError identifies a missing booking, user, room or payment intent.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// UpstreamError wraps a failure from the payment processor or mail transport.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error taxonomy onto HTTP statuses.
func StatusCode(err error) int {
	switch {
	case IsValidation(err):
		return 400
	case IsNotFound(err):
		return 404
	case IsConflict(err):
		return 409
	case IsUpstream(err):
		return 502
	default:
		return 500
	}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
