package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidation("bad input"), 400},
		{"not found", &NotFoundError{Resource: "booking", ID: "b1"}, 404},
		{"conflict", &ConflictError{RoomID: "r1", Date: "2026-09-07", TimeSlot: "full"}, 409},
		{"upstream", &UpstreamError{Service: "payment processor", Err: errors.New("timeout")}, 502},
		{"plain error", errors.New("boom"), 500},
		{"wrapped validation", fmt.Errorf("outer: %w", NewValidation("inner")), 400},
		{"wrapped conflict", fmt.Errorf("outer: %w", &ConflictError{RoomID: "r1"}), 409},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestConflictErrorMessage(t *testing.T) {
	withDate := &ConflictError{RoomID: "r1", RoomName: "Consultation A", Date: "2026-09-07", TimeSlot: "morning"}
	assert.Equal(t, "room Consultation A is already booked on 2026-09-07 (morning)", withDate.Error())

	noName := &ConflictError{RoomID: "r1", Date: "2026-09-07", TimeSlot: "full"}
	assert.Contains(t, noName.Error(), "room r1")

	noDate := &ConflictError{RoomID: "r1"}
	assert.Equal(t, "room r1 has conflicting reservations", noDate.Error())
}

func TestUpstreamErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &UpstreamError{Service: "payment processor", Err: inner}
	assert.ErrorIs(t, err, inner)
}

func TestPredicatesDoNotCrossMatch(t *testing.T) {
	err := NewValidation("bad")
	assert.True(t, IsValidation(err))
	assert.False(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsUpstream(err))
}
