package booking_controller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicbook/backend/models/shared_models"
	"github.com/clinicbook/backend/models/summary_models"
)

func TestIsWeekend(t *testing.T) {
	assert.True(t, isWeekend("2026-09-05"), "saturday")
	assert.True(t, isWeekend("2026-09-06"), "sunday")
	assert.False(t, isWeekend("2026-09-07"), "monday")
	assert.False(t, isWeekend("2026-09-11"), "friday")
	assert.False(t, isWeekend("garbage"))
}

func TestAvailableSlots(t *testing.T) {
	tests := []struct {
		name    string
		summary *summary_models.BookingSummary
		want    []string
	}{
		{
			"untouched day offers everything",
			nil,
			[]string{shared_models.TimeSlotFull, shared_models.TimeSlotMorning, shared_models.TimeSlotEvening},
		},
		{
			"morning held leaves evening only",
			&summary_models.BookingSummary{Slots: map[string]string{shared_models.TimeSlotMorning: "b1"}},
			[]string{shared_models.TimeSlotEvening},
		},
		{
			"evening held leaves morning only",
			&summary_models.BookingSummary{Slots: map[string]string{shared_models.TimeSlotEvening: "b1"}},
			[]string{shared_models.TimeSlotMorning},
		},
		{
			"full booking leaves nothing",
			&summary_models.BookingSummary{Slots: map[string]string{
				shared_models.TimeSlotMorning: "b1",
				shared_models.TimeSlotEvening: "b1",
			}},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, availableSlots(tt.summary))
		})
	}
}
