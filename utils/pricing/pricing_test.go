package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbook/backend/models/shared_models"
	"github.com/clinicbook/backend/utils/apperrors"
)

var standardRates = RoomRates{
	FullDayPrice:     30000,
	HalfDayPrice:     15000,
	MonthlyFullPrice: 200000,
	MonthlyHalfPrice: 120000,
}

func TestQuoteDailyFullDayNonMember(t *testing.T) {
	selections := []Selection{
		{
			RoomID:   "room-1",
			TimeSlot: shared_models.TimeSlotFull,
			Dates:    []string{"2026-09-07", "2026-09-08", "2026-09-09"},
			Rates:    standardRates,
		},
	}

	breakdown, err := Quote(selections, shared_models.BookingTypeDaily, false)
	require.NoError(t, err)

	assert.Equal(t, int64(90000), breakdown.Subtotal)
	assert.Equal(t, int64(3150), breakdown.Tax)
	assert.Equal(t, int64(25000), breakdown.SecurityDeposit)
	assert.Equal(t, int64(118150), breakdown.Total)
	assert.Equal(t, "1181.50", FormatCents(breakdown.Total))
}

func TestQuoteMonthlyHalfDayMember(t *testing.T) {
	selections := []Selection{
		{
			RoomID:   "room-2",
			TimeSlot: shared_models.TimeSlotMorning,
			Dates:    []string{"2026-09-01", "2026-09-02", "2026-09-03", "2026-09-04"},
			Rates:    standardRates,
		},
	}

	breakdown, err := Quote(selections, shared_models.BookingTypeMonthly, true)
	require.NoError(t, err)

	assert.Equal(t, int64(120000), breakdown.Subtotal)
	assert.Equal(t, int64(4200), breakdown.Tax)
	assert.Equal(t, int64(0), breakdown.SecurityDeposit, "members pay no deposit")
	assert.Equal(t, int64(124200), breakdown.Total)
	assert.Equal(t, "1242.00", FormatCents(breakdown.Total))
}

func TestQuoteMonthlyIgnoresDateCount(t *testing.T) {
	few := []Selection{{RoomID: "r", TimeSlot: shared_models.TimeSlotFull, Dates: []string{"2026-09-01"}, Rates: standardRates}}
	many := []Selection{{RoomID: "r", TimeSlot: shared_models.TimeSlotFull, Dates: []string{
		"2026-09-01", "2026-09-02", "2026-09-03", "2026-09-04", "2026-09-07",
	}, Rates: standardRates}}

	a, err := Quote(few, shared_models.BookingTypeMonthly, false)
	require.NoError(t, err)
	b, err := Quote(many, shared_models.BookingTypeMonthly, false)
	require.NoError(t, err)

	assert.Equal(t, a.Subtotal, b.Subtotal)
	assert.Equal(t, int64(200000), a.Subtotal)
}

func TestQuoteDailyMultiRoomMixedSlots(t *testing.T) {
	selections := []Selection{
		{RoomID: "a", TimeSlot: shared_models.TimeSlotFull, Dates: []string{"2026-09-01", "2026-09-02"}, Rates: standardRates},
		{RoomID: "b", TimeSlot: shared_models.TimeSlotEvening, Dates: []string{"2026-09-01"}, Rates: standardRates},
	}

	breakdown, err := Quote(selections, shared_models.BookingTypeDaily, true)
	require.NoError(t, err)

	// 2*30000 + 1*15000
	assert.Equal(t, int64(75000), breakdown.Subtotal)
	assert.Equal(t, int64(2625), breakdown.Tax)
	assert.Equal(t, int64(77625), breakdown.Total)
}

func TestQuoteSkipsEmptySelections(t *testing.T) {
	selections := []Selection{
		{RoomID: "a", TimeSlot: shared_models.TimeSlotFull, Dates: nil, Rates: standardRates},
		{RoomID: "b", TimeSlot: shared_models.TimeSlotMorning, Dates: []string{"2026-09-01"}, Rates: standardRates},
	}

	breakdown, err := Quote(selections, shared_models.BookingTypeDaily, false)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), breakdown.Subtotal)
}

func TestQuoteRejectsAllEmpty(t *testing.T) {
	selections := []Selection{
		{RoomID: "a", TimeSlot: shared_models.TimeSlotFull, Dates: nil, Rates: standardRates},
	}

	_, err := Quote(selections, shared_models.BookingTypeDaily, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestQuoteRejectsUnknownBookingType(t *testing.T) {
	_, err := Quote(nil, "weekly", false)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestQuoteRejectsUnknownTimeSlot(t *testing.T) {
	selections := []Selection{
		{RoomID: "a", TimeSlot: "afternoon", Dates: []string{"2026-09-01"}, Rates: standardRates},
	}

	_, err := Quote(selections, shared_models.BookingTypeDaily, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestRoundHalfUp(t *testing.T) {
	// 3.5% of 10 cents is 0.35 cents, rounds to 0.
	assert.Equal(t, int64(0), roundHalfUp(10*35, 1000))
	// 3.5% of 15 cents is 0.525 cents, rounds to 1.
	assert.Equal(t, int64(1), roundHalfUp(15*35, 1000))
	// Exact half rounds up.
	assert.Equal(t, int64(1), roundHalfUp(500, 1000))
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.00", FormatCents(0))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "1181.50", FormatCents(118150))
	assert.Equal(t, "-12.34", FormatCents(-1234))
}
