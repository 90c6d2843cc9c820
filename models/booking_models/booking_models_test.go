package booking_models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clinicbook/backend/models/shared_models"
	"github.com/clinicbook/backend/utils/apperrors"
)

func TestBlockingSlots(t *testing.T) {
	tests := []struct {
		requested string
		want      []string
	}{
		{shared_models.TimeSlotFull, []string{shared_models.TimeSlotMorning, shared_models.TimeSlotEvening, shared_models.TimeSlotFull}},
		{shared_models.TimeSlotMorning, []string{shared_models.TimeSlotMorning, shared_models.TimeSlotFull}},
		{shared_models.TimeSlotEvening, []string{shared_models.TimeSlotEvening, shared_models.TimeSlotFull}},
		{"afternoon", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BlockingSlots(tt.requested), "requested=%s", tt.requested)
	}
}

func TestNormalizeDate(t *testing.T) {
	day := time.Date(2026, 9, 7, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"canonical string", "2026-09-07", "2026-09-07"},
		{"rfc3339", "2026-09-07T14:30:00Z", "2026-09-07"},
		{"no zone", "2026-09-07T14:30:00", "2026-09-07"},
		{"us slash", "09/07/2026", "2026-09-07"},
		{"iso slash", "2026/09/07", "2026-09-07"},
		{"time.Time", day, "2026-09-07"},
		{"primitive.DateTime", primitive.NewDateTimeFromTime(day), "2026-09-07"},
		{"epoch millis", day.UnixMilli(), "2026-09-07"},
		{"epoch millis float", float64(day.UnixMilli()), "2026-09-07"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizeDate("next tuesday")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = NormalizeDate(struct{}{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestNormalizeRoomDatesFailsWhole(t *testing.T) {
	rooms := []BookedRoom{
		{RoomID: "a", TimeSlot: shared_models.TimeSlotFull, Dates: []string{"2026-09-07"}},
		{RoomID: "b", TimeSlot: shared_models.TimeSlotMorning, Dates: []string{"garbage"}},
	}
	_, err := NormalizeRoomDates(rooms)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "room b")
}

func validRooms() []BookedRoom {
	return []BookedRoom{
		{
			RoomID:   "room-1",
			RoomName: "Consultation A",
			TimeSlot: shared_models.TimeSlotFull,
			Dates:    []string{"2026-09-07", "2026-09-08"},
		},
	}
}

func TestNewBooking(t *testing.T) {
	b, err := NewBooking("user-1", shared_models.BookingTypeDaily, validRooms(), 118150)
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "user-1", b.UserID)
	assert.Equal(t, shared_models.BookingStatusPending, b.Status)
	assert.Equal(t, shared_models.PaymentStatusPending, b.PaymentStatus)
	assert.Equal(t, int64(118150), b.TotalAmount)
	assert.Empty(t, b.PaymentIntentID)
	assert.False(t, b.CreatedAt.IsZero())
}

func TestNewBookingRejectsOutOfOrderDates(t *testing.T) {
	rooms := validRooms()
	rooms[0].Dates = []string{"2026-09-08", "2026-09-07"}

	_, err := NewBooking("user-1", shared_models.BookingTypeDaily, rooms, 100)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "chronological order")
}

func TestNewBookingNormalizesDates(t *testing.T) {
	rooms := validRooms()
	rooms[0].Dates = []string{"2026-09-07T00:00:00Z", "2026-09-08"}

	b, err := NewBooking("user-1", shared_models.BookingTypeDaily, rooms, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-09-07", "2026-09-08"}, b.Rooms[0].Dates)
}

func TestNewBookingValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(rooms []BookedRoom) (userID, bookingType string, out []BookedRoom)
	}{
		{"missing user", func(r []BookedRoom) (string, string, []BookedRoom) {
			return "", shared_models.BookingTypeDaily, r
		}},
		{"bad booking type", func(r []BookedRoom) (string, string, []BookedRoom) {
			return "u", "weekly", r
		}},
		{"no rooms", func(r []BookedRoom) (string, string, []BookedRoom) {
			return "u", shared_models.BookingTypeDaily, nil
		}},
		{"missing room id", func(r []BookedRoom) (string, string, []BookedRoom) {
			r[0].RoomID = ""
			return "u", shared_models.BookingTypeDaily, r
		}},
		{"bad time slot", func(r []BookedRoom) (string, string, []BookedRoom) {
			r[0].TimeSlot = "afternoon"
			return "u", shared_models.BookingTypeDaily, r
		}},
		{"no dates", func(r []BookedRoom) (string, string, []BookedRoom) {
			r[0].Dates = nil
			return "u", shared_models.BookingTypeDaily, r
		}},
		{"bad start time", func(r []BookedRoom) (string, string, []BookedRoom) {
			r[0].StartTime = "25:00"
			return "u", shared_models.BookingTypeDaily, r
		}},
		{"bad end time", func(r []BookedRoom) (string, string, []BookedRoom) {
			r[0].EndTime = "9pm"
			return "u", shared_models.BookingTypeDaily, r
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, bookingType, rooms := tt.mutate(validRooms())
			_, err := NewBooking(userID, bookingType, rooms, 100)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestNewBookingAcceptsOptionalTimes(t *testing.T) {
	rooms := validRooms()
	rooms[0].StartTime = "09:00"
	rooms[0].EndTime = "17:30"

	b, err := NewBooking("user-1", shared_models.BookingTypeDaily, rooms, 100)
	require.NoError(t, err)
	assert.Equal(t, "09:00", b.Rooms[0].StartTime)
	assert.Equal(t, "17:30", b.Rooms[0].EndTime)
}
