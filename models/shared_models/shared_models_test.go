package shared_models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidTimeSlot(t *testing.T) {
	assert.True(t, IsValidTimeSlot(TimeSlotFull))
	assert.True(t, IsValidTimeSlot(TimeSlotMorning))
	assert.True(t, IsValidTimeSlot(TimeSlotEvening))
	assert.False(t, IsValidTimeSlot("afternoon"))
	assert.False(t, IsValidTimeSlot(""))
}

func TestIsValidBookingType(t *testing.T) {
	assert.True(t, IsValidBookingType(BookingTypeDaily))
	assert.True(t, IsValidBookingType(BookingTypeMonthly))
	assert.False(t, IsValidBookingType("weekly"))
	assert.False(t, IsValidBookingType(""))
}

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	userID, err := GenerateUUIDv7()
	require.NoError(t, err)

	token, err := GenerateAccessToken(userID, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	userID, err := GenerateUUIDv7()
	require.NoError(t, err)

	token, err := GenerateAccessToken(userID, -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	id, err := ParseAccessToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, uuid.Nil, id)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-one")
	userID, err := GenerateUUIDv7()
	require.NoError(t, err)
	token, err := GenerateAccessToken(userID, time.Hour)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "secret-two")
	_, err = ParseAccessToken(token)
	require.Error(t, err)
}
