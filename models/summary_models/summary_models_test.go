package summary_models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/clinicbook/backend/models/shared_models"
	"github.com/clinicbook/backend/utils/apperrors"
)

func TestUnitsFor(t *testing.T) {
	assert.Equal(t, []string{shared_models.TimeSlotMorning, shared_models.TimeSlotEvening}, UnitsFor(shared_models.TimeSlotFull))
	assert.Equal(t, []string{shared_models.TimeSlotMorning}, UnitsFor(shared_models.TimeSlotMorning))
	assert.Equal(t, []string{shared_models.TimeSlotEvening}, UnitsFor(shared_models.TimeSlotEvening))
	assert.Nil(t, UnitsFor("afternoon"))
}

func TestIsDateFree(t *testing.T) {
	morningTaken := &BookingSummary{
		RoomID: "room-1",
		Date:   "2026-09-07",
		Slots:  map[string]string{shared_models.TimeSlotMorning: "booking-a"},
	}
	bothTaken := &BookingSummary{
		RoomID: "room-1",
		Date:   "2026-09-07",
		Slots: map[string]string{
			shared_models.TimeSlotMorning: "booking-a",
			shared_models.TimeSlotEvening: "booking-a",
		},
	}

	tests := []struct {
		name      string
		summary   *BookingSummary
		requested string
		free      bool
	}{
		{"no summary means free", nil, shared_models.TimeSlotFull, true},
		{"empty slots free for full", &BookingSummary{Slots: map[string]string{}}, shared_models.TimeSlotFull, true},
		{"morning taken blocks morning", morningTaken, shared_models.TimeSlotMorning, false},
		{"morning taken blocks full", morningTaken, shared_models.TimeSlotFull, false},
		{"morning taken leaves evening", morningTaken, shared_models.TimeSlotEvening, true},
		{"full booking blocks evening", bothTaken, shared_models.TimeSlotEvening, false},
		{"full booking blocks morning", bothTaken, shared_models.TimeSlotMorning, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.free, IsDateFree(tt.summary, tt.requested))
		})
	}
}

func duplicateKeyResponse() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error",
	})
}

func TestClaimDateRetriesAfterConcurrentInsert(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("loser of the insert race retries against the winner's document", func(mt *mtest.T) {
		mt.AddMockResponses(
			duplicateKeyResponse(),
			mtest.CreateSuccessResponse(),
		)

		err := claimDate(context.Background(), mt.DB, "room-1", shared_models.TimeSlotMorning, "2026-09-07", "booking-a")
		require.NoError(mt, err)
	})

	mt.Run("unit held after the retry is a conflict", func(mt *mtest.T) {
		mt.AddMockResponses(
			duplicateKeyResponse(),
			duplicateKeyResponse(),
		)

		err := claimDate(context.Background(), mt.DB, "room-1", shared_models.TimeSlotMorning, "2026-09-07", "booking-b")
		require.Error(mt, err)
		assert.True(mt, apperrors.IsConflict(err))
	})

	mt.Run("other database errors are not conflicts", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    8000,
			Message: "rate limited",
		}))

		err := claimDate(context.Background(), mt.DB, "room-1", shared_models.TimeSlotEvening, "2026-09-07", "booking-c")
		require.Error(mt, err)
		assert.False(mt, apperrors.IsConflict(err))
	})
}
