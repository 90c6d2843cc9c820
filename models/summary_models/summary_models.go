package summary_models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicbook/backend/logger"
	"github.com/clinicbook/backend/models/shared_models"
	"github.com/clinicbook/backend/utils/apperrors"
)

const SummariesCollection = "booking_summaries"

// BookingSummary is one document per (room, date). Slots maps a half-day
// unit ("morning"/"evening") to the booking id holding it; a full-day booking
// holds both units. A unique index on (room_id, date) plus the filtered
// upsert in claimDate make the claim atomic at the store: the losing
// concurrent writer is rejected by the index, not by an in-process lock.
type BookingSummary struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID    string             `bson:"room_id" json:"room_id"`
	Date      string             `bson:"date" json:"date"`
	Slots     map[string]string  `bson:"slots" json:"slots"`
	CreatedAt time.Time          `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// UnitsFor returns the half-day units a time-slot occupies.
func UnitsFor(timeSlot string) []string {
	switch timeSlot {
	case shared_models.TimeSlotFull:
		return []string{shared_models.TimeSlotMorning, shared_models.TimeSlotEvening}
	case shared_models.TimeSlotMorning:
		return []string{shared_models.TimeSlotMorning}
	case shared_models.TimeSlotEvening:
		return []string{shared_models.TimeSlotEvening}
	default:
		return nil
	}
}

// claimDate takes the units for one (room, date) or fails with a duplicate
// key / unmatched filter when any unit is already held.
func claimDate(ctx context.Context, db *mongo.Database, roomID, timeSlot, date, bookingID string) error {
	units := UnitsFor(timeSlot)
	if units == nil {
		return apperrors.NewValidation("unknown time slot %q", timeSlot)
	}

	now := time.Now()
	filter := bson.M{"room_id": roomID, "date": date}
	set := bson.M{"updated_at": now}
	for _, unit := range units {
		filter["slots."+unit] = bson.M{"$exists": false}
		set["slots."+unit] = bookingID
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"room_id":    roomID,
			"date":       date,
			"created_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)

	// Two writers can race to insert the summary for a fresh (room, date)
	// even when they want different units. The loser's upsert hits the
	// unique index; one retry then runs against the winner's document, and
	// the $set takes the unit if it is still free. A second duplicate key
	// means the unit is genuinely held.
	for attempt := 0; attempt < 2; attempt++ {
		_, err := db.Collection(SummariesCollection).UpdateOne(ctx, filter, update, opts)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("database error claiming %s %s for room %s: %w", date, timeSlot, roomID, err)
		}
	}
	return &apperrors.ConflictError{RoomID: roomID, Date: date, TimeSlot: timeSlot}
}

// ClaimDates claims every (room, date) unit for a booking. On the first
// conflict the units already claimed for this booking are rolled back before
// the conflict is returned, so a rejected checkout leaves no residue.
func ClaimDates(ctx context.Context, db *mongo.Database, roomID, timeSlot string, dates []string, bookingID string) error {
	for _, date := range dates {
		if err := claimDate(ctx, db, roomID, timeSlot, date, bookingID); err != nil {
			if releaseErr := ReleaseClaims(ctx, db, bookingID); releaseErr != nil {
				logger.ErrorLogger.Errorf("Failed to roll back claims for booking %s: %v", bookingID, releaseErr)
			}
			return err
		}
	}
	return nil
}

// ReleaseClaims frees every unit held by a booking. Used when a checkout is
// rolled back and when payment reconciliation lands on failed.
func ReleaseClaims(ctx context.Context, db *mongo.Database, bookingID string) error {
	now := time.Now()
	for _, unit := range []string{shared_models.TimeSlotMorning, shared_models.TimeSlotEvening} {
		_, err := db.Collection(SummariesCollection).UpdateMany(ctx,
			bson.M{"slots." + unit: bookingID},
			bson.M{
				"$unset": bson.M{"slots." + unit: ""},
				"$set":   bson.M{"updated_at": now},
			},
		)
		if err != nil {
			return fmt.Errorf("database error releasing %s claims for booking %s: %w", unit, bookingID, err)
		}
	}
	return nil
}

// ListForRoomRange returns the summaries for a room between two canonical
// dates, inclusive. Read fresh on every availability check; nothing is
// cached across requests.
func ListForRoomRange(ctx context.Context, db *mongo.Database, roomID, fromDate, toDate string) (map[string]BookingSummary, error) {
	filter := bson.M{
		"room_id": roomID,
		"date":    bson.M{"$gte": fromDate, "$lte": toDate},
	}
	cursor, err := db.Collection(SummariesCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("database error listing summaries for room %s: %w", roomID, err)
	}
	defer cursor.Close(ctx)

	out := make(map[string]BookingSummary)
	for cursor.Next(ctx) {
		var s BookingSummary
		if err := cursor.Decode(&s); err != nil {
			return nil, fmt.Errorf("error decoding booking summary: %w", err)
		}
		out[s.Date] = s
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error listing summaries: %w", err)
	}
	return out, nil
}

// IsDateFree reports whether requested fits into the summary's claimed units.
func IsDateFree(summary *BookingSummary, requested string) bool {
	if summary == nil {
		return true
	}
	for _, unit := range UnitsFor(requested) {
		if _, taken := summary.Slots[unit]; taken {
			return false
		}
	}
	return true
}

// EnsureIndexes creates the unique (room_id, date) index the claim protocol
// relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(SummariesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create booking summary index: %w", err)
	}
	return nil
}
