package booking_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicbook/backend/logger"
	"github.com/clinicbook/backend/models/shared_models"
	"github.com/clinicbook/backend/utils/apperrors"
)

const BookingsCollection = "bookings"

// DateLayout is the canonical calendar-date format stored on bookings.
const DateLayout = "2006-01-02"

// BookedRoom is one room's reserved time-slot and dates within a booking.
// Dates are canonical YYYY-MM-DD strings, ascending.
type BookedRoom struct {
	RoomID    string   `bson:"room_id" json:"room_id"`
	RoomName  string   `bson:"room_name" json:"room_name"`
	TimeSlot  string   `bson:"time_slot" json:"time_slot"`
	Dates     []string `bson:"dates" json:"dates"`
	StartTime string   `bson:"start_time,omitempty" json:"start_time,omitempty"`
	EndTime   string   `bson:"end_time,omitempty" json:"end_time,omitempty"`
}

// PaymentError preserves the processor's decline detail for display.
type PaymentError struct {
	Message     string `bson:"message" json:"message"`
	Code        string `bson:"code,omitempty" json:"code,omitempty"`
	DeclineCode string `bson:"decline_code,omitempty" json:"decline_code,omitempty"`
}

// PaymentDetails is the payment snapshot stored on the booking at
// reconciliation time. Amount is in cents.
type PaymentDetails struct {
	Amount      int64         `bson:"amount,omitempty" json:"amount,omitempty"`
	Currency    string        `bson:"currency,omitempty" json:"currency,omitempty"`
	Method      string        `bson:"method,omitempty" json:"method,omitempty"`
	ConfirmedAt *time.Time    `bson:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`
	Error       *PaymentError `bson:"error,omitempty" json:"error,omitempty"`
}

// Booking is the reservation aggregate. It is created pending/pending at
// checkout, mutated only by reconciliation afterwards, and never deleted.
// PaymentIntentID is the processor's order id and the idempotency key.
type Booking struct {
	ID              string         `bson:"_id" json:"id"`
	UserID          string         `bson:"user_id" json:"user_id"`
	BookingType     string         `bson:"booking_type" json:"booking_type"`
	Rooms           []BookedRoom   `bson:"rooms" json:"rooms"`
	TotalAmount     int64          `bson:"total_amount" json:"total_amount"`
	Status          string         `bson:"status" json:"status"`
	PaymentStatus   string         `bson:"payment_status" json:"payment_status"`
	PaymentIntentID string         `bson:"payment_intent_id,omitempty" json:"payment_intent_id,omitempty"`
	PaymentDetails  PaymentDetails `bson:"payment_details,omitempty" json:"payment_details"`
	CreatedAt       time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at" json:"updated_at"`
}

// BlockingSlots returns the existing time-slots that make requested
// unavailable on the same room and date.
func BlockingSlots(requested string) []string {
	switch requested {
	case shared_models.TimeSlotFull:
		return []string{shared_models.TimeSlotMorning, shared_models.TimeSlotEvening, shared_models.TimeSlotFull}
	case shared_models.TimeSlotMorning:
		return []string{shared_models.TimeSlotMorning, shared_models.TimeSlotFull}
	case shared_models.TimeSlotEvening:
		return []string{shared_models.TimeSlotEvening, shared_models.TimeSlotFull}
	default:
		return nil
	}
}

// NormalizeDate canonicalizes any upstream date representation to
// YYYY-MM-DD. Callers are not trusted to have normalized consistently, so
// this runs both when a booking is first written and again at
// reconciliation.
func NormalizeDate(v interface{}) (string, error) {
	switch d := v.(type) {
	case string:
		if t, err := time.Parse(DateLayout, d); err == nil {
			return t.Format(DateLayout), nil
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "01/02/2006", "2006/01/02"} {
			if t, err := time.Parse(layout, d); err == nil {
				return t.Format(DateLayout), nil
			}
		}
		return "", apperrors.NewValidation("unrecognized date %q", d)
	case time.Time:
		return d.Format(DateLayout), nil
	case primitive.DateTime:
		return d.Time().UTC().Format(DateLayout), nil
	case int64:
		return time.UnixMilli(d).UTC().Format(DateLayout), nil
	case float64:
		return time.UnixMilli(int64(d)).UTC().Format(DateLayout), nil
	default:
		return "", apperrors.NewValidation("unsupported date value of type %T", v)
	}
}

// NormalizeRoomDates rewrites every room's dates in canonical form. The whole
// pass fails on the first malformed date so no partial write can happen.
func NormalizeRoomDates(rooms []BookedRoom) ([]BookedRoom, error) {
	out := make([]BookedRoom, len(rooms))
	for i, room := range rooms {
		normalized := make([]string, len(room.Dates))
		for j, d := range room.Dates {
			nd, err := NormalizeDate(d)
			if err != nil {
				return nil, apperrors.NewValidation("room %s: %s", room.RoomID, err.Error())
			}
			normalized[j] = nd
		}
		room.Dates = normalized
		out[i] = room
	}
	return out, nil
}

func validTimeOfDay(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

// NewBooking validates the selection and builds a pending/pending booking.
// Dates must already be in ascending order; out-of-order input is rejected,
// never silently sorted.
func NewBooking(userID, bookingType string, rooms []BookedRoom, totalAmount int64) (*Booking, error) {
	if userID == "" {
		return nil, apperrors.NewValidation("user id is required")
	}
	if !shared_models.IsValidBookingType(bookingType) {
		return nil, apperrors.NewValidation("unknown booking type %q", bookingType)
	}
	if len(rooms) == 0 {
		return nil, apperrors.NewValidation("at least one room selection is required")
	}

	normalized, err := NormalizeRoomDates(rooms)
	if err != nil {
		return nil, err
	}

	for _, room := range normalized {
		if room.RoomID == "" {
			return nil, apperrors.NewValidation("room id is required on every selection")
		}
		if !shared_models.IsValidTimeSlot(room.TimeSlot) {
			return nil, apperrors.NewValidation("unknown time slot %q for room %s", room.TimeSlot, room.RoomID)
		}
		if len(room.Dates) == 0 {
			return nil, apperrors.NewValidation("room %s has no dates selected", room.RoomID)
		}
		for i := 1; i < len(room.Dates); i++ {
			if room.Dates[i] < room.Dates[i-1] {
				return nil, apperrors.NewValidation(
					"room %s dates are not in chronological order (%s before %s)",
					room.RoomID, room.Dates[i], room.Dates[i-1])
			}
		}
		if room.StartTime != "" && !validTimeOfDay(room.StartTime) {
			return nil, apperrors.NewValidation("room %s has malformed start time %q", room.RoomID, room.StartTime)
		}
		if room.EndTime != "" && !validTimeOfDay(room.EndTime) {
			return nil, apperrors.NewValidation("room %s has malformed end time %q", room.RoomID, room.EndTime)
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate booking id: %w", err)
	}

	now := time.Now()
	return &Booking{
		ID:            id.String(),
		UserID:        userID,
		BookingType:   bookingType,
		Rooms:         normalized,
		TotalAmount:   totalAmount,
		Status:        shared_models.BookingStatusPending,
		PaymentStatus: shared_models.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// FindConflicts returns the dates on which other active bookings block the
// requested (room, slot, date) triples. excludeID keeps the aggregate from
// conflicting with itself on update.
func FindConflicts(ctx context.Context, db *mongo.Database, excludeID, roomID, timeSlot string, dates []string) ([]string, error) {
	blocking := BlockingSlots(timeSlot)
	if blocking == nil {
		return nil, apperrors.NewValidation("unknown time slot %q", timeSlot)
	}

	filter := bson.M{
		"status": bson.M{"$in": []string{shared_models.BookingStatusPending, shared_models.BookingStatusConfirmed}},
		"rooms": bson.M{"$elemMatch": bson.M{
			"room_id":   roomID,
			"time_slot": bson.M{"$in": blocking},
			"dates":     bson.M{"$in": dates},
		}},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	cursor, err := db.Collection(BookingsCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("database error checking conflicts for room %s: %w", roomID, err)
	}
	defer cursor.Close(ctx)

	requested := make(map[string]bool, len(dates))
	for _, d := range dates {
		requested[d] = true
	}

	conflictSet := make(map[string]bool)
	for cursor.Next(ctx) {
		var b Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		for _, room := range b.Rooms {
			if room.RoomID != roomID {
				continue
			}
			blocked := false
			for _, s := range blocking {
				if room.TimeSlot == s {
					blocked = true
					break
				}
			}
			if !blocked {
				continue
			}
			for _, d := range room.Dates {
				if requested[d] {
					conflictSet[d] = true
				}
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error checking conflicts: %w", err)
	}

	var conflicts []string
	for _, d := range dates {
		if conflictSet[d] {
			conflicts = append(conflicts, d)
		}
	}
	return conflicts, nil
}

// CreateBooking re-runs the conflict query across other bookings and inserts.
// The re-check is defensive; the atomic guard is the summary claim taken by
// the booking service right after this insert.
func CreateBooking(ctx context.Context, db *mongo.Database, booking *Booking) (*Booking, error) {
	for _, room := range booking.Rooms {
		conflicts, err := FindConflicts(ctx, db, booking.ID, room.RoomID, room.TimeSlot, room.Dates)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, &apperrors.ConflictError{
				RoomID:   room.RoomID,
				RoomName: room.RoomName,
				Date:     conflicts[0],
				TimeSlot: room.TimeSlot,
			}
		}
	}

	if _, err := db.Collection(BookingsCollection).InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.NewValidation("booking with payment intent %s already exists", booking.PaymentIntentID)
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	logger.InfoLogger.Infof("Pending booking %s created for user %s", booking.ID, booking.UserID)
	return booking, nil
}

// GetBookingByID fetches a booking by its internal id.
func GetBookingByID(ctx context.Context, db *mongo.Database, bookingID string) (*Booking, error) {
	var booking Booking
	err := db.Collection(BookingsCollection).FindOne(ctx, bson.M{"_id": bookingID}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &apperrors.NotFoundError{Resource: "booking", ID: bookingID}
	}
	if err != nil {
		return nil, fmt.Errorf("database error fetching booking %s: %w", bookingID, err)
	}
	return &booking, nil
}

// FindByPaymentIntentID looks a booking up by its idempotency key.
func FindByPaymentIntentID(ctx context.Context, db *mongo.Database, paymentIntentID string) (*Booking, error) {
	var booking Booking
	err := db.Collection(BookingsCollection).
		FindOne(ctx, bson.M{"payment_intent_id": paymentIntentID}).
		Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &apperrors.NotFoundError{Resource: "booking with payment intent", ID: paymentIntentID}
	}
	if err != nil {
		return nil, fmt.Errorf("database error fetching booking by payment intent %s: %w", paymentIntentID, err)
	}
	return &booking, nil
}

// SetPaymentIntentID attaches the processor's order id to a fresh booking.
func SetPaymentIntentID(ctx context.Context, db *mongo.Database, bookingID, paymentIntentID string) error {
	res, err := db.Collection(BookingsCollection).UpdateOne(ctx,
		bson.M{"_id": bookingID},
		bson.M{"$set": bson.M{"payment_intent_id": paymentIntentID, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to set payment intent on booking %s: %w", bookingID, err)
	}
	if res.MatchedCount == 0 {
		return &apperrors.NotFoundError{Resource: "booking", ID: bookingID}
	}
	return nil
}

// ListByUser returns a user's bookings, newest first.
func ListByUser(ctx context.Context, db *mongo.Database, userID string) ([]*Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := db.Collection(BookingsCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("database error listing bookings for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var bookings []*Booking
	for cursor.Next(ctx) {
		var b Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		bookings = append(bookings, &b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error listing bookings: %w", err)
	}
	return bookings, nil
}

// ConfirmBooking performs the single conditional update that flips a booking
// to confirmed. The filter requires the current status to be pending, so of
// two concurrent duplicate notifications exactly one observes the transition;
// the returned bool reports whether THIS call performed it. Rooms are written
// back in normalized form as part of the same update.
func ConfirmBooking(ctx context.Context, db *mongo.Database, paymentIntentID string, rooms []BookedRoom, details PaymentDetails) (*Booking, bool, error) {
	now := time.Now()
	if details.ConfirmedAt == nil {
		details.ConfirmedAt = &now
	}

	filter := bson.M{
		"payment_intent_id": paymentIntentID,
		"status":            shared_models.BookingStatusPending,
	}
	update := bson.M{"$set": bson.M{
		"status":          shared_models.BookingStatusConfirmed,
		"payment_status":  shared_models.PaymentStatusSucceeded,
		"rooms":           rooms,
		"payment_details": details,
		"updated_at":      now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Booking
	err := db.Collection(BookingsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		logger.InfoLogger.Infof("Booking %s confirmed (payment intent %s)", updated.ID, paymentIntentID)
		return &updated, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("failed to confirm booking for payment intent %s: %w", paymentIntentID, err)
	}

	// No pending booking matched: either already terminal (duplicate
	// notification) or genuinely unknown.
	existing, findErr := FindByPaymentIntentID(ctx, db, paymentIntentID)
	if findErr != nil {
		return nil, false, findErr
	}
	return existing, false, nil
}

// FailBooking records a non-success outcome with its structured error. Like
// ConfirmBooking it is conditional on the booking still being pending, so a
// late duplicate failure notification cannot clobber a terminal state. Rooms
// are written back in normalized form as part of the same update.
func FailBooking(ctx context.Context, db *mongo.Database, paymentIntentID string, rooms []BookedRoom, perr PaymentError) (*Booking, bool, error) {
	now := time.Now()
	filter := bson.M{
		"payment_intent_id": paymentIntentID,
		"status":            shared_models.BookingStatusPending,
	}
	update := bson.M{"$set": bson.M{
		"status":                shared_models.BookingStatusFailed,
		"payment_status":        shared_models.PaymentStatusFailed,
		"rooms":                 rooms,
		"payment_details.error": perr,
		"updated_at":            now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Booking
	err := db.Collection(BookingsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		logger.WarnLogger.Warnf("Booking %s failed (payment intent %s): %s", updated.ID, paymentIntentID, perr.Message)
		return &updated, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("failed to mark booking failed for payment intent %s: %w", paymentIntentID, err)
	}

	existing, findErr := FindByPaymentIntentID(ctx, db, paymentIntentID)
	if findErr != nil {
		return nil, false, findErr
	}
	return existing, false, nil
}

// MarkFailedByID records a checkout-time failure on a booking that may not
// have a payment intent yet (for example when order creation at the
// processor fails). Conditional on the booking still being pending.
func MarkFailedByID(ctx context.Context, db *mongo.Database, bookingID string, perr PaymentError) error {
	_, err := db.Collection(BookingsCollection).UpdateOne(ctx,
		bson.M{"_id": bookingID, "status": shared_models.BookingStatusPending},
		bson.M{"$set": bson.M{
			"status":                shared_models.BookingStatusFailed,
			"payment_status":        shared_models.PaymentStatusFailed,
			"payment_details.error": perr,
			"updated_at":            time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark booking %s failed: %w", bookingID, err)
	}
	return nil
}

// EnsureIndexes creates the unique payment-intent index and the user index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(BookingsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "payment_intent_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}
