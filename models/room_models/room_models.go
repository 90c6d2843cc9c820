package room_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinicbook/backend/logger"
	"github.com/clinicbook/backend/utils/apperrors"
)

const RoomsCollection = "rooms"

// Room is a rentable clinic room with its four price tiers, all in cents.
type Room struct {
	ID               string    `bson:"_id" json:"id"`
	Name             string    `bson:"name" json:"name"`
	Description      string    `bson:"description" json:"description"`
	Floor            int       `bson:"floor" json:"floor"`
	Amenities        []string  `bson:"amenities" json:"amenities"`
	FullDayPrice     int64     `bson:"full_day_price" json:"full_day_price"`
	HalfDayPrice     int64     `bson:"half_day_price" json:"half_day_price"`
	MonthlyFullPrice int64     `bson:"monthly_full_price" json:"monthly_full_price"`
	MonthlyHalfPrice int64     `bson:"monthly_half_price" json:"monthly_half_price"`
	IsActive         bool      `bson:"is_active" json:"is_active"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updated_at"`
}

// GetRoomByID fetches a single room.
func GetRoomByID(ctx context.Context, db *mongo.Database, roomID string) (*Room, error) {
	var room Room
	err := db.Collection(RoomsCollection).FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &apperrors.NotFoundError{Resource: "room", ID: roomID}
	}
	if err != nil {
		return nil, fmt.Errorf("database error fetching room %s: %w", roomID, err)
	}
	return &room, nil
}

// ListRooms returns all active rooms.
func ListRooms(ctx context.Context, db *mongo.Database) ([]*Room, error) {
	cursor, err := db.Collection(RoomsCollection).Find(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, fmt.Errorf("database error listing rooms: %w", err)
	}
	defer cursor.Close(ctx)

	var rooms []*Room
	for cursor.Next(ctx) {
		var room Room
		if err := cursor.Decode(&room); err != nil {
			return nil, fmt.Errorf("error decoding room: %w", err)
		}
		rooms = append(rooms, &room)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error listing rooms: %w", err)
	}
	return rooms, nil
}

// EnsureSeedRooms boots a default room set on a fresh deployment. No-op when
// the collection already has documents.
func EnsureSeedRooms(ctx context.Context, db *mongo.Database) error {
	count, err := db.Collection(RoomsCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("database error counting rooms: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	seeds := []interface{}{}
	for i, name := range []string{"Consultation Room A", "Consultation Room B", "Procedure Room", "Therapy Room"} {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate room id: %w", err)
		}
		seeds = append(seeds, Room{
			ID:               id.String(),
			Name:             name,
			Description:      "Fully equipped clinic room available for daily or monthly rental.",
			Floor:            i/2 + 1,
			Amenities:        []string{"examination table", "sink", "wifi", "reception support"},
			FullDayPrice:     30000,
			HalfDayPrice:     15000,
			MonthlyFullPrice: 200000,
			MonthlyHalfPrice: 120000,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	if _, err := db.Collection(RoomsCollection).InsertMany(ctx, seeds); err != nil {
		return fmt.Errorf("failed to seed rooms: %w", err)
	}
	logger.InfoLogger.Infof("Seeded %d default rooms", len(seeds))
	return nil
}
