package shared_models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clinicbook/backend/utils"
)

// Booking status constants
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusFailed    = "failed"
)

// Payment status constants
const (
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

// Time-slot constants. Full occupies the whole business day and is mutually
// exclusive with both half-day windows; morning and evening are independent
// of each other.
const (
	TimeSlotFull    = "full"
	TimeSlotMorning = "morning"
	TimeSlotEvening = "evening"
)

// Booking type constants
const (
	BookingTypeDaily   = "daily"
	BookingTypeMonthly = "monthly"
)

const (
	ACCESS_TOKEN_EXPIRY = time.Hour * 24
)

// Currency is the single currency the whole system operates in.
const Currency = "USD"

// IsValidTimeSlot reports whether s is one of the known time-slots.
func IsValidTimeSlot(s string) bool {
	return s == TimeSlotFull || s == TimeSlotMorning || s == TimeSlotEvening
}

// IsValidBookingType reports whether t is a known booking type.
func IsValidBookingType(t string) bool {
	return t == BookingTypeDaily || t == BookingTypeMonthly
}

// GenerateUUIDv7 generates a new UUIDv7
func GenerateUUIDv7() (uuid.UUID, error) {
	return uuid.NewV7()
}

// GenerateAccessToken creates a signed HS256 access token for the given user.
func GenerateAccessToken(userID uuid.UUID, duration time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"iat":  now.Unix(),
		"exp":  now.Add(duration).Unix(),
		"nbf":  now.Unix(),
		"type": "access",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(utils.GetJWTSecret())
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// ParseAccessToken validates tokenString and returns the user id it carries.
func ParseAccessToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return utils.GetJWTSecret(), nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("subject claim missing")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	return userID, nil
}
