package user_models

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/argon2"

	"github.com/clinicbook/backend/logger"
	"github.com/clinicbook/backend/utils/apperrors"
)

const UsersCollection = "users"

// Argon2 parameters
const (
	Memory      = 64 * 1024
	Iterations  = 3
	Parallelism = 4
	SaltLength  = 16
	KeyLength   = 64
)

// User owns the one-time membership flag. A booking references a user by id;
// the user keeps no back-pointer collection of bookings.
type User struct {
	ID                    string     `bson:"_id" json:"id"`
	Email                 string     `bson:"email" json:"email"`
	PasswordHash          string     `bson:"password_hash" json:"-"`
	FirstName             string     `bson:"first_name" json:"first_name"`
	LastName              string     `bson:"last_name" json:"last_name"`
	IsVerifiedEmail       bool       `bson:"is_verified_email" json:"is_verified_email"`
	IsMembershipActive    bool       `bson:"is_membership_active" json:"is_membership_active"`
	MembershipActivatedAt *time.Time `bson:"membership_activated_at,omitempty" json:"membership_activated_at,omitempty"`
	CreatedAt             time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `bson:"updated_at" json:"updated_at"`
}

// ShouldActivateMembership is the membership activation rule. It is shared by
// every reconciliation entry path so they all reach the same terminal state.
func ShouldActivateMembership(paymentSucceeded, isMembershipActive bool) bool {
	return paymentSucceeded && !isMembershipActive
}

func generateSalt(size int) ([]byte, error) {
	salt := make([]byte, size)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt, err := generateSalt(SaltLength)
	if err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, Iterations, Memory, uint8(Parallelism), KeyLength)

	saltBase64 := base64.RawStdEncoding.EncodeToString(salt)
	hashBase64 := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("%s$%s", saltBase64, hashBase64), nil
}

// VerifyPassword verifies a password against a stored hash.
func VerifyPassword(password, storedHash string) (bool, error) {
	parts := strings.Split(storedHash, "$")
	if len(parts) != 2 {
		return false, errors.New("invalid stored hash format")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false, err
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, err
	}

	computedHash := argon2.IDKey([]byte(password), salt, Iterations, Memory, uint8(Parallelism), KeyLength)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}

// CreateUser inserts a new user with a hashed password. Email uniqueness is
// enforced by the store index; a duplicate insert surfaces as a conflict.
func CreateUser(ctx context.Context, db *mongo.Database, email, password, firstName, lastName string) (*User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user id: %w", err)
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &User{
		ID:           id.String(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := db.Collection(UsersCollection).InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.NewValidation("email %s is already registered", user.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.InfoLogger.Infof("Created user %s", user.ID)
	return user, nil
}

// GetUserByEmail fetches a user by email.
func GetUserByEmail(ctx context.Context, db *mongo.Database, email string) (*User, error) {
	var user User
	err := db.Collection(UsersCollection).
		FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).
		Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &apperrors.NotFoundError{Resource: "user", ID: email}
	}
	if err != nil {
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}
	return &user, nil
}

// GetUserByID fetches a user by id.
func GetUserByID(ctx context.Context, db *mongo.Database, userID string) (*User, error) {
	var user User
	err := db.Collection(UsersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &apperrors.NotFoundError{Resource: "user", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("database error fetching user %s: %w", userID, err)
	}
	return &user, nil
}

// MarkEmailVerified flips the verification flag after OTP confirmation.
func MarkEmailVerified(ctx context.Context, db *mongo.Database, userID string) error {
	res, err := db.Collection(UsersCollection).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"is_verified_email": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark email verified for user %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return &apperrors.NotFoundError{Resource: "user", ID: userID}
	}
	return nil
}

// ActivateMembership flips is_membership_active false→true and stamps
// membership_activated_at. The filter makes the update conditional so a user
// who is already a member is left untouched: the returned bool reports
// whether THIS call performed the activation.
func ActivateMembership(ctx context.Context, db *mongo.Database, userID string) (bool, error) {
	now := time.Now()
	res, err := db.Collection(UsersCollection).UpdateOne(ctx,
		bson.M{"_id": userID, "is_membership_active": false},
		bson.M{"$set": bson.M{
			"is_membership_active":    true,
			"membership_activated_at": now,
			"updated_at":              now,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to activate membership for user %s: %w", userID, err)
	}
	if res.ModifiedCount == 0 {
		// Either the user is already a member or does not exist; distinguish
		// so a missing user is not silently treated as idempotent success.
		if res.MatchedCount == 0 {
			count, countErr := db.Collection(UsersCollection).CountDocuments(ctx, bson.M{"_id": userID})
			if countErr != nil {
				return false, fmt.Errorf("failed to check user %s: %w", userID, countErr)
			}
			if count == 0 {
				return false, &apperrors.NotFoundError{Resource: "user", ID: userID}
			}
		}
		return false, nil
	}

	logger.InfoLogger.Infof("Membership activated for user %s", userID)
	return true, nil
}

// EnsureIndexes creates the unique email index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create user email index: %w", err)
	}
	return nil
}
