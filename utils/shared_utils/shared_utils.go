package shared_utils

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "github.com/clinicbook/backend/config/redis"
	"github.com/clinicbook/backend/utils"
)

const (
	OTP_EXPIRATION_MINUTES = 10
)

const (
	EMAIL_VERIFICATION_OTP_PREFIX = "email_verification_otp:"
)

// ErrOTPNotFound is returned when an OTP is not found or expired.
var ErrOTPNotFound = errors.New("otp not found or expired")

// StoreOTP writes the hashed OTP to Redis with expiration.
func StoreOTP(ctx context.Context, key string, otp string) error {
	hashedOTP := utils.HashOTP(otp)
	rdb, err := redisclient.GetRedisClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to init redis client: %w", err)
	}

	if err := rdb.Set(ctx, key, hashedOTP, OTP_EXPIRATION_MINUTES*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to store OTP in redis: %w", err)
	}
	return nil
}

// VerifyOTP compares the provided OTP with the stored hash and deletes it on
// success so each code is single-use.
func VerifyOTP(ctx context.Context, key string, otp string) (bool, error) {
	rdb, err := redisclient.GetRedisClient(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to init redis client: %w", err)
	}

	stored, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, ErrOTPNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read OTP from redis: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(utils.HashOTP(otp))) != 1 {
		return false, nil
	}

	if err := rdb.Del(ctx, key).Err(); err != nil {
		return false, fmt.Errorf("failed to clear OTP: %w", err)
	}
	return true, nil
}
