package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSecureOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		otp := GenerateSecureOTP()
		assert.Len(t, otp, 6)
		for _, r := range otp {
			assert.True(t, r >= '0' && r <= '9', "otp %q has non-digit", otp)
		}
		seen[otp] = true
	}
	// 50 draws from a million values colliding every time is not plausible.
	assert.Greater(t, len(seen), 1)
}

func TestHashOTPDeterministic(t *testing.T) {
	a := HashOTP("123456")
	b := HashOTP("123456")
	c := HashOTP("654321")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotContains(t, a, "123456")
}

func TestGetJWTSecretFallsBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.NotEmpty(t, GetJWTSecret())

	t.Setenv("JWT_SECRET", "configured")
	assert.Equal(t, []byte("configured"), GetJWTSecret())
}
