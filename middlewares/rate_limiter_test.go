package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomRate(t *testing.T) {
	tests := []struct {
		in     string
		limit  int64
		period time.Duration
	}{
		{"10-2m", 10, 2 * time.Minute},
		{"30-20m", 30, 20 * time.Minute},
		{"5-1h", 5, time.Hour},
		{"20-10s", 20, 10 * time.Second},
	}
	for _, tt := range tests {
		rate, err := ParseCustomRate(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.limit, rate.Limit, tt.in)
		assert.Equal(t, tt.period, rate.Period, tt.in)
	}
}

func TestParseCustomRateRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "10", "10-2d", "x-2m", "10-xm", "10-2m-extra"} {
		_, err := ParseCustomRate(in)
		assert.Error(t, err, in)
	}
}
