package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterBurstThenThrottle(t *testing.T) {
	rl := NewRateLimiter(60, 3)

	for i := 0; i < 3; i++ {
		require.True(t, rl.AllowUser(1), "request %d within burst", i)
	}
	require.False(t, rl.AllowUser(1))
}

func TestRateLimiterIsPerUser(t *testing.T) {
	rl := NewRateLimiter(60, 1)

	require.True(t, rl.AllowUser(1))
	require.False(t, rl.AllowUser(1))

	// User 2 has their own bucket.
	require.True(t, rl.AllowUser(2))
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	require.True(t, rl.AllowUser(1))
}
