package httpx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterEvictsIdleKeys(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5})

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.lastScan = now

	for _, key := range []string{"a", "b", "c"} {
		ok, _ := rl.reserve(key)
		require.True(t, ok)
	}
	require.Equal(t, 3, rl.size())

	now = now.Add(idleEviction + time.Second)
	ok, _ := rl.reserve("d")
	require.True(t, ok)
	require.Equal(t, 1, rl.size(), "idle keys should be dropped")
}

func TestRateLimiterRetryDelay(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})
	now := time.Now()
	rl.now = func() time.Time { return now }

	ok, _ := rl.reserve("k")
	require.True(t, ok)

	ok, delay := rl.reserve("k")
	require.False(t, ok)
	require.InDelta(t, time.Minute.Seconds(), delay.Seconds(), 1)
}
