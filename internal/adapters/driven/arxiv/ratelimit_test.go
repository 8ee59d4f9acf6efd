package arxiv

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "7", 7 * time.Second},
		{"http date", now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{"garbage", "soon", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRetryAfter(tt.value, now))
		})
	}
}

func TestRateLimiter_RecordThrottle_DefaultBackoff(t *testing.T) {
	rl := NewRateLimiter(0, 1, 250*time.Millisecond)
	resp := &http.Response{Header: http.Header{}}

	assert.Equal(t, 250*time.Millisecond, rl.RecordThrottle(resp))
}

func TestRateLimiter_RecordThrottle_HeaderWins(t *testing.T) {
	rl := NewRateLimiter(0, 1, time.Hour)
	resp := &http.Response{Header: http.Header{HeaderRetryAfter: []string{"2"}}}

	assert.Equal(t, 2*time.Second, rl.RecordThrottle(resp))
}

func TestRateLimiter_WaitHonoursBackoff(t *testing.T) {
	rl := NewRateLimiter(0, 1, 50*time.Millisecond)
	rl.RecordThrottle(&http.Response{Header: http.Header{}})

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	rl := NewRateLimiter(0, 1, time.Hour)
	rl.RecordThrottle(&http.Response{Header: http.Header{}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiter_Unlimited(t *testing.T) {
	rl := NewRateLimiter(0, 0, time.Second)

	for range 10 {
		require.NoError(t, rl.Wait(context.Background()))
	}
}
