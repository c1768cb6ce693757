package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsBurstThenDenies(t *testing.T) {
	rl := newRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow(), "token %d of the burst", i+1)
	}
	assert.False(t, rl.allow(), "bucket exhausted")
}

func TestRateLimiterRefills(t *testing.T) {
	rl := newRateLimiter(2, 40*time.Millisecond)

	assert.True(t, rl.allow())
	assert.True(t, rl.allow())
	assert.False(t, rl.allow())

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.allow(), "tokens refill over time")
}

func TestRateLimiterDefendsAgainstBadParameters(t *testing.T) {
	rl := newRateLimiter(0, 0)
	assert.True(t, rl.allow())
	assert.False(t, rl.allow())
}
