package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserRateLimiter_PrunesIdleUsers(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewUserRateLimiter(1, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Len(t, l.users, 2)

	now = now.Add(limiterIdleTTL + time.Second)
	assert.True(t, l.Allow("b"))
	assert.Len(t, l.users, 1)
}

func TestUserRateLimiter_Disabled(t *testing.T) {
	l := NewUserRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a"))
	}
}
