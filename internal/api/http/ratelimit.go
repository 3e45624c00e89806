package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter throttles requests per user ID.
type UserRateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	users     map[string]*userLimiter
	lastPrune time.Time
	now       func() time.Time
}

// NewUserRateLimiter allows perSecond sustained requests with the given
// burst. A non-positive rate disables limiting.
func NewUserRateLimiter(perSecond float64, burst int) *UserRateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &UserRateLimiter{
		limit: limit,
		burst: burst,
		users: make(map[string]*userLimiter),
		now:   time.Now,
	}
}

// Allow reports whether userID may make another request now.
func (l *UserRateLimiter) Allow(userID string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) > limiterIdleTTL {
		for id, ul := range l.users {
			if now.Sub(ul.lastSeen) > limiterIdleTTL {
				delete(l.users, id)
			}
		}
		l.lastPrune = now
	}

	ul, ok := l.users[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.users[userID] = ul
	}
	ul.lastSeen = now
	return ul.limiter.AllowN(now, 1)
}
