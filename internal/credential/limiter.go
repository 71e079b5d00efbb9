package credential

import (
	"sync"

	"golang.org/x/time/rate"
)

// loginLimiter throttles credential verification per email address. The
// limiter map is never reaped; entries are one token bucket each and the
// email space is bounded by the account collection.
type loginLimiter struct {
	mu       sync.Mutex
	perEmail map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newLoginLimiter(limit rate.Limit, burst int) *loginLimiter {
	return &loginLimiter{
		perEmail: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *loginLimiter) allow(email string) bool {
	l.mu.Lock()
	limiter, ok := l.perEmail[email]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.perEmail[email] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
