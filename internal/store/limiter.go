package store

import (
	"context"
	"fmt"
	"time"

	"github.com/MeKo-Tech/gradescan/internal/ratelimit"
)

// consumeSQL increments the caller's window in one statement. Expired windows restart
// at 1; the count saturates at limit+1 so rejections do not extend the overage.
const consumeSQL = `
INSERT INTO scan_rate_limits (caller_id, count, reset_at)
VALUES ($1, 1, now() + make_interval(secs => $2))
ON CONFLICT (caller_id) DO UPDATE SET
    count = CASE WHEN scan_rate_limits.reset_at <= now() THEN 1
                 ELSE LEAST(scan_rate_limits.count + 1, $3 + 1) END,
    reset_at = CASE WHEN scan_rate_limits.reset_at <= now() THEN now() + make_interval(secs => $2)
                    ELSE scan_rate_limits.reset_at END
RETURNING count, reset_at`

// Limiter is a ratelimit.Limiter shared by every instance using the same database.
type Limiter struct {
	store  *Store
	limit  int
	period time.Duration
}

var _ ratelimit.Limiter = (*Limiter)(nil)

// NewLimiter creates a database-backed limiter. limit <= 0 disables limiting.
func NewLimiter(s *Store, limit int, period time.Duration) *Limiter {
	return &Limiter{store: s, limit: limit, period: period}
}

// TryConsume implements ratelimit.Limiter.
func (l *Limiter) TryConsume(ctx context.Context, callerID string) (ratelimit.Decision, error) {
	if l.limit <= 0 {
		return ratelimit.Decision{Allowed: true, Remaining: -1}, nil
	}

	var count int
	var resetAt time.Time
	err := l.store.pool.QueryRow(ctx, consumeSQL, callerID, l.period.Seconds(), l.limit).Scan(&count, &resetAt)
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("failed to update rate limit: %w", err)
	}

	if count > l.limit {
		return ratelimit.Decision{Allowed: false, Limit: l.limit, ResetAt: resetAt}, nil
	}
	return ratelimit.Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - count, ResetAt: resetAt}, nil
}
