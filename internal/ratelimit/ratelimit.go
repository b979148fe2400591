// Package ratelimit caps scan invocations per caller within a fixed window.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLimited matches every *Error via errors.Is.
var ErrLimited = errors.New("rate limit exceeded")

// Error reports a rejected invocation.
type Error struct {
	Limit      int           // invocations allowed per window
	RetryAfter time.Duration // time until the window resets
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d, retry after: %v)", e.Limit, e.RetryAfter)
}

// Is makes errors.Is(err, ErrLimited) true.
func (e *Error) Is(target error) bool {
	return target == ErrLimited
}

// Decision is the outcome of one TryConsume.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Err converts a denial into an *Error, or returns nil when allowed.
func (d Decision) Err(now time.Time) error {
	if d.Allowed {
		return nil
	}
	return &Error{Limit: d.Limit, RetryAfter: max(0, d.ResetAt.Sub(now))}
}

// Limiter counts invocations per caller. Implementations must be safe for concurrent use.
type Limiter interface {
	TryConsume(ctx context.Context, callerID string) (Decision, error)
}

// window tracks one caller.
type window struct {
	count   int
	resetAt time.Time
}

// Memory is an in-process fixed-window limiter. Windows reset lazily on the first
// request after they expire; rejected requests are not counted.
type Memory struct {
	mu     sync.Mutex
	limit  int
	period time.Duration
	now    func() time.Time
	usage  map[string]*window
}

// NewMemory creates a limiter allowing limit calls per period. limit <= 0 disables it.
func NewMemory(limit int, period time.Duration) *Memory {
	return &Memory{
		limit:  limit,
		period: period,
		now:    time.Now,
		usage:  make(map[string]*window),
	}
}

// NewHourly creates a limiter allowing limit calls per hour.
func NewHourly(limit int) *Memory {
	return NewMemory(limit, time.Hour)
}

// TryConsume implements Limiter.
func (m *Memory) TryConsume(_ context.Context, callerID string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.usage[callerID]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(m.period)}
		m.usage[callerID] = w
	}

	if m.limit <= 0 {
		w.count++
		return Decision{Allowed: true, Remaining: -1, ResetAt: w.resetAt}, nil
	}
	if w.count >= m.limit {
		return Decision{Allowed: false, Limit: m.limit, ResetAt: w.resetAt}, nil
	}
	w.count++
	return Decision{Allowed: true, Limit: m.limit, Remaining: m.limit - w.count, ResetAt: w.resetAt}, nil
}

// Usage returns the current count and reset time for a caller.
func (m *Memory) Usage(callerID string) (int, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.usage[callerID]
	if !ok || !m.now().Before(w.resetAt) {
		return 0, time.Time{}
	}
	return w.count, w.resetAt
}

// Cleanup drops expired windows.
func (m *Memory) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, w := range m.usage {
		if !now.Before(w.resetAt) {
			delete(m.usage, id)
		}
	}
}
