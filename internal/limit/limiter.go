// internal/limit/limiter.go
//
// Daily game quota enforcement.
//
// Responsibilities:
//   - Track games started per (player, local day) in process memory.
//   - Seed counters lazily from persisted history so restarts do not
//     reset anyone's quota.
//   - Reserve a slot atomically before a game is created, and release it
//     if creation fails downstream.
//
// Notes:
//   - Days are keyed by the wall-clock date of the time the caller passes
//     in, so the quota resets at local midnight rather than at UTC.
//   - Counters for past days are swept when the first request of a new
//     day arrives.
package limit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLimitReached reports that a player has used their full daily quota.
var ErrLimitReached = errors.New("daily game limit reached")

// CountFunc reports how many games a player has already started on the
// given YYYY-MM-DD date, typically backed by the database. It is consulted
// once per (player, day); afterwards the limiter tracks the count itself.
type CountFunc func(ctx context.Context, playerID, date string) (int, error)

type quotaKey struct {
	player string
	date   string
}

// Limiter caps how many games each player may start per local day.
type Limiter struct {
	max   int
	count CountFunc

	mu   sync.Mutex
	used map[quotaKey]int
	day  string // most recent date seen, for sweeping stale keys
}

// New returns a Limiter allowing max games per player per day. count may be
// nil, in which case every (player, day) starts at zero.
func New(max int, count CountFunc) *Limiter {
	if max <= 0 {
		max = 1
	}
	return &Limiter{
		max:   max,
		count: count,
		used:  make(map[quotaKey]int),
	}
}

// Max returns the per-day quota.
func (l *Limiter) Max() int { return l.max }

// DateKey returns the YYYY-MM-DD day that t falls on in its own location.
// Callers pass local wall-clock time, so the boundary is local midnight.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Authorize reserves one game slot for playerID on the day of now. It
// returns the number of games used including this reservation, or
// ErrLimitReached with the current count when the quota is exhausted.
// Check and reservation happen under one lock, so concurrent calls can
// never admit more than max games.
//
// If the persisted count cannot be loaded the reservation fails; the
// caller should surface the error rather than start an uncounted game.
func (l *Limiter) Authorize(ctx context.Context, playerID string, now time.Time) (int, error) {
	date := DateKey(now)
	k := quotaKey{player: playerID, date: date}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(date)

	used, err := l.seedLocked(ctx, k)
	if err != nil {
		return 0, err
	}
	if used >= l.max {
		return used, ErrLimitReached
	}
	l.used[k] = used + 1
	return used + 1, nil
}

// Release returns one reserved slot for playerID on the day of now. It is
// the undo for Authorize when game creation fails after the reservation;
// releasing an unreserved slot is a no-op.
func (l *Limiter) Release(playerID string, now time.Time) {
	k := quotaKey{player: playerID, date: DateKey(now)}

	l.mu.Lock()
	defer l.mu.Unlock()

	if n, ok := l.used[k]; ok && n > 0 {
		l.used[k] = n - 1
	}
}

// Used reports how many games playerID has started on the day of now
// without reserving anything.
func (l *Limiter) Used(ctx context.Context, playerID string, now time.Time) (int, error) {
	k := quotaKey{player: playerID, date: DateKey(now)}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.seedLocked(ctx, k)
}

// Remaining reports how many games playerID may still start on the day of
// now. Never negative.
func (l *Limiter) Remaining(ctx context.Context, playerID string, now time.Time) (int, error) {
	used, err := l.Used(ctx, playerID, now)
	if err != nil {
		return 0, err
	}
	if used >= l.max {
		return 0, nil
	}
	return l.max - used, nil
}

// seedLocked returns the current count for k, consulting the CountFunc the
// first time a key is seen. Caller must hold l.mu.
func (l *Limiter) seedLocked(ctx context.Context, k quotaKey) (int, error) {
	if used, ok := l.used[k]; ok {
		return used, nil
	}
	used := 0
	if l.count != nil {
		n, err := l.count(ctx, k.player, k.date)
		if err != nil {
			return 0, fmt.Errorf("limit: load count for %s: %w", k.date, err)
		}
		if n > 0 {
			used = n
		}
	}
	l.used[k] = used
	return used, nil
}

// sweepLocked drops counters for days other than date once a new day is
// seen. Caller must hold l.mu.
func (l *Limiter) sweepLocked(date string) {
	if l.day == date {
		return
	}
	l.day = date
	for k := range l.used {
		if k.date != date {
			delete(l.used, k)
		}
	}
}
