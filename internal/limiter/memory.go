package limiter

import (
	"context"
	"encoding/hex"
	"sync"
	"time"
)

type entry struct {
	fails        int
	updatedAt    time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter with a sliding failure window and lockout.
// Failures older than window restart the count.
type Memory struct {
	mu       sync.Mutex
	now      func() time.Time
	window   time.Duration
	maxFails int
	blockFor time.Duration
	entries  map[string]*entry
}

var _ Limiter = (*Memory)(nil)

// NewMemory constructs an in-memory limiter.
func NewMemory(window time.Duration, maxFails int, blockFor time.Duration) *Memory {
	return &Memory{
		now:      time.Now,
		window:   window,
		maxFails: maxFails,
		blockFor: blockFor,
		entries:  map[string]*entry{},
	}
}

func key(email string, ipHash []byte) string {
	return email + "|" + hex.EncodeToString(ipHash)
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *Memory) Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key(email, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if now := l.now(); e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success resets counters for (email, ip).
func (l *Memory) Success(ctx context.Context, email string, ipHash []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	delete(l.entries, key(email, ipHash))
	l.mu.Unlock()
	return nil
}

// Failure records a failed attempt; reaching maxFails blocks for blockFor.
func (l *Memory) Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key(email, ipHash)
	e, ok := l.entries[k]
	switch {
	case !ok:
		e = &entry{}
		l.entries[k] = e
		e.fails = 1
	case now.Sub(e.updatedAt) > l.window:
		e.fails = 1
	default:
		e.fails++
	}
	e.updatedAt = now

	if e.fails >= l.maxFails {
		e.blockedUntil = now.Add(l.blockFor)
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
