// Package tokenstore persists the bearer credential shared by the session and the API client.
package tokenstore

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/machtrueke/internal/errs"
)

// ErrNoToken is returned by Load when no usable token is stored.
var ErrNoToken = errs.ErrNoToken

// Store is the persisted credential. Reads happen on every API call; writes
// only come from session operations.
type Store interface {
	// Load returns the stored token or ErrNoToken.
	Load() (string, error)
	// Save replaces the stored token.
	Save(token string) error
	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear() error
}

// DefaultDir returns the per-user config directory of the client.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "machtrueke")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "machtrueke")
}

// ExpiryOf returns the exp claim of a JWT without verifying its signature,
// or the zero time for opaque tokens and tokens without exp.
func ExpiryOf(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func expired(exp, now time.Time) bool {
	return !exp.IsZero() && !now.Before(exp)
}

// Memory keeps the token in process memory.
type Memory struct {
	mu    sync.Mutex
	token string
	exp   time.Time
	now   func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{now: time.Now} }

func (m *Memory) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	if expired(m.exp, m.now()) {
		m.token, m.exp = "", time.Time{}
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *Memory) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.exp = token, ExpiryOf(token)
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.exp = "", time.Time{}
	return nil
}
