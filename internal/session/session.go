// Package session issues, renews and revokes wallet handles. A handle is a
// bearer token bound to one wallet id that keeps the wallet's master keys
// unlocked in locked memory until it expires or is released.
package session

import (
	"errors"
	"time"
)

// Handle lifetime bounds.
const (
	// DefaultTTL is the default handle lifetime.
	DefaultTTL = 60 * time.Second

	// MinTTL is the shortest configurable handle lifetime.
	MinTTL = 1 * time.Second

	// MaxTTL is the longest configurable handle lifetime.
	MaxTTL = 24 * time.Hour
)

// Session errors, reported to callers as authentication failures.
var (
	// ErrSessionNotFound indicates the token was never issued or was released.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the handle outlived its expiry.
	ErrSessionExpired = errors.New("session expired")
)

// Session is the public view of a wallet handle.
type Session struct {
	Token     string    `json:"-"`
	WalletID  string    `json:"wallet_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// MemoryLocked reports whether the unlocked keys are pinned in memory.
	MemoryLocked bool `json:"memory_locked"`
}

// IsValid returns true if the session has not expired.
func (s *Session) IsValid() bool {
	return time.Now().Before(s.ExpiresAt)
}

// TTL returns the remaining time until the session expires.
// Returns 0 if the session has already expired.
func (s *Session) TTL() time.Duration {
	remaining := time.Until(s.ExpiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ClampTTL bounds ttl to [MinTTL, MaxTTL]; zero selects DefaultTTL.
func ClampTTL(ttl time.Duration) time.Duration {
	switch {
	case ttl == 0:
		return DefaultTTL
	case ttl < MinTTL:
		return MinTTL
	case ttl > MaxTTL:
		return MaxTTL
	}
	return ttl
}
