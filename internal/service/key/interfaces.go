// Package key manages the signing keys inside a wallet: deterministic
// generation, import, export, deletion and listing.
package key

import (
	"github.com/mrz1836/custodian/internal/session"
)

// SessionResolver maps handle tokens to unlocked wallets.
type SessionResolver interface {
	Resolve(token string) (*session.Unlocked, error)
}

// Locker hands out per-wallet locks.
type Locker interface {
	Lock(walletID string) func()
	RLock(walletID string) func()
}

// LogWriter provides logging capabilities.
type LogWriter interface {
	Debug(format string, args ...interface{})
	Error(format string, args ...interface{})
}
