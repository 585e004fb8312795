// Package multisig registers threshold accounts inside a wallet. An account
// is identified by the hash of its ordered member keys.
package multisig

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
