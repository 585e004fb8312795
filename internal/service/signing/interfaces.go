// Package signing produces single and multisig transaction signatures with
// keys held by an unlocked wallet.
package signing

import (
	"context"
	"crypto/ed25519"

	"github.com/mrz1836/custodian/internal/protocol"
	"github.com/mrz1836/custodian/internal/service/multisig"
	"github.com/mrz1836/custodian/internal/session"
)

// SessionResolver maps handle tokens to unlocked wallets.
type SessionResolver interface {
	Resolve(token string) (*session.Unlocked, error)
}

// Locker hands out per-wallet locks.
type Locker interface {
	RLock(walletID string) func()
}

// KeySource opens private keys of an unlocked wallet.
type KeySource interface {
	PrivateKey(ctx context.Context, u *session.Unlocked, addr protocol.Address) (ed25519.PrivateKey, error)
}

// MultisigSource loads registered multisig accounts.
type MultisigSource interface {
	Lookup(ctx context.Context, u *session.Unlocked, addr protocol.Address) (*multisig.Preimage, error)
}

// LogWriter provides logging capabilities.
type LogWriter interface {
	Debug(format string, args ...interface{})
}
