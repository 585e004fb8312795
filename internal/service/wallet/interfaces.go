// Package wallet implements the wallet store: creating, renaming, listing
// and describing wallets, and exporting a wallet's master derivation key.
package wallet

import (
	"context"

	"github.com/mrz1836/custodian/internal/session"
	"github.com/mrz1836/custodian/internal/storage"
)

// Registry resolves storage drivers and finds wallets across them.
type Registry interface {
	Driver(name string) (storage.Driver, error)
	FindWallet(ctx context.Context, id string) (storage.Driver, *storage.Wallet, error)
	ListWallets(ctx context.Context) ([]*storage.Wallet, error)
	NameTaken(ctx context.Context, name, exceptID string) (bool, error)
}

// SessionResolver maps handle tokens to unlocked wallets.
type SessionResolver interface {
	Resolve(token string) (*session.Unlocked, error)
}

// LogWriter provides logging capabilities.
type LogWriter interface {
	Debug(format string, args ...interface{})
	Error(format string, args ...interface{})
}
