// Package storage persists wallets, keys and multisig preimages behind a
// Driver interface. Drivers are selected by name when a wallet is created
// and never see plaintext key material.
package storage

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/mrz1836/custodian/internal/protocol"
)

// Driver names.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// Wallet is the persisted wallet record. The master encryption key is
// sealed under the wallet password; the master derivation key and every key
// seed are sealed under the master encryption key.
type Wallet struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Driver             string    `json:"driver"`
	EncryptedMasterKey []byte    `json:"encrypted_master_key"`
	EncryptedMDK       []byte    `json:"encrypted_mdk"`
	NextIndex          uint64    `json:"next_index"`
	CreatedAt          time.Time `json:"created_at"`
}

// Key is a persisted signing key.
type Key struct {
	Address       protocol.Address   `json:"address"`
	PublicKey     protocol.PublicKey `json:"public_key"`
	EncryptedSeed []byte             `json:"encrypted_seed"`
	Index         uint64             `json:"index"`
	Imported      bool               `json:"imported"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Multisig is a persisted multisig preimage.
type Multisig struct {
	Address    protocol.Address     `json:"address"`
	Version    uint8                `json:"version"`
	Threshold  uint8                `json:"threshold"`
	PublicKeys []protocol.PublicKey `json:"public_keys"`
}

// DeriveFunc builds the key for a derivation index. It must be deterministic.
type DeriveFunc func(index uint64) (*Key, error)

// Driver is a wallet storage backend.
type Driver interface {
	// Name returns the driver name wallets are created with.
	Name() string

	// CreateWallet stores a new wallet. Fails with ErrWalletExists when the
	// id or name is taken within this driver.
	CreateWallet(ctx context.Context, w *Wallet) error

	// GetWallet loads a wallet by id.
	GetWallet(ctx context.Context, id string) (*Wallet, error)

	// ListWallets returns every wallet held by the driver.
	ListWallets(ctx context.Context) ([]*Wallet, error)

	// RenameWallet changes a wallet's name.
	RenameWallet(ctx context.Context, id, name string) error

	// InsertKey stores an imported key. Fails with ErrKeyExists on duplicates.
	InsertKey(ctx context.Context, walletID string, k *Key) error

	// InsertDerivedKey atomically reads the wallet's next index, skips
	// indices whose address is already stored, inserts the derived key and
	// advances the counter past it.
	InsertDerivedKey(ctx context.Context, walletID string, derive DeriveFunc) (*Key, error)

	// GetKey loads a key by address.
	GetKey(ctx context.Context, walletID string, addr protocol.Address) (*Key, error)

	// DeleteKey removes a key.
	DeleteKey(ctx context.Context, walletID string, addr protocol.Address) error

	// ListKeys returns the addresses of all keys in the wallet.
	ListKeys(ctx context.Context, walletID string) ([]protocol.Address, error)

	// PutMultisig stores a preimage. Storing the same preimage twice is a no-op.
	PutMultisig(ctx context.Context, walletID string, m *Multisig) error

	// GetMultisig loads a preimage by address.
	GetMultisig(ctx context.Context, walletID string, addr protocol.Address) (*Multisig, error)

	// DeleteMultisig removes a preimage.
	DeleteMultisig(ctx context.Context, walletID string, addr protocol.Address) error

	// ListMultisig returns the addresses of all preimages in the wallet.
	ListMultisig(ctx context.Context, walletID string) ([]protocol.Address, error)

	// Close releases driver resources.
	Close() error
}

func sortAddresses(addrs []protocol.Address) []protocol.Address {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	return addrs
}

func cloneWallet(w *Wallet) *Wallet {
	out := *w
	out.EncryptedMasterKey = bytes.Clone(w.EncryptedMasterKey)
	out.EncryptedMDK = bytes.Clone(w.EncryptedMDK)
	return &out
}

func cloneKey(k *Key) *Key {
	out := *k
	out.EncryptedSeed = bytes.Clone(k.EncryptedSeed)
	return &out
}

func cloneMultisig(m *Multisig) *Multisig {
	out := *m
	out.PublicKeys = append([]protocol.PublicKey(nil), m.PublicKeys...)
	return &out
}

func sameMultisig(a, b *Multisig) bool {
	if a.Version != b.Version || a.Threshold != b.Threshold || len(a.PublicKeys) != len(b.PublicKeys) {
		return false
	}
	for i := range a.PublicKeys {
		if a.PublicKeys[i] != b.PublicKeys[i] {
			return false
		}
	}
	return true
}
