package storage

import (
	"context"
	"sync"

	"github.com/mrz1836/custodian/internal/protocol"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

type memoryWallet struct {
	wallet *Wallet
	keys   map[protocol.Address]*Key
	msigs  map[protocol.Address]*Multisig
}

// MemoryDriver keeps wallets in process memory. Wallets vanish on restart.
type MemoryDriver struct {
	mu      sync.RWMutex
	wallets map[string]*memoryWallet
}

// NewMemoryDriver creates an empty in-memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{wallets: make(map[string]*memoryWallet)}
}

// Name implements Driver.
func (d *MemoryDriver) Name() string { return DriverMemory }

// CreateWallet implements Driver.
func (d *MemoryDriver) CreateWallet(_ context.Context, w *Wallet) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, mw := range d.wallets {
		if id == w.ID || mw.wallet.Name == w.Name {
			return custerr.WithDetails(custerr.ErrWalletExists, map[string]string{"name": w.Name})
		}
	}
	stored := cloneWallet(w)
	stored.Driver = DriverMemory
	d.wallets[w.ID] = &memoryWallet{
		wallet: stored,
		keys:   make(map[protocol.Address]*Key),
		msigs:  make(map[protocol.Address]*Multisig),
	}
	return nil
}

func (d *MemoryDriver) lookup(id string) (*memoryWallet, error) {
	mw, ok := d.wallets[id]
	if !ok {
		return nil, custerr.WithDetails(custerr.ErrWalletNotFound, map[string]string{"id": id})
	}
	return mw, nil
}

// GetWallet implements Driver.
func (d *MemoryDriver) GetWallet(_ context.Context, id string) (*Wallet, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	mw, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	return cloneWallet(mw.wallet), nil
}

// ListWallets implements Driver.
func (d *MemoryDriver) ListWallets(_ context.Context) ([]*Wallet, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Wallet, 0, len(d.wallets))
	for _, mw := range d.wallets {
		out = append(out, cloneWallet(mw.wallet))
	}
	return out, nil
}

// RenameWallet implements Driver.
func (d *MemoryDriver) RenameWallet(_ context.Context, id, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	mw, err := d.lookup(id)
	if err != nil {
		return err
	}
	for otherID, other := range d.wallets {
		if otherID != id && other.wallet.Name == name {
			return custerr.WithDetails(custerr.ErrWalletExists, map[string]string{"name": name})
		}
	}
	mw.wallet.Name = name
	return nil
}

// InsertKey implements Driver.
func (d *MemoryDriver) InsertKey(_ context.Context, walletID string, k *Key) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	mw, err := d.lookup(walletID)
	if err != nil {
		return err
	}
	if _, exists := mw.keys[k.Address]; exists {
		return custerr.WithDetails(custerr.ErrKeyExists, map[string]string{"address": k.Address.String()})
	}
	mw.keys[k.Address] = cloneKey(k)
	return nil
}

// InsertDerivedKey implements Driver.
func (d *MemoryDriver) InsertDerivedKey(_ context.Context, walletID string, derive DeriveFunc) (*Key, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	mw, err := d.lookup(walletID)
	if err != nil {
		return nil, err
	}

	index := mw.wallet.NextIndex
	for {
		k, err := derive(index)
		if err != nil {
			return nil, err
		}
		if _, exists := mw.keys[k.Address]; !exists {
			k.Index = index
			k.Imported = false
			mw.keys[k.Address] = cloneKey(k)
			mw.wallet.NextIndex = index + 1
			return cloneKey(k), nil
		}
		index++
	}
}

// GetKey implements Driver.
func (d *MemoryDriver) GetKey(_ context.Context, walletID string, addr protocol.Address) (*Key, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	mw, err := d.lookup(walletID)
	if err != nil {
		return nil, err
	}
	k, ok := mw.keys[addr]
	if !ok {
		return nil, custerr.WithDetails(custerr.ErrKeyNotFound, map[string]string{"address": addr.String()})
	}
	return cloneKey(k), nil
}

// DeleteKey implements Driver.
func (d *MemoryDriver) DeleteKey(_ context.Context, walletID string, addr protocol.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	mw, err := d.lookup(walletID)
	if err != nil {
		return err
	}
	if _, ok := mw.keys[addr]; !ok {
		return custerr.WithDetails(custerr.ErrKeyNotFound, map[string]string{"address": addr.String()})
	}
	delete(mw.keys, addr)
	return nil
}

// ListKeys implements Driver.
func (d *MemoryDriver) ListKeys(_ context.Context, walletID string) ([]protocol.Address, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	mw, err := d.lookup(walletID)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.Address, 0, len(mw.keys))
	for addr := range mw.keys {
		out = append(out, addr)
	}
	return sortAddresses(out), nil
}

// PutMultisig implements Driver.
func (d *MemoryDriver) PutMultisig(_ context.Context, walletID string, m *Multisig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	mw, err := d.lookup(walletID)
	if err != nil {
		return err
	}
	if existing, ok := mw.msigs[m.Address]; ok && sameMultisig(existing, m) {
		return nil
	}
	mw.msigs[m.Address] = cloneMultisig(m)
	return nil
}

// GetMultisig implements Driver.
func (d *MemoryDriver) GetMultisig(_ context.Context, walletID string, addr protocol.Address) (*Multisig, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	mw, err := d.lookup(walletID)
	if err != nil {
		return nil, err
	}
	m, ok := mw.msigs[addr]
	if !ok {
		return nil, custerr.WithDetails(custerr.ErrMultisigNotFound, map[string]string{"address": addr.String()})
	}
	return cloneMultisig(m), nil
}

// DeleteMultisig implements Driver.
func (d *MemoryDriver) DeleteMultisig(_ context.Context, walletID string, addr protocol.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	mw, err := d.lookup(walletID)
	if err != nil {
		return err
	}
	if _, ok := mw.msigs[addr]; !ok {
		return custerr.WithDetails(custerr.ErrMultisigNotFound, map[string]string{"address": addr.String()})
	}
	delete(mw.msigs, addr)
	return nil
}

// ListMultisig implements Driver.
func (d *MemoryDriver) ListMultisig(_ context.Context, walletID string) ([]protocol.Address, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	mw, err := d.lookup(walletID)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.Address, 0, len(mw.msigs))
	for addr := range mw.msigs {
		out = append(out, addr)
	}
	return sortAddresses(out), nil
}

// Close implements Driver.
func (d *MemoryDriver) Close() error { return nil }
