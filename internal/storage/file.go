package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/mrz1836/custodian/internal/fileutil"
	"github.com/mrz1836/custodian/internal/protocol"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

const (
	walletFileExtension   = ".wallet"
	walletFilePermissions = 0o600
)

var errMissingWalletRecord = errors.New("wallet file has no wallet record")

//nolint:gochecknoglobals // compiled once
var walletIDPattern = regexp.MustCompile(`^[a-zA-Z0-9-]{1,64}$`)

// walletFile is the on-disk layout of one wallet.
type walletFile struct {
	Wallet    *Wallet     `json:"wallet"`
	Keys      []*Key      `json:"keys"`
	Multisigs []*Multisig `json:"multisigs"`
}

// FileDriver stores each wallet as a JSON file named after its id.
// Every mutation rewrites the file atomically.
type FileDriver struct {
	mu       sync.Mutex
	basePath string
}

// NewFileDriver creates a file driver rooted at basePath.
func NewFileDriver(basePath string) (*FileDriver, error) {
	if err := os.MkdirAll(basePath, fileutil.DirPermissions); err != nil {
		return nil, fmt.Errorf("creating wallet directory: %w", err)
	}
	return &FileDriver{basePath: basePath}, nil
}

// Name implements Driver.
func (d *FileDriver) Name() string { return DriverFile }

func (d *FileDriver) walletPath(id string) (string, error) {
	if !walletIDPattern.MatchString(id) {
		return "", custerr.WithDetails(custerr.ErrWalletNotFound, map[string]string{"id": id})
	}
	return filepath.Join(d.basePath, id+walletFileExtension), nil
}

func (d *FileDriver) load(id string) (*walletFile, error) {
	path, err := d.walletPath(id)
	if err != nil {
		return nil, err
	}
	var wf walletFile
	if err := fileutil.ReadJSON(path, &wf); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, custerr.WithDetails(custerr.ErrWalletNotFound, map[string]string{"id": id})
		}
		return nil, fmt.Errorf("loading wallet %s: %w", id, err)
	}
	if wf.Wallet == nil {
		return nil, fmt.Errorf("loading wallet %s: %w", id, errMissingWalletRecord)
	}
	wf.Wallet.Driver = DriverFile
	return &wf, nil
}

func (d *FileDriver) save(wf *walletFile) error {
	path, err := d.walletPath(wf.Wallet.ID)
	if err != nil {
		return err
	}
	return fileutil.WriteJSONAtomic(path, wf, walletFilePermissions)
}

func (d *FileDriver) loadAll() ([]*walletFile, error) {
	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return nil, fmt.Errorf("reading wallet directory: %w", err)
	}
	out := make([]*walletFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), walletFileExtension) {
			continue
		}
		wf, err := d.load(strings.TrimSuffix(entry.Name(), walletFileExtension))
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	return out, nil
}

// CreateWallet implements Driver.
func (d *FileDriver) CreateWallet(_ context.Context, w *Wallet) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.walletPath(w.ID); err != nil {
		return custerr.WithDetails(custerr.ErrInvalidInput, map[string]string{"id": w.ID})
	}
	existing, err := d.loadAll()
	if err != nil {
		return err
	}
	for _, wf := range existing {
		if wf.Wallet.ID == w.ID || wf.Wallet.Name == w.Name {
			return custerr.WithDetails(custerr.ErrWalletExists, map[string]string{"name": w.Name})
		}
	}
	stored := cloneWallet(w)
	stored.Driver = DriverFile
	return d.save(&walletFile{Wallet: stored})
}

// GetWallet implements Driver.
func (d *FileDriver) GetWallet(_ context.Context, id string) (*Wallet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wf, err := d.load(id)
	if err != nil {
		return nil, err
	}
	return wf.Wallet, nil
}

// ListWallets implements Driver.
func (d *FileDriver) ListWallets(_ context.Context) ([]*Wallet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	all, err := d.loadAll()
	if err != nil {
		return nil, err
	}
	out := make([]*Wallet, 0, len(all))
	for _, wf := range all {
		out = append(out, wf.Wallet)
	}
	return out, nil
}

// RenameWallet implements Driver.
func (d *FileDriver) RenameWallet(_ context.Context, id, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	all, err := d.loadAll()
	if err != nil {
		return err
	}
	var target *walletFile
	for _, wf := range all {
		switch {
		case wf.Wallet.ID == id:
			target = wf
		case wf.Wallet.Name == name:
			return custerr.WithDetails(custerr.ErrWalletExists, map[string]string{"name": name})
		}
	}
	if target == nil {
		return custerr.WithDetails(custerr.ErrWalletNotFound, map[string]string{"id": id})
	}
	target.Wallet.Name = name
	return d.save(target)
}

func findKey(wf *walletFile, addr protocol.Address) int {
	for i, k := range wf.Keys {
		if k.Address == addr {
			return i
		}
	}
	return -1
}

func findMultisig(wf *walletFile, addr protocol.Address) int {
	for i, m := range wf.Multisigs {
		if m.Address == addr {
			return i
		}
	}
	return -1
}

// InsertKey implements Driver.
func (d *FileDriver) InsertKey(_ context.Context, walletID string, k *Key) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	wf, err := d.load(walletID)
	if err != nil {
		return err
	}
	if findKey(wf, k.Address) >= 0 {
		return custerr.WithDetails(custerr.ErrKeyExists, map[string]string{"address": k.Address.String()})
	}
	wf.Keys = append(wf.Keys, cloneKey(k))
	return d.save(wf)
}

// InsertDerivedKey implements Driver.
func (d *FileDriver) InsertDerivedKey(_ context.Context, walletID string, derive DeriveFunc) (*Key, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wf, err := d.load(walletID)
	if err != nil {
		return nil, err
	}

	index := wf.Wallet.NextIndex
	for {
		k, err := derive(index)
		if err != nil {
			return nil, err
		}
		if findKey(wf, k.Address) >= 0 {
			index++
			continue
		}
		k.Index = index
		k.Imported = false
		wf.Keys = append(wf.Keys, cloneKey(k))
		wf.Wallet.NextIndex = index + 1
		if err := d.save(wf); err != nil {
			return nil, err
		}
		return k, nil
	}
}

// GetKey implements Driver.
func (d *FileDriver) GetKey(_ context.Context, walletID string, addr protocol.Address) (*Key, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wf, err := d.load(walletID)
	if err != nil {
		return nil, err
	}
	i := findKey(wf, addr)
	if i < 0 {
		return nil, custerr.WithDetails(custerr.ErrKeyNotFound, map[string]string{"address": addr.String()})
	}
	return wf.Keys[i], nil
}

// DeleteKey implements Driver.
func (d *FileDriver) DeleteKey(_ context.Context, walletID string, addr protocol.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	wf, err := d.load(walletID)
	if err != nil {
		return err
	}
	i := findKey(wf, addr)
	if i < 0 {
		return custerr.WithDetails(custerr.ErrKeyNotFound, map[string]string{"address": addr.String()})
	}
	wf.Keys = append(wf.Keys[:i], wf.Keys[i+1:]...)
	return d.save(wf)
}

// ListKeys implements Driver.
func (d *FileDriver) ListKeys(_ context.Context, walletID string) ([]protocol.Address, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wf, err := d.load(walletID)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.Address, 0, len(wf.Keys))
	for _, k := range wf.Keys {
		out = append(out, k.Address)
	}
	return sortAddresses(out), nil
}

// PutMultisig implements Driver.
func (d *FileDriver) PutMultisig(_ context.Context, walletID string, m *Multisig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	wf, err := d.load(walletID)
	if err != nil {
		return err
	}
	if i := findMultisig(wf, m.Address); i >= 0 {
		if sameMultisig(wf.Multisigs[i], m) {
			return nil
		}
		wf.Multisigs[i] = cloneMultisig(m)
	} else {
		wf.Multisigs = append(wf.Multisigs, cloneMultisig(m))
	}
	return d.save(wf)
}

// GetMultisig implements Driver.
func (d *FileDriver) GetMultisig(_ context.Context, walletID string, addr protocol.Address) (*Multisig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wf, err := d.load(walletID)
	if err != nil {
		return nil, err
	}
	i := findMultisig(wf, addr)
	if i < 0 {
		return nil, custerr.WithDetails(custerr.ErrMultisigNotFound, map[string]string{"address": addr.String()})
	}
	return wf.Multisigs[i], nil
}

// DeleteMultisig implements Driver.
func (d *FileDriver) DeleteMultisig(_ context.Context, walletID string, addr protocol.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	wf, err := d.load(walletID)
	if err != nil {
		return err
	}
	i := findMultisig(wf, addr)
	if i < 0 {
		return custerr.WithDetails(custerr.ErrMultisigNotFound, map[string]string{"address": addr.String()})
	}
	wf.Multisigs = append(wf.Multisigs[:i], wf.Multisigs[i+1:]...)
	return d.save(wf)
}

// ListMultisig implements Driver.
func (d *FileDriver) ListMultisig(_ context.Context, walletID string) ([]protocol.Address, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wf, err := d.load(walletID)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.Address, 0, len(wf.Multisigs))
	for _, m := range wf.Multisigs {
		out = append(out, m.Address)
	}
	return sortAddresses(out), nil
}

// Close implements Driver.
func (d *FileDriver) Close() error { return nil }
