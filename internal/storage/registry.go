package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// Registry holds the enabled drivers by name.
type Registry struct {
	drivers map[string]Driver
	names   []string
}

// NewRegistry builds a registry from drivers. Later drivers with a duplicate
// name replace earlier ones.
func NewRegistry(drivers ...Driver) *Registry {
	r := &Registry{drivers: make(map[string]Driver, len(drivers))}
	for _, d := range drivers {
		if _, ok := r.drivers[d.Name()]; !ok {
			r.names = append(r.names, d.Name())
		}
		r.drivers[d.Name()] = d
	}
	sort.Strings(r.names)
	return r
}

// Driver returns the driver registered under name.
func (r *Registry) Driver(name string) (Driver, error) {
	d, ok := r.drivers[name]
	if !ok {
		return nil, custerr.WithDetails(custerr.ErrUnknownDriver, map[string]string{"driver": name})
	}
	return d, nil
}

// Names returns the registered driver names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// FindWallet locates a wallet by id across all drivers.
func (r *Registry) FindWallet(ctx context.Context, id string) (Driver, *Wallet, error) {
	for _, name := range r.names {
		d := r.drivers[name]
		w, err := d.GetWallet(ctx, id)
		if err == nil {
			return d, w, nil
		}
		if !errors.Is(err, custerr.ErrWalletNotFound) {
			return nil, nil, fmt.Errorf("looking up wallet in %s driver: %w", name, err)
		}
	}
	return nil, nil, custerr.WithDetails(custerr.ErrWalletNotFound, map[string]string{"id": id})
}

// ListWallets returns wallets from every driver.
func (r *Registry) ListWallets(ctx context.Context) ([]*Wallet, error) {
	var all []*Wallet
	for _, name := range r.names {
		ws, err := r.drivers[name].ListWallets(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing %s wallets: %w", name, err)
		}
		all = append(all, ws...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

// NameTaken reports whether any wallet other than exceptID uses name.
func (r *Registry) NameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	ws, err := r.ListWallets(ctx)
	if err != nil {
		return false, err
	}
	for _, w := range ws {
		if w.Name == name && w.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

// Close closes every driver and returns the first error.
func (r *Registry) Close() error {
	var first error
	for _, name := range r.names {
		if err := r.drivers[name].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
