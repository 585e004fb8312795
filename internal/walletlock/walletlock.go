// Package walletlock hands out one read/write lock per wallet id so that
// mutations of a wallet serialize while different wallets proceed in parallel.
package walletlock

import "sync"

// Locks is a registry of per-wallet locks. The zero value is not usable;
// call New.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// New creates an empty lock registry.
func New() *Locks {
	return &Locks{locks: make(map[string]*sync.RWMutex)}
}

// For returns the lock for walletID, creating it on first use.
func (l *Locks) For(walletID string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[walletID]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[walletID] = m
	}
	return m
}

// Lock takes the write lock for walletID and returns its release func.
func (l *Locks) Lock(walletID string) func() {
	m := l.For(walletID)
	m.Lock()
	return m.Unlock
}

// RLock takes the read lock for walletID and returns its release func.
func (l *Locks) RLock(walletID string) func() {
	m := l.For(walletID)
	m.RLock()
	return m.RUnlock
}
