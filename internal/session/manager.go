package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/storage"
	"github.com/mrz1836/custodian/internal/token"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// WalletSource locates a wallet and the driver that stores it.
type WalletSource interface {
	FindWallet(ctx context.Context, id string) (storage.Driver, *storage.Wallet, error)
}

// Logger is the subset of the daemon logger the manager writes to.
type Logger interface {
	Debug(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

type handle struct {
	session   Session
	driver    storage.Driver
	masterKey *keycrypto.SecureBytes
	mdk       *keycrypto.SecureBytes
	verifier  *keycrypto.PasswordVerifier
}

func (h *handle) destroy() {
	h.masterKey.Destroy()
	h.mdk.Destroy()
}

// Unlocked is a resolved handle: the session plus copies of the wallet's
// unlocked keys. Callers must Destroy it when done.
type Unlocked struct {
	Session

	Driver    storage.Driver
	masterKey []byte
	mdk       []byte
	verifier  *keycrypto.PasswordVerifier
}

// MasterKey returns the wallet's master encryption key.
func (u *Unlocked) MasterKey() []byte { return u.masterKey }

// MasterDerivationKey returns the wallet's master derivation key.
func (u *Unlocked) MasterDerivationKey() []byte { return u.mdk }

// CheckPassword re-verifies the wallet password against the value the
// handle was opened with.
func (u *Unlocked) CheckPassword(password []byte) error {
	if !u.verifier.Verify(password) {
		return custerr.ErrWrongPassword
	}
	return nil
}

// Destroy zeros the key copies.
func (u *Unlocked) Destroy() {
	keycrypto.ZeroBytes(u.masterKey)
	keycrypto.ZeroBytes(u.mdk)
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL sets the handle lifetime, clamped to [MinTTL, MaxTTL].
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ClampTTL(ttl) }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the debug logger.
func WithLogger(l Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager owns every live handle. Init, Renew, Release and Resolve are
// serialized by one lock, so an expiry check and a concurrent renew or
// release never interleave.
type Manager struct {
	mu      sync.RWMutex
	handles map[string]*handle
	source  WalletSource
	ttl     time.Duration
	now     func() time.Time
	logger  Logger
}

// NewManager creates a handle manager that opens wallets from source.
func NewManager(source WalletSource, opts ...Option) *Manager {
	m := &Manager{
		handles: make(map[string]*handle),
		source:  source,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the configured handle lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Init verifies password against the wallet and issues a new handle.
// Unknown wallets and wrong passwords both fail authentication.
func (m *Manager) Init(ctx context.Context, walletID string, password []byte) (*Session, error) {
	if len(password) == 0 {
		return nil, custerr.ErrWrongPassword
	}

	driver, w, err := m.source.FindWallet(ctx, walletID)
	if errors.Is(err, custerr.ErrWalletNotFound) {
		return nil, custerr.WithDetails(custerr.ErrUnknownWallet, map[string]string{"id": walletID})
	}
	if err != nil {
		return nil, fmt.Errorf("finding wallet: %w", err)
	}

	mek, mdk, err := keycrypto.OpenMasterKeys(string(password), w.EncryptedMasterKey, w.EncryptedMDK)
	if errors.Is(err, keycrypto.ErrDecrypt) {
		return nil, custerr.ErrWrongPassword
	}
	if err != nil {
		return nil, custerr.Wrap(err, "unlocking wallet %s", walletID)
	}

	verifier, err := keycrypto.NewPasswordVerifier(password)
	if err != nil {
		mek.Destroy()
		mdk.Destroy()
		return nil, err
	}

	tok, err := token.Generate(token.HandlePrefix)
	if err != nil {
		mek.Destroy()
		mdk.Destroy()
		return nil, err
	}

	now := m.now()
	h := &handle{
		session: Session{
			Token:        tok,
			WalletID:     w.ID,
			CreatedAt:    now,
			ExpiresAt:    now.Add(m.ttl),
			MemoryLocked: mek.IsLocked() && mdk.IsLocked(),
		},
		driver:    driver,
		masterKey: mek,
		mdk:       mdk,
		verifier:  verifier,
	}

	m.mu.Lock()
	m.handles[tok] = h
	m.mu.Unlock()

	m.logger.Debug("handle %s issued for wallet %s", token.ID(tok), w.ID)
	if !h.session.MemoryLocked {
		m.logger.Debug("handle %s: unlocked keys are not memory-locked", token.ID(tok))
	}
	s := h.session
	return &s, nil
}

// Renew extends a live handle's expiry to now plus the TTL.
func (m *Manager) Renew(tok string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, err := m.liveLocked(tok)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			m.dropLocked(tok)
		}
		return nil, invalidHandle(err)
	}
	h.session.ExpiresAt = m.now().Add(m.ttl)
	s := h.session
	return &s, nil
}

// Release revokes a handle. Releasing an unknown, expired or already
// released handle succeeds.
func (m *Manager) Release(tok string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.handles[tok]; ok {
		m.dropLocked(tok)
		m.logger.Debug("handle %s released", token.ID(tok))
	}
	return nil
}

// Resolve maps a token to its unlocked wallet. It fails with an
// authentication error when the handle is unknown, expired or released.
func (m *Manager) Resolve(tok string) (*Unlocked, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, err := m.liveLocked(tok)
	if err != nil {
		return nil, invalidHandle(err)
	}
	return &Unlocked{
		Session:   h.session,
		Driver:    h.driver,
		masterKey: h.masterKey.Copy(),
		mdk:       h.mdk.Copy(),
		verifier:  h.verifier,
	}, nil
}

// Sweep drops expired handles and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for tok, h := range m.handles {
		if !now.Before(h.session.ExpiresAt) {
			m.dropLocked(tok)
			n++
		}
	}
	return n
}

// Run sweeps expired handles every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("swept %d expired handles", n)
			}
		}
	}
}

// Count returns the number of handles held, including expired ones not yet swept.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}

// Close releases every handle.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tok := range m.handles {
		m.dropLocked(tok)
	}
}

func (m *Manager) liveLocked(tok string) (*handle, error) {
	h, ok := m.handles[tok]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !m.now().Before(h.session.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	return h, nil
}

func (m *Manager) dropLocked(tok string) {
	if h, ok := m.handles[tok]; ok {
		h.destroy()
		delete(m.handles, tok)
	}
}

func invalidHandle(cause error) error {
	return fmt.Errorf("%w: %w", custerr.ErrInvalidHandle, cause)
}
