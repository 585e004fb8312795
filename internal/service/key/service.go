package key

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/protocol"
	"github.com/mrz1836/custodian/internal/session"
	"github.com/mrz1836/custodian/internal/storage"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// Info describes a key without its secret.
type Info struct {
	Address   protocol.Address   `json:"address"`
	PublicKey protocol.PublicKey `json:"public_key"`
}

// Service implements key management for unlocked wallets.
type Service struct {
	sessions SessionResolver
	locks    Locker
	deriver  keycrypto.Deriver
	logger   LogWriter
	now      func() time.Time
}

// Config contains dependencies for creating a key service.
type Config struct {
	Sessions SessionResolver
	Locks    Locker
	Deriver  keycrypto.Deriver
	Logger   LogWriter
	Now      func() time.Time
}

// NewService creates a new key service instance. A nil Deriver selects
// keycrypto.HKDFDeriver.
func NewService(cfg *Config) *Service {
	s := &Service{
		sessions: cfg.Sessions,
		locks:    cfg.Locks,
		deriver:  cfg.Deriver,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if s.deriver == nil {
		s.deriver = keycrypto.HKDFDeriver{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Generate derives the wallet's next key. Indices are never reused, and
// indices whose address was already imported are skipped.
func (s *Service) Generate(ctx context.Context, handleToken string) (*Info, error) {
	u, err := s.sessions.Resolve(handleToken)
	if err != nil {
		return nil, err
	}
	defer u.Destroy()

	unlock := s.locks.Lock(u.WalletID)
	defer unlock()

	k, err := u.Driver.InsertDerivedKey(ctx, u.WalletID, func(index uint64) (*storage.Key, error) {
		sk, err := s.deriver.Derive(u.MasterDerivationKey(), index)
		if err != nil {
			return nil, err
		}
		defer keycrypto.ZeroBytes(sk)
		return s.sealKey(u, sk)
	})
	if err != nil {
		return nil, err
	}
	s.debug("generated key %d in wallet %s", k.Index, u.WalletID)
	return &Info{Address: k.Address, PublicKey: k.PublicKey}, nil
}

// Import stores a key from its seed. Importing a key whose address is
// already in the wallet succeeds without change.
func (s *Service) Import(ctx context.Context, handleToken string, seed protocol.Seed) (*Info, error) {
	u, err := s.sessions.Resolve(handleToken)
	if err != nil {
		return nil, err
	}
	defer u.Destroy()

	sk, pk := protocol.KeyFromSeed(seed)
	defer keycrypto.ZeroBytes(sk)
	info := &Info{Address: pk.Address(), PublicKey: pk}

	unlock := s.locks.Lock(u.WalletID)
	defer unlock()

	if _, err := u.Driver.GetKey(ctx, u.WalletID, info.Address); err == nil {
		return info, nil
	} else if !custerr.Is(err, custerr.ErrKeyNotFound) {
		return nil, err
	}

	k, err := s.sealKey(u, sk)
	if err != nil {
		return nil, err
	}
	k.Imported = true
	if err := u.Driver.InsertKey(ctx, u.WalletID, k); err != nil {
		return nil, err
	}
	s.debug("imported key into wallet %s", u.WalletID)
	return info, nil
}

// Export returns a key's seed after re-checking the wallet password.
func (s *Service) Export(ctx context.Context, handleToken string, password []byte, addr protocol.Address) (protocol.Seed, error) {
	var seed protocol.Seed
	u, err := s.sessions.Resolve(handleToken)
	if err != nil {
		return seed, err
	}
	defer u.Destroy()

	if err := u.CheckPassword(password); err != nil {
		return seed, err
	}

	unlock := s.locks.RLock(u.WalletID)
	defer unlock()

	sk, err := s.PrivateKey(ctx, u, addr)
	if err != nil {
		return seed, err
	}
	defer keycrypto.ZeroBytes(sk)
	return protocol.SeedOf(sk), nil
}

// Delete removes a key after re-checking the wallet password.
func (s *Service) Delete(ctx context.Context, handleToken string, password []byte, addr protocol.Address) error {
	u, err := s.sessions.Resolve(handleToken)
	if err != nil {
		return err
	}
	defer u.Destroy()

	if err := u.CheckPassword(password); err != nil {
		return err
	}

	unlock := s.locks.Lock(u.WalletID)
	defer unlock()

	if err := u.Driver.DeleteKey(ctx, u.WalletID, addr); err != nil {
		return err
	}
	s.debug("deleted key from wallet %s", u.WalletID)
	return nil
}

// List returns the addresses of every key in the wallet.
func (s *Service) List(ctx context.Context, handleToken string) ([]protocol.Address, error) {
	u, err := s.sessions.Resolve(handleToken)
	if err != nil {
		return nil, err
	}
	defer u.Destroy()

	unlock := s.locks.RLock(u.WalletID)
	defer unlock()

	return u.Driver.ListKeys(ctx, u.WalletID)
}

// PrivateKey opens the stored secret for addr. The decrypted key must
// re-derive addr, otherwise the record has been tampered with. Callers hold
// the wallet lock and zero the result.
func (s *Service) PrivateKey(ctx context.Context, u *session.Unlocked, addr protocol.Address) (ed25519.PrivateKey, error) {
	k, err := u.Driver.GetKey(ctx, u.WalletID, addr)
	if err != nil {
		return nil, err
	}
	raw, err := keycrypto.Open(k.EncryptedSeed, u.MasterKey(), keycrypto.PurposeKeySeed)
	if err != nil {
		return nil, custerr.Wrap(custerr.ErrTampered, "opening key %s: %v", addr, err)
	}
	defer keycrypto.ZeroBytes(raw)

	seed, err := protocol.SeedFromBytes(raw)
	if err != nil {
		return nil, custerr.Wrap(custerr.ErrTampered, "key %s", addr)
	}
	sk, pk := protocol.KeyFromSeed(seed)
	keycrypto.ZeroBytes(seed[:])
	if pk.Address() != addr || !bytes.Equal(pk[:], k.PublicKey[:]) {
		keycrypto.ZeroBytes(sk)
		return nil, custerr.WithDetails(custerr.ErrTampered, map[string]string{"address": addr.String()})
	}
	return sk, nil
}

func (s *Service) sealKey(u *session.Unlocked, sk ed25519.PrivateKey) (*storage.Key, error) {
	pk := protocol.PublicKeyOf(sk)
	seed := sk.Seed()
	defer keycrypto.ZeroBytes(seed)

	sealed, err := keycrypto.Seal(seed, u.MasterKey(), keycrypto.PurposeKeySeed)
	if err != nil {
		return nil, custerr.Wrap(err, "sealing key")
	}
	return &storage.Key{
		Address:       pk.Address(),
		PublicKey:     pk,
		EncryptedSeed: sealed,
		CreatedAt:     s.now().UTC(),
	}, nil
}

func (s *Service) debug(format string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(format, args...)
	}
}
