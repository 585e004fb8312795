package multisig

import (
	"context"

	"github.com/mrz1836/custodian/internal/protocol"
	"github.com/mrz1836/custodian/internal/session"
	"github.com/mrz1836/custodian/internal/storage"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// Preimage is the ordered definition of a multisig account.
type Preimage struct {
	Version    uint8                `json:"version"`
	Threshold  uint8                `json:"threshold"`
	PublicKeys []protocol.PublicKey `json:"public_keys"`
}

// Address computes the account address of the preimage.
func (p Preimage) Address() (protocol.Address, error) {
	return protocol.MultisigAddress(p.Version, p.Threshold, p.PublicKeys)
}

// Bag returns an unsigned signature bag for the account.
func (p Preimage) Bag() (protocol.MultisigSig, error) {
	return protocol.NewMultisigSig(p.Version, p.Threshold, p.PublicKeys)
}

// Service implements multisig account management.
type Service struct {
	sessions SessionResolver
	locks    Locker
	logger   LogWriter
}

// Config contains dependencies for creating a multisig service.
type Config struct {
	Sessions SessionResolver
	Locks    Locker
	Logger   LogWriter
}

// NewService creates a new multisig service instance.
func NewService(cfg *Config) *Service {
	return &Service{
		sessions: cfg.Sessions,
		locks:    cfg.Locks,
		logger:   cfg.Logger,
	}
}

// Import registers a multisig account. Key order is kept exactly as given
// since it fixes each member's slot. Importing the same account twice
// succeeds.
func (s *Service) Import(ctx context.Context, handleToken string, p Preimage) (protocol.Address, error) {
	addr, err := p.Address()
	if err != nil {
		return protocol.Address{}, err
	}

	u, err := s.sessions.Resolve(handleToken)
	if err != nil {
		return protocol.Address{}, err
	}
	defer u.Destroy()

	unlock := s.locks.Lock(u.WalletID)
	defer unlock()

	err = u.Driver.PutMultisig(ctx, u.WalletID, &storage.Multisig{
		Address:    addr,
		Version:    p.Version,
		Threshold:  p.Threshold,
		PublicKeys: append([]protocol.PublicKey(nil), p.PublicKeys...),
	})
	if err != nil {
		return protocol.Address{}, err
	}
	s.debug("imported %d-of-%d multisig into wallet %s", p.Threshold, len(p.PublicKeys), u.WalletID)
	return addr, nil
}

// Export returns the preimage of a registered account.
func (s *Service) Export(ctx context.Context, handleToken string, addr protocol.Address) (*Preimage, error) {
	u, err := s.sessions.Resolve(handleToken)
	if err != nil {
		return nil, err
	}
	defer u.Destroy()

	unlock := s.locks.RLock(u.WalletID)
	defer unlock()

	return s.Lookup(ctx, u, addr)
}

// Delete removes an account after re-checking the wallet password.
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

	if err := u.Driver.DeleteMultisig(ctx, u.WalletID, addr); err != nil {
		return err
	}
	s.debug("deleted multisig from wallet %s", u.WalletID)
	return nil
}

// List returns the addresses of every account in the wallet.
func (s *Service) List(ctx context.Context, handleToken string) ([]protocol.Address, error) {
	u, err := s.sessions.Resolve(handleToken)
	if err != nil {
		return nil, err
	}
	defer u.Destroy()

	unlock := s.locks.RLock(u.WalletID)
	defer unlock()

	return u.Driver.ListMultisig(ctx, u.WalletID)
}

// Lookup loads the preimage stored for addr and checks that it still hashes
// to addr. Callers hold the wallet lock.
func (s *Service) Lookup(ctx context.Context, u *session.Unlocked, addr protocol.Address) (*Preimage, error) {
	m, err := u.Driver.GetMultisig(ctx, u.WalletID, addr)
	if err != nil {
		return nil, err
	}
	p := &Preimage{Version: m.Version, Threshold: m.Threshold, PublicKeys: m.PublicKeys}
	got, err := p.Address()
	if err != nil || got != addr {
		return nil, custerr.WithDetails(custerr.ErrTampered, map[string]string{"multisig": addr.String()})
	}
	return p, nil
}

func (s *Service) debug(format string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(format, args...)
	}
}
