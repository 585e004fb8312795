package signing

import (
	"context"
	"fmt"

	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/protocol"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// Service signs transactions. It never returns private key material.
type Service struct {
	sessions SessionResolver
	locks    Locker
	keys     KeySource
	msigs    MultisigSource
	logger   LogWriter
}

// Config contains dependencies for creating a signing service.
type Config struct {
	Sessions  SessionResolver
	Locks     Locker
	Keys      KeySource
	Multisigs MultisigSource
	Logger    LogWriter
}

// NewService creates a new signing service instance.
func NewService(cfg *Config) *Service {
	return &Service{
		sessions: cfg.Sessions,
		locks:    cfg.Locks,
		keys:     cfg.Keys,
		msigs:    cfg.Multisigs,
		logger:   cfg.Logger,
	}
}

// Sign signs tx with the wallet key matching its sender. The transaction is
// returned unmodified alongside the signature.
func (s *Service) Sign(ctx context.Context, handleToken string, password []byte, tx protocol.Transaction) (*protocol.SignedTxn, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	u, err := s.sessions.Resolve(handleToken)
	if err != nil {
		return nil, err
	}
	defer u.Destroy()

	if err := u.CheckPassword(password); err != nil {
		return nil, err
	}

	unlock := s.locks.RLock(u.WalletID)
	defer unlock()

	sk, err := s.keys.PrivateKey(ctx, u, tx.Sender)
	if err != nil {
		return nil, err
	}
	defer keycrypto.ZeroBytes(sk)

	stx := protocol.SignTransaction(sk, tx)
	s.debug("signed transaction %s", tx.ID())
	return &stx, nil
}

// SignMultisig adds the signature of member to the multisig bag for the
// account named by tx.Sender. With an existing partial the new signature is
// merged into it; the result is returned whether or not the threshold is met.
func (s *Service) SignMultisig(ctx context.Context, handleToken string, password []byte, tx protocol.Transaction, member protocol.PublicKey, partial Partial) (*protocol.SignedTxn, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	u, err := s.sessions.Resolve(handleToken)
	if err != nil {
		return nil, err
	}
	defer u.Destroy()

	if err := u.CheckPassword(password); err != nil {
		return nil, err
	}

	unlock := s.locks.RLock(u.WalletID)
	defer unlock()

	p, err := s.msigs.Lookup(ctx, u, tx.Sender)
	if err != nil {
		return nil, err
	}

	slot := -1
	for i, pk := range p.PublicKeys {
		if pk == member {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, custerr.WithDetails(custerr.ErrNotMultisigMember, map[string]string{
			"key":      member.Address().String(),
			"multisig": tx.Sender.String(),
		})
	}

	sk, err := s.keys.PrivateKey(ctx, u, member.Address())
	if err != nil {
		return nil, err
	}
	defer keycrypto.ZeroBytes(sk)

	bag, err := p.Bag()
	if err != nil {
		return nil, err
	}
	msg := tx.SigningBytes()
	signed, err := bag.Sign(sk, msg)
	if err != nil {
		return nil, err
	}

	if existing, ok := partial.Get(); ok {
		if !existing.SamePreimage(bag) {
			return nil, custerr.WithDetails(custerr.ErrPartialMismatch, map[string]string{"multisig": tx.Sender.String()})
		}
		merged, err := protocol.MergeMultisig(existing, signed)
		if err != nil {
			return nil, err
		}
		if err := existing.Verify(msg); err != nil {
			return nil, err
		}
		signed = merged
	}

	s.debug("multisig slot %d signed for transaction %s (%s)", slot, tx.ID(), progress(signed))
	return &protocol.SignedTxn{Msig: signed, Txn: tx}, nil
}

func progress(m protocol.MultisigSig) string {
	return fmt.Sprintf("%d/%d", m.SignatureCount(), m.Threshold)
}

func (s *Service) debug(format string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(format, args...)
	}
}
