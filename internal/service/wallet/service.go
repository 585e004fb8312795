package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/protocol"
	"github.com/mrz1836/custodian/internal/storage"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// MaxWalletNameLength bounds a wallet name in characters.
const MaxWalletNameLength = 64

// ValidateWalletName checks a wallet name: 1-64 printable characters with
// no surrounding whitespace.
func ValidateWalletName(name string) error {
	if !validWalletName(name) {
		return custerr.WithSuggestion(
			custerr.WithDetails(custerr.ErrInvalidWalletName, map[string]string{"name": name}),
			fmt.Sprintf("use 1-%d printable characters without leading or trailing spaces", MaxWalletNameLength),
		)
	}
	return nil
}

func validWalletName(name string) bool {
	if name == "" || !utf8.ValidString(name) || strings.TrimSpace(name) != name {
		return false
	}
	if utf8.RuneCountInString(name) > MaxWalletNameLength {
		return false
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// Service implements the wallet store on top of the storage registry.
type Service struct {
	registry      Registry
	sessions      SessionResolver
	logger        LogWriter
	defaultDriver string
	now           func() time.Time

	// createMu serializes create and rename so name uniqueness holds
	// across drivers.
	createMu sync.Mutex
}

// Config contains dependencies for creating a wallet service.
type Config struct {
	Registry      Registry
	Sessions      SessionResolver
	Logger        LogWriter
	DefaultDriver string
	Now           func() time.Time
}

// NewService creates a new wallet service instance.
func NewService(cfg *Config) *Service {
	s := &Service{
		registry:      cfg.Registry,
		sessions:      cfg.Sessions,
		logger:        cfg.Logger,
		defaultDriver: cfg.DefaultDriver,
		now:           cfg.Now,
	}
	if s.defaultDriver == "" {
		s.defaultDriver = storage.DriverSQLite
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create stores a new wallet. A zero master derivation key is replaced by
// a random one. Names are unique across every driver.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Summary, error) {
	if err := ValidateWalletName(req.Name); err != nil {
		return nil, err
	}
	if len(req.Password) == 0 {
		return nil, custerr.ErrEmptyPassword
	}
	driverName := req.Driver
	if driverName == "" {
		driverName = s.defaultDriver
	}
	driver, err := s.registry.Driver(driverName)
	if err != nil {
		return nil, err
	}

	mdk := req.MasterDerivationKey
	if mdk.IsZero() {
		random, err := keycrypto.RandomBytes(len(mdk))
		if err != nil {
			return nil, fmt.Errorf("generating master derivation key: %w", err)
		}
		copy(mdk[:], random)
		keycrypto.ZeroBytes(random)
	}
	defer keycrypto.ZeroBytes(mdk[:])

	s.createMu.Lock()
	defer s.createMu.Unlock()

	taken, err := s.registry.NameTaken(ctx, req.Name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, custerr.WithDetails(custerr.ErrWalletExists, map[string]string{"name": req.Name})
	}

	encMEK, encMDK, err := keycrypto.SealMasterKeys(string(req.Password), mdk[:])
	if err != nil {
		return nil, custerr.Wrap(err, "sealing wallet keys")
	}

	w := &storage.Wallet{
		ID:                 uuid.NewString(),
		Name:               req.Name,
		Driver:             driver.Name(),
		EncryptedMasterKey: encMEK,
		EncryptedMDK:       encMDK,
		NextIndex:          0,
		CreatedAt:          s.now().UTC(),
	}
	if err := driver.CreateWallet(ctx, w); err != nil {
		return nil, err
	}
	s.debug("wallet %s created with %s driver", w.ID, w.Driver)
	return summaryOf(w), nil
}

// Rename changes a wallet's name after checking its password. The wallet id
// and its keys are unchanged.
func (s *Service) Rename(ctx context.Context, id string, password []byte, newName string) error {
	if err := ValidateWalletName(newName); err != nil {
		return err
	}
	driver, w, err := s.registry.FindWallet(ctx, id)
	if err != nil {
		return err
	}
	if err := checkPassword(w, password); err != nil {
		return err
	}
	if w.Name == newName {
		return nil
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	taken, err := s.registry.NameTaken(ctx, newName, id)
	if err != nil {
		return err
	}
	if taken {
		return custerr.WithDetails(custerr.ErrWalletExists, map[string]string{"name": newName})
	}
	if err := driver.RenameWallet(ctx, id, newName); err != nil {
		return err
	}
	s.debug("wallet %s renamed", id)
	return nil
}

// Info describes the wallet bound to a handle.
func (s *Service) Info(ctx context.Context, handleToken string) (*Info, error) {
	u, err := s.sessions.Resolve(handleToken)
	if err != nil {
		return nil, err
	}
	defer u.Destroy()

	w, err := u.Driver.GetWallet(ctx, u.WalletID)
	if err != nil {
		return nil, err
	}
	return &Info{Wallet: *summaryOf(w), ExpiresAt: u.ExpiresAt}, nil
}

// List returns every wallet across all drivers.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	ws, err := s.registry.ListWallets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(ws))
	for _, w := range ws {
		out = append(out, *summaryOf(w))
	}
	return out, nil
}

// ExportMasterDerivationKey returns the wallet's master derivation key. The
// password is re-checked even though the handle is valid.
func (s *Service) ExportMasterDerivationKey(_ context.Context, handleToken string, password []byte) (protocol.MasterDerivationKey, error) {
	var mdk protocol.MasterDerivationKey
	u, err := s.sessions.Resolve(handleToken)
	if err != nil {
		return mdk, err
	}
	defer u.Destroy()

	if err := u.CheckPassword(password); err != nil {
		return mdk, err
	}
	copy(mdk[:], u.MasterDerivationKey())
	s.debug("master derivation key exported for wallet %s", u.WalletID)
	return mdk, nil
}

func checkPassword(w *storage.Wallet, password []byte) error {
	if len(password) == 0 {
		return custerr.ErrWrongPassword
	}
	mek, mdk, err := keycrypto.OpenMasterKeys(string(password), w.EncryptedMasterKey, w.EncryptedMDK)
	if errors.Is(err, keycrypto.ErrDecrypt) {
		return custerr.ErrWrongPassword
	}
	if err != nil {
		return custerr.Wrap(err, "checking wallet password")
	}
	mek.Destroy()
	mdk.Destroy()
	return nil
}

func summaryOf(w *storage.Wallet) *Summary {
	return &Summary{ID: w.ID, Name: w.Name, Driver: w.Driver, CreatedAt: w.CreatedAt}
}

func (s *Service) debug(format string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(format, args...)
	}
}
