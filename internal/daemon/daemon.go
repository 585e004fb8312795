// Package daemon wires the custody services together: storage drivers, the
// handle manager, per-wallet locks and the wallet, key, multisig and signing
// services that the HTTP server exposes.
package daemon

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mrz1836/custodian/internal/config"
	"github.com/mrz1836/custodian/internal/fileutil"
	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/metrics"
	"github.com/mrz1836/custodian/internal/service/key"
	"github.com/mrz1836/custodian/internal/service/multisig"
	"github.com/mrz1836/custodian/internal/service/signing"
	"github.com/mrz1836/custodian/internal/service/wallet"
	"github.com/mrz1836/custodian/internal/session"
	"github.com/mrz1836/custodian/internal/storage"
	"github.com/mrz1836/custodian/internal/walletlock"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// Options tune a daemon built from an existing registry.
type Options struct {
	HandleTTL     time.Duration
	SweepInterval time.Duration
	DefaultDriver string
	Deriver       keycrypto.Deriver
	Logger        *config.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// Daemon owns every long-lived component of a running custodian.
type Daemon struct {
	Registry  *storage.Registry
	Sessions  *session.Manager
	Locks     *walletlock.Locks
	Wallets   *wallet.Service
	Keys      *key.Service
	Multisigs *multisig.Service
	Signer    *signing.Service
	Metrics   *metrics.Metrics
	Logger    *config.Logger

	sweepInterval time.Duration
}

// New builds a daemon on top of reg.
func New(reg *storage.Registry, opts Options) *Daemon {
	logger := opts.Logger
	if logger == nil {
		logger = config.NullLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	sessOpts := []session.Option{session.WithTTL(opts.HandleTTL), session.WithLogger(logger)}
	if opts.Now != nil {
		sessOpts = append(sessOpts, session.WithClock(opts.Now))
	}
	sessions := session.NewManager(reg, sessOpts...)
	locks := walletlock.New()

	keys := key.NewService(&key.Config{
		Sessions: sessions,
		Locks:    locks,
		Deriver:  opts.Deriver,
		Logger:   logger,
		Now:      opts.Now,
	})
	msigs := multisig.NewService(&multisig.Config{
		Sessions: sessions,
		Locks:    locks,
		Logger:   logger,
	})

	return &Daemon{
		Registry: reg,
		Sessions: sessions,
		Locks:    locks,
		Wallets: wallet.NewService(&wallet.Config{
			Registry:      reg,
			Sessions:      sessions,
			Logger:        logger,
			DefaultDriver: opts.DefaultDriver,
			Now:           opts.Now,
		}),
		Keys:      keys,
		Multisigs: msigs,
		Signer: signing.NewService(&signing.Config{
			Sessions:  sessions,
			Locks:     locks,
			Keys:      keys,
			Multisigs: msigs,
			Logger:    logger,
		}),
		Metrics:       m,
		Logger:        logger,
		sweepInterval: opts.SweepInterval,
	}
}

// Open builds a daemon from configuration, opening every enabled driver.
func Open(cfg *config.Config, logger *config.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.GetHome(), fileutil.DirPermissions); err != nil {
		return nil, fmt.Errorf("creating home directory: %w", err)
	}

	keycrypto.SetScryptWorkFactor(cfg.Security.ScryptWorkFactor)
	keycrypto.SetMemoryLock(cfg.Security.MemoryLock)

	drivers, err := openDrivers(cfg)
	if err != nil {
		return nil, err
	}

	return New(storage.NewRegistry(drivers...), Options{
		HandleTTL:     cfg.GetHandleTTL(),
		SweepInterval: cfg.GetSweepInterval(),
		DefaultDriver: cfg.Storage.DefaultDriver,
		Logger:        logger,
	}), nil
}

func openDrivers(cfg *config.Config) ([]storage.Driver, error) {
	drivers := make([]storage.Driver, 0, len(cfg.Storage.Drivers))
	closeAll := func() {
		for _, d := range drivers {
			_ = d.Close()
		}
	}

	for _, name := range cfg.Storage.Drivers {
		var (
			d   storage.Driver
			err error
		)
		switch name {
		case storage.DriverSQLite:
			d, err = storage.NewSQLiteDriver(cfg.GetSQLitePath())
		case storage.DriverFile:
			d, err = storage.NewFileDriver(cfg.GetFileDir())
		case storage.DriverMemory:
			d = storage.NewMemoryDriver()
		default:
			err = custerr.WithDetails(custerr.ErrUnknownDriver, map[string]string{"driver": name})
		}
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("opening %s driver: %w", name, err)
		}
		drivers = append(drivers, d)
	}
	return drivers, nil
}

// Run sweeps expired handles and keeps the open-handle gauge current until
// ctx is done.
func (d *Daemon) Run(ctx context.Context) {
	if d.sweepInterval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(d.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.Sessions.Sweep(); n > 0 {
				d.Logger.Debug("swept %d expired handles", n)
			}
			d.Metrics.SetHandlesOpen(d.Sessions.Count())
		}
	}
}

// Close revokes every handle and closes the storage drivers.
func (d *Daemon) Close() error {
	d.Sessions.Close()
	return d.Registry.Close()
}
