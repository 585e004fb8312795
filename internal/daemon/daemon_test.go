package daemon_test

import (
	"context"
	"crypto/ed25519"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custodian/internal/config"
	"github.com/mrz1836/custodian/internal/daemon"
	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/protocol"
	"github.com/mrz1836/custodian/internal/service/multisig"
	"github.com/mrz1836/custodian/internal/service/signing"
	"github.com/mrz1836/custodian/internal/service/wallet"
	"github.com/mrz1836/custodian/internal/storage"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

func TestMain(m *testing.M) {
	keycrypto.SetScryptWorkFactor(10) // Fast for tests
	os.Exit(m.Run())
}

const testPassword = "testpassword" // gitleaks:allow

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Home = t.TempDir()
	cfg.Security.ScryptWorkFactor = 10
	cfg.Security.MemoryLock = false
	return cfg
}

func openDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d, err := daemon.Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func zeroSeed() protocol.Seed {
	return protocol.Seed{}
}

func onesKey() protocol.PublicKey {
	var pk protocol.PublicKey
	for i := range pk {
		pk[i] = 1
	}
	return pk
}

// Wallet lifecycle: create with the sqlite driver and a zero master
// derivation key, then init, renew, inspect and release a handle.
func TestScenarioWalletLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := openDaemon(t, testConfig(t))

	created, err := d.Wallets.Create(ctx, wallet.CreateRequest{
		Name:     "unitwallet",
		Password: []byte(testPassword),
		Driver:   storage.DriverSQLite,
	})
	require.NoError(t, err)
	assert.Equal(t, storage.DriverSQLite, created.Driver)

	s, err := d.Sessions.Init(ctx, created.ID, []byte(testPassword))
	require.NoError(t, err)
	assert.Equal(t, created.ID, s.WalletID)

	renewed, err := d.Sessions.Renew(s.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, renewed.WalletID)

	info, err := d.Wallets.Info(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, "unitwallet", info.Wallet.Name)

	wallets, err := d.Wallets.List(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)

	require.NoError(t, d.Sessions.Release(s.Token))
	require.NoError(t, d.Sessions.Release(s.Token))
	_, err = d.Wallets.Info(ctx, s.Token)
	require.ErrorIs(t, err, custerr.ErrAuthentication)
}

// Multisig import preserves key order and a zero seed imports and exports
// unchanged.
func TestScenarioImportExport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := openDaemon(t, testConfig(t))

	created, err := d.Wallets.Create(ctx, wallet.CreateRequest{Name: "w", Password: []byte(testPassword)})
	require.NoError(t, err)
	s, err := d.Sessions.Init(ctx, created.ID, []byte(testPassword))
	require.NoError(t, err)

	k, err := d.Keys.Import(ctx, s.Token, zeroSeed())
	require.NoError(t, err)
	seed, err := d.Keys.Export(ctx, s.Token, []byte(testPassword), k.Address)
	require.NoError(t, err)
	assert.Equal(t, zeroSeed(), seed)

	pks := []protocol.PublicKey{{}, onesKey()}
	addr, err := d.Multisigs.Import(ctx, s.Token, multisig.Preimage{Version: 1, Threshold: 1, PublicKeys: pks})
	require.NoError(t, err)

	pre, err := d.Multisigs.Export(ctx, s.Token, addr)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), pre.Version)
	assert.Equal(t, uint8(1), pre.Threshold)
	assert.Equal(t, pks, pre.PublicKeys)
}

// Single and multisig signing with keys held by the wallet.
func TestScenarioSigning(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := openDaemon(t, testConfig(t))

	created, err := d.Wallets.Create(ctx, wallet.CreateRequest{Name: "signer", Password: []byte(testPassword)})
	require.NoError(t, err)
	s, err := d.Sessions.Init(ctx, created.ID, []byte(testPassword))
	require.NoError(t, err)

	k, err := d.Keys.Import(ctx, s.Token, zeroSeed())
	require.NoError(t, err)

	var receiver protocol.Address
	receiver[0] = 0x42
	tx := protocol.Transaction{
		Type: protocol.PaymentTx,
		Header: protocol.Header{
			Sender:     k.Address,
			Fee:        1000,
			FirstValid: 12326444,
			LastValid:  12327444,
			GenesisID:  "testnet-v1.0",
		},
		PaymentFields: protocol.PaymentFields{Receiver: receiver, Amount: 200000},
	}

	stx, err := d.Signer.Sign(ctx, s.Token, []byte(testPassword), tx)
	require.NoError(t, err)
	assert.True(t, stx.VerifySingle(k.PublicKey))

	pks := []protocol.PublicKey{k.PublicKey, onesKey()}
	maddr, err := d.Multisigs.Import(ctx, s.Token, multisig.Preimage{Version: 1, Threshold: 1, PublicKeys: pks})
	require.NoError(t, err)

	mtx := tx
	mtx.Sender = maddr
	signed, err := d.Signer.SignMultisig(ctx, s.Token, []byte(testPassword), mtx, k.PublicKey, signing.NoPartial())
	require.NoError(t, err)
	assert.Equal(t, 1, signed.Msig.SignatureCount())
	assert.True(t, signed.Msig.Complete())
	require.NoError(t, signed.Msig.Verify(mtx.SigningBytes()))
	assert.True(t, ed25519.Verify(k.PublicKey[:], mtx.SigningBytes(), signed.Msig.Subsigs[0].Sig[:]))
}

func TestOpenPersistsAcrossRestarts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testConfig(t)

	d, err := daemon.Open(cfg, nil)
	require.NoError(t, err)
	created, err := d.Wallets.Create(ctx, wallet.CreateRequest{Name: "durable", Password: []byte(testPassword)})
	require.NoError(t, err)
	s, err := d.Sessions.Init(ctx, created.ID, []byte(testPassword))
	require.NoError(t, err)
	generated, err := d.Keys.Generate(ctx, s.Token)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	reopened := openDaemon(t, cfg)
	_, err = reopened.Wallets.Info(ctx, s.Token)
	require.ErrorIs(t, err, custerr.ErrInvalidHandle, "handles do not survive a restart")

	s2, err := reopened.Sessions.Init(ctx, created.ID, []byte(testPassword))
	require.NoError(t, err)
	keys, err := reopened.Keys.List(ctx, s2.Token)
	require.NoError(t, err)
	assert.Equal(t, []protocol.Address{generated.Address}, keys)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Storage.Drivers = []string{"sqlite", "leveldb"}

	_, err := daemon.Open(cfg, nil)
	require.ErrorIs(t, err, custerr.ErrUnknownDriver)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Storage.DefaultDriver = "memory"
	cfg.Storage.Drivers = []string{"file"}

	_, err := daemon.Open(cfg, nil)
	require.ErrorIs(t, err, custerr.ErrUnknownDriver)
}

func TestHandleExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	d := daemon.New(storage.NewRegistry(storage.NewMemoryDriver()), daemon.Options{
		HandleTTL:     time.Minute,
		DefaultDriver: storage.DriverMemory,
		Now:           clock.Now,
	})
	t.Cleanup(func() { _ = d.Close() })

	created, err := d.Wallets.Create(ctx, wallet.CreateRequest{Name: "short", Password: []byte(testPassword)})
	require.NoError(t, err)
	s, err := d.Sessions.Init(ctx, created.ID, []byte(testPassword))
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = d.Keys.List(ctx, s.Token)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = d.Keys.List(ctx, s.Token)
	require.ErrorIs(t, err, custerr.ErrInvalidHandle)
	assert.Equal(t, 1, d.Sessions.Sweep())
	assert.Equal(t, 0, d.Sessions.Count())
}

func TestRunSweepsExpiredHandles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	d := daemon.New(storage.NewRegistry(storage.NewMemoryDriver()), daemon.Options{
		HandleTTL:     time.Minute,
		SweepInterval: 5 * time.Millisecond,
		DefaultDriver: storage.DriverMemory,
		Now:           clock.Now,
	})
	t.Cleanup(func() { _ = d.Close() })

	created, err := d.Wallets.Create(ctx, wallet.CreateRequest{Name: "swept", Password: []byte(testPassword)})
	require.NoError(t, err)
	_, err = d.Sessions.Init(ctx, created.ID, []byte(testPassword))
	require.NoError(t, err)
	require.Equal(t, 1, d.Sessions.Count())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		d.Run(runCtx)
		close(done)
	}()

	clock.Advance(2 * time.Minute)
	assert.Eventually(t, func() bool { return d.Sessions.Count() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
