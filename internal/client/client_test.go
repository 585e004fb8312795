package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custodian/internal/client"
	"github.com/mrz1836/custodian/internal/daemon"
	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/protocol"
	"github.com/mrz1836/custodian/internal/server"
	"github.com/mrz1836/custodian/internal/service/signing"
	"github.com/mrz1836/custodian/internal/storage"
	"github.com/mrz1836/custodian/internal/version"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

func TestMain(m *testing.M) {
	keycrypto.SetScryptWorkFactor(10) // Fast for tests
	os.Exit(m.Run())
}

const (
	testAPIToken = "cust_api_client-token" //nolint:gosec // test fixture
	testPassword = "testpassword"          // gitleaks:allow
)

// newTestClient starts a daemon behind an httptest server and returns a
// client for it.
func newTestClient(t *testing.T) (*client.Client, *httptest.Server) {
	t.Helper()
	d := daemon.New(storage.NewRegistry(storage.NewMemoryDriver()), daemon.Options{
		DefaultDriver: storage.DriverMemory,
	})
	t.Cleanup(func() { _ = d.Close() })

	srv, err := server.New(d, server.Options{APIToken: testAPIToken})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := client.New(client.Config{Endpoint: ts.URL, Token: testAPIToken, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c, ts
}

func openWallet(t *testing.T, c *client.Client, name string) string {
	t.Helper()
	ctx := context.Background()
	w, err := c.CreateWallet(ctx, name, testPassword, "", protocol.MasterDerivationKey{})
	require.NoError(t, err)
	h, err := c.InitHandle(ctx, w.ID, testPassword)
	require.NoError(t, err)
	return h.Handle
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      client.Config
		endpoint string
		wantErr  bool
	}{
		{"bare host", client.Config{Endpoint: "127.0.0.1:7833", Token: "t"}, "http://127.0.0.1:7833", false},
		{"trailing slash", client.Config{Endpoint: "https://kmd.local/", Token: "t"}, "https://kmd.local", false},
		{"empty endpoint", client.Config{Token: "t"}, "", true},
		{"bad scheme", client.Config{Endpoint: "ftp://host", Token: "t"}, "", true},
		{"empty token", client.Config{Endpoint: "localhost:1", Token: "  "}, "", true},
		{"negative timeout", client.Config{Endpoint: "localhost:1", Token: "t", Timeout: -time.Second}, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c, err := client.New(tc.cfg)
			if tc.wantErr {
				require.ErrorIs(t, err, custerr.ErrInvalidClientConfig)
				assert.ErrorIs(t, err, custerr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.endpoint, c.Endpoint())
		})
	}
}

func TestVersionsAndHealth(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t)
	ctx := context.Background()

	v, err := c.Versions(ctx)
	require.NoError(t, err)
	assert.Contains(t, v.Versions, version.APIVersion)
	assert.Equal(t, version.SkewNone, version.CompareBuilds(version.Get(), v.Build))

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}

func TestWalletLifecycle(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t)
	ctx := context.Background()

	var mdk protocol.MasterDerivationKey
	mdk[0], mdk[31] = 1, 2
	w, err := c.CreateWallet(ctx, "alpha", testPassword, "", mdk)
	require.NoError(t, err)
	assert.Equal(t, "alpha", w.Name)

	_, err = c.CreateWallet(ctx, "alpha", testPassword, "", protocol.MasterDerivationKey{})
	require.ErrorIs(t, err, custerr.ErrWalletExists)
	require.ErrorIs(t, err, custerr.ErrConflict)
	assert.Equal(t, custerr.ExitConflict, custerr.ExitCode(err))

	wallets, err := c.ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)

	_, err = c.InitHandle(ctx, w.ID, "nope")
	require.ErrorIs(t, err, custerr.ErrWrongPassword)

	h, err := c.InitHandle(ctx, w.ID, testPassword)
	require.NoError(t, err)
	assert.Positive(t, h.ExpiresInSeconds)

	info, err := c.WalletInfo(ctx, h.Handle)
	require.NoError(t, err)
	assert.Equal(t, w.ID, info.Wallet.ID)

	renewed, err := c.RenewHandle(ctx, h.Handle)
	require.NoError(t, err)
	assert.False(t, renewed.ExpiresAt.Before(h.ExpiresAt))

	exported, err := c.ExportMasterDerivationKey(ctx, h.Handle, testPassword)
	require.NoError(t, err)
	assert.Equal(t, mdk, exported)

	require.NoError(t, c.RenameWallet(ctx, w.ID, testPassword, "beta"))
	info, err = c.WalletInfo(ctx, h.Handle)
	require.NoError(t, err)
	assert.Equal(t, "beta", info.Wallet.Name)

	require.NoError(t, c.ReleaseHandle(ctx, h.Handle))
	require.NoError(t, c.ReleaseHandle(ctx, h.Handle))
	_, err = c.WalletInfo(ctx, h.Handle)
	require.ErrorIs(t, err, custerr.ErrInvalidHandle)
	assert.ErrorIs(t, err, custerr.ErrAuthentication)
}

func TestKeysAndMultisig(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t)
	ctx := context.Background()
	handle := openWallet(t, c, "keys")

	generated, err := c.GenerateKey(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, generated.PublicKey.Address(), generated.Address)

	var seed protocol.Seed
	seed[5] = 42
	imported, err := c.ImportKey(ctx, handle, seed)
	require.NoError(t, err)

	_, err = c.ImportKey(ctx, handle, seed)
	require.ErrorIs(t, err, custerr.ErrKeyExists)

	got, err := c.ExportKey(ctx, handle, testPassword, imported.Address)
	require.NoError(t, err)
	assert.Equal(t, seed, got)

	addrs, err := c.ListKeys(ctx, handle)
	require.NoError(t, err)
	assert.ElementsMatch(t, []protocol.Address{generated.Address, imported.Address}, addrs)

	pks := []protocol.PublicKey{generated.PublicKey, imported.PublicKey}
	msig, err := c.ImportMultisig(ctx, handle, 1, 2, pks)
	require.NoError(t, err)

	_, err = c.ImportMultisig(ctx, handle, 1, 3, pks)
	require.ErrorIs(t, err, custerr.ErrInvalidThreshold)

	pre, err := c.ExportMultisig(ctx, handle, msig)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), pre.Threshold)
	assert.Equal(t, pks, pre.PublicKeys)

	list, err := c.ListMultisig(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, []protocol.Address{msig}, list)

	require.NoError(t, c.DeleteMultisig(ctx, handle, testPassword, msig))
	_, err = c.ExportMultisig(ctx, handle, msig)
	require.ErrorIs(t, err, custerr.ErrMultisigNotFound)

	require.NoError(t, c.DeleteKey(ctx, handle, testPassword, imported.Address))
	_, err = c.ExportKey(ctx, handle, testPassword, imported.Address)
	require.ErrorIs(t, err, custerr.ErrKeyNotFound)
	assert.Equal(t, custerr.ExitNotFound, custerr.ExitCode(err))
}

func TestSigning(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t)
	ctx := context.Background()
	handle := openWallet(t, c, "signer")

	a, err := c.GenerateKey(ctx, handle)
	require.NoError(t, err)
	b, err := c.GenerateKey(ctx, handle)
	require.NoError(t, err)

	var receiver protocol.Address
	receiver[1] = 3
	tx := protocol.Transaction{
		Type:          protocol.PaymentTx,
		Header:        protocol.Header{Sender: a.Address, Fee: 1000, FirstValid: 5, LastValid: 1005},
		PaymentFields: protocol.PaymentFields{Receiver: receiver, Amount: 77},
	}

	stx, err := c.SignTransaction(ctx, handle, testPassword, tx)
	require.NoError(t, err)
	assert.True(t, stx.VerifySingle(a.PublicKey))

	_, err = c.SignTransaction(ctx, handle, "wrong", tx)
	require.ErrorIs(t, err, custerr.ErrWrongPassword)

	msig, err := c.ImportMultisig(ctx, handle, 1, 2, []protocol.PublicKey{a.PublicKey, b.PublicKey})
	require.NoError(t, err)
	mtx := tx
	mtx.Sender = msig

	first, err := c.SignMultisigTransaction(ctx, handle, testPassword, mtx, a.PublicKey, signing.NoPartial())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Msig.SignatureCount())
	assert.False(t, first.Msig.Complete())

	second, err := c.SignMultisigTransaction(ctx, handle, testPassword, mtx, b.PublicKey, signing.PartialFrom(first.Msig))
	require.NoError(t, err)
	assert.True(t, second.Msig.Complete())
	require.NoError(t, second.Msig.Verify(mtx.SigningBytes()))

	var outsider protocol.PublicKey
	outsider[0] = 0xaa
	_, err = c.SignMultisigTransaction(ctx, handle, testPassword, mtx, outsider, signing.NoPartial())
	require.ErrorIs(t, err, custerr.ErrNotMultisigMember)
}

func TestErrorsKeepDetails(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t)

	_, err := c.InitHandle(context.Background(), "no-such-wallet", testPassword)
	require.Error(t, err)

	var ce *custerr.CustodianError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, custerr.KindAuthentication, ce.Kind)
	assert.NotEmpty(t, ce.Message)
}

func TestWrongToken(t *testing.T) {
	t.Parallel()
	_, ts := newTestClient(t)

	c, err := client.New(client.Config{Endpoint: ts.URL, Token: "not-the-token"})
	require.NoError(t, err)

	_, err = c.ListWallets(context.Background())
	require.ErrorIs(t, err, custerr.ErrInvalidAPIKey)
}

func TestTransportError(t *testing.T) {
	t.Parallel()
	_, ts := newTestClient(t)
	endpoint := ts.URL
	ts.Close()

	c, err := client.New(client.Config{Endpoint: endpoint, Token: testAPIToken, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.Health(context.Background())
	require.ErrorIs(t, err, custerr.ErrTransport)
	assert.Equal(t, custerr.ExitTransport, custerr.ExitCode(err))
	assert.NotNil(t, errors.Unwrap(err))
}

func TestContextCanceled(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Versions(ctx)
	require.ErrorIs(t, err, custerr.ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}
