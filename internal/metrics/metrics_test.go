package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custerr "github.com/mrz1836/custodian/pkg/errors"
)

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordRequest(http.MethodPost, "/v1/key", http.StatusOK, 100*time.Millisecond)
	m.RecordRequest(http.MethodPost, "/v1/key", http.StatusUnauthorized, 50*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.RequestsTotal)
	assert.Equal(t, int64(1), snap.RequestErrors)
	assert.InDelta(t, 75.0, m.RequestLatencyAvgMs(), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/v1/key", "401")), 0)
}

func TestMetrics_RequestLatencyAvgMs_NoRequests(t *testing.T) {
	t.Parallel()
	assert.Zero(t, New().RequestLatencyAvgMs())
}

func TestMetrics_RecordWalletOp(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordWalletOp("key.generate", nil)
	m.RecordWalletOp("key.export", custerr.ErrWrongPassword)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.WalletOpsTotal)
	assert.Equal(t, int64(1), snap.WalletOpsErrors)
	assert.InDelta(t, 1, testutil.ToFloat64(m.walletOps.WithLabelValues("key.export", "AUTHENTICATION_FAILED")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.walletOps.WithLabelValues("key.generate", "ok")), 0)
}

func TestMetrics_HandlesAndSignatures(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordHandleOp("init", nil)
	m.RecordHandleOp("renew", custerr.ErrInvalidHandle)
	m.RecordSignature(SignatureSingle, nil)
	m.RecordSignature(SignatureMultisig, custerr.ErrSlotConflict)
	m.SetHandlesOpen(3)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.HandleOpsTotal)
	assert.Equal(t, int64(1), snap.SignaturesTotal)
	assert.InDelta(t, 3, testutil.ToFloat64(m.handlesOpen), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.signatures.WithLabelValues(SignatureMultisig, "CONFLICT")), 0)
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()
	m := New()
	m.RecordWalletOp("wallet.create", nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL) //nolint:noctx // test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `custodian_wallet_operations_total{op="wallet.create",result="ok"} 1`))
	assert.Contains(t, string(body), "custodian_handles_open")
}
