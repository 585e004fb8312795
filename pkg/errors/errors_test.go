package errors_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custerr "github.com/mrz1836/custodian/pkg/errors"
)

var (
	errInner     = errors.New("inner")
	errRootCause = errors.New("root cause")
	errPlain     = errors.New("plain error")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, custerr.ExitSuccess},
		{"general error", custerr.ErrGeneral, custerr.ExitGeneral},
		{"validation error", custerr.ErrInvalidThreshold, custerr.ExitInput},
		{"auth error", custerr.ErrWrongPassword, custerr.ExitAuth},
		{"not found error", custerr.ErrKeyNotFound, custerr.ExitNotFound},
		{"conflict error", custerr.ErrSlotConflict, custerr.ExitConflict},
		{"transport error", custerr.ErrTransport, custerr.ExitTransport},
		{"plain error", errPlain, custerr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, custerr.ExitCode(tt.err))
		})
	}
}

func TestKindMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		kind   error
		others []error
	}{
		{"wrong password", custerr.ErrWrongPassword, custerr.ErrAuthentication, []error{custerr.ErrNotFound, custerr.ErrInvalidHandle}},
		{"invalid handle", custerr.ErrInvalidHandle, custerr.ErrAuthentication, []error{custerr.ErrWrongPassword}},
		{"wallet missing", custerr.ErrWalletNotFound, custerr.ErrNotFound, []error{custerr.ErrKeyNotFound}},
		{"threshold", custerr.ErrInvalidThreshold, custerr.ErrValidation, []error{custerr.ErrConflict}},
		{"slot conflict", custerr.ErrSlotConflict, custerr.ErrConflict, []error{custerr.ErrWalletExists}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := custerr.Wrap(tt.err, "context")
			require.ErrorIs(t, wrapped, tt.err)
			require.ErrorIs(t, wrapped, tt.kind)
			for _, other := range tt.others {
				assert.NotErrorIs(t, wrapped, other)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()
	assert.Equal(t, http.StatusOK, custerr.HTTPStatus(nil))
	assert.Equal(t, http.StatusUnauthorized, custerr.HTTPStatus(custerr.ErrInvalidHandle))
	assert.Equal(t, http.StatusNotFound, custerr.HTTPStatus(custerr.ErrMultisigNotFound))
	assert.Equal(t, http.StatusBadRequest, custerr.HTTPStatus(custerr.ErrUnsupportedVersion))
	assert.Equal(t, http.StatusConflict, custerr.HTTPStatus(custerr.ErrWalletExists))
	assert.Equal(t, http.StatusBadGateway, custerr.HTTPStatus(custerr.ErrTransport))
	assert.Equal(t, http.StatusInternalServerError, custerr.HTTPStatus(errPlain))
}

func TestFromWire(t *testing.T) {
	t.Parallel()

	err := custerr.FromWire("CONFLICT", "WALLET_EXISTS", "a wallet with this name already exists")
	require.ErrorIs(t, err, custerr.ErrWalletExists)
	require.ErrorIs(t, err, custerr.ErrConflict)
	assert.Equal(t, custerr.ExitConflict, err.ExitCode)

	unknown := custerr.FromWire("SOMETHING_ELSE", "", "boom")
	assert.Equal(t, custerr.KindGeneral, unknown.Kind)
	assert.Equal(t, "GENERAL_ERROR", unknown.Code)
}

func TestWrapPlainError(t *testing.T) {
	t.Parallel()
	wrapped := custerr.Wrap(errRootCause, "loading %s", "wallet")
	require.ErrorIs(t, wrapped, errRootCause)
	assert.Equal(t, "loading wallet: root cause", wrapped.Error())
	assert.Equal(t, custerr.KindGeneral, custerr.KindOf(wrapped))
	assert.NoError(t, custerr.Wrap(nil, "ignored"))
}

func TestWithDetailsAndSuggestion(t *testing.T) {
	t.Parallel()

	err := custerr.WithDetails(custerr.ErrKeyNotFound, map[string]string{"wallet": "main", "address": "ABC"})
	assert.Equal(t, "key not found in wallet (address: ABC) (wallet: main)", err.Error())

	err = custerr.WithSuggestion(err, "run 'custodian key list'")
	var ce *custerr.CustodianError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "run 'custodian key list'", ce.Suggestion)
	assert.Len(t, ce.Details, 2)

	plain := custerr.WithDetails(errInner, map[string]string{"k": "v"})
	require.ErrorIs(t, plain, errInner)
	assert.Equal(t, "GENERAL_ERROR", custerr.Code(plain))
}

func TestCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "KEY_NOT_FOUND", custerr.Code(custerr.Wrap(custerr.ErrKeyNotFound, "x")))
	assert.Equal(t, "GENERAL_ERROR", custerr.Code(errPlain))
}
