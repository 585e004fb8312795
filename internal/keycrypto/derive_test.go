package keycrypto_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custodian/internal/keycrypto"
)

func TestHKDFDeriver_Deterministic(t *testing.T) {
	t.Parallel()
	mdk := bytes.Repeat([]byte{3}, keycrypto.MasterKeySize)
	d := keycrypto.HKDFDeriver{}

	k1, err := d.Derive(mdk, 0)
	require.NoError(t, err)
	k1again, err := d.Derive(mdk, 0)
	require.NoError(t, err)
	k2, err := d.Derive(mdk, 1)
	require.NoError(t, err)

	assert.Equal(t, k1, k1again)
	assert.NotEqual(t, k1, k2)
}

func TestHKDFDeriver_DifferentMasterKeys(t *testing.T) {
	t.Parallel()
	d := keycrypto.HKDFDeriver{}
	a, err := d.Derive(bytes.Repeat([]byte{1}, 32), 5)
	require.NoError(t, err)
	b, err := d.Derive(bytes.Repeat([]byte{2}, 32), 5)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHKDFDeriver_BadLength(t *testing.T) {
	t.Parallel()
	_, err := keycrypto.HKDFDeriver{}.Derive([]byte{1, 2, 3}, 0)
	require.ErrorIs(t, err, keycrypto.ErrMasterKeySize)
}
