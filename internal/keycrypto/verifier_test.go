package keycrypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custodian/internal/keycrypto"
)

func TestPasswordVerifier(t *testing.T) {
	t.Parallel()
	v, err := keycrypto.NewPasswordVerifier([]byte("testpassword"))
	require.NoError(t, err)

	assert.True(t, v.Verify([]byte("testpassword")))
	assert.False(t, v.Verify([]byte("testpassworD")))
	assert.False(t, v.Verify(nil))

	var nilVerifier *keycrypto.PasswordVerifier
	assert.False(t, nilVerifier.Verify([]byte("testpassword")))
}

func TestPasswordVerifier_Salted(t *testing.T) {
	t.Parallel()
	a, err := keycrypto.NewPasswordVerifier([]byte("pw"))
	require.NoError(t, err)
	b, err := keycrypto.NewPasswordVerifier([]byte("pw"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
