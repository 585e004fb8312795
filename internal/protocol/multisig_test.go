package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custodian/internal/protocol"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

func TestMultisigAddress_Deterministic(t *testing.T) {
	t.Parallel()
	_, a := testKey(0)
	_, b := testKey(1)

	first, err := protocol.MultisigAddress(1, 1, []protocol.PublicKey{a, b})
	require.NoError(t, err)
	second, err := protocol.MultisigAddress(1, 1, []protocol.PublicKey{a, b})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	swapped, err := protocol.MultisigAddress(1, 1, []protocol.PublicKey{b, a})
	require.NoError(t, err)
	assert.NotEqual(t, first, swapped, "member order is part of the identity")

	higher, err := protocol.MultisigAddress(1, 2, []protocol.PublicKey{a, b})
	require.NoError(t, err)
	assert.NotEqual(t, first, higher)
}

func TestValidateMultisig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		version   uint8
		threshold uint8
		n         int
		want      error
	}{
		{"ok", 1, 2, 3, nil},
		{"threshold equals keys", 1, 3, 3, nil},
		{"zero threshold", 1, 0, 3, custerr.ErrInvalidThreshold},
		{"threshold above keys", 1, 4, 3, custerr.ErrInvalidThreshold},
		{"no keys", 1, 1, 0, custerr.ErrInvalidThreshold},
		{"version zero", 0, 1, 2, custerr.ErrUnsupportedVersion},
		{"version two", 2, 1, 2, custerr.ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := protocol.ValidateMultisig(tt.version, tt.threshold, tt.n)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, custerr.ErrValidation)
		})
	}
}

func signedBags(t *testing.T) (protocol.MultisigSig, protocol.MultisigSig, []byte) {
	t.Helper()
	skA, a := testKey(10)
	skB, b := testKey(11)
	_, c := testKey(12)

	blank, err := protocol.NewMultisigSig(1, 2, []protocol.PublicKey{a, b, c})
	require.NoError(t, err)
	addr, err := blank.Address()
	require.NoError(t, err)
	msg := testPayment(addr).SigningBytes()

	bagA, err := blank.Sign(skA, msg)
	require.NoError(t, err)
	bagB, err := blank.Sign(skB, msg)
	require.NoError(t, err)
	return bagA, bagB, msg
}

func TestMergeMultisig_Commutative(t *testing.T) {
	t.Parallel()
	bagA, bagB, msg := signedBags(t)

	ab, err := protocol.MergeMultisig(bagA, bagB)
	require.NoError(t, err)
	ba, err := protocol.MergeMultisig(bagB, bagA)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	assert.Equal(t, 2, ab.SignatureCount())
	assert.True(t, ab.Complete())
	require.NoError(t, ab.Verify(msg))
}

func TestMergeMultisig_Idempotent(t *testing.T) {
	t.Parallel()
	bagA, bagB, _ := signedBags(t)

	once, err := protocol.MergeMultisig(bagA, bagB)
	require.NoError(t, err)
	twice, err := protocol.MergeMultisig(once, bagB)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	self, err := protocol.MergeMultisig(bagA, bagA)
	require.NoError(t, err)
	assert.Equal(t, bagA, self)
}

func TestMergeMultisig_SlotConflict(t *testing.T) {
	t.Parallel()
	bagA, _, _ := signedBags(t)

	forged := bagA.Clone()
	forged.Subsigs[0].Sig[0] ^= 0xff

	_, err := protocol.MergeMultisig(bagA, forged)
	require.ErrorIs(t, err, custerr.ErrSlotConflict)
	require.ErrorIs(t, err, custerr.ErrConflict)
}

func TestMergeMultisig_DifferentAccounts(t *testing.T) {
	t.Parallel()
	bagA, _, _ := signedBags(t)
	other := bagA.Clone()
	other.Threshold = 3

	_, err := protocol.MergeMultisig(bagA, other)
	require.ErrorIs(t, err, custerr.ErrPartialMismatch)
}

func TestMultisigSig_SignNonMember(t *testing.T) {
	t.Parallel()
	bagA, _, msg := signedBags(t)
	outsider, _ := testKey(99)

	_, err := bagA.Sign(outsider, msg)
	require.ErrorIs(t, err, custerr.ErrNotMultisigMember)
}

func TestMultisigSig_VerifyRejectsBadSlot(t *testing.T) {
	t.Parallel()
	bagA, _, msg := signedBags(t)
	bad := bagA.Clone()
	bad.Subsigs[0].Sig[5] ^= 0x01

	require.ErrorIs(t, bad.Verify(msg), custerr.ErrInvalidSignature)
	assert.Equal(t, []protocol.Slot{{Index: 0, Signature: bagA.Subsigs[0].Sig}}, bagA.Slots())
	assert.False(t, bagA.Complete())
}

func TestSignedTxn_MultisigEncoding(t *testing.T) {
	t.Parallel()
	bagA, _, _ := signedBags(t)
	addr, err := bagA.Address()
	require.NoError(t, err)

	stx := protocol.SignedTxn{Msig: bagA, Txn: testPayment(addr)}
	decoded, err := protocol.DecodeSignedTxn(stx.Encode())
	require.NoError(t, err)
	assert.Equal(t, bagA.PublicKeys(), decoded.Msig.PublicKeys())
	assert.Equal(t, bagA.Slots(), decoded.Msig.Slots())
	assert.True(t, decoded.Sig.Blank())
}

func TestDecodeMultisigSig(t *testing.T) {
	t.Parallel()
	bagA, _, msg := signedBags(t)

	decoded, err := protocol.DecodeMultisigSig(bagA.Encode())
	require.NoError(t, err)
	assert.True(t, decoded.SamePreimage(bagA))
	assert.Equal(t, bagA.Slots(), decoded.Slots())
	require.NoError(t, decoded.Verify(msg))

	_, err = protocol.DecodeMultisigSig([]byte{0xc1})
	require.ErrorIs(t, err, custerr.ErrInvalidInput)
}
