package mnemonic_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custodian/internal/mnemonic"
	"github.com/mrz1836/custodian/internal/protocol"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// The all-zero 256-bit entropy vector from the BIP39 reference tests.
const zeroPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon abandon abandon art"

func TestFromKey_ZeroVector(t *testing.T) {
	t.Parallel()
	phrase, err := mnemonic.FromKey(protocol.MasterDerivationKey{})
	require.NoError(t, err)
	assert.Equal(t, zeroPhrase, phrase)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	var mdk protocol.MasterDerivationKey
	for i := range mdk {
		mdk[i] = byte(i * 7)
	}

	phrase, err := mnemonic.FromKey(mdk)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(phrase), mnemonic.WordCount)

	got, err := mnemonic.ToKey(phrase)
	require.NoError(t, err)
	assert.Equal(t, mdk, got)
}

func TestToKey_TolerantInput(t *testing.T) {
	t.Parallel()
	words := strings.Fields(zeroPhrase)
	var numbered strings.Builder
	for i, w := range words {
		fmt.Fprintf(&numbered, "%d. %s\n", i+1, strings.ToUpper(w))
	}

	got, err := mnemonic.ToKey(numbered.String())
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = mnemonic.ToKey(strings.Join(words, ", "))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestToKey_Errors(t *testing.T) {
	t.Parallel()

	t.Run("word count", func(t *testing.T) {
		t.Parallel()
		_, err := mnemonic.ToKey("abandon abandon art")
		require.ErrorIs(t, err, custerr.ErrInvalidMnemonic)
		require.ErrorIs(t, err, custerr.ErrValidation)
	})

	t.Run("typo gets suggestion", func(t *testing.T) {
		t.Parallel()
		_, err := mnemonic.ToKey(strings.Replace(zeroPhrase, "art", "arx", 1))
		require.ErrorIs(t, err, custerr.ErrInvalidMnemonic)
		var ce *custerr.CustodianError
		require.ErrorAs(t, err, &ce)
		assert.Contains(t, ce.Suggestion, "word 24")
	})

	t.Run("bad checksum", func(t *testing.T) {
		t.Parallel()
		_, err := mnemonic.ToKey(strings.Replace(zeroPhrase, " art", " zoo", 1))
		require.ErrorIs(t, err, custerr.ErrInvalidMnemonic)
	})
}

func TestSuggestWord(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abandon", mnemonic.SuggestWord("abandon"))
	assert.Equal(t, "abandon", mnemonic.SuggestWord("abandn"))
	assert.Empty(t, mnemonic.SuggestWord("qqqqqqqqqq"))
}

func TestDetectTypos(t *testing.T) {
	t.Parallel()
	typos := mnemonic.DetectTypos("abandon abandn qqqqqqqqqq")
	require.Len(t, typos, 2)
	assert.Equal(t, 1, typos[0].Index)
	assert.Equal(t, "abandon", typos[0].Suggestion)
	assert.Empty(t, typos[1].Suggestion)

	assert.Equal(t,
		"word 2: 'abandn', did you mean 'abandon'?\nword 3: 'qqqqqqqqqq' is not a BIP39 word",
		mnemonic.FormatTypoSuggestions(typos))
	assert.Empty(t, mnemonic.DetectTypos(zeroPhrase))
}

func TestIsValidWord(t *testing.T) {
	t.Parallel()
	assert.True(t, mnemonic.IsValidWord("zoo"))
	assert.True(t, mnemonic.IsValidWord("ZOO"))
	assert.False(t, mnemonic.IsValidWord("zooo"))
}
