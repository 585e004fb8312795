package keycrypto

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MasterKeySize is the size of a master derivation key.
const MasterKeySize = 32

// ErrMasterKeySize is returned when a master derivation key has the wrong length.
var ErrMasterKeySize = errors.New("master derivation key must be 32 bytes")

// Deriver turns a wallet master derivation key and an index into a signing key.
// Implementations must be deterministic.
type Deriver interface {
	Derive(mdk []byte, index uint64) (ed25519.PrivateKey, error)
}

// HKDFDeriver derives ed25519 seeds with HKDF-SHA512 keyed by the master
// derivation key, using the big-endian index as context.
type HKDFDeriver struct{}

const deriveInfoPrefix = "custodian/ed25519/v1"

// Derive implements Deriver.
func (HKDFDeriver) Derive(mdk []byte, index uint64) (ed25519.PrivateKey, error) {
	if len(mdk) != MasterKeySize {
		return nil, ErrMasterKeySize
	}

	info := make([]byte, len(deriveInfoPrefix)+8)
	copy(info, deriveInfoPrefix)
	binary.BigEndian.PutUint64(info[len(deriveInfoPrefix):], index)

	seed := make([]byte, ed25519.SeedSize)
	defer ZeroBytes(seed)
	if _, err := io.ReadFull(hkdf.New(sha512.New, mdk, nil, info), seed); err != nil {
		return nil, fmt.Errorf("deriving key %d: %w", index, err)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
