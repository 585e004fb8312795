package protocol

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// PublicKey is an ed25519 public key.
type PublicKey [ed25519.PublicKeySize]byte

// Signature is an ed25519 signature.
type Signature [ed25519.SignatureSize]byte

// Seed is the 32-byte ed25519 private key seed used for import and export.
type Seed [ed25519.SeedSize]byte

// MasterDerivationKey is the wallet root from which generated keys derive.
type MasterDerivationKey [32]byte

// Address returns the single-key address of the public key.
func (pk PublicKey) Address() Address {
	return Address(pk)
}

// MarshalText renders the key as standard base64.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(pk[:])), nil
}

// UnmarshalText parses a standard base64 key.
func (pk *PublicKey) UnmarshalText(text []byte) error {
	b, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return custerr.WithDetails(custerr.ErrInvalidPublicKey, map[string]string{"encoding": "base64"})
	}
	parsed, err := PublicKeyFromBytes(b)
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// Blank reports whether no signature is present.
func (s Signature) Blank() bool {
	return s == Signature{}
}

// IsZero reports whether the master derivation key is all zeros.
func (m MasterDerivationKey) IsZero() bool {
	return m == MasterDerivationKey{}
}

// PublicKeyFromBytes copies b into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != len(pk) {
		return pk, custerr.WithDetails(custerr.ErrInvalidPublicKey, map[string]string{"length": fmt.Sprintf("%d", len(b))})
	}
	copy(pk[:], b)
	return pk, nil
}

// SignatureFromBytes copies b into a Signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != len(sig) {
		return sig, custerr.WithDetails(custerr.ErrInvalidSignature, map[string]string{"length": fmt.Sprintf("%d", len(b))})
	}
	copy(sig[:], b)
	return sig, nil
}

// SeedFromBytes copies b into a Seed.
func SeedFromBytes(b []byte) (Seed, error) {
	var s Seed
	if len(b) != len(s) {
		return s, custerr.WithDetails(custerr.ErrInvalidSeed, map[string]string{"length": fmt.Sprintf("%d", len(b))})
	}
	copy(s[:], b)
	return s, nil
}

// MasterDerivationKeyFromBytes copies b into a MasterDerivationKey.
// An empty slice yields the zero key.
func MasterDerivationKeyFromBytes(b []byte) (MasterDerivationKey, error) {
	var m MasterDerivationKey
	if len(b) == 0 {
		return m, nil
	}
	if len(b) != len(m) {
		return m, custerr.WithDetails(custerr.ErrInvalidSeed, map[string]string{"length": fmt.Sprintf("%d", len(b))})
	}
	copy(m[:], b)
	return m, nil
}

// KeyFromSeed expands a seed into its private and public keys.
func KeyFromSeed(seed Seed) (ed25519.PrivateKey, PublicKey) {
	sk := ed25519.NewKeyFromSeed(seed[:])
	var pk PublicKey
	copy(pk[:], sk.Public().(ed25519.PublicKey))
	return sk, pk
}

// PublicKeyOf returns the public key of an ed25519 private key.
func PublicKeyOf(sk ed25519.PrivateKey) PublicKey {
	var pk PublicKey
	copy(pk[:], sk.Public().(ed25519.PublicKey))
	return pk
}

// SeedOf returns the seed of an ed25519 private key.
func SeedOf(sk ed25519.PrivateKey) Seed {
	var s Seed
	copy(s[:], sk.Seed())
	return s
}
