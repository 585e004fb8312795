package keycrypto

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const verifierSaltSize = 16

// PasswordVerifier checks a password against a salted keyed hash without
// keeping the password itself. It is held by open handles so sensitive
// operations can re-check the password without another scrypt round.
type PasswordVerifier struct {
	salt [verifierSaltSize]byte
	sum  [blake2b.Size256]byte
}

// NewPasswordVerifier hashes password under a fresh random salt.
func NewPasswordVerifier(password []byte) (*PasswordVerifier, error) {
	salt, err := RandomBytes(verifierSaltSize)
	if err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	v := &PasswordVerifier{}
	copy(v.salt[:], salt)
	sum, err := v.hash(password)
	if err != nil {
		return nil, err
	}
	v.sum = sum
	return v, nil
}

// Verify reports whether password matches, in constant time.
func (v *PasswordVerifier) Verify(password []byte) bool {
	if v == nil {
		return false
	}
	sum, err := v.hash(password)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(sum[:], v.sum[:]) == 1
}

func (v *PasswordVerifier) hash(password []byte) ([blake2b.Size256]byte, error) {
	var out [blake2b.Size256]byte
	h, err := blake2b.New256(v.salt[:])
	if err != nil {
		return out, fmt.Errorf("initializing verifier: %w", err)
	}
	_, _ = h.Write(password)
	copy(out[:], h.Sum(nil))
	return out, nil
}
