// Package keycrypto provides the cryptographic primitives behind wallet
// custody: password encryption of the master encryption key, authenticated
// boxes for key material, index derivation, and locked secret memory.
package keycrypto

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"filippo.io/age"
)

// ErrDecrypt is returned when ciphertext cannot be opened with the given
// password or key.
var ErrDecrypt = errors.New("decryption failed")

// scryptWorkFactor is the log2 scrypt work factor used for new ciphertexts.
// Zero means the age default.
//
//nolint:gochecknoglobals // Tunable for tests and low-power hosts
var scryptWorkFactor atomic.Int32

// SetScryptWorkFactor sets the scrypt work factor (log2 N) used by Encrypt.
// Passing zero restores the age default.
func SetScryptWorkFactor(logN int) {
	scryptWorkFactor.Store(int32(logN)) //nolint:gosec // small bounded value
}

// Encrypt encrypts plaintext using age with a password-based recipient.
func Encrypt(plaintext []byte, password string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if logN := int(scryptWorkFactor.Load()); logN > 0 {
		recipient.SetWorkFactor(logN)
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}

	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}

	return buf.Bytes(), nil
}

// Decrypt decrypts ciphertext using age with a password-based identity.
// Any failure to unwrap the file key is reported as ErrDecrypt.
func Decrypt(ciphertext []byte, password string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading decrypted data: %w", ErrDecrypt, err)
	}

	return plaintext, nil
}

// DecryptSecure decrypts ciphertext into SecureBytes.
func DecryptSecure(ciphertext []byte, password string) (*SecureBytes, error) {
	plaintext, err := Decrypt(ciphertext, password)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(plaintext)

	return SecureBytesFromSlice(plaintext)
}
