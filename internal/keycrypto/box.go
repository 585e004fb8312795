package keycrypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the size of a master encryption key.
const KeySize = 32

const nonceSize = 24

// Purpose tags what a sealed blob holds so a blob of one kind can never be
// opened as another.
type Purpose byte

// Blob purposes.
const (
	PurposeMasterDerivationKey Purpose = 1
	PurposeKeySeed             Purpose = 2
)

// ErrKeySize is returned when a box key is not KeySize bytes.
var ErrKeySize = errors.New("encryption key must be 32 bytes")

// ErrWrongPurpose is returned when a blob opens but carries another purpose tag.
var ErrWrongPurpose = errors.New("sealed blob has unexpected purpose")

// Seal encrypts plaintext under key with a random nonce. The result is
// nonce || secretbox(purpose || plaintext).
func Seal(plaintext, key []byte, purpose Purpose) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	var k [KeySize]byte
	copy(k[:], key)
	defer ZeroBytes(k[:])

	nonceBytes, err := RandomBytes(nonceSize)
	if err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], nonceBytes)

	msg := make([]byte, 0, len(plaintext)+1)
	msg = append(msg, byte(purpose))
	msg = append(msg, plaintext...)
	defer ZeroBytes(msg)

	return secretbox.Seal(nonce[:], msg, &nonce, &k), nil
}

// Open decrypts a blob produced by Seal and checks its purpose tag.
func Open(blob, key []byte, purpose Purpose) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	if len(blob) < nonceSize+secretbox.Overhead+1 {
		return nil, fmt.Errorf("%w: blob too short", ErrDecrypt)
	}
	var k [KeySize]byte
	copy(k[:], key)
	defer ZeroBytes(k[:])

	var nonce [nonceSize]byte
	copy(nonce[:], blob[:nonceSize])

	msg, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, &k)
	if !ok {
		return nil, ErrDecrypt
	}
	if Purpose(msg[0]) != purpose {
		ZeroBytes(msg)
		return nil, ErrWrongPurpose
	}
	return msg[1:], nil
}
