// Package token mints and parses the bearer tokens used by the daemon:
// wallet handle tokens and the API token guarding the HTTP surface.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mrz1836/custodian/internal/keycrypto"
)

// Token prefixes.
const (
	HandlePrefix = "cust_hdl_" //nolint:gosec // G101: format prefix, not a credential
	APIPrefix    = "cust_api_" //nolint:gosec // G101: format prefix, not a credential
)

// rawLength is the number of random bytes in a token.
const rawLength = 32

// idLength is the number of hex chars of SHA-256(token) used as a log-safe ID.
const idLength = 12

// Sentinel errors for token validation.
var (
	ErrTooShort  = errors.New("token too short")
	ErrBadPrefix = errors.New("invalid token prefix")
	ErrBadLength = errors.New("invalid token length")
)

// Generate returns prefix followed by 32 random bytes in unpadded base64url.
func Generate(prefix string) (string, error) {
	raw, err := keycrypto.RandomBytes(rawLength)
	if err != nil {
		return "", fmt.Errorf("generating random token: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// Parse validates a token's prefix and length and returns its raw bytes.
func Parse(prefix, tok string) ([]byte, error) {
	if len(tok) <= len(prefix) {
		return nil, ErrTooShort
	}
	if tok[:len(prefix)] != prefix {
		return nil, fmt.Errorf("%w: expected %q", ErrBadPrefix, prefix)
	}

	raw, err := base64.RawURLEncoding.DecodeString(tok[len(prefix):])
	if err != nil {
		return nil, fmt.Errorf("invalid token encoding: %w", err)
	}
	if len(raw) != rawLength {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBadLength, len(raw), rawLength)
	}
	return raw, nil
}

// ID derives a short identifier that is safe to log.
func ID(tok string) string {
	h := sha256.Sum256([]byte(tok))
	return "tok_" + hex.EncodeToString(h[:])[:idLength]
}

// Equal compares two tokens in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
