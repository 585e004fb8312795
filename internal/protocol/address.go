// Package protocol defines the custody wire types: addresses, keys,
// transactions, signed transactions and multisig signature bags, together
// with their canonical msgpack encoding.
package protocol

import (
	"bytes"
	"crypto/sha512"
	"encoding/base32"
	"fmt"
	"strings"

	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// DigestSize is the size of addresses and SHA-512/256 digests.
const DigestSize = sha512.Size256

const checksumLength = 4

//nolint:gochecknoglobals // immutable encoder
var base32Encoder = base32.StdEncoding.WithPadding(base32.NoPadding)

// Digest is a SHA-512/256 hash.
type Digest [DigestSize]byte

// IsZero reports whether the digest is all zeros.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Address identifies an account. A single-key address is the public key
// itself; a multisig address is the hash of its preimage.
type Address Digest

// String renders the address as unpadded base32 of address || checksum,
// where the checksum is the last 4 bytes of SHA-512/256(address).
func (a Address) String() string {
	sum := sha512.Sum512_256(a[:])
	buf := make([]byte, 0, DigestSize+checksumLength)
	buf = append(buf, a[:]...)
	buf = append(buf, sum[DigestSize-checksumLength:]...)
	return base32Encoder.EncodeToString(buf)
}

// IsZero reports whether the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes and checksums a base32 address string.
func ParseAddress(s string) (Address, error) {
	var a Address
	decoded, err := base32Encoder.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return a, custerr.WithDetails(custerr.ErrInvalidAddress, map[string]string{"address": s})
	}
	if len(decoded) != DigestSize+checksumLength {
		return a, custerr.WithDetails(custerr.ErrInvalidAddress, map[string]string{
			"address": s,
			"length":  fmt.Sprintf("%d", len(decoded)),
		})
	}
	copy(a[:], decoded[:DigestSize])
	sum := sha512.Sum512_256(a[:])
	if !bytes.Equal(sum[DigestSize-checksumLength:], decoded[DigestSize:]) {
		return Address{}, custerr.WithDetails(custerr.ErrInvalidChecksum, map[string]string{"address": s})
	}
	return a, nil
}
