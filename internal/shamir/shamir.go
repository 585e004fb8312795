// Package shamir splits a wallet's master derivation key into k-of-n shares
// and recombines them. Each share carries the threshold and its x-coordinate;
// a checksum of the key is split along with it so a wrong or tampered share
// set is detected on recombination.
package shamir

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/protocol"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// SharePrefix starts every share string.
const SharePrefix = "cmdk-v1"

const (
	checksumSize = 4
	secretSize   = len(protocol.MasterDerivationKey{}) + checksumSize
	maxShares    = 255
)

func invalid(reason string) error {
	return custerr.WithDetails(custerr.ErrInvalidShare, map[string]string{"reason": reason})
}

func checksum(mdk protocol.MasterDerivationKey) []byte {
	sum := sha512.Sum512_256(mdk[:])
	return sum[:checksumSize]
}

// Split returns n shares of mdk, any k of which recombine to it.
func Split(mdk protocol.MasterDerivationKey, n, k int) ([]string, error) {
	switch {
	case k < 2:
		return nil, invalid("threshold must be at least 2")
	case n < k:
		return nil, invalid("share count must be at least the threshold")
	case n > maxShares:
		return nil, invalid(fmt.Sprintf("share count cannot exceed %d", maxShares))
	}

	secret := make([]byte, 0, secretSize)
	secret = append(secret, mdk[:]...)
	secret = append(secret, checksum(mdk)...)
	defer keycrypto.ZeroBytes(secret)

	// One random polynomial of degree k-1 per secret byte.
	random, err := keycrypto.RandomBytes(secretSize * (k - 1))
	if err != nil {
		return nil, err
	}
	defer keycrypto.ZeroBytes(random)

	coeffs := make([]byte, k)
	defer keycrypto.ZeroBytes(coeffs)

	ys := make([][]byte, n)
	for i := range ys {
		ys[i] = make([]byte, secretSize)
	}
	for b := 0; b < secretSize; b++ {
		coeffs[0] = secret[b]
		copy(coeffs[1:], random[b*(k-1):(b+1)*(k-1)])
		for i := range ys {
			ys[i][b] = evalAt(coeffs, byte(i+1))
		}
	}

	shares := make([]string, n)
	for i, y := range ys {
		shares[i] = fmt.Sprintf("%s-%d-%d-%s", SharePrefix, k, i+1, hex.EncodeToString(y))
		keycrypto.ZeroBytes(y)
	}
	return shares, nil
}

type share struct {
	threshold int
	x         byte
	y         []byte
}

func parseShare(s string) (share, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), SharePrefix+"-")
	if !ok {
		return share{}, invalid("unrecognized share prefix")
	}
	parts := strings.Split(rest, "-")
	if len(parts) != 3 {
		return share{}, invalid("malformed share")
	}
	k, err := strconv.Atoi(parts[0])
	if err != nil || k < 2 || k > maxShares {
		return share{}, invalid("bad threshold")
	}
	x, err := strconv.Atoi(parts[1])
	if err != nil || x < 1 || x > maxShares {
		return share{}, invalid("bad share index")
	}
	y, err := hex.DecodeString(parts[2])
	if err != nil || len(y) != secretSize {
		return share{}, invalid("bad share value")
	}
	return share{threshold: k, x: byte(x), y: y}, nil
}

// Threshold returns the number of shares needed to recombine the set s
// belongs to.
func Threshold(s string) (int, error) {
	p, err := parseShare(s)
	if err != nil {
		return 0, err
	}
	return p.threshold, nil
}

// Combine recovers the master derivation key from at least threshold
// distinct shares. Duplicates are ignored; extra shares beyond the
// threshold are not consulted.
func Combine(shares []string) (protocol.MasterDerivationKey, error) {
	var mdk protocol.MasterDerivationKey
	if len(shares) == 0 {
		return mdk, invalid("no shares")
	}

	var picked []share
	seen := make(map[byte]bool)
	for _, s := range shares {
		p, err := parseShare(s)
		if err != nil {
			return mdk, err
		}
		if len(picked) > 0 && p.threshold != picked[0].threshold {
			return mdk, invalid("shares come from different splits")
		}
		if seen[p.x] {
			continue
		}
		seen[p.x] = true
		picked = append(picked, p)
		if len(picked) == p.threshold {
			break
		}
	}
	if len(picked) < picked[0].threshold {
		return mdk, custerr.WithDetails(custerr.ErrInvalidShare, map[string]string{
			"have": strconv.Itoa(len(picked)),
			"need": strconv.Itoa(picked[0].threshold),
		})
	}

	// Lagrange basis at x = 0.
	weights := make([]byte, len(picked))
	for i, pi := range picked {
		w := byte(1)
		for j, pj := range picked {
			if i != j {
				w = gfMul(w, gfDiv(pj.x, pj.x^pi.x))
			}
		}
		weights[i] = w
	}

	secret := make([]byte, secretSize)
	defer keycrypto.ZeroBytes(secret)
	for b := range secret {
		var v byte
		for i, p := range picked {
			v ^= gfMul(p.y[b], weights[i])
		}
		secret[b] = v
	}

	copy(mdk[:], secret)
	if subtle.ConstantTimeCompare(checksum(mdk), secret[len(mdk):]) != 1 {
		keycrypto.ZeroBytes(mdk[:])
		return protocol.MasterDerivationKey{}, invalid("checksum mismatch")
	}
	return mdk, nil
}
