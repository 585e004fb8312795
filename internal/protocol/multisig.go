package protocol

import (
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"

	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// MultisigVersion is the only supported multisig preimage version.
const MultisigVersion uint8 = 1

// MaxMultisigKeys bounds the member count of a multisig account.
const MaxMultisigKeys = 255

// MultisigSubsig is one member slot: the member key and, once signed, its signature.
type MultisigSubsig struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Key PublicKey `codec:"pk"`
	Sig Signature `codec:"s"`
}

// MultisigSig is a partial or complete multisig signature bag. Subsigs
// follow the member order of the account preimage; the slot index of a
// signature is its position in Subsigs.
type MultisigSig struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Version   uint8            `codec:"v"`
	Threshold uint8            `codec:"thr"`
	Subsigs   []MultisigSubsig `codec:"subsig"`
}

// Slot is a filled signature slot.
type Slot struct {
	Index     int
	Signature Signature
}

// ValidateMultisig checks version and threshold bounds for n member keys.
func ValidateMultisig(version, threshold uint8, n int) error {
	if version != MultisigVersion {
		return custerr.WithDetails(custerr.ErrUnsupportedVersion, map[string]string{"version": fmt.Sprintf("%d", version)})
	}
	if n == 0 || n > MaxMultisigKeys {
		return custerr.WithDetails(custerr.ErrInvalidThreshold, map[string]string{"keys": fmt.Sprintf("%d", n)})
	}
	if threshold == 0 || int(threshold) > n {
		return custerr.WithDetails(custerr.ErrInvalidThreshold, map[string]string{
			"threshold": fmt.Sprintf("%d", threshold),
			"keys":      fmt.Sprintf("%d", n),
		})
	}
	return nil
}

// MultisigAddress hashes the ordered preimage into the account address:
// SHA-512/256("MultisigAddr" || version || threshold || pk_0 || ... || pk_n-1).
func MultisigAddress(version, threshold uint8, pks []PublicKey) (Address, error) {
	if err := ValidateMultisig(version, threshold, len(pks)); err != nil {
		return Address{}, err
	}
	buf := make([]byte, 0, len(multisigPrefix)+2+len(pks)*len(PublicKey{}))
	buf = append(buf, multisigPrefix...)
	buf = append(buf, version, threshold)
	for _, pk := range pks {
		buf = append(buf, pk[:]...)
	}
	return Address(sha512.Sum512_256(buf)), nil
}

// NewMultisigSig returns an unsigned bag for the given account preimage.
func NewMultisigSig(version, threshold uint8, pks []PublicKey) (MultisigSig, error) {
	if err := ValidateMultisig(version, threshold, len(pks)); err != nil {
		return MultisigSig{}, err
	}
	subsigs := make([]MultisigSubsig, len(pks))
	for i, pk := range pks {
		subsigs[i].Key = pk
	}
	return MultisigSig{Version: version, Threshold: threshold, Subsigs: subsigs}, nil
}

// Blank reports whether m carries no preimage at all.
func (m MultisigSig) Blank() bool {
	return m.Version == 0 && m.Threshold == 0 && len(m.Subsigs) == 0
}

// PublicKeys returns the ordered member keys.
func (m MultisigSig) PublicKeys() []PublicKey {
	pks := make([]PublicKey, len(m.Subsigs))
	for i, s := range m.Subsigs {
		pks[i] = s.Key
	}
	return pks
}

// Address recomputes the account address from the bag's preimage.
func (m MultisigSig) Address() (Address, error) {
	return MultisigAddress(m.Version, m.Threshold, m.PublicKeys())
}

// Slots returns the filled slots in index order.
func (m MultisigSig) Slots() []Slot {
	var slots []Slot
	for i, s := range m.Subsigs {
		if !s.Sig.Blank() {
			slots = append(slots, Slot{Index: i, Signature: s.Sig})
		}
	}
	return slots
}

// SignatureCount returns the number of filled slots.
func (m MultisigSig) SignatureCount() int {
	return len(m.Slots())
}

// Complete reports whether at least threshold slots are filled. The daemon
// never acts on this; callers decide when a bag is ready to submit.
func (m MultisigSig) Complete() bool {
	return m.Threshold > 0 && m.SignatureCount() >= int(m.Threshold)
}

// Clone returns a deep copy.
func (m MultisigSig) Clone() MultisigSig {
	out := m
	out.Subsigs = make([]MultisigSubsig, len(m.Subsigs))
	copy(out.Subsigs, m.Subsigs)
	return out
}

// Sign fills every slot held by sk's public key with a signature over msg.
func (m MultisigSig) Sign(sk ed25519.PrivateKey, msg []byte) (MultisigSig, error) {
	pk := PublicKeyOf(sk)
	out := m.Clone()
	found := false
	var sig Signature
	copy(sig[:], ed25519.Sign(sk, msg))
	for i := range out.Subsigs {
		if out.Subsigs[i].Key == pk {
			out.Subsigs[i].Sig = sig
			found = true
		}
	}
	if !found {
		return MultisigSig{}, custerr.WithDetails(custerr.ErrNotMultisigMember, map[string]string{"key": pk.Address().String()})
	}
	return out, nil
}

// Verify checks every filled slot against its member key.
func (m MultisigSig) Verify(msg []byte) error {
	for _, slot := range m.Slots() {
		pk := m.Subsigs[slot.Index].Key
		if !ed25519.Verify(pk[:], msg, slot.Signature[:]) {
			return custerr.WithDetails(custerr.ErrInvalidSignature, map[string]string{"slot": fmt.Sprintf("%d", slot.Index)})
		}
	}
	return nil
}

// SamePreimage reports whether a and b describe the same account.
func (m MultisigSig) SamePreimage(other MultisigSig) bool {
	if m.Version != other.Version || m.Threshold != other.Threshold || len(m.Subsigs) != len(other.Subsigs) {
		return false
	}
	for i := range m.Subsigs {
		if m.Subsigs[i].Key != other.Subsigs[i].Key {
			return false
		}
	}
	return true
}

// MergeMultisig combines two bags for the same account into their slot-wise
// union. Merging is commutative and idempotent; two different signatures in
// one slot fail with a conflict.
func MergeMultisig(a, b MultisigSig) (MultisigSig, error) {
	if !a.SamePreimage(b) {
		return MultisigSig{}, custerr.ErrPartialMismatch
	}
	out := a.Clone()
	for i, s := range b.Subsigs {
		switch {
		case s.Sig.Blank():
		case out.Subsigs[i].Sig.Blank():
			out.Subsigs[i].Sig = s.Sig
		case out.Subsigs[i].Sig != s.Sig:
			return MultisigSig{}, custerr.WithDetails(custerr.ErrSlotConflict, map[string]string{"slot": fmt.Sprintf("%d", i)})
		}
	}
	return out, nil
}

// Encode returns the canonical encoding of the bag.
func (m MultisigSig) Encode() []byte {
	return Encode(m)
}

// DecodeMultisigSig parses a canonical-encoded multisig bag.
func DecodeMultisigSig(b []byte) (MultisigSig, error) {
	var m MultisigSig
	if err := Decode(b, &m); err != nil {
		return MultisigSig{}, custerr.Wrap(custerr.ErrInvalidInput, "decoding multisig: %v", err)
	}
	return m, nil
}
