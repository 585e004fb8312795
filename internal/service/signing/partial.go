package signing

import "github.com/mrz1836/custodian/internal/protocol"

// Partial is an optional partial multisig signature passed to SignMultisig.
// The zero value is absent.
type Partial struct {
	sig     protocol.MultisigSig
	present bool
}

// NoPartial starts a new signature bag.
func NoPartial() Partial {
	return Partial{}
}

// WithPartial merges into an existing signature bag.
func WithPartial(sig protocol.MultisigSig) Partial {
	return Partial{sig: sig.Clone(), present: true}
}

// PartialFrom treats a blank bag as absent. Wire decoders use it since an
// omitted field decodes to the zero bag.
func PartialFrom(sig protocol.MultisigSig) Partial {
	if sig.Blank() {
		return NoPartial()
	}
	return WithPartial(sig)
}

// Get returns the bag and whether one was supplied.
func (p Partial) Get() (protocol.MultisigSig, bool) {
	return p.sig, p.present
}
