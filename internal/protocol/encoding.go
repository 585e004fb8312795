package protocol

import (
	"github.com/algorand/go-codec/codec"
)

//nolint:gochecknoglobals // shared immutable handle
var codecHandle *codec.MsgpackHandle

func init() {
	codecHandle = new(codec.MsgpackHandle)
	codecHandle.ErrorIfNoField = true
	codecHandle.ErrorIfNoArrayExpand = true
	codecHandle.Canonical = true
	codecHandle.RecursiveEmptyCheck = true
	codecHandle.WriteExt = true
	codecHandle.PositiveIntUnsigned = true
}

// Encode returns the canonical msgpack encoding of obj.
func Encode(obj any) []byte {
	var b []byte
	enc := codec.NewEncoderBytes(&b, codecHandle)
	enc.MustEncode(obj)
	return b
}

// Decode decodes canonical msgpack into objptr.
func Decode(b []byte, objptr any) error {
	dec := codec.NewDecoderBytes(b, codecHandle)
	return dec.Decode(objptr)
}
