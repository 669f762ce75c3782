// Package word implements the reference interpreter's word arithmetic
// primitives: 32-byte big-endian words read and written a limb at a time.
//
// The primitives here perform arithmetic on the low 64 bits of a word only.
// This is an explicit, documented deviation from Ethereum's full 256-bit
// semantics, carried over from the reference this interpreter is built
// against; see the design notes in DESIGN.md before promoting any of these
// helpers to full-width arithmetic.
package word

import "encoding/binary"

// Size is the width of a stack word in bytes.
const Size = 32

// ReadU64Low interprets the last 8 bytes of a 32-byte word as a big-endian
// unsigned 64-bit integer, discarding the high 24 bytes.
func ReadU64Low(w []byte) uint64 {
	return binary.BigEndian.Uint64(w[Size-8 : Size])
}

// WriteU64Low zeroes the first 24 bytes of w and writes v big-endian into
// the last 8.
func WriteU64Low(w []byte, v uint64) {
	for i := 0; i < Size-8; i++ {
		w[i] = 0
	}
	binary.BigEndian.PutUint64(w[Size-8:Size], v)
}

// IsZero reports whether every byte of w is zero.
func IsZero(w []byte) bool {
	for _, b := range w {
		if b != 0 {
			return false
		}
	}
	return true
}

// ReadI64Low interprets the low 8 bytes as a two's-complement signed
// 64-bit integer, for the signed low-limb variants (SDIV, SMOD).
func ReadI64Low(w []byte) int64 {
	return int64(ReadU64Low(w))
}
