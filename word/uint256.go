package word

import "github.com/holiman/uint256"

// Uint256 interprets w as a full-width big-endian integer. It is used only
// where a word needs to be rendered as a whole (the evmcore CLI's
// stack-top printout); the arithmetic opcodes never call it, since their
// contract is the low-64-bit shortcut described in the package doc.
func Uint256(w []byte) *uint256.Int {
	return new(uint256.Int).SetBytes(w)
}

// String renders w in the same base-10 form go-ethereum's structured
// logger uses for stack items, without truncating to the low 64 bits.
func String(w []byte) string {
	return Uint256(w).Dec()
}
