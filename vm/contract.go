package vm

import "github.com/garyschulte/metaru/frame"

// Contract wraps the immutable code plane plus the jump-destination
// analysis computed once per invocation.
type Contract struct {
	cb   *frame.ControlBlock
	code []byte
	bits bitvec
}

func newContract(cb *frame.ControlBlock) *Contract {
	code := cb.Code()
	return &Contract{cb: cb, code: code, bits: codeBitmap(code)}
}

// GetOp returns the opcode at pc, or STOP if pc runs past the end of code
// (execution should already have stopped by then; this is a defensive
// fallback, not a documented behavior).
func (c *Contract) GetOp(pc uint64) OpCode {
	if pc < uint64(len(c.code)) {
		return OpCode(c.code[pc])
	}
	return STOP
}

// CodeSize returns the length of the code plane.
func (c *Contract) CodeSize() uint64 { return uint64(len(c.code)) }

// PushData returns the n bytes immediately after pc, right-zero-padded if
// code_size is exceeded, matching PUSHn's silent right-pad behavior.
func (c *Contract) PushData(pc uint64, n int) []byte {
	out := make([]byte, n)
	start := pc + 1
	if start >= uint64(len(c.code)) {
		return out
	}
	end := start + uint64(n)
	if end > uint64(len(c.code)) {
		end = uint64(len(c.code))
	}
	copy(out, c.code[start:end])
	return out
}

func (c *Contract) validJumpdest(dest uint64) bool {
	return validJumpdest(c.code, c.bits, dest)
}
