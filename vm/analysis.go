package vm

// bitvec is a packed bitmap, one bit per code byte, set for every byte that
// is a real instruction (as opposed to PUSH immediate data). It is the
// classic go-ethereum jump-destination analysis: without it, a PUSH whose
// immediate data happens to contain the byte 0x5B would be treated as a
// valid JUMPDEST.
type bitvec []byte

func (v bitvec) set(pos uint64) { v[pos/8] |= 1 << (pos % 8) }

func (v bitvec) codeSegment(pos uint64) bool {
	return v[pos/8]&(1<<(pos%8)) != 0
}

// codeBitmap marks every byte of code that is an actual instruction.
func codeBitmap(code []byte) bitvec {
	bits := make(bitvec, len(code)/8+1)
	for pc := uint64(0); pc < uint64(len(code)); {
		op := OpCode(code[pc])
		bits.set(pc)
		if op.IsPush() && op != PUSH0 {
			n := uint64(op - PUSH1 + 1)
			pc += n
		}
		pc++
	}
	return bits
}

// validJumpdest reports whether dest lands on a JUMPDEST instruction byte,
// not inside a PUSH's immediate data.
func validJumpdest(code []byte, bits bitvec, dest uint64) bool {
	if dest >= uint64(len(code)) {
		return false
	}
	if OpCode(code[dest]) != JUMPDEST {
		return false
	}
	return bits.codeSegment(dest)
}
