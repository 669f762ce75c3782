package vm

import "testing"

func TestValidJumpdestAcceptsRealJumpdest(t *testing.T) {
	code := []byte{byte(PUSH1), 0x00, byte(JUMPDEST), byte(STOP)}
	bits := codeBitmap(code)
	if !validJumpdest(code, bits, 2) {
		t.Fatal("expected offset 2 (real JUMPDEST) to be valid")
	}
}

func TestValidJumpdestRejectsPushImmediateData(t *testing.T) {
	// PUSH1 0x5B: the immediate data byte equals the JUMPDEST opcode, but it
	// must not be treated as a valid jump target.
	code := []byte{byte(PUSH1), byte(JUMPDEST), byte(STOP)}
	bits := codeBitmap(code)
	if validJumpdest(code, bits, 1) {
		t.Fatal("PUSH1 immediate data byte 0x5B was accepted as a jump destination")
	}
}

func TestValidJumpdestRejectsOutOfBounds(t *testing.T) {
	code := []byte{byte(STOP)}
	bits := codeBitmap(code)
	if validJumpdest(code, bits, 100) {
		t.Fatal("out-of-bounds destination accepted")
	}
}

func TestValidJumpdestRejectsNonJumpdestByte(t *testing.T) {
	code := []byte{byte(ADD), byte(STOP)}
	bits := codeBitmap(code)
	if validJumpdest(code, bits, 0) {
		t.Fatal("ADD opcode accepted as a jump destination")
	}
}

func TestCodeBitmapHandlesTrailingTruncatedPush(t *testing.T) {
	// PUSH3 with only one byte of immediate data actually present (the code
	// ends early); codeBitmap must not run off the end of the slice.
	code := []byte{byte(PUSH1) + 2, 0x01}
	bits := codeBitmap(code)
	if !bits.codeSegment(0) {
		t.Fatal("expected the PUSH3 opcode byte itself to be a code segment")
	}
}
