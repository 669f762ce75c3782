package frame

import "testing"

func newTestBlock(t *testing.T, extra int) (*ControlBlock, []byte) {
	t.Helper()
	mem := make([]byte, ControlBlockSize+extra)
	cb := New(mem, uint64(ControlBlockSize+extra), 0)
	return cb, mem
}

func TestPCRoundTrip(t *testing.T) {
	cb, _ := newTestBlock(t, 0)
	cb.SetPC(123)
	if got := cb.PC(); got != 123 {
		t.Fatalf("got %d, want 123", got)
	}
}

func TestGasRemainingIsSigned(t *testing.T) {
	cb, _ := newTestBlock(t, 0)
	cb.SetGasRemaining(-5)
	if got := cb.GasRemaining(); got != -5 {
		t.Fatalf("got %d, want -5", got)
	}
}

func TestGasRefundAccumulates(t *testing.T) {
	cb, _ := newTestBlock(t, 0)
	cb.AddGasRefund(4800)
	cb.AddGasRefund(4800)
	if got := cb.GasRefund(); got != 9600 {
		t.Fatalf("got %d, want 9600", got)
	}
}

func TestHaltSetsStateAndReason(t *testing.T) {
	cb, _ := newTestBlock(t, 0)
	cb.SetState(Executing)
	cb.Halt(HaltInvalidJumpDestination)
	if cb.State() != ExceptionalHalt {
		t.Fatalf("state = %v, want ExceptionalHalt", cb.State())
	}
	if cb.HaltReason() != HaltInvalidJumpDestination {
		t.Fatalf("halt_reason = %v, want HaltInvalidJumpDestination", cb.HaltReason())
	}
}

func TestIsStaticRoundTrip(t *testing.T) {
	cb, _ := newTestBlock(t, 0)
	if cb.IsStatic() {
		t.Fatal("fresh block reported static")
	}
	cb.SetIsStatic(true)
	if !cb.IsStatic() {
		t.Fatal("SetIsStatic(true) did not stick")
	}
	cb.SetIsStatic(false)
	if cb.IsStatic() {
		t.Fatal("SetIsStatic(false) did not stick")
	}
}

func TestWarmAddressesDedup(t *testing.T) {
	mem := make([]byte, ControlBlockSize+3*AddressSize)
	cb := New(mem, uint64(len(mem)), 0)
	putU64(mem, OffWarmAddressesPtr, uint64(ControlBlockSize))

	var a, b [AddressSize]byte
	a[0] = 0xaa
	b[0] = 0xbb

	cb.AppendWarmAddress(a)
	cb.AppendWarmAddress(a)
	cb.AppendWarmAddress(b)

	if got := cb.WarmAddressesCount(); got != 2 {
		t.Fatalf("count = %d, want 2 (duplicate append should be a no-op)", got)
	}
	if !cb.IsAddressWarm(a) || !cb.IsAddressWarm(b) {
		t.Fatal("expected both addresses warm")
	}
	var c [AddressSize]byte
	c[0] = 0xcc
	if cb.IsAddressWarm(c) {
		t.Fatal("unrecorded address reported warm")
	}
}

func putU64(mem []byte, off int, v uint64) {
	for i := 0; i < 8; i++ {
		mem[off+i] = byte(v >> (8 * i))
	}
}
