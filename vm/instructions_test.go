package vm_test

import (
	"testing"

	"github.com/garyschulte/metaru/frame"
	. "github.com/garyschulte/metaru/vm"
	"github.com/garyschulte/metaru/vm/runtime"
	"github.com/garyschulte/metaru/word"
)

// stackTop returns the current top-of-stack word from cb, the same slicing
// TestScenarioStorageRoundTrip uses in interpreter_test.go.
func stackTop(cb *frame.ControlBlock) []byte {
	size := cb.StackSize()
	return cb.StackPlane()[uint32(size-1)*frame.WordSize : uint32(size)*frame.WordSize]
}

// pushNeg32 builds a PUSH32 immediate whose low 8 bytes are the two's
// complement encoding of v; ReadI64Low only ever looks at those 8 bytes.
func pushNeg32(v int64) []byte {
	w := make([]byte, frame.WordSize)
	word.WriteU64Low(w, uint64(v))
	return w
}

func mustExecute(t *testing.T, code []byte, cfg *runtime.Config) (*runtime.Result, *frame.ControlBlock) {
	t.Helper()
	if cfg == nil {
		cfg = &runtime.Config{}
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = 1_000_000
	}
	result, cb, err := runtime.Execute(code, cfg)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return result, cb
}

func TestOpSdiv(t *testing.T) {
	code := append([]byte{byte(PUSH32)}, pushNeg32(-6)...)
	code = append(code, byte(PUSH1), 2, byte(SDIV), byte(STOP))
	result, cb := mustExecute(t, code, nil)
	if result.State != frame.CompletedSuccess {
		t.Fatalf("state = %v, want CompletedSuccess", result.State)
	}
	if got := word.ReadI64Low(stackTop(cb)); got != -3 {
		t.Fatalf("-6 SDIV 2 = %d, want -3", got)
	}
}

func TestOpSmod(t *testing.T) {
	code := append([]byte{byte(PUSH32)}, pushNeg32(-7)...)
	code = append(code, byte(PUSH1), 2, byte(SMOD), byte(STOP))
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadI64Low(stackTop(cb)); got != -1 {
		t.Fatalf("-7 SMOD 2 = %d, want -1", got)
	}
}

func TestOpAddmod(t *testing.T) {
	code := []byte{byte(PUSH1), 10, byte(PUSH1), 10, byte(PUSH1), 8, byte(ADDMOD), byte(STOP)}
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadU64Low(stackTop(cb)); got != 4 {
		t.Fatalf("(10+10) ADDMOD 8 = %d, want 4", got)
	}
}

func TestOpMulmod(t *testing.T) {
	code := []byte{byte(PUSH1), 7, byte(PUSH1), 5, byte(PUSH1), 6, byte(MULMOD), byte(STOP)}
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadU64Low(stackTop(cb)); got != 5 {
		t.Fatalf("(7*5) MULMOD 6 = %d, want 5", got)
	}
}

func TestOpSignExtendNegative(t *testing.T) {
	code := []byte{byte(PUSH1), 0, byte(PUSH1), 0xff, byte(SIGNEXTEND), byte(STOP)}
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadI64Low(stackTop(cb)); got != -1 {
		t.Fatalf("SIGNEXTEND(0, 0xff) = %d, want -1", got)
	}
}

func TestOpSignExtendPositive(t *testing.T) {
	code := []byte{byte(PUSH1), 0, byte(PUSH1), 0x7f, byte(SIGNEXTEND), byte(STOP)}
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadU64Low(stackTop(cb)); got != 0x7f {
		t.Fatalf("SIGNEXTEND(0, 0x7f) = %#x, want 0x7f", got)
	}
}

func TestOpSlt(t *testing.T) {
	code := append([]byte{byte(PUSH32)}, pushNeg32(-1)...)
	code = append(code, byte(PUSH1), 1, byte(SLT), byte(STOP))
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadU64Low(stackTop(cb)); got != 1 {
		t.Fatalf("-1 SLT 1 = %d, want 1", got)
	}
}

func TestOpSgt(t *testing.T) {
	code := []byte{byte(PUSH1), 1}
	code = append(code, byte(PUSH32))
	code = append(code, pushNeg32(-1)...)
	code = append(code, byte(SGT), byte(STOP))
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadU64Low(stackTop(cb)); got != 1 {
		t.Fatalf("1 SGT -1 = %d, want 1", got)
	}
}

func TestOpByte(t *testing.T) {
	val := make([]byte, frame.WordSize)
	val[frame.WordSize-1] = 0x42
	code := []byte{byte(PUSH1), 31, byte(PUSH32)}
	code = append(code, val...)
	code = append(code, byte(BYTE), byte(STOP))
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadU64Low(stackTop(cb)); got != 0x42 {
		t.Fatalf("BYTE(31, ...0x42) = %#x, want 0x42", got)
	}
}

func TestOpShl(t *testing.T) {
	code := []byte{byte(PUSH1), 4, byte(PUSH1), 1, byte(SHL), byte(STOP)}
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadU64Low(stackTop(cb)); got != 16 {
		t.Fatalf("1 SHL 4 = %d, want 16", got)
	}
}

func TestOpShr(t *testing.T) {
	code := []byte{byte(PUSH1), 4, byte(PUSH1) + 1, 0x01, 0x00, byte(SHR), byte(STOP)}
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadU64Low(stackTop(cb)); got != 16 {
		t.Fatalf("256 SHR 4 = %d, want 16", got)
	}
}

func TestOpSar(t *testing.T) {
	code := append([]byte{byte(PUSH32)}, pushNeg32(-8)...)
	code = append(code, byte(PUSH1), 1, byte(SAR), byte(STOP))
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadI64Low(stackTop(cb)); got != -4 {
		t.Fatalf("-8 SAR 1 = %d, want -4", got)
	}
}

func TestOpAddress(t *testing.T) {
	var addr [frame.AddressSize]byte
	addr[19] = 0x11
	code := []byte{byte(ADDRESS), byte(STOP)}
	_, cb := mustExecute(t, code, &runtime.Config{Contract: addr})
	top := stackTop(cb)
	if top[frame.WordSize-1] != 0x11 {
		t.Fatalf("ADDRESS did not push scope.CB.Contract(), got %#x", top[frame.WordSize-1])
	}
}

func TestOpOrigin(t *testing.T) {
	var addr [frame.AddressSize]byte
	addr[19] = 0x22
	code := []byte{byte(ORIGIN), byte(STOP)}
	_, cb := mustExecute(t, code, &runtime.Config{Originator: addr})
	top := stackTop(cb)
	if top[frame.WordSize-1] != 0x22 {
		t.Fatalf("ORIGIN did not push scope.CB.Originator(), got %#x", top[frame.WordSize-1])
	}
}

func TestOpCaller(t *testing.T) {
	var addr [frame.AddressSize]byte
	addr[19] = 0x33
	code := []byte{byte(CALLER), byte(STOP)}
	_, cb := mustExecute(t, code, &runtime.Config{Sender: addr})
	top := stackTop(cb)
	if top[frame.WordSize-1] != 0x33 {
		t.Fatalf("CALLER did not push scope.CB.Sender(), got %#x", top[frame.WordSize-1])
	}
}

func TestOpCoinbase(t *testing.T) {
	var addr [frame.AddressSize]byte
	addr[19] = 0x44
	code := []byte{byte(COINBASE), byte(STOP)}
	_, cb := mustExecute(t, code, &runtime.Config{MiningBeneficiary: addr})
	top := stackTop(cb)
	if top[frame.WordSize-1] != 0x44 {
		t.Fatalf("COINBASE did not push scope.CB.MiningBeneficiary(), got %#x", top[frame.WordSize-1])
	}
}

func TestOpCallValue(t *testing.T) {
	var value [frame.WordSize]byte
	value[frame.WordSize-1] = 0x55
	code := []byte{byte(CALLVALUE), byte(STOP)}
	_, cb := mustExecute(t, code, &runtime.Config{Value: value})
	top := stackTop(cb)
	if top[frame.WordSize-1] != 0x55 {
		t.Fatalf("CALLVALUE did not push scope.CB.Value(), got %#x", top[frame.WordSize-1])
	}
}

func TestOpGasPrice(t *testing.T) {
	var price [frame.WordSize]byte
	price[frame.WordSize-1] = 0x66
	code := []byte{byte(GASPRICE), byte(STOP)}
	_, cb := mustExecute(t, code, &runtime.Config{GasPrice: price})
	top := stackTop(cb)
	if top[frame.WordSize-1] != 0x66 {
		t.Fatalf("GASPRICE did not push scope.CB.GasPrice(), got %#x", top[frame.WordSize-1])
	}
}

func TestOpCallDataLoad(t *testing.T) {
	input := []byte{0x01, 0x02, 0x03, 0x04}
	code := []byte{byte(PUSH1), 0, byte(CALLDATALOAD), byte(STOP)}
	_, cb := mustExecute(t, code, &runtime.Config{Input: input})
	top := stackTop(cb)
	for i, b := range input {
		if top[i] != b {
			t.Fatalf("CALLDATALOAD byte %d = %#x, want %#x", i, top[i], b)
		}
	}
	for i := len(input); i < frame.WordSize; i++ {
		if top[i] != 0 {
			t.Fatalf("CALLDATALOAD past calldata end byte %d = %#x, want 0", i, top[i])
		}
	}
}

func TestOpCallDataSize(t *testing.T) {
	input := []byte{0x01, 0x02, 0x03}
	code := []byte{byte(CALLDATASIZE), byte(STOP)}
	_, cb := mustExecute(t, code, &runtime.Config{Input: input})
	if got := word.ReadU64Low(stackTop(cb)); got != uint64(len(input)) {
		t.Fatalf("CALLDATASIZE = %d, want %d", got, len(input))
	}
}

func TestOpCallDataCopy(t *testing.T) {
	input := []byte{0x11, 0x22, 0x33, 0x44}
	code := []byte{
		byte(PUSH1), 4, // size
		byte(PUSH1), 0, // srcOffset
		byte(PUSH1), 0, // destOffset
		byte(CALLDATACOPY),
		byte(STOP),
	}
	_, cb := mustExecute(t, code, &runtime.Config{Input: input})
	mem := cb.MemoryPlane()
	for i, b := range input {
		if mem[i] != b {
			t.Fatalf("CALLDATACOPY byte %d = %#x, want %#x", i, mem[i], b)
		}
	}
}

func TestOpCodeSize(t *testing.T) {
	code := []byte{byte(CODESIZE), byte(STOP)}
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadU64Low(stackTop(cb)); got != uint64(len(code)) {
		t.Fatalf("CODESIZE = %d, want %d", got, len(code))
	}
}

func TestOpCodeCopy(t *testing.T) {
	code := []byte{
		byte(PUSH1), 4, // size
		byte(PUSH1), 0, // srcOffset
		byte(PUSH1), 0, // destOffset
		byte(CODECOPY),
		byte(STOP),
	}
	_, cb := mustExecute(t, code, nil)
	mem := cb.MemoryPlane()
	for i := 0; i < 4; i++ {
		if mem[i] != code[i] {
			t.Fatalf("CODECOPY byte %d = %#x, want %#x", i, mem[i], code[i])
		}
	}
}

func TestOpReturnDataSize(t *testing.T) {
	returnData := []byte{0xaa, 0xbb, 0xcc}
	code := []byte{byte(RETURNDATASIZE), byte(STOP)}
	_, cb := mustExecute(t, code, &runtime.Config{ReturnData: returnData})
	if got := word.ReadU64Low(stackTop(cb)); got != uint64(len(returnData)) {
		t.Fatalf("RETURNDATASIZE = %d, want %d", got, len(returnData))
	}
}

func TestOpReturnDataCopyInBounds(t *testing.T) {
	returnData := []byte{0xaa, 0xbb, 0xcc, 0xdd}
	code := []byte{
		byte(PUSH1), 4, // size
		byte(PUSH1), 0, // srcOffset
		byte(PUSH1), 0, // destOffset
		byte(RETURNDATACOPY),
		byte(STOP),
	}
	result, cb := mustExecute(t, code, &runtime.Config{ReturnData: returnData})
	if result.State != frame.CompletedSuccess {
		t.Fatalf("state = %v, want CompletedSuccess", result.State)
	}
	mem := cb.MemoryPlane()
	for i, b := range returnData {
		if mem[i] != b {
			t.Fatalf("RETURNDATACOPY byte %d = %#x, want %#x", i, mem[i], b)
		}
	}
}

// TestOpReturnDataCopyOutOfBounds exercises the fix distinguishing
// RETURNDATACOPY from the CALLDATACOPY/CODECOPY zero-pad family: a range
// past the end of the return-data plane must halt, not read as zeros.
func TestOpReturnDataCopyOutOfBounds(t *testing.T) {
	returnData := []byte{0xaa, 0xbb}
	code := []byte{
		byte(PUSH1), 4, // size, past the 2-byte return-data plane
		byte(PUSH1), 0, // srcOffset
		byte(PUSH1), 0, // destOffset
		byte(RETURNDATACOPY),
		byte(STOP),
	}
	result, _ := mustExecute(t, code, &runtime.Config{ReturnData: returnData})
	if result.State != frame.ExceptionalHalt {
		t.Fatalf("state = %v, want ExceptionalHalt", result.State)
	}
	if result.HaltReason != frame.HaltOutOfBounds {
		t.Fatalf("halt_reason = %v, want HaltOutOfBounds", result.HaltReason)
	}
}

func TestOpMsize(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0, // value
		byte(PUSH1), 0, // offset
		byte(MSTORE),
		byte(MSIZE),
		byte(STOP),
	}
	_, cb := mustExecute(t, code, nil)
	if got := word.ReadU64Low(stackTop(cb)); got != 32 {
		t.Fatalf("MSIZE after one word MSTORE = %d, want 32", got)
	}
}

func TestOpRevert(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0x2a, // value
		byte(PUSH1), 0, // offset
		byte(MSTORE),
		byte(PUSH1), 0x20, // size
		byte(PUSH1), 0, // offset
		byte(REVERT),
	}
	result, _ := mustExecute(t, code, nil)
	if result.State != frame.Revert {
		t.Fatalf("state = %v, want Revert", result.State)
	}
	if len(result.Output) != 32 {
		t.Fatalf("output length = %d, want 32", len(result.Output))
	}
	if result.Output[31] != 0x2a {
		t.Fatalf("output[31] = %#x, want 0x2a", result.Output[31])
	}
}

// TestOpMloadOnEmptyMemory exercises spec.md's named MLOAD-on-empty-memory
// property: reading before anything has ever been written returns 32 zero
// bytes and grows memory_size to exactly one word.
func TestOpMloadOnEmptyMemory(t *testing.T) {
	code := []byte{byte(PUSH1), 0, byte(MLOAD), byte(STOP)}
	_, cb := mustExecute(t, code, nil)
	top := stackTop(cb)
	for i, b := range top {
		if b != 0 {
			t.Fatalf("MLOAD on empty memory byte %d = %#x, want 0", i, b)
		}
	}
	if cb.MemorySize() != 32 {
		t.Fatalf("memory_size after MLOAD(0) = %d, want 32", cb.MemorySize())
	}
}

// TestPushNearCodeSizeZeroPads exercises the named PUSHn-near-code-size
// property: a PUSH whose immediate runs past the end of the code plane is
// zero-padded rather than reading out of bounds.
func TestPushNearCodeSizeZeroPads(t *testing.T) {
	// PUSH2 with only one immediate byte present before code ends.
	code := []byte{byte(PUSH1) + 1, 0xab}
	_, cb := mustExecute(t, code, nil)
	if cb.StackSize() != 1 {
		t.Fatalf("stack size = %d, want 1", cb.StackSize())
	}
	top := stackTop(cb)
	if top[frame.WordSize-2] != 0xab {
		t.Fatalf("pushed byte = %#x, want 0xab", top[frame.WordSize-2])
	}
	if top[frame.WordSize-1] != 0 {
		t.Fatalf("zero-padded byte = %#x, want 0", top[frame.WordSize-1])
	}
}

// TestPushPopIdempotent exercises the named push/pop idempotence property:
// pushing then immediately popping a value leaves the stack as it started.
func TestPushPopIdempotent(t *testing.T) {
	code := []byte{byte(PUSH1), 0x2a, byte(POP), byte(STOP)}
	_, cb := mustExecute(t, code, nil)
	if cb.StackSize() != 0 {
		t.Fatalf("stack size after PUSH1;POP = %d, want 0", cb.StackSize())
	}
}

// TestDoubleSwapRoundTrip exercises the named double-swap round-trip
// property: swapping the top two elements twice restores their order.
func TestDoubleSwapRoundTrip(t *testing.T) {
	code := []byte{
		byte(PUSH1), 1, // a
		byte(PUSH1), 2, // b
		byte(SWAP1),
		byte(SWAP1),
		byte(STOP),
	}
	_, cb := mustExecute(t, code, nil)
	if cb.StackSize() != 2 {
		t.Fatalf("stack size = %d, want 2", cb.StackSize())
	}
	top := stackTop(cb)
	if top[frame.WordSize-1] != 2 {
		t.Fatalf("top after double SWAP1 = %d, want 2 (b, unchanged)", top[frame.WordSize-1])
	}
	bottom := cb.StackPlane()[0:frame.WordSize]
	if bottom[frame.WordSize-1] != 1 {
		t.Fatalf("bottom after double SWAP1 = %d, want 1 (a, unchanged)", bottom[frame.WordSize-1])
	}
}
