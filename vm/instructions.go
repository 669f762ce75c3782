package vm

import (
	"github.com/garyschulte/metaru/frame"
	"github.com/garyschulte/metaru/word"
)

// Every handler below follows the same shape: pop operands (aliased words,
// safe to overwrite since the dispatch loop already validated stack depth),
// compute the result in place, push it, and report (pcDelta, gasCost, nil).
// Arithmetic and comparison opcodes operate on the low 64 bits only, per
// the documented reference-interpreter shortcut in package word.

func opStop(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	scope.CB.SetState(frame.CompletedSuccess)
	return 0, GasZeroStep, nil
}

func opNoop(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	return 1, GasFastestStep, nil
}

func opInvalid(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	return 0, 0, halt(frame.HaltInvalidOperation, ErrInvalidOpCode)
}

// binaryOp64 implements the low-64-bit-limb arithmetic family: pop two
// words, combine their low 64 bits with fn, write the result into the
// (now-scratch) top slot, and push nothing new (in place update).
func binaryOp64(scope *ScopeContext, fn func(a, b uint64) uint64) {
	b, _ := scope.Stack.pop()
	bVal := word.ReadU64Low(b)
	a := scope.Stack.peek()
	aVal := word.ReadU64Low(a)
	word.WriteU64Low(a, fn(aVal, bVal))
}

func opAdd(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	binaryOp64(scope, func(a, b uint64) uint64 { return a + b })
	return 1, GasFastestStep, nil
}

func opMul(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	binaryOp64(scope, func(a, b uint64) uint64 { return a * b })
	return 1, GasFastStep, nil
}

func opSub(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	binaryOp64(scope, func(a, b uint64) uint64 { return a - b })
	return 1, GasFastestStep, nil
}

func opDiv(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	binaryOp64(scope, func(a, b uint64) uint64 {
		if b == 0 {
			return 0
		}
		return a / b
	})
	return 1, GasFastStep, nil
}

func opSdiv(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	b, _ := scope.Stack.pop()
	bVal := word.ReadI64Low(b)
	a := scope.Stack.peek()
	aVal := word.ReadI64Low(a)
	var res int64
	if bVal != 0 {
		res = aVal / bVal
	}
	word.WriteU64Low(a, uint64(res))
	return 1, GasFastStep, nil
}

func opMod(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	binaryOp64(scope, func(a, b uint64) uint64 {
		if b == 0 {
			return 0
		}
		return a % b
	})
	return 1, GasFastStep, nil
}

func opSmod(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	b, _ := scope.Stack.pop()
	bVal := word.ReadI64Low(b)
	a := scope.Stack.peek()
	aVal := word.ReadI64Low(a)
	var res int64
	if bVal != 0 {
		res = aVal % bVal
	}
	word.WriteU64Low(a, uint64(res))
	return 1, GasFastStep, nil
}

func opAddmod(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	c, _ := scope.Stack.pop()
	b, _ := scope.Stack.pop()
	cVal, bVal := word.ReadU64Low(c), word.ReadU64Low(b)
	a := scope.Stack.peek()
	aVal := word.ReadU64Low(a)
	var res uint64
	if cVal != 0 {
		res = (aVal + bVal) % cVal
	}
	word.WriteU64Low(a, res)
	return 1, GasMidStep, nil
}

func opMulmod(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	c, _ := scope.Stack.pop()
	b, _ := scope.Stack.pop()
	cVal, bVal := word.ReadU64Low(c), word.ReadU64Low(b)
	a := scope.Stack.peek()
	aVal := word.ReadU64Low(a)
	var res uint64
	if cVal != 0 {
		res = (aVal * bVal) % cVal
	}
	word.WriteU64Low(a, res)
	return 1, GasMidStep, nil
}

func opSignExtend(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	binaryOp64(scope, func(byteNum, val uint64) uint64 {
		if byteNum >= 8 {
			return val
		}
		bit := uint(byteNum*8 + 7)
		mask := uint64(1) << bit
		if val&mask != 0 {
			return val | (^uint64(0) << (bit + 1))
		}
		return val &^ (^uint64(0) << (bit + 1))
	})
	return 1, GasFastStep, nil
}

func boolWord(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func opLt(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	binaryOp64(scope, func(a, b uint64) uint64 { return boolWord(a < b) })
	return 1, GasFastestStep, nil
}

func opGt(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	binaryOp64(scope, func(a, b uint64) uint64 { return boolWord(a > b) })
	return 1, GasFastestStep, nil
}

func opSlt(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	b, _ := scope.Stack.pop()
	bVal := word.ReadI64Low(b)
	a := scope.Stack.peek()
	aVal := word.ReadI64Low(a)
	word.WriteU64Low(a, boolWord(aVal < bVal))
	return 1, GasFastestStep, nil
}

func opSgt(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	b, _ := scope.Stack.pop()
	bVal := word.ReadI64Low(b)
	a := scope.Stack.peek()
	aVal := word.ReadI64Low(a)
	word.WriteU64Low(a, boolWord(aVal > bVal))
	return 1, GasFastestStep, nil
}

func opEq(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	b, _ := scope.Stack.pop()
	a := scope.Stack.peek()
	eq := true
	for i := range a {
		if a[i] != b[i] {
			eq = false
			break
		}
	}
	for i := range a {
		a[i] = 0
	}
	if eq {
		a[frame.WordSize-1] = 1
	}
	return 1, GasFastestStep, nil
}

func opIszero(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	a := scope.Stack.peek()
	isZero := word.IsZero(a)
	for i := range a {
		a[i] = 0
	}
	if isZero {
		a[frame.WordSize-1] = 1
	}
	return 1, GasFastestStep, nil
}

func bytewiseOp(scope *ScopeContext, fn func(a, b byte) byte) {
	b, _ := scope.Stack.pop()
	a := scope.Stack.peek()
	for i := range a {
		a[i] = fn(a[i], b[i])
	}
}

func opAnd(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	bytewiseOp(scope, func(a, b byte) byte { return a & b })
	return 1, GasFastestStep, nil
}

func opOr(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	bytewiseOp(scope, func(a, b byte) byte { return a | b })
	return 1, GasFastestStep, nil
}

func opXor(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	bytewiseOp(scope, func(a, b byte) byte { return a ^ b })
	return 1, GasFastestStep, nil
}

func opNot(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	a := scope.Stack.peek()
	for i := range a {
		a[i] = ^a[i]
	}
	return 1, GasFastestStep, nil
}

func opByte(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	val, _ := scope.Stack.pop()
	idxWord := scope.Stack.peek()
	idx := word.ReadU64Low(idxWord)
	var out byte
	if idx < frame.WordSize {
		out = val[idx]
	}
	for i := range idxWord {
		idxWord[i] = 0
	}
	idxWord[frame.WordSize-1] = out
	return 1, GasFastestStep, nil
}

func opShl(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	binaryOp64(scope, func(shift, val uint64) uint64 {
		if shift >= 64 {
			return 0
		}
		return val << shift
	})
	return 1, GasFastestStep, nil
}

func opShr(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	binaryOp64(scope, func(shift, val uint64) uint64 {
		if shift >= 64 {
			return 0
		}
		return val >> shift
	})
	return 1, GasFastestStep, nil
}

func opSar(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	shiftW, _ := scope.Stack.pop()
	shift := word.ReadU64Low(shiftW)
	valW := scope.Stack.peek()
	val := word.ReadI64Low(valW)
	var res int64
	if shift >= 63 {
		if val < 0 {
			res = -1
		}
	} else {
		res = val >> shift
	}
	word.WriteU64Low(valW, uint64(res))
	return 1, GasFastestStep, nil
}

// pushAddress pushes a 20-byte address right-aligned into a fresh 32-byte
// word, matching how Ethereum represents addresses on the stack.
func pushAddress(scope *ScopeContext, addr [frame.AddressSize]byte) error {
	var w [frame.WordSize]byte
	copy(w[frame.WordSize-frame.AddressSize:], addr[:])
	return scope.Stack.push(w[:])
}

func opAddress(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	if err := pushAddress(scope, scope.CB.Contract()); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

func opOrigin(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	if err := pushAddress(scope, scope.CB.Originator()); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

func opCaller(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	if err := pushAddress(scope, scope.CB.Sender()); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

func opCoinbase(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	if err := pushAddress(scope, scope.CB.MiningBeneficiary()); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

func opCallValue(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	if err := scope.Stack.push(scope.CB.Value()); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

func opGasPrice(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	if err := scope.Stack.push(scope.CB.GasPrice()); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

func opCallDataLoad(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	offW := scope.Stack.peek()
	off := word.ReadU64Low(offW)
	input := scope.CB.Input()
	var out [frame.WordSize]byte
	for i := 0; i < frame.WordSize; i++ {
		idx := off + uint64(i)
		if idx < uint64(len(input)) {
			out[i] = input[idx]
		}
	}
	copy(offW, out[:])
	return 1, GasFastestStep, nil
}

func opCallDataSize(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	var w [frame.WordSize]byte
	word.WriteU64Low(w[:], uint64(scope.CB.InputSize()))
	if err := scope.Stack.push(w[:]); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

// copyToMemory implements the CALLDATACOPY/CODECOPY/RETURNDATACOPY family:
// pop (destOffset, srcOffset, size), grow memory, copy size bytes from src
// (right-zero-padded past its end) into memory at destOffset.
func copyToMemory(scope *ScopeContext, src []byte) (uint64, error) {
	destOffW, _ := scope.Stack.pop()
	srcOffW, _ := scope.Stack.pop()
	sizeW, _ := scope.Stack.pop()
	destOff := word.ReadU64Low(destOffW)
	srcOff := word.ReadU64Low(srcOffW)
	size := word.ReadU64Low(sizeW)

	expansion, err := scope.Memory.GasCost(destOff, size)
	if err != nil {
		return 0, err
	}
	if err := scope.Memory.ensure(destOff, size); err != nil {
		return 0, err
	}
	buf := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		idx := srcOff + i
		if idx < uint64(len(src)) {
			buf[i] = src[idx]
		}
	}
	if err := scope.Memory.Set(destOff, buf); err != nil {
		return 0, err
	}
	cost, overflow := addUint64Overflow(GasCopy*wordCount(size), expansion)
	if overflow {
		return 0, halt(frame.HaltInsufficientGas, ErrGasUintOverflow)
	}
	return cost, nil
}

func opCallDataCopy(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	cost, err := copyToMemory(scope, scope.CB.Input())
	if err != nil {
		return 0, 0, err
	}
	return 1, GasFastestStep + cost, nil
}

func opCodeSize(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	var w [frame.WordSize]byte
	word.WriteU64Low(w[:], scope.Contract.CodeSize())
	if err := scope.Stack.push(w[:]); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

func opCodeCopy(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	cost, err := copyToMemory(scope, scope.Contract.code)
	if err != nil {
		return 0, 0, err
	}
	return 1, GasFastestStep + cost, nil
}

func opReturnDataSize(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	var w [frame.WordSize]byte
	word.WriteU64Low(w[:], uint64(scope.CB.ReturnDataSize()))
	if err := scope.Stack.push(w[:]); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

// opReturnDataCopy does not share copyToMemory's silent zero-pad behavior:
// EIP-211 requires a range extending past the return-data plane's end to
// halt, not to read as zeros.
func opReturnDataCopy(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	destOffW, _ := scope.Stack.pop()
	srcOffW, _ := scope.Stack.pop()
	sizeW, _ := scope.Stack.pop()
	destOff := word.ReadU64Low(destOffW)
	srcOff := word.ReadU64Low(srcOffW)
	size := word.ReadU64Low(sizeW)

	returnData := scope.CB.ReturnData()
	end, overflow := addUint64Overflow(srcOff, size)
	if overflow || uint64(len(returnData)) < end {
		return 0, 0, halt(frame.HaltOutOfBounds, ErrReturnDataOutOfBounds)
	}

	expansion, err := scope.Memory.GasCost(destOff, size)
	if err != nil {
		return 0, 0, err
	}
	if err := scope.Memory.Set(destOff, returnData[srcOff:end]); err != nil {
		return 0, 0, err
	}
	cost, overflow := addUint64Overflow(GasCopy*wordCount(size), expansion)
	if overflow {
		return 0, 0, halt(frame.HaltInsufficientGas, ErrGasUintOverflow)
	}
	return 1, GasFastestStep + cost, nil
}

func opPop(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	if _, err := scope.Stack.pop(); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

func opMload(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	offW := scope.Stack.peek()
	off := word.ReadU64Low(offW)
	if err := scope.Memory.ensure(off, frame.WordSize); err != nil {
		return 0, 0, err
	}
	val, err := scope.Memory.Get(off, frame.WordSize)
	if err != nil {
		return 0, 0, err
	}
	copy(offW, val)
	return 1, GasFastestStep, nil
}

func opMstore(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	offW, _ := scope.Stack.pop()
	val, _ := scope.Stack.pop()
	off := word.ReadU64Low(offW)
	if err := scope.Memory.Set(off, val); err != nil {
		return 0, 0, err
	}
	return 1, GasFastestStep, nil
}

func opMstore8(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	offW, _ := scope.Stack.pop()
	val, _ := scope.Stack.pop()
	off := word.ReadU64Low(offW)
	if err := scope.Memory.SetByte(off, val[frame.WordSize-1]); err != nil {
		return 0, 0, err
	}
	return 1, GasFastestStep, nil
}

func opMsize(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	var w [frame.WordSize]byte
	word.WriteU64Low(w[:], scope.Memory.Len())
	if err := scope.Stack.push(w[:]); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

func opSload(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	keyW := scope.Stack.peek()
	contract := scope.CB.Contract()
	value, cost := scope.Storage.load(contract[:], keyW)
	copy(keyW, value[:])
	return 1, cost, nil
}

func opSstore(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	keyW, _ := scope.Stack.pop()
	valW, _ := scope.Stack.pop()
	contract := scope.CB.Contract()
	cost, refund, err := scope.Storage.store(contract[:], keyW, valW)
	if err != nil {
		return 0, 0, err
	}
	if refund != 0 {
		scope.CB.AddGasRefund(refund)
	}
	return 1, cost, nil
}

func opJump(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	destW, _ := scope.Stack.pop()
	dest := word.ReadU64Low(destW)
	if !scope.Contract.validJumpdest(dest) {
		return 0, 0, halt(frame.HaltInvalidJumpDestination, ErrInvalidJump)
	}
	*pc = dest
	return 0, GasMidStep, nil
}

func opJumpi(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	destW, _ := scope.Stack.pop()
	condW, _ := scope.Stack.pop()
	if word.IsZero(condW) {
		return 1, GasSlowStep, nil
	}
	dest := word.ReadU64Low(destW)
	if !scope.Contract.validJumpdest(dest) {
		return 0, 0, halt(frame.HaltInvalidJumpDestination, ErrInvalidJump)
	}
	*pc = dest
	return 0, GasSlowStep, nil
}

func opPc(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	var w [frame.WordSize]byte
	word.WriteU64Low(w[:], *pc)
	if err := scope.Stack.push(w[:]); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

func opGas(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	var w [frame.WordSize]byte
	word.WriteU64Low(w[:], uint64(scope.CB.GasRemaining()))
	if err := scope.Stack.push(w[:]); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

func opJumpdest(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	return 1, GasJumpdest, nil
}

func opPush0(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	if err := scope.Stack.pushZero(); err != nil {
		return 0, 0, err
	}
	return 1, GasQuickStep, nil
}

func makePush(n int) executionFunc {
	return func(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
		data := scope.Contract.PushData(*pc, n)
		var w [frame.WordSize]byte
		copy(w[frame.WordSize-n:], data)
		if err := scope.Stack.push(w[:]); err != nil {
			return 0, 0, err
		}
		return int64(n + 1), GasFastestStep, nil
	}
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
		if err := scope.Stack.dup(n); err != nil {
			return 0, 0, err
		}
		return 1, GasFastestStep, nil
	}
}

func makeSwap(n int) executionFunc {
	return func(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
		if err := scope.Stack.swap(n); err != nil {
			return 0, 0, err
		}
		return 1, GasFastestStep, nil
	}
}

func opReturn(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	offW, _ := scope.Stack.pop()
	sizeW, _ := scope.Stack.pop()
	off := word.ReadU64Low(offW)
	size := word.ReadU64Low(sizeW)
	data, err := scope.Memory.Get(off, size)
	if err != nil {
		return 0, 0, err
	}
	scope.CB.SetOutput(data)
	scope.CB.SetState(frame.CompletedSuccess)
	return 0, GasZeroStep, nil
}

func opRevert(pc *uint64, interp *Interpreter, scope *ScopeContext) (int64, uint64, error) {
	offW, _ := scope.Stack.pop()
	sizeW, _ := scope.Stack.pop()
	off := word.ReadU64Low(offW)
	size := word.ReadU64Low(sizeW)
	data, err := scope.Memory.Get(off, size)
	if err != nil {
		return 0, 0, err
	}
	scope.CB.SetOutput(data)
	scope.CB.SetState(frame.Revert)
	return 0, GasZeroStep, nil
}
