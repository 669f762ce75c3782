package vm

import "github.com/garyschulte/metaru/frame"

// executionFunc is the signature every opcode handler implements.
//
// On success it returns the distance to advance pc and the total gas the
// operation costs (base plus any dynamic component the handler computed
// itself, e.g. memory expansion or storage access class). A pcDelta of 0
// means the handler already updated *pc directly (JUMP, JUMPI-taken) and
// the dispatch loop must not advance it further.
//
// On failure it returns a non-nil error; the dispatch loop classifies the
// error into a halt reason and never charges the (meaningless) returned
// gas value. Per the resolved jump-gas ambiguity, handlers that need to
// validate before spending gas (JUMP, JUMPI, MLOAD/MSTORE against the
// memory ceiling) must return the error before computing or returning any
// cost. SSTORE in a static frame is rejected by the dispatch loop before
// the handler is called.
type executionFunc func(pc *uint64, interp *Interpreter, scope *ScopeContext) (pcDelta int64, gasCost uint64, err error)

// UnassignedPolicy selects what an opcode with no assigned handler does
// when dispatched.
type UnassignedPolicy int

const (
	// PolicyInvalidOperation halts with INVALID_OPERATION, the
	// conformance-mode behavior.
	PolicyInvalidOperation UnassignedPolicy = iota
	// PolicyNoOp consumes base gas and advances pc by one, the
	// development-mode behavior.
	PolicyNoOp
)

// operation describes one entry of the 256-slot dispatch table. numPop and
// numPush describe the operation's stack effect and are used by the
// dispatch loop to reject underflow and overflow before execute ever runs.
type operation struct {
	execute       executionFunc
	numPop        int
	numPush       int
	staticWriting bool
}

// stackErr validates a pending call against the current stack depth,
// returning the ErrStackUnderflow/ErrStackOverflow the dispatch loop needs.
func (o *operation) stackErr(depth int) error {
	if depth < o.numPop {
		return &ErrStackUnderflow{StackLen: depth, Required: o.numPop}
	}
	if depth-o.numPop+o.numPush > frame.StackCapacity {
		return &ErrStackOverflow{StackLen: depth, Limit: frame.StackCapacity}
	}
	return nil
}

// JumpTable is the fixed 256-entry opcode dispatch table.
type JumpTable [256]*operation

// NewJumpTable builds the dispatch table, filling every unassigned slot
// per policy.
func NewJumpTable(policy UnassignedPolicy) *JumpTable {
	var stub *operation
	if policy == PolicyNoOp {
		stub = &operation{execute: opNoop}
	} else {
		stub = &operation{execute: opInvalid}
	}

	jt := &JumpTable{}
	for i := range jt {
		jt[i] = stub
	}

	set := func(op OpCode, o operation) { jt[op] = &o }

	set(STOP, operation{execute: opStop})
	set(ADD, operation{execute: opAdd, numPop: 2, numPush: 1})
	set(MUL, operation{execute: opMul, numPop: 2, numPush: 1})
	set(SUB, operation{execute: opSub, numPop: 2, numPush: 1})
	set(DIV, operation{execute: opDiv, numPop: 2, numPush: 1})
	set(SDIV, operation{execute: opSdiv, numPop: 2, numPush: 1})
	set(MOD, operation{execute: opMod, numPop: 2, numPush: 1})
	set(SMOD, operation{execute: opSmod, numPop: 2, numPush: 1})
	set(ADDMOD, operation{execute: opAddmod, numPop: 3, numPush: 1})
	set(MULMOD, operation{execute: opMulmod, numPop: 3, numPush: 1})
	set(SIGNEXTEND, operation{execute: opSignExtend, numPop: 2, numPush: 1})

	set(LT, operation{execute: opLt, numPop: 2, numPush: 1})
	set(GT, operation{execute: opGt, numPop: 2, numPush: 1})
	set(SLT, operation{execute: opSlt, numPop: 2, numPush: 1})
	set(SGT, operation{execute: opSgt, numPop: 2, numPush: 1})
	set(EQ, operation{execute: opEq, numPop: 2, numPush: 1})
	set(ISZERO, operation{execute: opIszero, numPop: 1, numPush: 1})
	set(AND, operation{execute: opAnd, numPop: 2, numPush: 1})
	set(OR, operation{execute: opOr, numPop: 2, numPush: 1})
	set(XOR, operation{execute: opXor, numPop: 2, numPush: 1})
	set(NOT, operation{execute: opNot, numPop: 1, numPush: 1})
	set(BYTE, operation{execute: opByte, numPop: 2, numPush: 1})
	set(SHL, operation{execute: opShl, numPop: 2, numPush: 1})
	set(SHR, operation{execute: opShr, numPop: 2, numPush: 1})
	set(SAR, operation{execute: opSar, numPop: 2, numPush: 1})

	set(ADDRESS, operation{execute: opAddress, numPush: 1})
	set(ORIGIN, operation{execute: opOrigin, numPush: 1})
	set(CALLER, operation{execute: opCaller, numPush: 1})
	set(CALLVALUE, operation{execute: opCallValue, numPush: 1})
	set(CALLDATALOAD, operation{execute: opCallDataLoad, numPop: 1, numPush: 1})
	set(CALLDATASIZE, operation{execute: opCallDataSize, numPush: 1})
	set(CALLDATACOPY, operation{execute: opCallDataCopy, numPop: 3})
	set(CODESIZE, operation{execute: opCodeSize, numPush: 1})
	set(CODECOPY, operation{execute: opCodeCopy, numPop: 3})
	set(GASPRICE, operation{execute: opGasPrice, numPush: 1})
	set(RETURNDATASIZE, operation{execute: opReturnDataSize, numPush: 1})
	set(RETURNDATACOPY, operation{execute: opReturnDataCopy, numPop: 3})
	set(COINBASE, operation{execute: opCoinbase, numPush: 1})

	set(POP, operation{execute: opPop, numPop: 1})
	set(MLOAD, operation{execute: opMload, numPop: 1, numPush: 1})
	set(MSTORE, operation{execute: opMstore, numPop: 2})
	set(MSTORE8, operation{execute: opMstore8, numPop: 2})
	set(SLOAD, operation{execute: opSload, numPop: 1, numPush: 1})
	set(SSTORE, operation{execute: opSstore, numPop: 2, staticWriting: true})
	set(JUMP, operation{execute: opJump, numPop: 1})
	set(JUMPI, operation{execute: opJumpi, numPop: 2})
	set(PC, operation{execute: opPc, numPush: 1})
	set(MSIZE, operation{execute: opMsize, numPush: 1})
	set(GAS, operation{execute: opGas, numPush: 1})
	set(JUMPDEST, operation{execute: opJumpdest})

	set(PUSH0, operation{execute: opPush0, numPush: 1})
	for i := 0; i < 32; i++ {
		n := i + 1
		set(PUSH1+OpCode(i), operation{execute: makePush(n), numPush: 1})
	}
	for i := 0; i < 16; i++ {
		n := i + 1
		set(DUP1+OpCode(i), operation{execute: makeDup(n), numPop: n, numPush: n + 1})
	}
	for i := 0; i < 16; i++ {
		n := i + 1
		set(SWAP1+OpCode(i), operation{execute: makeSwap(n), numPop: n + 1, numPush: n + 1})
	}

	set(RETURN, operation{execute: opReturn, numPop: 2})
	set(REVERT, operation{execute: opRevert, numPop: 2})
	set(INVALID, operation{execute: opInvalid})

	return jt
}
