package vm

import (
	"github.com/garyschulte/metaru/frame"
	"github.com/garyschulte/metaru/vm/tracing"
)

// ScopeContext bundles the per-invocation state an opcode handler needs:
// the stack, memory, storage and code views, all aliased into the same
// shared control block.
type ScopeContext struct {
	CB       *frame.ControlBlock
	Stack    *Stack
	Memory   *Memory
	Storage  *Storage
	Contract *Contract
}

// Config selects the interpreter's build-time behavior, matching the
// specification's configuration options.
type Config struct {
	// UnassignedPolicy controls what happens when the dispatch table is
	// indexed by an opcode with no handler.
	UnassignedPolicy UnassignedPolicy
	// MemoryCeiling bounds memory-plane growth. Zero selects the default
	// (frame.MemoryCeiling, 1 MiB).
	MemoryCeiling uint32
	// Tracer, if non-nil, receives pre/post-operation callbacks.
	Tracer *tracing.Hooks
}

// Interpreter drives one message frame to halt over a shared control
// block. It holds no state of its own beyond configuration: everything
// mutable lives in the control block the caller supplies to Run.
type Interpreter struct {
	cfg   Config
	table *JumpTable
}

// NewInterpreter builds an interpreter with the given configuration.
func NewInterpreter(cfg Config) *Interpreter {
	if cfg.MemoryCeiling == 0 {
		cfg.MemoryCeiling = frame.MemoryCeiling
	}
	return &Interpreter{cfg: cfg, table: NewJumpTable(cfg.UnassignedPolicy)}
}

// Run executes cb's code plane to completion or to a halting condition,
// implementing the dispatch loop's state machine exactly:
//
//  1. state = EXECUTING.
//  2. Exit the loop once pc >= code_size or state != EXECUTING.
//  3. A gas_remaining < 3 floor check short-circuits before fetching an
//     opcode (the reference's cheap micro-optimization; the real per-opcode
//     check below still runs regardless).
//  4. Fetch the opcode and, if a tracer is attached, invoke its
//     pre-execution hook.
//  5. Validate the stack depth for the opcode, then invoke its handler.
//     A negative outcome (an error) sets EXCEPTIONAL_HALT with a specific
//     halt_reason and returns; nothing is charged.
//  6. If gas_remaining is insufficient for the handler's reported cost,
//     halt INSUFFICIENT_GAS without charging it.
//  7. Charge the cost, invoke the post-execution hook, advance pc (unless
//     the handler already repositioned it), and loop.
//
// On loop exit with state still EXECUTING, state becomes COMPLETED_SUCCESS.
func (in *Interpreter) Run(cb *frame.ControlBlock) {
	cb.SetState(frame.Executing)

	scope := &ScopeContext{
		CB:       cb,
		Stack:    newStack(cb),
		Memory:   newMemory(cb, in.cfg.MemoryCeiling),
		Storage:  newStorage(cb),
		Contract: newContract(cb),
	}

	pc := uint64(cb.PC())
	codeSize := scope.Contract.CodeSize()

	for {
		if pc >= codeSize || cb.State() != frame.Executing {
			break
		}
		if cb.GasRemaining() < 3 {
			cb.SetPC(uint32(pc))
			cb.Halt(frame.HaltInsufficientGas)
			return
		}

		op := scope.Contract.GetOp(pc)
		opFn := in.table[op]

		if in.cfg.Tracer != nil && in.cfg.Tracer.OnOperationStart != nil {
			cb.SetPC(uint32(pc))
			in.cfg.Tracer.OnOperationStart(cb)
		}

		if op == SSTORE && opFn.staticWriting && cb.IsStatic() {
			cb.SetPC(uint32(pc))
			cb.Halt(frame.HaltIllegalStateChange)
			return
		}

		if err := opFn.stackErr(scope.Stack.len()); err != nil {
			cb.SetPC(uint32(pc))
			cb.Halt(haltReasonFor(err))
			return
		}

		pcPtr := pc
		delta, cost, err := opFn.execute(&pcPtr, in, scope)
		if err != nil {
			cb.SetPC(uint32(pc))
			cb.Halt(haltReasonFor(err))
			return
		}

		if cb.GasRemaining() < int64(cost) {
			cb.SetPC(uint32(pc))
			cb.Halt(frame.HaltInsufficientGas)
			return
		}
		cb.SetGasRemaining(cb.GasRemaining() - int64(cost))

		if delta == 0 {
			pc = pcPtr
			cb.SetPC(uint32(pc))
		}

		if in.cfg.Tracer != nil && in.cfg.Tracer.OnOperationEnd != nil {
			in.cfg.Tracer.OnOperationEnd(cb, tracing.OperationResult{
				GasCost:     int64(cost),
				HaltReason:  frame.HaltNone,
				PCIncrement: uint32(delta),
			})
		}

		if delta != 0 {
			pc = pcPtr + uint64(delta)
			cb.SetPC(uint32(pc))
		}
	}

	if cb.State() == frame.Executing {
		cb.SetState(frame.CompletedSuccess)
	}
}
