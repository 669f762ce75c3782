package vm

import (
	"errors"
	"fmt"

	"github.com/garyschulte/metaru/frame"
)

// haltError carries the exceptional-halt reason a failed handler wants the
// dispatch loop to record. Every handler error resolves to exactly one of
// these instead of falling through to the loop's STACK_UNDERFLOW default,
// though that default remains the correct classification for a plain
// ErrStackUnderflow.
type haltError struct {
	reason frame.HaltReason
	err    error
}

func (h *haltError) Error() string { return h.err.Error() }
func (h *haltError) Unwrap() error { return h.err }

func halt(reason frame.HaltReason, err error) error {
	return &haltError{reason: reason, err: err}
}

// ErrStackUnderflow is returned when an operation needs more operands than
// the stack currently holds.
type ErrStackUnderflow struct {
	StackLen, Required int
}

func (e *ErrStackUnderflow) Error() string {
	return fmt.Sprintf("stack underflow (%d <=> %d)", e.StackLen, e.Required)
}

// ErrStackOverflow is returned when an operation would push the stack past
// its 1024-entry capacity.
type ErrStackOverflow struct {
	StackLen, Limit int
}

func (e *ErrStackOverflow) Error() string {
	return fmt.Sprintf("stack limit reached %d (%d)", e.StackLen, e.Limit)
}

var (
	ErrInvalidJump           = errors.New("invalid jump destination")
	ErrWriteProtection       = errors.New("write protection")
	ErrOutOfGas              = errors.New("out of gas")
	ErrGasUintOverflow       = errors.New("gas uint64 overflow")
	ErrInvalidOpCode         = errors.New("invalid opcode")
	ErrMemoryLimit           = errors.New("memory limit exceeded")
	ErrStorageOverflow       = errors.New("storage plane capacity exceeded")
	ErrExecutionReverted     = errors.New("execution reverted")
	ErrReturnDataOutOfBounds = errors.New("return data out of bounds")
)

// haltReasonFor classifies err into the control block's halt-reason
// vocabulary. It is the single place that maps Go errors to the ABI's small
// integer codes, mirroring the dispatch loop's step-7 default but making
// every branch explicit instead of relying on a fallback.
func haltReasonFor(err error) frame.HaltReason {
	var he *haltError
	if errors.As(err, &he) {
		return he.reason
	}
	var underflow *ErrStackUnderflow
	var overflow *ErrStackOverflow
	switch {
	case errors.As(err, &underflow):
		return frame.HaltStackUnderflow
	case errors.As(err, &overflow):
		return frame.HaltStackOverflow
	case errors.Is(err, ErrInvalidJump):
		return frame.HaltInvalidJumpDestination
	case errors.Is(err, ErrWriteProtection):
		return frame.HaltIllegalStateChange
	case errors.Is(err, ErrOutOfGas), errors.Is(err, ErrGasUintOverflow):
		return frame.HaltInsufficientGas
	case errors.Is(err, ErrInvalidOpCode):
		return frame.HaltInvalidOperation
	case errors.Is(err, ErrMemoryLimit), errors.Is(err, ErrReturnDataOutOfBounds):
		return frame.HaltOutOfBounds
	case errors.Is(err, ErrStorageOverflow):
		return frame.HaltInvalidOperation
	default:
		return frame.HaltStackUnderflow
	}
}
