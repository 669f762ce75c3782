// Package tracing defines the pre/post-operation callback contract the
// dispatch loop invokes when a tracer is attached, mirroring the host's
// TracerCallbacks vtable: two upcalls, no return value, called around every
// dispatched opcode.
package tracing

import "github.com/garyschulte/metaru/frame"

// OperationResult is the record passed to OnOperationEnd, matching the
// 16-byte ABI record (gas_cost int64, halt_reason uint32, pc_increment
// uint32) the host reads after each opcode.
type OperationResult struct {
	GasCost     int64
	HaltReason  frame.HaltReason
	PCIncrement uint32
}

// Hooks is the tracer contract. Either field may be nil; the dispatch loop
// checks each independently before calling it, so a tracer can subscribe to
// only pre- or only post-execution events.
type Hooks struct {
	// OnOperationStart is invoked before the handler for the opcode at the
	// frame's current pc runs. The tracer observes gas before consumption.
	OnOperationStart func(cb *frame.ControlBlock)

	// OnOperationEnd is invoked after gas has been charged for a
	// successfully dispatched opcode, before pc advances further. It is
	// not invoked for an opcode whose handler returned an error; that
	// path only ever produces one terminal halt, not a per-opcode result.
	OnOperationEnd func(cb *frame.ControlBlock, result OperationResult)
}
