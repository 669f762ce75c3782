// Package runtime is a convenience harness for building a control block
// around a code plane and running it to completion, in the shape of
// go-ethereum's core/vm/runtime package: a small Execute/Config pair meant
// for tools and tests, not for the host bridge itself (which owns and lays
// out the real shared region).
package runtime

import (
	"encoding/binary"

	"github.com/garyschulte/metaru/frame"
	"github.com/garyschulte/metaru/vm"
	"github.com/garyschulte/metaru/vm/tracing"
)

// StorageWitnessEntry pre-populates one storage slot before execution,
// standing in for the host's witness-building step.
type StorageWitnessEntry struct {
	Address [frame.AddressSize]byte
	Key     [frame.WordSize]byte
	Value   [frame.WordSize]byte
	IsWarm  bool
}

// Config collects everything Execute needs to build a control block. Every
// field has a documented zero-value default so a caller can populate only
// what a given scenario cares about.
type Config struct {
	GasLimit uint64
	Value    [frame.WordSize]byte
	GasPrice [frame.WordSize]byte
	Input    []byte
	IsStatic bool
	Depth    uint32

	// ReturnData stands in for a child CALL/CREATE's result the host has
	// already resolved before this frame runs; it is not produced by any
	// opcode this interpreter implements, only read by RETURNDATASIZE and
	// RETURNDATACOPY.
	ReturnData []byte

	Recipient         [frame.AddressSize]byte
	Sender            [frame.AddressSize]byte
	Contract          [frame.AddressSize]byte
	Originator        [frame.AddressSize]byte
	MiningBeneficiary [frame.AddressSize]byte

	Storage []StorageWitnessEntry

	// MemoryCeiling and StorageCapacity bound the two variable-growth
	// planes; zero selects a generous default for ad hoc runs.
	MemoryCeiling   uint32
	StorageCapacity uint32

	UnassignedPolicy vm.UnassignedPolicy
	Tracer           *tracing.Hooks
}

const defaultStorageCapacity = 256

func (c *Config) setDefaults() {
	if c.GasLimit == 0 {
		c.GasLimit = 10_000_000
	}
	if c.MemoryCeiling == 0 {
		c.MemoryCeiling = frame.MemoryCeiling
	}
	if c.StorageCapacity == 0 {
		c.StorageCapacity = defaultStorageCapacity
	}
}

// Result is the frame's outcome, read back from the control block after Run
// returns.
type Result struct {
	Output     []byte
	State      frame.State
	HaltReason frame.HaltReason
	GasUsed    uint64
	GasRefund  int64
}

// Execute lays out a fresh control block for code, runs it to completion
// with a new interpreter, and reports the outcome. It never mutates cfg's
// slices beyond what the interpreter itself writes into the region it owns.
func Execute(code []byte, cfg *Config) (*Result, *frame.ControlBlock, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	const warmAddressCapacity = 64

	stackBytes := frame.StackCapacity * frame.WordSize
	memoryBytes := int(cfg.MemoryCeiling)
	codeBytes := len(code)
	inputBytes := len(cfg.Input)
	outputBytes := memoryBytes // output can be as large as memory can produce via RETURN
	returnDataBytes := len(cfg.ReturnData)
	warmAddressBytes := warmAddressCapacity * frame.AddressSize
	storageBytes := int(cfg.StorageCapacity) * frame.StorageEntrySize

	layout := newLayout(frame.ControlBlockSize)
	stackOff := layout.reserve(stackBytes)
	memoryOff := layout.reserve(memoryBytes)
	codeOff := layout.reserve(codeBytes)
	inputOff := layout.reserve(inputBytes)
	outputOff := layout.reserve(outputBytes)
	returnDataOff := layout.reserve(returnDataBytes)
	warmAddressOff := layout.reserve(warmAddressBytes)
	storageOff := layout.reserve(storageBytes)

	mem := make([]byte, layout.size)
	copy(mem[codeOff:], code)
	copy(mem[inputOff:], cfg.Input)

	putU64(mem, frame.OffStackPtr, stackOff)
	putU64(mem, frame.OffMemoryPtr, memoryOff)
	putU64(mem, frame.OffCodePtr, codeOff)
	putU64(mem, frame.OffInputPtr, inputOff)
	putU64(mem, frame.OffOutputPtr, outputOff)
	putU64(mem, frame.OffReturnDataPtr, returnDataOff)
	putU64(mem, frame.OffWarmAddressesPtr, warmAddressOff)

	putU32(mem, frame.OffCodeSize, uint32(codeBytes))
	putU32(mem, frame.OffInputSize, uint32(inputBytes))
	putU32(mem, frame.OffDepth, cfg.Depth)

	binary.LittleEndian.PutUint64(mem[frame.OffGasRemaining:], uint64(cfg.GasLimit))

	copy(mem[frame.OffRecipient:], cfg.Recipient[:])
	copy(mem[frame.OffSender:], cfg.Sender[:])
	copy(mem[frame.OffContract:], cfg.Contract[:])
	copy(mem[frame.OffOriginator:], cfg.Originator[:])
	copy(mem[frame.OffMiningBeneficiary:], cfg.MiningBeneficiary[:])
	copy(mem[frame.OffValue:], cfg.Value[:])
	copy(mem[frame.OffGasPrice:], cfg.GasPrice[:])

	if cfg.IsStatic {
		putU32(mem, frame.OffIsStatic, 1)
	}

	cb := frame.New(mem, storageOff, cfg.StorageCapacity)

	if len(cfg.ReturnData) > 0 {
		cb.SetReturnData(cfg.ReturnData)
	}

	plane := cb.Storage()
	for _, w := range cfg.Storage {
		e, ok := plane.Add(w.Address[:], w.Key[:])
		if !ok {
			break
		}
		e.SetValue(w.Value[:])
		e.SetOriginal(w.Value[:])
		e.SetIsWarm(w.IsWarm)
	}

	interp := vm.NewInterpreter(vm.Config{
		UnassignedPolicy: cfg.UnassignedPolicy,
		MemoryCeiling:    cfg.MemoryCeiling,
		Tracer:           cfg.Tracer,
	})

	gasBefore := cb.GasRemaining()
	interp.Run(cb)
	gasAfter := cb.GasRemaining()

	result := &Result{
		Output:     append([]byte(nil), cb.Output()...),
		State:      cb.State(),
		HaltReason: cb.HaltReason(),
		GasUsed:    uint64(gasBefore - gasAfter),
		GasRefund:  cb.GasRefund(),
	}
	return result, cb, nil
}

func putU32(mem []byte, off int, v uint32) { binary.LittleEndian.PutUint32(mem[off:off+4], v) }
func putU64(mem []byte, off int, v uint64) { binary.LittleEndian.PutUint64(mem[off:off+8], v) }

// layout hands out consecutive byte ranges starting after the fixed control
// block header, the way the host bridge would carve up one shared region.
type layout struct {
	size uint64
}

func newLayout(headerSize int) *layout { return &layout{size: uint64(headerSize)} }

func (l *layout) reserve(n int) uint64 {
	off := l.size
	l.size += uint64(n)
	return off
}
