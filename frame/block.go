package frame

import "encoding/binary"

// ControlBlock is a thin, zero-copy view over a host-owned byte region. It
// never holds its own storage; every accessor reads or writes directly into
// the backing slice at the offsets fixed in layout.go.
//
// The 384-byte header carries a pointer for every plane except storage: per
// §3.5 the storage plane's base and its capacity (max_storage_slots) are
// "control-block-adjacent fields" the host supplies alongside the header
// rather than inside its fixed 40-byte reserved tail. storageBase and
// storageCapacity model that adjacency directly instead of overloading the
// warm-address pointer, whose region grows during execution and so cannot
// double as a stable base for whatever follows it.
type ControlBlock struct {
	mem             []byte
	storageBase     uint64
	storageCapacity uint32
}

// New wraps mem as a ControlBlock. mem must be at least ControlBlockSize
// bytes; the caller (the host, or a test harness standing in for one) owns
// the backing array for the lifetime of the call. storageBase is the byte
// offset (from the start of mem) of the storage plane, and storageCapacity
// bounds how many entries may be appended to it.
func New(mem []byte, storageBase uint64, storageCapacity uint32) *ControlBlock {
	if len(mem) < ControlBlockSize {
		panic("frame: control block region smaller than ControlBlockSize")
	}
	return &ControlBlock{mem: mem, storageBase: storageBase, storageCapacity: storageCapacity}
}

// Bytes returns the full shared region, control block header included.
func (c *ControlBlock) Bytes() []byte { return c.mem }

func (c *ControlBlock) u32(off int) uint32 { return binary.LittleEndian.Uint32(c.mem[off : off+4]) }
func (c *ControlBlock) setU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(c.mem[off:off+4], v)
}
func (c *ControlBlock) u64(off int) uint64 { return binary.LittleEndian.Uint64(c.mem[off : off+8]) }
func (c *ControlBlock) setU64(off int, v uint64) {
	binary.LittleEndian.PutUint64(c.mem[off:off+8], v)
}

func (c *ControlBlock) PC() uint32     { return c.u32(OffPC) }
func (c *ControlBlock) SetPC(v uint32) { c.setU32(OffPC, v) }

func (c *ControlBlock) Section() uint32     { return c.u32(OffSection) }
func (c *ControlBlock) SetSection(v uint32) { c.setU32(OffSection, v) }

func (c *ControlBlock) GasRemaining() int64     { return int64(c.u64(OffGasRemaining)) }
func (c *ControlBlock) SetGasRemaining(v int64) { c.setU64(OffGasRemaining, uint64(v)) }

func (c *ControlBlock) GasRefund() int64     { return int64(c.u64(OffGasRefund)) }
func (c *ControlBlock) SetGasRefund(v int64) { c.setU64(OffGasRefund, uint64(v)) }
func (c *ControlBlock) AddGasRefund(delta int64) {
	c.SetGasRefund(c.GasRefund() + delta)
}

func (c *ControlBlock) StackSize() uint32     { return c.u32(OffStackSize) }
func (c *ControlBlock) SetStackSize(v uint32) { c.setU32(OffStackSize, v) }

func (c *ControlBlock) MemorySize() uint32     { return c.u32(OffMemorySize) }
func (c *ControlBlock) SetMemorySize(v uint32) { c.setU32(OffMemorySize, v) }

func (c *ControlBlock) State() State      { return State(c.u32(OffState)) }
func (c *ControlBlock) SetState(s State)  { c.setU32(OffState, uint32(s)) }
func (c *ControlBlock) Type() FrameType   { return FrameType(c.u32(OffType)) }
func (c *ControlBlock) IsStatic() bool    { return c.u32(OffIsStatic) != 0 }
func (c *ControlBlock) SetIsStatic(v bool) {
	if v {
		c.setU32(OffIsStatic, 1)
	} else {
		c.setU32(OffIsStatic, 0)
	}
}
func (c *ControlBlock) Depth() uint32 { return c.u32(OffDepth) }

func (c *ControlBlock) HaltReason() HaltReason     { return HaltReason(c.u32(OffHaltReason)) }
func (c *ControlBlock) SetHaltReason(h HaltReason) { c.setU32(OffHaltReason, uint32(h)) }

// Halt is a convenience combining the exceptional-halt transition: it sets
// state to ExceptionalHalt and records the reason in one call.
func (c *ControlBlock) Halt(reason HaltReason) {
	c.SetState(ExceptionalHalt)
	c.SetHaltReason(reason)
}

func (c *ControlBlock) stackPtr() uint64         { return c.u64(OffStackPtr) }
func (c *ControlBlock) memoryPtr() uint64        { return c.u64(OffMemoryPtr) }
func (c *ControlBlock) codePtr() uint64          { return c.u64(OffCodePtr) }
func (c *ControlBlock) inputPtr() uint64         { return c.u64(OffInputPtr) }
func (c *ControlBlock) outputPtr() uint64        { return c.u64(OffOutputPtr) }
func (c *ControlBlock) returnDataPtr() uint64    { return c.u64(OffReturnDataPtr) }
func (c *ControlBlock) warmAddressesPtr() uint64 { return c.u64(OffWarmAddressesPtr) }

func (c *ControlBlock) CodeSize() uint32       { return c.u32(OffCodeSize) }
func (c *ControlBlock) InputSize() uint32      { return c.u32(OffInputSize) }
func (c *ControlBlock) OutputSize() uint32     { return c.u32(OffOutputSize) }
func (c *ControlBlock) SetOutputSize(v uint32) { c.setU32(OffOutputSize, v) }
func (c *ControlBlock) ReturnDataSize() uint32 { return c.u32(OffReturnDataSize) }
func (c *ControlBlock) SetReturnDataSize(v uint32) {
	c.setU32(OffReturnDataSize, v)
}
func (c *ControlBlock) WarmAddressesCount() uint32 { return c.u32(OffWarmAddressesCount) }
func (c *ControlBlock) SetWarmAddressesCount(v uint32) {
	c.setU32(OffWarmAddressesCount, v)
}

// StackPlane returns the fixed-capacity byte slice reserved for the stack,
// aliased directly into the shared region.
func (c *ControlBlock) StackPlane() []byte {
	p := c.stackPtr()
	return c.mem[p : p+StackCapacity*WordSize]
}

// MemoryPlane returns the currently valid prefix of the memory plane
// (length MemorySize()). Growth is handled by vm.Memory, which slices
// further into the same backing region.
func (c *ControlBlock) MemoryPlane() []byte {
	p := c.memoryPtr()
	return c.mem[p : p+uint64(c.MemorySize())]
}

// MemoryRegion returns the full host-reserved memory region, capacity
// bytes long, so growth code can validate against the host-provided ceiling
// without slicing out of bounds.
func (c *ControlBlock) MemoryRegion(capacity uint32) []byte {
	p := c.memoryPtr()
	return c.mem[p : p+uint64(capacity)]
}

// Code returns the immutable code plane.
func (c *ControlBlock) Code() []byte {
	p := c.codePtr()
	return c.mem[p : p+uint64(c.CodeSize())]
}

// Input returns the calldata plane.
func (c *ControlBlock) Input() []byte {
	p := c.inputPtr()
	return c.mem[p : p+uint64(c.InputSize())]
}

// Output returns the currently valid prefix of the output plane.
func (c *ControlBlock) Output() []byte {
	p := c.outputPtr()
	return c.mem[p : p+uint64(c.OutputSize())]
}

// SetOutput copies data into the output plane starting at offset 0 and
// records its length. The host must have reserved enough capacity.
func (c *ControlBlock) SetOutput(data []byte) {
	p := c.outputPtr()
	copy(c.mem[p:], data)
	c.SetOutputSize(uint32(len(data)))
}

// ReturnData returns the currently valid prefix of the return-data plane
// (populated by a child CALL/CREATE the host has already resolved).
func (c *ControlBlock) ReturnData() []byte {
	p := c.returnDataPtr()
	return c.mem[p : p+uint64(c.ReturnDataSize())]
}

// SetReturnData copies data into the return-data plane and records its
// length; vm/runtime uses it to seed the return data of a child call the
// host has already resolved. RETURN/REVERT write the output plane instead
// (SetOutput).
func (c *ControlBlock) SetReturnData(data []byte) {
	p := c.returnDataPtr()
	copy(c.mem[p:], data)
	c.SetReturnDataSize(uint32(len(data)))
}

func (c *ControlBlock) address(off int) [AddressSize]byte {
	var a [AddressSize]byte
	copy(a[:], c.mem[off:off+AddressSize])
	return a
}

func (c *ControlBlock) Recipient() [AddressSize]byte         { return c.address(OffRecipient) }
func (c *ControlBlock) Sender() [AddressSize]byte            { return c.address(OffSender) }
func (c *ControlBlock) Contract() [AddressSize]byte          { return c.address(OffContract) }
func (c *ControlBlock) Originator() [AddressSize]byte        { return c.address(OffOriginator) }
func (c *ControlBlock) MiningBeneficiary() [AddressSize]byte { return c.address(OffMiningBeneficiary) }

func (c *ControlBlock) word(off int) []byte { return c.mem[off : off+WordSize] }

func (c *ControlBlock) Value() []byte         { return c.word(OffValue) }
func (c *ControlBlock) ApparentValue() []byte { return c.word(OffApparentValue) }
func (c *ControlBlock) GasPrice() []byte      { return c.word(OffGasPrice) }

// WarmAddresses returns the raw byte slice backing the warm-address list,
// AddressSize bytes per entry, WarmAddressesCount entries valid.
func (c *ControlBlock) WarmAddresses() []byte {
	p := c.warmAddressesPtr()
	return c.mem[p : p+uint64(c.WarmAddressesCount())*AddressSize]
}

// AppendWarmAddress marks addr warm, appending it to the warm-address list
// if it is not already present. It does not check the host-reserved
// capacity of the list; callers must check WarmAddressesCount against
// their own capacity before calling.
func (c *ControlBlock) AppendWarmAddress(addr [AddressSize]byte) {
	list := c.WarmAddresses()
	for i := 0; i+AddressSize <= len(list); i += AddressSize {
		if bytesEqual(list[i:i+AddressSize], addr[:]) {
			return
		}
	}
	p := c.warmAddressesPtr()
	n := c.WarmAddressesCount()
	off := p + uint64(n)*AddressSize
	copy(c.mem[off:off+AddressSize], addr[:])
	c.SetWarmAddressesCount(n + 1)
}

// IsAddressWarm reports whether addr has already been recorded warm.
func (c *ControlBlock) IsAddressWarm(addr [AddressSize]byte) bool {
	list := c.WarmAddresses()
	for i := 0; i+AddressSize <= len(list); i += AddressSize {
		if bytesEqual(list[i:i+AddressSize], addr[:]) {
			return true
		}
	}
	return false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
