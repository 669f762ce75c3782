package vm

import "github.com/garyschulte/metaru/frame"

// Memory is the word-granular, zero-fill-on-grow byte-addressable memory
// plane. It grows in 32-byte steps up to a hard ceiling; growth past the
// ceiling halts the frame rather than silently truncating.
type Memory struct {
	cb      *frame.ControlBlock
	region  []byte // full host-reserved capacity
	ceiling uint32
}

func newMemory(cb *frame.ControlBlock, ceiling uint32) *Memory {
	return &Memory{cb: cb, region: cb.MemoryRegion(ceiling), ceiling: ceiling}
}

func (m *Memory) Len() uint64 { return uint64(m.cb.MemorySize()) }

// Data returns the currently valid prefix of memory.
func (m *Memory) Data() []byte { return m.region[:m.cb.MemorySize()] }

// requiredSize rounds offset+size up to the next multiple of 32.
func requiredSize(offset, size uint64) uint64 {
	if size == 0 {
		return 0
	}
	total := offset + size
	return ((total + 31) / 32) * 32
}

// ensure grows memory so that [offset, offset+size) is valid, zero-filling
// any newly created bytes. It returns ErrMemoryLimit if the required size
// exceeds the configured ceiling.
func (m *Memory) ensure(offset, size uint64) error {
	if size == 0 {
		return nil
	}
	needed := requiredSize(offset, size)
	if needed > uint64(m.ceiling) {
		return halt(frame.HaltOutOfBounds, ErrMemoryLimit)
	}
	cur := uint64(m.cb.MemorySize())
	if needed <= cur {
		return nil
	}
	for i := cur; i < needed; i++ {
		m.region[i] = 0
	}
	m.cb.SetMemorySize(uint32(needed))
	return nil
}

// Set writes val at offset, growing memory first.
func (m *Memory) Set(offset uint64, val []byte) error {
	if err := m.ensure(offset, uint64(len(val))); err != nil {
		return err
	}
	copy(m.region[offset:], val)
	return nil
}

// SetByte writes the single low byte of val at offset, growing memory by 1.
func (m *Memory) SetByte(offset uint64, val byte) error {
	if err := m.ensure(offset, 1); err != nil {
		return err
	}
	m.region[offset] = val
	return nil
}

// Get returns a copy of size bytes at offset, growing memory first so reads
// past the current high-water mark observe zeros rather than panicking.
func (m *Memory) Get(offset, size uint64) ([]byte, error) {
	if err := m.ensure(offset, size); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, m.region[offset:offset+size])
	return out, nil
}

// GasCost returns the go-ethereum-style quadratic memory-expansion cost of
// growing memory to cover [offset, offset+size), used by the supplemental
// copy-family opcodes (CALLDATACOPY, CODECOPY, RETURNDATACOPY) that were not
// assigned a flat cost by the base handler table.
func (m *Memory) GasCost(offset, size uint64) (uint64, error) {
	if size == 0 {
		return 0, nil
	}
	needed := requiredSize(offset, size)
	if needed > uint64(m.ceiling) {
		return 0, halt(frame.HaltOutOfBounds, ErrMemoryLimit)
	}
	cur := uint64(m.cb.MemorySize())
	if needed <= cur {
		return 0, nil
	}
	return memoryGasCost(needed) - memoryGasCost(cur), nil
}

// memoryGasCost is go-ethereum's canonical formula: 3 gas per word plus a
// quadratic term that makes very large memory prohibitively expensive.
func memoryGasCost(size uint64) uint64 {
	words := size / 32
	linear := 3 * words
	quadratic := (words * words) / 512
	return linear + quadratic
}
