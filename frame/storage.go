package frame

// Storage entry field offsets within one StorageEntrySize-byte record.
const (
	storeOffAddress  = 0
	storeOffKey      = 20
	storeOffValue    = 52
	storeOffOriginal = 84
	storeOffIsWarm   = 116
	// 117..124 padding
)

// StorageEntry is a zero-copy view over one 124-byte record of the flat
// storage plane: (address, key, value, original, is_warm). Every accessor
// aliases the backing region directly; there is no independent copy.
type StorageEntry struct {
	raw []byte
}

func (e StorageEntry) Address() []byte  { return e.raw[storeOffAddress : storeOffAddress+AddressSize] }
func (e StorageEntry) Key() []byte      { return e.raw[storeOffKey : storeOffKey+WordSize] }
func (e StorageEntry) Value() []byte    { return e.raw[storeOffValue : storeOffValue+WordSize] }
func (e StorageEntry) Original() []byte { return e.raw[storeOffOriginal : storeOffOriginal+WordSize] }
func (e StorageEntry) IsWarm() bool     { return e.raw[storeOffIsWarm] != 0 }
func (e StorageEntry) SetIsWarm(v bool) {
	if v {
		e.raw[storeOffIsWarm] = 1
	} else {
		e.raw[storeOffIsWarm] = 0
	}
}
func (e StorageEntry) SetValue(v []byte)    { copy(e.Value(), v) }
func (e StorageEntry) SetOriginal(v []byte) { copy(e.Original(), v) }

// StoragePlane is the flat, append-only array of StorageEntry records
// pre-populated by the host as the frame's witness.
type StoragePlane struct {
	cb *ControlBlock
}

// Storage returns the plane view for c, addressed at c's fixed storage base.
func (c *ControlBlock) Storage() StoragePlane { return StoragePlane{cb: c} }

// Count returns the number of live entries.
func (s StoragePlane) Count() uint32 { return s.cb.u32(OffWarmStorageCount) }

func (s StoragePlane) setCount(v uint32) { s.cb.setU32(OffWarmStorageCount, v) }

// Capacity returns max_storage_slots, the host-declared entry ceiling.
func (s StoragePlane) Capacity() uint32 { return s.cb.storageCapacity }

func (s StoragePlane) entryAt(i uint32) StorageEntry {
	off := s.cb.storageBase + uint64(i)*StorageEntrySize
	return StorageEntry{raw: s.cb.mem[off : off+StorageEntrySize]}
}

// Find performs the linear (address, key) scan mandated by the storage
// plane's lookup contract, returning the first match.
func (s StoragePlane) Find(address, key []byte) (StorageEntry, bool) {
	n := s.Count()
	for i := uint32(0); i < n; i++ {
		e := s.entryAt(i)
		if bytesEqual(e.Address(), address) && bytesEqual(e.Key(), key) {
			return e, true
		}
	}
	return StorageEntry{}, false
}

// Add appends a new entry for (address, key), zero-initialized (value and
// original both zero, cold), and returns it. ok is false once Count reaches
// Capacity.
func (s StoragePlane) Add(address, key []byte) (entry StorageEntry, ok bool) {
	n := s.Count()
	if n >= s.Capacity() {
		return StorageEntry{}, false
	}
	e := s.entryAt(n)
	copy(e.Address(), address)
	copy(e.Key(), key)
	zero := make([]byte, WordSize)
	e.SetValue(zero)
	e.SetOriginal(zero)
	e.SetIsWarm(false)
	s.setCount(n + 1)
	return e, true
}
