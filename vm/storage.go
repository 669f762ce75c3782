package vm

import (
	"github.com/garyschulte/metaru/frame"
	"github.com/garyschulte/metaru/word"
)

// gas costs for the storage plane's warm/cold access and EIP-2200
// net-metering rules.
const (
	sloadWarmGas      = 100
	sloadColdGas      = 2100
	sstoreWarmGas     = 100
	sstoreColdGas     = 2100
	sstoreSetGas      = 20000
	sstoreClearRefund = 4800
)

// Storage wraps the frame's flat storage plane with the higher-level
// SLOAD/SSTORE semantics: warm/cold access tracking (EIP-2929) and
// net-metered gas plus refunds (EIP-2200).
type Storage struct {
	plane frame.StoragePlane
}

func newStorage(cb *frame.ControlBlock) *Storage {
	return &Storage{plane: cb.Storage()}
}

// load implements SLOAD: it looks up (address, key), marks the entry warm,
// and returns the current value (or the zero word for an absent slot) along
// with the gas the access costs.
func (s *Storage) load(address, key []byte) (value [frame.WordSize]byte, gasCost uint64) {
	if e, ok := s.plane.Find(address, key); ok {
		copy(value[:], e.Value())
		if e.IsWarm() {
			gasCost = sloadWarmGas
		} else {
			gasCost = sloadColdGas
			e.SetIsWarm(true)
		}
		return value, gasCost
	}
	// Absent slot: EIP-2200's "original" is the value observed at first
	// access during the frame. Since nothing has been recorded yet, that
	// value is implicitly zero, so the entry we create now correctly
	// starts both value and original at zero (see DESIGN.md).
	e, ok := s.plane.Add(address, key)
	if !ok {
		gasCost = sloadColdGas
		return value, gasCost
	}
	e.SetIsWarm(true)
	return value, sloadColdGas
}

// store implements SSTORE's EIP-2200 net-gas table. isStatic must already
// have been checked by the caller; store never re-checks it.
func (s *Storage) store(address, key, newValue []byte) (gasCost uint64, refund int64, err error) {
	e, ok := s.plane.Find(address, key)
	if !ok {
		e, ok = s.plane.Add(address, key)
		if !ok {
			return 0, 0, halt(frame.HaltInvalidOperation, ErrStorageOverflow)
		}
		// Add() already zero-initialized original: a slot absent from the
		// witness had no recorded value at frame entry, so EIP-2200's
		// "original" is 0 here, not this write's incoming value. See
		// DESIGN.md for why this departs from a literal reading of the
		// create-branch description.
		e.SetValue(newValue)
		e.SetIsWarm(true)
		return sstoreSetGas, 0, nil
	}

	warm := e.IsWarm()
	wasZeroOriginal := word.IsZero(e.Original())
	wasZeroCurrent := word.IsZero(e.Value())
	isZeroNew := word.IsZero(newValue)

	accessCost := func() uint64 {
		if warm {
			return sstoreWarmGas
		}
		return sstoreColdGas
	}

	switch {
	case isZeroNew && !wasZeroCurrent:
		gasCost = accessCost()
		refund = sstoreClearRefund
	case isZeroNew && wasZeroCurrent:
		gasCost = accessCost()
	case !isZeroNew && wasZeroCurrent && !wasZeroOriginal:
		gasCost = accessCost()
	case !isZeroNew && wasZeroCurrent && wasZeroOriginal:
		gasCost = sstoreSetGas
	default:
		gasCost = accessCost()
	}

	e.SetValue(newValue)
	e.SetIsWarm(true)
	return gasCost, refund, nil
}
