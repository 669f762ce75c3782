package vm

import "github.com/garyschulte/metaru/frame"

// Stack is a 1024-entry, 32-byte-word stack backed directly by the shared
// stack plane. Unlike a conventional []uint256.Int stack, it never copies a
// word out of the plane on push/pop: callers get slices aliased into the
// plane and are expected to read or overwrite them in place, matching the
// "shrink-then-overwrite-top" aliasing rule the dispatch loop relies on.
type Stack struct {
	cb   *frame.ControlBlock
	data []byte
}

func newStack(cb *frame.ControlBlock) *Stack {
	return &Stack{cb: cb, data: cb.StackPlane()}
}

func (s *Stack) len() int { return int(s.cb.StackSize()) }

func (s *Stack) setLen(n int) { s.cb.SetStackSize(uint32(n)) }

// slot returns the byte range for stack entry i (0 = bottom).
func (s *Stack) slot(i int) []byte {
	return s.data[i*frame.WordSize : (i+1)*frame.WordSize]
}

// push copies w onto the top of the stack.
func (s *Stack) push(w []byte) error {
	n := s.len()
	if n >= frame.StackCapacity {
		return &ErrStackOverflow{StackLen: n, Limit: frame.StackCapacity}
	}
	copy(s.slot(n), w)
	s.setLen(n + 1)
	return nil
}

// pushZero pushes the 32-byte zero word.
func (s *Stack) pushZero() error {
	n := s.len()
	if n >= frame.StackCapacity {
		return &ErrStackOverflow{StackLen: n, Limit: frame.StackCapacity}
	}
	slot := s.slot(n)
	for i := range slot {
		slot[i] = 0
	}
	s.setLen(n + 1)
	return nil
}

// pop returns the top word (aliased into the plane; valid as scratch until
// the next push reuses the slot) and shrinks the stack by one.
func (s *Stack) pop() ([]byte, error) {
	n := s.len()
	if n < 1 {
		return nil, &ErrStackUnderflow{StackLen: n, Required: 1}
	}
	w := s.slot(n - 1)
	s.setLen(n - 1)
	return w, nil
}

// require verifies the stack holds at least n entries without popping.
func (s *Stack) require(n int) error {
	if l := s.len(); l < n {
		return &ErrStackUnderflow{StackLen: l, Required: n}
	}
	return nil
}

// peek returns the top word without popping it.
func (s *Stack) peek() []byte { return s.slot(s.len() - 1) }

// back returns the word n from the top (0 = top) without popping.
func (s *Stack) back(n int) []byte { return s.slot(s.len() - 1 - n) }

// dup duplicates the n-th word from the top (1-indexed, DUP1 = current top)
// onto the top of the stack.
func (s *Stack) dup(n int) error {
	if err := s.require(n); err != nil {
		return err
	}
	src := s.back(n - 1)
	var tmp [frame.WordSize]byte
	copy(tmp[:], src)
	return s.push(tmp[:])
}

// swap exchanges the top word with the word n below it (SWAP1 swaps the top
// two entries).
func (s *Stack) swap(n int) error {
	if err := s.require(n + 1); err != nil {
		return err
	}
	top := s.back(0)
	other := s.back(n)
	var tmp [frame.WordSize]byte
	copy(tmp[:], top)
	copy(top, other)
	copy(other, tmp[:])
	return nil
}
