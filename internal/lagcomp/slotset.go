package lagcomp

import "math/bits"

// SlotSet is a fixed-size bit set of actor slots.
type SlotSet struct {
	words []uint64
	size  int
}

// NewSlotSet allocates a set able to hold slots [0, size).
func NewSlotSet(size int) SlotSet {
	if size < 0 {
		size = 0
	}
	return SlotSet{words: make([]uint64, (size+63)/64), size: size}
}

// Cap reports the number of addressable slots.
func (s *SlotSet) Cap() int {
	if s == nil {
		return 0
	}
	return s.size
}

// Set adds slot to the set. Out of range slots are ignored.
func (s *SlotSet) Set(slot Slot) {
	if s == nil || slot < 0 || int(slot) >= s.size {
		return
	}
	s.words[slot/64] |= 1 << (uint(slot) % 64)
}

// Unset removes slot from the set.
func (s *SlotSet) Unset(slot Slot) {
	if s == nil || slot < 0 || int(slot) >= s.size {
		return
	}
	s.words[slot/64] &^= 1 << (uint(slot) % 64)
}

// Has reports whether slot is in the set.
func (s *SlotSet) Has(slot Slot) bool {
	if s == nil || slot < 0 || int(slot) >= s.size {
		return false
	}
	return s.words[slot/64]&(1<<(uint(slot)%64)) != 0
}

// Reset empties the set.
func (s *SlotSet) Reset() {
	if s == nil {
		return
	}
	for i := range s.words {
		s.words[i] = 0
	}
}

// Empty reports whether no slot is set.
func (s *SlotSet) Empty() bool {
	if s == nil {
		return true
	}
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Count reports the number of slots in the set.
func (s *SlotSet) Count() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Next returns the lowest set slot that is >= from.
func (s *SlotSet) Next(from Slot) (Slot, bool) {
	if s == nil || int(from) >= s.size {
		return 0, false
	}
	if from < 0 {
		from = 0
	}
	idx := int(from) / 64
	word := s.words[idx] >> (uint(from) % 64)
	if word != 0 {
		return from + Slot(bits.TrailingZeros64(word)), true
	}
	for idx++; idx < len(s.words); idx++ {
		if s.words[idx] != 0 {
			return Slot(idx*64 + bits.TrailingZeros64(s.words[idx])), true
		}
	}
	return 0, false
}
