package engine

import "weak"

// slotState is the lifecycle tag of a storage slot. A tombstoned slot is an
// internal state only: lookups treat it exactly like an absent entry, and it
// is reclaimed by the next compaction that touches it.
type slotState uint8

const (
	slotEmpty slotState = iota
	slotLive
	slotTombstone
)

// valueRef is a weak reference to a caller-supplied value that keeps a
// caller nil distinguishable from a collected value.
type valueRef[V any] struct {
	w     weak.Pointer[V]
	isNil bool
}

func makeValueRef[V any](v *V) valueRef[V] {
	if v == nil {
		return valueRef[V]{isNil: true}
	}
	return valueRef[V]{w: weak.Make(v)}
}

// get returns the referenced value. The second result is false once the
// value has been collected; a stored nil is always retrievable.
func (r valueRef[V]) get() (*V, bool) {
	if r.isNil {
		return nil, true
	}
	v := r.w.Value()
	return v, v != nil
}

// slot is a value slot in a weak table.
type slot[V any] struct {
	state slotState
	val   valueRef[V]
}

// liveValue returns the slot's value if the slot is live and the value has
// not been collected.
func (s slot[V]) liveValue() (*V, bool) {
	if s.state != slotLive {
		return nil, false
	}
	return s.val.get()
}

// tombstone overwrites the slot with a deletion marker. The marker never
// compares live against any caller value, so the entry reads as gone
// immediately and the row is dropped by the next compaction.
func (s *slot[V]) tombstone() {
	s.state = slotTombstone
	s.val = valueRef[V]{}
}
