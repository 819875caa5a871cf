package engine

import (
	"iter"
	"weak"
)

// Compile-time check that DualTable satisfies the Engine interface.
var _ Engine[int, int] = (*DualTable[int, int])(nil)

// DualTable is the storage strategy for a primitive that only collects
// values: keys held directly would leak, so the key and the value are stored
// in two parallel tables under the same identity token. A pair is live only
// while both tables hold a live slot for its token; a slot orphaned on
// either side is tombstoned on sight and reported as a miss.
//
// The token-keyed rows persist until a prune pass reconciles the two tables,
// so reads opportunistically trigger pruning once enough orphans have been
// observed.
type DualTable[K, V any] struct {
	opts     Options
	keys     map[weak.Pointer[K]]slotState
	values   map[weak.Pointer[K]]slot[V]
	deadSeen int
}

func newDualTable[K, V any](opts Options) *DualTable[K, V] {
	return &DualTable[K, V]{
		opts:   opts,
		keys:   make(map[weak.Pointer[K]]slotState),
		values: make(map[weak.Pointer[K]]slot[V]),
	}
}

// Set writes key and value into their tables under the key's identity token.
func (dt *DualTable[K, V]) Set(key *K, value *V) error {
	if key == nil {
		return ErrNilKey
	}
	tok := weak.Make(key)
	dt.keys[tok] = slotLive
	dt.values[tok] = slot[V]{state: slotLive, val: makeValueRef(value)}
	return nil
}

// Get returns the value for key. Both tables must hold a live slot at the
// key's token; an orphan on either side is tombstoned and the lookup misses.
func (dt *DualTable[K, V]) Get(key *K) (*V, bool) {
	if key == nil {
		return nil, false
	}
	dt.maybePrune()

	tok := weak.Make(key)
	keyLive := dt.keys[tok] == slotLive && tok.Value() != nil
	vs, vok := dt.values[tok]
	v, valLive := vs.liveValue()
	if !vok {
		valLive = false
	}

	switch {
	case keyLive && valLive:
		return v, true
	case keyLive:
		// Value collected: the key slot is orphaned.
		dt.keys[tok] = slotTombstone
		dt.deadSeen++
		return nil, false
	case valLive:
		// Key side gone: the value slot is orphaned.
		vs.tombstone()
		dt.values[tok] = vs
		dt.deadSeen++
		return nil, false
	default:
		return nil, false
	}
}

// Contains reports whether a live entry exists for key.
func (dt *DualTable[K, V]) Contains(key *K) bool {
	_, ok := dt.Get(key)
	return ok
}

// Delete tombstones both table slots at the key's token, returning the
// previous live value.
func (dt *DualTable[K, V]) Delete(key *K) (*V, bool) {
	if key == nil {
		return nil, false
	}
	tok := weak.Make(key)

	var prev *V
	live := false
	if dt.keys[tok] == slotLive && tok.Value() != nil {
		if vs, ok := dt.values[tok]; ok {
			prev, live = vs.liveValue()
		}
	}

	if _, ok := dt.keys[tok]; ok {
		dt.keys[tok] = slotTombstone
	}
	if vs, ok := dt.values[tok]; ok {
		vs.tombstone()
		dt.values[tok] = vs
	}
	if !live {
		return nil, false
	}
	return prev, true
}

// All returns a snapshot iterator over the live entries. Orphans found
// while building the snapshot are tombstoned as a side effect.
func (dt *DualTable[K, V]) All() iter.Seq2[*K, *V] {
	snap := dt.collect()
	return func(yield func(*K, *V) bool) {
		for _, p := range snap {
			if !yield(p.key, p.value) {
				return
			}
		}
	}
}

// Len returns the number of live entries.
func (dt *DualTable[K, V]) Len() int {
	return len(dt.collect())
}

// Prune reconciles the two tables: every row without a live counterpart on
// the other side is removed, leaving a consistent pair set.
func (dt *DualTable[K, V]) Prune() {
	before := len(dt.keys) + len(dt.values)

	for tok := range dt.keys {
		if !dt.pairLive(tok) {
			delete(dt.keys, tok)
			delete(dt.values, tok)
		}
	}
	for tok := range dt.values {
		if !dt.pairLive(tok) {
			delete(dt.keys, tok)
			delete(dt.values, tok)
		}
	}
	dt.deadSeen = 0

	dt.opts.Logger.Debug("prune completed", "strategy", "dualtable", "before", before, "after", len(dt.keys)+len(dt.values))
}

// Clear discards all entries.
func (dt *DualTable[K, V]) Clear() {
	dt.keys = make(map[weak.Pointer[K]]slotState)
	dt.values = make(map[weak.Pointer[K]]slot[V])
	dt.deadSeen = 0
}

// Replace swaps the contents with a snapshot built from src. On failure the
// previous contents are untouched.
func (dt *DualTable[K, V]) Replace(src iter.Seq2[*K, *V]) error {
	nextKeys := make(map[weak.Pointer[K]]slotState)
	nextValues := make(map[weak.Pointer[K]]slot[V])
	for k, v := range src {
		if k == nil {
			return ErrNilKey
		}
		tok := weak.Make(k)
		nextKeys[tok] = slotLive
		nextValues[tok] = slot[V]{state: slotLive, val: makeValueRef(v)}
	}
	dt.keys = nextKeys
	dt.values = nextValues
	dt.deadSeen = 0
	return nil
}

func (dt *DualTable[K, V]) pairLive(tok weak.Pointer[K]) bool {
	if dt.keys[tok] != slotLive || tok.Value() == nil {
		return false
	}
	vs, ok := dt.values[tok]
	if !ok {
		return false
	}
	_, live := vs.liveValue()
	return live
}

func (dt *DualTable[K, V]) maybePrune() {
	if dt.deadSeen > dt.opts.cutoff(len(dt.keys)) {
		dt.Prune()
	}
}

// collect walks the key table, resolving each token through the liveness
// rule and tombstoning orphans on the way.
func (dt *DualTable[K, V]) collect() []pair[K, V] {
	live := make([]pair[K, V], 0, len(dt.keys))
	for tok, state := range dt.keys {
		if state != slotLive {
			continue
		}
		k := tok.Value()
		if k == nil {
			dt.keys[tok] = slotTombstone
			dt.deadSeen++
			continue
		}
		vs, ok := dt.values[tok]
		if !ok {
			dt.keys[tok] = slotTombstone
			dt.deadSeen++
			continue
		}
		v, valLive := vs.liveValue()
		if !valLive {
			dt.keys[tok] = slotTombstone
			dt.deadSeen++
			continue
		}
		live = append(live, pair[K, V]{key: k, value: v})
	}
	return live
}
