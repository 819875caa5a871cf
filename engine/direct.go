package engine

import (
	"iter"
	"weak"
)

// Compile-time check that Direct satisfies the Engine interface.
var _ Engine[int, int] = (*Direct[int, int])(nil)

// Direct is the storage strategy for a primitive with independently
// collectible keys and values and direct entry removal. Every operation maps
// straight onto the underlying table: no tombstoning, no indirection, and
// Prune has nothing to reclaim beyond rows whose referents already died.
//
// This strategy defines the observable behavior the other strategies emulate.
type Direct[K, V any] struct {
	opts  Options
	table map[weak.Pointer[K]]valueRef[V]
}

func newDirect[K, V any](opts Options) *Direct[K, V] {
	return &Direct[K, V]{
		opts:  opts,
		table: make(map[weak.Pointer[K]]valueRef[V]),
	}
}

// Set inserts or overwrites the entry for key.
func (d *Direct[K, V]) Set(key *K, value *V) error {
	if key == nil {
		return ErrNilKey
	}
	d.table[weak.Make(key)] = makeValueRef(value)
	return nil
}

// Get returns the value for key. A row whose key or value has been
// collected is removed on sight.
func (d *Direct[K, V]) Get(key *K) (*V, bool) {
	if key == nil {
		return nil, false
	}
	tok := weak.Make(key)
	ref, ok := d.table[tok]
	if !ok {
		return nil, false
	}
	v, alive := ref.get()
	if !alive {
		delete(d.table, tok)
		return nil, false
	}
	return v, true
}

// Contains reports whether a live entry exists for key.
func (d *Direct[K, V]) Contains(key *K) bool {
	_, ok := d.Get(key)
	return ok
}

// Delete removes the entry for key, returning the previous live value.
func (d *Direct[K, V]) Delete(key *K) (*V, bool) {
	if key == nil {
		return nil, false
	}
	tok := weak.Make(key)
	ref, ok := d.table[tok]
	if !ok {
		return nil, false
	}
	delete(d.table, tok)
	v, alive := ref.get()
	if !alive {
		return nil, false
	}
	return v, true
}

// All returns a snapshot iterator over the live entries.
func (d *Direct[K, V]) All() iter.Seq2[*K, *V] {
	snap := d.collect()
	return func(yield func(*K, *V) bool) {
		for _, p := range snap {
			if !yield(p.key, p.value) {
				return
			}
		}
	}
}

// Len returns the number of live entries.
func (d *Direct[K, V]) Len() int {
	return len(d.collect())
}

// Prune drops rows whose referents have been collected. The primitive
// already removes entries on collection, so this only reclaims rows that
// died since the last touch.
func (d *Direct[K, V]) Prune() {
	before := len(d.table)
	d.collect()
	d.opts.Logger.Debug("prune completed", "strategy", "direct", "before", before, "after", len(d.table))
}

// Clear discards all entries.
func (d *Direct[K, V]) Clear() {
	d.table = make(map[weak.Pointer[K]]valueRef[V])
}

// Replace swaps the contents with a snapshot built from src. On failure the
// previous contents are untouched.
func (d *Direct[K, V]) Replace(src iter.Seq2[*K, *V]) error {
	next := make(map[weak.Pointer[K]]valueRef[V])
	for k, v := range src {
		if k == nil {
			return ErrNilKey
		}
		next[weak.Make(k)] = makeValueRef(v)
	}
	d.table = next
	return nil
}

type pair[K, V any] struct {
	key   *K
	value *V
}

// collect sweeps the table, dropping dead rows and returning the live pairs.
// The returned slice holds strong references, pinning the snapshot for the
// duration of an iteration.
func (d *Direct[K, V]) collect() []pair[K, V] {
	live := make([]pair[K, V], 0, len(d.table))
	for tok, ref := range d.table {
		k := tok.Value()
		if k == nil {
			delete(d.table, tok)
			continue
		}
		v, alive := ref.get()
		if !alive {
			delete(d.table, tok)
			continue
		}
		live = append(live, pair[K, V]{key: k, value: v})
	}
	return live
}
