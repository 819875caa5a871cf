package engine

import (
	"iter"
	"weak"
)

// Compile-time check that Tombstone satisfies the Engine interface.
var _ Engine[int, int] = (*Tombstone[int, int])(nil)

// Tombstone is the storage strategy for a primitive with independently
// collectible keys and values but no direct entry removal. Deletion
// overwrites the slot with a tombstone marker; the row reads as gone
// immediately and vanishes once the primitive's own opportunistic compaction
// reaches it. Reads, enumeration, and size must all skip tombstoned slots.
type Tombstone[K, V any] struct {
	opts  Options
	table map[weak.Pointer[K]]slot[V]
}

func newTombstone[K, V any](opts Options) *Tombstone[K, V] {
	return &Tombstone[K, V]{
		opts:  opts,
		table: make(map[weak.Pointer[K]]slot[V]),
	}
}

// Set inserts or overwrites the entry for key. Overwriting a tombstoned
// slot revives it.
func (t *Tombstone[K, V]) Set(key *K, value *V) error {
	if key == nil {
		return ErrNilKey
	}
	t.table[weak.Make(key)] = slot[V]{state: slotLive, val: makeValueRef(value)}
	return nil
}

// Get returns the value for key. Tombstoned and collected slots read as
// absent; the rows themselves stay behind for the compaction sweep.
func (t *Tombstone[K, V]) Get(key *K) (*V, bool) {
	if key == nil {
		return nil, false
	}
	s, ok := t.table[weak.Make(key)]
	if !ok {
		return nil, false
	}
	return s.liveValue()
}

// Contains reports whether a live entry exists for key.
func (t *Tombstone[K, V]) Contains(key *K) bool {
	_, ok := t.Get(key)
	return ok
}

// Delete tombstones the entry for key, returning the previous live value.
func (t *Tombstone[K, V]) Delete(key *K) (*V, bool) {
	if key == nil {
		return nil, false
	}
	tok := weak.Make(key)
	s, ok := t.table[tok]
	if !ok {
		return nil, false
	}
	v, alive := s.liveValue()
	s.tombstone()
	t.table[tok] = s
	if !alive {
		return nil, false
	}
	return v, true
}

// All returns a snapshot iterator over the live entries.
func (t *Tombstone[K, V]) All() iter.Seq2[*K, *V] {
	snap := t.collect()
	return func(yield func(*K, *V) bool) {
		for _, p := range snap {
			if !yield(p.key, p.value) {
				return
			}
		}
	}
}

// Len returns the number of live entries.
func (t *Tombstone[K, V]) Len() int {
	return len(t.collect())
}

// Prune is a no-op: the primitive reclaims tombstoned rows on its own as
// their markers are collected.
func (t *Tombstone[K, V]) Prune() {
	t.opts.Logger.Debug("prune skipped", "strategy", "tombstone", "rows", len(t.table))
}

// Clear discards all entries.
func (t *Tombstone[K, V]) Clear() {
	t.table = make(map[weak.Pointer[K]]slot[V])
}

// Replace swaps the contents with a snapshot built from src. On failure the
// previous contents are untouched.
func (t *Tombstone[K, V]) Replace(src iter.Seq2[*K, *V]) error {
	next := make(map[weak.Pointer[K]]slot[V])
	for k, v := range src {
		if k == nil {
			return ErrNilKey
		}
		next[weak.Make(k)] = slot[V]{state: slotLive, val: makeValueRef(v)}
	}
	t.table = next
	return nil
}

// collect models the primitive's opportunistic compaction: it drops rows
// whose marker or referents have been collected and returns the live pairs.
func (t *Tombstone[K, V]) collect() []pair[K, V] {
	live := make([]pair[K, V], 0, len(t.table))
	for tok, s := range t.table {
		if s.state == slotTombstone {
			delete(t.table, tok)
			continue
		}
		k := tok.Value()
		if k == nil {
			delete(t.table, tok)
			continue
		}
		v, alive := s.val.get()
		if !alive {
			delete(t.table, tok)
			continue
		}
		live = append(live, pair[K, V]{key: k, value: v})
	}
	return live
}
