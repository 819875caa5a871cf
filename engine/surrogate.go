package engine

import (
	"iter"
	"weak"

	"github.com/RoaringBitmap/roaring/v2"
)

// Compile-time check that SecondaryIndex satisfies the Engine interface.
var _ Engine[int, int] = (*SecondaryIndex[int, int])(nil)

// scanBatch is the number of rows a read operation inspects while advancing
// the incremental liveness scan. Large enough to keep pace with churn, small
// enough to keep reads O(1).
const scanBatch = 8

// surrogate stands in for an original key's identity inside the weak table.
// It is freshly allocated, never exposed to callers, and meaningless outside
// the secondary index.
type surrogate struct {
	id uint32
}

type surrogateRow[K, V any] struct {
	key   weak.Pointer[K]
	state slotState
	val   valueRef[V]
}

// SecondaryIndex is the most conservative storage strategy, for runtimes
// whose identity tokens are not reliably unique or comparable inside the
// weak primitive's own scope. An ordinary, strongly referenced index maps a
// key's identity to a surrogate, and all weak rows are keyed by surrogate
// instead.
//
// The index is the one structure that grows without bound on its own:
// deletion retains the index entry (re-adding the same key before the next
// collection reuses the surrogate cheaply), and collected entries are only
// discovered lazily. Reads therefore advance an incremental liveness scan
// and trigger a full prune pass once the stale share exceeds the configured
// cutoff.
type SecondaryIndex[K, V any] struct {
	opts Options

	index map[weak.Pointer[K]]*surrogate
	rows  map[uint32]surrogateRow[K, V]

	// allocated tracks every surrogate ID in use; reclaimed tracks the
	// subset whose row has been observed dead or tombstoned. The bitmaps
	// make dead-marking idempotent and the live estimate O(1).
	allocated *roaring.Bitmap
	reclaimed *roaring.Bitmap

	nextID     uint32
	scanCursor uint32
}

func newSurrogate[K, V any](opts Options) *SecondaryIndex[K, V] {
	return &SecondaryIndex[K, V]{
		opts:      opts,
		index:     make(map[weak.Pointer[K]]*surrogate),
		rows:      make(map[uint32]surrogateRow[K, V]),
		allocated: roaring.New(),
		reclaimed: roaring.New(),
	}
}

// Set inserts or overwrites the entry for key, lazily creating a surrogate
// for the key's identity and writing the weak row through it.
func (si *SecondaryIndex[K, V]) Set(key *K, value *V) error {
	if key == nil {
		return ErrNilKey
	}
	tok := weak.Make(key)
	sur, ok := si.index[tok]
	if !ok {
		sur = &surrogate{id: si.nextID}
		si.nextID++
		si.index[tok] = sur
		si.allocated.Add(sur.id)
	}
	si.rows[sur.id] = surrogateRow[K, V]{key: tok, state: slotLive, val: makeValueRef(value)}
	si.reclaimed.Remove(sur.id)
	return nil
}

// Get returns the value for key. This is the highest-traffic read path, so
// it also advances the liveness scan and runs the auto-prune check.
func (si *SecondaryIndex[K, V]) Get(key *K) (*V, bool) {
	if key == nil {
		return nil, false
	}
	si.step(scanBatch)
	si.maybePrune()

	sur, ok := si.index[weak.Make(key)]
	if !ok {
		return nil, false
	}
	row := si.rows[sur.id]
	v, live := si.resolve(sur.id, row)
	if !live {
		return nil, false
	}
	return v, true
}

// Contains reports whether a live entry exists for key.
func (si *SecondaryIndex[K, V]) Contains(key *K) bool {
	_, ok := si.Get(key)
	return ok
}

// Delete tombstones the weak row reachable through the key's surrogate and
// returns the previous live value. The index entry itself is retained so a
// prompt re-add reuses the surrogate.
func (si *SecondaryIndex[K, V]) Delete(key *K) (*V, bool) {
	if key == nil {
		return nil, false
	}
	sur, ok := si.index[weak.Make(key)]
	if !ok {
		return nil, false
	}
	row := si.rows[sur.id]
	prev, live := si.resolve(sur.id, row)

	row.state = slotTombstone
	row.val = valueRef[V]{}
	si.rows[sur.id] = row
	si.reclaimed.Add(sur.id)

	if !live {
		return nil, false
	}
	return prev, true
}

// All returns a snapshot iterator over the live entries.
func (si *SecondaryIndex[K, V]) All() iter.Seq2[*K, *V] {
	snap := si.collect()
	return func(yield func(*K, *V) bool) {
		for _, p := range snap {
			if !yield(p.key, p.value) {
				return
			}
		}
	}
}

// Len returns the number of live entries.
func (si *SecondaryIndex[K, V]) Len() int {
	return len(si.collect())
}

// Prune removes every index entry whose surrogate no longer has a live row,
// along with the row itself. Callers use it as a deterministic compaction
// point; reads invoke it automatically past the cutoff.
func (si *SecondaryIndex[K, V]) Prune() {
	before := len(si.index)

	for tok, sur := range si.index {
		row := si.rows[sur.id]
		if _, live := si.resolve(sur.id, row); live {
			continue
		}
		delete(si.index, tok)
		delete(si.rows, sur.id)
		si.allocated.Remove(sur.id)
		si.reclaimed.Remove(sur.id)
	}
	si.scanCursor = 0

	si.opts.Logger.Debug("prune completed", "strategy", "surrogate", "before", before, "after", len(si.index))
}

// Clear discards all entries and resets bookkeeping.
func (si *SecondaryIndex[K, V]) Clear() {
	si.index = make(map[weak.Pointer[K]]*surrogate)
	si.rows = make(map[uint32]surrogateRow[K, V])
	si.allocated = roaring.New()
	si.reclaimed = roaring.New()
	si.nextID = 0
	si.scanCursor = 0
}

// Replace swaps the contents with a snapshot built from src. On failure the
// previous contents are untouched.
func (si *SecondaryIndex[K, V]) Replace(src iter.Seq2[*K, *V]) error {
	next := newSurrogate[K, V](si.opts)
	for k, v := range src {
		if k == nil {
			return ErrNilKey
		}
		if err := next.Set(k, v); err != nil {
			return err
		}
	}
	*si = *next
	return nil
}

// resolve returns the row's value if both its key and value are live. A row
// found dead is marked reclaimed, which feeds the auto-prune trigger.
func (si *SecondaryIndex[K, V]) resolve(id uint32, row surrogateRow[K, V]) (*V, bool) {
	if row.state == slotLive && row.key.Value() != nil {
		if v, alive := row.val.get(); alive {
			return v, true
		}
	}
	si.reclaimed.Add(id)
	return nil, false
}

// step advances the incremental liveness scan by up to n rows. The scan
// gives the auto-prune trigger visibility into entries that died without
// ever being touched again.
func (si *SecondaryIndex[K, V]) step(n int) {
	it := si.allocated.Iterator()
	it.AdvanceIfNeeded(si.scanCursor)
	for range n {
		if !it.HasNext() {
			si.scanCursor = 0
			return
		}
		id := it.Next()
		si.resolve(id, si.rows[id])
		si.scanCursor = id + 1
	}
}

// maybePrune runs the full sweep once the stale share of the index exceeds
// the cutoff. The cutoff keeps the amortized cost of pruning O(1) per
// operation while bounding steady-state memory to the live data.
func (si *SecondaryIndex[K, V]) maybePrune() {
	n := len(si.index)
	stale := int(si.reclaimed.GetCardinality())
	if stale > si.opts.cutoff(n) {
		si.Prune()
	}
}

func (si *SecondaryIndex[K, V]) collect() []pair[K, V] {
	live := make([]pair[K, V], 0, len(si.index))
	for id, row := range si.rows {
		if row.state != slotLive {
			continue
		}
		k := row.key.Value()
		if k == nil {
			si.reclaimed.Add(id)
			continue
		}
		v, alive := row.val.get()
		if !alive {
			si.reclaimed.Add(id)
			continue
		}
		live = append(live, pair[K, V]{key: k, value: v})
	}
	return live
}
