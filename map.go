package weakcoll

import (
	"iter"

	"github.com/hupe1980/weakcoll/engine"
)

// Map is a weakly-referencing map keyed by object identity. Neither keys
// nor values prevent garbage collection: a pair silently disappears once
// either of its objects becomes unreachable from anywhere else in the
// program. Two distinct keys with equal contents are distinct entries.
//
// A Map is not safe for concurrent use; callers needing concurrent access
// must serialize externally.
type Map[K, V any] struct {
	eng     engine.Engine[K, V]
	profile engine.Profile
	engOpts engine.Options
	logger  *Logger

	defaultValue    *V
	defaultValueSet bool
	defaultFunc     func(*Map[K, V], *K) *V
}

// NewMap creates an empty Map. The storage strategy is selected once, from
// the declared (or detected) capability profile, and never switched.
func NewMap[K, V any](optFns ...func(o *MapOptions[K, V])) (*Map[K, V], error) {
	opts := MapOptions[K, V]{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.defaultValueSet && opts.defaultFunc != nil {
		return nil, ErrConflictingDefaults
	}

	profile := engine.DetectProfile()
	if opts.Profile != nil {
		profile = *opts.Profile
	}

	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger()
	}
	engOpts := opts.Engine
	if engOpts.Logger == nil {
		engOpts.Logger = logger.Logger
	}

	eng, err := engine.New[K, V](profile, engOpts)
	if err != nil {
		return nil, err
	}

	return &Map[K, V]{
		eng:             eng,
		profile:         profile,
		engOpts:         engOpts,
		logger:          logger.WithProfile(profile),
		defaultValue:    opts.defaultValue,
		defaultValueSet: opts.defaultValueSet,
		defaultFunc:     opts.defaultFunc,
	}, nil
}

// derived creates an empty Map with the receiver's configuration, used by
// the non-mutating combination operations.
func (m *Map[K, V]) derived() *Map[K, V] {
	eng, _ := engine.New[K, V](m.profile, m.engOpts)
	return &Map[K, V]{
		eng:             eng,
		profile:         m.profile,
		engOpts:         m.engOpts,
		logger:          m.logger,
		defaultValue:    m.defaultValue,
		defaultValueSet: m.defaultValueSet,
		defaultFunc:     m.defaultFunc,
	}
}

// Set inserts or overwrites the entry for key and returns the value.
// A nil value is legal and distinct from an absent entry; a nil key is
// rejected with ErrNilKey.
func (m *Map[K, V]) Set(key *K, value *V) (*V, error) {
	if err := m.eng.Set(key, value); err != nil {
		return nil, err
	}
	return value, nil
}

// SetSeq inserts every pair produced by src.
func (m *Map[K, V]) SetSeq(src iter.Seq2[*K, *V]) error {
	for k, v := range src {
		if err := m.eng.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value for key, or (nil, false) if the entry is absent or
// has been collected.
func (m *Map[K, V]) Get(key *K) (*V, bool) {
	return m.eng.Get(key)
}

// GetDefault returns the value for key, falling back to the configured
// default value or default producer on a miss. With neither configured it
// returns nil.
func (m *Map[K, V]) GetDefault(key *K) *V {
	if v, ok := m.eng.Get(key); ok {
		return v
	}
	if m.defaultFunc != nil {
		return m.defaultFunc(m, key)
	}
	return m.defaultValue
}

// Fetch returns the value for key. A miss is reported as a
// *KeyNotFoundError carrying the key, regardless of any configured default.
func (m *Map[K, V]) Fetch(key *K) (*V, error) {
	if v, ok := m.eng.Get(key); ok {
		return v, nil
	}
	return nil, &KeyNotFoundError[K]{Key: key}
}

// Contains reports whether a live entry exists for key.
func (m *Map[K, V]) Contains(key *K) bool {
	return m.eng.Contains(key)
}

// Delete removes the entry for key, returning the previous value. Deleting
// an absent key is a no-op.
func (m *Map[K, V]) Delete(key *K) (*V, bool) {
	return m.eng.Delete(key)
}

// Len returns the number of currently-live entries.
func (m *Map[K, V]) Len() int {
	return m.eng.Len()
}

// All returns an iterator over the currently-live pairs. The iteration
// works on a snapshot, so callbacks may mutate the map (including deleting
// the current key). Order is unspecified.
func (m *Map[K, V]) All() iter.Seq2[*K, *V] {
	return m.eng.All()
}

// Keys returns the live keys.
func (m *Map[K, V]) Keys() []*K {
	var keys []*K
	for k := range m.eng.All() {
		keys = append(keys, k)
	}
	return keys
}

// Values returns the live values.
func (m *Map[K, V]) Values() []*V {
	var values []*V
	for _, v := range m.eng.All() {
		values = append(values, v)
	}
	return values
}

// ValuesAt returns the value for each given key in order, applying the
// GetDefault fallback per key.
func (m *Map[K, V]) ValuesAt(keys ...*K) []*V {
	values := make([]*V, 0, len(keys))
	for _, k := range keys {
		values = append(values, m.GetDefault(k))
	}
	return values
}

// SetDefaultValue configures the GetDefault fallback value, clearing any
// configured default producer.
func (m *Map[K, V]) SetDefaultValue(v *V) {
	m.defaultValue = v
	m.defaultValueSet = true
	m.defaultFunc = nil
}

// SetDefaultFunc configures the GetDefault producer, clearing any
// configured default value.
func (m *Map[K, V]) SetDefaultFunc(fn func(m *Map[K, V], key *K) *V) {
	m.defaultFunc = fn
	m.defaultValue = nil
	m.defaultValueSet = false
}

// Merge returns a new Map holding the receiver's pairs combined with
// other's. For keys present in both, resolve(key, old, new) decides the
// value; a nil resolve keeps other's value. The receiver is unchanged.
func (m *Map[K, V]) Merge(other *Map[K, V], resolve func(key *K, old, new *V) *V) (*Map[K, V], error) {
	out := m.derived()
	if err := out.SetSeq(m.All()); err != nil {
		return nil, err
	}
	if err := out.Update(other, resolve); err != nil {
		return nil, err
	}
	return out, nil
}

// Update inserts other's pairs into the receiver. For keys present in both,
// resolve(key, old, new) decides the value; a nil resolve keeps other's
// value.
func (m *Map[K, V]) Update(other *Map[K, V], resolve func(key *K, old, new *V) *V) error {
	for k, v := range other.All() {
		if resolve != nil {
			if old, ok := m.eng.Get(k); ok {
				v = resolve(k, old, v)
			}
		}
		if err := m.eng.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// DeleteFunc removes every pair for which pred returns true and reports how
// many were removed. Iteration is over a snapshot, so pred may mutate the
// map.
func (m *Map[K, V]) DeleteFunc(pred func(key *K, value *V) bool) int {
	removed := 0
	for k, v := range m.eng.All() {
		if pred(k, v) {
			if _, ok := m.eng.Delete(k); ok {
				removed++
			}
		}
	}
	return removed
}

// KeepFunc removes every pair for which pred returns false and reports how
// many were removed.
func (m *Map[K, V]) KeepFunc(pred func(key *K, value *V) bool) int {
	return m.DeleteFunc(func(k *K, v *V) bool { return !pred(k, v) })
}

// Replace swaps the contents with a snapshot built from src. If building
// the snapshot fails, the previous contents are untouched.
func (m *Map[K, V]) Replace(src iter.Seq2[*K, *V]) error {
	err := m.eng.Replace(src)
	m.logger.LogReplace(m.eng.Len(), err)
	return err
}

// Clear discards all entries.
func (m *Map[K, V]) Clear() {
	m.logger.LogClear(m.eng.Len())
	m.eng.Clear()
}

// Prune forces compaction of the strategy's internal bookkeeping. It is
// always safe; callers use it as a deterministic compaction point, e.g.
// before measuring memory.
func (m *Map[K, V]) Prune() {
	m.eng.Prune()
}
