package engine

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProfiles = []struct {
	name    string
	profile Profile
}{
	{"direct", Profile{WeakKeys: true, WeakValues: true, SupportsDelete: true, StableTokens: true}},
	{"tombstone", Profile{WeakKeys: true, WeakValues: true, StableTokens: true}},
	{"dualtable", Profile{WeakValues: true, StableTokens: true}},
	{"surrogate", Profile{WeakValues: true}},
}

// forEachEngine runs the conformance subtest against every storage strategy.
// All four must reproduce the direct strategy's observable behavior exactly.
func forEachEngine(t *testing.T, fn func(t *testing.T, eng Engine[string, int])) {
	t.Helper()
	for _, tc := range testProfiles {
		t.Run(tc.name, func(t *testing.T) {
			eng, err := New[string, int](tc.profile, Options{})
			require.NoError(t, err)
			fn(t, eng)
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("SelectsByProfile", func(t *testing.T) {
		eng, err := New[string, int](testProfiles[0].profile, Options{})
		require.NoError(t, err)
		assert.IsType(t, &Direct[string, int]{}, eng)

		eng, err = New[string, int](testProfiles[1].profile, Options{})
		require.NoError(t, err)
		assert.IsType(t, &Tombstone[string, int]{}, eng)

		eng, err = New[string, int](testProfiles[2].profile, Options{})
		require.NoError(t, err)
		assert.IsType(t, &DualTable[string, int]{}, eng)

		eng, err = New[string, int](testProfiles[3].profile, Options{})
		require.NoError(t, err)
		assert.IsType(t, &SecondaryIndex[string, int]{}, eng)
	})

	t.Run("NoStrategy", func(t *testing.T) {
		_, err := New[string, int](Profile{}, Options{})
		require.ErrorIs(t, err, ErrNoStrategy)
	})

	t.Run("DetectProfileSelectsDirect", func(t *testing.T) {
		eng, err := New[string, int](DetectProfile(), Options{})
		require.NoError(t, err)
		assert.IsType(t, &Direct[string, int]{}, eng)
	})
}

func TestEngineSetGet(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eng Engine[string, int]) {
		k, v := ptr("x"), ptr(1)

		require.NoError(t, eng.Set(k, v))
		got, ok := eng.Get(k)
		require.True(t, ok)
		assert.Same(t, v, got)

		// Overwrite in place.
		v2 := ptr(2)
		require.NoError(t, eng.Set(k, v2))
		got, ok = eng.Get(k)
		require.True(t, ok)
		assert.Same(t, v2, got)
		assert.Equal(t, 1, eng.Len())

		runtime.KeepAlive(k)
		runtime.KeepAlive(v2)
	})
}

func TestEngineNilHandling(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eng Engine[string, int]) {
		require.ErrorIs(t, eng.Set(nil, ptr(1)), ErrNilKey)

		// A stored nil value is distinct from an absent entry.
		k := ptr("x")
		require.NoError(t, eng.Set(k, nil))
		got, ok := eng.Get(k)
		require.True(t, ok)
		assert.Nil(t, got)
		assert.True(t, eng.Contains(k))
		assert.Equal(t, 1, eng.Len())

		_, ok = eng.Get(ptr("x"))
		assert.False(t, ok, "distinct object with equal contents must miss")

		runtime.KeepAlive(k)
	})
}

func TestEngineIdentityNotEquality(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eng Engine[string, int]) {
		a, b := ptr("same"), ptr("same")
		v1, v2 := ptr(1), ptr(2)

		require.NoError(t, eng.Set(a, v1))
		assert.True(t, eng.Contains(a))
		assert.False(t, eng.Contains(b))

		require.NoError(t, eng.Set(b, v2))
		assert.Equal(t, 2, eng.Len())

		runtime.KeepAlive([]any{a, b, v1, v2})
	})
}

func TestEngineDelete(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eng Engine[string, int]) {
		k, v := ptr("x"), ptr(7)
		require.NoError(t, eng.Set(k, v))

		prev, ok := eng.Delete(k)
		require.True(t, ok)
		assert.Same(t, v, prev)

		_, ok = eng.Get(k)
		assert.False(t, ok)
		assert.False(t, eng.Contains(k))
		assert.Equal(t, 0, eng.Len())

		// Deleting an absent key is a no-op.
		_, ok = eng.Delete(k)
		assert.False(t, ok)
		_, ok = eng.Delete(ptr("never"))
		assert.False(t, ok)
		assert.Equal(t, 0, eng.Len())

		runtime.KeepAlive(k)
		runtime.KeepAlive(v)
	})
}

func TestEngineDeleteThenReadd(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eng Engine[string, int]) {
		k, v1 := ptr("x"), ptr(1)
		require.NoError(t, eng.Set(k, v1))
		_, ok := eng.Delete(k)
		require.True(t, ok)

		v2 := ptr(2)
		require.NoError(t, eng.Set(k, v2))
		got, ok := eng.Get(k)
		require.True(t, ok)
		assert.Same(t, v2, got)
		assert.Equal(t, 1, eng.Len())

		runtime.KeepAlive([]any{k, v1, v2})
	})
}

func TestEngineRoundTrip(t *testing.T) {
	const n = 100
	forEachEngine(t, func(t *testing.T, eng Engine[string, int]) {
		keys := make([]*string, n)
		values := make([]*int, n)
		for i := range n {
			keys[i] = ptr("k")
			values[i] = ptr(i)
			require.NoError(t, eng.Set(keys[i], values[i]))
		}
		require.Equal(t, n, eng.Len())

		seen := make(map[*string]*int, n)
		for k, v := range eng.All() {
			_, dup := seen[k]
			require.False(t, dup, "key visited twice")
			seen[k] = v
		}
		require.Len(t, seen, n)
		for i := range n {
			assert.Same(t, values[i], seen[keys[i]])
		}

		runtime.KeepAlive(keys)
		runtime.KeepAlive(values)
	})
}

func TestEngineIterationSnapshot(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eng Engine[string, int]) {
		keys := make([]*string, 10)
		values := make([]*int, 10)
		for i := range keys {
			keys[i] = ptr("k")
			values[i] = ptr(i)
			require.NoError(t, eng.Set(keys[i], values[i]))
		}

		// Deleting the current key mid-iteration must not corrupt the walk.
		visited := 0
		for k := range eng.All() {
			visited++
			eng.Delete(k)
		}
		assert.Equal(t, 10, visited)
		assert.Equal(t, 0, eng.Len())

		runtime.KeepAlive(keys)
		runtime.KeepAlive(values)
	})
}

func TestEngineClear(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eng Engine[string, int]) {
		k, v := ptr("x"), ptr(1)
		k2, v2 := ptr("y"), ptr(2)
		require.NoError(t, eng.Set(k, v))
		require.NoError(t, eng.Set(k2, v2))

		eng.Clear()
		assert.Equal(t, 0, eng.Len())
		assert.False(t, eng.Contains(k))

		v3 := ptr(3)
		require.NoError(t, eng.Set(k, v3))
		assert.Equal(t, 1, eng.Len())

		runtime.KeepAlive([]any{k, v, k2, v2, v3})
	})
}

func TestEngineReplace(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eng Engine[string, int]) {
		old, oldV := ptr("old"), ptr(1)
		require.NoError(t, eng.Set(old, oldV))

		k1, v1 := ptr("a"), ptr(10)
		k2, v2 := ptr("b"), ptr(20)
		err := eng.Replace(pairsOf(k1, v1, k2, v2))
		require.NoError(t, err)
		assert.Equal(t, 2, eng.Len())
		assert.False(t, eng.Contains(old))
		assert.True(t, eng.Contains(k1))
		assert.True(t, eng.Contains(k2))

		runtime.KeepAlive([]any{old, oldV, k1, v1, k2, v2})
	})
}

func TestEngineReplaceFailureKeepsContents(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eng Engine[string, int]) {
		k, v := ptr("keep"), ptr(1)
		require.NoError(t, eng.Set(k, v))

		ignored := ptr(20)
		err := eng.Replace(pairsOf(ptr("a"), ptr(10), nil, ignored))
		require.ErrorIs(t, err, ErrNilKey)

		got, ok := eng.Get(k)
		require.True(t, ok, "failed replace must leave contents unchanged")
		assert.Same(t, v, got)
		assert.Equal(t, 1, eng.Len())

		runtime.KeepAlive([]any{k, v, ignored})
	})
}

func TestEngineEntryGoneAfterCollection(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eng Engine[string, int]) {
		held, heldVal := ptr("held"), ptr(1)
		require.NoError(t, eng.Set(held, heldVal))
		insertTransient(eng, 10)
		require.Equal(t, 11, eng.Len())

		require.Eventually(t, func() bool {
			runtime.GC()
			return eng.Len() == 1
		}, 5*time.Second, 10*time.Millisecond, "transient entries must vanish after collection")

		got, ok := eng.Get(held)
		require.True(t, ok, "held entry must survive collection")
		assert.Same(t, heldVal, got)

		runtime.KeepAlive(held)
		runtime.KeepAlive(heldVal)
	})
}

func TestEngineValueLossCollapsesPair(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eng Engine[string, int]) {
		k := ptr("held-key")
		setTransientValue(eng, k)
		require.Equal(t, 1, eng.Len())

		// The key stays reachable; losing the value alone must collapse
		// the pair.
		require.Eventually(t, func() bool {
			runtime.GC()
			_, ok := eng.Get(k)
			return !ok && eng.Len() == 0
		}, 5*time.Second, 10*time.Millisecond)

		runtime.KeepAlive(k)
	})
}

func ptr[T any](v T) *T { return &v }

func pairsOf(kvs ...any) func(yield func(*string, *int) bool) {
	return func(yield func(*string, *int) bool) {
		for i := 0; i < len(kvs); i += 2 {
			k, _ := kvs[i].(*string)
			v, _ := kvs[i+1].(*int)
			if !yield(k, v) {
				return
			}
		}
	}
}

// insertTransient inserts n entries without retaining any reference to the
// keys or values, so the next collection cycles can reclaim them.
//
//go:noinline
func insertTransient(eng Engine[string, int], n int) {
	for i := range n {
		_ = eng.Set(ptr("transient"), ptr(i))
	}
}

// setTransientValue stores a pair whose value is unreachable once this
// function returns.
//
//go:noinline
func setTransientValue(eng Engine[string, int], key *string) {
	_ = eng.Set(key, ptr(42))
}
