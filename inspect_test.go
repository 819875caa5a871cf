package weakcoll

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetString(t *testing.T) {
	s, err := NewSet[int]()
	require.NoError(t, err)

	els := []*int{ptr(3), ptr(1), ptr(2)}
	for _, el := range els {
		require.NoError(t, s.Add(el))
	}

	assert.Equal(t, "Set{1, 2, 3}", s.String())
	runtime.KeepAlive(els)
}

func TestMapString(t *testing.T) {
	m, err := NewMap[string, int]()
	require.NoError(t, err)

	a, b := ptr("a"), ptr("b")
	v1, v2 := ptr(1), ptr(2)
	mustSet(t, m, b, v2)
	mustSet(t, m, a, v1)

	assert.Equal(t, "Map{a: 1, b: 2}", m.String())
	runtime.KeepAlive([]any{a, b, v1, v2})
}

func TestMapStringNilValue(t *testing.T) {
	m, err := NewMap[string, int]()
	require.NoError(t, err)

	k := ptr("k")
	mustSet(t, m, k, nil)
	assert.Equal(t, "Map{k: nil}", m.String())
	runtime.KeepAlive(k)
}

func TestRenderCycleDetection(t *testing.T) {
	t.Run("SelfReferentialMap", func(t *testing.T) {
		m, err := NewMap[string, any]()
		require.NoError(t, err)

		k := ptr("self")
		var v any = m
		mustSet(t, m, k, &v)

		assert.Equal(t, "Map{self: Map{...}}", m.String())
		runtime.KeepAlive(k)
		runtime.KeepAlive(&v)
	})

	t.Run("MutuallyNestedSets", func(t *testing.T) {
		s1, err := NewSet[any]()
		require.NoError(t, err)
		s2, err := NewSet[any]()
		require.NoError(t, err)

		var e1 any = s2
		var e2 any = s1
		require.NoError(t, s1.Add(&e1))
		require.NoError(t, s2.Add(&e2))

		// Rendering s1 descends into s2, whose member is s1 again: the
		// guard cuts the recursion at the revisit.
		assert.Equal(t, "Set{Set{Set{...}}}", s1.String())
		runtime.KeepAlive(&e1)
		runtime.KeepAlive(&e2)
	})

	t.Run("NestedRendersFullyWithoutCycle", func(t *testing.T) {
		inner, err := NewSet[string]()
		require.NoError(t, err)
		x := ptr("x")
		require.NoError(t, inner.Add(x))

		outer, err := NewSet[any]()
		require.NoError(t, err)
		var el any = inner
		require.NoError(t, outer.Add(&el))

		assert.Equal(t, "Set{Set{x}}", outer.String())
		runtime.KeepAlive(x)
		runtime.KeepAlive(&el)
	})
}
