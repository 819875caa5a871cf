package weakcoll

import (
	"github.com/hupe1980/weakcoll/engine"
)

// SetOptions configures a Set at construction time.
//
// Options are applied via mutation functions passed to NewSet:
//
//	s, err := weakcoll.NewSet[Node](func(o *weakcoll.SetOptions[Node]) {
//	    o.Logger = weakcoll.NewTextLogger(slog.LevelDebug)
//	})
type SetOptions[T any] struct {
	// Profile declares the weak-primitive capability profile. If nil, the
	// runtime's profile is detected once and used for the lifetime of the
	// collection.
	Profile *engine.Profile

	// Engine contains the storage-strategy tuning knobs (prune cutoffs).
	Engine engine.Options

	// Logger receives structured debug output. If nil, logging is
	// disabled.
	Logger *Logger
}

// MapOptions configures a Map at construction time.
type MapOptions[K, V any] struct {
	// Profile declares the weak-primitive capability profile. If nil, the
	// runtime's profile is detected once and used for the lifetime of the
	// collection.
	Profile *engine.Profile

	// Engine contains the storage-strategy tuning knobs (prune cutoffs).
	Engine engine.Options

	// Logger receives structured debug output. If nil, logging is
	// disabled.
	Logger *Logger

	defaultValue    *V
	defaultValueSet bool
	defaultFunc     func(*Map[K, V], *K) *V
}

// SetDefaultValue configures the value returned by GetDefault on a miss.
// A nil value is a legal default. Combining it with SetDefaultFunc makes
// NewMap fail with ErrConflictingDefaults.
func (o *MapOptions[K, V]) SetDefaultValue(v *V) {
	o.defaultValue = v
	o.defaultValueSet = true
}

// SetDefaultFunc configures a producer invoked by GetDefault on a miss with
// the map and the missing key. Combining it with SetDefaultValue makes
// NewMap fail with ErrConflictingDefaults.
func (o *MapOptions[K, V]) SetDefaultFunc(fn func(m *Map[K, V], key *K) *V) {
	o.defaultFunc = fn
}
