// Package engine provides the weak storage strategies backing the weakcoll
// collection types.
//
// A strategy implements the full weak-collection contract (insert, lookup,
// deletion, enumeration, compaction) on top of a weak-reference primitive
// with a particular capability profile. All strategies expose the same
// Engine interface so the collection facades never branch on the concrete
// implementation.
package engine

import (
	"errors"
	"iter"
	"log/slog"
)

var (
	// ErrNilKey is returned when a nil key or element is inserted.
	// A weak reference needs a referent, so nil can never be a member.
	ErrNilKey = errors.New("nil key")

	// ErrNoStrategy is returned when no storage strategy can be built for
	// the declared capability profile.
	ErrNoStrategy = errors.New("no storage strategy for capability profile")
)

// Profile declares the capabilities of the runtime's weak-reference
// primitive. It is determined once, at collection construction, and the
// selected strategy is never switched afterwards.
type Profile struct {
	// WeakKeys reports whether keys are independently collectible.
	WeakKeys bool

	// WeakValues reports whether values are independently collectible.
	WeakValues bool

	// SupportsDelete reports whether an entry can be removed directly,
	// as opposed to being tombstoned and reclaimed by a later collection.
	SupportsDelete bool

	// StableTokens reports whether identity tokens are unique and
	// comparable for the lifetime of their referent.
	StableTokens bool
}

// DetectProfile returns the capability profile of the Go runtime.
//
// weak.Pointer values are comparable, stable for the lifetime of the
// referent, and usable as map keys without keeping the referent alive, and
// map entries can be deleted directly. The Go primitive is therefore
// full-capability; the narrower strategies exist for callers that declare a
// reduced profile explicitly.
func DetectProfile() Profile {
	return Profile{
		WeakKeys:       true,
		WeakValues:     true,
		SupportsDelete: true,
		StableTokens:   true,
	}
}

// String returns a short description of the profile, e.g. "wk+wv+del+tok".
func (p Profile) String() string {
	s := ""
	if p.WeakKeys {
		s += "wk+"
	}
	if p.WeakValues {
		s += "wv+"
	}
	if p.SupportsDelete {
		s += "del+"
	}
	if p.StableTokens {
		s += "tok+"
	}
	if s == "" {
		return "none"
	}
	return s[:len(s)-1]
}

// Options contains tuning knobs shared by the storage strategies.
type Options struct {
	// PruneFloor is the minimum number of stale bookkeeping entries that
	// must accumulate before a read triggers an automatic prune pass.
	PruneFloor int

	// PruneFraction is the fraction of the bookkeeping table that must be
	// stale before a read triggers an automatic prune pass. The effective
	// cutoff is max(PruneFloor, ceil(PruneFraction*n)).
	PruneFraction float64

	// Logger receives debug output from prune sweeps. If nil, logging is
	// disabled.
	Logger *slog.Logger
}

// DefaultOptions contains the default tuning knobs. The cutoff keeps prune
// sweeps rare on small tables and proportional to size on large ones; tune
// it if your workload's allocation profile differs materially.
var DefaultOptions = Options{
	PruneFloor:    2000,
	PruneFraction: 0.2,
}

func (o Options) normalize() Options {
	if o.PruneFloor <= 0 {
		o.PruneFloor = DefaultOptions.PruneFloor
	}
	if o.PruneFraction <= 0 {
		o.PruneFraction = DefaultOptions.PruneFraction
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// cutoff returns the auto-prune threshold for a bookkeeping table of size n.
func (o Options) cutoff(n int) int {
	frac := int(float64(n)*o.PruneFraction + 0.999999)
	if frac < o.PruneFloor {
		return o.PruneFloor
	}
	return frac
}

// Engine is a weak storage strategy. Keys and values are addressed by
// identity: two distinct objects with equal contents are distinct entries.
//
// A nil value is legal and is kept distinct from "no entry". A nil key is
// rejected with ErrNilKey.
//
// Entries disappear without explicit deletion once their key or value
// becomes unreachable elsewhere; this is normal behavior, never an error.
// Engines are not safe for concurrent use.
type Engine[K, V any] interface {
	// Set inserts or overwrites the entry for key.
	Set(key *K, value *V) error

	// Get returns the value for key, or (nil, false) if the entry is
	// absent or has been collected.
	Get(key *K) (*V, bool)

	// Contains reports whether a live entry exists for key.
	Contains(key *K) bool

	// Delete removes the entry for key if present, returning the previous
	// value. Deleting an absent key is a no-op.
	Delete(key *K) (*V, bool)

	// All returns an iterator over the currently-live entries. The
	// iteration works on a snapshot, so the caller may delete entries
	// (including the current one) while ranging. Order is unspecified.
	All() iter.Seq2[*K, *V]

	// Len returns the number of currently-live entries.
	Len() int

	// Prune forces compaction of internal bookkeeping. It is always safe
	// and at worst a no-op.
	Prune()

	// Clear discards all entries and resets bookkeeping.
	Clear()

	// Replace swaps the contents with a snapshot built from src. If
	// building the snapshot fails, the previous contents are untouched.
	Replace(src iter.Seq2[*K, *V]) error
}

// New selects and constructs the storage strategy for the given capability
// profile, in order of preference: direct, tombstone, dual-table, surrogate.
// The choice is made once; callers hold the result behind the Engine
// interface.
func New[K, V any](profile Profile, opts Options) (Engine[K, V], error) {
	opts = opts.normalize()

	switch {
	case profile.WeakKeys && profile.WeakValues && profile.SupportsDelete:
		return newDirect[K, V](opts), nil
	case profile.WeakKeys && profile.WeakValues:
		return newTombstone[K, V](opts), nil
	case profile.WeakValues && profile.StableTokens:
		return newDualTable[K, V](opts), nil
	case profile.WeakValues:
		return newSurrogate[K, V](opts), nil
	default:
		return nil, ErrNoStrategy
	}
}
