package weakcoll

import (
	"iter"

	"github.com/hupe1980/weakcoll/engine"
)

// Set is a weakly-referencing set of objects compared by identity. Members
// do not prevent garbage collection: an element silently disappears once it
// becomes unreachable from anywhere else in the program. Two distinct
// objects with equal contents are distinct members.
//
// A Set is not safe for concurrent use; callers needing concurrent access
// must serialize externally.
type Set[T any] struct {
	eng     engine.Engine[T, T]
	profile engine.Profile
	engOpts engine.Options
	logger  *Logger
}

// NewSet creates an empty Set. The storage strategy is selected once, from
// the declared (or detected) capability profile, and never switched.
func NewSet[T any](optFns ...func(o *SetOptions[T])) (*Set[T], error) {
	opts := SetOptions[T]{}
	for _, fn := range optFns {
		fn(&opts)
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

	eng, err := engine.New[T, T](profile, engOpts)
	if err != nil {
		return nil, err
	}

	return &Set[T]{
		eng:     eng,
		profile: profile,
		engOpts: engOpts,
		logger:  logger.WithProfile(profile),
	}, nil
}

// derived creates an empty Set with the receiver's configuration, used by
// the set-algebra operations.
func (s *Set[T]) derived() *Set[T] {
	eng, _ := engine.New[T, T](s.profile, s.engOpts)
	return &Set[T]{
		eng:     eng,
		profile: s.profile,
		engOpts: s.engOpts,
		logger:  s.logger,
	}
}

// Add inserts el into the set. Adding a present element is a no-op. A nil
// element is rejected with ErrNilKey.
func (s *Set[T]) Add(el *T) error {
	return s.eng.Set(el, el)
}

// AddSeq inserts every element produced by src.
func (s *Set[T]) AddSeq(src iter.Seq[*T]) error {
	for el := range src {
		if err := s.eng.Set(el, el); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether el is a live member, by identity.
func (s *Set[T]) Contains(el *T) bool {
	return s.eng.Contains(el)
}

// Delete removes el from the set, reporting whether it was a member.
// Deleting an absent element is a no-op.
func (s *Set[T]) Delete(el *T) bool {
	_, ok := s.eng.Delete(el)
	return ok
}

// Len returns the number of currently-live members.
func (s *Set[T]) Len() int {
	return s.eng.Len()
}

// All returns an iterator over the currently-live members. The iteration
// works on a snapshot, so callbacks may mutate the set (including deleting
// the current element). Order is unspecified.
func (s *Set[T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for el := range s.eng.All() {
			if !yield(el) {
				return
			}
		}
	}
}

// ToSlice returns the live members.
func (s *Set[T]) ToSlice() []*T {
	var els []*T
	for el := range s.All() {
		els = append(els, el)
	}
	return els
}

// Union returns a new set holding the members of both sets.
func (s *Set[T]) Union(other *Set[T]) (*Set[T], error) {
	out := s.derived()
	if err := out.AddSeq(s.All()); err != nil {
		return nil, err
	}
	if err := out.AddSeq(other.All()); err != nil {
		return nil, err
	}
	return out, nil
}

// Intersect returns a new set holding the members present in both sets.
func (s *Set[T]) Intersect(other *Set[T]) (*Set[T], error) {
	out := s.derived()
	for el := range s.All() {
		if other.Contains(el) {
			if err := out.Add(el); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Difference returns a new set holding the members of s not in other.
func (s *Set[T]) Difference(other *Set[T]) (*Set[T], error) {
	out := s.derived()
	for el := range s.All() {
		if !other.Contains(el) {
			if err := out.Add(el); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// SymmetricDifference returns a new set holding the members in exactly one
// of the two sets.
func (s *Set[T]) SymmetricDifference(other *Set[T]) (*Set[T], error) {
	out, err := s.Difference(other)
	if err != nil {
		return nil, err
	}
	ba, err := other.Difference(s)
	if err != nil {
		return nil, err
	}
	if err := out.AddSeq(ba.All()); err != nil {
		return nil, err
	}
	return out, nil
}

// SubsetOf reports whether every member of s is a member of other.
func (s *Set[T]) SubsetOf(other *Set[T]) bool {
	for el := range s.All() {
		if !other.Contains(el) {
			return false
		}
	}
	return true
}

// ProperSubsetOf reports whether s is a subset of other and other has at
// least one member not in s.
func (s *Set[T]) ProperSubsetOf(other *Set[T]) bool {
	return s.Len() < other.Len() && s.SubsetOf(other)
}

// SupersetOf reports whether every member of other is a member of s.
func (s *Set[T]) SupersetOf(other *Set[T]) bool {
	return other.SubsetOf(s)
}

// ProperSupersetOf reports whether s is a superset of other and has at
// least one member not in other.
func (s *Set[T]) ProperSupersetOf(other *Set[T]) bool {
	return other.ProperSubsetOf(s)
}

// Equal reports whether both sets hold exactly the same members, by
// identity.
func (s *Set[T]) Equal(other *Set[T]) bool {
	return s.Len() == other.Len() && s.SubsetOf(other)
}

// DeleteFunc removes every member for which pred returns true and reports
// how many were removed. Iteration is over a snapshot, so pred may mutate
// the set.
func (s *Set[T]) DeleteFunc(pred func(el *T) bool) int {
	removed := 0
	for el := range s.All() {
		if pred(el) {
			if s.Delete(el) {
				removed++
			}
		}
	}
	return removed
}

// KeepFunc removes every member for which pred returns false and reports
// how many were removed.
func (s *Set[T]) KeepFunc(pred func(el *T) bool) int {
	return s.DeleteFunc(func(el *T) bool { return !pred(el) })
}

// Replace swaps the contents with a snapshot built from src. If building
// the snapshot fails, the previous contents are untouched.
func (s *Set[T]) Replace(src iter.Seq[*T]) error {
	err := s.eng.Replace(func(yield func(*T, *T) bool) {
		for el := range src {
			if !yield(el, el) {
				return
			}
		}
	})
	s.logger.LogReplace(s.eng.Len(), err)
	return err
}

// Clear discards all members.
func (s *Set[T]) Clear() {
	s.logger.LogClear(s.eng.Len())
	s.eng.Clear()
}

// Prune forces compaction of the strategy's internal bookkeeping. It is
// always safe; callers use it as a deterministic compaction point.
func (s *Set[T]) Prune() {
	s.eng.Prune()
}
