package weakcoll

import (
	"errors"
	"fmt"

	"github.com/hupe1980/weakcoll/engine"
)

var (
	// ErrNilKey is returned when a nil key or element is inserted. A weak
	// reference needs a referent, so nil can never be a member.
	ErrNilKey = engine.ErrNilKey

	// ErrConflictingDefaults is returned when a map is constructed with
	// both a default value and a default-producing function.
	ErrConflictingDefaults = errors.New("conflicting defaults: both a default value and a default func were supplied")
)

// KeyNotFoundError indicates a Fetch miss with no default configured. It
// carries the offending key so callers can report it.
type KeyNotFoundError[K any] struct {
	Key *K
}

func (e *KeyNotFoundError[K]) Error() string {
	if e.Key == nil {
		return "key not found: <nil>"
	}
	return fmt.Sprintf("key not found: %v", *e.Key)
}
