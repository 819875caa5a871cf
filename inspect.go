package weakcoll

import (
	"fmt"
	"sort"
	"strings"
)

// renderable is implemented by both collection types so nested collections
// render through the shared cycle guard instead of recursing blindly.
type renderable interface {
	renderInto(b *strings.Builder, seen map[any]bool)
}

// String renders the live members, guarding against self-referential
// nesting. Order follows the rendered element text to keep output stable
// for humans; membership order itself is unspecified.
func (s *Set[T]) String() string {
	var b strings.Builder
	s.renderInto(&b, make(map[any]bool))
	return b.String()
}

func (s *Set[T]) renderInto(b *strings.Builder, seen map[any]bool) {
	if seen[s] {
		b.WriteString("Set{...}")
		return
	}
	seen[s] = true
	defer delete(seen, s)

	parts := make([]string, 0, 4)
	for el := range s.All() {
		var eb strings.Builder
		renderValue(&eb, el, seen)
		parts = append(parts, eb.String())
	}
	sort.Strings(parts)

	b.WriteString("Set{")
	b.WriteString(strings.Join(parts, ", "))
	b.WriteByte('}')
}

// String renders the live pairs, guarding against self-referential nesting.
func (m *Map[K, V]) String() string {
	var b strings.Builder
	m.renderInto(&b, make(map[any]bool))
	return b.String()
}

func (m *Map[K, V]) renderInto(b *strings.Builder, seen map[any]bool) {
	if seen[m] {
		b.WriteString("Map{...}")
		return
	}
	seen[m] = true
	defer delete(seen, m)

	parts := make([]string, 0, 4)
	for k, v := range m.All() {
		var eb strings.Builder
		renderValue(&eb, k, seen)
		eb.WriteString(": ")
		renderValue(&eb, v, seen)
		parts = append(parts, eb.String())
	}
	sort.Strings(parts)

	b.WriteString("Map{")
	b.WriteString(strings.Join(parts, ", "))
	b.WriteByte('}')
}

// renderValue renders a single element or key/value, dispatching nested
// collections through the seen set. A panic from a caller-supplied String
// method propagates unmodified; the seen set is function-scoped, so there
// is no guard state to restore.
func renderValue[T any](b *strings.Builder, v *T, seen map[any]bool) {
	if v == nil {
		b.WriteString("nil")
		return
	}
	if r, ok := any(v).(renderable); ok {
		r.renderInto(b, seen)
		return
	}
	if r, ok := any(*v).(renderable); ok {
		r.renderInto(b, seen)
		return
	}
	fmt.Fprintf(b, "%v", *v)
}
