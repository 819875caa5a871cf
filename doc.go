// Package weakcoll provides weakly-referencing Set and Map collection types.
//
// Members of a Set, and both keys and values of a Map, do not prevent
// garbage collection: an entry silently disappears once any of its
// referenced objects becomes unreachable from anywhere else in the program.
// Membership and key comparison use object identity, never value equality.
//
// # Quick Start
//
//	s, _ := weakcoll.NewSet[Session]()
//	sess := newSession()
//	s.Add(sess)
//	s.Contains(sess) // true
//	// ... drop the last strong reference to sess; after the next
//	// collection cycle the set no longer counts it:
//	s.Len() // 0
//
//	m, _ := weakcoll.NewMap[Conn, Session]()
//	m.Set(conn, sess)
//	v, ok := m.Get(conn)
//
// # Storage Strategies
//
// The collection surface sits on one of four interchangeable storage
// strategies in package engine, selected once at construction from the
// weak-primitive capability profile (weak keys, weak values, direct
// deletion, stable identity tokens). On the Go runtime the full-capability
// direct strategy applies; the narrower strategies emulate the same
// observable behavior by tombstoning, identity indirection, and amortized
// pruning, and remain selectable via SetOptions/MapOptions for declared
// reduced profiles.
//
// # Liveness
//
// Collection is external and non-deterministic: any operation, including a
// pure read, may observe an entry transition from live to gone between two
// calls without an explicit deletion. This is intended behavior, not an
// error. Dead entries are detected lazily and reclaimed by opportunistic
// and explicit prune passes.
//
// # Concurrency
//
// Collections are not safe for concurrent use. Callers needing concurrent
// access must serialize externally with a mutex or equivalent.
package weakcoll
