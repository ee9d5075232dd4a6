// Package memo provides lazily-populated maps that compute each value at most
// once.
//
// A Map wraps a creation function. The first Get for a key invokes the
// function and caches the result; later calls return the cached value without
// calling it again. Entries are never evicted: a Map lives for one logical
// scope (for example one configuration session) and is dropped as a whole.
//
// # Absent keys
//
// Keys whose dynamic value is nil (a nil pointer, map, channel or interface)
// are all treated as the same "absent" key. The absent key is stored under a
// private slot that no real key can produce, so it behaves like any other key
// and never collides with a real one.
//
// # Concurrency
//
// Map is not safe for concurrent use. Two goroutines missing on the same key
// would both run the creation function. Use Sync when several goroutines
// share a memoized map.
package memo
