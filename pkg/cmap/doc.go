// Package cmap provides a sharded concurrent map keyed by strings.
//
// Keys are spread over shards with murmur3, each shard guarded by its own
// RWMutex. pixelsync uses it for the websocket client registry and for
// per-address rate limiters, both of which see many short critical
// sections from independent goroutines.
//
// Usage:
//
//	m := cmap.New[string, *client]()
//	m.Set(id, c)
//	c, ok := m.Get(id)
//
// Iteration locks one shard at a time, so Range does not observe a single
// consistent view of the whole map.
package cmap
