package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// Map is a concurrent-safe sharded map.
type Map[K ~string, V any] struct {
	shards    []*shard[K, V]
	shardMask uint64
	seed      uint32
}

type shard[K ~string, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// Option configures a Map.
type Option func(*options)

type options struct {
	shardCount int
	seed       uint32
}

// WithShardCount sets the shard count. Values that are not a power of two
// fall back to DefaultShardCount.
func WithShardCount(n int) Option {
	return func(o *options) { o.shardCount = n }
}

// WithSeed sets the murmur3 seed.
func WithSeed(seed uint32) Option {
	return func(o *options) { o.seed = seed }
}

// New creates a new sharded map.
func New[K ~string, V any](opts ...Option) *Map[K, V] {
	o := options{shardCount: DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}
	if o.shardCount <= 0 || o.shardCount&(o.shardCount-1) != 0 {
		o.shardCount = DefaultShardCount
	}

	m := &Map[K, V]{
		shards:    make([]*shard[K, V], o.shardCount),
		shardMask: uint64(o.shardCount - 1),
		seed:      o.seed,
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardIndex(key K) uint64 {
	return murmur3.Sum64WithSeed([]byte(key), m.seed) & m.shardMask
}

func (m *Map[K, V]) getShard(key K) *shard[K, V] {
	return m.shards[m.shardIndex(key)]
}

// Get retrieves a value by key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.getShard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.items[key]
	return val, ok
}

// Set stores a key-value pair.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Delete removes a key.
func (m *Map[K, V]) Delete(key K) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Count returns the total number of items.
func (m *Map[K, V]) Count() int {
	count := 0
	for _, s := range m.shards {
		s.mu.RLock()
		count += len(s.items)
		s.mu.RUnlock()
	}
	return count
}

// ShardCount returns the number of shards.
func (m *Map[K, V]) ShardCount() int {
	return len(m.shards)
}
