package cmap

// Range iterates over all key-value pairs until fn returns false.
// fn must not call back into the map.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// GetOrCreate returns the value for key, creating it with create when
// absent. create runs under the shard lock at most once per key.
func (m *Map[K, V]) GetOrCreate(key K, create func() V) (V, bool) {
	s := m.getShard(key)

	s.mu.RLock()
	if v, ok := s.items[key]; ok {
		s.mu.RUnlock()
		return v, true
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items[key]; ok {
		return v, true
	}
	v := create()
	s.items[key] = v
	return v, false
}

// DeleteIf removes every entry for which fn returns true and returns the
// number removed.
func (m *Map[K, V]) DeleteIf(fn func(key K, value V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if fn(k, v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
