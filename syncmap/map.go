// Copyright (c) 2025 BVK Chaitanya

// Package syncmap provides a typed wrapper over sync.Map.
package syncmap

import "sync"

type Map[K comparable, V any] struct {
	v sync.Map
}

func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	v, ok := m.v.Load(key)
	if !ok {
		return value, ok
	}
	return v.(V), ok
}

func (m *Map[K, V]) Store(key K, value V) {
	m.v.Store(key, value)
}

func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	a, loaded := m.v.LoadOrStore(key, value)
	return a.(V), loaded
}

// LoadOrCreate is like LoadOrStore, but calls create only when the key is
// missing. Concurrent callers may call create more than once, but all of them
// receive the same stored value.
func (m *Map[K, V]) LoadOrCreate(key K, create func() V) (actual V, loaded bool) {
	if v, ok := m.Load(key); ok {
		return v, true
	}
	return m.LoadOrStore(key, create())
}

func (m *Map[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	v, loaded := m.v.LoadAndDelete(key)
	if !loaded {
		return value, false
	}
	return v.(V), true
}

func (m *Map[K, V]) Delete(key K) {
	m.v.Delete(key)
}

// Range can be used directly in range-over-func loops.
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.v.Range(func(key, value any) bool {
		return f(key.(K), value.(V))
	})
}

func (m *Map[K, V]) Keys() []K {
	var keys []K
	for k := range m.Range {
		keys = append(keys, k)
	}
	return keys
}

func (m *Map[K, V]) Len() int {
	n := 0
	for range m.Range {
		n++
	}
	return n
}
