// Package lru is a fixed-capacity least-recently-used cache whose Add keeps
// the first value stored for a key.
package lru

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"gitlab.com/tozd/go/errors"
)

type Cache[K comparable, V any] struct {
	inner *lru.Cache[K, V]
}

func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, errors.Errorf("lru capacity must be positive, got %d", capacity)
	}
	inner, err := lru.New[K, V](capacity)
	if err != nil {
		return nil, errors.Errorf("creating lru: %w", err)
	}
	return &Cache[K, V]{inner: inner}, nil
}

// Add stores value under key unless key is already present. An existing
// entry keeps its value but is not refreshed. It reports whether value was
// stored.
func (me *Cache[K, V]) Add(key K, value V) bool {
	ok, _ := me.inner.ContainsOrAdd(key, value)
	return !ok
}

// Get returns the value for key and marks it most recently used.
func (me *Cache[K, V]) Get(key K) (V, bool) {
	return me.inner.Get(key)
}

// Contains checks for key without touching recency.
func (me *Cache[K, V]) Contains(key K) bool {
	return me.inner.Contains(key)
}

func (me *Cache[K, V]) Len() int {
	return me.inner.Len()
}

func (me *Cache[K, V]) Clear() {
	me.inner.Purge()
}
