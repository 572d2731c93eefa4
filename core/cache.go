// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"sync"

	"github.com/dolthub/swiss"
)

// KeyedCache deduplicates driver objects by a value key. Creation runs
// under the cache lock, so a key is created at most once even when
// many goroutines ask for it at the same time.
type KeyedCache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   *swiss.Map[K, V]
	capacity  uint32
	destroyed bool
}

// NewKeyedCache creates an empty cache sized for capacity entries.
func NewKeyedCache[K comparable, V any](capacity uint32) *KeyedCache[K, V] {
	return &KeyedCache[K, V]{
		entries:  swiss.NewMap[K, V](capacity),
		capacity: capacity,
	}
}

// GetOrCreate returns the value cached under key, calling create on a miss.
// A failed create leaves the cache unchanged.
func (c *KeyedCache[K, V]) GetOrCreate(key K, create func(K) (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	if c.destroyed {
		return zero, Violation("keyed cache used after destroy")
	}

	if v, ok := c.entries.Get(key); ok {
		return v, nil
	}

	v, err := create(key)
	if err != nil {
		return zero, err
	}
	if err := c.insert(key, v); err != nil {
		return zero, err
	}
	return v, nil
}

// insert refuses to overwrite, an existing key means the cache
// bookkeeping is broken.
func (c *KeyedCache[K, V]) insert(key K, v V) error {
	if c.entries.Has(key) {
		return Violation("keyed cache: duplicate insert for %v", key)
	}
	c.entries.Put(key, v)
	return nil
}

// Len returns the number of cached entries.
func (c *KeyedCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Count()
}

// Destroy hands every entry to release and empties the cache.
// Any later GetOrCreate is a contract violation.
func (c *KeyedCache[K, V]) Destroy(release func(K, V)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Iter(func(k K, v V) bool {
		release(k, v)
		return false
	})
	c.entries = swiss.NewMap[K, V](c.capacity)
	c.destroyed = true
}
