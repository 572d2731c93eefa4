// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import "sync"

// Handle is a typed reference into a Container. The type parameter
// keeps handles of different kinds apart at compile time. The zero
// value is the invalid sentinel.
type Handle[T any] struct {
	index uint32
	gen   uint32
}

// InvalidHandle returns the sentinel handle for T.
func InvalidHandle[T any]() Handle[T] {
	return Handle[T]{}
}

// IsValid reports whether h was issued by a container. A valid handle
// can still be stale, the container checks that on lookup.
func (h Handle[T]) IsValid() bool {
	return h.gen != 0
}

// Invalidate turns h into the sentinel.
func (h *Handle[T]) Invalidate() {
	*h = Handle[T]{}
}

// ID returns the slot index of the handle.
func (h Handle[T]) ID() uint32 {
	return h.index
}

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Container stores values addressed by generation-checked handles.
// Removing a value makes every handle to it stale.
type Container[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []uint32
}

// Insert stores v and returns its handle.
func (c *Container[T]) Insert(v T) Handle[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.free); n > 0 {
		idx := c.free[n-1]
		c.free = c.free[:n-1]
		s := &c.slots[idx]
		s.value, s.live = v, true
		return Handle[T]{index: idx, gen: s.gen}
	}

	c.slots = append(c.slots, slot[T]{value: v, gen: 1, live: true})
	return Handle[T]{index: uint32(len(c.slots) - 1), gen: 1}
}

func (c *Container[T]) lookup(h Handle[T]) (*slot[T], error) {
	if !h.IsValid() {
		return nil, Newf(ErrInvalidHandle, "sentinel handle")
	}
	if int(h.index) >= len(c.slots) {
		return nil, Newf(ErrInvalidHandle, "handle %d out of range", h.index)
	}
	s := &c.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil, Newf(ErrInvalidHandle, "stale handle %d (generation %d, current %d)", h.index, h.gen, s.gen)
	}
	return s, nil
}

// Get returns the value h refers to.
func (c *Container[T]) Get(h Handle[T]) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, err := c.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// Replace swaps the value behind h, h stays valid.
func (c *Container[T]) Replace(h Handle[T], v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.lookup(h)
	if err != nil {
		return err
	}
	s.value = v
	return nil
}

// Remove deletes the value behind h and returns it.
func (c *Container[T]) Remove(h Handle[T]) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	s, err := c.lookup(h)
	if err != nil {
		return zero, err
	}
	v := s.value
	s.value, s.live = zero, false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	c.free = append(c.free, h.index)
	return v, nil
}

// Len returns the number of live values.
func (c *Container[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.slots) - len(c.free)
}

// Each calls fn for every live value in slot order.
func (c *Container[T]) Each(fn func(Handle[T], T)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i, s := range c.slots {
		if s.live {
			fn(Handle[T]{index: uint32(i), gen: s.gen}, s.value)
		}
	}
}
