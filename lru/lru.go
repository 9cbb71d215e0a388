/*
Copyright 2013 Google Inc.
Copyright 2026 Vimeo Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package lru implements a fixed-capacity LRU cache.
//
// A Cache pairs a map from key to slot with a doubly linked recency
// ordering threaded through a slot array sized at construction. Read,
// Write and Install are all O(1). Once the cache is full, admitting a new
// key reuses the slot of the entry chosen by the cache's Policy, which is
// the least recently used entry unless another Policy is supplied.
//
// The typical memoization pattern is Read, then on a miss compute the
// value and Install it, so that the miss is only counted once:
//
//	if v, ok := c.Read(k); ok {
//		return v
//	}
//	v := compute(k)
//	c.Install(k, v)
package lru // import "github.com/vimeo/lrumemo/lru"

import (
	"errors"
	"fmt"
)

// ErrInvalidCapacity is returned by New when the requested capacity is
// zero or negative.
var ErrInvalidCapacity = errors.New("lru: capacity must be positive")

// Cache is an LRU cache. It is not safe for concurrent access.
type Cache[K comparable, V any] struct {
	// OnEvicted optionally specifies a callback function to be
	// executed when an entry is evicted to make room for a new key.
	// It runs after the new key has been installed.
	OnEvicted func(key K, value V)

	index  map[K]Slot
	order  order[K, V]
	policy Policy
	stats  Stats
}

// Option configures a Cache at construction.
type Option interface {
	apply(*options)
}

type options struct {
	policy Policy
}

type funcOption struct {
	f func(*options)
}

func (fo *funcOption) apply(o *options) {
	fo.f(o)
}

// WithPolicy sets the eviction policy; defaults to LeastRecentlyUsed.
func WithPolicy(p Policy) Option {
	return &funcOption{f: func(o *options) {
		if p != nil {
			o.policy = p
		}
	}}
}

// New creates a Cache holding at most capacity entries.
// It returns an error wrapping ErrInvalidCapacity if capacity is not
// positive.
func New[K comparable, V any](capacity int, opts ...Option) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	o := options{policy: LeastRecentlyUsed{}}
	for _, opt := range opts {
		opt.apply(&o)
	}
	return &Cache[K, V]{
		index:  make(map[K]Slot, capacity),
		order:  newOrder[K, V](capacity),
		policy: o.policy,
	}, nil
}

// MustNew is like New but panics if capacity is not positive.
func MustNew[K comparable, V any](capacity int, opts ...Option) *Cache[K, V] {
	c, err := New[K, V](capacity, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Read looks up a key's value from the cache. A hit marks the entry as
// the most recently used; a miss leaves the contents untouched. Either
// way it is counted in Stats.
func (c *Cache[K, V]) Read(key K) (value V, ok bool) {
	s, hit := c.index[key]
	if !hit {
		c.stats.Misses++
		return
	}
	c.stats.Hits++
	c.order.moveToFront(s)
	return c.order.slots[s].value, true
}

// Write installs the value and counts a hit if key was already cached or
// a miss if it was not.
func (c *Cache[K, V]) Write(key K, value V) {
	if c.Install(key, value) {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
}

// Install stores value under key and marks it the most recently used,
// without touching the hit and miss counters. It reports whether key was
// already present. If key is new and the cache is full, the entry picked
// by the eviction policy is dropped and its slot reused.
func (c *Cache[K, V]) Install(key K, value V) (wasPresent bool) {
	if s, hit := c.index[key]; hit {
		c.order.slots[s].value = value
		c.order.moveToFront(s)
		return true
	}

	if !c.order.full() {
		c.index[key] = c.order.pushFront(key, value)
		return false
	}

	s := c.victim()
	e := &c.order.slots[s]
	evictedKey, evictedValue := e.key, e.value
	delete(c.index, evictedKey)
	e.key, e.value = key, value
	c.index[key] = s
	c.order.moveToFront(s)
	c.stats.Evictions++

	if c.OnEvicted != nil {
		c.OnEvicted(evictedKey, evictedValue)
	}
	return false
}

// victim asks the policy for a slot, falling back to the least recently
// used one if the answer is not an occupied slot.
func (c *Cache[K, V]) victim() Slot {
	s := c.policy.Victim(&c.order)
	if !c.order.valid(s) {
		return c.order.tail
	}
	return s
}

// Peek returns key's value without updating recency or statistics.
func (c *Cache[K, V]) Peek(key K) (value V, ok bool) {
	s, hit := c.index[key]
	if !hit {
		return
	}
	return c.order.slots[s].value, true
}

// MostRecent returns the most recently used entry.
func (c *Cache[K, V]) MostRecent() (key K, value V, ok bool) {
	return c.at(c.order.head)
}

// LeastRecent returns the least recently used entry, which is the next to
// be evicted under the default policy.
func (c *Cache[K, V]) LeastRecent() (key K, value V, ok bool) {
	return c.at(c.order.tail)
}

func (c *Cache[K, V]) at(s Slot) (key K, value V, ok bool) {
	if s == NoSlot {
		return
	}
	e := &c.order.slots[s]
	return e.key, e.value, true
}

// Keys returns the cached keys ordered from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, c.order.Len())
	for s := c.order.head; s != NoSlot; s = c.order.slots[s].next {
		keys = append(keys, c.order.slots[s].key)
	}
	return keys
}

// Len returns the number of items in the cache.
func (c *Cache[K, V]) Len() int {
	return c.order.Len()
}

// Cap returns the capacity the cache was created with.
func (c *Cache[K, V]) Cap() int {
	return cap(c.order.slots)
}

// Stats returns a snapshot of the cache's counters.
func (c *Cache[K, V]) Stats() Stats {
	return c.stats
}
