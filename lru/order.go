/*
Copyright 2022 Vimeo Inc.
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

package lru

// Slot identifies an entry's position in the slot array backing a Cache.
// A slot keeps its index for the lifetime of the Cache; eviction reuses it
// for the incoming key.
type Slot int

// NoSlot is the absent link: the predecessor of the most recent entry, the
// successor of the least recent one, and both ends of an empty ordering.
const NoSlot Slot = -1

// order is a doubly linked list threaded through a slot array that is
// allocated once, at the cache's capacity. Links are indices rather than
// pointers so the whole ordering is a single heap object.
//
// head is the most recently used slot, tail the least recently used.
type order[K comparable, V any] struct {
	slots []entry[K, V]
	head  Slot
	tail  Slot
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	next, prev Slot
}

func newOrder[K comparable, V any](capacity int) order[K, V] {
	return order[K, V]{
		slots: make([]entry[K, V], 0, capacity),
		head:  NoSlot,
		tail:  NoSlot,
	}
}

func (o *order[K, V]) full() bool {
	return len(o.slots) == cap(o.slots)
}

func (o *order[K, V]) valid(s Slot) bool {
	return s >= 0 && int(s) < len(o.slots)
}

// pushFront takes the next unused slot and links it in at the head.
// The caller must check full() first.
func (o *order[K, V]) pushFront(key K, value V) Slot {
	s := Slot(len(o.slots))
	o.slots = append(o.slots, entry[K, V]{
		key:   key,
		value: value,
		next:  o.head,
		prev:  NoSlot, // first element
	})
	if o.head != NoSlot {
		o.slots[o.head].prev = s
	}
	if o.tail == NoSlot {
		o.tail = s
	}
	o.head = s
	return s
}

// moveToFront makes s the most recently used slot.
func (o *order[K, V]) moveToFront(s Slot) {
	if len(o.slots) == 1 || o.head == s {
		// nothing to do
		return
	}

	e := &o.slots[s]
	if o.tail == s {
		o.tail = e.prev
		o.slots[e.prev].next = NoSlot
	} else {
		// neither end, so both neighbours exist
		o.slots[e.prev].next = e.next
		o.slots[e.next].prev = e.prev
	}

	e.prev = NoSlot
	e.next = o.head
	o.slots[o.head].prev = s
	o.head = s
}

// Len returns the number of occupied slots.
func (o *order[K, V]) Len() int {
	return len(o.slots)
}

// MostRecent returns the head slot, or NoSlot if the ordering is empty.
func (o *order[K, V]) MostRecent() Slot {
	return o.head
}

// LeastRecent returns the tail slot, or NoSlot if the ordering is empty.
func (o *order[K, V]) LeastRecent() Slot {
	return o.tail
}

// Older returns the slot used just before s, or NoSlot if s is the tail.
func (o *order[K, V]) Older(s Slot) Slot {
	if !o.valid(s) {
		return NoSlot
	}
	return o.slots[s].next
}

// Newer returns the slot used just after s, or NoSlot if s is the head.
func (o *order[K, V]) Newer(s Slot) Slot {
	if !o.valid(s) {
		return NoSlot
	}
	return o.slots[s].prev
}
