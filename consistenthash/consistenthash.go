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

// Package consistenthash provides an implementation of a ring hash.
package consistenthash // import "github.com/vimeo/lrumemo/consistenthash"

import (
	"hash/crc32"
	"sort"
	"strconv"
)

// Hash maps the data to a uint32 hash-ring
type Hash func(data []byte) uint32

// Map tracks segments in a hash-ring, mapped to named members.
type Map[T any] struct {
	hash       Hash
	segsPerKey int
	keyHashes  []uint32 // Sorted
	hashMap    map[uint32]string
	members    map[string]T
}

// New constructs a new consistenthash hashring, with segsPerKey segments
// per added member. A nil fn selects crc32.ChecksumIEEE.
func New[T any](segsPerKey int, fn Hash) *Map[T] {
	if segsPerKey < 1 {
		segsPerKey = 1
	}
	m := &Map[T]{
		segsPerKey: segsPerKey,
		hash:       fn,
		hashMap:    make(map[uint32]string),
		members:    make(map[string]T),
	}
	if m.hash == nil {
		m.hash = crc32.ChecksumIEEE
	}
	return m
}

// IsEmpty returns true if there are no items available.
func (m *Map[T]) IsEmpty() bool {
	return len(m.keyHashes) == 0
}

// Len returns the number of members on the ring.
func (m *Map[T]) Len() int {
	return len(m.members)
}

// Add adds a member to the hashring under name, establishing ownership of
// segsPerKey segments. Re-adding a name replaces its member.
func (m *Map[T]) Add(name string, member T) {
	if _, ok := m.members[name]; ok {
		m.members[name] = member
		return
	}
	m.members[name] = member
	for i := 0; i < m.segsPerKey; i++ {
		hash := m.hash([]byte(strconv.Itoa(i) + name))
		// On a collision the lexically smaller name keeps the segment,
		// so the ring does not depend on insertion order.
		if prev, taken := m.hashMap[hash]; taken {
			if prev < name {
				continue
			}
			m.hashMap[hash] = name
			continue
		}
		m.keyHashes = append(m.keyHashes, hash)
		m.hashMap[hash] = name
	}
	sort.Slice(m.keyHashes, func(i, j int) bool { return m.keyHashes[i] < m.keyHashes[j] })
}

// Get gets the member owning the closest segment to the provided key.
func (m *Map[T]) Get(key string) (T, bool) {
	if m.IsEmpty() {
		var zero T
		return zero, false
	}

	hash := m.hash([]byte(key))

	// Binary search for appropriate replica.
	idx := sort.Search(len(m.keyHashes), func(i int) bool { return m.keyHashes[i] >= hash })

	// Means we have cycled back to the first replica.
	if idx == len(m.keyHashes) {
		idx = 0
	}

	member, ok := m.members[m.hashMap[m.keyHashes[idx]]]
	return member, ok
}
