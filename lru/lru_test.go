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

package lru

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"
)

const testCapacity = 5

// fill installs keys 0..capacity-1 with values key+1000, oldest first.
func fill(t testing.TB, c *Cache[int, int]) {
	t.Helper()
	for i := 0; i < c.Cap(); i++ {
		if c.Install(i, i+1000) {
			t.Fatalf("install of fresh key %d reported it present", i)
		}
	}
}

// checkInvariants walks the ordering both ways and compares it against the
// index.
func checkInvariants[K comparable, V any](t testing.TB, c *Cache[K, V]) {
	t.Helper()
	o := &c.order
	if (o.head == NoSlot) != (o.Len() == 0) || (o.tail == NoSlot) != (o.Len() == 0) {
		t.Fatalf("head=%d tail=%d with %d entries", o.head, o.tail, o.Len())
	}
	if o.Len() > c.Cap() {
		t.Fatalf("len %d exceeds capacity %d", o.Len(), c.Cap())
	}
	if len(c.index) != o.Len() {
		t.Fatalf("index holds %d keys, ordering holds %d", len(c.index), o.Len())
	}
	seen := make(map[K]struct{}, o.Len())
	prev := NoSlot
	n := 0
	for s := o.head; s != NoSlot; s = o.slots[s].next {
		e := o.slots[s]
		if e.prev != prev {
			t.Fatalf("slot %d has prev %d; want %d", s, e.prev, prev)
		}
		if _, dup := seen[e.key]; dup {
			t.Fatalf("key %v reachable twice", e.key)
		}
		seen[e.key] = struct{}{}
		if got, ok := c.index[e.key]; !ok || got != s {
			t.Fatalf("index[%v] = %d, %t; want %d", e.key, got, ok, s)
		}
		prev = s
		n++
		if n > o.Len() {
			t.Fatal("cycle in ordering")
		}
	}
	if prev != o.tail {
		t.Fatalf("walk ended at %d; tail is %d", prev, o.tail)
	}
	if n != o.Len() {
		t.Fatalf("walked %d entries; want %d", n, o.Len())
	}
}

func TestNewInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -100} {
		c, err := New[string, int](capacity)
		if !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("New(%d) error = %v; want ErrInvalidCapacity", capacity, err)
		}
		if c != nil {
			t.Errorf("New(%d) returned a non-nil cache", capacity)
		}
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustNew(0) did not panic")
		}
	}()
	MustNew[string, int](0)
}

func TestEmptyCache(t *testing.T) {
	for _, capacity := range []int{1, 2, testCapacity, 64} {
		c := MustNew[int, int](capacity)
		for i := 0; i < 10; i++ {
			if v, ok := c.Read(i); ok {
				t.Fatalf("cap %d: Read(%d) on empty cache = %d, true", capacity, i, v)
			}
		}
		if c.Len() != 0 {
			t.Fatalf("cap %d: Len() = %d; want 0", capacity, c.Len())
		}
		if _, _, ok := c.MostRecent(); ok {
			t.Fatalf("cap %d: empty cache has a most recent entry", capacity)
		}
		if _, _, ok := c.LeastRecent(); ok {
			t.Fatalf("cap %d: empty cache has a least recent entry", capacity)
		}
		checkInvariants(t, c)
	}
}

func TestGet(t *testing.T) {
	getTests := []struct {
		name       string
		keyToAdd   string
		keyToGet   string
		expectedOk bool
	}{
		{"string_hit", "myKey", "myKey", true},
		{"string_miss", "myKey", "nonsense", false},
	}

	for _, tt := range getTests {
		lru := MustNew[string, int](1)
		lru.Install(tt.keyToAdd, 1234)
		val, ok := lru.Read(tt.keyToGet)
		if ok != tt.expectedOk {
			t.Fatalf("%s: cache hit = %v; want %v", tt.name, ok, !ok)
		} else if ok && val != 1234 {
			t.Fatalf("%s expected get to return 1234 but got %v", tt.name, val)
		}
	}
}

func TestFillAndRetrieve(t *testing.T) {
	c := MustNew[int, int](testCapacity)
	fill(t, c)
	if c.Len() != testCapacity {
		t.Fatalf("Len() = %d; want %d", c.Len(), testCapacity)
	}
	for i := 0; i < testCapacity; i++ {
		v, ok := c.Read(i)
		if !ok || v != i+1000 {
			t.Fatalf("Read(%d) = %d, %t; want %d, true", i, v, ok, i+1000)
		}
	}
	checkInvariants(t, c)
}

func TestEviction(t *testing.T) {
	c := MustNew[int, int](testCapacity)
	fill(t, c)

	if c.Install(testCapacity, testCapacity+1000) {
		t.Fatal("install of a new key reported it present")
	}
	if c.Len() != testCapacity {
		t.Fatalf("Len() = %d after eviction; want %d", c.Len(), testCapacity)
	}
	if _, ok := c.Read(0); ok {
		t.Fatal("least recently used key 0 survived eviction")
	}
	for i := 1; i <= testCapacity; i++ {
		if v, ok := c.Read(i); !ok || v != i+1000 {
			t.Fatalf("Read(%d) = %d, %t; want %d, true", i, v, ok, i+1000)
		}
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Fatalf("Evictions = %d; want 1", got)
	}
	checkInvariants(t, c)
}

func TestRecencyReordering(t *testing.T) {
	c := MustNew[int, int](testCapacity)
	fill(t, c)

	if _, ok := c.Read(0); !ok {
		t.Fatal("Read(0) missed on a full cache")
	}
	c.Install(testCapacity, testCapacity+1000)

	if v, ok := c.Read(0); !ok || v != 1000 {
		t.Fatalf("recently read key 0: Read = %d, %t; want 1000, true", v, ok)
	}
	if _, ok := c.Read(1); ok {
		t.Fatal("key 1 should have been evicted in place of key 0")
	}
	checkInvariants(t, c)
}

func TestKeysOrder(t *testing.T) {
	c := MustNew[int, int](4)
	for i := 0; i < 4; i++ {
		c.Install(i, i)
	}
	// 3 2 1 0
	c.Read(1)
	// 1 3 2 0
	c.Read(0)
	// 0 1 3 2
	c.Install(3, 33)
	// 3 0 1 2
	c.Write(2, 22)
	c.Read(2)
	want := []int{2, 3, 0, 1}
	if got := c.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v; want %v", got, want)
	}
	if k, v, ok := c.MostRecent(); !ok || k != 2 || v != 22 {
		t.Fatalf("MostRecent() = %d, %d, %t; want 2, 22, true", k, v, ok)
	}
	if k, v, ok := c.LeastRecent(); !ok || k != 1 || v != 1 {
		t.Fatalf("LeastRecent() = %d, %d, %t; want 1, 1, true", k, v, ok)
	}
	checkInvariants(t, c)
}

func TestStats(t *testing.T) {
	c := MustNew[int, int](testCapacity)
	fill(t, c)
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Fatalf("after install-only fill: %v; want no hits or misses", s)
	}

	for i := 0; i < testCapacity; i++ {
		c.Read(i)
	}
	if got := c.Stats().Hits; got != testCapacity {
		t.Fatalf("Hits = %d; want %d", got, testCapacity)
	}

	for i := 0; i < testCapacity; i++ {
		c.Write(i, i+1000)
	}
	if got := c.Stats().Hits; got != 2*testCapacity {
		t.Fatalf("Hits = %d; want %d", got, 2*testCapacity)
	}

	for i := 0; i < testCapacity; i++ {
		c.Write(i+testCapacity, i+1000)
	}
	s := c.Stats()
	if s.Hits != 2*testCapacity || s.Misses != testCapacity {
		t.Fatalf("got %v; want hits=%d misses=%d", s, 2*testCapacity, testCapacity)
	}
	if s.Evictions != testCapacity {
		t.Fatalf("Evictions = %d; want %d", s.Evictions, testCapacity)
	}
	if r := s.HitRatio(); r != 10.0/15.0 {
		t.Fatalf("HitRatio() = %v; want %v", r, 10.0/15.0)
	}
}

func TestStatsSnapshot(t *testing.T) {
	c := MustNew[string, int](2)
	c.Read("absent")
	s := c.Stats()
	s.Hits = 100
	s.Misses = 100
	if got := c.Stats(); got.Hits != 0 || got.Misses != 1 {
		t.Fatalf("mutating a snapshot leaked into the cache: %v", got)
	}
	if (Stats{}).HitRatio() != 0 {
		t.Fatal("HitRatio of zero stats should be 0")
	}
}

func TestInstallPresentKey(t *testing.T) {
	c := MustNew[string, string](3)
	c.Install("a", "v1")
	c.Install("b", "x")
	if !c.Install("a", "v2") {
		t.Fatal("Install on a present key returned false")
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", c.Len())
	}
	if v, ok := c.Read("a"); !ok || v != "v2" {
		t.Fatalf("Read(a) = %q, %t; want v2, true", v, ok)
	}
	if s := c.Stats(); s.Hits != 1 || s.Misses != 0 {
		t.Fatalf("stats = %v; want a single hit from Read", s)
	}
	checkInvariants(t, c)
}

func TestSingleEntryStability(t *testing.T) {
	c := MustNew[string, int](1)
	c.Install("only", 1)
	for i := 0; i < 10; i++ {
		if _, ok := c.Read("only"); !ok {
			t.Fatal("sole key missed")
		}
		if c.order.head != c.order.tail || c.order.head != 0 {
			t.Fatalf("head=%d tail=%d; want both 0", c.order.head, c.order.tail)
		}
	}
	c.Install("next", 2)
	if _, ok := c.Peek("only"); ok {
		t.Fatal("capacity-1 cache kept the old key")
	}
	if v, ok := c.Read("next"); !ok || v != 2 {
		t.Fatalf("Read(next) = %d, %t; want 2, true", v, ok)
	}
	checkInvariants(t, c)
}

func TestPeekDoesNotTouch(t *testing.T) {
	c := MustNew[int, int](2)
	c.Install(1, 1)
	c.Install(2, 2)
	if v, ok := c.Peek(1); !ok || v != 1 {
		t.Fatalf("Peek(1) = %d, %t; want 1, true", v, ok)
	}
	c.Install(3, 3)
	if _, ok := c.Peek(1); ok {
		t.Fatal("Peek refreshed recency of key 1")
	}
	if s := c.Stats(); s.Lookups() != 0 {
		t.Fatalf("Peek was counted: %v", s)
	}
}

func TestEvict(t *testing.T) {
	evictedKeys := make([]string, 0)
	lru := MustNew[string, int](20)
	lru.OnEvicted = func(key string, value int) {
		if _, ok := lru.Peek(key); ok {
			t.Errorf("evicted key %q still cached during callback", key)
		}
		evictedKeys = append(evictedKeys, key)
	}
	for i := 0; i < 22; i++ {
		lru.Install(fmt.Sprintf("myKey%d", i), 1234)
	}

	if len(evictedKeys) != 2 {
		t.Fatalf("got %d evicted keys; want 2", len(evictedKeys))
	}
	if evictedKeys[0] != "myKey0" {
		t.Fatalf("got %v in first evicted key; want %s", evictedKeys[0], "myKey0")
	}
	if evictedKeys[1] != "myKey1" {
		t.Fatalf("got %v in second evicted key; want %s", evictedKeys[1], "myKey1")
	}

	// move 9 and 10 to the head
	lru.Read("myKey10")
	lru.Read("myKey9")
	// add another few keys to evict the others
	for i := 22; i < 32; i++ {
		lru.Install(fmt.Sprintf("myKey%d", i), 1234)
	}
	for _, k := range []string{"myKey9", "myKey10"} {
		if _, ok := lru.Peek(k); !ok {
			t.Errorf("%s was evicted despite being recently read", k)
		}
	}
	if _, ok := lru.Peek("myKey11"); ok {
		t.Error("myKey11 survived ten more insertions")
	}
	checkInvariants(t, lru)
}

func TestRandomOperations(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, capacity := range []int{1, 2, 3, 7, 16} {
		c := MustNew[int, int](capacity)
		// shadow tracks recency with a plain slice, most recent first.
		shadow := []int{}
		vals := map[int]int{}
		touch := func(k int) {
			for i, sk := range shadow {
				if sk == k {
					shadow = append(shadow[:i], shadow[i+1:]...)
					break
				}
			}
			shadow = append([]int{k}, shadow...)
			if len(shadow) > capacity {
				delete(vals, shadow[capacity])
				shadow = shadow[:capacity]
			}
		}
		for i := 0; i < 2000; i++ {
			k := r.Intn(3 * capacity)
			switch r.Intn(3) {
			case 0:
				v, ok := c.Read(k)
				want, present := vals[k]
				if ok != present || v != want {
					t.Fatalf("cap %d op %d: Read(%d) = %d, %t; want %d, %t", capacity, i, k, v, ok, want, present)
				}
				if ok {
					touch(k)
				}
			case 1:
				c.Write(k, i)
				vals[k] = i
				touch(k)
			default:
				_, present := vals[k]
				if got := c.Install(k, i); got != present {
					t.Fatalf("cap %d op %d: Install(%d) = %t; want %t", capacity, i, k, got, present)
				}
				vals[k] = i
				touch(k)
			}
			checkInvariants(t, c)
			if !reflect.DeepEqual(c.Keys(), shadow) {
				t.Fatalf("cap %d op %d: Keys() = %v; want %v", capacity, i, c.Keys(), shadow)
			}
		}
	}
}

func BenchmarkGetAllHits(b *testing.B) {
	b.ReportAllocs()
	type complexStruct struct {
		a, b, c, d, e, f int64
		k, l, m, n, o, p float64
	}
	// Populate the cache
	l := MustNew[int, complexStruct](32)
	for z := 0; z < 32; z++ {
		l.Install(z, complexStruct{a: int64(z)})
	}

	b.ResetTimer()
	for z := 0; z < b.N; z++ {
		// take the lower 5 bits as mod 32 so we always hit
		l.Read(z & 31)
	}
}

func BenchmarkGetHalfHits(b *testing.B) {
	b.ReportAllocs()
	type complexStruct struct {
		a, b, c, d, e, f int64
		k, l, m, n, o, p float64
	}
	// Populate the cache
	l := MustNew[int, complexStruct](32)
	for z := 0; z < 32; z++ {
		l.Install(z, complexStruct{a: int64(z)})
	}

	b.ResetTimer()
	for z := 0; z < b.N; z++ {
		// take the lower 4 bits as mod 16 shifted left by 1 to
		l.Read((z&15)<<1 | z&16>>4 | z&1<<4)
	}
}

func BenchmarkInstallEvicting(b *testing.B) {
	b.ReportAllocs()
	l := MustNew[int, int](1024)
	b.ResetTimer()
	for z := 0; z < b.N; z++ {
		l.Install(z, z)
	}
}
