/*
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

package memo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/vimeo/lrumemo/consistenthash"
	"github.com/vimeo/lrumemo/lru"
)

// ErrInvalidShards is returned by NewSharded when the shard count is not
// positive.
var ErrInvalidShards = errors.New("memo: shard count must be positive")

const defaultSegmentsPerShard = 50

// ShardedParams configures a Sharded loader.
type ShardedParams[K comparable, V any] struct {
	// Params applies to every shard, except that Capacity is the total
	// across all shards.
	Params[K, V]

	// Shards is the number of independent caches. It must be positive and
	// no larger than Capacity.
	Shards int

	// KeyFunc maps a key onto the hash ring. Defaults to fmt.Sprint.
	KeyFunc func(K) string

	// SegmentsPerShard is the number of ring segments each shard owns;
	// defaults to 50.
	SegmentsPerShard int
}

// Sharded spreads keys over several Loaders, each with its own lock and
// LRU ordering, so that callers working on different keys rarely contend.
// Recency is tracked per shard: the entry evicted is the least recently
// used one within the shard the new key hashes to.
type Sharded[K comparable, V any] struct {
	ring    *consistenthash.Map[*Loader[K, V]]
	shards  []*Loader[K, V]
	keyFunc func(K) string
}

// NewSharded creates a Sharded loader. Capacity is split as evenly as
// possible between the shards, so every shard must get at least one
// entry.
func NewSharded[K comparable, V any](name string, getter Getter[K, V], params ShardedParams[K, V]) (*Sharded[K, V], error) {
	if params.Shards <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidShards, params.Shards)
	}
	if params.Capacity < params.Shards {
		return nil, fmt.Errorf("memo: sharded loader %q: %w: capacity %d across %d shards",
			name, lru.ErrInvalidCapacity, params.Capacity, params.Shards)
	}
	segs := params.SegmentsPerShard
	if segs <= 0 {
		segs = defaultSegmentsPerShard
	}
	s := &Sharded[K, V]{
		ring:    consistenthash.New[*Loader[K, V]](segs, nil),
		shards:  make([]*Loader[K, V], 0, params.Shards),
		keyFunc: params.KeyFunc,
	}
	if s.keyFunc == nil {
		s.keyFunc = func(k K) string { return fmt.Sprint(k) }
	}

	per, extra := params.Capacity/params.Shards, params.Capacity%params.Shards
	for i := 0; i < params.Shards; i++ {
		p := params.Params
		p.Capacity = per
		if i < extra {
			p.Capacity++
		}
		l, err := NewLoader(name, getter, p)
		if err != nil {
			return nil, err
		}
		s.shards = append(s.shards, l)
		s.ring.Add(strconv.Itoa(i), l)
	}
	return s, nil
}

// Get returns the value for key from the shard that owns it.
func (s *Sharded[K, V]) Get(ctx context.Context, key K) (V, error) {
	return s.shardFor(key).Get(ctx, key)
}

func (s *Sharded[K, V]) shardFor(key K) *Loader[K, V] {
	l, ok := s.ring.Get(s.keyFunc(key))
	if !ok {
		// unreachable: NewSharded adds at least one shard
		return s.shards[0]
	}
	return l
}

// Shards returns the number of shards.
func (s *Sharded[K, V]) Shards() int {
	return len(s.shards)
}

// Stats returns the sum of every shard's statistics.
func (s *Sharded[K, V]) Stats() LoaderStats {
	var total LoaderStats
	for _, l := range s.shards {
		total = total.Add(l.Stats())
	}
	return total
}
