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

package factor

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vimeo/lrumemo/lru"
	"github.com/vimeo/lrumemo/memo"
)

// Cached remembers the factorisations of the most recently requested
// numbers. It is not safe for concurrent use; see Shared.
//
// Returned Factors are shared with the cache and must not be modified.
type Cached struct {
	factoriser Factoriser
	cache      *lru.Cache[uint64, Factors]
}

// NewCached wraps f with a cache holding up to capacity factorisations.
func NewCached(f Factoriser, capacity int) (*Cached, error) {
	c, err := lru.New[uint64, Factors](capacity)
	if err != nil {
		return nil, fmt.Errorf("factor: %w", err)
	}
	return &Cached{factoriser: f, cache: c}, nil
}

// Factorise implements Factoriser. Errors are not cached.
func (c *Cached) Factorise(ctx context.Context, n uint64) (Factors, error) {
	if fs, ok := c.cache.Read(n); ok {
		return fs, nil
	}
	fs, err := c.factoriser.Factorise(ctx, n)
	if err != nil {
		return nil, err
	}
	c.cache.Install(n, fs)
	return fs, nil
}

// Stats returns the cache's hit, miss and eviction counts.
func (c *Cached) Stats() lru.Stats {
	return c.cache.Stats()
}

// Len returns the number of cached factorisations.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Shared is a Factoriser safe for concurrent use, backed by a sharded
// memo.Loader. Concurrent requests for the same number are factorised
// once.
//
// Returned Factors are shared with the cache and must not be modified.
type Shared struct {
	loader *memo.Sharded[uint64, Factors]
}

// NewShared wraps f with a sharded cache configured by params. The key
// function defaults to the decimal form of the number.
func NewShared(name string, f Factoriser, params memo.ShardedParams[uint64, Factors]) (*Shared, error) {
	if params.KeyFunc == nil {
		params.KeyFunc = func(n uint64) string { return strconv.FormatUint(n, 10) }
	}
	getter := memo.GetterFunc[uint64, Factors](f.Factorise)
	l, err := memo.NewSharded[uint64, Factors](name, getter, params)
	if err != nil {
		return nil, fmt.Errorf("factor: %w", err)
	}
	return &Shared{loader: l}, nil
}

// Factorise implements Factoriser.
func (s *Shared) Factorise(ctx context.Context, n uint64) (Factors, error) {
	return s.loader.Get(ctx, n)
}

// Stats returns the statistics summed over every shard.
func (s *Shared) Stats() memo.LoaderStats {
	return s.loader.Stats()
}
