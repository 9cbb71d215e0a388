/*
Copyright 2024 Vimeo Inc.
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
	"fmt"
	"sync"

	"github.com/vimeo/lrumemo/lru"
)

// ComputeFunc returns the value for the given key and cannot fail.
type ComputeFunc[K comparable, V any] func(ctx context.Context, key K) V

// Func is a memoized ComputeFunc.
//
// Func is designed for cases where computing a value is quick, can't
// fail, but is not completely free. It holds a lock while calling the
// ComputeFunc. For expensive or fallible calls, one should use Loader.
type Func[K comparable, V any] struct {
	mu      sync.Mutex
	cache   *lru.Cache[K, V]
	compute ComputeFunc[K, V]
}

// NewFunc memoizes compute in a cache configured by params.
func NewFunc[K comparable, V any](compute ComputeFunc[K, V], params Params[K, V]) (*Func[K, V], error) {
	if compute == nil {
		panic("nil ComputeFunc")
	}
	c, err := params.newCache()
	if err != nil {
		return nil, fmt.Errorf("memo: func: %w", err)
	}
	return &Func[K, V]{cache: c, compute: compute}, nil
}

// Get returns the cached value for key, computing and installing it on a
// miss.
func (f *Func[K, V]) Get(ctx context.Context, key K) V {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.cache.Read(key); ok {
		return v
	}
	v := f.compute(ctx, key)
	f.cache.Install(key, v)
	return v
}

// Stats returns a snapshot of the underlying cache's counters.
func (f *Func[K, V]) Stats() lru.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cache.Stats()
}

// Len returns the number of cached values.
func (f *Func[K, V]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cache.Len()
}
