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

// Package memo memoizes expensive computations behind fixed-capacity LRU
// caches that are safe for concurrent use.
//
// An lru.Cache holds no lock of its own. The types here wrap one (or
// several, see Sharded) with a mutex and fill misses from a Getter:
//
//   - Loader runs the Getter outside its lock, deduplicating concurrent
//     misses for the same key, and does not cache errors.
//   - Func holds its lock while calling a computation that cannot fail.
//     It suits cheap computations where contention is not a concern.
package memo // import "github.com/vimeo/lrumemo/memo"

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vimeo/lrumemo/lru"
	"github.com/vimeo/lrumemo/singleflight"

	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"go.opencensus.io/trace"
)

// A Getter loads the value for a key on a cache miss.
//
// The returned value must depend on key alone: it is cached until the
// key is evicted, with no notion of expiry.
type Getter[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, error)
}

// A GetterFunc implements Getter with a function.
type GetterFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Get implements Get from Getter
func (f GetterFunc[K, V]) Get(ctx context.Context, key K) (V, error) {
	return f(ctx, key)
}

// Params configures the cache behind a Loader or Func.
type Params[K comparable, V any] struct {
	// Capacity is the maximum number of cache entries before an item is
	// evicted. It must be positive.
	Capacity int

	// Policy optionally overrides the eviction policy; the default evicts
	// the least recently used entry.
	Policy lru.Policy

	// OnEvicted optionally specifies a callback function to be executed
	// when an entry is evicted. It runs with the cache's lock held and
	// must not call back into the Loader or Func.
	OnEvicted func(key K, value V)

	// Recorder optionally receives opencensus measurements in place of
	// the global recorder (see view.NewMeter).
	Recorder stats.Recorder
}

func (p Params[K, V]) newCache() (*lru.Cache[K, V], error) {
	var opts []lru.Option
	if p.Policy != nil {
		opts = append(opts, lru.WithPolicy(p.Policy))
	}
	c, err := lru.New[K, V](p.Capacity, opts...)
	if err != nil {
		return nil, err
	}
	c.OnEvicted = p.OnEvicted
	return c, nil
}

// Loader is a concurrency-safe memoizer in front of a Getter.
//
// Get consults the cache first. On a miss, only one Getter call is made
// per key at a time; concurrent callers asking for the same key wait for
// it and share its result. Successful results are installed in the
// cache; errors are returned to every waiting caller and not cached.
type Loader[K comparable, V any] struct {
	name     string
	getter   Getter[K, V]
	recorder stats.Recorder

	mu    sync.Mutex // protects cache
	cache *lru.Cache[K, V]

	// flight ensures that each key is only loaded once at a time,
	// regardless of the number of concurrent callers.
	flight singleflight.TypedGroup[K, V]

	loads        AtomicInt
	loadErrors   AtomicInt
	loadsDeduped AtomicInt
}

// NewLoader creates a Loader named name, used to tag its opencensus
// measurements. It returns an error wrapping lru.ErrInvalidCapacity if
// params.Capacity is not positive.
func NewLoader[K comparable, V any](name string, getter Getter[K, V], params Params[K, V]) (*Loader[K, V], error) {
	if getter == nil {
		panic("nil Getter")
	}
	c, err := params.newCache()
	if err != nil {
		return nil, fmt.Errorf("memo: loader %q: %w", name, err)
	}
	return &Loader[K, V]{
		name:     name,
		getter:   getter,
		recorder: params.Recorder,
		cache:    c,
	}, nil
}

// Name returns the name of the loader.
func (l *Loader[K, V]) Name() string {
	return l.name
}

// Get returns the value for key, from the cache if possible and from the
// Getter otherwise.
func (l *Loader[K, V]) Get(ctx context.Context, key K) (V, error) {
	ctx, _ = tag.New(ctx, tag.Upsert(LoaderKey, l.name))

	ctx, span := trace.StartSpan(ctx, "lrumemo.(*Loader).Get on "+l.name)
	startTime := time.Now()
	defer func() {
		record(ctx, l.recorder, MRoundtripLatencyMilliseconds.M(sinceInMilliseconds(startTime)))
		span.End()
	}()

	record(ctx, l.recorder, MGets.M(1))
	if v, ok := l.read(key); ok {
		span.Annotate(nil, "Cache hit")
		record(ctx, l.recorder, MCacheHits.M(1))
		return v, nil
	}
	span.Annotate(nil, "Cache miss")
	record(ctx, l.recorder, MCacheMisses.M(1))

	var (
		v      V
		shared bool
		err    error
	)
	for {
		led := false
		v, shared, err = l.flight.Do(key, func() (V, error) {
			led = true
			// A flight that ended between our read and this one starting has
			// already installed the value.
			if v, ok := l.peek(key); ok {
				return v, nil
			}
			l.loads.Add(1)
			record(ctx, l.recorder, MLoads.M(1))
			v, err := l.getter.Get(ctx, key)
			if err != nil {
				l.loadErrors.Add(1)
				record(ctx, l.recorder, MLoadErrors.M(1))
				return v, err
			}
			if evicted := l.install(key, v); evicted > 0 {
				record(ctx, l.recorder, MEvictions.M(evicted))
			}
			return v, nil
		})
		// A waiter whose own context is live does not inherit the
		// cancellation of the caller that ran the load.
		if err == nil || led || ctx.Err() != nil || !isContextErr(err) {
			break
		}
		span.Annotate(nil, "Shared load canceled, retrying")
	}
	if shared {
		l.loadsDeduped.Add(1)
		record(ctx, l.recorder, MLoadsDeduped.M(1))
	}
	if err != nil {
		span.SetStatus(trace.Status{Code: trace.StatusCodeUnknown, Message: "Failed to load key: " + err.Error()})
		var zero V
		return zero, err
	}
	return v, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (l *Loader[K, V]) read(key K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Read(key)
}

func (l *Loader[K, V]) peek(key K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Peek(key)
}

// install stores the value and returns the number of evictions it caused.
func (l *Loader[K, V]) install(key K, value V) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	before := l.cache.Stats().Evictions
	l.cache.Install(key, value)
	return l.cache.Stats().Evictions - before
}

// Keys returns the cached keys ordered from most to least recently used.
func (l *Loader[K, V]) Keys() []K {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Keys()
}

// LoaderStats are statistics on a Loader.
type LoaderStats struct {
	Cache        lru.Stats // hits and misses of Gets, evictions
	Items        int
	Capacity     int
	Loads        int64 // getter calls
	LoadErrors   int64 // getter calls that failed
	LoadsDeduped int64 // Gets served by a load shared with other callers
}

// Add returns the sum of two LoaderStats.
func (s LoaderStats) Add(o LoaderStats) LoaderStats {
	return LoaderStats{
		Cache: lru.Stats{
			Hits:      s.Cache.Hits + o.Cache.Hits,
			Misses:    s.Cache.Misses + o.Cache.Misses,
			Evictions: s.Cache.Evictions + o.Cache.Evictions,
		},
		Items:        s.Items + o.Items,
		Capacity:     s.Capacity + o.Capacity,
		Loads:        s.Loads + o.Loads,
		LoadErrors:   s.LoadErrors + o.LoadErrors,
		LoadsDeduped: s.LoadsDeduped + o.LoadsDeduped,
	}
}

// Stats returns a snapshot of the loader's statistics.
func (l *Loader[K, V]) Stats() LoaderStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LoaderStats{
		Cache:        l.cache.Stats(),
		Items:        l.cache.Len(),
		Capacity:     l.cache.Cap(),
		Loads:        l.loads.Get(),
		LoadErrors:   l.loadErrors.Get(),
		LoadsDeduped: l.loadsDeduped.Get(),
	}
}

// An AtomicInt is an int64 to be accessed atomically.
type AtomicInt int64

// Add atomically adds n to i.
func (i *AtomicInt) Add(n int64) {
	atomic.AddInt64((*int64)(i), n)
}

// Get atomically gets the value of i.
func (i *AtomicInt) Get() int64 {
	return atomic.LoadInt64((*int64)(i))
}

func (i *AtomicInt) String() string {
	return strconv.FormatInt(i.Get(), 10)
}
