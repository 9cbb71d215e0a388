/*
Copyright 2012 Google Inc.
Copyright 2025 Vimeo Inc.

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

// Package singleflight provides a duplicate function call suppression
// mechanism.
package singleflight // import "github.com/vimeo/lrumemo/singleflight"

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPanicked is returned to the callers waiting on a function that
// panicked. The panic itself propagates in the caller that ran it.
var ErrPanicked = errors.New("singleflight: function panicked")

// call is an in-flight or completed Do call
type call[R any] struct {
	wg   sync.WaitGroup
	val  R
	err  error
	dups int
}

// TypedGroup represents a class of work and forms a namespace in which
// units of work can be executed with duplicate suppression.
// The zero value is ready to use.
type TypedGroup[K comparable, R any] struct {
	mu sync.Mutex     // protects m and every call's dups
	m  map[K]*call[R] // lazily initialized
}

// Do executes and returns the results of the given function, making
// sure that only one execution is in-flight for a given key at a
// time. If a duplicate comes in, the duplicate caller waits for the
// original to complete and receives the same results.
// shared reports whether the results were handed to more than one caller.
func (g *TypedGroup[K, R]) Do(key K, fn func() (R, error)) (v R, shared bool, err error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[R])
	}
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, true, c.err
	}
	c := new(call[R])
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			c.err = fmt.Errorf("%w: %v", ErrPanicked, r)
			g.finish(key, c)
			panic(r)
		}
	}()
	c.val, c.err = fn()
	shared = g.finish(key, c)
	return c.val, shared, c.err
}

// finish releases the waiters of c and forgets key.
func (g *TypedGroup[K, R]) finish(key K, c *call[R]) (shared bool) {
	c.wg.Done()

	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.m, key)
	return c.dups > 0
}

// InFlight returns the number of keys with a call currently executing.
func (g *TypedGroup[K, R]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}
