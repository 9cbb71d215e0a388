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

// Package factor computes prime factorisations, either directly or through
// an LRU cache of earlier answers. It is the worked example for the lru and
// memo packages: factorising is deterministic and can be made arbitrarily
// slow, which makes the effect of caching easy to observe.
package factor // import "github.com/vimeo/lrumemo/factor"

import (
	"context"
	"errors"
	"time"
)

// ErrZero is returned when asked to factorise zero, which has no prime
// factorisation.
var ErrZero = errors.New("factor: zero has no prime factorisation")

// A Factoriser returns the prime factors of n in ascending order, with
// multiplicity. One has no prime factors.
type Factoriser interface {
	Factorise(ctx context.Context, n uint64) (Factors, error)
}

// A FactoriserFunc implements Factoriser with a function.
type FactoriserFunc func(ctx context.Context, n uint64) (Factors, error)

// Factorise implements Factoriser.
func (f FactoriserFunc) Factorise(ctx context.Context, n uint64) (Factors, error) {
	return f(ctx, n)
}

// how many candidate divisors to try between context checks
const ctxCheckInterval = 1 << 12

// Trial factorises by trial division.
type Trial struct {
	// Delay is added to every call to simulate a lengthy task. The wait
	// is abandoned if the context is done first.
	Delay time.Duration
}

// Factorise implements Factoriser.
func (t Trial) Factorise(ctx context.Context, n uint64) (Factors, error) {
	if n == 0 {
		return nil, ErrZero
	}
	if t.Delay > 0 {
		timer := time.NewTimer(t.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	fs := Factors{}
	for n%2 == 0 {
		fs = append(fs, 2)
		n /= 2
	}
	checks := 0
	// p <= n/p rather than p*p <= n, which can overflow
	for p := uint64(3); p <= n/p; p += 2 {
		for n%p == 0 {
			fs = append(fs, p)
			n /= p
		}
		checks++
		if checks%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if n > 1 {
		fs = append(fs, n)
	}
	return fs, nil
}
