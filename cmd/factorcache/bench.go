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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/vimeo/lrumemo/factor"
	"github.com/vimeo/lrumemo/lru"
	"github.com/vimeo/lrumemo/memo"

	"golang.org/x/sync/errgroup"
)

// bench runs the same random requests through Trial, Cached and Shared
// and logs how long each took.
func bench(ctx context.Context, cfg Config, logOut io.Writer) error {
	logger := cfg.newLogger(logOut)
	keys := benchKeys(cfg)
	trial := factor.Trial{Delay: cfg.Delay}

	elapsed, err := timeSequential(ctx, trial, keys)
	if err != nil {
		return fmt.Errorf("uncached run: %w", err)
	}
	logger.InfoContext(ctx, "uncached run",
		slog.Int("requests", len(keys)),
		slog.Duration("elapsed", elapsed))

	cached, err := factor.NewCached(trial, cfg.Capacity)
	if err != nil {
		return err
	}
	elapsed, err = timeSequential(ctx, cached, keys)
	if err != nil {
		return fmt.Errorf("cached run: %w", err)
	}
	logger.InfoContext(ctx, "cached run",
		slog.Int("requests", len(keys)),
		slog.Duration("elapsed", elapsed),
		slog.Int("capacity", cfg.Capacity),
		slog.Int("entries", cached.Len()),
		statsGroup(cached.Stats()))

	shared, err := factor.NewShared("factorcache_bench", trial, memo.ShardedParams[uint64, factor.Factors]{
		Params: memo.Params[uint64, factor.Factors]{Capacity: cfg.Capacity},
		Shards: cfg.Shards,
	})
	if err != nil {
		return err
	}
	elapsed, err = timeConcurrent(ctx, shared, keys, cfg.Workers)
	if err != nil {
		return fmt.Errorf("concurrent run: %w", err)
	}
	st := shared.Stats()
	logger.InfoContext(ctx, "concurrent cached run",
		slog.Int("requests", len(keys)),
		slog.Duration("elapsed", elapsed),
		slog.Int("workers", cfg.Workers),
		slog.Int("shards", cfg.Shards),
		slog.Int("capacity", st.Capacity),
		slog.Int("entries", st.Items),
		statsGroup(st.Cache),
		slog.Int64("loads", st.Loads),
		slog.Int64("loads_deduped", st.LoadsDeduped))
	return nil
}

// benchKeys draws cfg.Requests numbers from [2, 2+cfg.KeySpace).
func benchKeys(cfg Config) []uint64 {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	keys := make([]uint64, cfg.Requests)
	for i := range keys {
		keys[i] = 2 + rng.Uint64N(cfg.KeySpace)
	}
	return keys
}

func timeSequential(ctx context.Context, f factor.Factoriser, keys []uint64) (time.Duration, error) {
	start := time.Now()
	for _, n := range keys {
		if _, err := f.Factorise(ctx, n); err != nil {
			return 0, err
		}
	}
	return time.Since(start), nil
}

func timeConcurrent(ctx context.Context, f factor.Factoriser, keys []uint64, workers int) (time.Duration, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	start := time.Now()
	for _, n := range keys {
		g.Go(func() error {
			_, err := f.Factorise(gctx, n)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func statsGroup(s lru.Stats) slog.Attr {
	return slog.Group("cache",
		slog.Int64("hits", s.Hits),
		slog.Int64("misses", s.Misses),
		slog.Int64("evictions", s.Evictions),
		slog.Float64("hit_ratio", s.HitRatio()))
}
