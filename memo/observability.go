/*
Copyright 2018 Google LLC.
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
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

const (
	unitDimensionless = "1"
	unitMillisecond   = "ms"
)

var (
	// Copied from https://github.com/census-instrumentation/opencensus-go/blob/ff7de98412e5c010eb978f11056f90c00561637f/plugin/ocgrpc/stats_common.go#L55
	defaultMillisecondsDistribution = view.Distribution(0, 0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 5000, 10000, 20000, 50000, 100000)
)

// Opencensus stats
var (
	MGets         = stats.Int64("lrumemo/gets", "The number of Get requests", unitDimensionless)
	MCacheHits    = stats.Int64("lrumemo/cache_hits", "The number of Gets answered from the cache", unitDimensionless)
	MCacheMisses  = stats.Int64("lrumemo/cache_misses", "The number of Gets not answered from the cache", unitDimensionless)
	MLoads        = stats.Int64("lrumemo/loads", "The number of getter calls", unitDimensionless)
	MLoadErrors   = stats.Int64("lrumemo/load_errors", "The number of getter calls that failed", unitDimensionless)
	MLoadsDeduped = stats.Int64("lrumemo/loads_deduped", "The number of Gets served by a load shared with other callers", unitDimensionless)
	MEvictions    = stats.Int64("lrumemo/evictions", "The number of entries evicted to admit a new key", unitDimensionless)

	MRoundtripLatencyMilliseconds = stats.Float64("lrumemo/roundtrip_latency", "Get latency in milliseconds", unitMillisecond)
)

// LoaderKey tags the name of the loader
var LoaderKey = tag.MustNewKey("loader")

// AllViews is a slice of default views for people to use
var AllViews = []*view.View{
	{Name: "lrumemo/gets", Description: "The number of Get requests", TagKeys: []tag.Key{LoaderKey}, Measure: MGets, Aggregation: view.Count()},
	{Name: "lrumemo/cache_hits", Description: "The number of Gets answered from the cache", TagKeys: []tag.Key{LoaderKey}, Measure: MCacheHits, Aggregation: view.Count()},
	{Name: "lrumemo/cache_misses", Description: "The number of Gets not answered from the cache", TagKeys: []tag.Key{LoaderKey}, Measure: MCacheMisses, Aggregation: view.Count()},
	{Name: "lrumemo/loads", Description: "The number of getter calls", TagKeys: []tag.Key{LoaderKey}, Measure: MLoads, Aggregation: view.Count()},
	{Name: "lrumemo/load_errors", Description: "The number of getter calls that failed", TagKeys: []tag.Key{LoaderKey}, Measure: MLoadErrors, Aggregation: view.Count()},
	{Name: "lrumemo/loads_deduped", Description: "The number of Gets served by a load shared with other callers", TagKeys: []tag.Key{LoaderKey}, Measure: MLoadsDeduped, Aggregation: view.Count()},
	{Name: "lrumemo/evictions", Description: "The number of entries evicted to admit a new key", TagKeys: []tag.Key{LoaderKey}, Measure: MEvictions, Aggregation: view.Sum()},
	{Name: "lrumemo/roundtrip_latency", Description: "Get latency", TagKeys: []tag.Key{LoaderKey}, Measure: MRoundtripLatencyMilliseconds, Aggregation: defaultMillisecondsDistribution},
}

// record sends measurements to r, or to the global recorder if r is nil.
func record(ctx context.Context, r stats.Recorder, ms ...stats.Measurement) {
	if r == nil {
		stats.Record(ctx, ms...)
		return
	}
	stats.RecordWithOptions(ctx, stats.WithRecorder(r), stats.WithMeasurements(ms...))
}

func sinceInMilliseconds(start time.Time) float64 {
	d := time.Since(start)
	return float64(d.Nanoseconds()) / 1e6
}
