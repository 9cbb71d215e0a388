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

package lru

import "fmt"

// Stats are the counters a Cache has accumulated since construction.
// Every Read and every Write counts exactly one hit or miss; Install
// counts neither.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Lookups returns the number of counted lookups.
func (s Stats) Lookups() int64 {
	return s.Hits + s.Misses
}

// HitRatio returns Hits/Lookups, or 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	n := s.Lookups()
	if n == 0 {
		return 0
	}
	return float64(s.Hits) / float64(n)
}

func (s Stats) String() string {
	return fmt.Sprintf("hits=%d misses=%d evictions=%d", s.Hits, s.Misses, s.Evictions)
}
