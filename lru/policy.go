/*
Copyright 2019 Vimeo Inc.
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

// Recency is a read-only view of a Cache's recency ordering, handed to a
// Policy when a full cache has to admit a new key.
type Recency interface {
	Len() int
	MostRecent() Slot
	LeastRecent() Slot
	// Older steps towards the least recently used end.
	Older(s Slot) Slot
	// Newer steps towards the most recently used end.
	Newer(s Slot) Slot
}

// Policy is the interface for choosing which entry a full Cache evicts.
// It only sees the ordering, never keys or values. A Slot that is not
// occupied is treated as a request for the least recently used entry.
type Policy interface {
	Victim(r Recency) Slot
}

// PolicyFunc implements Policy with a function.
type PolicyFunc func(r Recency) Slot

// Victim implements Policy.
func (f PolicyFunc) Victim(r Recency) Slot {
	return f(r)
}

// LeastRecentlyUsed evicts the entry that has gone longest without a
// read or write. It is the default Policy.
type LeastRecentlyUsed struct{}

// Victim implements Policy.
func (LeastRecentlyUsed) Victim(r Recency) Slot {
	return r.LeastRecent()
}
