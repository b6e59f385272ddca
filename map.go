// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rhmap is an embeddable open-addressing hash table for byte-slice
// keys and opaque values, built around Robin Hood hashing with backward-shift
// deletion. See https://en.wikipedia.org/wiki/Hash_table#Robin_Hood_hashing
// and Celis' original thesis for background on the discipline.
//
// # Robin Hood hashing
//
// Every entry caches the 32-bit digest of its key and its probe sequence
// length (PSL): the number of probe attempts past the digest's ideal slot at
// which the entry actually resides. During insertion a candidate walks the
// probe sequence and, whenever it meets an occupant with a smaller PSL than
// its own, evicts it and carries the occupant forward instead ("taking from
// the rich"). The result is a global ordering property: walking the probe
// sequence of any digest, once an occupant's PSL drops below the current
// attempt index, the probed key cannot occur at any later attempt. Lookups
// and removals use that property to terminate early, bounding their cost by
// the table's average PSL rather than a full scan.
//
// Deletion reverses the process. After the matching entry is vacated, each
// subsequent occupant on the probe chain with a non-zero PSL is moved one
// slot back with its PSL decremented, until an empty slot or an occupant
// already in its ideal position is reached. No tombstones are ever created,
// so probe chains never rot and the ordering property holds after every
// mutation. A conventional tombstone policy is also available (see
// DeletionPolicy) for workloads that prefer cheap deletes over pristine
// chains; it trades the early-termination property away.
//
// # Layouts
//
// The slot array comes in two physical arrangements selected at construction:
// one record per slot (LayoutGrouped), or parallel columns for states,
// digests, PSLs, keys and values (LayoutColumnar). The columnar form keeps
// the digest+PSL scan of the search and delete hot paths dense in cache; the
// grouped form is friendlier to single-slot reads. Both are observably
// identical.
//
// # Ownership
//
// The table stores key and value references without copying. If a release
// callback is configured for keys (resp. values) the table owns every key
// (resp. value) reference handed to Put and releases it exactly once: on
// Delete, or on Close for the survivors. Without a callback the caller
// retains ownership and the table only stores and returns references.
//
// A Map is NOT goroutine-safe.
package rhmap

import (
	"bytes"
	"math/bits"
)

const (
	// minCapacity is the smallest slot-array size a table will use. Capacity
	// is always a power of two so probe functions can reduce with a bitmask.
	minCapacity = 2

	// defaultMaxCapacity bounds growth; doubling past it reports ErrMemory
	// with the table untouched.
	defaultMaxCapacity = 1 << 30

	defaultMaxLoadFactor = 0.75
	defaultMinLoadFactor = 0.25
)

// HashFunc produces the 32-bit digest of a key. Implementations must be pure:
// equal keys yield equal digests, and any internal precomputed state must be
// immutable after package initialization.
type HashFunc func(key []byte) uint32

// EqualFunc reports whether two keys are equal. It is only consulted after a
// digest match.
type EqualFunc func(a, b []byte) bool

// DeletionPolicy selects how Delete vacates a slot.
type DeletionPolicy uint8

const (
	// DeleteBackwardShift closes the gap by walking the probe chain and
	// moving every displaced successor one slot back. No tombstones exist
	// under this policy and lookups terminate early on the PSL ordering.
	DeleteBackwardShift DeletionPolicy = iota

	// DeleteTombstone marks the slot deleted and leaves the chain in place.
	// Lookups must skip deleted slots and can only terminate on a truly
	// empty one; deleted slots still count against the grow trigger so an
	// accumulation of tombstones forces a cleansing rehash.
	DeleteTombstone
)

func (p DeletionPolicy) String() string {
	switch p {
	case DeleteBackwardShift:
		return "backward-shift"
	case DeleteTombstone:
		return "tombstone"
	}
	return "unknown"
}

// Map is an open-addressing hash table from byte-slice keys to values of
// type V. The zero value is not usable; construct with New.
type Map[V any] struct {
	// store holds the current slot-array generation. Resize swaps in a
	// fresh generation wholesale; a failed resize leaves this one intact.
	store entryStore[V]
	// active is the number of live entries. used additionally counts
	// deleted slots under DeleteTombstone; the two coincide under
	// DeleteBackwardShift.
	active uint32
	used   uint32

	maxLoad float64
	minLoad float64

	hash  HashFunc
	equal EqualFunc
	probe ProbeFunc

	releaseKey   func(key []byte)
	releaseValue func(value V)

	layout   Layout
	deletion DeletionPolicy

	maxCapacity uint32
	capFloor    uint32
}

// New constructs a Map with at least initialCapacity slots (rounded up to a
// power of two, floor 2). It returns ErrInvalidArgument for a negative
// capacity or an inconsistent load-factor configuration, and ErrMemory when
// the requested capacity exceeds the configured ceiling.
func New[V any](initialCapacity int, opts ...Option[V]) (*Map[V], error) {
	m := &Map[V]{
		maxLoad:     defaultMaxLoadFactor,
		minLoad:     defaultMinLoadFactor,
		hash:        FNV1a,
		equal:       bytes.Equal,
		probe:       LinearProbe,
		layout:      LayoutGrouped,
		deletion:    DeleteBackwardShift,
		maxCapacity: defaultMaxCapacity,
		capFloor:    minCapacity,
	}
	for _, opt := range opts {
		opt.apply(m)
	}

	if initialCapacity < 0 {
		return nil, ErrInvalidArgument
	}
	if m.maxLoad <= 0 || m.maxLoad > 1 {
		return nil, ErrInvalidArgument
	}
	if m.minLoad < 0 || m.minLoad >= m.maxLoad {
		return nil, ErrInvalidArgument
	}
	if m.hash == nil || m.equal == nil || m.probe == nil {
		return nil, ErrInvalidArgument
	}

	m.capFloor = normalizeCapacity(m.capFloor)
	if uint64(initialCapacity) > uint64(m.maxCapacity) {
		return nil, ErrMemory
	}
	capacity := normalizeCapacity(uint32(initialCapacity))
	if capacity < m.capFloor {
		capacity = m.capFloor
	}
	if capacity > m.maxCapacity {
		return nil, ErrMemory
	}
	m.store = newStore[V](m.layout, capacity)
	return m, nil
}

// Get returns the value stored for key. It returns ErrNotFound for an absent
// key and ErrInvalidArgument for an empty key or a closed table.
func (m *Map[V]) Get(key []byte) (V, error) {
	var zero V
	if m == nil || m.store == nil || len(key) == 0 {
		return zero, ErrInvalidArgument
	}
	i, err := m.find(m.hash(key), key)
	if err != nil {
		return zero, err
	}
	return m.store.value(i), nil
}

// Len returns the number of live entries.
func (m *Map[V]) Len() int {
	if m == nil {
		return 0
	}
	return int(m.active)
}

// Cap returns the current slot-array capacity. It is always a power of two.
func (m *Map[V]) Cap() int {
	if m == nil || m.store == nil {
		return 0
	}
	return int(m.store.capacity())
}

// All calls yield for each entry in slot order, stopping early if yield
// returns false. The key and value passed to yield are the stored
// references; the table must not be mutated during the traversal.
func (m *Map[V]) All(yield func(key []byte, value V) bool) {
	if m == nil || m.store == nil {
		return
	}
	capacity := m.store.capacity()
	for i := uint32(0); i < capacity; i++ {
		if m.store.state(i) != slotFull {
			continue
		}
		if !yield(m.store.key(i), m.store.value(i)) {
			return
		}
	}
}

// Close releases every surviving key/value through the configured release
// callbacks and discards the slot array. Close is idempotent; any other
// operation on a closed table reports ErrInvalidArgument.
func (m *Map[V]) Close() {
	if m == nil || m.store == nil {
		return
	}
	capacity := m.store.capacity()
	for i := uint32(0); i < capacity; i++ {
		if m.store.state(i) != slotFull {
			continue
		}
		m.releaseSlot(i)
		m.store.clear(i)
	}
	m.store = nil
	m.active = 0
	m.used = 0
}

// releaseSlot invokes the configured release callbacks for the references
// held at slot i. The slot itself is untouched.
func (m *Map[V]) releaseSlot(i uint32) {
	if m.releaseKey != nil {
		m.releaseKey(m.store.key(i))
	}
	if m.releaseValue != nil {
		m.releaseValue(m.store.value(i))
	}
}

// normalizeCapacity rounds n up to the next power of two, no smaller than
// minCapacity.
func normalizeCapacity(n uint32) uint32 {
	if n <= minCapacity {
		return minCapacity
	}
	return 1 << bits.Len32(n-1)
}
