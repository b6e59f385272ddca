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

package rhmap

// slotState is the occupancy marker of a slot. slotDeleted only occurs under
// DeleteTombstone; the backward-shift policy moves entries instead of
// marking them.
type slotState uint8

const (
	slotEmpty slotState = iota
	slotFull
	slotDeleted
)

// entryStore is the slot-array contract shared by the two layouts. One
// generation of storage has a fixed capacity; the resize controller swaps
// whole generations. Callers guarantee capacity is a power of two; the store
// does not validate it.
//
// clear and markDeleted both drop the key and value references so a vacated
// slot never pins caller memory.
type entryStore[V any] interface {
	capacity() uint32
	state(i uint32) slotState
	digest(i uint32) uint32
	psl(i uint32) uint32
	key(i uint32) []byte
	value(i uint32) V
	set(i uint32, digest, psl uint32, key []byte, value V)
	clear(i uint32)
	markDeleted(i uint32)
}

// Layout selects the physical arrangement of the slot array.
type Layout uint8

const (
	// LayoutGrouped stores one record per slot: digest, PSL, key and value
	// side by side. Single-slot reads touch one location.
	LayoutGrouped Layout = iota

	// LayoutColumnar stores five parallel arrays indexed identically. The
	// search and delete hot paths read digests and PSLs far more often than
	// keys or values, and the dense columns keep those scans in cache.
	LayoutColumnar
)

func (l Layout) String() string {
	switch l {
	case LayoutGrouped:
		return "grouped"
	case LayoutColumnar:
		return "columnar"
	}
	return "unknown"
}

func newStore[V any](l Layout, capacity uint32) entryStore[V] {
	if l == LayoutColumnar {
		return &columnarStore[V]{
			states:  make([]slotState, capacity),
			digests: make([]uint32, capacity),
			psls:    make([]uint32, capacity),
			keys:    make([][]byte, capacity),
			values:  make([]V, capacity),
		}
	}
	return &groupedStore[V]{slots: make([]groupedSlot[V], capacity)}
}

type groupedSlot[V any] struct {
	digest uint32
	psl    uint32
	st     slotState
	key    []byte
	value  V
}

type groupedStore[V any] struct {
	slots []groupedSlot[V]
}

func (s *groupedStore[V]) capacity() uint32        { return uint32(len(s.slots)) }
func (s *groupedStore[V]) state(i uint32) slotState { return s.slots[i].st }
func (s *groupedStore[V]) digest(i uint32) uint32  { return s.slots[i].digest }
func (s *groupedStore[V]) psl(i uint32) uint32     { return s.slots[i].psl }
func (s *groupedStore[V]) key(i uint32) []byte     { return s.slots[i].key }
func (s *groupedStore[V]) value(i uint32) V        { return s.slots[i].value }

func (s *groupedStore[V]) set(i uint32, digest, psl uint32, key []byte, value V) {
	s.slots[i] = groupedSlot[V]{digest: digest, psl: psl, st: slotFull, key: key, value: value}
}

func (s *groupedStore[V]) clear(i uint32) {
	s.slots[i] = groupedSlot[V]{}
}

func (s *groupedStore[V]) markDeleted(i uint32) {
	var zero V
	s.slots[i].st = slotDeleted
	s.slots[i].key = nil
	s.slots[i].value = zero
}

type columnarStore[V any] struct {
	states  []slotState
	digests []uint32
	psls    []uint32
	keys    [][]byte
	values  []V
}

func (s *columnarStore[V]) capacity() uint32        { return uint32(len(s.states)) }
func (s *columnarStore[V]) state(i uint32) slotState { return s.states[i] }
func (s *columnarStore[V]) digest(i uint32) uint32  { return s.digests[i] }
func (s *columnarStore[V]) psl(i uint32) uint32     { return s.psls[i] }
func (s *columnarStore[V]) key(i uint32) []byte     { return s.keys[i] }
func (s *columnarStore[V]) value(i uint32) V        { return s.values[i] }

func (s *columnarStore[V]) set(i uint32, digest, psl uint32, key []byte, value V) {
	s.states[i] = slotFull
	s.digests[i] = digest
	s.psls[i] = psl
	s.keys[i] = key
	s.values[i] = value
}

func (s *columnarStore[V]) clear(i uint32) {
	var zero V
	s.states[i] = slotEmpty
	s.digests[i] = 0
	s.psls[i] = 0
	s.keys[i] = nil
	s.values[i] = zero
}

func (s *columnarStore[V]) markDeleted(i uint32) {
	var zero V
	s.states[i] = slotDeleted
	s.keys[i] = nil
	s.values[i] = zero
}
