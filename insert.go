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

import "errors"

// Put inserts key with value. The key must not already be present; a
// duplicate reports ErrKeyExists and leaves the table unchanged. Put grows
// the table first when the insertion would push the load factor past the
// configured maximum, so the table observed by the insert always has room.
//
// If release callbacks are configured the table takes ownership of the key
// and value references on success; on any error ownership stays with the
// caller.
func (m *Map[V]) Put(key []byte, value V) error {
	if m == nil || m.store == nil || len(key) == 0 {
		return ErrInvalidArgument
	}
	digest := m.hash(key)
	switch _, err := m.find(digest, key); {
	case err == nil:
		return ErrKeyExists
	case errors.Is(err, ErrInvalidState):
		return err
	}
	if err := m.maybeGrow(); err != nil {
		return err
	}
	var err error
	if m.deletion == DeleteTombstone {
		err = m.insertFirstFit(digest, key, value)
	} else {
		err = m.insertEntry(digest, key, value)
	}
	if err != nil {
		return err
	}
	if invariants {
		m.checkInvariants()
	}
	return nil
}

// maybeGrow doubles the capacity when one more slot would exceed the maximum
// load factor. used rather than active drives the trigger, so under the
// tombstone policy an accumulation of deleted slots also forces the rehash
// that cleanses them.
func (m *Map[V]) maybeGrow() error {
	capacity := m.store.capacity()
	if float64(m.used+1) <= float64(capacity)*m.maxLoad {
		return nil
	}
	return m.resize(capacity * 2)
}

// insertEntry performs the Robin Hood insertion of a new entry. The
// candidate starts at PSL zero and walks the probe sequence of digest;
// whenever it meets an occupant poorer than itself (smaller PSL) it takes
// the slot and carries the occupant forward as the new candidate. The walk
// keeps using the original digest's probe sequence after a swap: the
// displaced occupant's own sequence necessarily passes through the same
// remaining slots at equal or later attempts, so its cached PSL stays
// consistent.
//
// The displacement walk terminates at the first non-full slot on the
// sequence, so its reachability is confirmed up front: a non-covering
// sequence (possible with QuadraticProbe) fails with ErrInvalidState before
// any slot has been touched. Swaps never change a slot's state, so the free
// slot found by the scan is still free when the walk arrives.
func (m *Map[V]) insertEntry(digest uint32, key []byte, value V) error {
	capacity := m.store.capacity()
	free := capacity
	for attempt := uint32(0); attempt < capacity; attempt++ {
		if m.store.state(m.probe(digest, attempt, capacity)) != slotFull {
			free = attempt
			break
		}
	}
	if free == capacity {
		return ErrInvalidState
	}
	candDigest, candPSL, candKey, candValue := digest, uint32(0), key, value
	for attempt := uint32(0); attempt < free; attempt++ {
		idx := m.probe(digest, attempt, capacity)
		if candPSL > m.store.psl(idx) {
			d, p := m.store.digest(idx), m.store.psl(idx)
			k, v := m.store.key(idx), m.store.value(idx)
			m.store.set(idx, candDigest, candPSL, candKey, candValue)
			candDigest, candPSL, candKey, candValue = d, p, k, v
		}
		candPSL++
	}
	m.store.set(m.probe(digest, free, capacity), candDigest, candPSL, candKey, candValue)
	m.active++
	m.used++
	return nil
}

// insertFirstFit places the entry in the first empty or deleted slot on the
// probe sequence, reclaiming tombstones. The attempt index is recorded as
// the PSL for diagnostics; the tombstone policy never consults it. used only
// grows when a truly empty slot is consumed. A sequence with no reachable
// non-full slot fails with ErrInvalidState and touches nothing.
func (m *Map[V]) insertFirstFit(digest uint32, key []byte, value V) error {
	capacity := m.store.capacity()
	for attempt := uint32(0); attempt < capacity; attempt++ {
		idx := m.probe(digest, attempt, capacity)
		if st := m.store.state(idx); st != slotFull {
			m.store.set(idx, digest, attempt, key, value)
			m.active++
			if st == slotEmpty {
				m.used++
			}
			return nil
		}
	}
	return ErrInvalidState
}
