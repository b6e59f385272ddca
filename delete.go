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

// Delete removes key from the table, releasing the stored key and value
// through the configured callbacks before the slot is vacated. An absent key
// reports ErrNotFound. After a successful removal the table may shrink; a
// refused shrink never un-removes the entry.
func (m *Map[V]) Delete(key []byte) error {
	if m == nil || m.store == nil || len(key) == 0 {
		return ErrInvalidArgument
	}
	digest := m.hash(key)
	capacity := m.store.capacity()
	for attempt := uint32(0); attempt < capacity; attempt++ {
		idx := m.probe(digest, attempt, capacity)
		switch m.store.state(idx) {
		case slotEmpty:
			return ErrNotFound
		case slotDeleted:
			continue
		}
		if m.store.digest(idx) == digest && m.equal(m.store.key(idx), key) {
			m.releaseSlot(idx)
			if m.deletion == DeleteTombstone {
				m.store.markDeleted(idx)
				m.active--
			} else {
				m.shiftBackward(idx, digest, attempt)
				m.active--
				m.used--
			}
			if err := m.maybeShrink(); err != nil {
				// The removal itself stands; only the compaction failed.
				return err
			}
			if invariants {
				m.checkInvariants()
			}
			return nil
		}
		if m.deletion == DeleteBackwardShift && m.store.psl(idx) < attempt {
			return ErrNotFound
		}
	}
	if m.deletion == DeleteTombstone {
		return ErrNotFound
	}
	return ErrInvalidState
}

// shiftBackward closes the gap left at index by moving each subsequent
// occupant of the probe chain with a non-zero PSL one slot back, decrementing
// its PSL. The walk stops at an empty slot or an occupant already in its
// ideal position; the slot vacated last is cleared. It continues along the
// removed digest's probe sequence, the same path the displaced entries were
// pushed down during insertion.
func (m *Map[V]) shiftBackward(index, digest, attempt uint32) {
	capacity := m.store.capacity()
	for attempt++; attempt < capacity; attempt++ {
		next := m.probe(digest, attempt, capacity)
		if m.store.state(next) != slotFull || m.store.psl(next) == 0 {
			break
		}
		m.store.set(index, m.store.digest(next), m.store.psl(next)-1,
			m.store.key(next), m.store.value(next))
		index = next
	}
	m.store.clear(index)
}

// maybeShrink halves the capacity when the live count drops below the
// minimum load factor, bottoming out at the capacity floor. The rehash also
// discards any tombstones.
func (m *Map[V]) maybeShrink() error {
	capacity := m.store.capacity()
	if capacity <= m.capFloor {
		return nil
	}
	if float64(m.active) >= float64(capacity)*m.minLoad {
		return nil
	}
	return m.resize(capacity / 2)
}
