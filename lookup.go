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

// find walks the probe sequence of digest and returns the slot index holding
// key, or ErrNotFound. Under DeleteBackwardShift the walk terminates early
// once an occupant's PSL drops below the attempt index: the PSL ordering
// guarantees key cannot occur later in the sequence. Under DeleteTombstone
// that ordering does not hold, so the walk skips deleted slots and only an
// empty slot is conclusive.
//
// An exhausted probe sequence means the probe function revisited slots
// without covering the table (possible with QuadraticProbe); the backward
// shift policy reports that as ErrInvalidState since an empty slot must
// exist, while the tombstone policy can legitimately exhaust a chain and
// reports ErrNotFound.
func (m *Map[V]) find(digest uint32, key []byte) (uint32, error) {
	capacity := m.store.capacity()
	for attempt := uint32(0); attempt < capacity; attempt++ {
		idx := m.probe(digest, attempt, capacity)
		switch m.store.state(idx) {
		case slotEmpty:
			return 0, ErrNotFound
		case slotDeleted:
			continue
		}
		if m.store.digest(idx) == digest && m.equal(m.store.key(idx), key) {
			return idx, nil
		}
		if m.deletion == DeleteBackwardShift && m.store.psl(idx) < attempt {
			return 0, ErrNotFound
		}
	}
	if m.deletion == DeleteTombstone {
		return 0, ErrNotFound
	}
	return 0, ErrInvalidState
}
