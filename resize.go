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

// resize replaces the slot array with a fresh one of newCapacity and
// reinserts every live entry in slot order, recomputing PSLs from scratch.
// Stored references move without copying and no release callbacks run;
// ownership is unaffected. Tombstones are not carried over. On any failure
// the old generation and counters are restored exactly.
func (m *Map[V]) resize(newCapacity uint32) error {
	if newCapacity < m.capFloor {
		newCapacity = m.capFloor
	}
	if newCapacity == m.store.capacity() {
		return nil
	}
	if newCapacity > m.maxCapacity {
		return ErrMemory
	}

	old := m.store
	oldActive, oldUsed := m.active, m.used
	m.store = newStore[V](m.layout, newCapacity)
	m.active, m.used = 0, 0

	oldCapacity := old.capacity()
	for i := uint32(0); i < oldCapacity; i++ {
		if old.state(i) != slotFull {
			continue
		}
		if err := m.insertEntry(old.digest(i), old.key(i), old.value(i)); err != nil {
			m.store = old
			m.active, m.used = oldActive, oldUsed
			return err
		}
	}
	return nil
}
