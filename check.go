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

import (
	"fmt"
	"strings"
)

// checkInvariants verifies the internal consistency of the table:
//
//   - capacity is a power of two, between the floor and the ceiling
//   - active and used match a recount of the slot states
//   - every stored entry's cached digest matches its key, and the entry is
//     reachable through find
//   - the backward-shift policy never leaves deleted slots behind
//
// It panics on the first violation. Gated behind the invariants build tag;
// the check is a full table scan with a nested probe walk.
func (m *Map[V]) checkInvariants() {
	capacity := m.store.capacity()
	if capacity&(capacity-1) != 0 {
		panic(fmt.Sprintf("capacity %d is not a power of two\n%s", capacity, m.debugString()))
	}
	if capacity < m.capFloor || capacity > m.maxCapacity {
		panic(fmt.Sprintf("capacity %d outside [%d, %d]\n%s",
			capacity, m.capFloor, m.maxCapacity, m.debugString()))
	}

	var full, deleted uint32
	for i := uint32(0); i < capacity; i++ {
		switch m.store.state(i) {
		case slotFull:
			full++
			key := m.store.key(i)
			if d := m.hash(key); d != m.store.digest(i) {
				panic(fmt.Sprintf("slot %d: cached digest %08x, recomputed %08x\n%s",
					i, m.store.digest(i), d, m.debugString()))
			}
			idx, err := m.find(m.store.digest(i), key)
			if err != nil {
				panic(fmt.Sprintf("slot %d: key %q unreachable: %v\n%s",
					i, key, err, m.debugString()))
			}
			if idx != i {
				panic(fmt.Sprintf("slot %d: key %q found at slot %d\n%s",
					i, key, idx, m.debugString()))
			}
		case slotDeleted:
			deleted++
		}
	}
	if full != m.active {
		panic(fmt.Sprintf("active=%d but %d full slots\n%s", m.active, full, m.debugString()))
	}
	if full+deleted != m.used {
		panic(fmt.Sprintf("used=%d but %d full + %d deleted slots\n%s",
			m.used, full, deleted, m.debugString()))
	}
	if m.deletion == DeleteBackwardShift && deleted != 0 {
		panic(fmt.Sprintf("backward-shift table holds %d deleted slots\n%s",
			deleted, m.debugString()))
	}
}

func (m *Map[V]) debugString() string {
	var b strings.Builder
	capacity := m.store.capacity()
	fmt.Fprintf(&b, "capacity=%d active=%d used=%d layout=%s deletion=%s\n",
		capacity, m.active, m.used, m.layout, m.deletion)
	for i := uint32(0); i < capacity; i++ {
		switch m.store.state(i) {
		case slotEmpty:
			fmt.Fprintf(&b, "  %4d: empty\n", i)
		case slotDeleted:
			fmt.Fprintf(&b, "  %4d: deleted\n", i)
		case slotFull:
			fmt.Fprintf(&b, "  %4d: digest=%08x psl=%d key=%q\n",
				i, m.store.digest(i), m.store.psl(i), m.store.key(i))
		}
	}
	return b.String()
}
