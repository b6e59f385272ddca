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

// Stats is a point-in-time snapshot of the table's shape, computed by a full
// scan. Intended for diagnostics and tests, not hot paths.
type Stats struct {
	// Len is the number of live entries.
	Len int
	// Capacity is the slot-array size.
	Capacity int
	// Tombstones is the number of deleted slots. Always zero under
	// DeleteBackwardShift.
	Tombstones int
	// MaxPSL and AvgPSL summarize the probe sequence lengths of the live
	// entries.
	MaxPSL int
	AvgPSL float64
	// LoadFactor is Len over Capacity.
	LoadFactor float64
}

// Stats scans the slot array and returns a snapshot. A closed table yields
// the zero Stats.
func (m *Map[V]) Stats() Stats {
	if m == nil || m.store == nil {
		return Stats{}
	}
	capacity := m.store.capacity()
	s := Stats{Capacity: int(capacity)}
	var pslSum uint64
	for i := uint32(0); i < capacity; i++ {
		switch m.store.state(i) {
		case slotFull:
			s.Len++
			psl := int(m.store.psl(i))
			pslSum += uint64(psl)
			if psl > s.MaxPSL {
				s.MaxPSL = psl
			}
		case slotDeleted:
			s.Tombstones++
		}
	}
	if s.Len > 0 {
		s.AvgPSL = float64(pslSum) / float64(s.Len)
	}
	s.LoadFactor = float64(s.Len) / float64(s.Capacity)
	return s
}
