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

// ProbeFunc maps (digest, attempt) to a slot index in [0, capacity).
// capacity is always a power of two. attempt ranges over [0, capacity), and
// for the table to terminate reliably the sequence should visit every slot
// exactly once across that range; LinearProbe and DoubleHashProbe have this
// property.
//
// A ProbeFunc must be pure: the same inputs always yield the same index.
type ProbeFunc func(digest, attempt, capacity uint32) uint32

// LinearProbe scans consecutive slots starting at the digest's home slot.
// It is the default probe sequence.
func LinearProbe(digest, attempt, capacity uint32) uint32 {
	return (digest + attempt) & (capacity - 1)
}

// QuadraticProbe steps by attempt squared. Over a power-of-two capacity the
// sequence can revisit slots before covering the table, so lookups may give
// up while empty slots remain; it is provided for workloads that accept that
// trade for reduced primary clustering.
func QuadraticProbe(digest, attempt, capacity uint32) uint32 {
	return (digest + attempt*attempt) & (capacity - 1)
}

// DoubleHashProbe derives an odd stride from the digest. An odd stride is
// coprime with a power-of-two capacity, so the sequence is a full
// permutation of the slots.
func DoubleHashProbe(digest, attempt, capacity uint32) uint32 {
	step := (digest << 1) | 1
	return (digest + attempt*step) & (capacity - 1)
}
