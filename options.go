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

// Option provides an interface to do work on a Map while it is being
// created.
type Option[V any] interface {
	apply(m *Map[V])
}

type hashOption[V any] struct {
	hash HashFunc
}

func (op hashOption[V]) apply(m *Map[V]) {
	m.hash = op.hash
}

// WithHash is an option to specify the hash function. The default is FNV1a.
func WithHash[V any](hash HashFunc) Option[V] {
	return hashOption[V]{hash}
}

type equalOption[V any] struct {
	equal EqualFunc
}

func (op equalOption[V]) apply(m *Map[V]) {
	m.equal = op.equal
}

// WithEqual is an option to specify the key comparator. The default is
// bytes.Equal.
func WithEqual[V any](equal EqualFunc) Option[V] {
	return equalOption[V]{equal}
}

type probeOption[V any] struct {
	probe ProbeFunc
}

func (op probeOption[V]) apply(m *Map[V]) {
	m.probe = op.probe
}

// WithProbe is an option to specify the probe sequence. The default is
// LinearProbe.
func WithProbe[V any](probe ProbeFunc) Option[V] {
	return probeOption[V]{probe}
}

type layoutOption[V any] struct {
	layout Layout
}

func (op layoutOption[V]) apply(m *Map[V]) {
	m.layout = op.layout
}

// WithLayout is an option to select the physical slot-array arrangement.
// The default is LayoutGrouped.
func WithLayout[V any](layout Layout) Option[V] {
	return layoutOption[V]{layout}
}

type deletionOption[V any] struct {
	deletion DeletionPolicy
}

func (op deletionOption[V]) apply(m *Map[V]) {
	m.deletion = op.deletion
}

// WithDeletion is an option to select the deletion policy. The default is
// DeleteBackwardShift.
func WithDeletion[V any](deletion DeletionPolicy) Option[V] {
	return deletionOption[V]{deletion}
}

type maxLoadOption[V any] struct {
	f float64
}

func (op maxLoadOption[V]) apply(m *Map[V]) {
	m.maxLoad = op.f
}

// WithMaxLoadFactor is an option to set the load factor above which an
// insert grows the table. Must be in (0, 1]; the default is 0.75.
func WithMaxLoadFactor[V any](f float64) Option[V] {
	return maxLoadOption[V]{f}
}

type minLoadOption[V any] struct {
	f float64
}

func (op minLoadOption[V]) apply(m *Map[V]) {
	m.minLoad = op.f
}

// WithMinLoadFactor is an option to set the load factor below which a
// removal shrinks the table. Must be non-negative and strictly below the
// maximum; the default is 0.25. Zero disables shrinking.
func WithMinLoadFactor[V any](f float64) Option[V] {
	return minLoadOption[V]{f}
}

type keyReleaseOption[V any] struct {
	release func(key []byte)
}

func (op keyReleaseOption[V]) apply(m *Map[V]) {
	m.releaseKey = op.release
}

// WithKeyRelease is an option that hands the table ownership of every key
// reference stored in it. release runs exactly once per stored key: on
// Delete, or on Close for the survivors.
func WithKeyRelease[V any](release func(key []byte)) Option[V] {
	return keyReleaseOption[V]{release}
}

type valueReleaseOption[V any] struct {
	release func(value V)
}

func (op valueReleaseOption[V]) apply(m *Map[V]) {
	m.releaseValue = op.release
}

// WithValueRelease is an option that hands the table ownership of every
// stored value. release runs exactly once per stored value: on Delete, or on
// Close for the survivors.
func WithValueRelease[V any](release func(value V)) Option[V] {
	return valueReleaseOption[V]{release}
}

type maxCapacityOption[V any] struct {
	n int
}

func (op maxCapacityOption[V]) apply(m *Map[V]) {
	if op.n > 0 {
		m.maxCapacity = normalizeCapacity(uint32(op.n))
	}
}

// WithMaxCapacity is an option to cap growth at the given slot count
// (rounded up to a power of two). A grow past the cap reports ErrMemory and
// leaves the table untouched. The default cap is 1<<30 slots.
func WithMaxCapacity[V any](n int) Option[V] {
	return maxCapacityOption[V]{n}
}

type capacityFloorOption[V any] struct {
	n int
}

func (op capacityFloorOption[V]) apply(m *Map[V]) {
	if op.n > 0 {
		m.capFloor = uint32(op.n)
	}
}

// WithCapacityFloor is an option to prevent shrinking below the given slot
// count (rounded up to a power of two). The default floor is 2.
func WithCapacityFloor[V any](n int) Option[V] {
	return capacityFloorOption[V]{n}
}
