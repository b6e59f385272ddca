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
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// configs enumerates the layout x deletion policy matrix most tests run
// under; the two axes must be observably identical.
var configs = []struct {
	name     string
	layout   Layout
	deletion DeletionPolicy
}{
	{"grouped/backward-shift", LayoutGrouped, DeleteBackwardShift},
	{"grouped/tombstone", LayoutGrouped, DeleteTombstone},
	{"columnar/backward-shift", LayoutColumnar, DeleteBackwardShift},
	{"columnar/tombstone", LayoutColumnar, DeleteTombstone},
}

func toBuiltinMap[V any](m *Map[V]) map[string]V {
	out := make(map[string]V, m.Len())
	m.All(func(key []byte, value V) bool {
		out[string(key)] = value
		return true
	})
	return out
}

func TestBasic(t *testing.T) {
	for _, cfg := range configs {
		t.Run(cfg.name, func(t *testing.T) {
			m, err := New[int](0,
				WithLayout[int](cfg.layout), WithDeletion[int](cfg.deletion))
			require.NoError(t, err)
			defer m.Close()

			const count = 100
			for i := 0; i < count; i++ {
				require.NoError(t, m.Put([]byte(strconv.Itoa(i)), i))
				require.Equal(t, i+1, m.Len())
			}
			for i := 0; i < count; i++ {
				v, err := m.Get([]byte(strconv.Itoa(i)))
				require.NoError(t, err)
				require.Equal(t, i, v)
			}
			_, err = m.Get([]byte("absent"))
			require.ErrorIs(t, err, ErrNotFound)

			require.ErrorIs(t, m.Put([]byte("0"), 999), ErrKeyExists)
			v, err := m.Get([]byte("0"))
			require.NoError(t, err)
			require.Equal(t, 0, v)

			for i := 0; i < count; i += 2 {
				require.NoError(t, m.Delete([]byte(strconv.Itoa(i))))
			}
			require.Equal(t, count/2, m.Len())
			for i := 0; i < count; i++ {
				v, err := m.Get([]byte(strconv.Itoa(i)))
				if i%2 == 0 {
					require.ErrorIs(t, err, ErrNotFound)
				} else {
					require.NoError(t, err)
					require.Equal(t, i, v)
				}
			}
			require.ErrorIs(t, m.Delete([]byte("0")), ErrNotFound)
		})
	}
}

func TestRandom(t *testing.T) {
	hashes := []struct {
		name string
		hash HashFunc
	}{
		{"fnv1a", FNV1a},
		{"xxh3", XXH3},
		// Degenerate hashes force maximal collisions; the table must stay
		// correct, just slow.
		{"constant", func([]byte) uint32 { return 0 }},
		{"mod8", func(key []byte) uint32 { return FNV1a(key) % 8 }},
	}
	for _, cfg := range configs {
		for _, h := range hashes {
			t.Run(cfg.name+"/"+h.name, func(t *testing.T) {
				seed := time.Now().UnixNano()
				t.Logf("seed: %d", seed)
				rng := rand.New(rand.NewSource(seed))

				m, err := New[int](0,
					WithLayout[int](cfg.layout), WithDeletion[int](cfg.deletion),
					WithHash[int](h.hash))
				require.NoError(t, err)
				defer m.Close()
				mirror := make(map[string]int)

				ops := 10000
				if h.name == "constant" {
					// Quadratic behavior under the constant hash.
					ops = 1000
				}
				for i := 0; i < ops; i++ {
					key := strconv.Itoa(rng.Intn(ops / 4))
					switch _, ok := mirror[key]; {
					case !ok && rng.Intn(2) == 0:
						require.NoError(t, m.Put([]byte(key), i))
						mirror[key] = i
					case ok && rng.Intn(4) == 0:
						require.NoError(t, m.Delete([]byte(key)))
						delete(mirror, key)
					default:
						v, err := m.Get([]byte(key))
						if ok {
							require.NoError(t, err)
							require.Equal(t, mirror[key], v)
						} else {
							require.ErrorIs(t, err, ErrNotFound)
						}
					}
					require.Equal(t, len(mirror), m.Len())
				}
				require.Equal(t, mirror, toBuiltinMap(m))
			})
		}
	}
}

func TestGrowth(t *testing.T) {
	for _, cfg := range configs {
		t.Run(cfg.name, func(t *testing.T) {
			m, err := New[int](2,
				WithLayout[int](cfg.layout), WithDeletion[int](cfg.deletion))
			require.NoError(t, err)
			defer m.Close()
			require.Equal(t, 2, m.Cap())

			for i := 0; i < 8; i++ {
				require.NoError(t, m.Put([]byte(strconv.Itoa(i)), i))
			}
			// 8 entries at max load 0.75 need at least 16 slots.
			require.GreaterOrEqual(t, m.Cap(), 16)
			require.Equal(t, 8, m.Len())
			for i := 0; i < 8; i++ {
				v, err := m.Get([]byte(strconv.Itoa(i)))
				require.NoError(t, err)
				require.Equal(t, i, v)
			}
		})
	}
}

// TestCollisionPSL pins the displacement behavior: under a constant hash and
// linear probing, successive inserts line up with PSLs 0, 1, 2.
func TestCollisionPSL(t *testing.T) {
	m, err := New[string](8,
		WithHash[string](func([]byte) uint32 { return 0 }),
		WithProbe[string](LinearProbe))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Put([]byte("a"), "A"))
	require.NoError(t, m.Put([]byte("b"), "B"))
	require.NoError(t, m.Put([]byte("c"), "C"))

	for i := uint32(0); i < 3; i++ {
		require.Equal(t, slotFull, m.store.state(i))
		require.Equal(t, i, m.store.psl(i))
	}
	s := m.Stats()
	require.Equal(t, 2, s.MaxPSL)
	require.Equal(t, 1.0, s.AvgPSL)
}

func TestShrink(t *testing.T) {
	for _, cfg := range configs {
		t.Run(cfg.name, func(t *testing.T) {
			m, err := New[int](16,
				WithLayout[int](cfg.layout), WithDeletion[int](cfg.deletion))
			require.NoError(t, err)
			defer m.Close()

			for i := 0; i < 10; i++ {
				require.NoError(t, m.Put([]byte(strconv.Itoa(i)), i))
			}
			require.Equal(t, 16, m.Cap())

			for i := 0; i < 8; i++ {
				require.NoError(t, m.Delete([]byte(strconv.Itoa(i))))
			}
			// 2 live entries in 16 slots is below min load 0.25.
			require.Less(t, m.Cap(), 16)
			require.Equal(t, 2, m.Len())
			for i := 8; i < 10; i++ {
				v, err := m.Get([]byte(strconv.Itoa(i)))
				require.NoError(t, err)
				require.Equal(t, i, v)
			}
		})
	}
}

func TestReleaseCallbacks(t *testing.T) {
	for _, cfg := range configs {
		t.Run(cfg.name, func(t *testing.T) {
			keyReleases := make(map[string]int)
			valueReleases := make(map[int]int)
			m, err := New[int](8,
				WithLayout[int](cfg.layout), WithDeletion[int](cfg.deletion),
				WithKeyRelease[int](func(key []byte) { keyReleases[string(key)]++ }),
				WithValueRelease[int](func(v int) { valueReleases[v]++ }))
			require.NoError(t, err)

			for i := 0; i < 10; i++ {
				require.NoError(t, m.Put([]byte(strconv.Itoa(i)), i))
			}
			// Growth moved every entry to a new slot array; nothing may have
			// been released.
			require.Empty(t, keyReleases)

			require.NoError(t, m.Delete([]byte("3")))
			require.Equal(t, map[string]int{"3": 1}, keyReleases)
			require.Equal(t, map[int]int{3: 1}, valueReleases)

			require.ErrorIs(t, m.Delete([]byte("3")), ErrNotFound)
			require.Equal(t, 1, keyReleases["3"])

			m.Close()
			m.Close()
			for i := 0; i < 10; i++ {
				require.Equal(t, 1, keyReleases[strconv.Itoa(i)], "key %d", i)
				require.Equal(t, 1, valueReleases[i], "value %d", i)
			}
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	testCases := []struct {
		name string
		opts []Option[int]
	}{
		{"load factor above one", []Option[int]{WithMaxLoadFactor[int](1.5)}},
		{"zero max load", []Option[int]{WithMaxLoadFactor[int](0)}},
		{"negative min load", []Option[int]{WithMinLoadFactor[int](-0.1)}},
		{"min load at max", []Option[int]{
			WithMaxLoadFactor[int](0.5), WithMinLoadFactor[int](0.5)}},
		{"nil hash", []Option[int]{WithHash[int](nil)}},
		{"nil equal", []Option[int]{WithEqual[int](nil)}},
		{"nil probe", []Option[int]{WithProbe[int](nil)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := New[int](0, tc.opts...)
			require.ErrorIs(t, err, ErrInvalidArgument)
			require.Nil(t, m)
		})
	}

	t.Run("negative capacity", func(t *testing.T) {
		m, err := New[int](-1)
		require.ErrorIs(t, err, ErrInvalidArgument)
		require.Nil(t, m)
	})
}

func TestEmptyKey(t *testing.T) {
	m, err := New[int](0)
	require.NoError(t, err)
	defer m.Close()

	require.ErrorIs(t, m.Put(nil, 1), ErrInvalidArgument)
	require.ErrorIs(t, m.Put([]byte{}, 1), ErrInvalidArgument)
	_, err = m.Get(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.ErrorIs(t, m.Delete([]byte{}), ErrInvalidArgument)
	require.Zero(t, m.Len())
}

// TestOrderIndependence checks that the table's observable contents depend
// only on the set of live entries, not on the order mutations arrived in.
func TestOrderIndependence(t *testing.T) {
	keys := make([]string, 50)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}

	build := func(rng *rand.Rand) map[string]int {
		m, err := New[int](0)
		require.NoError(t, err)
		defer m.Close()
		perm := rng.Perm(len(keys))
		for _, i := range perm {
			require.NoError(t, m.Put([]byte(keys[i]), i))
		}
		// Remove the odd-indexed keys, again in a shuffled order.
		for _, i := range rng.Perm(len(keys)) {
			if i%2 == 1 {
				require.NoError(t, m.Delete([]byte(keys[i])))
			}
		}
		return toBuiltinMap(m)
	}

	seed := time.Now().UnixNano()
	t.Logf("seed: %d", seed)
	first := build(rand.New(rand.NewSource(seed)))
	for trial := 1; trial < 5; trial++ {
		require.Equal(t, first, build(rand.New(rand.NewSource(seed+int64(trial)))))
	}
}

func TestResizePreservation(t *testing.T) {
	for _, cfg := range configs {
		t.Run(cfg.name, func(t *testing.T) {
			m, err := New[int](2,
				WithLayout[int](cfg.layout), WithDeletion[int](cfg.deletion))
			require.NoError(t, err)
			defer m.Close()

			mirror := make(map[string]int)
			for i := 0; i < 500; i++ {
				key := strconv.Itoa(i)
				require.NoError(t, m.Put([]byte(key), i))
				mirror[key] = i
			}
			require.Equal(t, mirror, toBuiltinMap(m))

			for i := 0; i < 450; i++ {
				key := strconv.Itoa(i)
				require.NoError(t, m.Delete([]byte(key)))
				delete(mirror, key)
			}
			require.Equal(t, mirror, toBuiltinMap(m))
		})
	}
}

func TestMaxCapacity(t *testing.T) {
	m, err := New[int](0, WithMaxCapacity[int](8))
	require.NoError(t, err)
	defer m.Close()

	var inserted int
	for i := 0; i < 100; i++ {
		err := m.Put([]byte(strconv.Itoa(i)), i)
		if err != nil {
			require.ErrorIs(t, err, ErrMemory)
			break
		}
		inserted++
	}
	// 8 slots at max load 0.75 hold 6 entries.
	require.Equal(t, 6, inserted)
	require.Equal(t, 8, m.Cap())
	for i := 0; i < inserted; i++ {
		v, err := m.Get([]byte(strconv.Itoa(i)))
		require.NoError(t, err)
		require.Equal(t, i, v)
	}

	_, err = New[int](64, WithMaxCapacity[int](8))
	require.ErrorIs(t, err, ErrMemory)
}

func TestCapacityFloor(t *testing.T) {
	m, err := New[int](32, WithCapacityFloor[int](32))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Put([]byte("only"), 1))
	require.NoError(t, m.Delete([]byte("only")))
	require.Equal(t, 32, m.Cap())
}

// TestLayoutParity drives both layouts through the same operation sequence
// and checks every observable agrees at each step.
func TestLayoutParity(t *testing.T) {
	for _, policy := range []DeletionPolicy{DeleteBackwardShift, DeleteTombstone} {
		t.Run(policy.String(), func(t *testing.T) {
			seed := time.Now().UnixNano()
			t.Logf("seed: %d", seed)
			rng := rand.New(rand.NewSource(seed))

			grouped, err := New[int](0,
				WithLayout[int](LayoutGrouped), WithDeletion[int](policy))
			require.NoError(t, err)
			defer grouped.Close()
			columnar, err := New[int](0,
				WithLayout[int](LayoutColumnar), WithDeletion[int](policy))
			require.NoError(t, err)
			defer columnar.Close()

			for i := 0; i < 2000; i++ {
				key := []byte(strconv.Itoa(rng.Intn(500)))
				switch rng.Intn(3) {
				case 0:
					require.Equal(t, grouped.Put(key, i), columnar.Put(key, i))
				case 1:
					gv, gerr := grouped.Get(key)
					cv, cerr := columnar.Get(key)
					require.Equal(t, gerr, cerr)
					require.Equal(t, gv, cv)
				case 2:
					require.Equal(t, grouped.Delete(key), columnar.Delete(key))
				}
				require.Equal(t, grouped.Len(), columnar.Len())
				require.Equal(t, grouped.Cap(), columnar.Cap())
			}
			require.Equal(t, toBuiltinMap(grouped), toBuiltinMap(columnar))
		})
	}
}

// TestTombstonePolicy exercises the chain behavior specific to tombstone
// deletion: a removal mid-chain must not hide later entries, and a
// subsequent insert reclaims the deleted slot.
func TestTombstonePolicy(t *testing.T) {
	m, err := New[string](8,
		WithDeletion[string](DeleteTombstone),
		WithHash[string](func([]byte) uint32 { return 0 }),
		WithProbe[string](LinearProbe))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Put([]byte("a"), "A"))
	require.NoError(t, m.Put([]byte("b"), "B"))
	require.NoError(t, m.Put([]byte("c"), "C"))

	require.NoError(t, m.Delete([]byte("b")))
	require.Equal(t, 1, m.Stats().Tombstones)

	// "c" sits past the tombstone and must stay reachable.
	v, err := m.Get([]byte("c"))
	require.NoError(t, err)
	require.Equal(t, "C", v)

	// A new entry reclaims the deleted slot.
	require.NoError(t, m.Put([]byte("d"), "D"))
	require.Zero(t, m.Stats().Tombstones)
	require.Equal(t, slotFull, m.store.state(1))

	v, err = m.Get([]byte("d"))
	require.NoError(t, err)
	require.Equal(t, "D", v)
}

// TestTombstoneGrowTrigger checks that deleted slots count toward the grow
// threshold, so a delete-heavy workload still gets its chains cleansed.
func TestTombstoneGrowTrigger(t *testing.T) {
	m, err := New[int](8,
		WithDeletion[int](DeleteTombstone),
		WithMinLoadFactor[int](0))
	require.NoError(t, err)
	defer m.Close()

	// Churn one key at a time: the live count never passes 1, but each cycle
	// leaves a tombstone behind until a rehash clears them.
	for i := 0; i < 100; i++ {
		key := []byte(strconv.Itoa(i))
		require.NoError(t, m.Put(key, i))
		require.NoError(t, m.Delete(key))
		require.LessOrEqual(t, m.Stats().Tombstones, int(float64(m.Cap())*0.75)+1)
	}
	require.Equal(t, 0, m.Len())
}

// TestProbeExhaustion drives a non-covering probe sequence to exhaustion.
// QuadraticProbe over capacity 4 visits only slots {0, 1} for digest 0, so
// once both are full the third insert has no reachable free slot: it must
// report ErrInvalidState and leave the table exactly as it was — no stored
// key evicted, no ownership of the failed key taken.
func TestProbeExhaustion(t *testing.T) {
	for _, cfg := range configs {
		t.Run(cfg.name, func(t *testing.T) {
			keyReleases := make(map[string]int)
			m, err := New[string](4,
				WithLayout[string](cfg.layout), WithDeletion[string](cfg.deletion),
				WithHash[string](func([]byte) uint32 { return 0 }),
				WithProbe[string](QuadraticProbe),
				WithKeyRelease[string](func(key []byte) { keyReleases[string(key)]++ }))
			require.NoError(t, err)

			require.NoError(t, m.Put([]byte("a"), "A"))
			require.NoError(t, m.Put([]byte("b"), "B"))
			require.ErrorIs(t, m.Put([]byte("c"), "C"), ErrInvalidState)

			// The failed insert must not have displaced a survivor or stored
			// its own key.
			require.Equal(t, 2, m.Len())
			require.Equal(t, 4, m.Cap())
			require.Equal(t, map[string]string{"a": "A", "b": "B"}, toBuiltinMap(m))
			v, err := m.Get([]byte("a"))
			require.NoError(t, err)
			require.Equal(t, "A", v)
			v, err = m.Get([]byte("b"))
			require.NoError(t, err)
			require.Equal(t, "B", v)
			_, err = m.Get([]byte("c"))
			require.ErrorIs(t, err, ErrNotFound)

			// Ownership of "c" stayed with the caller: only the two stored
			// keys are released, once each, at teardown.
			require.Empty(t, keyReleases)
			m.Close()
			require.Equal(t, map[string]int{"a": 1, "b": 1}, keyReleases)
		})
	}
}

func TestClose(t *testing.T) {
	m, err := New[int](0)
	require.NoError(t, err)
	require.NoError(t, m.Put([]byte("k"), 1))

	m.Close()
	require.Zero(t, m.Len())
	require.Zero(t, m.Cap())

	_, err = m.Get([]byte("k"))
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.ErrorIs(t, m.Put([]byte("k"), 1), ErrInvalidArgument)
	require.ErrorIs(t, m.Delete([]byte("k")), ErrInvalidArgument)
	m.All(func([]byte, int) bool {
		t.Fatal("closed table yielded an entry")
		return false
	})
	m.Close()
}

func TestAllEarlyStop(t *testing.T) {
	m, err := New[int](0)
	require.NoError(t, err)
	defer m.Close()
	for i := 0; i < 10; i++ {
		require.NoError(t, m.Put([]byte(strconv.Itoa(i)), i))
	}
	var seen int
	m.All(func([]byte, int) bool {
		seen++
		return seen < 3
	})
	require.Equal(t, 3, seen)
}

func TestStats(t *testing.T) {
	m, err := New[int](16)
	require.NoError(t, err)
	defer m.Close()

	require.Equal(t, Stats{Capacity: 16}, m.Stats())
	for i := 0; i < 8; i++ {
		require.NoError(t, m.Put([]byte(strconv.Itoa(i)), i))
	}
	s := m.Stats()
	require.Equal(t, 8, s.Len)
	require.Equal(t, 16, s.Capacity)
	require.Equal(t, 0.5, s.LoadFactor)
	require.Zero(t, s.Tombstones)
}
