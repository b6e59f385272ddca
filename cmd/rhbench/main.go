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

// rhbench measures the table under synthetic workloads and emits per-phase
// timings as CSV. Three phases run in order: a pure insert ramp, a pure
// lookup pass over the inserted keys, and a mixed phase drawing operations
// from the configured insert/lookup/remove weights.
//
// Example:
//
//	rhbench -ops 1000000 -hash xxh3 -layout columnar -out results.csv
package main

import (
	"encoding/binary"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/openaddr/rhmap"
)

var (
	ops      = flag.Int("ops", 1_000_000, "operations per phase")
	hashName = flag.String("hash", "fnv1a", "hash function: fnv1a, djb2, sdbm, murmur3, crc32, xxhash, xxh3")
	probe    = flag.String("probe", "linear", "probe sequence: linear, quadratic, double")
	layout   = flag.String("layout", "grouped", "slot layout: grouped, columnar")
	deletion = flag.String("deletion", "backward-shift", "deletion policy: backward-shift, tombstone")
	maxLoad  = flag.Float64("load", 0.75, "maximum load factor")
	minLoad  = flag.Float64("minload", 0.25, "minimum load factor")
	pInsert  = flag.Int("p-insert", 40, "mixed-phase insert weight")
	pLookup  = flag.Int("p-lookup", 40, "mixed-phase lookup weight")
	pRemove  = flag.Int("p-remove", 20, "mixed-phase remove weight")
	out      = flag.String("out", "", "CSV output path (default stdout)")
	seed     = flag.Int64("seed", 0, "PRNG seed (0 picks one)")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("rhbench: ")
	flag.Parse()

	opts, err := buildOptions()
	if err != nil {
		log.Fatal(err)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	log.Printf("seed %d", *seed)

	w := csv.NewWriter(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		w = csv.NewWriter(f)
	}

	if err := run(w, opts); err != nil {
		log.Fatal(err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatal(err)
	}
}

func buildOptions() ([]rhmap.Option[uint64], error) {
	opts := []rhmap.Option[uint64]{
		rhmap.WithMaxLoadFactor[uint64](*maxLoad),
		rhmap.WithMinLoadFactor[uint64](*minLoad),
	}

	hashes := map[string]rhmap.HashFunc{
		"fnv1a":   rhmap.FNV1a,
		"djb2":    rhmap.DJB2,
		"sdbm":    rhmap.SDBM,
		"murmur3": rhmap.Murmur3,
		"crc32":   rhmap.CRC32,
		"xxhash":  rhmap.XXHash,
		"xxh3":    rhmap.XXH3,
	}
	h, ok := hashes[*hashName]
	if !ok {
		return nil, fmt.Errorf("unknown hash %q", *hashName)
	}
	opts = append(opts, rhmap.WithHash[uint64](h))

	switch *probe {
	case "linear":
		opts = append(opts, rhmap.WithProbe[uint64](rhmap.LinearProbe))
	case "quadratic":
		opts = append(opts, rhmap.WithProbe[uint64](rhmap.QuadraticProbe))
	case "double":
		opts = append(opts, rhmap.WithProbe[uint64](rhmap.DoubleHashProbe))
	default:
		return nil, fmt.Errorf("unknown probe %q", *probe)
	}

	switch *layout {
	case "grouped":
		opts = append(opts, rhmap.WithLayout[uint64](rhmap.LayoutGrouped))
	case "columnar":
		opts = append(opts, rhmap.WithLayout[uint64](rhmap.LayoutColumnar))
	default:
		return nil, fmt.Errorf("unknown layout %q", *layout)
	}

	switch *deletion {
	case "backward-shift":
		opts = append(opts, rhmap.WithDeletion[uint64](rhmap.DeleteBackwardShift))
	case "tombstone":
		opts = append(opts, rhmap.WithDeletion[uint64](rhmap.DeleteTombstone))
	default:
		return nil, fmt.Errorf("unknown deletion policy %q", *deletion)
	}
	return opts, nil
}

func key(i uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, i)
}

func run(w *csv.Writer, opts []rhmap.Option[uint64]) error {
	record := func(phase string, n int, elapsed time.Duration, s rhmap.Stats) error {
		return w.Write([]string{
			phase,
			strconv.Itoa(n),
			strconv.FormatInt(elapsed.Nanoseconds(), 10),
			strconv.FormatFloat(float64(elapsed.Nanoseconds())/float64(n), 'f', 2, 64),
			strconv.Itoa(s.Capacity),
			strconv.Itoa(s.Len),
			strconv.Itoa(s.Tombstones),
			strconv.Itoa(s.MaxPSL),
			strconv.FormatFloat(s.AvgPSL, 'f', 3, 64),
			strconv.FormatFloat(s.LoadFactor, 'f', 3, 64),
		})
	}
	if err := w.Write([]string{
		"phase", "ops", "elapsed_ns", "ns_per_op",
		"capacity", "len", "tombstones", "max_psl", "avg_psl", "load_factor",
	}); err != nil {
		return err
	}

	m, err := rhmap.New[uint64](0, opts...)
	if err != nil {
		return err
	}
	defer m.Close()
	rng := rand.New(rand.NewSource(*seed))

	// Phase 1: insert ramp.
	start := time.Now()
	for i := 0; i < *ops; i++ {
		if err := m.Put(key(uint64(i)), uint64(i)); err != nil {
			return fmt.Errorf("insert %d: %w", i, err)
		}
	}
	if err := record("insert", *ops, time.Since(start), m.Stats()); err != nil {
		return err
	}

	// Phase 2: uniform random lookups over the inserted range.
	start = time.Now()
	for i := 0; i < *ops; i++ {
		if _, err := m.Get(key(uint64(rng.Intn(*ops)))); err != nil {
			return fmt.Errorf("lookup: %w", err)
		}
	}
	if err := record("lookup", *ops, time.Since(start), m.Stats()); err != nil {
		return err
	}

	// Phase 3: weighted mix. Inserts draw fresh keys past the ramp; lookups
	// and removals draw from whatever is still live.
	total := *pInsert + *pLookup + *pRemove
	if total <= 0 {
		return fmt.Errorf("operation weights sum to %d", total)
	}
	next := uint64(*ops)
	live := make([]uint64, *ops)
	for i := range live {
		live[i] = uint64(i)
	}
	start = time.Now()
	for i := 0; i < *ops; i++ {
		switch p := rng.Intn(total); {
		case p < *pInsert || len(live) == 0:
			if err := m.Put(key(next), next); err != nil {
				return fmt.Errorf("mixed insert: %w", err)
			}
			live = append(live, next)
			next++
		case p < *pInsert+*pLookup:
			if _, err := m.Get(key(live[rng.Intn(len(live))])); err != nil {
				return fmt.Errorf("mixed lookup: %w", err)
			}
		default:
			j := rng.Intn(len(live))
			if err := m.Delete(key(live[j])); err != nil {
				return fmt.Errorf("mixed remove: %w", err)
			}
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}
	return record("mixed", *ops, time.Since(start), m.Stats())
}
