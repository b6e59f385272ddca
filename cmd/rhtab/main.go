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

// rhtab is a line-oriented shell over a single table, for poking at its
// behavior interactively:
//
//	put <key> <value>
//	get <key>
//	del <key>
//	dump
//	stats
//	quit
//
// The layout, deletion policy and strategies are selected with the same
// flags rhbench takes.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/openaddr/rhmap"
)

var (
	layout   = flag.String("layout", "grouped", "slot layout: grouped, columnar")
	deletion = flag.String("deletion", "backward-shift", "deletion policy: backward-shift, tombstone")
	maxLoad  = flag.Float64("load", 0.75, "maximum load factor")
	minLoad  = flag.Float64("minload", 0.25, "minimum load factor")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("rhtab: ")
	flag.Parse()

	opts := []rhmap.Option[string]{
		rhmap.WithMaxLoadFactor[string](*maxLoad),
		rhmap.WithMinLoadFactor[string](*minLoad),
	}
	switch *layout {
	case "grouped":
		opts = append(opts, rhmap.WithLayout[string](rhmap.LayoutGrouped))
	case "columnar":
		opts = append(opts, rhmap.WithLayout[string](rhmap.LayoutColumnar))
	default:
		log.Fatalf("unknown layout %q", *layout)
	}
	switch *deletion {
	case "backward-shift":
		opts = append(opts, rhmap.WithDeletion[string](rhmap.DeleteBackwardShift))
	case "tombstone":
		opts = append(opts, rhmap.WithDeletion[string](rhmap.DeleteTombstone))
	default:
		log.Fatalf("unknown deletion policy %q", *deletion)
	}

	m, err := rhmap.New[string](0, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && !dispatch(m, fields) {
			return
		}
		fmt.Print("> ")
	}
	if err := scanner.Err(); err != nil {
		log.Fatal(err)
	}
}

func dispatch(m *rhmap.Map[string], fields []string) bool {
	switch cmd, args := fields[0], fields[1:]; cmd {
	case "put":
		if len(args) != 2 {
			fmt.Println("usage: put <key> <value>")
			break
		}
		switch err := m.Put([]byte(args[0]), args[1]); {
		case err == nil:
			fmt.Println("ok")
		case errors.Is(err, rhmap.ErrKeyExists):
			fmt.Printf("%q already present\n", args[0])
		default:
			fmt.Println(err)
		}
	case "get":
		if len(args) != 1 {
			fmt.Println("usage: get <key>")
			break
		}
		switch v, err := m.Get([]byte(args[0])); {
		case err == nil:
			fmt.Println(v)
		case errors.Is(err, rhmap.ErrNotFound):
			fmt.Printf("%q not found\n", args[0])
		default:
			fmt.Println(err)
		}
	case "del":
		if len(args) != 1 {
			fmt.Println("usage: del <key>")
			break
		}
		switch err := m.Delete([]byte(args[0])); {
		case err == nil:
			fmt.Println("ok")
		case errors.Is(err, rhmap.ErrNotFound):
			fmt.Printf("%q not found\n", args[0])
		default:
			fmt.Println(err)
		}
	case "dump":
		m.All(func(key []byte, value string) bool {
			fmt.Printf("%q = %q\n", key, value)
			return true
		})
	case "stats":
		s := m.Stats()
		fmt.Printf("len=%d capacity=%d load=%.3f tombstones=%d max_psl=%d avg_psl=%.3f\n",
			s.Len, s.Capacity, s.LoadFactor, s.Tombstones, s.MaxPSL, s.AvgPSL)
	case "quit", "exit":
		return false
	default:
		fmt.Println("commands: put get del dump stats quit")
	}
	return true
}
