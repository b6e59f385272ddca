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
	"encoding/binary"
	"hash/crc32"
	"math/bits"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
)

// FNV1a is the 32-bit Fowler/Noll/Vo-1a hash. It is the default hash
// function: simple, allocation-free, and well distributed on short keys.
func FNV1a(key []byte) uint32 {
	h := uint32(2166136261)
	for _, c := range key {
		h ^= uint32(c)
		h *= 16777619
	}
	return h
}

// DJB2 is Bernstein's multiply-by-33 string hash.
func DJB2(key []byte) uint32 {
	h := uint32(5381)
	for _, c := range key {
		h = h*33 + uint32(c)
	}
	return h
}

// SDBM is the hash used by the sdbm database library.
func SDBM(key []byte) uint32 {
	var h uint32
	for _, c := range key {
		h = uint32(c) + (h << 6) + (h << 16) - h
	}
	return h
}

// Murmur3 is the 32-bit MurmurHash3 with a zero seed.
func Murmur3(key []byte) uint32 {
	const (
		c1 = 0xcc9e2d51
		c2 = 0x1b873593
	)
	var h uint32
	n := len(key)

	blocks := key
	for len(blocks) >= 4 {
		k := binary.LittleEndian.Uint32(blocks)
		blocks = blocks[4:]

		k *= c1
		k = bits.RotateLeft32(k, 15)
		k *= c2

		h ^= k
		h = bits.RotateLeft32(h, 13)
		h = h*5 + 0xe6546b64
	}

	var k uint32
	switch len(blocks) {
	case 3:
		k ^= uint32(blocks[2]) << 16
		fallthrough
	case 2:
		k ^= uint32(blocks[1]) << 8
		fallthrough
	case 1:
		k ^= uint32(blocks[0])
		k *= c1
		k = bits.RotateLeft32(k, 15)
		k *= c2
		h ^= k
	}

	h ^= uint32(n)
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

// crcTable is built once at package initialization so CRC32 carries no
// mutable state.
var crcTable = crc32.MakeTable(crc32.IEEE)

// CRC32 hashes with the IEEE polynomial.
func CRC32(key []byte) uint32 {
	return crc32.Checksum(key, crcTable)
}

// XXHash folds the 64-bit xxHash digest to 32 bits.
func XXHash(key []byte) uint32 {
	h := xxhash.Sum64(key)
	return uint32(h ^ (h >> 32))
}

// XXH3 folds the 64-bit XXH3 digest to 32 bits.
func XXH3(key []byte) uint32 {
	h := xxh3.Hash(key)
	return uint32(h ^ (h >> 32))
}
