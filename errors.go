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

import "errors"

// Every operation reports its outcome through one of these sentinels (or
// nil); none of them is ever raised as a panic. Compare with errors.Is.
var (
	// ErrInvalidArgument reports a nil or closed table, an empty key, or an
	// inconsistent configuration.
	ErrInvalidArgument = errors.New("rhmap: invalid argument")

	// ErrKeyExists reports an insert of a key that is already present.
	ErrKeyExists = errors.New("rhmap: key already exists")

	// ErrNotFound reports a search or remove miss.
	ErrNotFound = errors.New("rhmap: key not found")

	// ErrMemory reports that an allocation was refused: growth or an initial
	// capacity would exceed the configured capacity ceiling. The table is
	// left exactly as it was.
	ErrMemory = errors.New("rhmap: capacity limit exceeded")

	// ErrInvalidState reports an exhausted probe sequence. Unreachable with
	// a bijective probe function and an intact grow trigger, but reported
	// rather than left undefined.
	ErrInvalidState = errors.New("rhmap: probe sequence exhausted")
)
