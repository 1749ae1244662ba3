//  Copyright (c) 2023 Uber Technologies, Inc.
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

// Package ir defines a small, compiler-agnostic representation of a compiled intermediate
// representation module: the data model that the rest of this repository's core analyses
// (typehash, progindex, mlta, typm, driver) operate over. It purposefully knows nothing about any
// particular source language or front end: see package ssair for the concrete adapter that fills
// this model in from Go's own SSA form.
package ir

import "hash/fnv"

// GUID is a stable, globally-unique identifier for a function, derived from its linkage name. Two
// functions (a declaration and its defining definition, possibly in different modules) share a
// GUID iff they have the same linkage name.
type GUID uint64

// NewGUID derives a GUID from a function's linkage name. Hashing the name (rather than using the
// name itself as a map key) keeps every downstream table keyed on a single fixed-width type.
func NewGUID(linkageName string) GUID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(linkageName))
	return GUID(h.Sum64())
}
