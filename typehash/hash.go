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

// Package typehash implements the structural type hashing and classification primitives that the
// rest of the core (progindex, mlta, typm) builds on: a hash stable across modules for
// structurally-identical types, container/target classification, per-module opaque-pointer
// normalization, and the nextLayerBaseType primitive used to climb field-addressing chains.
package typehash

import (
	"hash/fnv"
	"strconv"

	"go.mlta.dev/callgraph/ir"
)

// cache memoizes the hash of a *ir.Type by pointer identity. Types built once by a front end
// (e.g. package ssair) and reused across instructions hit this cache; it is never invalidated
// mid-run since a Type's structure never changes after construction (§9: "structural-hash caches"
// are the one memoization table that survives phase boundaries).
var cache = make(map[*ir.Type]uint64)

// Hash returns the structural hash of t: stable across modules for structurally-identical types,
// ignoring names but preserving composite field order (spec §3, §4.1).
func Hash(t *ir.Type) uint64 {
	if t == nil {
		return 0
	}
	if h, ok := cache[t]; ok {
		return h
	}
	h := hashRec(t, make(map[*ir.Type]bool))
	cache[t] = h
	return h
}

// hashRec performs the actual structural walk. visiting guards against infinite recursion on
// recursive type definitions (a composite that (indirectly) contains a pointer back to itself);
// such a back-edge contributes a fixed marker instead of recursing forever.
func hashRec(t *ir.Type, visiting map[*ir.Type]bool) uint64 {
	if t == nil {
		return 0
	}
	if visiting[t] {
		return 0x5ead // arbitrary marker for a recursive back-edge
	}
	visiting[t] = true
	defer delete(visiting, t)

	h := fnv.New64a()
	write := func(b byte) { _, _ = h.Write([]byte{b}) }
	writeU64 := func(v uint64) { _, _ = h.Write([]byte(strconv.FormatUint(v, 16))) }

	write(byte(t.Kind))
	switch t.Kind {
	case ir.KindScalar:
		_, _ = h.Write([]byte(t.Name))
	case ir.KindPointer:
		writeU64(hashRec(t.Elem, visiting))
	case ir.KindFunc:
		writeU64(uint64(len(t.Params)))
		for _, p := range t.Params {
			writeU64(hashRec(p, visiting))
		}
		writeU64(hashRec(t.Ret, visiting))
	case ir.KindComposite:
		writeU64(uint64(len(t.Fields)))
		for _, f := range t.Fields {
			writeU64(hashRec(f, visiting))
		}
	case ir.KindArray:
		writeU64(hashRec(t.Elem, visiting))
	}
	return h.Sum64()
}

// HashName hashes a critical-structure name the way the on-disk configuration list does: as
// "struct." + name (spec §6: "each hashed as \"struct.\" + name").
func HashName(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("struct." + name))
	return h.Sum64()
}
