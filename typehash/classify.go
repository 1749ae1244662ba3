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

package typehash

import "go.mlta.dev/callgraph/ir"

// Policy selects which types are considered "target types" for propagation (spec §3, §6
// TARGET_TYPE_POLICY).
type Policy uint8

const (
	// FunctionMode (the default) treats function types as the only target types.
	FunctionMode Policy = iota
	// StructMode treats structs whose hashed name appears in the configured critical-structure
	// set as target types.
	StructMode
)

// IsContainer reports whether t can structurally hold a target type: composite, or an array of a
// container (spec §3 "container type").
func IsContainer(t *ir.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case ir.KindComposite:
		return true
	case ir.KindArray:
		return IsContainer(t.Elem)
	default:
		return false
	}
}

// IsTarget reports whether t is a target type under policy. critical is the set of hashed
// critical-structure names (see HashName), consulted only in StructMode.
func IsTarget(t *ir.Type, policy Policy, critical map[uint64]bool) bool {
	if t == nil {
		return false
	}
	switch policy {
	case FunctionMode:
		return t.Kind == ir.KindFunc
	case StructMode:
		return t.Kind == ir.KindComposite && t.Name != "" && critical[HashName(t.Name)]
	default:
		return false
	}
}

// IsOpaquePointer reports whether t is a pointer whose element type is unknown (e.g. the Go
// front end's unsafe.Pointer, or a pointer whose pointee could not be resolved). Such pointers
// must be normalized to a single per-module representative before being used as a propagation key
// (see NormalizeOpaquePointer), mirroring Int8PtrTy[M] in the original analyzer.
func IsOpaquePointer(t *ir.Type) bool {
	return t != nil && t.Kind == ir.KindPointer && t.Elem == nil
}
