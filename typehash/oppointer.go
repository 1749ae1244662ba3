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

// bytePointers caches one canonical byte-pointer *ir.Type per module, mirroring the original
// analyzer's per-module Int8PtrTy[M] array: every opaque pointer encountered while scanning module
// M normalizes to the very same Type value, so pointer-identity comparisons (and Hash's own cache)
// stay meaningful across an entire run.
var bytePointers = make(map[*ir.Module]*ir.Type)

// NormalizeOpaquePointer returns the canonical byte-pointer representative for module m if t is an
// opaque pointer (IsOpaquePointer); otherwise it returns t unchanged.
func NormalizeOpaquePointer(m *ir.Module, t *ir.Type) *ir.Type {
	if !IsOpaquePointer(t) {
		return t
	}
	bp, ok := bytePointers[m]
	if !ok {
		bp = ir.Pointer(ir.Scalar("i8"))
		bytePointers[m] = bp
	}
	return bp
}
