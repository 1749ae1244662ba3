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

// Layer is one (container-type, field-index) pair recovered while climbing a field-addressing
// chain (spec §4.1 "nextLayerBaseType").
type Layer struct {
	Container *ir.Type
	Index     int
}

// MaxLayers bounds how many layers NextLayerBaseType will climb, guarding against unexpectedly
// deep or cyclic field-address chains. Grounded on MAX_TYPE_LAYER in the original Config.h.
const MaxLayers = 10

// NextLayerBaseType climbs field-addressing operators backward from v toward its base, returning
// an ordered list of (container-type, field-index) pairs from innermost (closest to v) to
// outermost. It terminates when it reaches an allocation, parameter, global, function literal, or
// an opaque/unrecognized source, or after MaxLayers layers.
//
// v is typically the Value that produced an indirect call's callee (e.g. the result of a Load
// whose Addr is a FieldAddr): s.op is represented as Load(FieldAddr(s, "op")), and a chain like
// s.next.op as Load(FieldAddr(Load(FieldAddr(s, "next")), "op")).
func NextLayerBaseType(v ir.Value) []Layer {
	var layers []Layer
	cur := v
	for len(layers) < MaxLayers {
		switch n := cur.(type) {
		case *ir.Load:
			cur = n.Addr
		case *ir.Cast:
			cur = n.Operand
		case *ir.FieldAddr:
			layers = append(layers, Layer{Container: n.Container, Index: n.Index})
			cur = n.Base
		default:
			return layers
		}
	}
	return layers
}
