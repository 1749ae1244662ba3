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

package typm

import (
	"go.mlta.dev/callgraph/ir"
	"go.mlta.dev/callgraph/progindex"
	"go.mlta.dev/callgraph/typehash"
)

// maxUseDepth bounds how many cast-chain hops ParseUsesOfValue follows from its starting value,
// mirroring the bounded climbs of typehash.MaxLayers and mlta's layer intersection.
const maxUseDepth = 10

// ParseUsesOfValue walks every instruction of fn looking for a use of v, classifying each use as a
// read or a write of the type flowing through v (spec §4.4 "parseUsesOfValue"). It follows pointer
// casts of v transparently. parsable is false the moment a use cannot be classified — v is passed
// to a call whose callee has no recognized memory-effect summary, or stored to a destination other
// than a known field slot — licensing the coarser whole-type propagation fallback (spec §4.4
// bullet 5, §8 scenario 5).
func ParseUsesOfValue(v ir.Value, fn *ir.Function, policy typehash.Policy, critical map[uint64]bool) (reads, writes map[uint64]*ir.Type, parsable bool) {
	reads = make(map[uint64]*ir.Type)
	writes = make(map[uint64]*ir.Type)
	parsable = true

	visited := map[ir.Value]bool{}
	worklist := []ir.Value{v}

	for depth := 0; len(worklist) > 0 && depth < maxUseDepth; depth++ {
		var next []ir.Value
		for _, cur := range worklist {
			if visited[cur] {
				continue
			}
			visited[cur] = true

			for _, instr := range fn.Instrs {
				switch n := instr.(type) {
				case *ir.Store:
					if n.Addr == cur {
						recordType(writes, n.Value.ValueType(), policy, critical)
					}
					if n.Value == cur {
						if fa, ok := n.Addr.(*ir.FieldAddr); ok {
							recordType(writes, fa.Typ, policy, critical)
						} else {
							parsable = false
						}
					}
				case *ir.Call:
					if !usesArg(n, cur) {
						continue
					}
					effect, known := calleeEffect(n)
					if !known {
						parsable = false
						continue
					}
					switch effect {
					case ir.ReadsOnly:
						recordType(reads, cur.ValueType(), policy, critical)
					case ir.WritesOnly:
						recordType(writes, cur.ValueType(), policy, critical)
					case ir.NoMemoryAccess:
					default:
						recordType(reads, cur.ValueType(), policy, critical)
						recordType(writes, cur.ValueType(), policy, critical)
					}
				case *ir.Return:
					if n.Value == cur {
						recordType(reads, cur.ValueType(), policy, critical)
					}
				case *ir.Cast:
					if n.Operand == cur {
						next = append(next, n)
					}
				}
			}
		}
		worklist = next
	}

	return reads, writes, parsable
}

// recordType records the bare type that makes t relevant (unwrapping through a pointer the same
// way relevantType does), so a type recorded here hashes identically to the same type recorded on
// the writer side of DeriveGlobalEdges - cur.ValueType() returns Pointer(Sig) for a *ir.Function and
// Pointer(Typ) for an *ir.Global, so skipping this unwrap would silently split one global's reader
// and writer edges onto two different hash keys.
func recordType(m map[uint64]*ir.Type, t *ir.Type, policy typehash.Policy, critical map[uint64]bool) {
	rt, ok := relevantType(t, policy, critical)
	if !ok {
		return
	}
	m[typehash.Hash(rt)] = rt
}

func usesArg(call *ir.Call, v ir.Value) bool {
	for _, a := range call.Args {
		if a == v {
			return true
		}
	}
	return false
}

// calleeEffect returns the memory-effect summary governing a call's pointer arguments and whether
// one is known at all. An indirect call, or a direct call to a declaration with no recognized
// summary, is the escape case: the caller cannot see what the callee does with the pointer.
func calleeEffect(call *ir.Call) (ir.MemoryEffect, bool) {
	if call.Indirect() {
		return 0, false
	}
	fn := call.Callee
	if fn.IsDeclaration && fn.Effect == ir.Unconstrained {
		return 0, false
	}
	return fn.Effect, true
}

// DeriveGlobalEdges derives the global-mediated propagation relation for one module: every direct
// store into a global records m as a writer of the stored type, every load from a global is
// classified by ParseUsesOfValue (falling back to the global's declared type when unparsable), and
// the writer/reader relations are joined into stable edges (spec §4.4 bullet 3). It also folds in
// the static-initializer target types progindex already collected for globals defined in m.
func DeriveGlobalEdges(m *ir.Module, idx *progindex.Index, g *Graph, policy typehash.Policy, critical map[uint64]bool) {
	for _, fn := range m.Functions {
		for _, instr := range fn.Instrs {
			switch n := instr.(type) {
			case *ir.Store:
				gv, ok := n.Addr.(*ir.Global)
				if !ok {
					continue
				}
				if rt, ok := relevantType(n.Value.ValueType(), policy, critical); ok {
					g.addGlobalWriter(gv, typehash.Hash(rt), m)
				}
			case *ir.Load:
				gv, ok := n.Addr.(*ir.Global)
				if !ok {
					continue
				}
				reads, writes, parsable := ParseUsesOfValue(n, fn, policy, critical)
				types := make(map[uint64]*ir.Type, len(reads)+len(writes))
				for h, t := range reads {
					types[h] = t
				}
				for h, t := range writes {
					types[h] = t
				}
				if !parsable || len(types) == 0 {
					if rt, ok := relevantType(n.Typ, policy, critical); ok {
						types[typehash.Hash(rt)] = rt
					}
				}
				for h := range types {
					g.addGlobalReader(gv, h, m)
				}
			}
		}
	}

	for gv, summary := range idx.Globals {
		if gv.Module != m {
			continue
		}
		for h := range summary.TargetTypes {
			g.addGlobalWriter(gv, h, m)
		}
	}

	g.joinGlobalEdges()
}
