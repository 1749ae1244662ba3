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

package progindex

import (
	"go.mlta.dev/callgraph/ir"
	"go.mlta.dev/callgraph/typehash"
)

// Scan performs the single initialization pass over one module (spec §4.2), recording its
// globals, functions, and instructions into idx. Scan must be called once per module of the
// Program, in order; call Finalize after the last module.
func Scan(m *ir.Module, idx *Index, policy typehash.Policy, critical map[uint64]bool) {
	if idx.finalized {
		panic("progindex: Scan called after Finalize")
	}

	for _, g := range m.Globals {
		scanGlobal(m, g, idx, policy, critical)
	}
	for _, fn := range m.Functions {
		scanFunction(m, fn, idx, policy, critical)
	}
}

func scanGlobal(m *ir.Module, g *ir.Global, idx *Index, policy typehash.Policy, critical map[uint64]bool) {
	if g.Initializer == nil {
		return
	}
	summary := newGlobalSummary()
	walkInitializer(m, g.Initializer, summary, policy, critical)
	idx.Globals[g] = summary
}

// walkInitializer recursively collects target types and literal function stores from a global's
// constant initializer tree (grounded on findTargetTypesInInitializer in the original TyPM.cc).
func walkInitializer(m *ir.Module, v ir.Value, summary *GlobalSummary, policy typehash.Policy, critical map[uint64]bool) {
	if v == nil {
		return
	}
	if t := v.ValueType(); typehash.IsTarget(t, policy, critical) {
		summary.TargetTypes[typehash.Hash(t)] = t
	}

	switch n := v.(type) {
	case *ir.ConstComposite:
		containerHash := typehash.Hash(n.Typ)
		for i, f := range n.Fields {
			if f == nil {
				continue
			}
			if fn, ok := f.(*ir.Function); ok {
				summary.addFieldFunc(containerHash, i, fn)
				summary.addWriter(typehash.Hash(fn.Sig), m)
			}
			walkInitializer(m, f, summary, policy, critical)
		}
	case *ir.Function:
		summary.addWriter(typehash.Hash(n.Sig), m)
	}
}

func scanFunction(m *ir.Module, fn *ir.Function, idx *Index, policy typehash.Policy, critical map[uint64]bool) {
	if fn.Intrinsic {
		return
	}

	if fn.AddressTaken {
		idx.AddressTaken[fn.GUID] = fn
		sigHash := typehash.Hash(fn.Sig)
		if idx.SigFuncs[sigHash] == nil {
			idx.SigFuncs[sigHash] = ir.NewCalleeSet()
		}
		idx.SigFuncs[sigHash].Add(fn)
	}

	if fn.IsDeclaration {
		idx.declarations = append(idx.declarations, fn)
		return
	}

	if fn.Linkage == ir.External {
		idx.GUIDMap[fn.GUID] = fn
	}

	for _, instr := range fn.Instrs {
		scanInstruction(m, instr, idx, policy, critical)
	}
}

func scanInstruction(m *ir.Module, instr ir.Instruction, idx *Index, policy typehash.Policy, critical map[uint64]bool) {
	switch n := instr.(type) {
	case *ir.Store:
		if fa, ok := n.Addr.(*ir.FieldAddr); ok {
			containerHash := typehash.Hash(fa.Container)
			idx.markStored(m, containerHash, fa.Index)
			if fn, ok := n.Value.(*ir.Function); ok {
				idx.addStoredFunc(containerHash, fa.Index, fn)
			}
		}
	case *ir.Alloc:
		if typehash.IsContainer(n.Typ) && typehash.IsTarget(n.Typ, policy, critical) {
			idx.addAllocation(typehash.Hash(n.Typ), m)
		} else if typehash.IsContainer(n.Typ) {
			// Non-target containers are still recorded: a target type nested inside a container
			// allocated here is reachable through it, so the allocation record must cover every
			// container, not only ones whose top-level type happens to satisfy IsTarget.
			idx.addAllocation(typehash.Hash(n.Typ), m)
		}
	case *ir.Cast:
		recordCastIfInteresting(m, idx, n.Operand.ValueType(), n.Typ, policy, critical)
	}
}

func recordCastIfInteresting(m *ir.Module, idx *Index, from, to *ir.Type, policy typehash.Policy, critical map[uint64]bool) {
	fromOpaque := typehash.IsOpaquePointer(from)
	toOpaque := typehash.IsOpaquePointer(to)
	if !fromOpaque && !toOpaque {
		return
	}

	interesting := func(t *ir.Type) bool {
		return typehash.IsContainer(t) || typehash.IsTarget(t, policy, critical)
	}
	if (fromOpaque && !interesting(to)) || (toOpaque && !interesting(from)) {
		return
	}

	idx.recordCast(m, typehash.Hash(from), typehash.Hash(to))
}
