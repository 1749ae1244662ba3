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
	"go.mlta.dev/callgraph/typehash"
)

// relevantType reports whether t (or, for a pointer, its pointee) is a target or container type,
// the class of type the propagation graph tracks (spec §4.4 bullet 1: "whose type (or pointee) is
// a target or container type"), and returns that bare type: t itself, or the pointee it had to be
// unwrapped through to qualify. Every dependent-module query in this codebase is keyed on the bare
// type - driver.go's callSignature always unwraps Pointer(Func)->Func, and ElevateType always
// returns a bare composite - so a propagation edge must be recorded on the same bare type or
// DependentModules can never find it. Mirrors the original's ETy := PTy->getPointerElementType()
// unwrap before addPropagation (parseTargetTypesInCalls).
func relevantType(t *ir.Type, policy typehash.Policy, critical map[uint64]bool) (*ir.Type, bool) {
	if t == nil {
		return nil, false
	}
	if typehash.IsTarget(t, policy, critical) || typehash.IsContainer(t) {
		return t, true
	}
	if t.Kind == ir.KindPointer {
		return relevantType(t.Elem, policy, critical)
	}
	return nil, false
}

// DeriveCallEdges derives the argument-flow and return-flow propagation edges for one resolved
// (call, callee) pair (spec §4.4 bullets 1, 2, 4). callerModule is the module containing call.
// Edges from a direct call and from literal function arguments are stable; edges from an indirect
// call are volatile, since they depend on the call's current callee set and must be re-derived
// after every TyPM refinement.
func DeriveCallEdges(call *ir.Call, callerModule *ir.Module, callee *ir.Function, g *Graph, policy typehash.Policy, critical map[uint64]bool) {
	if callerModule == nil || callee == nil || callerModule == callee.Module {
		return
	}
	stable := !call.Indirect()

	for i, param := range callee.Params {
		if i >= len(call.Args) {
			continue
		}
		rt, ok := relevantType(param.Typ, policy, critical)
		if !ok {
			continue
		}
		addFlow(g, stable, callerModule, callee.Module, rt, callee.Effect)
	}

	if rt, ok := relevantType(callee.Return, policy, critical); ok {
		// Return flow is the mirror image of argument flow: the callee is the source, the caller
		// the sink (spec §4.4 bullet 2, "symmetric to arguments, but with caller/callee reversed").
		addFlow(g, stable, callee.Module, callerModule, rt, callee.Effect)
	}

	for _, arg := range call.Args {
		if fn, ok := arg.(*ir.Function); ok && fn.Module != callee.Module {
			g.addEdge(stable, fn.Module, typehash.Hash(fn.Sig), callee.Module)
		}
	}
}

// addFlow adds the forward and/or reverse edge for one parameter or return type between a
// (source, sink) module pair, gated by the callee's memory-effect summary (spec §4.4 bullet 1):
// a writes-only callee only introduces the forward edge source-->sink (it consumes a value the
// source hands it and never reflects one back); a reads-only callee only introduces the reverse
// edge sink-->source (it returns what it already held without taking in anything new); a
// no-memory-access callee introduces neither. An unconstrained summary — including a declaration
// with no recognized memory-effect summary at all, i.e. the escape case of spec §8 scenario 5 —
// adds both, the conservative whole-type fallback.
func addFlow(g *Graph, stable bool, source, sink *ir.Module, t *ir.Type, effect ir.MemoryEffect) {
	th := typehash.Hash(t)
	switch effect {
	case ir.NoMemoryAccess:
		return
	case ir.ReadsOnly:
		g.addEdge(stable, sink, th, source)
	case ir.WritesOnly:
		g.addEdge(stable, source, th, sink)
	default:
		g.addEdge(stable, source, th, sink)
		g.addEdge(stable, sink, th, source)
	}
}
