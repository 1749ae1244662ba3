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

// Package mlta implements Multi-Layer Type Analysis (spec §4.3): for each indirect call, compute
// an initial callee set by intersecting the signature-match set with the functions ever stored at
// the call's derived (container-type, field-index) layer chain.
package mlta

import (
	"go.mlta.dev/callgraph/ir"
	"go.mlta.dev/callgraph/progindex"
	"go.mlta.dev/callgraph/typehash"
)

// Policy selects how aggressively an indirect call's callee set is narrowed (spec §4.3, §6
// ENABLE_MLTA).
type Policy uint8

const (
	// Multi is the full multi-layer analysis: climb the type-layer chain, intersecting the
	// stored-function set at each layer.
	Multi Policy = iota
	// Fuzzy is signature-match only, cached per call site.
	Fuzzy
	// OneLayer is signature-match only, uncached.
	OneLayer
)

// Resolver computes callee sets for call instructions under a configured Policy.
type Resolver struct {
	Policy Policy

	// matchedICallType caches the Fuzzy-policy result per call site (MatchedICallTypeMap in the
	// original analyzer).
	matchedICallType map[ir.CallSite]ir.CalleeSet
}

// NewResolver returns a Resolver configured with the given Policy.
func NewResolver(policy Policy) *Resolver {
	return &Resolver{Policy: policy, matchedICallType: make(map[ir.CallSite]ir.CalleeSet)}
}

// ResolveDirect resolves a direct call's single callee, rewriting a declaration target to its
// definition via idx.GUIDMap if one is known (spec §4.3 "Direct call").
func (r *Resolver) ResolveDirect(call *ir.Call, idx *progindex.Index) ir.CalleeSet {
	set := ir.NewCalleeSet()
	if call.Callee == nil {
		return set
	}
	fn := call.Callee
	if fn.IsDeclaration {
		if def, ok := idx.GUIDMap[fn.GUID]; ok {
			fn = def
		}
	}
	set.Add(fn)
	return set
}

// ResolveIndirect computes the callee set for an indirect call under the Resolver's Policy
// (spec §4.3 "Indirect call").
func (r *Resolver) ResolveIndirect(call *ir.Call, idx *progindex.Index) ir.CalleeSet {
	sigHash := typehash.Hash(callSignature(call))
	candidate := idx.SigFuncs[sigHash].Clone()

	switch r.Policy {
	case OneLayer:
		return candidate
	case Fuzzy:
		if cached, ok := r.matchedICallType[call]; ok {
			return cached
		}
		r.matchedICallType[call] = candidate
		return candidate
	case Multi:
		return r.resolveMultiLayer(call, idx, candidate)
	default:
		return candidate
	}
}

// resolveMultiLayer climbs the call target's field-addressing chain, narrowing candidate at each
// layer by the set of functions ever stored into that (container, field) slot, stopping when no
// further layer is available or the candidate set stabilizes (spec §4.3, §4.1).
func (r *Resolver) resolveMultiLayer(call *ir.Call, idx *progindex.Index, candidate ir.CalleeSet) ir.CalleeSet {
	layers := typehash.NextLayerBaseType(call.Target)
	for _, layer := range layers {
		if len(candidate) == 0 {
			break
		}
		containerHash := typehash.Hash(layer.Container)
		stored := idx.StoredFuncs[containerHash][layer.Index]
		if stored == nil {
			stored = ir.NewCalleeSet()
		}
		narrowed := candidate.Intersect(stored)
		if len(narrowed) == len(candidate) {
			break
		}
		candidate = narrowed
	}
	return candidate
}

// callSignature returns the ir.Type (KindFunc) describing call's signature: the pointee of the
// target's function-pointer type if known, or else reconstructed from the actual argument and
// result types.
func callSignature(call *ir.Call) *ir.Type {
	if call.Target != nil {
		if t := call.Target.ValueType(); t != nil && t.Kind == ir.KindPointer && t.Elem != nil && t.Elem.Kind == ir.KindFunc {
			return t.Elem
		}
	}
	params := make([]*ir.Type, len(call.Args))
	for i, a := range call.Args {
		params[i] = a.ValueType()
	}
	return ir.Func(params, call.Typ)
}

// ResolveInlineAsm always returns the unresolved sentinel: an inline-assembly call site
// contributes no callees and no constraint (spec §4.3, §7).
func (r *Resolver) ResolveInlineAsm(*ir.InlineAsm) ir.CalleeSet { return ir.Unresolved() }
