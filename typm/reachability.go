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
	"go.mlta.dev/callgraph/util/orderedmap"
)

// ElevateType climbs layers (the field-addressing chain recovered by typehash.NextLayerBaseType
// for the call's target value) looking for the first layer whose field has never been stored
// within m: the externality check. That field's value must have originated outside m, so its
// container type is a sound, and often sharper, key for the dependent-module query than the
// original target type t (spec §4.4 "Dependent-module query", third bullet). If no layer passes
// the check, t is returned unchanged.
func ElevateType(t *ir.Type, layers []typehash.Layer, m *ir.Module, idx *progindex.Index) *ir.Type {
	for _, l := range layers {
		if !idx.IsStored(m, typehash.Hash(l.Container), l.Index) {
			return l.Container
		}
	}
	return t
}

// DependentModules computes the set of modules that can supply module m a value of type t, by
// work-list reachability over the union of the stable and volatile propagation maps, starting
// from (m, hash(t)). The byte-pointer type is traversed as a second, independent key, to catch
// function pointers laundered through an opaque/generic-pointer slot (spec §4.4 "Dependent-module
// query"). idx's per-module cast relation widens the query further: if m's own code casts t to or
// from some other type, a supplier of that other type can supply m a value of t too (spec §3 "Cast
// relation", §4.4 "Used to widen the type used in a TyPM query"; the original's
// findTargetTypesInValue walks CastFromMap/CastToMap for the same reason). Results are memoized in
// g.ResolvedDepModules for the remainder of the current phase.
func DependentModules(t *ir.Type, m *ir.Module, g *Graph, idx *progindex.Index) map[*ir.Module]bool {
	th := typehash.Hash(t)
	key := moduleKey{Module: m, TypeHash: th}
	if cached, ok := g.ResolvedDepModules.Load(key); ok {
		return toModuleMap(cached)
	}

	result := make(map[*ir.Module]bool)
	reachableFrom(g, m, th, result)

	bph := typehash.Hash(ir.BytePointer)
	if bph != th {
		reachableFrom(g, m, bph, result)
	}

	for castHash := range idx.CastFrom[m][th] {
		reachableFrom(g, m, castHash, result)
	}
	for castHash := range idx.CastTo[m][th] {
		reachableFrom(g, m, castHash, result)
	}

	cache := newModuleSet()
	for mm := range result {
		cache.Store(mm, true)
	}
	g.ResolvedDepModules.Store(key, cache)
	return result
}

// reachableFrom performs one work-list traversal over a single fixed type hash, accumulating every
// module transitively able to supply start a value of that type.
func reachableFrom(g *Graph, start *ir.Module, typeHash uint64, result map[*ir.Module]bool) {
	visited := map[*ir.Module]bool{start: true}
	worklist := []*ir.Module{start}

	for len(worklist) > 0 {
		cur := worklist[0]
		worklist = worklist[1:]

		k := moduleKey{Module: cur, TypeHash: typeHash}
		for _, set := range []*orderedmap.OrderedMap[moduleKey, moduleSet]{g.Stable, g.Volatile} {
			sources, ok := set.Load(k)
			if !ok {
				continue
			}
			for _, src := range modulesOf(sources) {
				result[src] = true
				if !visited[src] {
					visited[src] = true
					worklist = append(worklist, src)
				}
			}
		}
	}
}

func toModuleMap(set moduleSet) map[*ir.Module]bool {
	out := make(map[*ir.Module]bool, len(set.Pairs))
	for _, p := range set.Pairs {
		out[p.Key] = true
	}
	return out
}
