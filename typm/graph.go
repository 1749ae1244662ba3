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

// Package typm implements Type-based Per-Module dependency analysis (spec §4.4): build the
// (module, type-hash) -> {module} propagation relation from argument flow, return flow, and
// global reads/writes, then answer "which modules can supply module M a value of type T"
// queries used to prune MLTA's callee sets to a fixpoint.
package typm

import (
	"go.mlta.dev/callgraph/ir"
	"go.mlta.dev/callgraph/util/orderedmap"
)

// moduleKey is the propagation map's key: a sink module and the hash of the type flowing into it.
type moduleKey struct {
	Module   *ir.Module
	TypeHash uint64
}

// globalKey identifies one (global variable, type-hash) pair for the global-mediated relations.
type globalKey struct {
	Global   *ir.Global
	TypeHash uint64
}

// moduleSet is an insertion-ordered set of modules, used as both an edge's source set and a
// DependentModules result cache entry, so iteration (and hence any derived report output) stays
// reproducible across runs (spec §5 "Ordering guarantees").
type moduleSet = *orderedmap.OrderedMap[*ir.Module, bool]

func newModuleSet() moduleSet { return orderedmap.New[*ir.Module, bool]() }

// Graph holds the stable and volatile propagation maps (moPropMap/moPropMapV in the original),
// the global-mediated writer/reader relations joined at module-scan time, and the per-phase
// DependentModules memoization table. The fine-grained per-site caches of the original analyzer
// (MatchedICallTypeMap's TyPM analogues, ParsedModuleTypeICall/DCallMap) collapse into the
// Stable/Volatile maps themselves here: a Go map is already an idempotent set, so re-deriving the
// same edge twice in a phase costs a lookup, not a duplicate entry, and a separate dedup cache
// would only restate that invariant.
type Graph struct {
	Stable   *orderedmap.OrderedMap[moduleKey, moduleSet]
	Volatile *orderedmap.OrderedMap[moduleKey, moduleSet]

	// TypesFromModuleGV[glob,th] is the set of modules that have written a value of type th into
	// glob; TypesToModuleGV is the symmetric reader relation. Joined into Stable by
	// joinGlobalEdges at every DeriveGlobalEdges call (spec §4.4 bullet 3, "module join point").
	TypesFromModuleGV *orderedmap.OrderedMap[globalKey, moduleSet]
	TypesToModuleGV   *orderedmap.OrderedMap[globalKey, moduleSet]

	// ResolvedDepModules memoizes DependentModules within the current phase; cleared by
	// ClearVolatile alongside the volatile map itself (spec §4.4 "Dependent-module query", §9
	// "cached per-site lookups ... cleared at each phase boundary").
	ResolvedDepModules *orderedmap.OrderedMap[moduleKey, moduleSet]
}

// NewGraph returns an empty Graph ready for the first phase.
func NewGraph() *Graph {
	return &Graph{
		Stable:             orderedmap.New[moduleKey, moduleSet](),
		Volatile:           orderedmap.New[moduleKey, moduleSet](),
		TypesFromModuleGV:  orderedmap.New[globalKey, moduleSet](),
		TypesToModuleGV:    orderedmap.New[globalKey, moduleSet](),
		ResolvedDepModules: orderedmap.New[moduleKey, moduleSet](),
	}
}

// addEdge records the propagation edge from --typeHash--> to in the stable or volatile map.
func (g *Graph) addEdge(stable bool, from *ir.Module, typeHash uint64, to *ir.Module) {
	if from == nil || to == nil {
		return
	}
	m := g.Volatile
	if stable {
		m = g.Stable
	}
	k := moduleKey{Module: to, TypeHash: typeHash}
	set, ok := m.Load(k)
	if !ok {
		set = newModuleSet()
		m.Store(k, set)
	}
	set.Store(from, true)
}

// ClearVolatile resets the volatile propagation map and the per-phase DependentModules cache at
// the start of a new TyPM iteration (spec §3 "the volatile map is cleared at the start of every
// TyPM iteration"; §4.5 "On entering each TyPM phase, clear volatile maps and caches").
func (g *Graph) ClearVolatile() {
	g.Volatile = orderedmap.New[moduleKey, moduleSet]()
	g.ResolvedDepModules = orderedmap.New[moduleKey, moduleSet]()
}

func (g *Graph) addGlobalWriter(gv *ir.Global, typeHash uint64, m *ir.Module) {
	addToGlobalRelation(g.TypesFromModuleGV, gv, typeHash, m)
}

func (g *Graph) addGlobalReader(gv *ir.Global, typeHash uint64, m *ir.Module) {
	addToGlobalRelation(g.TypesToModuleGV, gv, typeHash, m)
}

func addToGlobalRelation(rel *orderedmap.OrderedMap[globalKey, moduleSet], gv *ir.Global, typeHash uint64, m *ir.Module) {
	k := globalKey{Global: gv, TypeHash: typeHash}
	set, ok := rel.Load(k)
	if !ok {
		set = newModuleSet()
		rel.Store(k, set)
	}
	set.Store(m, true)
}

// joinGlobalEdges materializes stable propagation edges for every (global, type) pair that has
// both recorded writers and readers: each writer module supplies each reader module a value of
// that type through the global (spec §4.4 bullet 3, "module join point").
func (g *Graph) joinGlobalEdges() {
	for _, wp := range g.TypesFromModuleGV.Pairs {
		readers, ok := g.TypesToModuleGV.Load(wp.Key)
		if !ok {
			continue
		}
		for _, wm := range wp.Value.Pairs {
			for _, rm := range readers.Pairs {
				g.addEdge(true, wm.Key, wp.Key.TypeHash, rm.Key)
			}
		}
	}
}

func modulesOf(set moduleSet) []*ir.Module {
	if set == nil {
		return nil
	}
	out := make([]*ir.Module, 0, len(set.Pairs))
	for _, p := range set.Pairs {
		out = append(out, p.Key)
	}
	return out
}
