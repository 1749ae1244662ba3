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

// Package progindex implements the one-pass-per-module program index (spec §4.2): the
// address-taken function set, the signature-to-function map, per-module cast and stored-field
// relations, the allocation record, and global-variable initializer summaries that the MLTA
// resolver and TyPM propagation graph both read from.
package progindex

import "go.mlta.dev/callgraph/ir"

// GlobalSummary records what Scan discovered about one global's initializer tree (spec §3
// "Global-variable summary").
type GlobalSummary struct {
	// TargetTypes is the set of target types (by hash) reachable through the initializer tree.
	TargetTypes map[uint64]*ir.Type
	// FieldFuncs records, for each (container-hash, field-index) pair touched by the initializer,
	// the functions literally stored there.
	FieldFuncs map[uint64]map[int]ir.CalleeSet
	// Writers maps a type hash to the set of modules observed writing a value of that type into
	// this global. For a global, the writer is always its own defining module (captured at scan
	// time); readers are populated by whichever modules load the global, recorded in DeriveGlobalEdges.
	Writers map[uint64]map[*ir.Module]bool
}

func newGlobalSummary() *GlobalSummary {
	return &GlobalSummary{
		TargetTypes: make(map[uint64]*ir.Type),
		FieldFuncs:  make(map[uint64]map[int]ir.CalleeSet),
		Writers:     make(map[uint64]map[*ir.Module]bool),
	}
}

// Index is the single owned value populated by Scan across every module of a Program, then
// read-only for the remainder of the run (spec §9: "explicit owned program index value ...
// borrowed immutably by per-function workers").
type Index struct {
	// AddressTaken maps every address-taken function's GUID to itself.
	AddressTaken map[ir.GUID]*ir.Function
	// SigFuncs maps a function-signature hash to the address-taken functions sharing it
	// (spec §4.2 "signature-hash -> {function}").
	SigFuncs map[uint64]ir.CalleeSet
	// GUIDMap maps every externally-linked function definition's GUID to itself, used to rewrite
	// declaration references to their definition (spec §4.2 last bullet).
	GUIDMap map[ir.GUID]*ir.Function

	// StoredFuncs maps a container-type hash and field index to the set of functions ever stored
	// into that slot anywhere in the program. This is the global table the MLTA resolver
	// intersects against (spec §4.3).
	StoredFuncs map[uint64]map[int]ir.CalleeSet

	// ModuleStoredFields is the per-module boolean stored-field set used by TyPM's externality
	// check (spec §3 "Stored-field set", §4.4 "elevate the type").
	ModuleStoredFields map[*ir.Module]map[uint64]map[int]bool

	// CastFrom[module][toHash] is the set of fromHash values ever cast to toHash within module.
	// CastTo[module][fromHash] is the symmetric relation (spec §3 "Cast relation").
	CastFrom map[*ir.Module]map[uint64]map[uint64]bool
	CastTo   map[*ir.Module]map[uint64]map[uint64]bool

	// Allocations maps a container-type hash to the set of modules containing an allocation of
	// that type (spec §3 "Allocation record").
	Allocations map[uint64]map[*ir.Module]bool

	// Globals maps every scanned global with an initializer to its summary.
	Globals map[*ir.Global]*GlobalSummary

	// declarations accumulates every function seen as a declaration (IsDeclaration) during Scan.
	// Finalize clears it; the GUID rewrite itself (RewriteDeclarations) works from GUIDMap.
	declarations []*ir.Function

	finalized bool
}

// New returns an empty Index ready to be passed to Scan for each module in turn.
func New() *Index {
	return &Index{
		AddressTaken:       make(map[ir.GUID]*ir.Function),
		SigFuncs:           make(map[uint64]ir.CalleeSet),
		GUIDMap:            make(map[ir.GUID]*ir.Function),
		StoredFuncs:        make(map[uint64]map[int]ir.CalleeSet),
		ModuleStoredFields: make(map[*ir.Module]map[uint64]map[int]bool),
		CastFrom:           make(map[*ir.Module]map[uint64]map[uint64]bool),
		CastTo:             make(map[*ir.Module]map[uint64]map[uint64]bool),
		Allocations:        make(map[uint64]map[*ir.Module]bool),
		Globals:            make(map[*ir.Global]*GlobalSummary),
	}
}

// IsStored reports whether field index within the composite type hashed as containerHash has ever
// been stored to within module m. A false result licenses TyPM's externality check: the field's
// value must have originated outside m (spec §3, §4.4).
func (idx *Index) IsStored(m *ir.Module, containerHash uint64, index int) bool {
	byContainer, ok := idx.ModuleStoredFields[m]
	if !ok {
		return false
	}
	return byContainer[containerHash][index]
}

func (idx *Index) markStored(m *ir.Module, containerHash uint64, index int) {
	byContainer, ok := idx.ModuleStoredFields[m]
	if !ok {
		byContainer = make(map[uint64]map[int]bool)
		idx.ModuleStoredFields[m] = byContainer
	}
	if byContainer[containerHash] == nil {
		byContainer[containerHash] = make(map[int]bool)
	}
	byContainer[containerHash][index] = true
}

func (idx *Index) addStoredFunc(containerHash uint64, index int, fn *ir.Function) {
	if idx.StoredFuncs[containerHash] == nil {
		idx.StoredFuncs[containerHash] = make(map[int]ir.CalleeSet)
	}
	if idx.StoredFuncs[containerHash][index] == nil {
		idx.StoredFuncs[containerHash][index] = ir.NewCalleeSet()
	}
	idx.StoredFuncs[containerHash][index].Add(fn)
}

func (idx *Index) addAllocation(containerHash uint64, m *ir.Module) {
	if idx.Allocations[containerHash] == nil {
		idx.Allocations[containerHash] = make(map[*ir.Module]bool)
	}
	idx.Allocations[containerHash][m] = true
}

func (idx *Index) recordCast(m *ir.Module, fromHash, toHash uint64) {
	if idx.CastFrom[m] == nil {
		idx.CastFrom[m] = make(map[uint64]map[uint64]bool)
	}
	if idx.CastFrom[m][toHash] == nil {
		idx.CastFrom[m][toHash] = make(map[uint64]bool)
	}
	idx.CastFrom[m][toHash][fromHash] = true

	if idx.CastTo[m] == nil {
		idx.CastTo[m] = make(map[uint64]map[uint64]bool)
	}
	if idx.CastTo[m][fromHash] == nil {
		idx.CastTo[m][fromHash] = make(map[uint64]bool)
	}
	idx.CastTo[m][fromHash][toHash] = true
}

func (g *GlobalSummary) addFieldFunc(containerHash uint64, index int, fn *ir.Function) {
	if g.FieldFuncs[containerHash] == nil {
		g.FieldFuncs[containerHash] = make(map[int]ir.CalleeSet)
	}
	if g.FieldFuncs[containerHash][index] == nil {
		g.FieldFuncs[containerHash][index] = ir.NewCalleeSet()
	}
	g.FieldFuncs[containerHash][index].Add(fn)
}

func (g *GlobalSummary) addWriter(typeHash uint64, m *ir.Module) {
	if g.Writers[typeHash] == nil {
		g.Writers[typeHash] = make(map[*ir.Module]bool)
	}
	g.Writers[typeHash][m] = true
}
