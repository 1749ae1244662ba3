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

// Site bundles one indirect call site's refinement context: its containing module, the target
// type used to key the dependent-module query, the field-layer chain recovered for that call
// target (used by ElevateType), and its current callee set, which Refine mutates in place.
type Site struct {
	Call    ir.CallSite
	Module  *ir.Module
	Type    *ir.Type
	Layers  []typehash.Layer
	Callees ir.CalleeSet
}

// Refine prunes every site's callee set to the functions defined in a dependent module (or the
// site's own module), keeping functions named in outOfScope regardless (spec §4.4 "Callee-set
// refinement", §8 invariant 5). It returns the total removed and kept callee counts across all
// sites, the inputs to the driver's fixpoint test (spec §4.4 "Fixpoint").
func Refine(idx *progindex.Index, g *Graph, sites []*Site, outOfScope map[string]bool) (removed, kept int) {
	for _, site := range sites {
		elevated := ElevateType(site.Type, site.Layers, site.Module, idx)
		dep := DependentModules(elevated, site.Module, g, idx)
		dep[site.Module] = true

		keep := ir.NewCalleeSet()
		for _, fn := range site.Callees {
			if outOfScope[fn.Name] || dep[fn.Module] {
				keep.Add(fn)
				kept++
				continue
			}
			removed++
		}
		site.Callees = keep
	}
	return removed, kept
}
