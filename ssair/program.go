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

package ssair

import (
	"fmt"
	"go/token"
	"sort"

	"go.mlta.dev/callgraph/ir"
	"go.mlta.dev/callgraph/report"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// loadMode is the minimum packages.Load mode that lets ssautil.AllPackages build SSA with
// function bodies for every loaded package, mirroring cmd/callgraph's and nilaway's own
// whole-program loading (see golang.org/x/tools/go/analysis/singlechecker's use of
// packages.Load).
const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
	packages.NeedImports | packages.NeedTypes | packages.NeedTypesSizes |
	packages.NeedSyntax | packages.NeedTypesInfo | packages.NeedDeps

// BuildProgram loads every package matching patterns (in dir, or the current directory if dir is
// empty) with golang.org/x/tools/go/packages, builds their SSA form with
// golang.org/x/tools/go/ssa/ssautil, and converts the result into one ir.Program with one
// ir.Module per loaded Go package - the whole-program front end cmd/callgraph drives (spec §6
// "a program is a finite ordered set of modules").
//
// locs, if non-nil, is populated with a file:line string for every converted function and call
// site, for package report/package trace to consume. The returned *token.FileSet is the one the
// positions in locs were resolved against.
func BuildProgram(dir string, patterns []string, locs *report.Locations) (*ir.Program, *token.FileSet, error) {
	fset := token.NewFileSet()
	cfg := &packages.Config{Mode: loadMode, Dir: dir, Fset: fset, Tests: false}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, nil, fmt.Errorf("ssair: loading packages: %w", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, nil, fmt.Errorf("ssair: one or more packages failed to load")
	}

	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	builder := NewBuilder(fset, locs)
	builder.SetAddressTaken(ComputeAddressTaken(ssautil.AllFunctions(prog)))

	modules := make([]*ir.Module, 0, len(ssaPkgs))
	seen := make(map[*ir.Module]bool)
	for _, pkg := range ssaPkgs {
		if pkg == nil {
			continue
		}
		mod := builder.ConvertPackage(pkg)
		if !seen[mod] {
			seen[mod] = true
			modules = append(modules, mod)
		}
	}

	// ssautil.AllFunctions additionally surfaces synthetic functions with no home package Member
	// (interface-method thunks, bound-method closures, wrappers) that the per-package sweep above
	// never reaches as a Member; convert each of those too, so every function the whole-program
	// callee sets might name is a definition, not a dangling reference.
	for fn := range ssautil.AllFunctions(prog) {
		builder.ConvertFunction(fn)
	}
	if len(builder.synthetic.Functions) > 0 || len(builder.synthetic.Globals) > 0 {
		modules = append(modules, builder.synthetic)
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].Name < modules[j].Name })
	return &ir.Program{Modules: modules}, fset, nil
}
