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

// Package callgraph implements the top-level analyzer that runs the MLTA/TyPM call-graph resolver
// over a single package's SSA form and reports indirect call sites the resolver could not narrow
// down with any useful precision.
//
// This per-package analyzer is a go/analysis-native approximation, not the whole-program analysis
// spec.md describes: golang.org/x/tools/go/analysis passes see only their own package's SSA, so
// the program index, MLTA layers and TyPM propagation graph here are all built from a
// single-module ir.Program. The true whole-program run - every module of an import graph, built
// and indexed together - lives in cmd/callgraph, which uses golang.org/x/tools/go/packages
// directly instead of the analysis.Pass API. See package ssair's doc comment for the shared
// adapter both entry points build on.
package callgraph

import (
	"reflect"

	"go.mlta.dev/callgraph/config"
	"go.mlta.dev/callgraph/driver"
	"go.mlta.dev/callgraph/ir"
	"go.mlta.dev/callgraph/report"
	"go.mlta.dev/callgraph/ssair"
	"go.mlta.dev/callgraph/util/analysishelper"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"
	"golang.org/x/tools/go/ssa"
)

const _doc = "Resolve indirect call targets in this package via MLTA/TyPM and report call sites " +
	"whose resolved callee set is still too large to be a useful analysis result."

// precisionWarningThreshold is the number of resolved callees at or above which an indirect call
// site is reported: below it, the resolver has done useful narrowing; at or above it, the result
// is unlikely to be actionable for a reader (spec §6's "precision" framing, applied here as a
// single fixed cutoff rather than a configurable one, since this analyzer's diagnostics are
// advisory - the module's primary output is Result itself, consumed via package report by
// cmd/callgraph).
const precisionWarningThreshold = 8

// Analyzer is the top-level instance: it builds this package's ir.Module from its SSA form, runs
// the full driver phase sequence, and reports low-precision indirect call sites as diagnostics.
var Analyzer = &analysis.Analyzer{
	Name:       "callgraph",
	Doc:        _doc,
	Run:        analysishelper.WrapRun(run),
	ResultType: reflect.TypeOf((*analysishelper.Result[*driver.Result])(nil)),
	Requires:   []*analysis.Analyzer{config.Analyzer, buildssa.Analyzer},
}

func run(p *analysis.Pass) (*driver.Result, error) {
	pass := analysishelper.NewEnhancedPass(p)
	conf := pass.ResultOf[config.Analyzer].(*config.Config)
	ssaInput := pass.ResultOf[buildssa.Analyzer].(*buildssa.SSA)

	critical, err := config.LoadCriticalStructs(conf.CriticalStructsFile)
	if err != nil {
		return nil, err
	}
	outOfScope, err := config.LoadOutOfScopeFuncs(conf.OutOfScopeFuncsFile)
	if err != nil {
		return nil, err
	}

	locs := report.NewLocations()
	builder := ssair.NewBuilder(pass.Fset, locs)
	// This pass only ever sees its own package's SSA, so the address-taken sweep is necessarily
	// scoped to it too: a function whose only address-taking reference lives in a package that
	// imports this one will be (harmlessly) under-flagged here. cmd/callgraph's whole-program
	// sweep does not have this limitation.
	builder.SetAddressTaken(ssair.ComputeAddressTaken(localFunctions(ssaInput)))
	mod := builder.ConvertPackage(ssaInput.Pkg)
	prog := &ir.Program{Modules: []*ir.Module{mod}}

	d, err := driver.New(conf.TargetTypePolicy, critical, outOfScope, conf.EnableMLTA, conf.EnableTyPM, conf.MaxPhaseCG)
	if err != nil {
		return nil, err
	}
	if err := d.DoInitialization(prog); err != nil {
		return nil, err
	}
	for {
		done, err := d.DoModulePass(prog)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	result, err := d.DoFinalization()
	if err != nil {
		return nil, err
	}

	engine := report.NewEngine(result, locs)
	for call, callees := range engine.Callees() {
		if !call.Indirect() || len(callees) < precisionWarningThreshold {
			continue
		}
		pos := builder.CallPos(call)
		if !pos.IsValid() {
			continue
		}
		pass.Reportf(pos, "indirect call resolves to %d candidate targets; MLTA/TyPM could not narrow this further", len(callees))
	}

	return result, nil
}

// localFunctions returns the *ssa.Function set reachable from this package's own SrcFuncs, for
// ComputeAddressTaken's whole-program parameter.
func localFunctions(ssaInput *buildssa.SSA) map[*ssa.Function]bool {
	out := make(map[*ssa.Function]bool, len(ssaInput.SrcFuncs))
	for _, fn := range ssaInput.SrcFuncs {
		out[fn] = true
	}
	return out
}
