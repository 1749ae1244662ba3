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
	"go/types"
	"sort"

	"go.mlta.dev/callgraph/hook"
	"go.mlta.dev/callgraph/ir"
	"go.mlta.dev/callgraph/report"
	"go.mlta.dev/callgraph/util/tokenhelper"
	"golang.org/x/tools/go/ssa"
)

// Builder converts *ssa.Package values into ir.Modules, sharing one type converter and one
// whole-program function/global registry across all of them, so that a type or function
// referenced from two different packages converts to the identical *ir.Type / *ir.Function (by
// GUID) wherever it's seen.
type Builder struct {
	types *typeConverter
	fset  *token.FileSet
	locs  *report.Locations

	funcs   map[*ssa.Function]*ir.Function
	globals map[*ssa.Global]*ir.Global
	modules map[*types.Package]*ir.Module

	// bodies tracks which functions have already had convertFunctionBody run to completion, so a
	// function seen twice (once as a declaration stub via a reference, once as the real owning
	// package's Member) only has its instruction stream built once.
	bodies map[*ssa.Function]bool

	// addressTaken is populated once, before any package is converted: see SetAddressTaken and
	// ComputeAddressTaken in addresstaken.go.
	addressTaken map[*ssa.Function]bool

	// synthetic holds the module any *ssa.Function with a nil Pkg (interface-method thunks,
	// bound-method closures, runtime-generated wrappers) is attributed to, since such functions
	// have no home package of their own.
	synthetic *ir.Module

	// callPos records each converted call instruction's source position, for callers (such as
	// package callgraph) that need to report a diagnostic at a call site rather than just label
	// it: report.Locations only carries the string form.
	callPos map[ir.CallSite]token.Pos
}

// CallPos returns the source position call was converted from, or the zero token.Pos if call
// wasn't built by this Builder.
func (b *Builder) CallPos(call ir.CallSite) token.Pos { return b.callPos[call] }

// NewBuilder constructs a Builder. fset resolves ssa positions to file:line strings recorded into
// locs; locs may be nil if the caller has no use for source locations.
func NewBuilder(fset *token.FileSet, locs *report.Locations) *Builder {
	if locs == nil {
		locs = report.NewLocations()
	}
	return &Builder{
		types:     newTypeConverter(),
		fset:      fset,
		locs:      locs,
		funcs:     make(map[*ssa.Function]*ir.Function),
		globals:   make(map[*ssa.Global]*ir.Global),
		modules:   make(map[*types.Package]*ir.Module),
		bodies:    make(map[*ssa.Function]bool),
		synthetic: &ir.Module{Name: "<synthetic>", DataLayout: "go/ssa"},
		callPos:   make(map[ir.CallSite]token.Pos),
	}
}

// SetAddressTaken installs the whole-program address-taken set computed by ComputeAddressTaken.
// It must be called before converting any package.
func (b *Builder) SetAddressTaken(taken map[*ssa.Function]bool) {
	b.addressTaken = taken
}

// moduleFor returns the ir.Module a function or global belonging to pkg should be attributed to,
// creating it on first use. pkg may be nil (synthetic functions with no home package).
func (b *Builder) moduleFor(pkg *ssa.Package) *ir.Module {
	if pkg == nil {
		return b.synthetic
	}
	if mod, ok := b.modules[pkg.Pkg]; ok {
		return mod
	}
	mod := &ir.Module{Name: pkg.Pkg.Path(), DataLayout: "go/ssa"}
	b.modules[pkg.Pkg] = mod
	return mod
}

// ConvertPackage converts pkg's package-level functions and variables into pkg's ir.Module,
// returning it. Functions belonging to pkg are fully converted (body included); functions and
// globals referenced from pkg's code but owned by another package are recorded only as
// declarations here, and get their bodies filled in once (and if) their own package is converted -
// see Builder.funcFor.
func (b *Builder) ConvertPackage(pkg *ssa.Package) *ir.Module {
	mod := b.moduleFor(pkg)

	names := make([]string, 0, len(pkg.Members))
	for name := range pkg.Members {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		switch m := pkg.Members[name].(type) {
		case *ssa.Function:
			b.convertFunctionBody(m)
		case *ssa.Global:
			b.globalFor(m)
		}
	}
	return mod
}

// ConvertFunction ensures fn is converted (declaration or full body, as appropriate) and returns
// its ir.Function. It is exported so Program can reach functions that ssautil.AllFunctions
// surfaces but that never appear as a package Member (method wrappers, bound-method closures,
// init functions of imported packages never otherwise visited).
func (b *Builder) ConvertFunction(fn *ssa.Function) *ir.Function {
	return b.convertFunctionBody(fn)
}

// funcFor returns the shared ir.Function for fn, creating a declaration-only stub the first time
// fn is seen from anywhere (a call site, a stored function value, or its own defining package).
func (b *Builder) funcFor(fn *ssa.Function) *ir.Function {
	if existing, ok := b.funcs[fn]; ok {
		return existing
	}
	name := fn.RelString(nil)
	irFn := &ir.Function{
		Name:          name,
		GUID:          ir.NewGUID(name),
		Module:        b.moduleFor(fn.Pkg),
		Sig:           b.types.convert(fn.Signature),
		Return:        b.types.convertResults(fn.Signature.Results()),
		IsDeclaration: true,
		AddressTaken:  b.addressTaken[fn],
		Linkage:       linkageFor(fn),
		Intrinsic:     fn.Pkg == nil,
	}
	// fn.Params (the ssa.Function's own *Parameter nodes, used as operands throughout its body)
	// includes the receiver as element 0 for a method; fn.Signature.Params() never does. Rebuild
	// the type list the same way so irFn.Params lines up index-for-index with fn.Params once the
	// body is converted (see convertFunctionBody).
	var paramTypes []*ir.Type
	if recv := fn.Signature.Recv(); recv != nil {
		paramTypes = append(paramTypes, b.types.convert(recv.Type()))
	}
	for i := 0; i < fn.Signature.Params().Len(); i++ {
		paramTypes = append(paramTypes, b.types.convert(fn.Signature.Params().At(i).Type()))
	}
	for i, typ := range paramTypes {
		irFn.Params = append(irFn.Params, &ir.Param{Fn: irFn, Index: i, Typ: typ})
	}
	b.funcs[fn] = irFn
	irFn.Module.Functions = append(irFn.Module.Functions, irFn)
	if pos := fn.Pos(); pos.IsValid() {
		b.locs.Function[irFn.GUID] = b.posString(pos)
	}
	return irFn
}

// linkageFor maps a function's Go-level exportedness onto the core's binary linkage model: Go's
// own cross-package visibility rule (capitalized identifiers are importable, lowercase ones
// aren't) is the closest equivalent a Go front end has to a linker's external-symbol visibility.
func linkageFor(fn *ssa.Function) ir.Linkage {
	if obj := fn.Object(); obj != nil && obj.Exported() {
		return ir.External
	}
	return ir.Internal
}

// convertFunctionBody fills in fn's ir.Function body in place the first (and only) time it's
// called for fn. Calling it again, or calling it after funcFor already created fn's declaration
// stub from some other reference, is safe: the stub is reused and only its body-dependent fields
// change.
func (b *Builder) convertFunctionBody(fn *ssa.Function) *ir.Function {
	irFn := b.funcFor(fn)
	if b.bodies[fn] {
		return irFn
	}
	b.bodies[fn] = true

	irFn.IsDeclaration = len(fn.Blocks) == 0
	if irFn.IsDeclaration {
		if effect, ok := hook.MemoryEffectFor(irFn.Name); ok {
			irFn.Effect = effect
		}
		return irFn
	}

	fc := &funcConverter{b: b, fn: fn, irFn: irFn, values: make(map[ssa.Value]ir.Value)}
	for i, p := range fn.Params {
		fc.values[p] = irFn.Params[i]
	}
	for _, block := range fn.Blocks {
		for _, instr := range block.Instrs {
			fc.convertInstr(instr)
		}
	}
	return irFn
}

// globalFor mirrors funcFor for package-level variables. Initializer is deliberately left nil:
// go/ssa models a package-level var's initialization as ordinary Store instructions in the
// package's synthetic init function, which progindex.Scan already indexes generically - there is
// no need to additionally reconstruct an ir.Value initializer tree here.
func (b *Builder) globalFor(g *ssa.Global) *ir.Global {
	if existing, ok := b.globals[g]; ok {
		return existing
	}
	name := g.RelString(nil)
	ptr := g.Type().(*types.Pointer)
	irG := &ir.Global{
		Name:   name,
		GUID:   ir.NewGUID(name),
		Module: b.moduleFor(g.Pkg),
		Typ:    b.types.convert(ptr.Elem()),
	}
	b.globals[g] = irG
	irG.Module.Globals = append(irG.Module.Globals, irG)
	return irG
}

// posString resolves pos to a "path:line" string, with the path relativized to the current
// working directory when possible - matching the console-friendly path style the teacher's own
// diagnostic output uses (tokenhelper.RelToCwd), rather than the long absolute paths
// golang.org/x/tools/go/packages records file names as.
func (b *Builder) posString(pos token.Pos) string {
	if b.fset == nil || !pos.IsValid() {
		return ""
	}
	p := b.fset.Position(pos)
	return fmt.Sprintf("%s:%d", tokenhelper.RelToCwd(p.Filename), p.Line)
}
