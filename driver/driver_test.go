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

package driver

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mlta.dev/callgraph/ir"
	"go.mlta.dev/callgraph/mlta"
	"go.mlta.dev/callgraph/typehash"
)

func TestNew_RejectsInvalidMaxPhaseCG(t *testing.T) {
	t.Parallel()

	_, err := New(typehash.FunctionMode, nil, nil, mlta.Multi, true, 0)
	require.Error(t, err)
}

// TestDirectCallEndToEnd covers spec §8 scenario 1 through the full driver: module A defines
// f and g, g calls f directly. Expected: Callees(call-in-g) = {f} after phase 1 and remains so.
func TestDirectCallEndToEnd(t *testing.T) {
	t.Parallel()

	sig := ir.Func(nil, nil)
	m := &ir.Module{Name: "A"}
	f := &ir.Function{Name: "f", GUID: ir.NewGUID("f"), Module: m, Sig: sig, Linkage: ir.External}
	call := &ir.Call{Callee: f}
	g := &ir.Function{Name: "g", GUID: ir.NewGUID("g"), Module: m, Sig: ir.Func(nil, nil), Linkage: ir.External,
		Instrs: []ir.Instruction{call}}
	m.Functions = []*ir.Function{f, g}

	d, err := New(typehash.FunctionMode, nil, nil, mlta.Multi, false, 1)
	require.NoError(t, err)

	prog := &ir.Program{Modules: []*ir.Module{m}}
	require.NoError(t, d.DoInitialization(prog))

	done, err := d.DoModulePass(prog)
	require.NoError(t, err)
	require.True(t, done, "with TyPM disabled, phase 1 alone reaches DONE")

	result, err := d.DoFinalization()
	require.NoError(t, err)
	require.True(t, result.Callees[call].Contains(f))
	require.Len(t, result.Callees[call], 1)
}

// TestMLTASingleSlotEndToEnd covers spec §8 scenario 2 through the full driver, including the
// TyPM phase: module A stores &a_op, module B stores &b_op into the same struct slot; a call site
// in B loads through s->op. With no argument/return/global path linking A and B, TyPM should prune
// A out of the callee set after the first TyPM phase.
func TestMLTASingleSlotEndToEnd(t *testing.T) {
	t.Parallel()

	opSig := ir.Func([]*ir.Type{ir.Scalar("i32")}, nil)
	s := ir.Composite("S", []*ir.Type{ir.Pointer(opSig)})

	modA := &ir.Module{Name: "A"}
	aOp := &ir.Function{Name: "a_op", GUID: ir.NewGUID("a_op"), Module: modA, Sig: opSig, AddressTaken: true, Linkage: ir.External}
	allocA := &ir.Alloc{Typ: s}
	storeA := &ir.Store{Addr: &ir.FieldAddr{Base: allocA, Container: s, Index: 0, Typ: ir.Pointer(ir.Pointer(opSig))}, Value: aOp}
	initA := &ir.Function{Name: "initA", GUID: ir.NewGUID("initA"), Module: modA, Sig: ir.Func(nil, nil), Linkage: ir.External,
		Instrs: []ir.Instruction{allocA, storeA}}
	modA.Functions = []*ir.Function{aOp, initA}

	modB := &ir.Module{Name: "B"}
	bOp := &ir.Function{Name: "b_op", GUID: ir.NewGUID("b_op"), Module: modB, Sig: opSig, AddressTaken: true, Linkage: ir.External}
	allocB := &ir.Alloc{Typ: s}
	storeB := &ir.Store{Addr: &ir.FieldAddr{Base: allocB, Container: s, Index: 0, Typ: ir.Pointer(ir.Pointer(opSig))}, Value: bOp}
	allocCaller := &ir.Alloc{Typ: s}
	load := &ir.Load{Addr: &ir.FieldAddr{Base: allocCaller, Container: s, Index: 0, Typ: ir.Pointer(ir.Pointer(opSig))}, Typ: ir.Pointer(opSig)}
	call := &ir.Call{Target: load, Args: []ir.Value{&ir.Param{Typ: ir.Scalar("i32")}}}
	initB := &ir.Function{Name: "initB", GUID: ir.NewGUID("initB"), Module: modB, Sig: ir.Func(nil, nil), Linkage: ir.External,
		Instrs: []ir.Instruction{allocB, storeB, allocCaller, load, call}}
	modB.Functions = []*ir.Function{bOp, initB}

	d, err := New(typehash.FunctionMode, nil, nil, mlta.Multi, true, 5)
	require.NoError(t, err)

	prog := &ir.Program{Modules: []*ir.Module{modA, modB}}
	require.NoError(t, d.DoInitialization(prog))

	done, err := d.DoModulePass(prog) // phase 1: MLTA
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, Phase1MLTA.String(), "PHASE1_MLTA")
	require.Len(t, d.sites, 1)
	require.Len(t, d.sites[0].typm.Callees, 2, "phase 1 sees both a_op and b_op")

	for !done {
		done, err = d.DoModulePass(prog)
		require.NoError(t, err)
	}

	result, err := d.DoFinalization()
	require.NoError(t, err)
	require.True(t, result.Callees[call].Contains(bOp), "b_op's own module can always supply it")
	require.False(t, result.Callees[call].Contains(aOp), "A and B share no argument/return/global path")
	require.LessOrEqual(t, len(d.reductions), 5)
}

// TestArgumentFlowPointerEndToEnd is the same layout as TestMLTASingleSlotEndToEnd - A and B each
// store their own op into an S slot, B's call site resolves to {a_op, b_op} after MLTA - except B
// also makes a direct call into registerA, a function defined in A that takes a function-pointer
// argument (a *opSig value). That pointer-typed argument flow is the only thing connecting A and B;
// it must keep A a dependent module for B's call site, the inverse of TestMLTASingleSlotEndToEnd's
// own assertion. A regression for the bug where relevantType's pointee-unwrap was used only to
// decide whether to add a propagation edge, while the edge actually recorded still keyed on the raw
// pointer type, so DependentModules (keyed on the bare type callSignature/ElevateType compute) could
// never find it.
func TestArgumentFlowPointerEndToEnd(t *testing.T) {
	t.Parallel()

	opSig := ir.Func([]*ir.Type{ir.Scalar("i32")}, nil)
	s := ir.Composite("S", []*ir.Type{ir.Pointer(opSig)})

	modA := &ir.Module{Name: "A"}
	aOp := &ir.Function{Name: "a_op", GUID: ir.NewGUID("a_op"), Module: modA, Sig: opSig, AddressTaken: true, Linkage: ir.External}
	registerA := &ir.Function{
		Name: "registerA", GUID: ir.NewGUID("registerA"), Module: modA, Sig: ir.Func([]*ir.Type{ir.Pointer(opSig)}, nil),
		Params: []*ir.Param{{Index: 0, Typ: ir.Pointer(opSig)}}, Linkage: ir.External,
	}
	allocA := &ir.Alloc{Typ: s}
	storeA := &ir.Store{Addr: &ir.FieldAddr{Base: allocA, Container: s, Index: 0, Typ: ir.Pointer(ir.Pointer(opSig))}, Value: aOp}
	initA := &ir.Function{Name: "initA", GUID: ir.NewGUID("initA"), Module: modA, Sig: ir.Func(nil, nil), Linkage: ir.External,
		Instrs: []ir.Instruction{allocA, storeA}}
	modA.Functions = []*ir.Function{aOp, registerA, initA}

	modB := &ir.Module{Name: "B"}
	bOp := &ir.Function{Name: "b_op", GUID: ir.NewGUID("b_op"), Module: modB, Sig: opSig, AddressTaken: true, Linkage: ir.External}
	allocB := &ir.Alloc{Typ: s}
	storeB := &ir.Store{Addr: &ir.FieldAddr{Base: allocB, Container: s, Index: 0, Typ: ir.Pointer(ir.Pointer(opSig))}, Value: bOp}
	allocCaller := &ir.Alloc{Typ: s}
	load := &ir.Load{Addr: &ir.FieldAddr{Base: allocCaller, Container: s, Index: 0, Typ: ir.Pointer(ir.Pointer(opSig))}, Typ: ir.Pointer(opSig)}
	call := &ir.Call{Target: load, Args: []ir.Value{&ir.Param{Typ: ir.Scalar("i32")}}}
	registerCall := &ir.Call{Callee: registerA, Args: []ir.Value{&ir.Param{Typ: ir.Pointer(opSig)}}}
	initB := &ir.Function{Name: "initB", GUID: ir.NewGUID("initB"), Module: modB, Sig: ir.Func(nil, nil), Linkage: ir.External,
		Instrs: []ir.Instruction{allocB, storeB, allocCaller, load, call, registerCall}}
	modB.Functions = []*ir.Function{bOp, initB}

	d, err := New(typehash.FunctionMode, nil, nil, mlta.Multi, true, 5)
	require.NoError(t, err)

	prog := &ir.Program{Modules: []*ir.Module{modA, modB}}
	require.NoError(t, d.DoInitialization(prog))

	done, err := d.DoModulePass(prog) // phase 1: MLTA
	require.NoError(t, err)
	require.False(t, done)
	require.Len(t, d.sites[0].typm.Callees, 2, "phase 1 sees both a_op and b_op")

	for !done {
		done, err = d.DoModulePass(prog)
		require.NoError(t, err)
	}

	result, err := d.DoFinalization()
	require.NoError(t, err)
	require.True(t, result.Callees[call].Contains(bOp), "b_op's own module can always supply it")
	require.True(t, result.Callees[call].Contains(aOp),
		"A's function-pointer argument flow into registerA must keep A a dependent module for B's call site")
}

// TestFixpointBoundedByMaxPhaseCG covers spec §8 scenario 6: configured for 5 phases, the driver
// must reach DONE within at most 5 DoModulePass calls (the MLTA phase included) and then finalize
// without error.
func TestFixpointBoundedByMaxPhaseCG(t *testing.T) {
	t.Parallel()

	sig := ir.Func(nil, nil)
	modA := &ir.Module{Name: "A"}
	modB := &ir.Module{Name: "B"}

	f := &ir.Function{Name: "f", GUID: ir.NewGUID("f"), Module: modA, Sig: sig, AddressTaken: true, Linkage: ir.External}
	modA.Functions = []*ir.Function{f}

	call := &ir.Call{Target: &ir.Param{Typ: ir.Pointer(sig)}}
	user := &ir.Function{Name: "user", GUID: ir.NewGUID("user"), Module: modB, Sig: ir.Func(nil, nil), Linkage: ir.External,
		Instrs: []ir.Instruction{call}}
	modB.Functions = []*ir.Function{user}

	d, err := New(typehash.FunctionMode, nil, nil, mlta.OneLayer, true, 5)
	require.NoError(t, err)

	prog := &ir.Program{Modules: []*ir.Module{modA, modB}}
	require.NoError(t, d.DoInitialization(prog))

	done := false
	phases := 0
	for !done {
		done, err = d.DoModulePass(prog)
		require.NoError(t, err)
		phases++
		require.LessOrEqual(t, phases, 5)
	}
	require.Equal(t, Done, d.Phase())

	result, err := d.DoFinalization()
	require.NoError(t, err)
	_ = result
}

// TestDeclarationNeverInCalleeSetAfterPhaseBoundary covers spec §8 invariant 2: a declaration
// whose definition is known elsewhere is rewritten, never left as a declaration entry.
func TestDeclarationNeverInCalleeSetAfterPhaseBoundary(t *testing.T) {
	t.Parallel()

	sig := ir.Func(nil, nil)
	declModule := &ir.Module{Name: "A"}
	defModule := &ir.Module{Name: "B"}

	decl := &ir.Function{Name: "f", GUID: ir.NewGUID("f"), Module: declModule, Sig: sig, IsDeclaration: true}
	call := &ir.Call{Callee: decl}
	caller := &ir.Function{Name: "caller", GUID: ir.NewGUID("caller"), Module: declModule, Sig: ir.Func(nil, nil), Linkage: ir.External,
		Instrs: []ir.Instruction{call}}
	declModule.Functions = []*ir.Function{decl, caller}

	def := &ir.Function{Name: "f", GUID: ir.NewGUID("f"), Module: defModule, Sig: sig, AddressTaken: true, Linkage: ir.External}
	defModule.Functions = []*ir.Function{def}

	d, err := New(typehash.FunctionMode, nil, nil, mlta.Multi, false, 1)
	require.NoError(t, err)

	prog := &ir.Program{Modules: []*ir.Module{declModule, defModule}}
	require.NoError(t, d.DoInitialization(prog))
	_, err = d.DoModulePass(prog)
	require.NoError(t, err)

	result, err := d.DoFinalization()
	require.NoError(t, err)
	got := result.Callees[call]
	require.Len(t, got, 1)
	require.Same(t, def, got[decl.GUID], "the declaration's GUID must resolve to its definition, not the declaration itself")
}
