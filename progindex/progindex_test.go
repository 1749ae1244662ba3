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

package progindex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mlta.dev/callgraph/ir"
	"go.mlta.dev/callgraph/typehash"
)

func opSlot() *ir.Type {
	return ir.Composite("S", []*ir.Type{ir.Pointer(ir.Func([]*ir.Type{ir.Scalar("i32")}, nil))})
}

func TestScan_AddressTakenAndStoredFuncs(t *testing.T) {
	t.Parallel()

	m := &ir.Module{Name: "A"}
	s := opSlot()
	opSig := ir.Func([]*ir.Type{ir.Scalar("i32")}, nil)

	aOp := &ir.Function{Name: "a_op", GUID: ir.NewGUID("a_op"), Module: m, Sig: opSig, AddressTaken: true, Linkage: ir.External}

	allocInstr := &ir.Alloc{Typ: s}
	storeInstr := &ir.Store{
		Addr:  &ir.FieldAddr{Base: allocInstr, Container: s, Index: 0, Typ: ir.Pointer(ir.Pointer(opSig))},
		Value: aOp,
	}
	initFn := &ir.Function{
		Name: "init", GUID: ir.NewGUID("init"), Module: m, Sig: ir.Func(nil, nil), Linkage: ir.External,
		Instrs: []ir.Instruction{allocInstr, storeInstr},
	}

	m.Functions = []*ir.Function{aOp, initFn}

	idx := New()
	Scan(m, idx, typehash.FunctionMode, nil)
	idx.Finalize()

	require.Contains(t, idx.AddressTaken, aOp.GUID)
	sigHash := typehash.Hash(opSig)
	require.True(t, idx.SigFuncs[sigHash].Contains(aOp))

	containerHash := typehash.Hash(s)
	require.True(t, idx.StoredFuncs[containerHash][0].Contains(aOp))
	require.True(t, idx.IsStored(m, containerHash, 0))
	require.False(t, idx.IsStored(m, containerHash, 1))
}

func TestFinalize_RewritesDeclarationToDefinition(t *testing.T) {
	t.Parallel()

	declModule := &ir.Module{Name: "A"}
	defModule := &ir.Module{Name: "B"}

	sig := ir.Func(nil, nil)
	decl := &ir.Function{Name: "f", GUID: ir.NewGUID("f"), Module: declModule, Sig: sig, AddressTaken: true, IsDeclaration: true}
	def := &ir.Function{Name: "f", GUID: ir.NewGUID("f"), Module: defModule, Sig: sig, AddressTaken: true, Linkage: ir.External}

	declModule.Functions = []*ir.Function{decl}
	defModule.Functions = []*ir.Function{def}

	idx := New()
	Scan(declModule, idx, typehash.FunctionMode, nil)
	Scan(defModule, idx, typehash.FunctionMode, nil)
	idx.Finalize()

	sigHash := typehash.Hash(sig)
	got := idx.SigFuncs[sigHash][decl.GUID]
	require.Same(t, def, got, "expected declaration entry rewritten to the definition")
}

func TestGlobalSummary_CollectsFieldFuncs(t *testing.T) {
	t.Parallel()

	m := &ir.Module{Name: "A"}
	s := opSlot()
	sig := ir.Func([]*ir.Type{ir.Scalar("i32")}, nil)
	fn := &ir.Function{Name: "f", GUID: ir.NewGUID("f"), Module: m, Sig: sig, AddressTaken: true, Linkage: ir.External}

	g := &ir.Global{
		Name: "G", GUID: ir.NewGUID("G"), Module: m, Typ: s,
		Initializer: &ir.ConstComposite{Typ: s, Fields: []ir.Value{fn}},
	}
	m.Globals = []*ir.Global{g}
	m.Functions = []*ir.Function{fn}

	idx := New()
	Scan(m, idx, typehash.FunctionMode, nil)
	idx.Finalize()

	summary, ok := idx.Globals[g]
	require.True(t, ok)
	containerHash := typehash.Hash(s)
	require.True(t, summary.FieldFuncs[containerHash][0].Contains(fn))
	require.Contains(t, summary.TargetTypes, typehash.Hash(sig))
}

func TestSaveLoadIndex_RoundTrip(t *testing.T) {
	t.Parallel()

	m := &ir.Module{Name: "A"}
	sig := ir.Func(nil, nil)
	fn := &ir.Function{Name: "f", GUID: ir.NewGUID("f"), Module: m, Sig: sig, AddressTaken: true, Linkage: ir.External}
	m.Functions = []*ir.Function{fn}

	idx := New()
	Scan(m, idx, typehash.FunctionMode, nil)
	idx.Finalize()

	var buf bytes.Buffer
	require.NoError(t, SaveIndex(&buf, idx))

	loaded, err := LoadIndex(&buf)
	require.NoError(t, err)
	require.Contains(t, loaded.AddressTaken, fn.GUID)
	require.Equal(t, fn.Name, loaded.AddressTaken[fn.GUID].Name)
}
