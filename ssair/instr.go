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
	"go/token"
	"go/types"

	"go.mlta.dev/callgraph/ir"
	"golang.org/x/tools/go/ssa"
)

// funcConverter holds the per-function state needed to walk one *ssa.Function's instruction
// stream: a cache from ssa.Value to the already-converted ir.Value that represents it (an
// instruction that produces a result is both an ir.Instruction and the ir.Value later
// instructions reference as an operand).
type funcConverter struct {
	b      *Builder
	fn     *ssa.Function
	irFn   *ir.Function
	values map[ssa.Value]ir.Value
}

// convertInstr appends zero or one ir.Instruction to c.irFn.Instrs for instr. Control-flow-only
// and arithmetic/aggregate instructions (*ssa.Jump, *ssa.If, *ssa.BinOp, *ssa.Phi, *ssa.Extract,
// *ssa.Slice, *ssa.MakeMap, and friends) carry no call/load/store/field-address/cast/allocation/
// return meaning and are intentionally skipped: if later referenced as a value, valueOf resolves
// them to an opaque constant of their static type (see valueOf's default case).
func (c *funcConverter) convertInstr(instr ssa.Instruction) {
	switch n := instr.(type) {
	case *ssa.Call:
		c.convertCall(n.Common(), n, n.Pos())
	case *ssa.Go:
		c.convertCall(n.Common(), nil, n.Pos())
	case *ssa.Defer:
		c.convertCall(n.Common(), nil, n.Pos())

	case *ssa.UnOp:
		if n.Op != token.MUL {
			return
		}
		load := ir.NewLoad(c.irFn, c.valueOf(n.X), c.b.types.convert(n.Type()))
		c.irFn.Instrs = append(c.irFn.Instrs, load)
		c.values[n] = load

	case *ssa.Store:
		store := ir.NewStore(c.irFn, c.valueOf(n.Addr), c.valueOf(n.Val))
		c.irFn.Instrs = append(c.irFn.Instrs, store)

	case *ssa.FieldAddr:
		container := c.b.types.convert(derefElem(n.X.Type()))
		fa := ir.NewFieldAddr(c.irFn, c.valueOf(n.X), container, n.Field, c.b.types.convert(n.Type()))
		c.irFn.Instrs = append(c.irFn.Instrs, fa)
		c.values[n] = fa

	case *ssa.IndexAddr:
		// Every element of an array or slice shares one type, so the field-address operator's
		// Index is always 0 here: the precision that distinguishes struct field N from field M
		// doesn't apply to a homogeneous container (typehash.IsContainer already treats an array
		// purely via its Elem, with no per-index field list).
		container := c.b.types.convert(derefElem(n.X.Type()))
		fa := ir.NewFieldAddr(c.irFn, c.valueOf(n.X), container, 0, c.b.types.convert(n.Type()))
		c.irFn.Instrs = append(c.irFn.Instrs, fa)
		c.values[n] = fa

	case *ssa.Alloc:
		alloc := ir.NewAlloc(c.irFn, c.b.types.convert(derefElem(n.Type())))
		c.irFn.Instrs = append(c.irFn.Instrs, alloc)
		c.values[n] = alloc

	case *ssa.ChangeType:
		c.convertCast(n, n.X)
	case *ssa.Convert:
		c.convertCast(n, n.X)
	case *ssa.ChangeInterface:
		c.convertCast(n, n.X)
	case *ssa.MakeInterface:
		// Boxing a concrete value into an interface is, for propagation purposes, the same
		// pointer reinterpreted under a wider (opaque) type - the boxed value still flows.
		c.convertCast(n, n.X)

	case *ssa.Return:
		ret := ir.NewReturn(c.irFn, c.returnValue(n.Results))
		c.irFn.Instrs = append(c.irFn.Instrs, ret)
	}
}

func (c *funcConverter) convertCast(v ssa.Value, operand ssa.Value) {
	cast := ir.NewCast(c.irFn, c.valueOf(operand), c.b.types.convert(v.Type()))
	c.irFn.Instrs = append(c.irFn.Instrs, cast)
	c.values[v] = cast
}

// returnValue represents a function's return statement as 0, 1 or many values: a multi-value
// return has no single ir.Value of its own in SSA (callers instead see a *types.Tuple result
// type and extract fields from it), so it's wrapped in a ConstComposite tuple matching
// convertResults' representation of a multi-result signature.
func (c *funcConverter) returnValue(results []ssa.Value) ir.Value {
	switch len(results) {
	case 0:
		return nil
	case 1:
		return c.valueOf(results[0])
	default:
		fields := make([]ir.Value, len(results))
		for i, r := range results {
			fields[i] = c.valueOf(r)
		}
		return &ir.ConstComposite{Typ: c.irFn.Return, Fields: fields}
	}
}

// convertCall handles *ssa.Call, *ssa.Go and *ssa.Defer uniformly: all three carry one
// ssa.CallCommon describing a static or dynamic callee plus argument list. Synchronous vs.
// deferred vs. goroutine dispatch doesn't change which functions a call site may reach, only
// when the call happens - a distinction this repository's callee-set model doesn't represent.
// value is the ssa.Value view of the instruction (non-nil only for *ssa.Call, which is the only
// one of the three that produces a result).
func (c *funcConverter) convertCall(common *ssa.CallCommon, value ssa.Value, pos token.Pos) {
	args := make([]ir.Value, len(common.Args))
	for i, a := range common.Args {
		args[i] = c.valueOf(a)
	}

	var callee *ir.Function
	var target ir.Value
	switch {
	case common.IsInvoke():
		// Dynamic interface method dispatch: go/ssa doesn't materialize the resolved method as a
		// Value the way it does for a function-pointer field, so the callee is modeled as an
		// unresolved indirect call against an opaque pointer of the method's own signature -
		// conservatively unresolved rather than silently dropped (spec's escape-case philosophy
		// for constructs the front end can't see through precisely).
		target = &ir.ConstNull{Typ: ir.Pointer(c.b.types.convert(common.Signature()))}
	case common.StaticCallee() != nil:
		callee = c.b.funcFor(common.StaticCallee())
	default:
		target = c.valueOf(common.Value)
	}

	var resultType *ir.Type
	if value != nil {
		resultType = c.b.types.convert(value.Type())
	}

	call := ir.NewCall(c.irFn, callee, target, args, resultType)
	c.irFn.Instrs = append(c.irFn.Instrs, call)
	if value != nil {
		c.values[value] = call
	}
	c.b.callPos[call] = pos
	if loc := c.b.posString(pos); loc != "" {
		c.b.locs.CallSite[call] = loc
	}
}

// valueOf resolves v to its ir.Value. Instruction-produced values (Call, Load, FieldAddr, Alloc,
// Cast) are found in the per-function cache populated as each instruction converts. Parameters are
// likewise pre-populated into the cache by convertFunctionBody. Globals and Functions resolve
// through the Builder's whole-program registries. Everything else - constants, and any SSA value
// kind this front end doesn't model as an ir.Instruction (binary/comparison ops, phi nodes,
// extracts, slicing, map/channel construction) - is treated as an opaque value of its own static
// type: it carries no further structure, which is sound for MLTA/TyPM (a function pointer can only
// actually begin flowing through one of package ir's own constructs: a store, a field address, an
// allocation, or a call argument/result - not through a bare arithmetic or control-flow value).
func (c *funcConverter) valueOf(v ssa.Value) ir.Value {
	if v == nil {
		return nil
	}
	if cached, ok := c.values[v]; ok {
		return cached
	}
	switch n := v.(type) {
	case *ssa.Global:
		return c.b.globalFor(n)
	case *ssa.Function:
		return c.b.funcFor(n)
	case *ssa.MakeClosure:
		// A closure's identity, for call-graph purposes, is its underlying function; captured
		// free variables aren't modeled (package ir has no notion of a closure environment).
		return c.valueOf(n.Fn.(*ssa.Function))
	default:
		return &ir.ConstNull{Typ: c.b.types.convert(v.Type())}
	}
}

// derefElem strips one level of pointer indirection, as needed to recover the pointee type from
// an Alloc/FieldAddr/IndexAddr operand's static (pointer) type.
func derefElem(t types.Type) types.Type {
	if ptr, ok := t.Underlying().(*types.Pointer); ok {
		return ptr.Elem()
	}
	return t
}
