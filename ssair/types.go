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

// Package ssair adapts Go's own SSA form (golang.org/x/tools/go/ssa) into the front-end-agnostic
// package ir model, so that typehash, progindex, mlta, typm and driver can run over real Go
// programs. It is the one package in this repository that knows go/types and go/ssa exist.
package ssair

import (
	"go/types"

	"go.mlta.dev/callgraph/ir"
	"golang.org/x/tools/go/types/typeutil"
)

// typeConverter turns go/types.Type values into their ir.Type shape, memoized by structural
// identity via typeutil.Map - the same identity-correct, go/types-aware map golang.org/x/tools'
// own pointer analysis uses for caches keyed on types.Type (see
// golang.org/x/tools/go/pointer's use of typeutil.Map). A placeholder Type is installed in the
// cache before recursing into a composite's fields or a pointer's element, so self-referential
// types (a linked-list node pointing at itself) convert without looping forever: the recursive
// reference resolves to the same *ir.Type pointer that the outer call is still filling in.
type typeConverter struct {
	cache typeutil.Map // go/types.Type -> *ir.Type
}

func newTypeConverter() *typeConverter {
	tc := &typeConverter{}
	tc.cache.SetHasher(typeutil.MakeHasher())
	return tc
}

func (tc *typeConverter) convert(t types.Type) *ir.Type {
	if t == nil {
		return nil
	}
	if v := tc.cache.At(t); v != nil {
		return v.(*ir.Type)
	}

	switch u := t.Underlying().(type) {
	case *types.Pointer:
		result := &ir.Type{Kind: ir.KindPointer}
		tc.cache.Set(t, result)
		result.Elem = tc.convert(u.Elem())
		return result

	case *types.Signature:
		result := &ir.Type{Kind: ir.KindFunc}
		tc.cache.Set(t, result)
		result.Params = tc.convertTuple(u.Params())
		result.Ret = tc.convertResults(u.Results())
		return result

	case *types.Struct:
		name := structName(t)
		result := &ir.Type{Kind: ir.KindComposite, Name: name}
		tc.cache.Set(t, result)
		result.Fields = tc.convertTuple(structFields(u))
		return result

	case *types.Array:
		result := &ir.Type{Kind: ir.KindArray}
		tc.cache.Set(t, result)
		result.Elem = tc.convert(u.Elem())
		return result

	case *types.Slice:
		// A slice is modeled the same as a fixed array of its element type: both are containers
		// that propagate a function value stored into any of their elements uniformly, and the
		// core's type model (package ir) has no separate "variable-length" container kind.
		result := &ir.Type{Kind: ir.KindArray}
		tc.cache.Set(t, result)
		result.Elem = tc.convert(u.Elem())
		return result

	case *types.Tuple:
		// A multi-value ssa.Call's result type is itself a *types.Tuple (not wrapped in any
		// named type); represent it the same way convertResults represents a multi-result
		// signature: an unnamed composite tuple, field i reached by ssa.Extract index i.
		result := &ir.Type{Kind: ir.KindComposite, Fields: tc.convertTuple(u)}
		tc.cache.Set(t, result)
		return result

	case *types.Interface:
		// An interface value's dynamic type isn't tracked by the core's structural type model
		// (no sum/variant kind), so it is normalized to the canonical opaque pointer - the same
		// representative typehash.NormalizeOpaquePointer collapses unsafe.Pointer and void* to.
		result := ir.BytePointer
		tc.cache.Set(t, result)
		return result

	default:
		// *types.Basic, *types.Map, *types.Chan, *types.TypeParam: none of these carry a field or
		// element structure the core's propagation needs to see through, so each converts to an
		// opaque scalar named after its own string form.
		result := ir.Scalar(t.String())
		tc.cache.Set(t, result)
		return result
	}
}

func (tc *typeConverter) convertTuple(tuple *types.Tuple) []*ir.Type {
	if tuple == nil {
		return nil
	}
	out := make([]*ir.Type, tuple.Len())
	for i := 0; i < tuple.Len(); i++ {
		out[i] = tc.convert(tuple.At(i).Type())
	}
	return out
}

// convertResults represents a Go function's result list as the ir.Type model's single Ret slot:
// void as nil, a single result as that result's own type, and multiple results as an unnamed
// composite tuple (ir has no native multi-value kind, so a synthetic struct of the result types
// stands in for one - field i of the tuple is ssa.Extract index i of the call's result).
func (tc *typeConverter) convertResults(results *types.Tuple) *ir.Type {
	switch {
	case results == nil || results.Len() == 0:
		return nil
	case results.Len() == 1:
		return tc.convert(results.At(0).Type())
	default:
		return &ir.Type{Kind: ir.KindComposite, Fields: tc.convertTuple(results)}
	}
}

func structName(t types.Type) string {
	named, ok := t.(*types.Named)
	if !ok {
		return ""
	}
	return named.Obj().Name()
}

// structFields re-expresses a *types.Struct as a *types.Tuple so convertTuple can walk it the same
// way it walks a signature's parameters or results.
func structFields(s *types.Struct) *types.Tuple {
	vars := make([]*types.Var, s.NumFields())
	for i := range vars {
		vars[i] = s.Field(i)
	}
	return types.NewTuple(vars...)
}
