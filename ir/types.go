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

package ir

// Kind classifies the structural shape of a Type.
type Kind uint8

const (
	// KindScalar is any type with no internal structure relevant to propagation (integers,
	// floats, opaque handles).
	KindScalar Kind = iota
	// KindPointer is a pointer to an Elem type.
	KindPointer
	// KindFunc is a function type: a parameter list plus a return type.
	KindFunc
	// KindComposite is an ordered list of named or unnamed fields, i.e. a struct.
	KindComposite
	// KindArray is a fixed-shape repetition of an Elem type.
	KindArray
)

// Type is a structural constructor tree mirroring the type systems of typical compiled IRs
// (LLVM's included): scalar, pointer-to, function (parameters + return), composite (ordered field
// types, optionally named), and array (element type, inheriting its container-ness from Elem).
//
// Two Types built independently (even from different Modules) with identical structure are
// considered the same type for propagation purposes: see package typehash.
type Type struct {
	Kind Kind

	// Name is non-empty for a KindComposite representing a named struct (e.g. "struct.kernfs_node").
	// It plays no role in structural hashing, only in the target-type policy (typehash.IsTarget in
	// Struct mode matches on Name).
	Name string

	// Elem is the pointee type (KindPointer) or the element type (KindArray).
	Elem *Type

	// Params and Ret describe a KindFunc type.
	Params []*Type
	Ret    *Type

	// Fields is the ordered field-type list of a KindComposite type.
	Fields []*Type
}

// Scalar returns a new scalar type. name is cosmetic only (e.g. "i32", "i8*" is not a scalar -
// use Pointer).
func Scalar(name string) *Type { return &Type{Kind: KindScalar, Name: name} }

// Pointer returns a pointer-to-elem type.
func Pointer(elem *Type) *Type { return &Type{Kind: KindPointer, Elem: elem} }

// Func returns a function type with the given parameter and return types.
func Func(params []*Type, ret *Type) *Type {
	return &Type{Kind: KindFunc, Params: params, Ret: ret}
}

// Composite returns a named or unnamed struct type with the given ordered field types.
func Composite(name string, fields []*Type) *Type {
	return &Type{Kind: KindComposite, Name: name, Fields: fields}
}

// Array returns a fixed-shape array of elem.
func Array(elem *Type) *Type { return &Type{Kind: KindArray, Elem: elem} }

// BytePointer is the canonical opaque byte-pointer type ("i8*" in LLVM terms) that
// typehash.NormalizeOpaquePointer widens unrecognized pointer-element types to.
var BytePointer = Pointer(Scalar("i8"))
