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

// Value is anything that can be used as an operand: an instruction result, a function parameter,
// a global variable, or a function taken by address (a function literal used as a value).
type Value interface {
	// ValueType is the static type of the value.
	ValueType() *Type
}

// Instruction is implemented by every instruction kind the core cares about (spec §6: "call,
// load, store, field-address, pointer cast, allocation, return"), plus InlineAsm, which is
// recorded but contributes no constraint (§4.3, §7).
type Instruction interface {
	// Func is the enclosing function.
	Func() *Function
}

type base struct {
	fn *Function
}

// Func implements Instruction.
func (b *base) Func() *Function { return b.fn }

// NewCall constructs a direct call (callee non-nil, target nil) or indirect call (callee nil,
// target the value producing the function pointer) belonging to fn. Front ends such as ssair use
// this rather than a struct literal since base's fn field is unexported.
func NewCall(fn *Function, callee *Function, target Value, args []Value, typ *Type) *Call {
	return &Call{base: base{fn: fn}, Callee: callee, Target: target, Args: args, Typ: typ}
}

// NewLoad constructs a load of typ from addr, belonging to fn.
func NewLoad(fn *Function, addr Value, typ *Type) *Load {
	return &Load{base: base{fn: fn}, Addr: addr, Typ: typ}
}

// NewStore constructs a store of value into addr, belonging to fn.
func NewStore(fn *Function, addr, value Value) *Store {
	return &Store{base: base{fn: fn}, Addr: addr, Value: value}
}

// NewFieldAddr constructs a field-address instruction belonging to fn.
func NewFieldAddr(fn *Function, base_ Value, container *Type, index int, typ *Type) *FieldAddr {
	return &FieldAddr{base: base{fn: fn}, Base: base_, Container: container, Index: index, Typ: typ}
}

// NewCast constructs a pointer-cast instruction belonging to fn.
func NewCast(fn *Function, operand Value, typ *Type) *Cast {
	return &Cast{base: base{fn: fn}, Operand: operand, Typ: typ}
}

// NewAlloc constructs an allocation instruction belonging to fn.
func NewAlloc(fn *Function, typ *Type) *Alloc {
	return &Alloc{base: base{fn: fn}, Typ: typ}
}

// NewReturn constructs a return instruction belonging to fn.
func NewReturn(fn *Function, value Value) *Return {
	return &Return{base: base{fn: fn}, Value: value}
}

// NewInlineAsm constructs an opaque inline-assembly instruction belonging to fn.
func NewInlineAsm(fn *Function, text string) *InlineAsm {
	return &InlineAsm{base: base{fn: fn}, Text: text}
}

// Param is a formal parameter of a function, usable as a Value.
type Param struct {
	Fn    *Function
	Index int
	Typ   *Type
}

// ValueType implements Value.
func (p *Param) ValueType() *Type { return p.Typ }

// Call is either a direct call (Callee set, Target nil) or an indirect call (Callee nil, Target
// is the Value producing the function pointer). Args are the actual argument values; Typ is
// the return type (nil for void calls). Call is itself a Value (its result).
type Call struct {
	base
	Callee *Function // non-nil for direct calls
	Target Value     // non-nil for indirect calls
	Args   []Value
	Typ    *Type // return type, nil if void
}

// ValueType implements Value.
func (c *Call) ValueType() *Type { return c.Typ }

// Indirect reports whether this call targets a Value rather than a statically known symbol.
func (c *Call) Indirect() bool { return c.Callee == nil }

// Load reads a value of type Typ from Addr.
type Load struct {
	base
	Addr Value
	Typ  *Type
}

// ValueType implements Value.
func (l *Load) ValueType() *Type { return l.Typ }

// Store writes Value into Addr.
type Store struct {
	base
	Addr  Value
	Value Value
}

// FieldAddr computes the address of field Index within the composite value addressed by Base
// (the "gep-like" field-address operator of spec §4.1/§4.2). Container is the composite type
// being indexed into; Typ is the resulting pointer-to-field type.
type FieldAddr struct {
	base
	Base      Value
	Container *Type
	Index     int
	Typ       *Type
}

// ValueType implements Value.
func (f *FieldAddr) ValueType() *Type { return f.Typ }

// Cast reinterprets Operand's pointer type as Typ (a pointer-to-pointer bitcast in LLVM terms).
type Cast struct {
	base
	Operand Value
	Typ     *Type
}

// ValueType implements Value.
func (c *Cast) ValueType() *Type { return c.Typ }

// Alloc is a local allocation (stack or heap) of a value of type Typ, producing a pointer to it.
type Alloc struct {
	base
	Typ *Type // the allocated (pointee) type; ValueType is Pointer(Typ)
}

// ValueType implements Value.
func (a *Alloc) ValueType() *Type { return Pointer(a.Typ) }

// Return returns an optional value from the enclosing function.
type Return struct {
	base
	Value Value // nil for void returns
}

// InlineAsm is recorded but opaque: it contributes no constraint, and any call target hidden
// inside it is unresolved (spec §4.3, §7).
type InlineAsm struct {
	base
	Text string
}
