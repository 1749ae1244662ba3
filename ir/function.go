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

// MemoryEffect summarizes how a function touches memory through its pointer arguments, gating
// the direction of argument-flow edges in package typm (spec §4.4 bullet 1).
type MemoryEffect uint8

const (
	// Unconstrained means no summary is available; both directions are assumed.
	Unconstrained MemoryEffect = iota
	// ReadsOnly functions only read through their pointer parameters.
	ReadsOnly
	// WritesOnly functions only write through their pointer parameters.
	WritesOnly
	// NoMemoryAccess functions never dereference their pointer parameters.
	NoMemoryAccess
)

// Linkage describes whether a function's definition is visible outside its module.
type Linkage uint8

const (
	// External linkage: the function can be referenced, and its definition found, from any module.
	External Linkage = iota
	// Internal linkage: the function is private to its defining module.
	Internal
)

// Function is a named, uniquely-identified function, either a Definition (has an Instrs
// instruction stream) or a Declaration (body defined elsewhere, referenced only by GUID).
type Function struct {
	Name    string
	GUID    GUID
	Module  *Module
	Sig     *Type // KindFunc
	Params  []*Param
	Return  *Type // nil if void

	IsDeclaration bool
	AddressTaken  bool
	Linkage       Linkage
	Intrinsic     bool
	Effect        MemoryEffect

	// Instrs is the flattened instruction stream for a definition (empty for a declaration).
	Instrs []Instruction
}

// ValueType implements Value: a function used as a value is a pointer to its own signature (a
// function-pointer literal, e.g. "&f" stored into a struct field).
func (f *Function) ValueType() *Type { return Pointer(f.Sig) }
