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

// Global is a named global variable, optionally holding a constant Initializer tree.
type Global struct {
	Name        string
	GUID        GUID
	Module      *Module
	Typ         *Type
	Initializer Value // nil if uninitialized (e.g. a declaration of an external global)
}

// ValueType implements Value.
func (g *Global) ValueType() *Type { return Pointer(g.Typ) }

// Module is one compilation unit: an ordered set of globals and functions, matching spec §6's
// "module exposes: data layout, global variable list, function list". DataLayout is a cosmetic
// placeholder (the core never interprets it).
type Module struct {
	Name       string
	DataLayout string
	Globals    []*Global
	Functions  []*Function
}

// Program is the finite ordered set of modules the driver iterates (spec §6).
type Program struct {
	Modules []*Module
}
