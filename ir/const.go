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

// ConstComposite is a constant composite (struct) value, most commonly a global variable's
// initializer. Fields holds one entry per field of Typ; a nil entry means that field is left at
// its zero value. A Function value stored directly into a field represents "module M stores &f
// into this slot at initialization" (spec §4.2 "literal function stores").
type ConstComposite struct {
	Typ    *Type
	Fields []Value
}

// ValueType implements Value.
func (c *ConstComposite) ValueType() *Type { return c.Typ }

// ConstNull is the null/zero constant of some type (e.g. a nil function pointer initializer).
type ConstNull struct{ Typ *Type }

// ValueType implements Value.
func (c *ConstNull) ValueType() *Type { return c.Typ }
