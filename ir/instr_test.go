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

import "testing"

func TestInstructionConstructors_SetFunc(t *testing.T) {
	t.Parallel()

	fn := &Function{Name: "f", GUID: NewGUID("f")}
	i32 := Scalar("int32")

	instrs := []Instruction{
		NewCall(fn, fn, nil, nil, i32),
		NewLoad(fn, nil, i32),
		NewStore(fn, nil, nil),
		NewFieldAddr(fn, nil, i32, 0, Pointer(i32)),
		NewCast(fn, nil, Pointer(i32)),
		NewAlloc(fn, i32),
		NewReturn(fn, nil),
		NewInlineAsm(fn, "nop"),
	}

	for _, instr := range instrs {
		if instr.Func() != fn {
			t.Fatalf("%T.Func() = %v, want %v", instr, instr.Func(), fn)
		}
	}
}

func TestNewCall_IndirectWhenCalleeNil(t *testing.T) {
	t.Parallel()

	fn := &Function{Name: "f", GUID: NewGUID("f")}
	target := &Param{Typ: Pointer(Func(nil, nil))}
	call := NewCall(fn, nil, target, nil, nil)
	if !call.Indirect() {
		t.Fatal("expected indirect call when callee is nil")
	}
	if call.Func() != fn {
		t.Fatalf("Func() = %v, want %v", call.Func(), fn)
	}
}
