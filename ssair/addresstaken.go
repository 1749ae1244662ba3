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

import "golang.org/x/tools/go/ssa"

// ComputeAddressTaken sweeps every instruction operand of every function in all (the
// whole-program function set, typically ssautil.AllFunctions(prog)) and reports which functions
// ever appear as something other than the statically-resolved callee of a direct call: that's
// Function.AddressTaken's definition (spec's "address taken" predicate gates which declarations'
// addresses MLTA must consider reachable as indirect-call candidates in the first place).
//
// A *ssa.Function operand appears in a non-invoke ssa.CallInstruction's Common().Value position
// when the call is itself indirect (the callee is some other function's address flowing through a
// variable) - that occurrence doesn't mean fn's own address was taken. Every other occurrence (an
// argument, a stored value, a field of a composite literal, a MakeClosure's Fn) means fn's address
// was captured as data.
func ComputeAddressTaken(all map[*ssa.Function]bool) map[*ssa.Function]bool {
	taken := make(map[*ssa.Function]bool)
	for fn := range all {
		for _, block := range fn.Blocks {
			for _, instr := range block.Instrs {
				directCalleeValue := directCalleeOperand(instr)
				for _, op := range instr.Operands(nil) {
					if op == nil || *op == nil {
						continue
					}
					callee, ok := (*op).(*ssa.Function)
					if !ok || callee == directCalleeValue {
						continue
					}
					taken[callee] = true
				}
			}
		}
	}
	return taken
}

// directCalleeOperand returns the ssa.Value the instruction calls directly, if instr is a
// non-invoke call/go/defer - the one operand position a *ssa.Function may occupy without having
// its address taken.
func directCalleeOperand(instr ssa.Instruction) ssa.Value {
	call, ok := instr.(ssa.CallInstruction)
	if !ok {
		return nil
	}
	common := call.Common()
	if common.IsInvoke() {
		return nil
	}
	return common.Value
}
