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

// CallSite identifies an indirect or direct call instruction. A *Call is already a unique,
// comparable identity (one Go pointer per call instruction), so it doubles as its own site key.
type CallSite = *Call

// CalleeSet is the set of functions a call site may invoke, keyed by GUID so that two
// declarations of the same function collapse to one entry once rewritten to their definition
// (spec §3 "Callee set" invariant: contains only definitions after a phase boundary).
type CalleeSet map[GUID]*Function

// NewCalleeSet returns an empty callee set.
func NewCalleeSet() CalleeSet { return make(CalleeSet) }

// Add inserts fn into the set.
func (s CalleeSet) Add(fn *Function) { s[fn.GUID] = fn }

// Contains reports whether fn (by GUID) is a member.
func (s CalleeSet) Contains(fn *Function) bool {
	_, ok := s[fn.GUID]
	return ok
}

// Clone returns a shallow copy of the set.
func (s CalleeSet) Clone() CalleeSet {
	out := make(CalleeSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Intersect returns the intersection of s and other.
func (s CalleeSet) Intersect(other CalleeSet) CalleeSet {
	out := make(CalleeSet)
	for k, v := range s {
		if _, ok := other[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Unresolved is the empty callee set returned for opaque constructs (inline assembly, unresolved
// casts) per spec §4.3/§7: such sites are recorded with no callees, neither removed nor reported
// as failed.
func Unresolved() CalleeSet { return make(CalleeSet) }
