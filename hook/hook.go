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

// Package hook hooks into well-known libc/runtime symbols for which no definition (and hence no
// memory-effect summary) will ever be scanned, so a declaration-only function still participates
// correctly in TyPM's flow-direction gating (spec §4.4 bullet 1) instead of silently defaulting to
// ir.Unconstrained. This is the same regex trusted-function-registry idea the teacher uses to
// recognize well-known library calls, repurposed here from nilability producers to memory-effect
// assignment.
package hook

import (
	"regexp"

	"go.mlta.dev/callgraph/ir"
)

// trustedFunc pairs a linkage-name pattern with the memory effect its matches are assigned.
type trustedFunc struct {
	nameRegex *regexp.Regexp
	effect    ir.MemoryEffect
}

// trustedFuncs is consulted in order; the first match wins. Patterns are anchored to avoid, e.g.,
// "memcpy" matching a user function named "my_memcpy_wrapper".
var trustedFuncs = []trustedFunc{
	{regexp.MustCompile(`^(memcpy|memmove|strcpy|strncpy|strcat|bcopy)$`), ir.Unconstrained},
	{regexp.MustCompile(`^(memset|bzero)$`), ir.WritesOnly},
	{regexp.MustCompile(`^(strlen|strcmp|strncmp|memcmp|strchr|strstr)$`), ir.ReadsOnly},
	{regexp.MustCompile(`^(printf|fprintf|sprintf|snprintf|puts|fputs)$`), ir.ReadsOnly},
	{regexp.MustCompile(`^(malloc|calloc|realloc|kmalloc|kzalloc|vmalloc)$`), ir.NoMemoryAccess},
	{regexp.MustCompile(`^(free|kfree|vfree)$`), ir.ReadsOnly},
	{regexp.MustCompile(`^__x64_sys_\w+$`), ir.Unconstrained},
}

// MemoryEffectFor reports the conservative memory effect hooked in for linkageName, and whether
// any hook matched. A declaration whose name is not recognized here keeps whatever
// ir.MemoryEffect its own module assigned it (typically ir.Unconstrained, the escape case of
// spec §8 scenario 5).
func MemoryEffectFor(linkageName string) (ir.MemoryEffect, bool) {
	for _, t := range trustedFuncs {
		if t.nameRegex.MatchString(linkageName) {
			return t.effect, true
		}
	}
	return ir.Unconstrained, false
}
