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

package hook

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mlta.dev/callgraph/ir"
)

func TestMemoryEffectFor_RecognizedSymbols(t *testing.T) {
	tests := []struct {
		name   string
		want   ir.MemoryEffect
	}{
		{"memcpy", ir.Unconstrained},
		{"memmove", ir.Unconstrained},
		{"strcpy", ir.Unconstrained},
		{"memset", ir.WritesOnly},
		{"bzero", ir.WritesOnly},
		{"strlen", ir.ReadsOnly},
		{"memcmp", ir.ReadsOnly},
		{"printf", ir.ReadsOnly},
		{"malloc", ir.NoMemoryAccess},
		{"kzalloc", ir.NoMemoryAccess},
		{"free", ir.ReadsOnly},
		{"kfree", ir.ReadsOnly},
		{"__x64_sys_read", ir.Unconstrained},
		{"__x64_sys_write", ir.Unconstrained},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MemoryEffectFor(tt.name)
			require.True(t, ok, "expected %q to match a trusted function", tt.name)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryEffectFor_Unrecognized(t *testing.T) {
	got, ok := MemoryEffectFor("my_memcpy_wrapper")
	require.False(t, ok)
	require.Equal(t, ir.Unconstrained, got)

	got, ok = MemoryEffectFor("do_something_custom")
	require.False(t, ok)
	require.Equal(t, ir.Unconstrained, got)
}
