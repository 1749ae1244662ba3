//  Copyright (c) 2024 Uber Technologies, Inc.
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

package analysishelper

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis"
)

func TestEnhancedPass_PosToLocation(t *testing.T) {
	t.Parallel()

	pass, file := newTestEnhancedPass(t, "package main\nfunc main() {}\n")
	loc := pass.PosToLocation(file.Pos())
	require.Equal(t, "test.go", loc.Filename)
	require.Equal(t, 1, loc.Line)
}

func TestEnhancedPass_Panic(t *testing.T) {
	t.Parallel()

	pass, file := newTestEnhancedPass(t, "package main\nfunc main() {}\n")
	require.PanicsWithValue(t, "boom (test.go:1)", func() {
		pass.Panic("boom", file.Pos())
	})
}

// newTestEnhancedPass creates an *analysishelper.EnhancedPass from the given Go source code for testing purposes.
func newTestEnhancedPass(t *testing.T, src string) (*EnhancedPass, *ast.File) {
	t.Helper()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "test.go", src, parser.ParseComments)
	require.NoError(t, err)

	pass := &analysis.Pass{Fset: fset}
	return NewEnhancedPass(pass), file
}
