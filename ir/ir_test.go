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

func TestNewGUID_Stable(t *testing.T) {
	t.Parallel()

	a := NewGUID("pkg.Foo")
	b := NewGUID("pkg.Foo")
	if a != b {
		t.Fatalf("GUID not stable across calls: %v != %v", a, b)
	}

	c := NewGUID("pkg.Bar")
	if a == c {
		t.Fatalf("distinct linkage names hashed to the same GUID: %v", a)
	}
}

func TestCalleeSet_Intersect(t *testing.T) {
	t.Parallel()

	f1 := &Function{Name: "f1", GUID: NewGUID("f1")}
	f2 := &Function{Name: "f2", GUID: NewGUID("f2")}
	f3 := &Function{Name: "f3", GUID: NewGUID("f3")}

	a := NewCalleeSet()
	a.Add(f1)
	a.Add(f2)

	b := NewCalleeSet()
	b.Add(f2)
	b.Add(f3)

	got := a.Intersect(b)
	if len(got) != 1 || !got.Contains(f2) {
		t.Fatalf("expected intersection {f2}, got %v", got)
	}
}

func TestCalleeSet_Clone_Independent(t *testing.T) {
	t.Parallel()

	f1 := &Function{Name: "f1", GUID: NewGUID("f1")}
	orig := NewCalleeSet()
	orig.Add(f1)

	clone := orig.Clone()
	clone.Add(&Function{Name: "f2", GUID: NewGUID("f2")})

	if len(orig) != 1 {
		t.Fatalf("mutating clone affected original: %v", orig)
	}
}
