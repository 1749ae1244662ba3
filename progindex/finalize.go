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

package progindex

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/s2"
)

// Finalize must be called exactly once, after the last module has been passed to Scan. It
// rewrites every declaration reference collected in SigFuncs and StoredFuncs to point at its
// definition via GUIDMap (spec §4.2 last bullet). Finalize panics if called twice.
func (idx *Index) Finalize() {
	if idx.finalized {
		panic("progindex: Finalize called twice")
	}
	idx.RewriteDeclarations()
	idx.declarations = nil
	idx.finalized = true
}

// RewriteDeclarations performs the declaration-to-definition remap described at Finalize. It is
// exposed separately because the phase driver also needs to re-run it at later phase boundaries
// if new definitions become visible (spec §4.5, and CallGraphPass::doFinalization's second remap
// pass in the original source).
func (idx *Index) RewriteDeclarations() {
	for guid, def := range idx.GUIDMap {
		for _, set := range idx.SigFuncs {
			if _, ok := set[guid]; ok {
				set[guid] = def
			}
		}
		for _, byIndex := range idx.StoredFuncs {
			for _, set := range byIndex {
				if _, ok := set[guid]; ok {
					set[guid] = def
				}
			}
		}
	}
}

// SaveIndex gob-encodes and s2-compresses idx to w, so a whole-program index computed once over a
// large multi-module program can be checkpointed to disk and reloaded on a later, TyPM-only rerun
// without a full re-scan (grounded on inference/inferred_map.go's gob+s2 fact serialization).
func SaveIndex(w io.Writer, idx *Index) (err error) {
	sw := s2.NewWriter(w)
	defer func() {
		if cerr := sw.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	if err := gob.NewEncoder(sw).Encode(idx); err != nil {
		return fmt.Errorf("encode program index: %w", err)
	}
	return nil
}

// LoadIndex decodes an Index previously written by SaveIndex.
func LoadIndex(r io.Reader) (*Index, error) {
	idx := New()
	if err := gob.NewDecoder(s2.NewReader(r)).Decode(idx); err != nil {
		return nil, fmt.Errorf("decode program index: %w", err)
	}
	idx.finalized = true
	return idx, nil
}

// EncodeIndex is a convenience wrapper around SaveIndex returning the encoded bytes directly.
func EncodeIndex(idx *Index) ([]byte, error) {
	var buf bytes.Buffer
	if err := SaveIndex(&buf, idx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
