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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.mlta.dev/callgraph/typehash"
	"gopkg.in/yaml.v3"
)

// LoadCriticalStructs reads path as either a YAML list of structure names or a newline-delimited
// text list (one name per line, blank lines ignored), hashing each name via typehash.HashName
// (Config.h's LoadTargetTypes, which hashes "struct."+name). An empty path returns an empty,
// non-nil set: StructMode with no configured structures matches nothing, which is a valid (if
// unhelpful) configuration, not an error.
func LoadCriticalStructs(path string) (map[uint64]bool, error) {
	names, err := loadList(path)
	if err != nil {
		return nil, fmt.Errorf("config: load critical structs: %w", err)
	}
	out := make(map[uint64]bool, len(names))
	for _, n := range names {
		out[typehash.HashName(n)] = true
	}
	return out, nil
}

// LoadOutOfScopeFuncs reads path the same way as LoadCriticalStructs, but keeps the literal
// function names (Config.h's LoadOutScopeFuncs matches by name, not by hash).
func LoadOutOfScopeFuncs(path string) (map[string]bool, error) {
	names, err := loadList(path)
	if err != nil {
		return nil, fmt.Errorf("config: load out-of-scope funcs: %w", err)
	}
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out, nil
}

func loadList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".yaml") || strings.EqualFold(filepath.Ext(path), ".yml") {
		var names []string
		if err := yaml.Unmarshal(data, &names); err != nil {
			return nil, fmt.Errorf("parse %s as YAML list: %w", path, err)
		}
		return names, nil
	}

	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}
