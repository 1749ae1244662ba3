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

// Package config exposes the core's tunables (spec §6) as an analysis.Analyzer, the same pattern
// the rest of the teacher's analyzer pipeline depends on (pass.ResultOf[config.Analyzer]). Flags
// are lifted to the top level by cmd/callgraph and cmd/gclplugin, exactly as
// config.Analyzer.Flags is lifted in the teacher's cmd/nilaway/main.go.
package config

import (
	"flag"
	"fmt"
	"reflect"

	"go.mlta.dev/callgraph/mlta"
	"go.mlta.dev/callgraph/typehash"
	"golang.org/x/tools/go/analysis"
)

// Flag names, exported so callers (tests, cmd/gclplugin) can address them without repeating the
// literal strings, matching the teacher's config.PrettyPrintFlag/config.ExperimentalAnonymousFunctionFlag
// convention.
const (
	MLTAPolicyFlag          = "mlta-policy"
	EnableTyPMFlag          = "enable-typm"
	MaxPhaseCGFlag          = "max-phase-cg"
	TargetTypePolicyFlag    = "target-type-policy"
	CriticalStructsFileFlag = "critical-structs-file"
	OutOfScopeFuncsFileFlag = "out-of-scope-funcs-file"
)

// DefaultMaxPhaseCG bounds the total number of phases, the MLTA phase included, absent an explicit
// -max-phase-cg flag (StableRoundLimit's role in the teacher's config/const.go, repurposed from
// backpropagation rounds to call-graph phases).
const DefaultMaxPhaseCG = 5

// Config is the resolved configuration surface for a whole-program run (spec §6 "Configuration").
type Config struct {
	// EnableMLTA selects the MLTA resolver's policy (Multi/Fuzzy/OneLayer).
	EnableMLTA mlta.Policy
	// EnableTyPM turns on the TyPM refinement phases. When false, the driver stops after phase 1.
	EnableTyPM bool
	// MaxPhaseCG bounds the total number of phases, the MLTA phase included (spec §6 "MAX_PHASE_CG").
	MaxPhaseCG int
	// TargetTypePolicy selects which types are target types for propagation purposes.
	TargetTypePolicy typehash.Policy

	// CriticalStructsFile, if non-empty, names a file of critical structure names (one per line,
	// or a YAML list) used in StructMode (spec §6 "TARGET_TYPE_POLICY", Config.h's
	// LoadTargetTypes).
	CriticalStructsFile string
	// OutOfScopeFuncsFile, if non-empty, names a file of function names exempt from TyPM pruning
	// (Config.h's LoadOutScopeFuncs).
	OutOfScopeFuncsFile string
}

const _doc = "Load indirect-call resolution configuration (MLTA policy, TyPM phase bound, " +
	"target-type policy, critical-structure and out-of-scope-function lists) shared by every " +
	"analyzer in this module."

var (
	_enableMLTA  string
	_enableTyPM  bool
	_maxPhaseCG  int
	_targetMode  string
	_criticalSet string
	_outOfScope  string
)

// Analyzer exposes Config's fields as command-line flags, following the shape of the teacher's
// own config analyzer as seen through its call sites (pass.ResultOf[config.Analyzer], flags
// lifted in cmd/nilaway/main.go): the analyzer's own source file was not available to copy, so
// this shape is reconstructed from usage, not transcribed.
var Analyzer = &analysis.Analyzer{
	Name:       "callgraph_config",
	Doc:        _doc,
	Run:        run,
	ResultType: reflect.TypeOf((*Config)(nil)),
	Flags:      flagSet(),
}

func flagSet() flag.FlagSet {
	var fs flag.FlagSet
	fs.StringVar(&_enableMLTA, MLTAPolicyFlag, "multi", "MLTA resolver policy: multi, fuzzy, or one-layer.")
	fs.BoolVar(&_enableTyPM, EnableTyPMFlag, true, "Run TyPM refinement phases after MLTA.")
	fs.IntVar(&_maxPhaseCG, MaxPhaseCGFlag, DefaultMaxPhaseCG, "Maximum total number of phases, the MLTA phase included.")
	fs.StringVar(&_targetMode, TargetTypePolicyFlag, "function", "Target-type policy: function or struct.")
	fs.StringVar(&_criticalSet, CriticalStructsFileFlag, "", "File listing critical structure names (StructMode).")
	fs.StringVar(&_outOfScope, OutOfScopeFuncsFileFlag, "", "File listing out-of-scope function names.")
	return fs
}

func run(*analysis.Pass) (interface{}, error) {
	return Parse()
}

// Parse resolves the package-level flag variables into a Config, validating the fatal conditions
// spec §7 calls out (MaxPhaseCG < 1, an unrecognized policy name).
func Parse() (*Config, error) {
	mltaPolicy, err := parseMLTAPolicy(_enableMLTA)
	if err != nil {
		return nil, err
	}
	targetPolicy, err := parseTargetPolicy(_targetMode)
	if err != nil {
		return nil, err
	}
	if _maxPhaseCG < 1 {
		return nil, fmt.Errorf("config: -max-phase-cg must be >= 1, got %d", _maxPhaseCG)
	}
	return &Config{
		EnableMLTA:          mltaPolicy,
		EnableTyPM:          _enableTyPM,
		MaxPhaseCG:          _maxPhaseCG,
		TargetTypePolicy:    targetPolicy,
		CriticalStructsFile: _criticalSet,
		OutOfScopeFuncsFile: _outOfScope,
	}, nil
}

func parseMLTAPolicy(s string) (mlta.Policy, error) {
	switch s {
	case "multi", "":
		return mlta.Multi, nil
	case "fuzzy":
		return mlta.Fuzzy, nil
	case "one-layer":
		return mlta.OneLayer, nil
	default:
		return 0, fmt.Errorf("config: unrecognized -mlta-policy %q", s)
	}
}

func parseTargetPolicy(s string) (typehash.Policy, error) {
	switch s {
	case "function", "":
		return typehash.FunctionMode, nil
	case "struct":
		return typehash.StructMode, nil
	default:
		return 0, fmt.Errorf("config: unrecognized -target-type-policy %q", s)
	}
}
