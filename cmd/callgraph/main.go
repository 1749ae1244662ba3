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

// main package makes it possible to run the whole-program MLTA/TyPM call-graph resolver as a
// standalone command, loading every package reachable from the given patterns with
// golang.org/x/tools/go/packages rather than seeing only one package's SSA at a time the way the
// go/analysis-native callgraph.Analyzer does (see that package's doc comment for the split).
package main

import (
	"flag"
	"fmt"
	"os"

	"go.mlta.dev/callgraph/config"
	"go.mlta.dev/callgraph/driver"
	"go.mlta.dev/callgraph/report"
	"go.mlta.dev/callgraph/ssair"
	"go.mlta.dev/callgraph/trace"
)

var (
	// _dir is the directory packages.Load resolves the given patterns from; empty means the
	// current working directory.
	_dir string
	// _traceFile, if non-empty, names a ground-truth trace file (spec §6) to score the resolved
	// call graph against.
	_traceFile string
	// _summary, if true, also prints the spec §6 summary counters after the resolved call graph.
	_summary bool
)

func main() {
	// Lift config.Analyzer's flags to the top level, exactly as cmd/nilaway/main.go lifts
	// config.Analyzer's flags for the per-package analyzer driver: without this, users would have
	// to invoke this command with e.g. "-callgraph_config.mlta-policy" instead of "-mlta-policy".
	config.Analyzer.Flags.VisitAll(func(f *flag.Flag) { flag.Var(f.Value, f.Name, f.Usage) })

	flag.StringVar(&_dir, "dir", "", "Directory to resolve package patterns from (default: current working directory).")
	flag.StringVar(&_traceFile, "trace-file", "", "Ground-truth trace file to score the resolved call graph against.")
	flag.BoolVar(&_summary, "summary", false, "Also print summary counters after the resolved call graph.")
	flag.Parse()

	patterns := flag.Args()
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	if err := run(patterns); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(patterns []string) error {
	conf, err := config.Parse()
	if err != nil {
		return fmt.Errorf("parse configuration: %w", err)
	}
	critical, err := config.LoadCriticalStructs(conf.CriticalStructsFile)
	if err != nil {
		return fmt.Errorf("load critical structures: %w", err)
	}
	outOfScope, err := config.LoadOutOfScopeFuncs(conf.OutOfScopeFuncsFile)
	if err != nil {
		return fmt.Errorf("load out-of-scope functions: %w", err)
	}

	locs := report.NewLocations()
	prog, _, err := ssair.BuildProgram(_dir, patterns, locs)
	if err != nil {
		return fmt.Errorf("build program: %w", err)
	}

	d, err := driver.New(conf.TargetTypePolicy, critical, outOfScope, conf.EnableMLTA, conf.EnableTyPM, conf.MaxPhaseCG)
	if err != nil {
		return fmt.Errorf("construct driver: %w", err)
	}
	if err := d.DoInitialization(prog); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	for {
		done, err := d.DoModulePass(prog)
		if err != nil {
			return fmt.Errorf("run phase: %w", err)
		}
		if done {
			break
		}
	}
	result, err := d.DoFinalization()
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	engine := report.NewEngine(result, locs)
	if err := engine.WriteCallees(os.Stdout); err != nil {
		return fmt.Errorf("write callees: %w", err)
	}
	if _summary {
		if err := engine.WriteSummary(os.Stdout); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if _traceFile != "" {
		if err := evaluateTrace(engine, locs); err != nil {
			return err
		}
	}
	return nil
}

// evaluateTrace loads _traceFile and prints one line per scored ground-truth edge, tallying the
// counts CallGraph.cc's processResults prints as "matched"/"unmatched"/"false negative" totals.
func evaluateTrace(engine *report.Engine, locs *report.Locations) error {
	f, err := os.Open(_traceFile)
	if err != nil {
		return fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()

	tr, err := trace.Load(f)
	if err != nil {
		return fmt.Errorf("load trace file: %w", err)
	}

	edges := trace.Evaluate(tr, engine, locs)
	var found, falseNeg, unmatched int
	for _, e := range edges {
		switch e.Outcome {
		case trace.Found:
			found++
		case trace.FalseNegative:
			falseNeg++
			fmt.Printf("false negative: %s -> %s\n", e.Caller, e.Callee)
		case trace.Unmatched:
			unmatched++
		}
	}
	fmt.Printf("trace: %d found, %d false negatives, %d unmatched\n", found, falseNeg, unmatched)
	return nil
}
