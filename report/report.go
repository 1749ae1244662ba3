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

// Package report turns a driver.Result into the spec's external output shape (§6 "Output": the
// resolved Callees map, an optional Callers map, and summary counters) and a human-readable
// console summary, the same role diagnostic.Engine plays for NilAway's conflicts and
// CallGraphPass::processResults plays for the original whole-program pass.
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"go.mlta.dev/callgraph/driver"
	"go.mlta.dev/callgraph/ir"
)

// Locations supplies the Go source positions the core's ir package deliberately does not carry
// (ir stays front-end-agnostic, spec §1). A front end such as ssair populates one of these
// alongside the ir.Program it builds; report and trace consult it only for human-readable
// output and ground-truth trace matching, never for resolution itself.
type Locations struct {
	// CallSite maps a call instruction to its "path:line" source position.
	CallSite map[ir.CallSite]string
	// Function maps a function's GUID to its defining "path:line" source position.
	Function map[ir.GUID]string
}

// NewLocations returns an empty Locations ready for a front end to populate.
func NewLocations() *Locations {
	return &Locations{CallSite: make(map[ir.CallSite]string), Function: make(map[ir.GUID]string)}
}

// Summary is the spec §6 "Summary counters" output.
type Summary struct {
	Functions         int
	IndirectCallSites int
	ResolvedTargets   int
	Phases            []driver.PhaseReduction
}

// Engine accumulates a driver.Result into report-ready form. Unlike diagnostic.Engine, it never
// holds an *analysis.Pass: the core produces no source diagnostics, only a resolved call graph.
type Engine struct {
	result *driver.Result
	locs   *Locations
}

// NewEngine wraps result for reporting. locs may be nil, in which case location-dependent output
// (WriteCallees, trace evaluation) falls back to GUID/pointer identity for labeling.
func NewEngine(result *driver.Result, locs *Locations) *Engine {
	return &Engine{result: result, locs: locs}
}

// Summary returns the spec §6 summary counters.
func (e *Engine) Summary() Summary {
	return Summary{
		Functions:         e.result.Functions,
		IndirectCallSites: e.result.IndirectCallSites,
		ResolvedTargets:   e.result.ResolvedTargets,
		Phases:            e.result.Phases,
	}
}

// Callees returns the resolved call graph (spec §6 "Callees: CallSite → Set<Function>").
func (e *Engine) Callees() map[ir.CallSite]ir.CalleeSet { return e.result.Callees }

// Phase1Callees returns site's callee set as MLTA left it, before any TyPM pruning, or a nil set
// if the driver has no such snapshot for it (a direct call site, which MLTA never touches).
func (e *Engine) Phase1Callees(site ir.CallSite) ir.CalleeSet { return e.result.Phase1Callees[site] }

// ScoredSite bundles one call site's final and phase-1 callee sets for trace evaluation.
type ScoredSite struct {
	Site   ir.CallSite
	Final  ir.CalleeSet
	Phase1 ir.CalleeSet
}

// Callers inverts Callees into the optional spec §6 "Callers: Function → Set<CallSite>" view.
func (e *Engine) Callers() map[ir.GUID][]ir.CallSite {
	out := make(map[ir.GUID][]ir.CallSite)
	for site, callees := range e.result.Callees {
		for guid := range callees {
			out[guid] = append(out[guid], site)
		}
	}
	for guid, sites := range out {
		slices.SortFunc(sites, func(a, b ir.CallSite) int {
			return cmp.Compare(e.callSiteLabel(a), e.callSiteLabel(b))
		})
		out[guid] = sites
	}
	return out
}

// sortedCallSites returns every call site in e.Callees, ordered by location label (falling back
// to the call site's pointer address when locs is nil or a site is unmapped) so printed output is
// reproducible across runs, per spec §5's ordering guarantee.
func (e *Engine) sortedCallSites() []ir.CallSite {
	sites := make([]ir.CallSite, 0, len(e.result.Callees))
	for s := range e.result.Callees {
		sites = append(sites, s)
	}
	slices.SortFunc(sites, func(a, b ir.CallSite) int {
		return cmp.Compare(e.callSiteLabel(a), e.callSiteLabel(b))
	})
	return sites
}

func (e *Engine) callSiteLabel(c ir.CallSite) string {
	if e.locs != nil {
		if label, ok := e.locs.CallSite[c]; ok {
			return label
		}
	}
	return fmt.Sprintf("<unlocated:%p>", c)
}

func (e *Engine) functionLabel(fn *ir.Function) string {
	if e.locs != nil {
		if label, ok := e.locs.Function[fn.GUID]; ok {
			return fmt.Sprintf("%s (%s)", fn.Name, label)
		}
	}
	return fn.Name
}

// WriteCallees prints one line per call site in the sorted order above, followed by its resolved
// callees, e.g. "main.go:42: f, g, h". Grounded on CallGraphPass::processResults's console-style
// reporting, adapted to report the resolved call graph rather than trace-matched precision.
func (e *Engine) WriteCallees(w io.Writer) error {
	for _, site := range e.sortedCallSites() {
		callees := e.result.Callees[site]
		names := make([]string, 0, len(callees))
		for _, fn := range callees {
			names = append(names, e.functionLabel(fn))
		}
		slices.Sort(names)
		if _, err := fmt.Fprintf(w, "%s: %s\n", e.callSiteLabel(site), joinOrNone(names)); err != nil {
			return err
		}
	}
	return nil
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "<unresolved>"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}

// WriteSummary prints the spec §6 summary counters and per-phase reduction percentages, in the
// same spirit as the original's "@@ Trace size" and phase-transition console lines.
func (e *Engine) WriteSummary(w io.Writer) error {
	s := e.Summary()
	if _, err := fmt.Fprintf(w, "functions: %d\nindirect call sites: %d\nresolved targets: %d\n",
		s.Functions, s.IndirectCallSites, s.ResolvedTargets); err != nil {
		return err
	}
	for i, p := range s.Phases {
		total := p.Removed + p.Kept
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(p.Removed) / float64(total)
		}
		if _, err := fmt.Fprintf(w, "phase %d: removed %d, kept %d (%.1f%% reduction)\n", i+2, p.Removed, p.Kept, pct); err != nil {
			return err
		}
	}
	return nil
}
