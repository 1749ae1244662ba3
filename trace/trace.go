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

// Package trace loads ground-truth call traces (spec §6 "Input: evaluation traces (optional)")
// and scores a resolved call graph against them, the peripheral precision reporter grounded on
// Config.h's LoadTraces and CallGraph.cc::processResults. It is never consulted by the core: a
// trace can only ever narrow what gets reported, not what gets resolved.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.mlta.dev/callgraph/report"
)

const (
	callerPrefix = "CALLER:"
	calleePrefix = "CALLEE:"
)

// Trace is the parsed ground-truth trace: each caller location ("path:line") maps to the set of
// callee locations observed for calls made there (LoadTraces's hashedTraces, keyed by source
// location rather than by hash since Go map keys can be the string directly).
type Trace struct {
	order   []string
	callees map[string][]string
	seen    map[string]map[string]bool
}

func newTrace() *Trace {
	return &Trace{callees: make(map[string][]string), seen: make(map[string]map[string]bool)}
}

// Callers returns every caller location with at least one recorded callee, in file order.
func (t *Trace) Callers() []string { return t.order }

// Callees returns the ground-truth callee locations recorded for caller, or nil if none.
func (t *Trace) Callees(caller string) []string { return t.callees[caller] }

func (t *Trace) addEdge(caller, callee string) {
	if _, ok := t.callees[caller]; !ok {
		t.order = append(t.order, caller)
		t.seen[caller] = make(map[string]bool)
	}
	if t.seen[caller][callee] {
		return
	}
	t.seen[caller][callee] = true
	t.callees[caller] = append(t.callees[caller], callee)
}

// Load parses r as a line-oriented CALLER:/CALLEE: trace file (spec §6): each CALLEE line
// attaches to the most recently seen CALLER line. Unlike the original, which tolerates a
// malformed CALLER/CALLEE line by resetting to a sentinel and skipping, a malformed line here is
// the fatal condition spec §7 explicitly calls out ("malformed trace line"): Load aborts rather
// than silently dropping ground-truth data. A CALLEE line with no CALLER line seen yet is not
// malformed in this sense (it is a well-formed line in the wrong position) and is simply skipped,
// matching the original's CallerSrcLn.Ln == -1 guard.
func Load(r io.Reader) (*Trace, error) {
	tr := newTrace()
	scanner := bufio.NewScanner(r)
	var caller string
	haveCaller := false

	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, callerPrefix):
			loc, err := parseLoc(strings.TrimSpace(line[len(callerPrefix):]))
			if err != nil {
				return nil, fmt.Errorf("trace: line %d: malformed CALLER entry: %w", lineNum, err)
			}
			caller, haveCaller = loc, true

		case strings.HasPrefix(line, calleePrefix):
			loc, err := parseLoc(strings.TrimSpace(line[len(calleePrefix):]))
			if err != nil {
				return nil, fmt.Errorf("trace: line %d: malformed CALLEE entry: %w", lineNum, err)
			}
			if !haveCaller {
				continue
			}
			tr.addEdge(caller, loc)

		default:
			return nil, fmt.Errorf("trace: line %d: expected %q or %q prefix, got %q", lineNum, callerPrefix, calleePrefix, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: read: %w", err)
	}
	return tr, nil
}

// parseLoc splits "path:line" on its last colon (a path may itself contain colons on some
// platforms; the line number never does), matching Config.h's line.rfind(":").
func parseLoc(s string) (string, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", fmt.Errorf("expected path:line, got %q", s)
	}
	path, lnStr := s[:idx], s[idx+1:]
	if path == "" {
		return "", fmt.Errorf("expected non-empty path in %q", s)
	}
	ln, err := strconv.Atoi(lnStr)
	if err != nil {
		return "", fmt.Errorf("expected integer line number in %q: %w", s, err)
	}
	return fmt.Sprintf("%s:%d", path, ln), nil
}

// Outcome classifies one ground-truth caller/callee edge against a resolved report.Engine.
type Outcome int

const (
	// Found: the callee survived into the engine's final resolved set for that call site.
	Found Outcome = iota
	// FalseNegative: the callee was a phase-1 MLTA candidate but was pruned by TyPM before the
	// final result, i.e. a real target the core lost along the way.
	FalseNegative
	// Unmatched: the caller location (or, for FalseNegative scoring, the callee location) does not
	// correspond to any call site or address-taken function the engine knows about, so no
	// precision judgment can be made (matches CallGraph.cc's srcLnHashSet/addrTakenFuncHashSet
	// membership guards, which silently drop these rather than counting them either way).
	Unmatched
)

// Edge is one scored ground-truth caller/callee pair.
type Edge struct {
	Caller, Callee string
	Outcome        Outcome
}

// Evaluate scores every edge in tr against e's resolved (and phase-1) callee sets, using locs to
// translate ir.CallSite/ir.Function identities into the "path:line" strings the trace is keyed
// by. Edges are returned in the trace file's original order for reproducible reporting.
func Evaluate(tr *Trace, e *report.Engine, locs *report.Locations) []Edge {
	siteByLoc := make(map[string][]report.ScoredSite)
	for site, callees := range e.Callees() {
		loc, ok := locs.CallSite[site]
		if !ok {
			continue
		}
		siteByLoc[loc] = append(siteByLoc[loc], report.ScoredSite{Site: site, Final: callees, Phase1: e.Phase1Callees(site)})
	}

	funcLocSet := make(map[string]bool, len(locs.Function))
	for _, loc := range locs.Function {
		funcLocSet[loc] = true
	}

	var edges []Edge
	for _, caller := range tr.Callers() {
		sites, ok := siteByLoc[caller]
		for _, calleeLoc := range tr.Callees(caller) {
			if !ok || !funcLocSet[calleeLoc] {
				edges = append(edges, Edge{Caller: caller, Callee: calleeLoc, Outcome: Unmatched})
				continue
			}
			edges = append(edges, Edge{Caller: caller, Callee: calleeLoc, Outcome: scoreSites(sites, calleeLoc, locs)})
		}
	}
	return edges
}

func scoreSites(sites []report.ScoredSite, calleeLoc string, locs *report.Locations) Outcome {
	for _, s := range sites {
		for _, fn := range s.Final {
			if locs.Function[fn.GUID] == calleeLoc {
				return Found
			}
		}
	}
	for _, s := range sites {
		for _, fn := range s.Phase1 {
			if locs.Function[fn.GUID] == calleeLoc {
				return FalseNegative
			}
		}
	}
	return Unmatched
}
