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

// Package driver orchestrates the program index, the MLTA resolver, and the TyPM propagation
// graph through the phase state machine of spec §4.5: initialization, one MLTA phase, then zero
// or more TyPM phases bounded by MaxPhaseCG, detecting fixpoint along the way.
//
// CallGraphDriver replaces the original analyzer's virtual-inheritance composition
// (CallGraphPass : virtual IterativeModulePass, virtual TyPM, spec §9) with plain composition
// over three independently testable values: a *progindex.Index, a *mlta.Resolver, and a
// *typm.Graph.
package driver

import (
	"fmt"

	"go.mlta.dev/callgraph/ir"
	"go.mlta.dev/callgraph/mlta"
	"go.mlta.dev/callgraph/progindex"
	"go.mlta.dev/callgraph/typehash"
	"go.mlta.dev/callgraph/typm"
)

// Phase is one macro-state of the driver's state machine (spec §4.5).
type Phase int

const (
	// Init is the state before DoInitialization has run.
	Init Phase = iota
	// Phase1MLTA resolves every call site's initial callee set.
	Phase1MLTA
	// PhaseNTyPM runs zero or more TyPM iterations, pruning callee sets by module reachability.
	PhaseNTyPM
	// Done is the terminal state: no further DoModulePass call makes progress.
	Done
)

func (p Phase) String() string {
	switch p {
	case Init:
		return "INIT"
	case Phase1MLTA:
		return "PHASE1_MLTA"
	case PhaseNTyPM:
		return "PHASE_N_TYPM"
	case Done:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// site is the driver's bookkeeping for one indirect call: its owning module and the typm.Site
// passed to Refine, whose Callees holds the resolved callee set (mutated in place across TyPM
// phases).
type site struct {
	module *ir.Module
	typm   *typm.Site
}

// CallGraphDriver composes the three core components and tracks per-phase state (spec §4.5, §9).
type CallGraphDriver struct {
	Index    *progindex.Index
	Resolver *mlta.Resolver
	Graph    *typm.Graph

	Policy     typehash.Policy
	Critical   map[uint64]bool
	OutOfScope map[string]bool
	MaxPhaseCG int
	EnableTyPM bool

	phase      Phase
	phaseCount int
	direct     []ir.CallSite
	sites      []*site

	// reductions records removed/kept per completed TyPM phase, for report.Engine (spec §6
	// "per-phase target-reduction percentages").
	reductions []PhaseReduction

	// phase1Snapshot holds each indirect site's callee set as MLTA left it, before any TyPM
	// pruning. report/trace use it to distinguish "never a candidate" from "pruned by TyPM" when
	// evaluating a site against a ground-truth trace (CallGraph.cc's L1CalleesSrcMap).
	phase1Snapshot map[ir.CallSite]ir.CalleeSet
}

// PhaseReduction is one TyPM phase's removal/retention counts.
type PhaseReduction struct {
	Removed int
	Kept    int
}

// New constructs a driver in the Init state. It returns an error if maxPhaseCG is less than 1, the
// one fatal configuration condition the core itself checks (spec §7 "MAX_PHASE_CG < 1").
func New(policy typehash.Policy, critical map[uint64]bool, outOfScope map[string]bool, mltaPolicy mlta.Policy, enableTyPM bool, maxPhaseCG int) (*CallGraphDriver, error) {
	if maxPhaseCG < 1 {
		return nil, fmt.Errorf("driver: MaxPhaseCG must be >= 1, got %d", maxPhaseCG)
	}
	return &CallGraphDriver{
		Index:      progindex.New(),
		Resolver:   mlta.NewResolver(mltaPolicy),
		Graph:      typm.NewGraph(),
		Policy:     policy,
		Critical:   critical,
		OutOfScope: outOfScope,
		MaxPhaseCG: maxPhaseCG,
		EnableTyPM: enableTyPM,
		phase:      Init,
	}, nil
}

// Phase reports the driver's current macro-state.
func (d *CallGraphDriver) Phase() Phase { return d.phase }

// DoInitialization runs the one-pass-per-module program index scan over every module of prog, then
// finalizes it (spec §4.2, §4.5 "INIT --module-scan-->"). It must be called exactly once, before
// any DoModulePass call.
func (d *CallGraphDriver) DoInitialization(prog *ir.Program) error {
	if d.phase != Init {
		return fmt.Errorf("driver: DoInitialization called outside INIT (current phase %s)", d.phase)
	}
	for _, m := range prog.Modules {
		progindex.Scan(m, d.Index, d.Policy, d.Critical)
	}
	d.Index.Finalize()
	d.phase = Phase1MLTA
	return nil
}

// DoModulePass advances the state machine by one phase over every module of prog: phase 1 resolves
// every call site's initial callee set via MLTA; each subsequent phase re-derives the propagation
// graph and refines callee sets via TyPM, stopping at a fixpoint or at MaxPhaseCG (spec §4.5). It
// reports done=true once the DONE state is reached.
func (d *CallGraphDriver) DoModulePass(prog *ir.Program) (done bool, err error) {
	switch d.phase {
	case Phase1MLTA:
		d.runMLTAPhase(prog)
		d.Index.RewriteDeclarations()
		d.phase1Snapshot = make(map[ir.CallSite]ir.CalleeSet, len(d.sites))
		for _, s := range d.sites {
			d.phase1Snapshot[s.typm.Call] = s.typm.Callees.Clone()
		}
		d.phaseCount++
		if !d.EnableTyPM || d.phaseCount >= d.MaxPhaseCG {
			d.phase = Done
		} else {
			d.phase = PhaseNTyPM
		}
		return d.phase == Done, nil

	case PhaseNTyPM:
		d.Graph.ClearVolatile()
		d.runTyPMPhase(prog)
		d.Index.RewriteDeclarations()

		sites := make([]*typm.Site, len(d.sites))
		for i, s := range d.sites {
			sites[i] = s.typm
		}
		removed, kept := typm.Refine(d.Index, d.Graph, sites, d.OutOfScope)
		d.reductions = append(d.reductions, PhaseReduction{Removed: removed, Kept: kept})
		d.phaseCount++

		if removed == 0 || d.phaseCount >= d.MaxPhaseCG {
			d.phase = Done
		}
		return d.phase == Done, nil

	case Done:
		return true, nil

	default:
		return false, fmt.Errorf("driver: DoModulePass called in state %s", d.phase)
	}
}

// DoFinalization returns the Result once the driver has reached DONE (spec §4.5 "finalization";
// §6 Output).
func (d *CallGraphDriver) DoFinalization() (*Result, error) {
	if d.phase != Done {
		return nil, fmt.Errorf("driver: DoFinalization called before DONE (current phase %s)", d.phase)
	}

	callees := make(map[ir.CallSite]ir.CalleeSet, len(d.direct)+len(d.sites))
	for _, c := range d.direct {
		callees[c] = d.Resolver.ResolveDirect(c, d.Index)
	}
	var totalTargets int
	for _, s := range d.sites {
		callees[s.typm.Call] = s.typm.Callees
		totalTargets += len(s.typm.Callees)
	}

	return &Result{
		Callees:           callees,
		Phase1Callees:     d.phase1Snapshot,
		Functions:         len(d.Index.AddressTaken),
		IndirectCallSites: len(d.sites),
		ResolvedTargets:   totalTargets,
		Phases:            d.reductions,
	}, nil
}

// Result is the driver's final output (spec §6 "Output").
type Result struct {
	Callees map[ir.CallSite]ir.CalleeSet
	// Phase1Callees is each indirect site's callee set as MLTA left it, before TyPM pruning. Only
	// populated for sites that went through at least one phase (always true once DONE is reached).
	Phase1Callees     map[ir.CallSite]ir.CalleeSet
	Functions         int
	IndirectCallSites int
	ResolvedTargets   int
	Phases            []PhaseReduction
}

func (d *CallGraphDriver) runMLTAPhase(prog *ir.Program) {
	for _, m := range prog.Modules {
		for _, fn := range m.Functions {
			for _, instr := range fn.Instrs {
				call, ok := instr.(*ir.Call)
				if !ok {
					continue
				}
				if !call.Indirect() {
					d.direct = append(d.direct, call)
					continue
				}
				callees := d.Resolver.ResolveIndirect(call, d.Index)
				d.sites = append(d.sites, &site{
					module: m,
					typm: &typm.Site{
						Call:    call,
						Module:  m,
						Type:    callSignature(call),
						Layers:  typehash.NextLayerBaseType(call.Target),
						Callees: callees,
					},
				})
			}
		}
	}
}

// callSignature returns the function type a call site targets: the pointee of the target value's
// pointer-to-function type if known, else a type reconstructed from the call's actual argument and
// result types. Mirrors mlta's own (unexported) callSignature, since both packages need the same
// notion of "the type this call site is a use of" for their own keying purposes.
func callSignature(call *ir.Call) *ir.Type {
	if call.Target != nil {
		if t := call.Target.ValueType(); t != nil && t.Kind == ir.KindPointer && t.Elem != nil && t.Elem.Kind == ir.KindFunc {
			return t.Elem
		}
	}
	params := make([]*ir.Type, len(call.Args))
	for i, a := range call.Args {
		params[i] = a.ValueType()
	}
	return ir.Func(params, call.Typ)
}

func (d *CallGraphDriver) runTyPMPhase(prog *ir.Program) {
	for _, m := range prog.Modules {
		typm.DeriveGlobalEdges(m, d.Index, d.Graph, d.Policy, d.Critical)
	}
	for _, s := range d.sites {
		for _, fn := range s.typm.Callees {
			typm.DeriveCallEdges(s.typm.Call, s.module, fn, d.Graph, d.Policy, d.Critical)
		}
	}
	for _, m := range prog.Modules {
		for _, fn := range m.Functions {
			for _, instr := range fn.Instrs {
				call, ok := instr.(*ir.Call)
				if !ok || call.Indirect() {
					continue
				}
				typm.DeriveCallEdges(call, m, call.Callee, d.Graph, d.Policy, d.Critical)
			}
		}
	}
}
