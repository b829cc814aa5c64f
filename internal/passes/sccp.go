package passes

import (
	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
)

const maxSCCPIterations = 64

type latKind int

const (
	latUndef latKind = iota
	latConst
	latOverdefined
)

type lattice struct {
	kind latKind
	val  il.Value
}

func meetLattice(a, b lattice) lattice {
	if a.kind == latOverdefined || b.kind == latOverdefined {
		return lattice{kind: latOverdefined}
	}
	if a.kind == latUndef {
		return b
	}
	if b.kind == latUndef {
		return a
	}
	if a.val.Equal(b.val) {
		return a
	}
	return lattice{kind: latOverdefined}
}

// SCCP returns a function pass implementing spec §4.5.c: sparse
// conditional constant propagation over the lattice {undef, const,
// overdefined}. Constants flow through copies, non-trapping arithmetic,
// and block parameters (predecessor edges reachable only through a
// proven-unexecutable block are excluded from the join). It reuses
// ConstFold's trap-safety rules for evaluating each instruction, so it
// never marks a value constant that would require folding a trapping
// operation (checked div/rem by zero or INT_MIN/-1, non-finite float
// results): such instructions are left overdefined and evaluated at
// runtime instead (ISSUE-3).
//
// SCCP itself only substitutes proven-constant SSA ids; it does not
// rewrite branch terminators or delete unreachable blocks — a later
// SimplifyCFG/DCE run (every pipeline schedules one right after SCCP)
// folds the now-literal branch conditions and prunes dead blocks.
func SCCP() func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
	return func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
		values, _ := runSCCP(fn)

		subst := map[int]il.Value{}
		for id, lv := range values {
			if lv.kind == latConst {
				subst[id] = lv.val
			}
		}
		if len(subst) == 0 {
			return analysis.PreservedAll()
		}

		for _, b := range fn.Blocks {
			substituteBlock(b, subst)
		}
		for _, b := range fn.Blocks {
			var kept []il.Instr
			for _, instr := range b.Instrs {
				if instr.HasResult {
					if _, folded := subst[instr.Result]; folded {
						continue
					}
				}
				kept = append(kept, instr)
			}
			b.Instrs = kept
		}
		return analysis.PreservedNone()
	}
}

func runSCCP(fn *il.Function) (map[int]lattice, map[string]bool) {
	values := map[int]lattice{}
	for _, p := range fn.Params {
		values[p.ID] = lattice{kind: latOverdefined}
	}

	executable := map[string]bool{}
	if entry := fn.Entry(); entry != nil {
		executable[entry.Label] = true
	}

	lookup := func(v il.Value) lattice {
		if v.Kind == il.VTemp {
			return values[v.ID]
		}
		return lattice{kind: latConst, val: v}
	}

	for iter := 0; iter < maxSCCPIterations; iter++ {
		changed := false

		for _, b := range fn.Blocks {
			if !executable[b.Label] {
				continue
			}

			if len(b.Params) > 0 {
				edges := predecessorArgEdges(fn, b.Label)
				for i, p := range b.Params {
					joined := lattice{kind: latUndef}
					for _, e := range edges {
						if !executable[e.pred] {
							continue
						}
						if i >= len(e.args) {
							continue
						}
						joined = meetLattice(joined, lookup(e.args[i]))
					}
					if values[p.ID] != joined {
						values[p.ID] = joined
						changed = true
					}
				}
			}

			for _, instr := range b.Instrs {
				if instr.HasResult {
					lv := evalSCCP(instr, lookup)
					if values[instr.Result] != lv {
						values[instr.Result] = lv
						changed = true
					}
				}
				if instr.IsTerminator() {
					if markSuccessorsExecutable(instr, lookup, executable) {
						changed = true
					}
				}
			}
		}

		if !changed {
			break
		}
	}

	return values, executable
}

// evalSCCP computes the lattice value of instr given its operands' current
// lattice values. Memory, call, and call.indirect instructions are always
// overdefined — SCCP here is a value-lattice pass only, with no memory or
// interprocedural modelling.
func evalSCCP(instr il.Instr, lookup func(il.Value) lattice) lattice {
	switch instr.Op {
	case il.OpAlloca, il.OpLoad, il.OpStore, il.OpGep, il.OpCall, il.OpCallIndirect:
		return lattice{kind: latOverdefined}
	}

	operandLats := make([]lattice, len(instr.Operands))
	anyOverdefined := false
	anyUndef := false
	constOperands := make([]il.Value, len(instr.Operands))
	for i, op := range instr.Operands {
		lv := lookup(op)
		operandLats[i] = lv
		switch lv.kind {
		case latOverdefined:
			anyOverdefined = true
		case latUndef:
			anyUndef = true
		case latConst:
			constOperands[i] = lv.val
		}
	}

	if len(instr.Operands) == 0 {
		return lattice{kind: latOverdefined}
	}
	if anyUndef {
		return lattice{kind: latUndef}
	}
	if anyOverdefined {
		return lattice{kind: latOverdefined}
	}

	probe := instr
	probe.Operands = constOperands
	if v, ok := tryFold(probe); ok {
		return lattice{kind: latConst, val: v}
	}
	return lattice{kind: latOverdefined}
}

type predArgEdge struct {
	pred string
	args []il.Value
}

// predecessorArgEdges returns, for every edge targeting label, the source
// block's label and the branch-argument vector it passes.
func predecessorArgEdges(fn *il.Function, label string) []predArgEdge {
	var out []predArgEdge
	for _, e := range incomingEdges(fn, label) {
		out = append(out, predArgEdge{pred: e.block.Label, args: e.args()})
	}
	return out
}

// markSuccessorsExecutable marks term's live successor(s) executable
// according to the current lattice value of its condition/selector,
// returning true if any new block became executable this call.
func markSuccessorsExecutable(term il.Instr, lookup func(il.Value) lattice, executable map[string]bool) bool {
	changed := false
	mark := func(label string) {
		if label != "" && !executable[label] {
			executable[label] = true
			changed = true
		}
	}

	switch term.Op {
	case il.OpBr, il.OpResumeLabel:
		for _, l := range term.Labels {
			mark(l)
		}
	case il.OpCbr:
		cond := lookup(term.Operands[0])
		switch cond.kind {
		case latConst:
			idx := 1
			if cond.val.Int != 0 {
				idx = 0
			}
			mark(term.Labels[idx])
		default:
			mark(term.Labels[0])
			mark(term.Labels[1])
		}
	case il.OpSwitchI32:
		sel := lookup(term.Operands[0])
		if sel.kind == latConst {
			matched := false
			for i, cv := range term.CaseVals {
				if int64(cv) == sel.val.Int {
					mark(term.Labels[i])
					matched = true
				}
			}
			if !matched {
				mark(term.Default)
			}
		} else {
			for _, l := range term.Labels {
				mark(l)
			}
			mark(term.Default)
		}
	}
	return changed
}
