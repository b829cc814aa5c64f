// Package passes implements Viper's transformation pass library:
// SimplifyCFG, DCE, SCCP, ConstFold, Peephole, Mem2Reg, and LateCleanup
// (spec §4.5).
package passes

import "github.com/viper-lang/viper/internal/il"

// useCounts returns, for every SSA id defined in fn, how many times it is
// referenced as an operand/branch-argument anywhere in the function. DCE
// and SimplifyCFG's canonicalizeBlockParams consult this instead of
// rescanning the function per candidate.
func useCounts(fn *il.Function) map[int]int {
	counts := map[int]int{}
	walkValues(fn, func(v il.Value) {
		if v.Kind == il.VTemp {
			counts[v.ID]++
		}
	})
	return counts
}

// walkValues calls visit on every Value referenced anywhere in fn:
// instruction operands, branch arguments, and switch default arguments.
func walkValues(fn *il.Function, visit func(il.Value)) {
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			for _, op := range instr.Operands {
				visit(op)
			}
			for _, args := range instr.BrArgs {
				for _, a := range args {
					visit(a)
				}
			}
			for _, a := range instr.DefaultArg {
				visit(a)
			}
		}
	}
}

// substitute returns v with any VTemp id present in subst replaced by its
// mapped value; v is returned unchanged otherwise.
func substitute(v il.Value, subst map[int]il.Value) il.Value {
	if v.Kind == il.VTemp {
		if nv, ok := subst[v.ID]; ok {
			return nv
		}
	}
	return v
}

// substituteInstr rewrites every operand/branch-argument of instr in
// place according to subst.
func substituteInstr(instr *il.Instr, subst map[int]il.Value) {
	for i, op := range instr.Operands {
		instr.Operands[i] = substitute(op, subst)
	}
	for i, args := range instr.BrArgs {
		for j, a := range args {
			instr.BrArgs[i][j] = substitute(a, subst)
		}
	}
	for i, a := range instr.DefaultArg {
		instr.DefaultArg[i] = substitute(a, subst)
	}
}

// substituteBlock rewrites every instruction in b according to subst.
func substituteBlock(b *il.BasicBlock, subst map[int]il.Value) {
	for i := range b.Instrs {
		substituteInstr(&b.Instrs[i], subst)
	}
}

// argsEqual reports whether two branch-argument vectors are pairwise
// structurally equal.
func argsEqual(a, b []il.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// edge names one outgoing branch edge of a terminator, addressable for
// in-place rewriting.
type edge struct {
	block *il.BasicBlock
	instr *il.Instr
	// idx selects which Labels/BrArgs slot this edge is, or -1 for a
	// switch.i32's default edge.
	idx int
}

func (e edge) label() string {
	if e.idx < 0 {
		return e.instr.Default
	}
	return e.instr.Labels[e.idx]
}

func (e edge) args() []il.Value {
	if e.idx < 0 {
		return e.instr.DefaultArg
	}
	return e.instr.BrArgs[e.idx]
}

func (e edge) setTarget(label string, args []il.Value) {
	if e.idx < 0 {
		e.instr.Default = label
		e.instr.DefaultArg = args
		return
	}
	e.instr.Labels[e.idx] = label
	e.instr.BrArgs[e.idx] = args
}

// incomingEdges returns every edge across fn whose target is label.
func incomingEdges(fn *il.Function, label string) []edge {
	var edges []edge
	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		for i, l := range term.Labels {
			if l == label {
				edges = append(edges, edge{block: b, instr: term, idx: i})
			}
		}
		if term.Op == il.OpSwitchI32 && term.Default == label {
			edges = append(edges, edge{block: b, instr: term, idx: -1})
		}
	}
	return edges
}

// removeBlock deletes the block with the given label from fn.
func removeBlock(fn *il.Function, label string) {
	out := fn.Blocks[:0]
	for _, b := range fn.Blocks {
		if b.Label != label {
			out = append(out, b)
		}
	}
	fn.Blocks = out
}
