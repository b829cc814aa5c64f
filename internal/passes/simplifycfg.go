package passes

import (
	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
)

const maxSimplifyCFGIterations = 8

// SimplifyCFG returns a function pass implementing spec §4.5.a: a
// fixed-point driver (bounded to 8 iterations) composing trivial
// switch/cbr folding, empty-forwarder elimination, single-predecessor
// merging, unreachable-block removal, block-parameter canonicalisation,
// and (in aggressive mode) jump threading through bare-cbr blocks.
func SimplifyCFG(aggressive bool) func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
	return func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
		anyChanged := false
		for iter := 0; iter < maxSimplifyCFGIterations; iter++ {
			changed := false
			changed = foldTrivialSwitch(fn) || changed
			changed = foldTrivialCbr(fn) || changed
			changed = removeEmptyForwarders(fn) || changed
			changed = mergeSinglePredecessor(fn) || changed
			changed = removeUnreachableBlocks(fn) || changed
			changed = canonicalizeBlockParams(fn) || changed
			if aggressive {
				changed = threadJumps(fn) || changed
			}
			if !changed {
				break
			}
			anyChanged = true
		}
		if anyChanged {
			return analysis.PreservedNone()
		}
		return analysis.PreservedAll()
	}
}

func sensitive(b *il.BasicBlock) bool { return b.ExceptionSensitive }

// foldTrivialSwitch collapses a switch.i32 whose reachable cases (plus
// default) all target the same label with identical branch-arg vectors
// into an unconditional branch.
func foldTrivialSwitch(fn *il.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		if sensitive(b) {
			continue
		}
		term := b.Terminator()
		if term == nil || term.Op != il.OpSwitchI32 {
			continue
		}
		label := term.Default
		args := term.DefaultArg
		uniform := true
		for i, l := range term.Labels {
			if l != label || !argsEqual(term.BrArgs[i], args) {
				uniform = false
				break
			}
		}
		if !uniform {
			continue
		}
		*term = il.Instr{
			Op:     il.OpBr,
			Labels: []string{label},
			BrArgs: [][]il.Value{args},
			Line:   term.Line,
		}
		changed = true
	}
	return changed
}

// foldTrivialCbr folds a cbr on a literal true/false condition to an
// unconditional branch, and folds `cbr cond, L, L` (identical targets and
// args) to `br L` regardless of cond.
func foldTrivialCbr(fn *il.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		if sensitive(b) {
			continue
		}
		term := b.Terminator()
		if term == nil || term.Op != il.OpCbr {
			continue
		}
		if term.Labels[0] == term.Labels[1] && argsEqual(term.BrArgs[0], term.BrArgs[1]) {
			*term = il.Instr{Op: il.OpBr, Labels: []string{term.Labels[0]}, BrArgs: [][]il.Value{term.BrArgs[0]}, Line: term.Line}
			changed = true
			continue
		}
		cond := term.Operands[0]
		if cond.Kind != il.VConstInt {
			continue
		}
		idx := 1
		if cond.Int != 0 {
			idx = 0
		}
		*term = il.Instr{Op: il.OpBr, Labels: []string{term.Labels[idx]}, BrArgs: [][]il.Value{term.BrArgs[idx]}, Line: term.Line}
		changed = true
	}
	return changed
}

// removeEmptyForwarders eliminates a block whose only instruction is an
// unconditional branch, rewriting every predecessor edge to jump directly
// to the forwarder's successor with substituted branch arguments.
func removeEmptyForwarders(fn *il.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		if b == fn.Entry() || sensitive(b) {
			continue
		}
		if len(b.Instrs) != 1 || b.Instrs[0].Op != il.OpBr {
			continue
		}
		target := b.Instrs[0].Labels[0]
		targetArgs := b.Instrs[0].BrArgs[0]

		for _, e := range incomingEdges(fn, b.Label) {
			incoming := e.args()
			edgeSubst := map[int]il.Value{}
			for i, p := range b.Params {
				if i < len(incoming) {
					edgeSubst[p.ID] = incoming[i]
				}
			}
			newArgs := make([]il.Value, len(targetArgs))
			for i, v := range targetArgs {
				newArgs[i] = substitute(v, edgeSubst)
			}
			e.setTarget(target, newArgs)
		}
		removeBlock(fn, b.Label)
		changed = true
		break // restart the outer fixed-point loop; fn.Blocks mutated
	}
	return changed
}

// mergeSinglePredecessor splices a block with exactly one predecessor
// (which terminates with an unconditional branch into it) into that
// predecessor, substituting incoming arguments for the block's
// parameters.
func mergeSinglePredecessor(fn *il.Function) bool {
	cfg := analysis.ComputeCFG(fn).(*analysis.CFGInfo)
	for _, b := range fn.Blocks {
		if b == fn.Entry() || sensitive(b) {
			continue
		}
		preds := cfg.Preds[b.Label]
		if len(preds) != 1 {
			continue
		}
		pred := fn.Block(preds[0])
		if pred == nil || sensitive(pred) {
			continue
		}
		term := pred.Terminator()
		if term.Op != il.OpBr || term.Labels[0] != b.Label {
			continue
		}
		if pred == b {
			continue // self-loop; nothing to splice
		}

		subst := map[int]il.Value{}
		for i, p := range b.Params {
			if i < len(term.BrArgs[0]) {
				subst[p.ID] = term.BrArgs[0][i]
			}
		}

		merged := make([]il.Instr, 0, len(pred.Instrs)-1+len(b.Instrs))
		merged = append(merged, pred.Instrs[:len(pred.Instrs)-1]...)
		for _, instr := range b.Instrs {
			cp := instr
			cp.Operands = append([]il.Value{}, instr.Operands...)
			cp.Labels = append([]string{}, instr.Labels...)
			cp.BrArgs = make([][]il.Value, len(instr.BrArgs))
			for i, a := range instr.BrArgs {
				cp.BrArgs[i] = append([]il.Value{}, a...)
			}
			cp.DefaultArg = append([]il.Value{}, instr.DefaultArg...)
			substituteInstr(&cp, subst)
			merged = append(merged, cp)
		}
		pred.Instrs = merged
		removeBlock(fn, b.Label)
		return true
	}
	return false
}

// removeUnreachableBlocks erases every block not reachable from the entry
// by a BFS over successors, and strips dangling edges to erased labels
// from every surviving terminator.
func removeUnreachableBlocks(fn *il.Function) bool {
	cfg := analysis.ComputeCFG(fn).(*analysis.CFGInfo)
	visited := map[string]bool{}
	queue := []string{fn.Entry().Label}
	visited[fn.Entry().Label] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, s := range cfg.Succs[cur] {
			if !visited[s] {
				visited[s] = true
				queue = append(queue, s)
			}
		}
	}

	changed := false
	var kept []*il.BasicBlock
	for _, b := range fn.Blocks {
		if visited[b.Label] {
			kept = append(kept, b)
		} else {
			changed = true
		}
	}
	if !changed {
		return false
	}
	fn.Blocks = kept

	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		var labels []string
		var brArgs [][]il.Value
		var caseVals []int32
		for i, l := range term.Labels {
			if visited[l] {
				labels = append(labels, l)
				brArgs = append(brArgs, term.BrArgs[i])
				if i < len(term.CaseVals) {
					caseVals = append(caseVals, term.CaseVals[i])
				}
			}
		}
		term.Labels = labels
		term.BrArgs = brArgs
		term.CaseVals = caseVals
	}
	return true
}

// canonicalizeBlockParams drops a block parameter that receives the same
// value from every predecessor (substituting that value directly) or that
// is never referenced, trimming every incoming edge's argument vector in
// lockstep.
func canonicalizeBlockParams(fn *il.Function) bool {
	for _, b := range fn.Blocks {
		if b == fn.Entry() || len(b.Params) == 0 {
			continue
		}
		edges := incomingEdges(fn, b.Label)
		if len(edges) == 0 {
			continue
		}
		uses := useCounts(fn)

		for i, p := range b.Params {
			var uniform *il.Value
			allSame := true
			for _, e := range edges {
				args := e.args()
				if i >= len(args) {
					allSame = false
					break
				}
				if uniform == nil {
					v := args[i]
					uniform = &v
				} else if !uniform.Equal(args[i]) {
					allSame = false
					break
				}
			}

			unused := uses[p.ID] == 0

			if !allSame && !unused {
				continue
			}

			// Drop parameter i: substitute if uniform, then trim it and
			// every incoming edge's i-th argument.
			if allSame && uniform != nil {
				substituteBlock(b, map[int]il.Value{p.ID: *uniform})
			}
			b.Params = append(append([]il.BlockParam{}, b.Params[:i]...), b.Params[i+1:]...)
			for _, e := range edges {
				args := e.args()
				if i < len(args) {
					e.setTarget(e.label(), append(append([]il.Value{}, args[:i]...), args[i+1:]...))
				}
			}
			return true
		}
	}
	return false
}

// threadJumps implements aggressive-mode jump threading: if a predecessor
// passes a constant to a block parameter that is the sole operand of that
// block's cbr, and the block contains nothing but the cbr, the
// predecessor's terminator is rewritten to jump straight to the selected
// successor.
func threadJumps(fn *il.Function) bool {
	changed := false
	for _, b := range fn.Blocks {
		if sensitive(b) || len(b.Instrs) != 1 || b.Instrs[0].Op != il.OpCbr {
			continue
		}
		cbr := &b.Instrs[0]
		cond := cbr.Operands[0]
		if cond.Kind != il.VTemp {
			continue
		}
		paramIdx := -1
		for i, p := range b.Params {
			if p.ID == cond.ID {
				paramIdx = i
				break
			}
		}
		if paramIdx < 0 {
			continue
		}
		for _, e := range incomingEdges(fn, b.Label) {
			args := e.args()
			if paramIdx >= len(args) || args[paramIdx].Kind != il.VConstInt {
				continue
			}
			idx := 1
			if args[paramIdx].Int != 0 {
				idx = 0
			}
			edgeSubst := map[int]il.Value{}
			for i, p := range b.Params {
				if i < len(args) {
					edgeSubst[p.ID] = args[i]
				}
			}
			newArgs := make([]il.Value, len(cbr.BrArgs[idx]))
			for i, v := range cbr.BrArgs[idx] {
				newArgs[i] = substitute(v, edgeSubst)
			}
			e.setTarget(cbr.Labels[idx], newArgs)
			changed = true
		}
	}
	return changed
}
