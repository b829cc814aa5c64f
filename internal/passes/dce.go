package passes

import (
	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/vmruntime"
)

// DCE returns a function pass implementing spec §4.5.b: trivial dead-code
// elimination. It removes unused loads, stores to never-loaded allocas,
// never-loaded allocas themselves, unused pure calls, and unused block
// parameters (trimming predecessor branch-argument vectors in lockstep).
// effects is the helper-effect registry consulted for call purity;
// unknown callees are treated conservatively as impure.
func DCE(effects *vmruntime.Registry) func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
	return func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
		changed := false
		for {
			if dceIteration(fn, effects) {
				changed = true
				continue
			}
			break
		}
		if changed {
			return analysis.PreservedNone()
		}
		return analysis.PreservedAll()
	}
}

func dceIteration(fn *il.Function, effects *vmruntime.Registry) bool {
	uses := useCounts(fn)
	changed := false

	loadedAllocas := map[int]bool{}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == il.OpLoad && instr.Operands[0].Kind == il.VTemp {
				loadedAllocas[instr.Operands[0].ID] = true
			}
		}
	}

	allocaDefs := map[int]bool{}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == il.OpAlloca && instr.HasResult {
				allocaDefs[instr.Result] = true
			}
		}
	}

	for _, b := range fn.Blocks {
		var kept []il.Instr
		for _, instr := range b.Instrs {
			if instr.IsTerminator() {
				kept = append(kept, instr)
				continue
			}
			if isDeadInstr(instr, uses, loadedAllocas, allocaDefs, effects) {
				changed = true
				continue
			}
			kept = append(kept, instr)
		}
		b.Instrs = kept
	}

	if removeUnusedBlockParams(fn, uses) {
		changed = true
	}

	return changed
}

func isDeadInstr(instr il.Instr, uses map[int]int, loadedAllocas, allocaDefs map[int]bool, effects *vmruntime.Registry) bool {
	unused := !instr.HasResult || uses[instr.Result] == 0

	switch instr.Op {
	case il.OpLoad:
		return unused
	case il.OpStore:
		if instr.Operands[0].Kind != il.VTemp {
			return false
		}
		ptrID := instr.Operands[0].ID
		return allocaDefs[ptrID] && !loadedAllocas[ptrID]
	case il.OpAlloca:
		return instr.HasResult && !loadedAllocas[instr.Result]
	case il.OpCall:
		if !unused {
			return false
		}
		return effects.IsPure(instr.Callee)
	default:
		// Spec §4.5.b's removal list is closed: loads, dead-alloca stores,
		// dead allocas, unused pure calls, and unused block params. Every
		// other opcode survives even when unused — arithmetic that can
		// trap (sdiv.chk0, .ovf adds, cast.*.chk, ...) must not be deleted
		// just because its result is dead, or ConstFold's refusal to fold
		// a trapping operation gets silently undone here instead.
		return false
	}
}

// removeUnusedBlockParams drops block parameters with zero uses,
// trimming every incoming edge's argument vector in lockstep, using the
// precomputed use-count map to avoid rescanning per parameter.
func removeUnusedBlockParams(fn *il.Function, uses map[int]int) bool {
	changed := false
	for _, b := range fn.Blocks {
		if b == fn.Entry() || len(b.Params) == 0 {
			continue
		}
		var keepIdx []int
		var keptParams []il.BlockParam
		for i, p := range b.Params {
			if uses[p.ID] > 0 {
				keepIdx = append(keepIdx, i)
				keptParams = append(keptParams, p)
			}
		}
		if len(keptParams) == len(b.Params) {
			continue
		}
		b.Params = keptParams
		for _, e := range incomingEdges(fn, b.Label) {
			args := e.args()
			var newArgs []il.Value
			for _, i := range keepIdx {
				if i < len(args) {
					newArgs = append(newArgs, args[i])
				}
			}
			e.setTarget(e.label(), newArgs)
		}
		changed = true
	}
	return changed
}
