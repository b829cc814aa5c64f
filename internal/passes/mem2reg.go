package passes

import (
	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
)

// Mem2RegStats accumulates the optional promotion statistics spec §4.5.f
// names (surfaced by the --mem2reg-stats CLI flag). A nil *Mem2RegStats
// passed to Mem2Reg disables collection.
type Mem2RegStats struct {
	PromotedVars  int
	RemovedLoads  int
	RemovedStores int
}

// Mem2Reg returns a function pass implementing spec §4.5.f: stack-slot
// promotion. An alloca is promotable when every use of its address is
// either the pointer operand of a load or of a store — no gep, call
// argument, branch argument, or stored-as-value use may reference it.
// Promotion rewrites the function to carry the slot's value directly in
// SSA form, inserting a block parameter at every block with other than
// exactly one predecessor (a trivial, always-correct placement; any
// parameter that turns out to receive the same value from every
// predecessor is removed later by SimplifyCFG's canonicalizeBlockParams).
//
// A load with no preceding store in the entry block or in a chain of
// single-predecessor blocks reached from it aborts promotion of that one
// alloca, which is then left in place. Where a block receives a
// parameter, an incoming edge with no preceding store passes the zero
// value of the slot's type.
func Mem2Reg(stats *Mem2RegStats) func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
	return func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
		changed := false
		rejected := map[int]bool{}
		for {
			id, typ, ok := findPromotableAlloca(fn, rejected)
			if !ok {
				break
			}
			if promoteAlloca(fn, id, typ, stats) {
				changed = true
			} else {
				// Uninitialized-read abort: remember it so we don't retry
				// the same alloca forever.
				rejected[id] = true
			}
		}
		if changed {
			return analysis.PreservedNone()
		}
		return analysis.PreservedAll()
	}
}

func findPromotableAlloca(fn *il.Function, rejected map[int]bool) (int, il.Type, bool) {
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op != il.OpAlloca || !instr.HasResult || rejected[instr.Result] {
				continue
			}
			if isPromotable(fn, instr.Result) {
				return instr.Result, instr.AllocType, true
			}
		}
	}
	return 0, il.Void, false
}

func isPromotable(fn *il.Function, id int) bool {
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			switch instr.Op {
			case il.OpLoad:
				if instr.Operands[0].Kind == il.VTemp && instr.Operands[0].ID == id {
					continue
				}
			case il.OpStore:
				if instr.Operands[0].Kind == il.VTemp && instr.Operands[0].ID == id {
					if instr.Operands[1].Kind == il.VTemp && instr.Operands[1].ID == id {
						return false // storing the address through itself: escapes
					}
					continue
				}
			case il.OpAlloca:
				continue
			}
			if instrReferences(instr, id) {
				return false
			}
		}
	}
	return true
}

// instrReferences reports whether id appears anywhere in instr as a VTemp
// operand, branch argument, or default-case argument.
func instrReferences(instr il.Instr, id int) bool {
	for _, op := range instr.Operands {
		if op.Kind == il.VTemp && op.ID == id {
			return true
		}
	}
	for _, args := range instr.BrArgs {
		for _, a := range args {
			if a.Kind == il.VTemp && a.ID == id {
				return true
			}
		}
	}
	for _, a := range instr.DefaultArg {
		if a.Kind == il.VTemp && a.ID == id {
			return true
		}
	}
	return false
}

// promoteAlloca rewrites fn so that alloca id's value lives directly in
// SSA form, returning false (leaving fn unmodified) if an uninitialized
// read is detected.
func promoteAlloca(fn *il.Function, id int, typ il.Type, stats *Mem2RegStats) bool {
	cfg := analysis.ComputeCFG(fn).(*analysis.CFGInfo)
	entry := fn.Entry()

	needsParam := map[string]bool{}
	paramID := map[string]int{}
	for _, b := range fn.Blocks {
		if b == entry {
			continue
		}
		if len(cfg.Preds[b.Label]) != 1 {
			needsParam[b.Label] = true
		}
	}

	exitValue := map[string]*il.Value{}
	uninitialized := false

	computeExit := func(b *il.BasicBlock) *il.Value {
		var cur *il.Value
		switch {
		case b == entry:
			cur = nil
		case needsParam[b.Label]:
			if _, ok := paramID[b.Label]; !ok {
				paramID[b.Label] = fn.FreshID()
			}
			v := il.Temp(paramID[b.Label])
			cur = &v
		default:
			preds := cfg.Preds[b.Label]
			if len(preds) == 1 {
				cur = exitValue[preds[0]]
			}
		}
		for _, instr := range b.Instrs {
			switch instr.Op {
			case il.OpStore:
				if instr.Operands[0].Kind == il.VTemp && instr.Operands[0].ID == id {
					v := instr.Operands[1]
					cur = &v
				}
			case il.OpLoad:
				if instr.Operands[0].Kind == il.VTemp && instr.Operands[0].ID == id && cur == nil {
					uninitialized = true
				}
			}
		}
		return cur
	}

	for range fn.Blocks {
		changed := false
		for _, b := range fn.Blocks {
			v := computeExit(b)
			prev, had := exitValue[b.Label]
			if v != nil && (!had || prev == nil) {
				exitValue[b.Label] = v
				changed = true
			}
		}
		if uninitialized || !changed {
			break
		}
	}
	if uninitialized {
		return false
	}

	// Rewrite loads/stores to substituted values, tracking each load's
	// value-at-that-point as we re-walk each block in instruction order.
	subst := map[int]il.Value{}
	removedLoads, removedStores := 0, 0
	for _, b := range fn.Blocks {
		var cur *il.Value
		switch {
		case b == entry:
			cur = nil
		case needsParam[b.Label]:
			v := il.Temp(paramID[b.Label])
			cur = &v
		default:
			preds := cfg.Preds[b.Label]
			if len(preds) == 1 {
				cur = exitValue[preds[0]]
			}
		}

		var kept []il.Instr
		for _, instr := range b.Instrs {
			switch instr.Op {
			case il.OpStore:
				if instr.Operands[0].Kind == il.VTemp && instr.Operands[0].ID == id {
					v := instr.Operands[1]
					cur = &v
					removedStores++
					continue
				}
			case il.OpLoad:
				if instr.Operands[0].Kind == il.VTemp && instr.Operands[0].ID == id {
					subst[instr.Result] = *cur
					removedLoads++
					continue
				}
			case il.OpAlloca:
				if instr.HasResult && instr.Result == id {
					continue
				}
			}
			kept = append(kept, instr)
		}
		b.Instrs = kept

		if needsParam[b.Label] {
			b.Params = append(b.Params, il.BlockParam{ID: paramID[b.Label], Name: "", Type: typ})
		}
	}

	// Patch every incoming edge of a param-bearing block with the
	// predecessor's resolved exit value.
	for label := range needsParam {
		for _, e := range incomingEdges(fn, label) {
			predLabel := e.block.Label
			v := exitValue[predLabel]
			var arg il.Value
			if v != nil {
				arg = *v
			} else {
				arg = zeroValueOf(typ)
			}
			e.setTarget(e.label(), append(append([]il.Value{}, e.args()...), arg))
		}
	}

	for _, b := range fn.Blocks {
		substituteBlock(b, subst)
	}

	if stats != nil {
		stats.PromotedVars++
		stats.RemovedLoads += removedLoads
		stats.RemovedStores += removedStores
	}
	return true
}

func zeroValueOf(t il.Type) il.Value {
	if t.IsFloat() {
		return il.ConstFloat(0)
	}
	if t == il.Ptr {
		return il.Null()
	}
	return il.ConstInt(0)
}
