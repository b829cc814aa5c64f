package analysis

import (
	"testing"

	"github.com/viper-lang/viper/internal/il"
)

func diamondFn() *il.Function {
	return &il.Function{
		Name: "f",
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{Op: il.OpCbr, Operands: []il.Value{il.ConstBool(true)}, Labels: []string{"a", "b"}, BrArgs: [][]il.Value{{}, {}}}}},
			{Label: "a", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"join"}, BrArgs: [][]il.Value{{}}}}},
			{Label: "b", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"join"}, BrArgs: [][]il.Value{{}}}}},
			{Label: "join", Instrs: []il.Instr{{Op: il.OpRet}}},
		},
	}
}

func TestComputeCFG(t *testing.T) {
	info := ComputeCFG(diamondFn()).(*CFGInfo)
	if len(info.Succs["entry"]) != 2 {
		t.Errorf("entry should have 2 successors, got %v", info.Succs["entry"])
	}
	if len(info.Preds["join"]) != 2 {
		t.Errorf("join should have 2 predecessors, got %v", info.Preds["join"])
	}
}

func TestManager_CachesAndRecomputesOnce(t *testing.T) {
	m := NewManager()
	calls := 0
	m.RegisterFunction("cfg2", func(fn *il.Function) any {
		calls++
		return ComputeCFG(fn)
	})
	fn := diamondFn()
	m.GetFunctionResult("cfg2", fn)
	m.GetFunctionResult("cfg2", fn)
	m.GetFunctionResult("cfg2", fn)
	if calls != 1 {
		t.Errorf("compute function called %d times, want 1 (cached)", calls)
	}
	if m.FuncRecomputes != 1 {
		t.Errorf("FuncRecomputes = %d, want 1", m.FuncRecomputes)
	}
}

func TestManager_InvalidatePreservedAllKeepsCache(t *testing.T) {
	m := NewManager()
	calls := 0
	m.RegisterFunction("cfg2", func(fn *il.Function) any {
		calls++
		return ComputeCFG(fn)
	})
	fn := diamondFn()
	m.GetFunctionResult("cfg2", fn)
	m.Invalidate(PreservedAll(), false)
	m.GetFunctionResult("cfg2", fn)
	if calls != 1 {
		t.Errorf("PreservedAll should not cause recompute, got %d calls", calls)
	}
}

func TestManager_InvalidatePreservedNoneDropsCache(t *testing.T) {
	m := NewManager()
	calls := 0
	m.RegisterFunction("cfg2", func(fn *il.Function) any {
		calls++
		return ComputeCFG(fn)
	})
	fn := diamondFn()
	m.GetFunctionResult("cfg2", fn)
	m.Invalidate(PreservedNone(), false)
	m.GetFunctionResult("cfg2", fn)
	if calls != 2 {
		t.Errorf("PreservedNone should force recompute, got %d calls", calls)
	}
}

func TestManager_ModulePassInvalidatesEveryFunctionAnalysis(t *testing.T) {
	m := NewManager()
	calls := 0
	m.RegisterFunction("cfg2", func(fn *il.Function) any {
		calls++
		return ComputeCFG(fn)
	})
	fn := diamondFn()
	m.GetFunctionResult("cfg2", fn)
	// A module pass that preserves only an unrelated analysis name must
	// still invalidate every function-scoped analysis, per spec §4.3.
	m.Invalidate(PreservedOnly("some-other-analysis"), true)
	m.GetFunctionResult("cfg2", fn)
	if calls != 2 {
		t.Errorf("module-pass invalidation should drop function analyses regardless of name, got %d calls", calls)
	}
}

func TestManager_PreservedOnlyKeepsNamedAnalysis(t *testing.T) {
	m := NewManager()
	calls := 0
	m.RegisterFunction("cfg2", func(fn *il.Function) any {
		calls++
		return ComputeCFG(fn)
	})
	fn := diamondFn()
	m.GetFunctionResult("cfg2", fn)
	m.Invalidate(PreservedOnly("cfg2"), false)
	m.GetFunctionResult("cfg2", fn)
	if calls != 1 {
		t.Errorf("a preserved-by-name analysis must survive invalidation, got %d calls", calls)
	}
}

func TestPreserved_Keeps(t *testing.T) {
	if !PreservedAll().Keeps("anything") {
		t.Error("PreservedAll should keep any id")
	}
	if PreservedNone().Keeps("cfg") {
		t.Error("PreservedNone should keep nothing")
	}
	if !PreservedOnly("cfg").Keeps("cfg") || PreservedOnly("cfg").Keeps("liveness") {
		t.Error("PreservedOnly should keep exactly the named ids")
	}
}

func TestComputeLiveness_SimpleChain(t *testing.T) {
	// entry defines %0, body uses it; %0 must be live-out of entry.
	fn := &il.Function{
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{
				{Op: il.OpAdd, HasResult: true, Result: 0, ResultType: il.I64, Operands: []il.Value{il.ConstInt(1), il.ConstInt(2)}},
				{Op: il.OpBr, Labels: []string{"body"}, BrArgs: [][]il.Value{{}}},
			}},
			{Label: "body", Instrs: []il.Instr{
				{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
			}},
		},
	}
	info := ComputeLiveness(fn).(*LivenessInfo)
	if !info.LiveOut["entry"][0] {
		t.Error("%0 should be live-out of entry (used later in body)")
	}
	if !info.LiveIn["body"][0] {
		t.Error("%0 should be live-in to body")
	}
}
