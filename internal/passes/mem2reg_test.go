package passes

import (
	"testing"

	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
)

func TestMem2Reg_StraightLinePromotion(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpAlloca, HasResult: true, Result: 0, ResultType: il.Ptr, AllocType: il.I64},
		il.Instr{Op: il.OpStore, StoreType: il.I64, Operands: []il.Value{il.Temp(0), il.ConstInt(42)}},
		il.Instr{Op: il.OpLoad, HasResult: true, Result: 1, ResultType: il.I64, Operands: []il.Value{il.Temp(0)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.Temp(1)}},
	)
	stats := &Mem2RegStats{}
	Mem2Reg(stats)(fn, analysis.NewManager())
	if stats.PromotedVars != 1 || stats.RemovedLoads != 1 || stats.RemovedStores != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	for _, instr := range fn.Blocks[0].Instrs {
		if instr.Op == il.OpAlloca || instr.Op == il.OpLoad || instr.Op == il.OpStore {
			t.Errorf("promoted alloca/load/store should be gone, found %v", instr.Op)
		}
	}
	ret := fn.Blocks[0].Instrs[len(fn.Blocks[0].Instrs)-1]
	if ret.Operands[0].Kind != il.VConstInt || ret.Operands[0].Int != 42 {
		t.Errorf("expected ret to carry the stored value directly, got %v", ret.Operands[0])
	}
}

func TestMem2Reg_InsertsBlockParamAtMergePoint(t *testing.T) {
	fn := &il.Function{
		Name:    "f",
		RetType: il.I64,
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{
				{Op: il.OpAlloca, HasResult: true, Result: 0, ResultType: il.Ptr, AllocType: il.I64},
				{Op: il.OpCbr, Operands: []il.Value{il.ConstBool(true)}, Labels: []string{"a", "b"}, BrArgs: [][]il.Value{{}, {}}},
			}},
			{Label: "a", Instrs: []il.Instr{
				{Op: il.OpStore, StoreType: il.I64, Operands: []il.Value{il.Temp(0), il.ConstInt(1)}},
				{Op: il.OpBr, Labels: []string{"join"}, BrArgs: [][]il.Value{{}}},
			}},
			{Label: "b", Instrs: []il.Instr{
				{Op: il.OpStore, StoreType: il.I64, Operands: []il.Value{il.Temp(0), il.ConstInt(2)}},
				{Op: il.OpBr, Labels: []string{"join"}, BrArgs: [][]il.Value{{}}},
			}},
			{Label: "join", Instrs: []il.Instr{
				{Op: il.OpLoad, HasResult: true, Result: 1, ResultType: il.I64, Operands: []il.Value{il.Temp(0)}},
				{Op: il.OpRet, Operands: []il.Value{il.Temp(1)}},
			}},
		},
		NextID: 10,
	}
	Mem2Reg(nil)(fn, analysis.NewManager())
	join := fn.Block("join")
	if len(join.Params) != 1 {
		t.Fatalf("expected join to gain one block parameter, got %v", join.Params)
	}
	for _, instr := range join.Instrs {
		if instr.Op == il.OpLoad {
			t.Error("load at the merge point should have been promoted to the new block parameter")
		}
	}
}

func TestMem2Reg_AbortsOnUninitializedRead(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpAlloca, HasResult: true, Result: 0, ResultType: il.Ptr, AllocType: il.I64},
		il.Instr{Op: il.OpLoad, HasResult: true, Result: 1, ResultType: il.I64, Operands: []il.Value{il.Temp(0)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.Temp(1)}},
	)
	Mem2Reg(nil)(fn, analysis.NewManager())
	hasAlloca := false
	for _, instr := range fn.Blocks[0].Instrs {
		if instr.Op == il.OpAlloca {
			hasAlloca = true
		}
	}
	if !hasAlloca {
		t.Error("an alloca with an uninitialized read must be left unpromoted")
	}
}

func TestMem2Reg_SkipsNonPromotableEscapingAlloca(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpAlloca, HasResult: true, Result: 0, ResultType: il.Ptr, AllocType: il.I64},
		il.Instr{Op: il.OpCall, Callee: "rt_takes_ptr", Operands: []il.Value{il.Temp(0)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.ConstInt(0)}},
	)
	Mem2Reg(nil)(fn, analysis.NewManager())
	hasAlloca := false
	for _, instr := range fn.Blocks[0].Instrs {
		if instr.Op == il.OpAlloca {
			hasAlloca = true
		}
	}
	if !hasAlloca {
		t.Error("an alloca whose address escapes through a call argument must not be promoted")
	}
}
