package passes

import (
	"testing"

	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/vmruntime"
)

// Spec §8 S5: an unused pure call is elided while an unused impure call
// (with externally visible side effects) is retained.
func TestDCE_ElidesUnusedPureCallButKeepsImpureCall(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpCall, Callee: "rt_sqrt", HasResult: true, Result: 0, ResultType: il.F64, Operands: []il.Value{il.ConstFloat(4)}},
		il.Instr{Op: il.OpCall, Callee: "rt_print_i64", Operands: []il.Value{il.ConstInt(1)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.ConstInt(0)}},
	)
	DCE(vmruntime.Default())(fn, analysis.NewManager())
	for _, instr := range fn.Blocks[0].Instrs {
		if instr.Callee == "rt_sqrt" {
			t.Error("unused pure call should have been eliminated")
		}
	}
	found := false
	for _, instr := range fn.Blocks[0].Instrs {
		if instr.Callee == "rt_print_i64" {
			found = true
		}
	}
	if !found {
		t.Error("impure call must be retained even though its result is unused")
	}
}

func TestDCE_RemovesUnusedLoad(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpAlloca, HasResult: true, Result: 0, ResultType: il.Ptr, AllocType: il.I64},
		il.Instr{Op: il.OpStore, StoreType: il.I64, Operands: []il.Value{il.Temp(0), il.ConstInt(5)}},
		il.Instr{Op: il.OpLoad, HasResult: true, Result: 1, ResultType: il.I64, Operands: []il.Value{il.Temp(0)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.ConstInt(0)}},
	)
	DCE(vmruntime.Default())(fn, analysis.NewManager())
	for _, instr := range fn.Blocks[0].Instrs {
		if instr.Op == il.OpLoad || instr.Op == il.OpStore || instr.Op == il.OpAlloca {
			t.Errorf("unused alloca/store/load chain should be fully eliminated, found %v", instr.Op)
		}
	}
}

func TestDCE_RemovesUnusedBlockParamAndTrimsBranchArgs(t *testing.T) {
	fn := &il.Function{
		Name:    "f",
		RetType: il.I64,
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"exit"}, BrArgs: [][]il.Value{{il.ConstInt(1), il.ConstInt(2)}}}}},
			{Label: "exit", Params: []il.BlockParam{{ID: 0, Name: "used", Type: il.I64}, {ID: 1, Name: "unused", Type: il.I64}}, Instrs: []il.Instr{
				{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
			}},
		},
	}
	DCE(vmruntime.Default())(fn, analysis.NewManager())
	exit := fn.Block("exit")
	if len(exit.Params) != 1 {
		t.Fatalf("expected one surviving param, got %d", len(exit.Params))
	}
	entryTerm := fn.Blocks[0].Terminator()
	if len(entryTerm.BrArgs[0]) != 1 {
		t.Errorf("expected branch args trimmed in lockstep, got %v", entryTerm.BrArgs[0])
	}
}

// An unused trapping op must survive DCE: spec §4.5.b's removal list does
// not include arithmetic, so deleting it would silently turn a trap into
// a no-op.
func TestDCE_KeepsUnusedTrappingDivide(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpSDivChk0, HasResult: true, Result: 0, ResultType: il.I64, Operands: []il.Value{il.ConstInt(10), il.ConstInt(0)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.ConstInt(0)}},
	)
	DCE(vmruntime.Default())(fn, analysis.NewManager())
	found := false
	for _, instr := range fn.Blocks[0].Instrs {
		if instr.Op == il.OpSDivChk0 {
			found = true
		}
	}
	if !found {
		t.Error("unused trapping divide must not be eliminated by DCE")
	}
}

func TestDCE_PreservedAllWhenNothingRemoved(t *testing.T) {
	fn := singleBlockFn(il.Instr{Op: il.OpRet, Operands: []il.Value{il.ConstInt(1)}})
	p := DCE(vmruntime.Default())(fn, analysis.NewManager())
	if !p.All {
		t.Error("expected PreservedAll when DCE removes nothing")
	}
}
