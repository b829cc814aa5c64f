package passes

import (
	"testing"

	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
)

func singleBlockFn(instrs ...il.Instr) *il.Function {
	return &il.Function{
		Name:    "f",
		RetType: il.I64,
		Blocks:  []*il.BasicBlock{{Label: "entry", Instrs: instrs}},
		NextID:  100,
	}
}

func TestConstFold_FoldsAdd(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpAdd, HasResult: true, Result: 0, ResultType: il.I64, Operands: []il.Value{il.ConstInt(2), il.ConstInt(3)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
	)
	ConstFold()(fn, analysis.NewManager())
	if len(fn.Blocks[0].Instrs) != 1 {
		t.Fatalf("expected add instruction folded away, got %d instrs", len(fn.Blocks[0].Instrs))
	}
	ret := fn.Blocks[0].Instrs[0]
	if ret.Operands[0].Kind != il.VConstInt || ret.Operands[0].Int != 5 {
		t.Errorf("expected ret 5, got %v", ret.Operands[0])
	}
}

// Spec §8 S4: a checked divide by a literal zero must survive ConstFold
// unfolded so the VM traps at runtime.
func TestConstFold_NeverFoldsDivByZero(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpSDivChk0, HasResult: true, Result: 0, ResultType: il.I64, Operands: []il.Value{il.ConstInt(10), il.ConstInt(0)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
	)
	ConstFold()(fn, analysis.NewManager())
	if len(fn.Blocks[0].Instrs) != 2 {
		t.Fatalf("sdiv.chk0 by zero must not be folded, got %d instrs", len(fn.Blocks[0].Instrs))
	}
}

func TestConstFold_NeverFoldsMinIntDivNegOne(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpSDivChk0, HasResult: true, Result: 0, ResultType: il.I64, Operands: []il.Value{il.ConstInt(-9223372036854775808), il.ConstInt(-1)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
	)
	ConstFold()(fn, analysis.NewManager())
	if len(fn.Blocks[0].Instrs) != 2 {
		t.Fatal("INT_MIN / -1 must not be folded")
	}
}

func TestConstFold_NeverFoldsNonFiniteFloatResult(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpFDiv, HasResult: true, Result: 0, ResultType: il.F64, Operands: []il.Value{il.ConstFloat(1), il.ConstFloat(0)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
	)
	ConstFold()(fn, analysis.NewManager())
	if len(fn.Blocks[0].Instrs) != 2 {
		t.Fatal("1.0/0.0 (infinite result) must not be folded")
	}
}

func TestConstFold_FoldsPureHelperCall(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpCall, Callee: "rt_abs_i64", HasResult: true, Result: 0, ResultType: il.I64, Operands: []il.Value{il.ConstInt(-7)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
	)
	ConstFold()(fn, analysis.NewManager())
	ret := fn.Blocks[0].Instrs[len(fn.Blocks[0].Instrs)-1]
	if ret.Operands[0].Kind != il.VConstInt || ret.Operands[0].Int != 7 {
		t.Errorf("expected rt_abs_i64(-7) folded to 7, got %v", ret.Operands[0])
	}
}

func TestConstFold_PreservedAllWhenNothingChanges(t *testing.T) {
	fn := singleBlockFn(il.Instr{Op: il.OpRet, Operands: []il.Value{il.ConstInt(1)}})
	p := ConstFold()(fn, analysis.NewManager())
	if !p.All {
		t.Error("expected PreservedAll when no instruction folds")
	}
}

func TestConstFold_PreservedNoneWhenSomethingChanges(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpAdd, HasResult: true, Result: 0, ResultType: il.I64, Operands: []il.Value{il.ConstInt(1), il.ConstInt(1)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
	)
	p := ConstFold()(fn, analysis.NewManager())
	if p.All {
		t.Error("expected non-all preservation once an instruction was folded")
	}
}
