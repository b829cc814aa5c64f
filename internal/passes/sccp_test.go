package passes

import (
	"testing"

	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
)

func TestSCCP_PropagatesConstantThroughStraightLine(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpAdd, HasResult: true, Result: 0, ResultType: il.I64, Operands: []il.Value{il.ConstInt(1), il.ConstInt(2)}},
		il.Instr{Op: il.OpAdd, HasResult: true, Result: 1, ResultType: il.I64, Operands: []il.Value{il.Temp(0), il.ConstInt(10)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.Temp(1)}},
	)
	SCCP()(fn, analysis.NewManager())
	ret := fn.Blocks[0].Instrs[len(fn.Blocks[0].Instrs)-1]
	if ret.Operands[0].Kind != il.VConstInt || ret.Operands[0].Int != 13 {
		t.Errorf("expected chained adds folded to 13, got %v", ret.Operands[0])
	}
}

func TestSCCP_JoinsBlockParamToConstantWhenUniform(t *testing.T) {
	fn := &il.Function{
		Name:    "f",
		RetType: il.I64,
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{Op: il.OpCbr, Operands: []il.Value{il.ConstBool(true)}, Labels: []string{"a", "b"}, BrArgs: [][]il.Value{{}, {}}}}},
			{Label: "a", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"join"}, BrArgs: [][]il.Value{{il.ConstInt(9)}}}}},
			{Label: "b", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"join"}, BrArgs: [][]il.Value{{il.ConstInt(9)}}}}},
			{Label: "join", Params: []il.BlockParam{{ID: 0, Name: "x", Type: il.I64}}, Instrs: []il.Instr{
				{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
			}},
		},
	}
	SCCP()(fn, analysis.NewManager())
	join := fn.Block("join")
	ret := join.Instrs[len(join.Instrs)-1]
	if ret.Operands[0].Kind != il.VConstInt || ret.Operands[0].Int != 9 {
		t.Errorf("expected join's param folded to the uniform constant 9, got %v", ret.Operands[0])
	}
}

func TestSCCP_OverdefinedWhenEdgesDisagree(t *testing.T) {
	fn := &il.Function{
		Name:    "f",
		RetType: il.I64,
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{Op: il.OpCbr, Operands: []il.Value{il.Temp(1)}, Labels: []string{"a", "b"}, BrArgs: [][]il.Value{{}, {}}}}},
			{Label: "a", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"join"}, BrArgs: [][]il.Value{{il.ConstInt(9)}}}}},
			{Label: "b", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"join"}, BrArgs: [][]il.Value{{il.ConstInt(10)}}}}},
			{Label: "join", Params: []il.BlockParam{{ID: 0, Name: "x", Type: il.I64}}, Instrs: []il.Instr{
				{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
			}},
		},
	}
	// The condition is a parameter, so both arms are executable.
	fn.Params = []il.Param{{ID: 1, Name: "c", Type: il.I1}}
	SCCP()(fn, analysis.NewManager())
	join := fn.Block("join")
	ret := join.Instrs[len(join.Instrs)-1]
	if ret.Operands[0].Kind == il.VConstInt {
		t.Errorf("disagreeing edges must leave the param overdefined, got folded to %v", ret.Operands[0])
	}
}

// SCCP must reuse ConstFold's trap-safety rules: it never substitutes a
// value that would require folding a trapping division.
func TestSCCP_NeverFoldsTrappingDivision(t *testing.T) {
	fn := singleBlockFn(
		il.Instr{Op: il.OpSDivChk0, HasResult: true, Result: 0, ResultType: il.I64, Operands: []il.Value{il.ConstInt(10), il.ConstInt(0)}},
		il.Instr{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
	)
	SCCP()(fn, analysis.NewManager())
	if len(fn.Blocks[0].Instrs) != 2 {
		t.Fatal("sdiv.chk0 by zero must survive SCCP unfolded")
	}
}

func TestSCCP_DoesNotMarkUnreachableEdgeExecutable(t *testing.T) {
	fn := &il.Function{
		Name:    "f",
		RetType: il.I64,
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{Op: il.OpCbr, Operands: []il.Value{il.ConstBool(true)}, Labels: []string{"a", "b"}, BrArgs: [][]il.Value{{}, {}}}}},
			{Label: "a", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"join"}, BrArgs: [][]il.Value{{il.ConstInt(1)}}}}},
			{Label: "b", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"join"}, BrArgs: [][]il.Value{{il.ConstInt(2)}}}}},
			{Label: "join", Params: []il.BlockParam{{ID: 0, Name: "x", Type: il.I64}}, Instrs: []il.Instr{
				{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
			}},
		},
	}
	values, executable := runSCCP(fn)
	if executable["b"] {
		t.Error("the false arm of a provably-true cbr must not be marked executable")
	}
	if values[0].kind != latConst || values[0].val.Int != 1 {
		t.Errorf("join's param should resolve to the constant from the sole executable edge, got %v", values[0])
	}
}
