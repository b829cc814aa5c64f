package passes

import (
	"testing"

	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
)

func twoBlockFn(entryTerm il.Instr) *il.Function {
	return &il.Function{
		Name:    "f",
		RetType: il.I64,
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{entryTerm}},
			{Label: "a", Instrs: []il.Instr{{Op: il.OpRet, Operands: []il.Value{il.ConstInt(1)}}}},
			{Label: "b", Instrs: []il.Instr{{Op: il.OpRet, Operands: []il.Value{il.ConstInt(2)}}}},
		},
	}
}

// Spec §8 S1: a cbr on a literal constant folds to an unconditional branch
// and removeUnreachableBlocks prunes the untaken arm. The two steps are
// called directly: the full SimplifyCFG fixed point goes on to merge 'a'
// into entry.
func TestSimplifyCFG_FoldsConstantCbrAndPrunesDeadArm(t *testing.T) {
	fn := twoBlockFn(il.Instr{Op: il.OpCbr, Operands: []il.Value{il.ConstBool(true)}, Labels: []string{"a", "b"}, BrArgs: [][]il.Value{{}, {}}})
	foldTrivialCbr(fn)
	removeUnreachableBlocks(fn)
	if fn.Block("b") != nil {
		t.Error("unreachable block 'b' should have been removed")
	}
	if fn.Block("a") == nil {
		t.Error("reachable block 'a' must survive")
	}
	term := fn.Blocks[0].Terminator()
	if term.Op != il.OpBr || term.Labels[0] != "a" {
		t.Errorf("expected entry to branch directly to a, got %v", term)
	}
}

// Spec §8 S2: a block whose sole instruction is an unconditional branch is
// removed and its predecessors rewired directly to its successor. The
// step is called directly: the full SimplifyCFG fixed point goes on to
// merge 'exit' into entry.
func TestSimplifyCFG_RemovesEmptyForwarder(t *testing.T) {
	fn := &il.Function{
		Name:    "f",
		RetType: il.I64,
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"fwd"}, BrArgs: [][]il.Value{{}}}}},
			{Label: "fwd", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"exit"}, BrArgs: [][]il.Value{{}}}}},
			{Label: "exit", Instrs: []il.Instr{{Op: il.OpRet, Operands: []il.Value{il.ConstInt(0)}}}},
		},
	}
	removeEmptyForwarders(fn)
	if fn.Block("fwd") != nil {
		t.Error("empty forwarder block should have been removed")
	}
	term := fn.Blocks[0].Terminator()
	if term.Labels[0] != "exit" {
		t.Errorf("entry should branch straight to exit, got %v", term.Labels)
	}
}

func TestSimplifyCFG_FoldsTrivialSwitch(t *testing.T) {
	fn := &il.Function{
		Name:    "f",
		RetType: il.I64,
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{
				Op: il.OpSwitchI32, Operands: []il.Value{il.ConstInt(3)},
				Labels: []string{"same", "same"}, BrArgs: [][]il.Value{{}, {}}, CaseVals: []int32{0, 1},
				Default: "same", DefaultArg: []il.Value{},
			}}},
			{Label: "same", Instrs: []il.Instr{{Op: il.OpRet, Operands: []il.Value{il.ConstInt(9)}}}},
		},
	}
	SimplifyCFG(false)(fn, analysis.NewManager())
	term := fn.Blocks[0].Terminator()
	if term.Op != il.OpBr {
		t.Errorf("uniform switch should fold to an unconditional branch, got %v", term.Op)
	}
}

func TestSimplifyCFG_MergesSinglePredecessor(t *testing.T) {
	fn := &il.Function{
		Name:    "f",
		RetType: il.I64,
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"body"}, BrArgs: [][]il.Value{{}}}}},
			{Label: "body", Instrs: []il.Instr{
				{Op: il.OpAdd, HasResult: true, Result: 0, ResultType: il.I64, Operands: []il.Value{il.ConstInt(1), il.ConstInt(2)}},
				{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
			}},
		},
	}
	SimplifyCFG(false)(fn, analysis.NewManager())
	if len(fn.Blocks) != 1 {
		t.Fatalf("expected entry+body merged into one block, got %d blocks", len(fn.Blocks))
	}
}

func TestSimplifyCFG_JumpThreadingOnlyInAggressiveMode(t *testing.T) {
	build := func() *il.Function {
		return &il.Function{
			Name:    "f",
			RetType: il.I64,
			Blocks: []*il.BasicBlock{
				{Label: "entry", Instrs: []il.Instr{{Op: il.OpBr, Labels: []string{"gate"}, BrArgs: [][]il.Value{{il.ConstBool(true)}}}}},
				{Label: "gate", Params: []il.BlockParam{{ID: 0, Name: "c", Type: il.I1}}, Instrs: []il.Instr{
					{Op: il.OpCbr, Operands: []il.Value{il.Temp(0)}, Labels: []string{"a", "b"}, BrArgs: [][]il.Value{{}, {}}},
				}},
				{Label: "a", Instrs: []il.Instr{{Op: il.OpRet, Operands: []il.Value{il.ConstInt(1)}}}},
				{Label: "b", Instrs: []il.Instr{{Op: il.OpRet, Operands: []il.Value{il.ConstInt(2)}}}},
			},
		}
	}

	nonAggr := build()
	SimplifyCFG(false)(nonAggr, analysis.NewManager())
	if nonAggr.Blocks[0].Terminator().Labels[0] == "a" {
		t.Error("non-aggressive SimplifyCFG must not jump-thread through gate")
	}

	aggr := build()
	SimplifyCFG(true)(aggr, analysis.NewManager())
	if aggr.Blocks[0].Terminator().Labels[0] != "a" {
		t.Errorf("aggressive SimplifyCFG should thread entry directly to a, got %v", aggr.Blocks[0].Terminator().Labels)
	}
}

func TestSimplifyCFG_SkipsExceptionSensitiveBlocks(t *testing.T) {
	fn := twoBlockFn(il.Instr{Op: il.OpCbr, Operands: []il.Value{il.ConstBool(true)}, Labels: []string{"a", "b"}, BrArgs: [][]il.Value{{}, {}}})
	fn.Blocks[0].ExceptionSensitive = true
	SimplifyCFG(false)(fn, analysis.NewManager())
	term := fn.Blocks[0].Terminator()
	if term.Op != il.OpCbr {
		t.Error("an exception-sensitive block's terminator must not be rewritten")
	}
}

func TestSimplifyCFG_CanonicalizesUniformBlockParam(t *testing.T) {
	fn := &il.Function{
		Name:    "f",
		RetType: il.I64,
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{Op: il.OpCbr, Operands: []il.Value{il.ConstBool(true)}, Labels: []string{"merge", "merge"}, BrArgs: [][]il.Value{{il.ConstInt(7)}, {il.ConstInt(7)}}}}},
			{Label: "merge", Params: []il.BlockParam{{ID: 0, Name: "x", Type: il.I64}}, Instrs: []il.Instr{
				{Op: il.OpRet, Operands: []il.Value{il.Temp(0)}},
			}},
		},
	}
	SimplifyCFG(false)(fn, analysis.NewManager())
	for _, b := range fn.Blocks {
		if b.Label == "merge" && len(b.Params) != 0 {
			t.Errorf("uniform-valued block param should have been dropped, got %v", b.Params)
		}
	}
}
