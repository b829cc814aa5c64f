package passes

import (
	"testing"

	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/passmgr"
	"github.com/viper-lang/viper/internal/vmruntime"
)

func TestRegisterPipelines_O0IsEmpty(t *testing.T) {
	m := passmgr.NewManager()
	RegisterPipelines(m)
	ids, ok := m.Pipeline("O0")
	if !ok || len(ids) != 0 {
		t.Errorf("O0 should be registered and empty, got %v", ids)
	}
}

func TestRegisterPipelines_O2ExtendsO1(t *testing.T) {
	m := passmgr.NewManager()
	RegisterPipelines(m)
	o1, _ := m.Pipeline("O1")
	o2, _ := m.Pipeline("O2")
	if len(o2) <= len(o1) {
		t.Errorf("O2 should be strictly longer than O1, got O1=%v O2=%v", o1, o2)
	}
}

func TestRegisterAll_O1PipelineRunsOnSimpleModule(t *testing.T) {
	m := passmgr.NewManager()
	RegisterAll(m, vmruntime.Default(), nil)
	RegisterPipelines(m)

	fn := &il.Function{
		Name: "main", RetType: il.I64,
		Blocks: []*il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{
				{Op: il.OpAlloca, HasResult: true, Result: 0, ResultType: il.Ptr, AllocType: il.I64},
				{Op: il.OpStore, StoreType: il.I64, Operands: []il.Value{il.Temp(0), il.ConstInt(3)}},
				{Op: il.OpLoad, HasResult: true, Result: 1, ResultType: il.I64, Operands: []il.Value{il.Temp(0)}},
				{Op: il.OpAdd, HasResult: true, Result: 2, ResultType: il.I64, Operands: []il.Value{il.Temp(1), il.ConstInt(4)}},
				{Op: il.OpRet, Operands: []il.Value{il.Temp(2)}},
			}},
		},
	}
	mod := &il.Module{Version: 1, Functions: []*il.Function{fn}}
	if err := m.Run("O1", mod); err != nil {
		t.Fatalf("unexpected error running O1: %v", err)
	}
	ret := fn.Blocks[0].Instrs[len(fn.Blocks[0].Instrs)-1]
	if ret.Operands[0].Kind != il.VConstInt || ret.Operands[0].Int != 7 {
		t.Errorf("expected mem2reg+constfold to collapse the function to ret 7, got %v", ret.Operands[0])
	}
}
